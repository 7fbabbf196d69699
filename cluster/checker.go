package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/itchyny/gojq"
	"go.uber.org/zap"
)

var (
	ErrNotFound   = errors.New("resource not found")
	ErrTooFewPods = errors.New("too few running pods")
)

var runningPodNames = gojq.MustParse(`[.items[]? | select(.status.phase == "Running") | .metadata.name]`)

// Checker verifies that the workload behind a suite is deployed.
type Checker struct {
	runner Runner
	logger *zap.Logger
}

func NewChecker(runner Runner, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Checker{runner: runner, logger: logger}
}

// ReplicationControllerExists fails with ErrNotFound unless the named
// replication controller exists.
func (c *Checker) ReplicationControllerExists(ctx context.Context, name string) error {
	out, err := c.runner.Run(ctx, "get", "replicationcontroller", name, "--ignore-not-found", "-o", "name")
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return fmt.Errorf("replicationcontroller %s: %w", name, ErrNotFound)
	}

	c.logger.Debug("replication controller found", zap.String("name", name))

	return nil
}

// RunningPods returns the names of the pods matching selector that are in
// phase Running. It fails with ErrTooFewPods when there are fewer than atLeast.
func (c *Checker) RunningPods(ctx context.Context, selector string, atLeast int) ([]string, error) {
	out, err := c.runner.Run(ctx, "get", "pods", "-l", selector, "-o", "json")
	if err != nil {
		return nil, err
	}

	var list any
	if err := json.Unmarshal(out, &list); err != nil {
		return nil, fmt.Errorf("cannot decode pod list: %w", err)
	}

	names := []string{}
	iter := runningPodNames.RunWithContext(ctx, list)
	v, ok := iter.Next()
	if ok {
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("cannot read pod list: %w", err)
		}
		if values, isList := v.([]any); isList {
			for _, value := range values {
				if name, isString := value.(string); isString {
					names = append(names, name)
				}
			}
		}
	}

	c.logger.Debug("running pods",
		zap.String("selector", selector),
		zap.Strings("pods", names),
	)

	if len(names) < atLeast {
		return names, fmt.Errorf("%w: %q has %d, want at least %d", ErrTooFewPods, selector, len(names), atLeast)
	}

	return names, nil
}
