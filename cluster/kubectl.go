package cluster

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/alessio/shellescape"
)

// Runner executes a kubectl command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// Kubectl runs the kubectl binary found on PATH.
type Kubectl struct {
	Binary     string
	Kubeconfig string
	Context    string
	Namespace  string
}

func (k Kubectl) Run(ctx context.Context, args ...string) ([]byte, error) {
	full := k.args(args...)
	binary := k.Binary
	if binary == "" {
		binary = "kubectl"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, full...)
	cmd.Env = os.Environ()
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s",
			shellescape.QuoteCommand(append([]string{binary}, full...)), err, strings.TrimSpace(stderr.String()))
	}

	return stdout.Bytes(), nil
}

// String renders the command line without arguments, for logs.
func (k Kubectl) String() string {
	binary := k.Binary
	if binary == "" {
		binary = "kubectl"
	}

	return shellescape.QuoteCommand(append([]string{binary}, k.args()...))
}

func (k Kubectl) args(args ...string) []string {
	var full []string
	if k.Kubeconfig != "" {
		full = append(full, "--kubeconfig", k.Kubeconfig)
	}
	if k.Context != "" {
		full = append(full, "--context", k.Context)
	}
	if k.Namespace != "" {
		full = append(full, "--namespace", k.Namespace)
	}

	return append(full, args...)
}
