package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"time"

	valid "github.com/asaskevich/govalidator"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
)

var (
	ErrUnsupportedMethod  = errors.New("unsupported HTTP method")
	ErrMissingBodyFile    = errors.New("POST and PUT requests need a body file")
	ErrUnexpectedBodyFile = errors.New("only POST and PUT requests take a body file")
	ErrInvalidURL         = errors.New("invalid URL")
)

// DeployHint is shown to the operator whenever a target cannot be reached.
const DeployHint = "make sure the target service is built and deployed before running this scenario"

// ProbeRequest describes a single outbound HTTP exchange.
type ProbeRequest struct {
	URL         string   `json:"url" koanf:"url"`
	Method      string   `json:"method" koanf:"method"`
	BodyFile    string   `json:"bodyFile,omitempty" koanf:"bodyFile"`
	ContentType string   `json:"contentType,omitempty" koanf:"contentType"`
	Headers     HeaderKV `json:"headers,omitempty" koanf:"headers"`
}

// Validate checks the method, the URL and the body file invariant.
func (r ProbeRequest) Validate() error {
	switch r.Method {
	case http.MethodGet:
		if r.BodyFile != "" {
			return fmt.Errorf("%s %s: %w", r.Method, r.URL, ErrUnexpectedBodyFile)
		}
	case http.MethodPost, http.MethodPut:
		if r.BodyFile == "" {
			return fmt.Errorf("%s %s: %w", r.Method, r.URL, ErrMissingBodyFile)
		}
	default:
		return fmt.Errorf("%q: %w", r.Method, ErrUnsupportedMethod)
	}

	if !valid.IsRequestURL(r.URL) {
		return fmt.Errorf("%q: %w", r.URL, ErrInvalidURL)
	}

	return nil
}

// ProbeResult is the observed outcome of one probe.
type ProbeResult struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// ConnectionError reports a target that could not be reached or that broke
// the connection before the response was read.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("error connecting to %s: %s", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Hint returns the operator-facing advice for this failure.
func (*ConnectionError) Hint() string {
	return DeployHint
}

// Prober issues probes. It holds no per-request state and is safe for
// concurrent use.
type Prober struct {
	client  *http.Client
	headers HeaderKV
	logger  *zap.Logger
}

// NewProber creates a Prober. headers are applied to every request before the
// request's own headers. A nil client uses a plain http.Client.
func NewProber(client *http.Client, headers HeaderKV, logger *zap.Logger) *Prober {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Prober{
		client:  client,
		headers: headers,
		logger:  logger,
	}
}

// Headers returns a copy of the headers applied to every request.
func (p *Prober) Headers() HeaderKV {
	return HeaderKV{}.Merge(p.headers)
}

// Probe performs the request synchronously.
func (p *Prober) Probe(ctx context.Context, r ProbeRequest) (ProbeResult, error) {
	if err := r.Validate(); err != nil {
		return ProbeResult{}, err
	}

	req, err := p.buildRequest(ctx, r)
	if err != nil {
		return ProbeResult{}, err
	}

	start := time.Now()
	res, err := p.client.Do(req)
	if err != nil {
		return ProbeResult{}, &ConnectionError{URL: r.URL, Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return ProbeResult{}, &ConnectionError{
			URL: r.URL,
			Err: fmt.Errorf("could not read response body: %w", err),
		}
	}

	p.logger.Debug("probe completed",
		zap.String("method", r.Method),
		zap.String("url", r.URL),
		zap.Int("status", res.StatusCode),
		zap.Int("bytes", len(raw)),
		zap.Duration("duration", time.Since(start)),
	)

	return ProbeResult{
		StatusCode: res.StatusCode,
		Body:       decodeBody(raw, res.Header.Get("Content-Type")),
	}, nil
}

func (p *Prober) buildRequest(ctx context.Context, r ProbeRequest) (*http.Request, error) {
	var body io.Reader
	if r.BodyFile != "" {
		content, err := os.ReadFile(r.BodyFile)
		if err != nil {
			return nil, fmt.Errorf("could not read body file: %w", err)
		}
		body = bytes.NewReader(content)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("client: could not create request: %w", err)
	}

	for key, value := range p.headers {
		req.Header.Set(key, value)
	}
	for key, value := range r.Headers {
		req.Header.Set(key, value)
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}

	return req, nil
}

// decodeBody converts a body declared in a non-UTF-8 charset to UTF-8.
// Bodies with an unknown or missing charset are returned unchanged.
func decodeBody(raw []byte, contentType string) string {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil || params["charset"] == "" {
		return string(raw)
	}

	enc, err := htmlindex.Get(params["charset"])
	if err != nil {
		return string(raw)
	}

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}

	return string(decoded)
}
