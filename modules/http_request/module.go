// Package http_request provides the "http_request" node, which issues one
// outbound HTTP request and exposes the response to downstream nodes.
package http_request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
	"github.com/specialistvlad/flowgridgo/internal/executor"
	"github.com/specialistvlad/flowgridgo/internal/property"
	"github.com/specialistvlad/flowgridgo/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Type is the node type handled by this module.
const Type = "http_request"

// UserAgent is sent unless the node sets its own User-Agent header.
const UserAgent = "flowgridgo/1.0"

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client is shared by every request. NewClient(0) is used when nil.
	Client *http.Client
}

// Register registers the executor with the registry.
func (m *Module) Register(r *registry.Registry) {
	client := m.Client
	if client == nil {
		client = NewClient(0)
	}
	r.Register(Type, &Executor{Client: client})
}

// Executor performs the request described by a node's properties.
type Executor struct {
	Client *http.Client
}

// Execute implements executor.Executor. A response outside the 2xx range is
// reported as a failure, with the response still exposed in the output.
func (e *Executor) Execute(ctx context.Context, props *property.Bag, in executor.Input) executor.Result {
	start := time.Now()

	req, err := buildRequest(ctx, props)
	if err != nil {
		return executor.Failed(start, "%v", err)
	}

	logger := ctxlog.FromContext(ctx).With("method", req.Method, "url", req.URL.String())
	logger.Info("Making HTTP request.")

	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return executor.Failed(start, "request failed: %v", err)
	}
	defer resp.Body.Close()

	logger.Info("Received HTTP response.", "status", resp.Status)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return executor.Failed(start, "failed to read response body: %v", err)
	}

	isSuccess := resp.StatusCode >= 200 && resp.StatusCode < 300
	out := executor.Data{
		"status_code": cty.NumberIntVal(int64(resp.StatusCode)),
		"body":        cty.StringVal(string(body)),
		"headers":     headersValue(resp.Header),
		"is_success":  cty.BoolVal(isSuccess),
	}

	res := executor.Succeeded(start, out)
	if !isSuccess {
		res.Success = false
		res.ErrorMessage = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return res
}

func buildRequest(ctx context.Context, props *property.Bag) (*http.Request, error) {
	url, err := props.String("url", "")
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("property 'url' is required")
	}

	method, err := props.String("method", http.MethodGet)
	if err != nil {
		return nil, fmt.Errorf("invalid method: %w", err)
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}

	headers, err := props.StringMap("headers")
	if err != nil {
		return nil, fmt.Errorf("invalid headers: %w", err)
	}

	body, err := props.String("body", "")
	if err != nil {
		return nil, fmt.Errorf("invalid body: %w", err)
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent)
	}
	if body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func headersValue(h http.Header) cty.Value {
	if len(h) == 0 {
		return cty.MapValEmpty(cty.String)
	}
	vals := make(map[string]cty.Value, len(h))
	for k, v := range h {
		vals[k] = cty.StringVal(strings.Join(v, ", "))
	}
	return cty.MapVal(vals)
}
