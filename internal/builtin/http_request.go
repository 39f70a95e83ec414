// Package builtin holds reference Actions that exercise the Action
// interface end to end: an HTTP call, a timed suspension, a fan-in
// merge, two conditional-routing actions, and an LLM completion call.
// None of these are part of the scheduler core; they exist so a host
// has something to register on day one, grounded on the teacher's
// internal/node/builtin HTTP node and its net/http client abstraction.
package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bluzky/prana/internal/action"
	"github.com/bluzky/prana/internal/domain"
)

// HTTPClient is the same minimal abstraction the teacher's HTTPRequestNode
// takes, so tests can inject a fake transport instead of hitting the network.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPRequestAction implements "http.request": method/url/headers/body in,
// status/headers/body out. Never suspends.
type HTTPRequestAction struct {
	Client HTTPClient
}

func NewHTTPRequestAction(client HTTPClient) *HTTPRequestAction {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPRequestAction{Client: client}
}

func (a *HTTPRequestAction) Prepare(ctx context.Context, node *domain.Node) (any, error) {
	return nil, nil
}

func (a *HTTPRequestAction) Execute(ctx context.Context, params map[string]any, ectx action.ExecContext) (action.Result, error) {
	method, _ := params["method"].(string)
	if method == "" {
		method = http.MethodGet
	}
	url, _ := params["url"].(string)
	if url == "" {
		return action.Failure(domain.NewError(domain.ErrCodeValidation, "http.request: url is required", nil)), nil
	}

	var body io.Reader
	if b, ok := params["body"]; ok && b != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(b); err != nil {
			return action.Result{}, err
		}
		body = buf
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return action.Result{}, err
	}
	if headers, ok := params["headers"].(map[string]any); ok {
		for k, v := range headers {
			req.Header.Set(k, fmt.Sprintf("%v", v))
		}
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return action.Failure(domain.NewError(domain.ErrCodeAction, "http.request: "+err.Error(), err).WithDetails(map[string]any{"error_type": "network_error"})), nil
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		decoded = string(raw)
	}

	headers := map[string]any{}
	for k, v := range resp.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return action.Success(map[string]any{
		"status_code": int64(resp.StatusCode),
		"headers":     headers,
		"body":        decoded,
	}), nil
}

func (a *HTTPRequestAction) Resume(ctx context.Context, params map[string]any, ectx action.ExecContext, resumeData any) (action.Result, error) {
	return action.Failure(domain.NewError(domain.ErrCodeAction, "http.request never suspends", nil)), nil
}
