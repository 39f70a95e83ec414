package builtin

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluzky/prana/internal/action"
)

type fakeHTTPClient struct {
	resp *http.Response
	err  error
	got  *http.Request
}

func (f *fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	f.got = req
	return f.resp, f.err
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"X-Trace": []string{"abc"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestHTTPRequestAction_SuccessDecodesJSONBody(t *testing.T) {
	client := &fakeHTTPClient{resp: jsonResponse(200, `{"ok":true}`)}
	a := NewHTTPRequestAction(client)

	res, err := a.Execute(context.Background(), map[string]any{
		"method": "POST",
		"url":    "https://example.com/widgets",
		"body":   map[string]any{"name": "gizmo"},
	}, action.ExecContext{})

	require.NoError(t, err)
	require.Equal(t, action.ResultSuccess, res.Kind)
	data := res.Data.(map[string]any)
	assert.Equal(t, int64(200), data["status_code"])
	assert.Equal(t, map[string]any{"ok": true}, data["body"])
	assert.Equal(t, "abc", data["headers"].(map[string]any)["X-Trace"])

	require.NotNil(t, client.got)
	assert.Equal(t, "POST", client.got.Method)
	assert.Equal(t, "application/json", client.got.Header.Get("Content-Type"))
}

func TestHTTPRequestAction_NonJSONBodyFallsBackToString(t *testing.T) {
	client := &fakeHTTPClient{resp: jsonResponse(200, "plain text")}
	a := NewHTTPRequestAction(client)

	res, err := a.Execute(context.Background(), map[string]any{"url": "https://example.com"}, action.ExecContext{})
	require.NoError(t, err)
	assert.Equal(t, "plain text", res.Data.(map[string]any)["body"])
	assert.Equal(t, http.MethodGet, client.got.Method)
}

func TestHTTPRequestAction_MissingURLFails(t *testing.T) {
	a := NewHTTPRequestAction(&fakeHTTPClient{})
	res, err := a.Execute(context.Background(), map[string]any{}, action.ExecContext{})
	require.NoError(t, err)
	assert.Equal(t, action.ResultFailure, res.Kind)
}

func TestHTTPRequestAction_TransportErrorIsFailureNotGoError(t *testing.T) {
	client := &fakeHTTPClient{err: io.ErrUnexpectedEOF}
	a := NewHTTPRequestAction(client)

	res, err := a.Execute(context.Background(), map[string]any{"url": "https://example.com"}, action.ExecContext{})
	require.NoError(t, err)
	require.Equal(t, action.ResultFailure, res.Kind)
	assert.Equal(t, "network_error", res.Err.Details["error_type"])
}

func TestHTTPRequestAction_ResumeAlwaysFails(t *testing.T) {
	a := NewHTTPRequestAction(&fakeHTTPClient{})
	res, err := a.Resume(context.Background(), nil, action.ExecContext{}, nil)
	require.NoError(t, err)
	assert.Equal(t, action.ResultFailure, res.Kind)
}
