package apiclient

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// Probe reports whether the backend at baseURL answers at all. Any HTTP
// response, whatever its status, counts as reachable.
func Probe(ctx context.Context, baseURL string, hc *http.Client) error {
	if hc == nil {
		hc = http.DefaultClient
	}
	url := strings.TrimRight(baseURL, "/") + "/auth/me"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &Error{Kind: KindTransport, Method: http.MethodGet, Path: "/auth/me", Err: err}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Method: http.MethodGet, Path: "/auth/me", Err: err}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}
