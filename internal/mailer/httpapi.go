package mailer

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPDoer is satisfied by *http.Client. Providers take it so tests can
// point them at httptest servers.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// doProviderRequest executes req once and classifies the failure. Any
// 2xx status is success.
func doProviderRequest(client HTTPDoer, provider string, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return &DeliveryError{Provider: provider, Kind: classifyNetError(err), Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &DeliveryError{
			Provider: provider,
			Kind:     classifyHTTPStatus(resp.StatusCode),
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}
	return nil
}
