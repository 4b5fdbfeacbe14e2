package testhelpers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Route describes a canned response served by NewSiteServer.
type Route struct {
	ContentType string
	Status      int
	Body        []byte

	// Check, if set, is called with the request before responding
	Check func(*http.Request)
}

// ServerPlaceholder may be used within a route body, and is replaced with
// the base URL of the server when served.
const ServerPlaceholder = "{{server}}"

// NewSiteServer starts an httptest server which serves the routes provided,
// keyed by request path. Unknown paths receive a 404. The server is closed
// when the test completes.
func NewSiteServer(t *testing.T, routes map[string]Route) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}

		if route.Check != nil {
			route.Check(r)
		}

		if route.ContentType != "" {
			w.Header().Set("Content-Type", route.ContentType)
		} else {
			// Stop net/http sniffing a content type on our behalf
			w.Header()["Content-Type"] = nil
		}

		status := route.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write(bytes.ReplaceAll(route.Body, []byte(ServerPlaceholder), []byte("http://"+r.Host)))
	}))

	t.Cleanup(srv.Close)
	return srv
}
