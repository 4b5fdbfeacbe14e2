package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hbomb79/mediagetter/internal/http/httpx"
	"github.com/hbomb79/mediagetter/internal/media"
	"github.com/hbomb79/mediagetter/internal/staging"
	"github.com/hbomb79/mediagetter/pkg/logger"
)

var log = logger.Get("Scraper")

type (
	// Strategy is a site-specific procedure that turns a post URL in to
	// a staged media file. Implementations hold no mutable state, and so
	// Fetch may be called concurrently.
	Strategy interface {
		Name() string
		Fetch(ctx context.Context, rawURL string) (*media.Descriptor, error)
	}

	// Stager is the subset of the staging area used by strategies.
	Stager interface {
		WriteAll(ext string, data []byte) (string, error)
		Stream(ext string, r io.Reader) (string, int64, error)
		Discard(path string)
	}

	// fetcher wraps the shared HTTP client with the request/response
	// handling common to every strategy.
	fetcher struct {
		doer      httpx.Doer
		userAgent string
	}
)

// get performs a GET request for the URL, applying any extra headers. A
// transport failure or a non-2xx status is returned as a *NetworkError, in
// which case the response body is already closed.
func (f fetcher) get(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	req, err := httpx.NewRequest(ctx, http.MethodGet, rawURL, nil, f.userAgent)
	if err != nil {
		return nil, &InvalidURLError{URL: rawURL, Reason: err.Error()}
	}

	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	log.Emit(logger.VERBOSE, "GET %s\n", rawURL)
	resp, err := f.doer.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Reason: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &NetworkError{URL: rawURL, Status: resp.StatusCode, Reason: http.StatusText(resp.StatusCode)}
	}

	return resp, nil
}

// readAll reads the entire body of a response, closing it afterwards.
func readAll(resp *http.Response, rawURL string) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Reason: fmt.Sprintf("failed to read response body: %v", err)}
	}

	return body, nil
}

// stream copies the response body in to a staged file. A failure reading
// the body is reported as a *NetworkError, while a failure writing to the
// scratch area is passed through untouched.
func stream(stager Stager, ext string, resp *http.Response, rawURL string) (string, int64, error) {
	path, n, err := stager.Stream(ext, resp.Body)
	if err != nil {
		var fsErr *staging.FileSystemError
		if errors.As(err, &fsErr) && fsErr.Op == "read" {
			return "", n, &NetworkError{URL: rawURL, Reason: "download interrupted: " + fsErr.Err.Error()}
		}

		return "", n, err
	}

	return path, n, nil
}

// finalURL returns the URL the response was served from after any
// redirects, falling back to the URL originally requested.
func finalURL(resp *http.Response, requested string) *url.URL {
	if resp.Request != nil && resp.Request.URL != nil {
		return resp.Request.URL
	}

	u, err := url.Parse(requested)
	if err != nil {
		return &url.URL{}
	}
	return u
}
