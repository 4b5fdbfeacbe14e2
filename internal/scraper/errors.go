package scraper

import "fmt"

type (
	// InvalidURLError indicates the URL submitted could not be parsed,
	// or is not an absolute http(s) URL.
	InvalidURLError struct {
		URL    string
		Reason string
	}

	// NetworkError indicates a request to a remote site failed, either
	// at the transport level or because of a non-2xx response.
	NetworkError struct {
		URL    string
		Status int
		Reason string
	}

	// ExtractionError indicates the expected structure was missing from
	// the HTML or JSON fetched from a site.
	ExtractionError struct {
		Element string
		Site    string
	}

	// UnclassifiableMediaError indicates a direct media download did not
	// provide a usable content-type header.
	UnclassifiableMediaError struct {
		URL         string
		ContentType string
	}
)

func (err *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid url %q: %s", err.URL, err.Reason)
}

func (err *NetworkError) Error() string {
	if err.Status != 0 {
		return fmt.Sprintf("request to %s failed (HTTP %d): %s", err.URL, err.Status, err.Reason)
	}

	return fmt.Sprintf("request to %s failed: %s", err.URL, err.Reason)
}

func (err *ExtractionError) Error() string {
	return fmt.Sprintf("could not scrape %q for %q", err.Element, err.Site)
}

func (err *UnclassifiableMediaError) Error() string {
	if err.ContentType == "" {
		return fmt.Sprintf("media at %s has no content-type, cannot classify", err.URL)
	}

	return fmt.Sprintf("media at %s has unrecognised content-type %q", err.URL, err.ContentType)
}
