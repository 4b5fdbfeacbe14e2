package scraper

import (
	"context"
	"mime"
	"net/http"

	"github.com/hbomb79/mediagetter/internal/http/httpx"
	"github.com/hbomb79/mediagetter/internal/media"
	"github.com/hbomb79/mediagetter/pkg/logger"
)

const videoExtension = ".mp4"

// Generic treats the URL as a direct link to a media byte stream and
// classifies it using the response content-type. It's the fallback for
// any host the dispatcher does not recognise.
type Generic struct {
	fetcher
	stager Stager
}

func NewGeneric(doer httpx.Doer, userAgent string, stager Stager) *Generic {
	return &Generic{fetcher: fetcher{doer, userAgent}, stager: stager}
}

func (generic *Generic) Name() string { return "generic" }

func (generic *Generic) Fetch(ctx context.Context, rawURL string) (*media.Descriptor, error) {
	return generic.download(ctx, rawURL, nil)
}

// download is shared with the strategies which resolve a post to a direct
// media URL and then defer to Generic.
func (generic *Generic) download(ctx context.Context, rawURL string, header http.Header) (*media.Descriptor, error) {
	resp, err := generic.get(ctx, rawURL, header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		return nil, &UnclassifiableMediaError{URL: rawURL}
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, &UnclassifiableMediaError{URL: rawURL, ContentType: contentType}
	}

	kind, ext := media.Image, ""
	if media.IsVideoMime(mediaType) {
		kind, ext = media.Video, videoExtension
	}

	path, n, err := stream(generic.stager, ext, resp, rawURL)
	if err != nil {
		return nil, err
	}

	log.Emit(logger.DEBUG, "Generic fetch of %s staged %d bytes (%s, %s)\n", rawURL, n, mediaType, kind)
	return &media.Descriptor{Location: path, Kind: kind, SourceURL: finalURL(resp, rawURL).String()}, nil
}
