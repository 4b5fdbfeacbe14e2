package scraper

import (
	"context"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"github.com/hbomb79/mediagetter/internal/http/httpx"
	"github.com/hbomb79/mediagetter/internal/media"
	"github.com/hbomb79/mediagetter/pkg/logger"
	"github.com/tidwall/gjson"
)

const (
	pixivPreloadSelector = "#meta-preload-data[content]"

	// PixivReferer must be sent when downloading from Pixiv's image
	// host, which rejects requests without it.
	PixivReferer = "https://www.pixiv.net"
)

// Pixiv reads the preload metadata embedded in an artwork page to find the
// URL of the original image, which is then downloaded with the Referer
// header Pixiv's CDN requires.
type Pixiv struct {
	fetcher
	stager Stager
}

func NewPixiv(doer httpx.Doer, userAgent string, stager Stager) *Pixiv {
	return &Pixiv{fetcher: fetcher{doer, userAgent}, stager: stager}
}

func (pixiv *Pixiv) Name() string { return "pixiv" }

func (pixiv *Pixiv) Fetch(ctx context.Context, rawURL string) (*media.Descriptor, error) {
	original, err := pixiv.findOriginalURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := pixiv.get(ctx, original, http.Header{"Referer": []string{PixivReferer}})
	if err != nil {
		return nil, err
	}

	data, err := readAll(resp, original)
	if err != nil {
		return nil, err
	}

	path, err := pixiv.stager.WriteAll("", data)
	if err != nil {
		return nil, err
	}

	log.Emit(logger.DEBUG, "Pixiv artwork %s staged %d bytes from %s\n", rawURL, len(data), original)
	return &media.Descriptor{Location: path, Kind: media.Image, SourceURL: original}, nil
}

func (pixiv *Pixiv) findOriginalURL(ctx context.Context, rawURL string) (string, error) {
	resp, err := pixiv.get(ctx, rawURL, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", &NetworkError{URL: rawURL, Reason: "failed to read artwork page: " + err.Error()}
	}

	meta := doc.Find(pixivPreloadSelector).First()
	if meta.Length() == 0 {
		return "", &ExtractionError{Element: "metadata", Site: pixiv.Name()}
	}

	content, ok := meta.Attr("content")
	if !ok || !gjson.Valid(content) {
		return "", &ExtractionError{Element: "metadata.content", Site: pixiv.Name()}
	}

	illusts := gjson.Get(content, "illust")
	if !illusts.IsObject() {
		return "", &ExtractionError{Element: "metadata.content.illust", Site: pixiv.Name()}
	}

	// Take the first illustration in document order
	var first gjson.Result
	illusts.ForEach(func(_, value gjson.Result) bool {
		first = value
		return false
	})
	if !first.Exists() {
		return "", &ExtractionError{Element: "metadata.content.illust", Site: pixiv.Name()}
	}

	original := first.Get("urls.original").String()
	if original == "" {
		return "", &ExtractionError{Element: "illust.urls.original", Site: pixiv.Name()}
	}

	return original, nil
}
