package scraper

import (
	"context"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/hbomb79/mediagetter/internal/media"
	"github.com/hbomb79/mediagetter/pkg/logger"
)

const danbooruOriginalSelector = ".image-view-original-link[href]"

// Danbooru scrapes a post page for the link to the original upload, and
// then downloads it using the Generic strategy.
type Danbooru struct {
	generic *Generic
}

func NewDanbooru(generic *Generic) *Danbooru {
	return &Danbooru{generic: generic}
}

func (danbooru *Danbooru) Name() string { return "danbooru" }

func (danbooru *Danbooru) Fetch(ctx context.Context, rawURL string) (*media.Descriptor, error) {
	resp, err := danbooru.generic.get(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Reason: "failed to read post page: " + err.Error()}
	}

	link := doc.Find(danbooruOriginalSelector).First()
	if link.Length() == 0 {
		return nil, &ExtractionError{Element: "html.a", Site: danbooru.Name()}
	}

	href, ok := link.Attr("href")
	if !ok || href == "" {
		return nil, &ExtractionError{Element: "a.href", Site: danbooru.Name()}
	}

	mediaURL, err := resolveReference(finalURL(resp, rawURL), href)
	if err != nil {
		return nil, &ExtractionError{Element: "a.href", Site: danbooru.Name()}
	}

	log.Emit(logger.DEBUG, "Danbooru post %s resolved to original %s\n", rawURL, mediaURL)
	return danbooru.generic.download(ctx, mediaURL, nil)
}

// resolveReference resolves a possibly-relative link found on a page
// against the URL of the page itself.
func resolveReference(page *url.URL, href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}

	return page.ResolveReference(ref).String(), nil
}
