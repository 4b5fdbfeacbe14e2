package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hbomb79/mediagetter/internal/http/httpx"
	"github.com/hbomb79/mediagetter/internal/media"
	"github.com/hbomb79/mediagetter/pkg/logger"
)

const (
	DefaultTwitterAPIBase = "https://api.twitter.com"

	twitterLookupTemplate = "%s/2/tweets/%s?expansions=attachments.media_keys&media.fields=url,variants"
)

type (
	TwitterConfig struct {
		BearerToken     string `yaml:"bearer_token" env:"TWITTER_BEARER_TOKEN"`
		BearerTokenFile string `yaml:"bearer_token_file" env:"TWITTER_BEARER_TOKEN_FILE"`
		APIBase         string `yaml:"api_base" env:"TWITTER_API_BASE" env-default:"https://api.twitter.com"`
	}

	// Twitter looks up a tweet via the v2 API, and downloads the first
	// media item attached to it. For videos, the variant with the highest
	// bit-rate is chosen.
	Twitter struct {
		fetcher
		stager  Stager
		token   string
		apiBase string
	}

	tweetLookup struct {
		Includes struct {
			Media []tweetMedia `json:"media"`
		} `json:"includes"`
		Errors []struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		} `json:"errors"`
	}

	tweetMedia struct {
		Type     string         `json:"type"`
		URL      string         `json:"url"`
		Variants []tweetVariant `json:"variants"`
	}

	tweetVariant struct {
		BitRate     int    `json:"bit_rate"`
		ContentType string `json:"content_type"`
		URL         string `json:"url"`
	}
)

func NewTwitter(doer httpx.Doer, userAgent string, stager Stager, config TwitterConfig) *Twitter {
	base := strings.TrimSuffix(config.APIBase, "/")
	if base == "" {
		base = DefaultTwitterAPIBase
	}

	return &Twitter{fetcher: fetcher{doer, userAgent}, stager: stager, token: config.BearerToken, apiBase: base}
}

func (twitter *Twitter) Name() string { return "twitter" }

func (twitter *Twitter) Fetch(ctx context.Context, rawURL string) (*media.Descriptor, error) {
	tweetID, err := tweetIDFromURL(rawURL)
	if err != nil {
		return nil, err
	}

	lookup, err := twitter.lookup(ctx, tweetID)
	if err != nil {
		return nil, err
	}

	if len(lookup.Includes.Media) == 0 {
		if len(lookup.Errors) > 0 {
			log.Emit(logger.WARNING, "Tweet lookup for %s returned error: %s - %s\n", tweetID, lookup.Errors[0].Title, lookup.Errors[0].Detail)
		}
		return nil, &ExtractionError{Element: "tweet.media", Site: twitter.Name()}
	}

	mediaURL, kind, ok := selectTweetMedia(lookup.Includes.Media[0])
	if !ok {
		return nil, &ExtractionError{Element: "media.url", Site: twitter.Name()}
	}

	resp, err := twitter.get(ctx, mediaURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	ext := ""
	if kind == media.Video {
		ext = videoExtension
	}

	path, n, err := stream(twitter.stager, ext, resp, mediaURL)
	if err != nil {
		return nil, err
	}

	log.Emit(logger.DEBUG, "Tweet %s staged %d bytes (%s) from %s\n", tweetID, n, kind, mediaURL)
	return &media.Descriptor{Location: path, Kind: kind, SourceURL: mediaURL}, nil
}

func (twitter *Twitter) lookup(ctx context.Context, tweetID string) (*tweetLookup, error) {
	apiURL := fmt.Sprintf(twitterLookupTemplate, twitter.apiBase, url.PathEscape(tweetID))
	resp, err := twitter.get(ctx, apiURL, http.Header{"Authorization": []string{"Bearer " + twitter.token}})
	if err != nil {
		return nil, err
	}

	body, err := readAll(resp, apiURL)
	if err != nil {
		return nil, err
	}

	var lookup tweetLookup
	if err := json.Unmarshal(body, &lookup); err != nil {
		return nil, &ExtractionError{Element: "tweet.json", Site: twitter.Name()}
	}

	return &lookup, nil
}

// tweetIDFromURL extracts the last non-empty path segment of a tweet URL.
func tweetIDFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", &InvalidURLError{URL: rawURL, Reason: err.Error()}
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	id := segments[len(segments)-1]
	if id == "" {
		return "", &ExtractionError{Element: "tweet id", Site: "twitter"}
	}

	return id, nil
}

// selectTweetMedia picks the URL to download for a media item. Photos use
// their URL directly, whereas videos (and GIFs, which Twitter serves as
// video) use the variant with the highest bit-rate. When several variants
// share the highest bit-rate, the first is chosen.
func selectTweetMedia(item tweetMedia) (string, media.Kind, bool) {
	switch item.Type {
	case "photo":
		return item.URL, media.Image, item.URL != ""
	case "video", "animated_gif":
		best := -1
		for i, v := range item.Variants {
			if v.URL == "" {
				continue
			}
			if best == -1 || v.BitRate > item.Variants[best].BitRate {
				best = i
			}
		}

		if best == -1 {
			return "", media.Video, false
		}
		return item.Variants[best].URL, media.Video, true
	}

	return "", media.Image, false
}
