package scraper_test

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/hbomb79/mediagetter/internal/media"
	"github.com/hbomb79/mediagetter/internal/scraper"
	"github.com/hbomb79/mediagetter/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBearer = "test-bearer-token"

func twitterRoute(t *testing.T, body string) testhelpers.Route {
	return testhelpers.Route{ContentType: "application/json", Body: []byte(body), Check: func(r *http.Request) {
		assert.Equal(t, "Bearer "+testBearer, r.Header.Get("Authorization"))
		assert.Equal(t, "attachments.media_keys", r.URL.Query().Get("expansions"))
		assert.Equal(t, "url,variants", r.URL.Query().Get("media.fields"))
	}}
}

func Test_Twitter(t *testing.T) {
	t.Parallel()
	photo := testhelpers.PNG(t, 8, 8, testhelpers.Checkerboard)
	srv := testhelpers.NewSiteServer(t, map[string]testhelpers.Route{
		"/2/tweets/100": twitterRoute(t, `{"data":{"id":"100"},"includes":{"media":[
			{"media_key":"3_1","type":"photo","url":"{{server}}/media/photo.png"},
			{"media_key":"3_2","type":"photo","url":"{{server}}/media/other.png"}
		]}}`),
		"/2/tweets/200": twitterRoute(t, `{"includes":{"media":[{"type":"video","variants":[
			{"content_type":"application/x-mpegURL","url":"{{server}}/media/playlist.m3u8"},
			{"bit_rate":832000,"content_type":"video/mp4","url":"{{server}}/media/low.mp4"},
			{"bit_rate":2176000,"content_type":"video/mp4","url":"{{server}}/media/high.mp4"},
			{"bit_rate":2176000,"content_type":"video/mp4","url":"{{server}}/media/high-dupe.mp4"}
		]}]}}`),
		"/2/tweets/300": twitterRoute(t, `{"data":{"id":"300","text":"no media"}}`),
		"/2/tweets/400": twitterRoute(t, `{"includes":{"media":[{"type":"video","variants":[]}]}}`),
		"/2/tweets/500": twitterRoute(t, `{"errors":[{"title":"Not Found Error","detail":"Could not find tweet"}]}`),
		"/2/tweets/600": twitterRoute(t, `{"includes":{"media":[{"type":"animated_gif","variants":[
			{"bit_rate":0,"content_type":"video/mp4","url":"{{server}}/media/gif.mp4"}
		]}]}}`),
		"/2/tweets/700": twitterRoute(t, `not json`),
		"/media/photo.png":     {ContentType: "image/png", Body: photo},
		"/media/high.mp4":      {ContentType: "video/mp4", Body: []byte("high-bitrate-video")},
		"/media/high-dupe.mp4": {ContentType: "video/mp4", Body: []byte("wrong-variant")},
		"/media/gif.mp4":       {ContentType: "video/mp4", Body: []byte("gif-video")},
	})

	newTwitter := func(t *testing.T) (*scraper.Twitter, string) {
		area := newArea(t)
		return scraper.NewTwitter(srv.Client(), testUserAgent, area, scraper.TwitterConfig{BearerToken: testBearer, APIBase: srv.URL}), area.Dir()
	}

	t.Run("photo uses media url", func(t *testing.T) {
		twitter, _ := newTwitter(t)
		desc, err := twitter.Fetch(context.Background(), "https://twitter.com/dog_rates/status/100?s=20")
		require.NoError(t, err)
		assert.Equal(t, media.Image, desc.Kind)
		assert.Equal(t, "", filepath.Ext(desc.Location))
		assertStaged(t, desc, photo)
	})

	t.Run("video selects first highest bit-rate variant", func(t *testing.T) {
		twitter, _ := newTwitter(t)
		desc, err := twitter.Fetch(context.Background(), "https://x.com/someone/status/200")
		require.NoError(t, err)
		assert.Equal(t, media.Video, desc.Kind)
		assert.Equal(t, ".mp4", filepath.Ext(desc.Location))
		assert.Equal(t, srv.URL+"/media/high.mp4", desc.SourceURL)
		assertStaged(t, desc, []byte("high-bitrate-video"))
	})

	t.Run("animated gif is treated as video", func(t *testing.T) {
		twitter, _ := newTwitter(t)
		desc, err := twitter.Fetch(context.Background(), "https://twitter.com/someone/status/600/")
		require.NoError(t, err)
		assert.Equal(t, media.Video, desc.Kind)
		assertStaged(t, desc, []byte("gif-video"))
	})

	failures := []struct {
		summary string
		url     string
		element string
	}{
		{summary: "tweet without media", url: "https://twitter.com/a/status/300", element: "tweet.media"},
		{summary: "video without variants", url: "https://twitter.com/a/status/400", element: "media.url"},
		{summary: "tweet lookup error", url: "https://twitter.com/a/status/500", element: "tweet.media"},
		{summary: "malformed lookup response", url: "https://twitter.com/a/status/700", element: "tweet.json"},
		{summary: "url without tweet id", url: "https://twitter.com/", element: "tweet id"},
	}
	for _, tt := range failures {
		t.Run(tt.summary, func(t *testing.T) {
			twitter, dir := newTwitter(t)
			_, err := twitter.Fetch(context.Background(), tt.url)

			var extractErr *scraper.ExtractionError
			require.ErrorAs(t, err, &extractErr)
			assert.Equal(t, "twitter", extractErr.Site)
			assert.Equal(t, tt.element, extractErr.Element)
			assert.Empty(t, testhelpers.ListFiles(t, dir))
		})
	}

	t.Run("unknown tweet is a network failure", func(t *testing.T) {
		twitter, _ := newTwitter(t)
		_, err := twitter.Fetch(context.Background(), "https://twitter.com/a/status/999")

		var netErr *scraper.NetworkError
		require.ErrorAs(t, err, &netErr)
		assert.Equal(t, http.StatusNotFound, netErr.Status)
	})
}
