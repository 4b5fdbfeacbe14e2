package scraper_test

import (
	"net/http"
	"testing"

	"github.com/hbomb79/mediagetter/internal/scraper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Dispatcher_Route(t *testing.T) {
	t.Parallel()
	dispatcher := scraper.NewSiteDispatcher(http.DefaultClient, testUserAgent, newArea(t), scraper.TwitterConfig{BearerToken: testBearer})

	tests := []struct {
		summary  string
		url      string
		strategy string
	}{
		{summary: "danbooru post", url: "https://danbooru.donmai.us/posts/5634057", strategy: "danbooru"},
		{summary: "pixiv artwork", url: "https://www.pixiv.net/en/artworks/101779848", strategy: "pixiv"},
		{summary: "pixiv without www", url: "https://pixiv.net/en/artworks/101779848", strategy: "pixiv"},
		{summary: "tweet", url: "https://twitter.com/dog_rates/status/1578145895584911362?s=20", strategy: "twitter"},
		{summary: "x.com tweet", url: "https://x.com/dog_rates/status/1578145895584911362", strategy: "twitter"},
		{summary: "host with port still matches", url: "https://danbooru.donmai.us:443/posts/1", strategy: "danbooru"},
		{summary: "unknown host", url: "https://cdn.discordapp.com/attachments/1/2/image.jpg", strategy: "generic"},
		{summary: "host match is case sensitive", url: "https://DANBOORU.donmai.us/posts/1", strategy: "generic"},
		{summary: "subdomain is not matched", url: "https://safebooru.donmai.us/posts/1", strategy: "generic"},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			strategy, err := dispatcher.Route(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, strategy.Name())
		})
	}
}

func Test_Dispatcher_InvalidURL(t *testing.T) {
	t.Parallel()
	dispatcher := scraper.NewSiteDispatcher(http.DefaultClient, testUserAgent, newArea(t), scraper.TwitterConfig{})

	for _, raw := range []string{"", "not a url", "://missing-scheme", "ftp://example.com/file.png", "https:///no-host", "http://[::1"} {
		strategy, err := dispatcher.Route(raw)
		assert.Nil(t, strategy, "expected no strategy for %q", raw)

		var invalid *scraper.InvalidURLError
		assert.ErrorAs(t, err, &invalid, "expected InvalidURLError for %q", raw)
	}
}

func Test_Dispatcher_TwitterRequiresToken(t *testing.T) {
	t.Parallel()
	dispatcher := scraper.NewSiteDispatcher(http.DefaultClient, testUserAgent, newArea(t), scraper.TwitterConfig{})

	strategy, err := dispatcher.Route("https://twitter.com/a/status/1")
	require.NoError(t, err)
	assert.Equal(t, "generic", strategy.Name())
	assert.NotContains(t, dispatcher.Hosts(), "twitter.com")
	assert.Equal(t, "danbooru", dispatcher.Hosts()["danbooru.donmai.us"])
}
