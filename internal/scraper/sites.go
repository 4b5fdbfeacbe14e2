package scraper

import (
	"github.com/hbomb79/mediagetter/internal/http/httpx"
	"github.com/hbomb79/mediagetter/pkg/logger"
)

var (
	DanbooruHosts = []string{"danbooru.donmai.us"}
	PixivHosts    = []string{"www.pixiv.net", "pixiv.net"}
	TwitterHosts  = []string{"twitter.com", "www.twitter.com", "mobile.twitter.com", "x.com"}
)

// NewSiteDispatcher builds the dispatcher with every supported site
// registered against its known hosts. The Twitter strategy requires a
// bearer token, and is left unregistered when one is not configured.
func NewSiteDispatcher(doer httpx.Doer, userAgent string, stager Stager, twitterConfig TwitterConfig) *Dispatcher {
	generic := NewGeneric(doer, userAgent, stager)
	dispatcher := NewDispatcher(generic).
		Register(NewDanbooru(generic), DanbooruHosts...).
		Register(NewPixiv(doer, userAgent, stager), PixivHosts...)

	if twitterConfig.BearerToken != "" {
		dispatcher.Register(NewTwitter(doer, userAgent, stager, twitterConfig), TwitterHosts...)
	} else {
		log.Emit(logger.WARNING, "No Twitter bearer token configured; tweets will be treated as direct media links\n")
	}

	return dispatcher
}
