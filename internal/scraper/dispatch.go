package scraper

import (
	"net/url"

	"github.com/hbomb79/mediagetter/pkg/logger"
)

// Dispatcher selects the strategy for a URL based on its host. Any host
// not present in its table is handled by the fallback strategy.
type Dispatcher struct {
	hosts    map[string]Strategy
	fallback Strategy
}

func NewDispatcher(fallback Strategy) *Dispatcher {
	return &Dispatcher{hosts: make(map[string]Strategy), fallback: fallback}
}

// Register binds the strategy to each of the hosts provided. Host matching
// is exact and case-sensitive.
func (dispatcher *Dispatcher) Register(strategy Strategy, hosts ...string) *Dispatcher {
	for _, host := range hosts {
		if existing, ok := dispatcher.hosts[host]; ok {
			log.Emit(logger.WARNING, "Host %s is already routed to %s, replacing with %s\n", host, existing.Name(), strategy.Name())
		}
		dispatcher.hosts[host] = strategy
	}

	return dispatcher
}

// Route parses the URL and returns the strategy that should handle it. An
// error is only returned when the URL itself is invalid; unknown hosts are
// routed to the fallback.
func (dispatcher *Dispatcher) Route(rawURL string) (Strategy, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &InvalidURLError{URL: rawURL, Reason: err.Error()}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &InvalidURLError{URL: rawURL, Reason: "scheme must be http or https"}
	} else if u.Hostname() == "" {
		return nil, &InvalidURLError{URL: rawURL, Reason: "missing host"}
	}

	if strategy, ok := dispatcher.hosts[u.Hostname()]; ok {
		return strategy, nil
	}

	return dispatcher.fallback, nil
}

// Hosts returns the hosts which have a dedicated strategy, keyed to the
// name of that strategy.
func (dispatcher *Dispatcher) Hosts() map[string]string {
	out := make(map[string]string, len(dispatcher.hosts))
	for host, strategy := range dispatcher.hosts {
		out[host] = strategy.Name()
	}

	return out
}
