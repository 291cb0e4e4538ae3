package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"BandSentinel/internal/model"
)

// PriceSource fetches the latest trade price for a set of symbols.
// Symbols the source has no data for are simply absent from the result.
type PriceSource interface {
	FetchLatest(ctx context.Context, symbols []string) ([]model.PriceObservation, error)
	Name() string
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}
