package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"BandSentinel/internal/model"
)

// DefaultAlpacaDataURL is the market data endpoint for both paper and live accounts.
const DefaultAlpacaDataURL = "https://data.alpaca.markets"

// AlpacaSource implements PriceSource using the Alpaca market data REST API.
type AlpacaSource struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Feed      string // "iex" or "sip"; empty lets the API choose
	Client    *http.Client
}

// NewAlpacaSource creates a new source with optional proxy support.
func NewAlpacaSource(baseURL, apiKey, apiSecret, proxyURL string) *AlpacaSource {
	if baseURL == "" {
		baseURL = DefaultAlpacaDataURL
	}
	return &AlpacaSource{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		APIKey:    apiKey,
		APISecret: apiSecret,
		Client:    newHTTPClient(proxyURL),
	}
}

func (s *AlpacaSource) Name() string { return "alpaca" }

// alpacaTrade is the JSON shape of a single latest trade.
type alpacaTrade struct {
	Timestamp time.Time `json:"t"`
	Price     float64   `json:"p"`
	Size      float64   `json:"s"`
}

type alpacaLatestTrades struct {
	Trades map[string]alpacaTrade `json:"trades"`
}

func (s *AlpacaSource) FetchLatest(ctx context.Context, symbols []string) ([]model.PriceObservation, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("symbols", strings.Join(symbols, ","))
	if s.Feed != "" {
		q.Set("feed", s.Feed)
	}
	endpoint := fmt.Sprintf("%s/v2/stocks/trades/latest?%s", s.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("APCA-API-KEY-ID", s.APIKey)
	req.Header.Set("APCA-API-SECRET-KEY", s.APISecret)
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch latest trades: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch latest trades: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result alpacaLatestTrades
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode latest trades: %w", err)
	}

	out := make([]model.PriceObservation, 0, len(result.Trades))
	for sym, tr := range result.Trades {
		out = append(out, model.PriceObservation{Symbol: model.NormalizeSymbol(sym), Price: tr.Price, Timestamp: tr.Timestamp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}
