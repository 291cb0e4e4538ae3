package window

import (
	"errors"
	"sync"
	"testing"
	"time"

	"BandSentinel/internal/model"
)

var base = time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)

func obsAt(symbol string, i int, price float64) model.PriceObservation {
	return model.PriceObservation{Symbol: symbol, Price: price, Timestamp: base.Add(time.Duration(i) * time.Minute)}
}

func TestNewStore_InvalidCapacity(t *testing.T) {
	for _, c := range []int{0, -5} {
		if _, err := NewStore(c); !errors.Is(err, model.ErrInvalidInput) {
			t.Errorf("capacity %d: expected ErrInvalidInput, got %v", c, err)
		}
	}
}

func TestAppend_CapacityInvariant(t *testing.T) {
	const w = 5
	s, _ := NewStore(w)
	for i := 1; i <= 3*w; i++ {
		if err := s.Append(obsAt("AAPL", i, float64(i))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		n := s.Len("AAPL")
		if n > w {
			t.Fatalf("after %d appends window has %d > %d entries", i, n, w)
		}
		if i >= w && n != w {
			t.Fatalf("after %d appends expected exactly %d entries, got %d", i, w, n)
		}
	}
}

func TestSnapshot_ReadinessGating(t *testing.T) {
	const w = 4
	s, _ := NewStore(w)

	if _, _, ready := s.Snapshot("MSFT"); ready {
		t.Fatal("unknown symbol must not be ready")
	}
	for i := 1; i < w; i++ {
		_ = s.Append(obsAt("MSFT", i, float64(i)))
		if prices, _, ready := s.Snapshot("MSFT"); ready || prices != nil {
			t.Fatalf("after %d appends expected not ready, got %v", i, prices)
		}
	}
	_ = s.Append(obsAt("MSFT", w, float64(w)))
	prices, _, ready := s.Snapshot("MSFT")
	if !ready || len(prices) != w {
		t.Fatalf("expected %d ready prices, got ready=%v len=%d", w, ready, len(prices))
	}
}

func TestAppend_EvictsOldest(t *testing.T) {
	const w = 5
	s, _ := NewStore(w)
	for i := 1; i <= w+1; i++ {
		_ = s.Append(obsAt("GOOGL", i, float64(i)))
	}
	prices, _, ready := s.Snapshot("GOOGL")
	if !ready {
		t.Fatal("expected ready window")
	}
	for i, p := range prices {
		if want := float64(i + 2); p != want {
			t.Fatalf("index %d: expected %.0f, got %.0f (window=%v)", i, want, p, prices)
		}
	}
}

func TestHistory_OrderedOldestFirst(t *testing.T) {
	const w = 7
	s, _ := NewStore(w)
	for i := 1; i <= 20; i++ {
		_ = s.Append(obsAt("TSLA", i, 100+float64(i)))
	}
	hist := s.History("TSLA")
	if len(hist) != w {
		t.Fatalf("expected %d entries, got %d", w, len(hist))
	}
	for i := 1; i < len(hist); i++ {
		if hist[i].Timestamp.Before(hist[i-1].Timestamp) {
			t.Fatalf("history out of order at %d: %v before %v", i, hist[i].Timestamp, hist[i-1].Timestamp)
		}
	}
	if latest, ok := s.Latest("TSLA"); !ok || latest != 120 {
		t.Errorf("expected latest 120, got %v (ok=%v)", latest, ok)
	}
}

func TestAppend_OutOfOrderRejected(t *testing.T) {
	s, _ := NewStore(3)
	_ = s.Append(obsAt("AMZN", 5, 10))

	if err := s.Append(obsAt("AMZN", 4, 11)); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder, got %v", err)
	}
	// duplicate timestamps are kept
	if err := s.Append(obsAt("AMZN", 5, 12)); err != nil {
		t.Fatalf("duplicate timestamp should be accepted: %v", err)
	}
	if n := s.Len("AMZN"); n != 2 {
		t.Errorf("expected 2 entries, got %d", n)
	}
}

func TestAppend_InvalidInput(t *testing.T) {
	s, _ := NewStore(3)
	if err := s.Append(obsAt("", 1, 10)); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty symbol, got %v", err)
	}
	if err := s.Append(obsAt("AAPL", 1, 0)); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for zero price, got %v", err)
	}
	if s.Len("AAPL") != 0 {
		t.Error("rejected observation must not be stored")
	}
}

func TestSnapshot_VersionChangesOnMutation(t *testing.T) {
	s, _ := NewStore(2)
	_ = s.Append(obsAt("AAPL", 1, 1))
	_ = s.Append(obsAt("AAPL", 2, 2))
	_, v1, _ := s.Snapshot("AAPL")
	_, v2, _ := s.Snapshot("AAPL")
	if v1 != v2 {
		t.Fatalf("version changed without mutation: %d != %d", v1, v2)
	}
	_ = s.Append(obsAt("AAPL", 3, 3))
	_, v3, _ := s.Snapshot("AAPL")
	if v3 == v1 {
		t.Fatal("version must change after append")
	}
}

func TestLoad_KeepsNewest(t *testing.T) {
	s, _ := NewStore(3)
	var hist []model.PriceObservation
	for i := 1; i <= 6; i++ {
		hist = append(hist, obsAt("NVDA", i, float64(i)))
	}
	if err := s.Load("nvda", hist); err != nil {
		t.Fatalf("load: %v", err)
	}
	prices, _, ready := s.Snapshot("NVDA")
	if !ready || prices[0] != 4 || prices[2] != 6 {
		t.Fatalf("unexpected window after load: %v (ready=%v)", prices, ready)
	}

	if err := s.Load("NVDA", []model.PriceObservation{obsAt("AAPL", 7, 1)}); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for foreign symbol, got %v", err)
	}
}

func TestAppend_ConcurrentSymbols(t *testing.T) {
	const w = 50
	s, _ := NewStore(w)
	symbols := []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA"}

	var wg sync.WaitGroup
	for _, sym := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			for i := 1; i <= 200; i++ {
				_ = s.Append(obsAt(sym, i, float64(i)))
				if prices, _, ready := s.Snapshot(sym); ready && len(prices) != w {
					t.Errorf("%s: torn snapshot of %d entries", sym, len(prices))
				}
			}
		}(sym)
	}
	wg.Wait()

	if got := s.Symbols(); len(got) != len(symbols) {
		t.Fatalf("expected %d symbols, got %v", len(symbols), got)
	}
	for _, sym := range symbols {
		prices, _, _ := s.Snapshot(sym)
		if prices[0] != 151 || prices[w-1] != 200 {
			t.Errorf("%s: unexpected window bounds %v..%v", sym, prices[0], prices[w-1])
		}
	}
}

func TestAppend_ConcurrentSameSymbol(t *testing.T) {
	const (
		w       = 20
		writers = 8
		perW    = 100
	)
	s, _ := NewStore(w)
	if err := s.Load("AAPL", func() []model.PriceObservation {
		out := make([]model.PriceObservation, w)
		for i := range out {
			out[i] = obsAt("AAPL", 0, 1)
		}
		return out
	}()); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for g := 0; g < writers; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 1; i <= perW; i++ {
				// Writers share timestamps, so some appends lose the race
				// and are rejected as out of order.
				err := s.Append(obsAt("AAPL", i, float64(g*perW+i)))
				if err != nil && !errors.Is(err, ErrOutOfOrder) {
					t.Errorf("unexpected append error: %v", err)
				}
			}
		}(g)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perW; i++ {
				if prices, _, ready := s.Snapshot("AAPL"); !ready || len(prices) != w {
					t.Errorf("torn snapshot: ready=%v len=%d", ready, len(prices))
				}
				h := s.History("AAPL")
				if len(h) != w {
					t.Errorf("history length %d, want %d", len(h), w)
				}
				for j := 1; j < len(h); j++ {
					if h[j].Timestamp.Before(h[j-1].Timestamp) {
						t.Errorf("history out of order at %d", j)
						break
					}
				}
			}
		}()
	}
	wg.Wait()

	if s.Len("AAPL") != w {
		t.Fatalf("expected %d entries, got %d", w, s.Len("AAPL"))
	}
	_, v1, _ := s.Snapshot("AAPL")
	if err := s.Append(obsAt("AAPL", perW+1, 1)); err != nil {
		t.Fatal(err)
	}
	if _, v2, _ := s.Snapshot("AAPL"); v2 != v1+1 {
		t.Errorf("expected version to advance by one, got %d -> %d", v1, v2)
	}
}
