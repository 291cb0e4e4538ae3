package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"BandSentinel/internal/model"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Dial(context.Background(), mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestLatestPrices_SetGet(t *testing.T) {
	mr, client := newTestClient(t)
	c := NewLatestPrices(client, time.Minute)
	ctx := context.Background()

	got, err := c.GetLatest(ctx, "AAPL")
	if err != nil || got != nil {
		t.Fatalf("expected cache miss, got %+v err=%v", got, err)
	}

	ts := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)
	if err := c.SetLatest(ctx, model.PriceObservation{Symbol: "AAPL", Price: 194.2, Timestamp: ts}); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err = c.GetLatest(ctx, "aapl")
	if err != nil || got == nil {
		t.Fatalf("expected hit, got %+v err=%v", got, err)
	}
	if got.Price != 194.2 || !got.Timestamp.Equal(ts) {
		t.Errorf("unexpected cached value %+v", got)
	}

	mr.FastForward(2 * time.Minute)
	if got, _ := c.GetLatest(ctx, "AAPL"); got != nil {
		t.Errorf("expected entry to expire, got %+v", got)
	}
}

func TestSignalPublisher_Notify(t *testing.T) {
	_, client := newTestClient(t)
	p := NewSignalPublisher(client, "signals")
	ctx := context.Background()

	sub := client.Subscribe(ctx, "signals")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	sig := model.Signal{Symbol: "TSLA", Kind: model.SignalSell, CurrentPrice: 260, Trigger: 255, Timestamp: time.Unix(0, 0).UTC()}
	if err := p.Notify(ctx, sig); err != nil {
		t.Fatalf("notify: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		if msg.Channel != "signals" {
			t.Errorf("unexpected channel %s", msg.Channel)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published signal")
	}

	last, err := p.LastSignal(ctx, "TSLA")
	if err != nil || last == nil {
		t.Fatalf("expected last signal, got %+v err=%v", last, err)
	}
	if last.Kind != model.SignalSell || last.Trigger != 255 {
		t.Errorf("unexpected last signal %+v", last)
	}
}
