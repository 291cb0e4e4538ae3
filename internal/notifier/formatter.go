package notifier

import (
	"fmt"
	"html"
	"strings"

	"BandSentinel/internal/model"
)

// FormatPlain renders a signal as a single console line.
func FormatPlain(sig model.Signal) string {
	switch sig.Kind {
	case model.SignalBuy:
		return fmt.Sprintf("Buy signal for %s (Price hit lower band) price=%.2f lower=%.2f", sig.Symbol, sig.CurrentPrice, sig.Trigger)
	case model.SignalSell:
		return fmt.Sprintf("Sell signal for %s (Price hit upper band) price=%.2f upper=%.2f", sig.Symbol, sig.CurrentPrice, sig.Trigger)
	case model.SignalStopLoss:
		return fmt.Sprintf("Stop-loss triggered for %s price=%.2f threshold=%.2f", sig.Symbol, sig.CurrentPrice, sig.Trigger)
	default:
		return fmt.Sprintf("No signal for %s price=%.2f", sig.Symbol, sig.CurrentPrice)
	}
}

// FormatSignal formats a signal into a Telegram HTML message.
func FormatSignal(sig model.Signal) string {
	sig.Symbol = html.EscapeString(sig.Symbol)
	var b strings.Builder
	switch sig.Kind {
	case model.SignalBuy:
		b.WriteString(fmt.Sprintf("🟢 <b>BUY %s</b>\n", sig.Symbol))
		b.WriteString(fmt.Sprintf("Price %.2f below lower band %.2f\n", sig.CurrentPrice, sig.Trigger))
	case model.SignalSell:
		b.WriteString(fmt.Sprintf("🔴 <b>SELL %s</b>\n", sig.Symbol))
		b.WriteString(fmt.Sprintf("Price %.2f above upper band %.2f\n", sig.CurrentPrice, sig.Trigger))
	case model.SignalStopLoss:
		b.WriteString(fmt.Sprintf("⛔ <b>STOP-LOSS %s</b>\n", sig.Symbol))
		b.WriteString(fmt.Sprintf("Price %.2f at or below threshold %.2f\n", sig.CurrentPrice, sig.Trigger))
	default:
		b.WriteString(fmt.Sprintf("%s: no signal (price %.2f)\n", sig.Symbol, sig.CurrentPrice))
	}
	b.WriteString(sig.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	return b.String()
}

// FormatBands formats the current bands of a symbol.
func FormatBands(symbol string, price float64, bands *model.BandSet, filled, capacity int) string {
	symbol = html.EscapeString(symbol)
	if bands == nil {
		return fmt.Sprintf("%s: warming up (%d/%d observations)", symbol, filled, capacity)
	}
	return fmt.Sprintf("📊 <b>%s</b>\nPrice: %.2f\nSMA: %.2f\nUpper: %.2f\nLower: %.2f",
		symbol, price, bands.SMA, bands.Upper, bands.Lower)
}

// FormatHoldings lists held symbols.
func FormatHoldings(holdings []model.HoldingState) string {
	if len(holdings) == 0 {
		return "📦 No holdings"
	}
	var b strings.Builder
	b.WriteString("📦 <b>Holdings</b>\n")
	for _, h := range holdings {
		sym := html.EscapeString(h.Symbol)
		if h.EntryPrice != nil {
			b.WriteString(fmt.Sprintf("  %s @ %.2f\n", sym, *h.EntryPrice))
		} else {
			b.WriteString(fmt.Sprintf("  %s (no entry price)\n", sym))
		}
	}
	return b.String()
}
