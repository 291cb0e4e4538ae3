package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"BandSentinel/internal/engine"
	"BandSentinel/internal/metrics"
	"BandSentinel/internal/model"
)

// HoldingLister lists every held position.
type HoldingLister interface {
	All() []model.HoldingState
}

// LatestReader reads the shared latest-price cache.
type LatestReader interface {
	GetLatest(ctx context.Context, symbol string) (*model.PriceObservation, error)
}

// SignalReader returns the last signal published for a symbol.
type SignalReader interface {
	LastSignal(ctx context.Context, symbol string) (*model.Signal, error)
}

type Handler struct {
	tracer   trace.Tracer
	engine   *engine.Engine
	holdings HoldingLister
	latest   LatestReader
	signals  SignalReader
}

// New builds a Handler. latest and signals may be nil when Redis is disabled.
func New(tracer trace.Tracer, eng *engine.Engine, holdings HoldingLister, latest LatestReader, signals SignalReader) *Handler {
	return &Handler{
		tracer:   tracer,
		engine:   eng,
		holdings: holdings,
		latest:   latest,
		signals:  signals,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/api/bands/:symbol", h.GetBands)
	r.GET("/api/latest/:symbol", h.GetLatest)
	r.GET("/api/signals/:symbol/last", h.GetLastSignal)
	r.GET("/api/holdings", h.GetHoldings)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "symbols": len(h.engine.Symbols())})
}

// GetBands returns the current bands, or the window fill while warming up.
func (h *Handler) GetBands(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-bands")
	defer span.End()

	symbol := model.NormalizeSymbol(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	bands, ready, err := h.engine.Bands(symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	filled, capacity := h.engine.WindowLen(symbol), h.engine.Capacity()
	if !ready {
		c.JSON(http.StatusAccepted, gin.H{
			"symbol":   symbol,
			"ready":    false,
			"filled":   filled,
			"capacity": capacity,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":   symbol,
		"ready":    true,
		"filled":   filled,
		"capacity": capacity,
		"bands":    bands,
	})
}

// GetLatest serves the newest in-memory price, falling back to the shared cache.
func (h *Handler) GetLatest(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-latest")
	defer span.End()

	symbol := model.NormalizeSymbol(c.Param("symbol"))
	span.SetAttributes(attribute.String("symbol", symbol))

	if price, ok := h.engine.Latest(symbol); ok {
		c.JSON(http.StatusOK, gin.H{"symbol": symbol, "price": price, "source": "window"})
		return
	}
	if h.latest != nil {
		obs, err := h.latest.GetLatest(ctx, symbol)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if obs != nil {
			c.JSON(http.StatusOK, gin.H{"symbol": symbol, "price": obs.Price, "timestamp": obs.Timestamp, "source": "cache"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "no price for " + symbol})
}

func (h *Handler) GetLastSignal(c *gin.Context) {
	if h.signals == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "signal bus unavailable"})
		return
	}
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-last-signal")
	defer span.End()

	symbol := model.NormalizeSymbol(c.Param("symbol"))
	sig, err := h.signals.LastSignal(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if sig == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no signal for " + symbol})
		return
	}
	c.JSON(http.StatusOK, sig)
}

func (h *Handler) GetHoldings(c *gin.Context) {
	if h.holdings == nil {
		c.JSON(http.StatusOK, gin.H{"holdings": []model.HoldingState{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"holdings": h.holdings.All()})
}
