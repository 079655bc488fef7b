// Package api exposes the webhook entrypoint that turns alert payloads
// into engine signals.
package api

import (
	"context"
	"net/http"
	"time"

	"trade-executor/internal/engine"

	"github.com/gin-gonic/gin"
)

// SignalHandler runs one signal through the execution pipeline.
type SignalHandler interface {
	HandleSignal(ctx context.Context, sig engine.Signal) (engine.Outcome, error)
}

// Server wires HTTP endpoints around the signal pipeline.
type Server struct {
	Router  *gin.Engine
	handler SignalHandler
	meta    SystemMeta
}

// SystemMeta describes runtime status exposed on /health.
type SystemMeta struct {
	Venue   string
	Demo    bool
	Testnet bool
	Version string
}

func NewServer(handler SignalHandler, webhookToken string, meta SystemMeta) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())
	r.Use(RateLimitMiddleware())

	s := &Server{Router: r, handler: handler, meta: meta}
	r.GET("/health", s.health)
	r.POST("/webhook", TokenMiddleware(webhookToken), s.webhook)
	return s
}

// webhookPayload mirrors the alert-message JSON emitted by chart alerts.
type webhookPayload struct {
	Action     string  `json:"action" binding:"required"`
	Symbol     string  `json:"symbol" binding:"required"`
	Price      float64 `json:"price"`
	Strategy   string  `json:"strategy"`
	Interval   string  `json:"interval"`
	StopLoss   float64 `json:"stopLoss"`
	TakeProfit float64 `json:"takeProfit"`
}

func (s *Server) webhook(c *gin.Context) {
	var p webhookPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dir, err := engine.ParseDirection(p.Action)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := s.handler.HandleSignal(c.Request.Context(), engine.Signal{
		Strategy:   p.Strategy,
		Symbol:     p.Symbol,
		Direction:  dir,
		Price:      p.Price,
		Interval:   p.Interval,
		StopLoss:   p.StopLoss,
		TakeProfit: p.TakeProfit,
		At:         time.Now(),
	})

	switch out.Status {
	case engine.StatusPlaced:
		c.JSON(http.StatusOK, gin.H{"status": out.Status, "orderId": out.OrderID, "qty": out.Qty})
	case engine.StatusClosed:
		c.JSON(http.StatusOK, gin.H{"status": out.Status})
	case engine.StatusRejected:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"status": out.Status, "reason": out.Reason})
	default:
		reason := out.Reason
		if reason == "" && err != nil {
			reason = err.Error()
		}
		c.JSON(http.StatusBadGateway, gin.H{"status": engine.StatusFailed, "reason": reason})
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"venue":   s.meta.Venue,
		"demo":    s.meta.Demo,
		"testnet": s.meta.Testnet,
		"version": s.meta.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Run serves until the listener fails. Shutdown is handled by the caller
// via http.Server.
func (s *Server) Run(addr string) error {
	return s.Router.Run(addr)
}
