package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"cart-service/internal/service"
	"cart-service/internal/store"
	"cart-service/internal/util"
	"cart-service/internal/webhook"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// maxWebhookBody bounds the webhook payload read into memory
const maxWebhookBody = 256 << 10

// Handler contains HTTP handlers
type Handler struct {
	catalogService  *service.CatalogService
	checkoutService *service.CheckoutService
	webhookHandler  *webhook.Handler
	webhookSecret   string
	ready           atomic.Bool
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalogService *service.CatalogService,
	checkoutService *service.CheckoutService,
	webhookHandler *webhook.Handler,
	webhookSecret string,
) *Handler {
	return &Handler{
		catalogService:  catalogService,
		checkoutService: checkoutService,
		webhookHandler:  webhookHandler,
		webhookSecret:   webhookSecret,
	}
}

// SetReady flips the readiness check once the catalog is synchronized
func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/webhook", h.handleWebhook)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.POST("/checkout", h.createCheckout)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only after reconciliation succeeded
func (h *Handler) readinessCheck(c *gin.Context) {
	if !h.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "syncing",
			"time":   time.Now().Unix(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// handleWebhook passes the raw body and signature to the webhook handler
func (h *Handler) handleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			util.Named("api").Warn("Webhook body exceeds limit",
				zap.Int64("limit_bytes", tooLarge.Limit),
				zap.Int64("content_length", c.Request.ContentLength))
			c.String(http.StatusRequestEntityTooLarge, "Bad things happened")
			return
		}
		util.Named("api").Warn("Failed to read webhook body", zap.Error(err))
		c.String(http.StatusBadRequest, "Bad things happened")
		return
	}

	status, body := h.webhookHandler.HandleWebhook(
		c.Request.Context(),
		payload,
		c.GetHeader(webhook.SignatureHeader),
		h.webhookSecret,
	)
	c.String(status, body)
}

// listProducts returns the whole local catalog
func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalogService.ListProducts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list products",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// getProduct handles get product by ID
func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.catalogService.GetProduct(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrProductNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Product not found",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load product",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, product)
}

// createCheckout opens a hosted checkout session for a cart
func (h *Handler) createCheckout(c *gin.Context) {
	if !h.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Catalog not synchronized",
		})
		return
	}

	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.checkoutService.CreateCheckout(c.Request.Context(), &req)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, resp)
	case errors.Is(err, store.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found", "details": err.Error()})
	case errors.Is(err, service.ErrNotPurchasable), errors.Is(err, service.ErrInsufficientStock):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart cannot be checked out", "details": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create checkout session", "details": err.Error()})
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
