package bot

import (
	"context"
	"errors"
	"net/http"

	"billsplit/internal/telegram"
	"billsplit/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	dispatcher *Dispatcher
	metrics    *telemetry.Metrics
	log        *zap.Logger
}

func NewHandler(dispatcher *Dispatcher, metrics *telemetry.Metrics, log *zap.Logger) *Handler {
	return &Handler{dispatcher: dispatcher, metrics: metrics, log: log}
}

// Webhook acknowledges Telegram immediately and leaves the work to the dispatcher
func (h *Handler) Webhook(c *gin.Context) {
	if c.ContentType() != gin.MIMEJSON {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "content type must be application/json"})
		return
	}

	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}
	if update.UpdateID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing update_id"})
		return
	}

	h.metrics.UpdatesReceived.Add(c.Request.Context(), 1)

	if err := h.dispatcher.Dispatch(&update); err != nil {
		if errors.Is(err, ErrQueueFull) {
			h.log.Warn("update queue full, asking telegram to retry", zap.Int64("update_id", update.UpdateID))
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// WebhookSetter registers the bot webhook with Telegram
type WebhookSetter interface {
	SetWebhook(ctx context.Context, url, secret string) error
}

type AdminHandler struct {
	tg      WebhookSetter
	baseURL string
	secret  string
}

func NewAdminHandler(tg WebhookSetter, baseURL, secret string) *AdminHandler {
	return &AdminHandler{tg: tg, baseURL: baseURL, secret: secret}
}

// RegisterWebhook points Telegram at <WEBHOOK_URL>/webhook
func (h *AdminHandler) RegisterWebhook(c *gin.Context) {
	if h.baseURL == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "WEBHOOK_URL not configured"})
		return
	}

	url := h.baseURL + "/webhook"
	if err := h.tg.SetWebhook(c.Request.Context(), url, h.secret); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"webhook": url})
}
