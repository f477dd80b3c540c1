package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"universe_backend/internal/feature/widgets/domain"
	"universe_backend/internal/feature/widgets/domain/entity"
	"universe_backend/internal/feature/widgets/transport/http/dto"
	"universe_backend/internal/feature/widgets/usecase"
)

// WidgetProvider はウィジェット用ペイロードを取得するインターフェースです。
type WidgetProvider interface {
	FetchDisplayPayload(ctx context.Context, key string) (entity.Payload, error)
}

// WidgetHandler はサイドバーのウィジェット用エンドポイントを処理します。
type WidgetHandler struct {
	provider WidgetProvider
}

// NewWidgetHandler はWidgetHandlerを生成します。
func NewWidgetHandler(p WidgetProvider) *WidgetHandler {
	return &WidgetHandler{provider: p}
}

// Index は GET /widgets/index?timespan=1D を処理し、指数の価格系列を返します。
func (h *WidgetHandler) Index(c *gin.Context) {
	timespan := c.DefaultQuery("timespan", entity.DefaultTimespan)
	h.serve(c, usecase.IndexKey(timespan), "invalid timespan")
}

// Social は GET /widgets/social?subreddit=finanzen を処理し、トップ投稿を返します。
func (h *WidgetHandler) Social(c *gin.Context) {
	subreddit := c.Query("subreddit")
	if subreddit == "" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "subreddit is required"})
		return
	}
	h.serve(c, usecase.SocialKey(subreddit), "invalid subreddit")
}

func (h *WidgetHandler) serve(c *gin.Context, key, invalidMsg string) {
	payload, err := h.provider.FetchDisplayPayload(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidKey) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: invalidMsg})
			return
		}
		slog.Error("widget payload failed", "key", key, "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
		return
	}
	// フォールバックはブラウザにキャッシュさせない
	if payload.Fallback {
		c.Header("Cache-Control", "no-store")
	} else {
		c.Header("Cache-Control", "public, max-age=60")
	}
	c.JSON(http.StatusOK, payload)
}
