// Package handler はプラットフォームレベルのエンドポイント用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SnapshotProbe はスナップショットが読み込めるかを確認します。
type SnapshotProbe interface {
	Ready(ctx context.Context) error
}

// readyTimeout はレディネス確認1回あたりの上限です。
const readyTimeout = 3 * time.Second

// Health はサービスの生存確認用の /healthz エンドポイントを処理します。
// ストアには触れないため、ストア障害時もプロセスが生きていれば200を返します。
func Health(c *gin.Context) {
	// 明示的にキャッシュを防止
	c.Header("Cache-Control", "no-store")

	switch c.Request.Method {
	case http.MethodHead:
		c.Status(http.StatusOK)
	case http.MethodOptions:
		c.Status(http.StatusNoContent)
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// Ready は /readyz エンドポイントのハンドラーを返します。
// スナップショットを読み込めない場合は503を返し、ロードバランサーから外されます。
func Ready(probe SnapshotProbe) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")

		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()

		if err := probe.Ready(ctx); err != nil {
			slog.Warn("readiness check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "snapshot": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "snapshot": "ok"})
	}
}
