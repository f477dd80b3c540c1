package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	instrumenthandler "universe_backend/internal/feature/instruments/transport/handler"
	widgethandler "universe_backend/internal/feature/widgets/transport/handler"
	"universe_backend/internal/platform/config"
	"universe_backend/internal/platform/http/handler"
	"universe_backend/internal/platform/metrics"
)

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Instruments *instrumenthandler.InstrumentHandler
	Imports     *instrumenthandler.ImportHandler
	Widgets     *widgethandler.WidgetHandler
	Ready       handler.SnapshotProbe
}

func NewRouter(cfg config.ServerConfig, m *metrics.Metrics, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	if m != nil {
		r.Use(m.Middleware())
	}
	// ブラウザから直接呼ばれる場合のみ許可するオリジンを設定
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: cfg.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	// 上限内のファイルはメモリに収まる。上限自体の強制は limitBody が行う
	if cfg.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = cfg.MaxUploadBytes
	}

	// 導通確認用
	r.GET("/healthz", handler.Health)
	r.HEAD("/healthz", handler.Health)
	r.GET("/readyz", handler.Ready(h.Ready))
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// 銘柄一覧
	r.GET("/instruments", h.Instruments.List)
	r.GET("/instruments/changes", h.Instruments.Changes)
	r.GET("/instruments/:id", h.Instruments.Get)

	// スナップショット取り込み
	r.POST("/imports", limitBody(cfg.MaxUploadBytes), h.Imports.Import)

	// サイドバー用ウィジェット
	r.GET("/widgets/index", h.Widgets.Index)
	r.GET("/widgets/social", h.Widgets.Social)

	return r
}

// limitBody はリクエストボディを limit バイトまでに制限します。limit が0以下なら無制限です。
// Content-Length で超過が分かる場合は即座に413を返し、それ以外は読み込み中に
// *http.MaxBytesError として後続のハンドラーに伝わります。
func limitBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// requestLogger はリクエストごとに1行の構造化ログを出力します。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP())
	}
}
