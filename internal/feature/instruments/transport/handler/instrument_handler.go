// Package handler はinstrumentsフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"

	"universe_backend/internal/feature/instruments/domain"
	"universe_backend/internal/feature/instruments/domain/entity"
	"universe_backend/internal/feature/instruments/transport/http/dto"
)

// InstrumentUsecase は銘柄一覧参照のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type InstrumentUsecase interface {
	List(ctx context.Context, opts entity.ListOptions) (entity.Page, error)
	Get(ctx context.Context, id uint) (entity.Instrument, error)
	Changes(ctx context.Context, date string) (entity.Changes, error)
}

// InstrumentHandler は銘柄一覧のHTTPリクエストを処理します。
type InstrumentHandler struct {
	uc InstrumentUsecase
}

// NewInstrumentHandler は指定されたusecaseでInstrumentHandlerの新しいインスタンスを生成します。
func NewInstrumentHandler(uc InstrumentUsecase) *InstrumentHandler {
	return &InstrumentHandler{uc: uc}
}

// listParams はGET /instrumentsのクエリパラメータです。未指定の項目はnilのままです。
type listParams struct {
	Page   *int
	Limit  *int
	Search *string
	SortBy *string
}

// List はページ番号・件数・検索語・ソート順を受け取り、銘柄一覧をJSONで返します。
//
// エンドポイント例:
// GET /instruments?page=1&limit=24&search=tesla&sortBy=newest
func (h *InstrumentHandler) List(c *gin.Context) {
	var p listParams
	q := c.Request.URL.Query()
	for name, dest := range map[string]any{
		"page":   &p.Page,
		"limit":  &p.Limit,
		"search": &p.Search,
		"sortBy": &p.SortBy,
	} {
		if err := runtime.BindQueryParameter("form", true, false, name, q, dest); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid query parameter " + name})
			return
		}
	}

	opts := entity.ListOptions{}
	if p.Page != nil {
		opts.Page = *p.Page
	}
	if p.Limit != nil {
		opts.Limit = *p.Limit
	}
	if p.Search != nil {
		opts.Search = *p.Search
	}
	if p.SortBy != nil {
		opts.SortBy = entity.SortBy(*p.SortBy)
	}

	page, err := h.uc.List(c.Request.Context(), opts)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromPage(page))
}

// Get はIDで1銘柄を返します。存在しない場合は404を返します。
//
// エンドポイント例:
// GET /instruments/42
func (h *InstrumentHandler) Get(c *gin.Context) {
	var id int
	err := runtime.BindStyledParameterWithOptions("simple", "id", c.Param("id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid instrument id"})
		return
	}
	if id < 1 {
		writeError(c, domain.ErrInstrumentNotFound)
		return
	}

	inst, err := h.uc.Get(c.Request.Context(), uint(id))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromInstrument(inst))
}

// Changes は指定日に追加された銘柄と取扱終了の銘柄を返します。dateを省略すると当日です。
//
// エンドポイント例:
// GET /instruments/changes?date=2025-09-26
func (h *InstrumentHandler) Changes(c *gin.Context) {
	changes, err := h.uc.Changes(c.Request.Context(), c.Query("date"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromChanges(changes))
}

// writeError はドメインエラーをHTTPステータスに変換して書き込みます。
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInstrumentNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: domain.ErrInstrumentNotFound.Error()})
	case errors.Is(err, domain.ErrInvalidSort),
		errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrMalformedInput):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrDuplicateIdentifier):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	default:
		slog.Error("instrument request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}
}
