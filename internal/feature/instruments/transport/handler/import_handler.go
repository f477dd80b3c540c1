package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"universe_backend/internal/feature/instruments/domain/entity"
	"universe_backend/internal/feature/instruments/transport/http/dto"
	"universe_backend/internal/feature/instruments/usecase"
)

// ImportUsecase はスナップショット取り込みのユースケースインターフェースを定義します。
type ImportUsecase interface {
	Import(ctx context.Context, r io.Reader, format entity.Format, dryRun bool) (entity.ImportReport, error)
}

// ImportHandler はスナップショットのアップロードを処理します。
type ImportHandler struct {
	uc ImportUsecase
}

// NewImportHandler は指定されたusecaseでImportHandlerの新しいインスタンスを生成します。
func NewImportHandler(uc ImportUsecase) *ImportHandler {
	return &ImportHandler{uc: uc}
}

// Import はmultipartのfileフィールドで受け取ったスナップショットを取り込み、結果を返します。
// formatを省略するとファイル名の拡張子、それも無ければ内容から判定します。
//
// エンドポイント例:
// POST /imports (file=@universe.csv, format=csv, dryRun=true)
func (h *ImportHandler) Import(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "file is required"})
		return
	}

	format, err := usecase.ParseFormat(c.PostForm("format"))
	if err != nil {
		writeError(c, err)
		return
	}
	if format == entity.FormatAuto {
		format = usecase.FormatFromFilename(fh.Filename)
	}

	dryRun := false
	if v := c.PostForm("dryRun"); v != "" {
		dryRun, err = strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid dryRun value"})
			return
		}
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "cannot read uploaded file"})
		return
	}
	defer f.Close()

	report, err := h.uc.Import(c.Request.Context(), f, format, dryRun)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromImportReport(report))
}
