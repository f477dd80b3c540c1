package handler_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"universe_backend/internal/feature/instruments/domain"
	"universe_backend/internal/feature/instruments/domain/entity"
	"universe_backend/internal/feature/instruments/transport/handler"
)

// mockImportUsecase はImportUsecaseインターフェースのモック実装です。
type mockImportUsecase struct {
	ImportFunc func(ctx context.Context, r io.Reader, format entity.Format, dryRun bool) (entity.ImportReport, error)
}

func (m *mockImportUsecase) Import(ctx context.Context, r io.Reader, format entity.Format, dryRun bool) (entity.ImportReport, error) {
	return m.ImportFunc(ctx, r, format, dryRun)
}

// multipartBody はfileフィールドと追加フィールドを持つmultipartボディを生成します。
func multipartBody(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// TestImportHandler_Import はアップロードの受け付けとエラー変換を検証します。
func TestImportHandler_Import(t *testing.T) {
	gin.SetMode(gin.TestMode)

	importedAt := time.Date(2025, 9, 26, 6, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		filename       string
		fields         map[string]string
		mockImport     func(ctx context.Context, r io.Reader, format entity.Format, dryRun bool) (entity.ImportReport, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:     "success: format from filename",
			filename: "universe.csv",
			fields:   map[string]string{"dryRun": "true"},
			mockImport: func(ctx context.Context, r io.Reader, format entity.Format, dryRun bool) (entity.ImportReport, error) {
				b, _ := io.ReadAll(r)
				assert.Equal(t, "name,isin\nApple,US0378331005\n", string(b))
				assert.Equal(t, entity.FormatCSV, format)
				assert.True(t, dryRun)
				return entity.ImportReport{
					RunID: "run-1", ImportedAt: importedAt, DryRun: true, Total: 1,
					Added: []entity.Instrument{apple},
				}, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody: `{"runId":"run-1","importedAt":"2025-09-26T06:00:00Z","dryRun":true,"total":1,` +
				`"added":[{"id":1,"identifier":"US0378331005","name":"Apple","addedOn":"2025-09-01","removed":false}],` +
				`"removed":[],"reinstated":[],"duplicates":[]}`,
		},
		{
			name:     "success: explicit format wins over filename",
			filename: "upload.bin",
			fields:   map[string]string{"format": "json"},
			mockImport: func(ctx context.Context, r io.Reader, format entity.Format, dryRun bool) (entity.ImportReport, error) {
				assert.Equal(t, entity.FormatJSON, format)
				assert.False(t, dryRun)
				return entity.ImportReport{RunID: "run-2", ImportedAt: importedAt}, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody: `{"runId":"run-2","importedAt":"2025-09-26T06:00:00Z","dryRun":false,"total":0,` +
				`"added":[],"removed":[],"reinstated":[],"duplicates":[]}`,
		},
		{
			name:           "error: missing file",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"file is required"}`,
		},
		{
			name:           "error: unknown format",
			filename:       "universe.csv",
			fields:         map[string]string{"format": "xlsx"},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"malformed input: unknown format \"xlsx\""}`,
		},
		{
			name:           "error: invalid dryRun",
			filename:       "universe.csv",
			fields:         map[string]string{"dryRun": "maybe"},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid dryRun value"}`,
		},
		{
			name:     "error: malformed snapshot",
			filename: "universe.csv",
			mockImport: func(ctx context.Context, r io.Reader, format entity.Format, dryRun bool) (entity.ImportReport, error) {
				return entity.ImportReport{}, fmt.Errorf("%w: wrong number of fields", domain.ErrMalformedInput)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"malformed input: wrong number of fields"}`,
		},
		{
			name:     "error: rejected duplicates",
			filename: "universe.csv",
			mockImport: func(ctx context.Context, r io.Reader, format entity.Format, dryRun bool) (entity.ImportReport, error) {
				return entity.ImportReport{}, fmt.Errorf("%w: %q", domain.ErrDuplicateIdentifier, "US0378331005")
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"error":"duplicate identifier in snapshot: \"US0378331005\""}`,
		},
		{
			name:     "error: store failure",
			filename: "universe.csv",
			mockImport: func(ctx context.Context, r io.Reader, format entity.Format, dryRun bool) (entity.ImportReport, error) {
				return entity.ImportReport{}, errors.New("save snapshot: read-only file system")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockImportUsecase{ImportFunc: tt.mockImport}
			if mock.ImportFunc == nil {
				mock.ImportFunc = func(ctx context.Context, r io.Reader, format entity.Format, dryRun bool) (entity.ImportReport, error) {
					t.Fatal("usecase must not be called")
					return entity.ImportReport{}, nil
				}
			}
			h := handler.NewImportHandler(mock)
			router := gin.New()
			router.POST("/imports", h.Import)

			body, contentType := multipartBody(t, tt.filename, "name,isin\nApple,US0378331005\n", tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/imports", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

// TestImportHandler_BodyTooLarge はボディ上限を超えたアップロードが413になることを検証します。
func TestImportHandler_BodyTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := handler.NewImportHandler(&mockImportUsecase{
		ImportFunc: func(ctx context.Context, r io.Reader, format entity.Format, dryRun bool) (entity.ImportReport, error) {
			t.Fatal("usecase must not be called")
			return entity.ImportReport{}, nil
		},
	})
	router := gin.New()
	router.POST("/imports", func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1024)
		c.Next()
	}, h.Import)

	content := "name,isin\n" + strings.Repeat("Apple,US0378331005\n", 1000)
	body, contentType := multipartBody(t, "universe.csv", content, nil)
	req := httptest.NewRequest(http.MethodPost, "/imports", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.JSONEq(t, `{"error":"file too large"}`, w.Body.String())
}
