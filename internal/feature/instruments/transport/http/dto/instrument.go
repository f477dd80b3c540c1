// Package dto はinstrumentsフィーチャーのHTTPレスポンス型を定義します。
package dto

import (
	"time"

	"universe_backend/internal/feature/instruments/domain/entity"
)

// ErrorResponse はエラー時のレスポンスDTOです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// InstrumentResponse は1銘柄のレスポンスDTOです。
type InstrumentResponse struct {
	ID         uint   `json:"id"`
	Identifier string `json:"identifier"` // ISIN
	Name       string `json:"name"`       // 銘柄名
	AddedOn    string `json:"addedOn"`    // 追加日 (YYYY-MM-DD)
	Removed    bool   `json:"removed"`    // 取扱終了フラグ
}

// ListResponse は一覧取得のレスポンスDTOです。
type ListResponse struct {
	Items      []InstrumentResponse `json:"items"`
	Pagination entity.Pagination    `json:"pagination"`
}

// ChangesResponse は指定日の追加・削除銘柄のレスポンスDTOです。
type ChangesResponse struct {
	Date    string               `json:"date"`
	Added   []InstrumentResponse `json:"added"`
	Removed []InstrumentResponse `json:"removed"`
}

// ImportReportResponse はインポート結果のレスポンスDTOです。
type ImportReportResponse struct {
	RunID      string               `json:"runId"`
	ImportedAt time.Time            `json:"importedAt"`
	DryRun     bool                 `json:"dryRun"`
	Total      int                  `json:"total"`
	Added      []InstrumentResponse `json:"added"`
	Removed    []InstrumentResponse `json:"removed"`
	Reinstated []InstrumentResponse `json:"reinstated"`
	Duplicates []string             `json:"duplicates"`

	// 入力が0行で既存銘柄がすべて削除扱いになった場合のみtrue
	EmptySnapshot bool `json:"emptySnapshot,omitempty"`
}

// FromInstrument はエンティティをレスポンスDTOに変換します。
func FromInstrument(e entity.Instrument) InstrumentResponse {
	return InstrumentResponse{
		ID:         e.ID,
		Identifier: e.Identifier,
		Name:       e.Name,
		AddedOn:    e.AddedOn,
		Removed:    e.Removed,
	}
}

// FromInstruments はnilの場合も空配列を返します。
func FromInstruments(es []entity.Instrument) []InstrumentResponse {
	out := make([]InstrumentResponse, 0, len(es))
	for _, e := range es {
		out = append(out, FromInstrument(e))
	}
	return out
}

func FromPage(p entity.Page) ListResponse {
	return ListResponse{Items: FromInstruments(p.Items), Pagination: p.Pagination}
}

func FromChanges(c entity.Changes) ChangesResponse {
	return ChangesResponse{Date: c.Date, Added: FromInstruments(c.Added), Removed: FromInstruments(c.Removed)}
}

func FromImportReport(r entity.ImportReport) ImportReportResponse {
	dups := r.Duplicates
	if dups == nil {
		dups = []string{}
	}
	return ImportReportResponse{
		RunID:         r.RunID,
		ImportedAt:    r.ImportedAt,
		DryRun:        r.DryRun,
		Total:         r.Total,
		Added:         FromInstruments(r.Added),
		Removed:       FromInstruments(r.Removed),
		Reinstated:    FromInstruments(r.Reinstated),
		Duplicates:    dups,
		EmptySnapshot: r.EmptySnapshot,
	}
}
