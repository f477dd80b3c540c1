package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"universe_backend/internal/feature/instruments/domain/entity"
	"universe_backend/internal/feature/instruments/usecase"
)

type instrumentFile struct {
	path string
}

var _ usecase.InstrumentRepository = (*instrumentFile)(nil)

// NewFileRepository はJSONファイルにスナップショットを保存するInstrumentRepositoryを生成します。
func NewFileRepository(path string) *instrumentFile {
	return &instrumentFile{path: path}
}

// Load はファイルが存在しない場合は空のリストを返します。
func (r *instrumentFile) Load(ctx context.Context) ([]entity.Instrument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []entity.Instrument{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", r.path, err)
	}
	return decodeSnapshot(b)
}

// Save は一時ファイルに書き込んでからrenameで置き換えます。
func (r *instrumentFile) Save(ctx context.Context, records []entity.Instrument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := encodeSnapshot(records)
	if err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".instruments-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	return nil
}

func encodeSnapshot(records []entity.Instrument) ([]byte, error) {
	if records == nil {
		records = []entity.Instrument{}
	}
	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return append(b, '\n'), nil
}

func decodeSnapshot(b []byte) ([]entity.Instrument, error) {
	var records []entity.Instrument
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if records == nil {
		records = []entity.Instrument{}
	}
	return records, nil
}
