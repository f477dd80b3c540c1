package adapters

import (
	"context"

	"gorm.io/gorm"

	"universe_backend/internal/feature/instruments/domain/entity"
	"universe_backend/internal/feature/instruments/usecase"
)

type instrumentGorm struct {
	db *gorm.DB
}

var _ usecase.InstrumentRepository = (*instrumentGorm)(nil)

// NewInstrumentRepository はgormで永続化するInstrumentRepositoryを生成します。
func NewInstrumentRepository(db *gorm.DB) *instrumentGorm {
	return &instrumentGorm{db: db}
}

// InstrumentModel は1スナップショット内の1レコードを表します。
// 同じ識別子が複数回現れる場合があるため、主キーはスナップショット内の位置です。
type InstrumentModel struct {
	Position     int    `gorm:"primaryKey;autoIncrement:false"`
	InstrumentID uint   `gorm:"not null;index"`
	Identifier   string `gorm:"size:32;not null;index"`
	Name         string `gorm:"size:255;not null;default:''"`
	AddedOn      string `gorm:"size:10;not null"`
	Removed      bool   `gorm:"not null;default:false"`
}

func (InstrumentModel) TableName() string {
	return "instruments"
}

const saveBatchSize = 500

func (r *instrumentGorm) Load(ctx context.Context) ([]entity.Instrument, error) {
	var rows []InstrumentModel
	if err := r.db.WithContext(ctx).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Instrument, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.Instrument{
			ID:         m.InstrumentID,
			Identifier: m.Identifier,
			Name:       m.Name,
			AddedOn:    m.AddedOn,
			Removed:    m.Removed,
		})
	}
	return out, nil
}

// Save は既存の行を削除して新しいスナップショットを書き込みます。1トランザクションで行うため、読み手は常に完全なスナップショットを見ます。
func (r *instrumentGorm) Save(ctx context.Context, records []entity.Instrument) error {
	ms := make([]InstrumentModel, 0, len(records))
	for i, e := range records {
		ms = append(ms, InstrumentModel{
			Position:     i + 1,
			InstrumentID: e.ID,
			Identifier:   e.Identifier,
			Name:         e.Name,
			AddedOn:      e.AddedOn,
			Removed:      e.Removed,
		})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&InstrumentModel{}).Error; err != nil {
			return err
		}
		if len(ms) == 0 {
			return nil
		}
		return tx.CreateInBatches(&ms, saveBatchSize).Error
	})
}
