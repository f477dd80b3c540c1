package yahoo

import (
	"hash/fnv"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"universe_backend/internal/feature/widgets/domain/entity"
)

const (
	fallbackLevel  = 6100.0
	fallbackPoints = 30
)

// Fallback は上流が利用できない場合の系列を生成します。
// 同じ期間・同じ日付なら常に同じ系列になります。
func (c *chartClient) Fallback(timespan string, now time.Time) any {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	r := seeded(c.symbol + ":" + timespan + ":" + today.Format(entity.DateLayoutDay))

	price := decimal.NewFromFloat(fallbackLevel + (r.Float64()-0.5)*50)
	change := decimal.NewFromFloat((r.Float64() - 0.5) * 50)
	pct := decimal.NewFromFloat((r.Float64() - 0.5) * 2)

	history := make([]entity.SeriesPoint, fallbackPoints)
	for i := range history {
		t := today.Add(-time.Duration(fallbackPoints-1-i) * day)
		v := price.Add(decimal.NewFromFloat((r.Float64() - 0.5) * 200))
		history[i] = entity.SeriesPoint{
			Time:  t.Format(time.RFC3339),
			Date:  t.Format(entity.DateLayoutDay),
			Value: round(v),
		}
	}
	// 最新の点は現在値に揃える
	history[fallbackPoints-1].Value = round(price)

	return entity.IndexSeries{
		Symbol:        c.symbol,
		Timespan:      timespan,
		Price:         round(price),
		Change:        round(change),
		ChangePercent: round(pct),
		History:       history,
	}
}

func seeded(key string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(key))
	seed := h.Sum64()
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
