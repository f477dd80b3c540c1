package cache

import (
	"time"
)

// TimeUntilNext は now から次に loc の hour 時ちょうどになるまでの期間を返します。
// 日次インポートの直後にキャッシュが切れるようTTLの計算に使います。
func TimeUntilNext(now time.Time, hour int, loc *time.Location) time.Duration {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, loc)

	// 今日の指定時刻を既に過ぎている場合は翌日
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	return next.Sub(now)
}
