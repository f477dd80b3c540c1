package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"universe_backend/internal/feature/widgets/domain"
	"universe_backend/internal/feature/widgets/domain/entity"
)

// mockSource は呼び出し回数を数えるSourceのモックです。
type mockSource struct {
	FetchFunc func(ctx context.Context, param string) (any, error)
	calls     atomic.Int32
}

func (m *mockSource) Fetch(ctx context.Context, param string) (any, error) {
	m.calls.Add(1)
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, param)
	}
	return "live:" + param, nil
}

func (m *mockSource) Fallback(param string, now time.Time) any {
	return "fallback:" + param + ":" + now.Format("2006-01-02")
}

type mockLimiter struct {
	WaitFunc func(ctx context.Context) error
}

func (m *mockLimiter) Wait(ctx context.Context) error {
	if m.WaitFunc != nil {
		return m.WaitFunc(ctx)
	}
	return nil
}

type mockRecorder struct {
	mu        sync.Mutex
	Fallbacks []string
}

func (m *mockRecorder) WidgetFallback(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fallbacks = append(m.Fallbacks, source)
}

var fixedNow = time.Date(2025, 9, 26, 10, 0, 0, 0, time.UTC)

func newTestProvider(src Source, limiter Limiter, rec Recorder) *provider {
	p := NewProvider(limiter, rec, time.Second, 8)
	p.now = func() time.Time { return fixedNow }
	p.Register(entity.KindIndex, src, time.Minute)
	return p
}

func TestParseKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key       string
		wantKind  string
		wantParam string
		wantErr   bool
	}{
		{key: "index:1D", wantKind: "index", wantParam: "1D"},
		{key: IndexKey("ytd"), wantKind: "index", wantParam: "YTD"},
		{key: SocialKey("Finanzen"), wantKind: "social", wantParam: "finanzen"},
		{key: "index:3W", wantErr: true},
		{key: "social:a", wantErr: true},
		{key: "social:../etc", wantErr: true},
		{key: "weather:berlin", wantErr: true},
		{key: "index", wantErr: true},
		{key: "index:", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()

			kind, param, err := ParseKey(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantParam, param)
		})
	}
}

// TestProvider_CachesLivePayload は成功したペイロードがキャッシュされることを検証します。
func TestProvider_CachesLivePayload(t *testing.T) {
	t.Parallel()

	src := &mockSource{}
	p := newTestProvider(src, nil, nil)

	first, err := p.FetchDisplayPayload(context.Background(), "index:1D")
	require.NoError(t, err)
	second, err := p.FetchDisplayPayload(context.Background(), "index:1D")
	require.NoError(t, err)

	assert.Equal(t, entity.Payload{Key: "index:1D", Source: "index", FetchedAt: fixedNow, Body: "live:1D"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), src.calls.Load())
}

// TestProvider_FallbackOnUpstreamError は上流の失敗時にエラーではなくフォールバックを返すことを検証します。
func TestProvider_FallbackOnUpstreamError(t *testing.T) {
	t.Parallel()

	src := &mockSource{FetchFunc: func(ctx context.Context, param string) (any, error) {
		return nil, errors.New("upstream 503")
	}}
	rec := &mockRecorder{}
	p := newTestProvider(src, nil, rec)

	got, err := p.FetchDisplayPayload(context.Background(), "index:5D")
	require.NoError(t, err)
	assert.True(t, got.Fallback)
	assert.Equal(t, "fallback:5D:2025-09-26", got.Body)
	assert.Equal(t, []string{"index"}, rec.Fallbacks)

	// フォールバックはキャッシュされず、次のリクエストで再試行される
	_, err = p.FetchDisplayPayload(context.Background(), "index:5D")
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

// TestProvider_FallbackOnRateLimit はリミッターが許可しない場合に上流を呼ばないことを検証します。
func TestProvider_FallbackOnRateLimit(t *testing.T) {
	t.Parallel()

	src := &mockSource{}
	limiter := &mockLimiter{WaitFunc: func(ctx context.Context) error { return context.DeadlineExceeded }}
	p := newTestProvider(src, limiter, nil)

	got, err := p.FetchDisplayPayload(context.Background(), "index:1M")
	require.NoError(t, err)
	assert.True(t, got.Fallback)
	assert.Equal(t, int32(0), src.calls.Load())
}

// TestProvider_Timeout は上流が応答しない場合にタイムアウト後フォールバックすることを検証します。
func TestProvider_Timeout(t *testing.T) {
	t.Parallel()

	src := &mockSource{FetchFunc: func(ctx context.Context, param string) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	p := NewProvider(nil, nil, 20*time.Millisecond, 8)
	p.Register(entity.KindIndex, src, time.Minute)

	start := time.Now()
	got, err := p.FetchDisplayPayload(context.Background(), "index:1D")
	require.NoError(t, err)
	assert.True(t, got.Fallback)
	assert.Less(t, time.Since(start), time.Second)
}

// TestProvider_CallerCancellation は呼び出し元のキャンセルが上流呼び出しに伝播しないことを検証します。
func TestProvider_CallerCancellation(t *testing.T) {
	t.Parallel()

	src := &mockSource{}
	p := newTestProvider(src, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := p.FetchDisplayPayload(ctx, "index:1D")
	require.NoError(t, err)
	assert.False(t, got.Fallback)
}

// TestProvider_Coalesces は同一キーの同時リクエストが1回の上流呼び出しにまとめられることを検証します。
func TestProvider_Coalesces(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	src := &mockSource{FetchFunc: func(ctx context.Context, param string) (any, error) {
		<-release
		return "live", nil
	}}
	p := newTestProvider(src, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := p.FetchDisplayPayload(context.Background(), "index:7Y")
			assert.NoError(t, err)
			assert.Equal(t, "live", got.Body)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
}

func TestProvider_InvalidKey(t *testing.T) {
	t.Parallel()

	p := newTestProvider(&mockSource{}, nil, nil)

	_, err := p.FetchDisplayPayload(context.Background(), "index:10Y")
	assert.ErrorIs(t, err, domain.ErrInvalidKey)

	// social は未登録
	_, err = p.FetchDisplayPayload(context.Background(), "social:finanzen")
	assert.ErrorIs(t, err, domain.ErrInvalidKey)
}
