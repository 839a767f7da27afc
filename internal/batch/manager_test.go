package batch

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MediaForgeNet/mediaforge-core/internal/codec"
	"github.com/MediaForgeNet/mediaforge-core/internal/convert"
	"github.com/MediaForgeNet/mediaforge-core/internal/mediautil"
	"github.com/MediaForgeNet/mediaforge-core/internal/transform"
	workerpool "github.com/MediaForgeNet/mediaforge-core/internal/worker"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeEngine struct {
	process func(ctx context.Context, req *codec.Request) (*codec.Response, error)
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Process(ctx context.Context, req *codec.Request) (*codec.Response, error) {
	return f.process(ctx, req)
}

func newTestManager(t *testing.T, process func(ctx context.Context, req *codec.Request) (*codec.Response, error)) *Manager {
	t.Helper()
	pool := workerpool.NewPool(workerpool.Config{UnitCount: 2}, func() (codec.Engine, error) {
		return &fakeEngine{process: process}, nil
	}, zaptest.NewLogger(t))
	require.NoError(t, pool.Initialize(context.Background()))
	t.Cleanup(pool.Terminate)

	svc := convert.NewService(pool, zaptest.NewLogger(t))
	return NewManager(svc, pool.UnitCount(), zaptest.NewLogger(t))
}

func echoProcess(_ context.Context, req *codec.Request) (*codec.Response, error) {
	return &codec.Response{Payload: req.Payload}, nil
}

func pngFile(t *testing.T, name string, width, height int) *mediautil.File {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 17, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &mediautil.File{Name: name, Data: buf.Bytes()}
}

// stateRecorder collects every published state. Notifications arrive from
// multiple goroutines during a batch, so it locks.
type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (r *stateRecorder) observe(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *stateRecorder) all() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.states))
	copy(out, r.states)
	return out
}

func TestAddFilesCreatesQueuedItems(t *testing.T) {
	m := newTestManager(t, echoProcess)

	ids := m.AddFiles([]*mediautil.File{
		pngFile(t, "a.png", 20, 10),
		pngFile(t, "b.png", 8, 8),
	})
	require.Len(t, ids, 2)

	state := m.GetState()
	require.Equal(t, 2, state.TotalItems)
	require.Equal(t, 0, state.CompletedCount)
	require.Equal(t, 0, state.OverallProgressPercent)
	for _, it := range state.Items {
		require.Equal(t, StatusQueued, it.Status)
		require.Equal(t, 0, it.Progress)
	}

	// Dimension probing runs in the background after AddFiles returns.
	require.Eventually(t, func() bool {
		it, ok := m.GetItem(ids[0])
		return ok && it.OriginalDimensions != nil
	}, 2*time.Second, 5*time.Millisecond)

	it, _ := m.GetItem(ids[0])
	require.Equal(t, 20, it.OriginalDimensions.Width)
	require.Equal(t, 10, it.OriginalDimensions.Height)
}

func TestProcessBatchCompletesAllItems(t *testing.T) {
	m := newTestManager(t, echoProcess)
	m.AddFiles([]*mediautil.File{
		pngFile(t, "one.png", 6, 6),
		pngFile(t, "two.png", 6, 6),
		pngFile(t, "three.png", 6, 6),
	})

	require.NoError(t, m.ProcessBatch(context.Background(), mediautil.FormatWebP, codec.Options{Quality: 80}))

	state := m.GetState()
	require.False(t, state.IsProcessing)
	require.Equal(t, 3, state.CompletedCount)
	require.Equal(t, 0, state.FailedCount)
	require.Equal(t, 100, state.OverallProgressPercent)

	wantNames := []string{"one.png", "two.png", "three.png"}
	for i, it := range state.Items {
		require.Equal(t, StatusComplete, it.Status)
		require.Equal(t, 100, it.Progress)
		require.Equal(t, wantNames[i], it.Filename)
		require.NotNil(t, it.Result)
		require.Equal(t, mediautil.DerivedName(it.Filename, mediautil.FormatWebP), it.Result.Filename)
		require.NotNil(t, it.CompletedAt)
	}
}

func TestStatusTransitionsStayLegal(t *testing.T) {
	m := newTestManager(t, echoProcess)
	ids := m.AddFiles([]*mediautil.File{pngFile(t, "x.png", 5, 5)})

	rec := &stateRecorder{}
	unsubscribe := m.Subscribe(rec.observe)
	defer unsubscribe()

	require.NoError(t, m.ProcessBatch(context.Background(), mediautil.FormatPNG, codec.Options{}))

	allowed := map[[2]Status]bool{
		{StatusQueued, StatusProcessing}:   true,
		{StatusProcessing, StatusComplete}: true,
		{StatusProcessing, StatusError}:    true,
		{StatusError, StatusQueued}:        true,
	}

	var seq []Status
	for _, s := range rec.all() {
		for _, it := range s.Items {
			if it.ID == ids[0] {
				if len(seq) == 0 || seq[len(seq)-1] != it.Status {
					seq = append(seq, it.Status)
				}
			}
		}
	}
	require.NotEmpty(t, seq)
	for i := 1; i < len(seq); i++ {
		require.True(t, allowed[[2]Status{seq[i-1], seq[i]}],
			"illegal transition %s -> %s in %v", seq[i-1], seq[i], seq)
	}
	require.Equal(t, StatusComplete, seq[len(seq)-1])
}

func TestProgressNeverMovesBackwards(t *testing.T) {
	m := newTestManager(t, func(_ context.Context, req *codec.Request) (*codec.Response, error) {
		req.OnProgress("decoding", 10)
		req.OnProgress("encoding", 60)
		req.OnProgress("encoding", 30) // stale report, must be ignored
		req.OnProgress("done", 100)
		return &codec.Response{Payload: req.Payload}, nil
	})
	ids := m.AddFiles([]*mediautil.File{pngFile(t, "p.png", 5, 5)})

	rec := &stateRecorder{}
	defer m.Subscribe(rec.observe)()

	require.NoError(t, m.ProcessBatch(context.Background(), mediautil.FormatPNG, codec.Options{}))

	last := -1
	for _, s := range rec.all() {
		for _, it := range s.Items {
			if it.ID != ids[0] || it.Status != StatusProcessing {
				continue
			}
			require.GreaterOrEqual(t, it.Progress, last, "progress regressed")
			last = it.Progress
		}
	}
	require.GreaterOrEqual(t, last, 60)
}

func TestDerivedStateIsInternallyConsistent(t *testing.T) {
	m := newTestManager(t, echoProcess)
	m.AddFiles([]*mediautil.File{
		pngFile(t, "a.png", 4, 4),
		pngFile(t, "b.png", 4, 4),
	})

	rec := &stateRecorder{}
	defer m.Subscribe(rec.observe)()

	require.NoError(t, m.ProcessBatch(context.Background(), mediautil.FormatJPEG, codec.Options{}))

	for _, s := range rec.all() {
		completed, failed := 0, 0
		for _, it := range s.Items {
			switch it.Status {
			case StatusComplete:
				completed++
			case StatusError:
				failed++
			}
		}
		require.Equal(t, len(s.Items), s.TotalItems)
		require.Equal(t, completed, s.CompletedCount)
		require.Equal(t, failed, s.FailedCount)
		if s.TotalItems > 0 {
			want := int(float64(completed)/float64(s.TotalItems)*100 + 0.5)
			require.Equal(t, want, s.OverallProgressPercent)
		}
	}
}

func TestFailingItemIsRetriedWithinBudget(t *testing.T) {
	var attempts int32
	m := newTestManager(t, func(_ context.Context, req *codec.Request) (*codec.Response, error) {
		atomic.AddInt32(&attempts, 1)
		return nil, fmt.Errorf("codec keeps refusing")
	})
	ids := m.AddFiles([]*mediautil.File{pngFile(t, "doomed.png", 4, 4)})

	require.NoError(t, m.ProcessBatch(context.Background(), mediautil.FormatWebP, codec.Options{}))

	require.Equal(t, int32(MaxRetries+1), atomic.LoadInt32(&attempts))

	it, ok := m.GetItem(ids[0])
	require.True(t, ok)
	require.Equal(t, StatusError, it.Status)
	require.Equal(t, 0, it.Progress)
	require.Contains(t, it.Error, "codec keeps refusing")

	state := m.GetState()
	require.Equal(t, 1, state.FailedCount)
	require.Equal(t, 0, state.CompletedCount)
}

func TestFlakyItemRecoversWithinBudget(t *testing.T) {
	var attempts int32
	m := newTestManager(t, func(_ context.Context, req *codec.Request) (*codec.Response, error) {
		if atomic.AddInt32(&attempts, 1) <= 2 {
			return nil, fmt.Errorf("codec warming up")
		}
		return &codec.Response{Payload: req.Payload}, nil
	})
	ids := m.AddFiles([]*mediautil.File{pngFile(t, "flaky.png", 4, 4)})

	rec := &stateRecorder{}
	stop := m.Subscribe(rec.observe)
	defer stop()

	require.NoError(t, m.ProcessBatch(context.Background(), mediautil.FormatWebP, codec.Options{}))

	require.Equal(t, int32(3), atomic.LoadInt32(&attempts))

	it, ok := m.GetItem(ids[0])
	require.True(t, ok)
	require.Equal(t, StatusComplete, it.Status)
	require.Equal(t, 100, it.Progress)
	require.Empty(t, it.Error)
	require.NotNil(t, it.Result)

	// Retries stay internal to the batch run: the item never surfaces as
	// Error in any published snapshot.
	for _, s := range rec.all() {
		for _, item := range s.Items {
			require.NotEqual(t, StatusError, item.Status)
		}
	}
}

func TestItemFailureDoesNotFailBatch(t *testing.T) {
	m := newTestManager(t, echoProcess)
	m.AddFiles([]*mediautil.File{
		pngFile(t, "good.png", 4, 4),
		{Name: "bad.bin", Data: []byte("no image signature in here")},
	})

	require.NoError(t, m.ProcessBatch(context.Background(), mediautil.FormatWebP, codec.Options{}))

	state := m.GetState()
	require.Equal(t, 1, state.CompletedCount)
	require.Equal(t, 1, state.FailedCount)
	require.Equal(t, 50, state.OverallProgressPercent)
}

func TestRetryItemGetsFreshBudget(t *testing.T) {
	var attempts int32
	m := newTestManager(t, func(_ context.Context, req *codec.Request) (*codec.Response, error) {
		if atomic.AddInt32(&attempts, 1) <= int32(MaxRetries+1) {
			return nil, fmt.Errorf("transient failure")
		}
		return &codec.Response{Payload: req.Payload}, nil
	})
	ids := m.AddFiles([]*mediautil.File{pngFile(t, "flaky.png", 4, 4)})

	require.NoError(t, m.ProcessBatch(context.Background(), mediautil.FormatWebP, codec.Options{}))
	it, _ := m.GetItem(ids[0])
	require.Equal(t, StatusError, it.Status)

	require.NoError(t, m.RetryItem(context.Background(), ids[0], mediautil.FormatWebP, codec.Options{}))

	it, _ = m.GetItem(ids[0])
	require.Equal(t, StatusComplete, it.Status)
	require.Equal(t, 100, it.Progress)
	require.Empty(t, it.Error)
	require.NotNil(t, it.Result)
}

func TestRetryItemRejectsNonErrorStates(t *testing.T) {
	m := newTestManager(t, echoProcess)
	ids := m.AddFiles([]*mediautil.File{pngFile(t, "ok.png", 4, 4)})

	// Queued item.
	require.Error(t, m.RetryItem(context.Background(), ids[0], mediautil.FormatWebP, codec.Options{}))

	require.NoError(t, m.ProcessBatch(context.Background(), mediautil.FormatWebP, codec.Options{}))

	// Complete item.
	require.Error(t, m.RetryItem(context.Background(), ids[0], mediautil.FormatWebP, codec.Options{}))
	// Unknown id.
	require.Error(t, m.RetryItem(context.Background(), "no-such-id", mediautil.FormatWebP, codec.Options{}))
}

func TestCancelItemOnlyWhenQueued(t *testing.T) {
	m := newTestManager(t, echoProcess)
	ids := m.AddFiles([]*mediautil.File{
		pngFile(t, "keep.png", 4, 4),
		pngFile(t, "drop.png", 4, 4),
	})

	require.True(t, m.CancelItem(ids[1]))
	_, ok := m.GetItem(ids[1])
	require.False(t, ok, "cancelled item must be removed")
	require.Equal(t, 1, m.GetState().TotalItems)

	require.False(t, m.CancelItem("no-such-id"))

	require.NoError(t, m.ProcessBatch(context.Background(), mediautil.FormatWebP, codec.Options{}))
	require.False(t, m.CancelItem(ids[0]), "complete items are not cancellable")
	_, ok = m.GetItem(ids[0])
	require.True(t, ok)
}

func TestProcessBatchRefusedWhileRunning(t *testing.T) {
	gate := make(chan struct{})
	m := newTestManager(t, func(_ context.Context, req *codec.Request) (*codec.Response, error) {
		<-gate
		return &codec.Response{Payload: req.Payload}, nil
	})
	m.AddFiles([]*mediautil.File{pngFile(t, "slow.png", 4, 4)})

	done := make(chan error, 1)
	go func() {
		done <- m.ProcessBatch(context.Background(), mediautil.FormatWebP, codec.Options{})
	}()

	require.Eventually(t, func() bool {
		return m.GetState().IsProcessing
	}, 2*time.Second, 5*time.Millisecond)

	err := m.ProcessBatch(context.Background(), mediautil.FormatWebP, codec.Options{})
	require.ErrorIs(t, err, ErrBatchRunning)

	close(gate)
	require.NoError(t, <-done)
	require.False(t, m.GetState().IsProcessing)
}

func TestResizeConfigAppliedBeforeConversion(t *testing.T) {
	var seen atomic.Value
	m := newTestManager(t, func(_ context.Context, req *codec.Request) (*codec.Response, error) {
		if cfg, err := png.DecodeConfig(bytes.NewReader(req.Payload)); err == nil {
			seen.Store(cfg)
		}
		return &codec.Response{Payload: req.Payload}, nil
	})
	ids := m.AddFiles([]*mediautil.File{pngFile(t, "big.png", 40, 20)})

	require.True(t, m.UpdateItemResizeConfig(ids[0], transform.Config{
		Preset: transform.PresetCustom,
		Width:  10,
		Height: 5,
	}))

	require.NoError(t, m.ProcessBatch(context.Background(), mediautil.FormatPNG, codec.Options{}))

	cfg, ok := seen.Load().(image.Config)
	require.True(t, ok, "engine never saw a decodable payload")
	require.Equal(t, 10, cfg.Width)
	require.Equal(t, 5, cfg.Height)
}

func TestResizeConfigEligibility(t *testing.T) {
	m := newTestManager(t, echoProcess)
	ids := m.AddFiles([]*mediautil.File{
		pngFile(t, "a.png", 4, 4),
		pngFile(t, "b.png", 4, 4),
	})

	cfg := transform.Config{Preset: transform.PresetThumb}
	require.True(t, m.UpdateItemResizeConfig(ids[0], cfg))
	require.Equal(t, 2, m.ApplyResizeConfigToAll(cfg))

	require.NoError(t, m.ProcessBatch(context.Background(), mediautil.FormatWebP, codec.Options{}))

	require.False(t, m.UpdateItemResizeConfig(ids[0], cfg), "finalized items reject resize changes")
	require.Equal(t, 0, m.ApplyResizeConfigToAll(cfg))
}

func TestClearAndClearCompleted(t *testing.T) {
	m := newTestManager(t, echoProcess)
	m.AddFiles([]*mediautil.File{
		pngFile(t, "fine.png", 4, 4),
		{Name: "junk.bin", Data: []byte("nothing resembling an image")},
	})

	require.NoError(t, m.ProcessBatch(context.Background(), mediautil.FormatWebP, codec.Options{}))

	m.ClearCompleted()
	state := m.GetState()
	require.Equal(t, 1, state.TotalItems)
	require.Equal(t, StatusError, state.Items[0].Status)

	m.Clear()
	require.Equal(t, 0, m.GetState().TotalItems)
}

func TestGetStatistics(t *testing.T) {
	converted := []byte("tiny")
	m := newTestManager(t, func(_ context.Context, req *codec.Request) (*codec.Response, error) {
		return &codec.Response{Payload: converted}, nil
	})
	files := []*mediautil.File{
		pngFile(t, "a.png", 10, 10),
		pngFile(t, "b.png", 20, 20),
	}
	m.AddFiles(files)

	require.NoError(t, m.ProcessBatch(context.Background(), mediautil.FormatWebP, codec.Options{}))

	stats := m.GetStatistics()
	require.Equal(t, 2, stats.CompletedCount)
	require.Equal(t, files[0].Size()+files[1].Size(), stats.TotalOriginalBytes)
	require.Equal(t, int64(2*len(converted)), stats.TotalConvertedBytes)
	require.Equal(t, stats.TotalOriginalBytes-stats.TotalConvertedBytes, stats.TotalSavedBytes)

	wantRatio := (float64(len(converted))/float64(files[0].Size()) +
		float64(len(converted))/float64(files[1].Size())) / 2
	require.InDelta(t, wantRatio, stats.AvgCompressionRatio, 1e-9)
}

func TestProcessEmptyBatch(t *testing.T) {
	m := newTestManager(t, echoProcess)
	require.NoError(t, m.ProcessBatch(context.Background(), mediautil.FormatWebP, codec.Options{}))

	state := m.GetState()
	require.Equal(t, 0, state.TotalItems)
	require.Equal(t, 0, state.OverallProgressPercent)
	require.False(t, state.IsProcessing)
}
