package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MediaForgeNet/mediaforge-core/internal/codec"
	"github.com/MediaForgeNet/mediaforge-core/internal/convert"
	"github.com/MediaForgeNet/mediaforge-core/internal/mediautil"
	"github.com/MediaForgeNet/mediaforge-core/internal/transform"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxRetries is the per-ProcessBatch retry budget: a failing item is
// attempted MaxRetries+1 times before it goes terminal.
const MaxRetries = 2

// ErrBatchRunning is returned when ProcessBatch is called while a batch is
// already in flight. A second batch is never queued silently.
var ErrBatchRunning = fmt.Errorf("a batch is already being processed")

// Manager owns the item map and is its only mutator. It runs batches with a
// concurrency bound sized to the worker pool, retries failing items within a
// fixed budget, and publishes derived state to subscribers after every
// mutation.
type Manager struct {
	service   *convert.Service
	logger    *zap.Logger
	observers observerRegistry

	// semSize bounds concurrent item processing explicitly instead of
	// leaning on the pool's queue for backpressure.
	semSize int

	mu         sync.RWMutex
	items      map[string]*Item
	order      []string
	processing bool
}

// NewManager builds a manager on top of a conversion service. concurrency
// should match the pool's unit count.
func NewManager(service *convert.Service, concurrency int, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Manager{
		service: service,
		logger:  logger,
		semSize: concurrency,
		items:   make(map[string]*Item),
	}
}

// Subscribe registers a state-change callback and returns its unsubscribe
// function. Callbacks run synchronously, in registration order, once per
// mutation.
func (m *Manager) Subscribe(fn Subscriber) func() {
	return m.observers.subscribe(fn)
}

// GetState returns the current derived batch state.
func (m *Manager) GetState() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.deriveStateLocked()
}

// GetItem returns a copy of one item.
func (m *Manager) GetItem(id string) (*Item, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return nil, false
	}
	return it.clone(), true
}

// AddFiles synchronously creates one Queued item per file and returns the
// generated ids. Dimension probing runs afterwards in the background;
// OriginalDimensions may be nil for a short while after AddFiles returns.
func (m *Manager) AddFiles(files []*mediautil.File) []string {
	ids := make([]string, 0, len(files))

	m.mu.Lock()
	for _, f := range files {
		item := &Item{
			ID:        uuid.NewString(),
			Filename:  f.Name,
			File:      f,
			Status:    StatusQueued,
			CreatedAt: time.Now(),
		}
		m.items[item.ID] = item
		m.order = append(m.order, item.ID)
		ids = append(ids, item.ID)
	}
	state := m.deriveStateLocked()
	m.mu.Unlock()

	m.observers.notify(state)
	m.logger.Info("files added to batch", zap.Int("count", len(ids)))

	go m.probeDimensions(ids)
	return ids
}

func (m *Manager) probeDimensions(ids []string) {
	for _, id := range ids {
		it, ok := m.GetItem(id)
		if !ok {
			continue
		}
		dims, err := mediautil.ProbeDimensions(it.File.Data)
		if err != nil {
			m.logger.Debug("dimension probe failed",
				zap.String("item_id", id), zap.Error(err))
			continue
		}
		m.updateItem(id, func(item *Item) {
			item.OriginalDimensions = &dims
		})
	}
}

// ProcessBatch runs every current item, regardless of prior status, through
// the conversion pipeline. It fails fast when a batch is already running.
// Item failures never fail the batch: they are retried and then recorded on
// the item itself.
func (m *Manager) ProcessBatch(ctx context.Context, target mediautil.Format, opts codec.Options) error {
	m.mu.Lock()
	if m.processing {
		m.mu.Unlock()
		return ErrBatchRunning
	}
	m.processing = true
	ids := make([]string, len(m.order))
	copy(ids, m.order)
	state := m.deriveStateLocked()
	m.mu.Unlock()
	m.observers.notify(state)

	m.logger.Info("batch processing started",
		zap.Int("items", len(ids)),
		zap.String("target", target.String()))

	sem := make(chan struct{}, m.semSize)
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			m.processItem(ctx, id, target, opts, 0)
		}(id)
	}
	wg.Wait()

	m.mu.Lock()
	m.processing = false
	state = m.deriveStateLocked()
	m.mu.Unlock()
	m.observers.notify(state)

	m.logger.Info("batch processing finished",
		zap.Int("completed", state.CompletedCount),
		zap.Int("failed", state.FailedCount))
	return nil
}

// processItem runs one attempt for an item, recursing with an incremented
// retry counter on failure. The item's visible status swings back through
// Processing on every attempt; Error only appears once the budget is spent.
func (m *Manager) processItem(ctx context.Context, id string, target mediautil.Format, opts codec.Options, retryCount int) {
	it, ok := m.GetItem(id)
	if !ok {
		return
	}

	started := time.Now()
	m.updateItem(id, func(item *Item) {
		item.Status = StatusProcessing
		item.Progress = 0
		item.Error = ""
		item.Result = nil
		item.StartedAt = &started
		item.CompletedAt = nil
		item.DurationMs = 0
	})

	onProgress := func(_ string, percent int) {
		m.updateItem(id, func(item *Item) {
			// Progress never moves backwards within an attempt.
			if item.Status == StatusProcessing && percent > item.Progress {
				item.Progress = percent
			}
		})
	}

	file := it.File
	if it.ResizeConfig != nil && it.ResizeConfig.Applies(it.OriginalDimensions) {
		resized, err := transform.Resize(file, *it.ResizeConfig, onProgress)
		if err != nil {
			m.finishAttempt(ctx, id, target, opts, retryCount, err)
			return
		}
		file = resized
	}

	result, err := m.service.Convert(ctx, file, target, opts, onProgress)
	if err != nil {
		m.finishAttempt(ctx, id, target, opts, retryCount, err)
		return
	}

	ended := time.Now()
	m.updateItem(id, func(item *Item) {
		item.Status = StatusComplete
		item.Progress = 100
		item.Result = result
		item.CompletedAt = &ended
		if item.StartedAt != nil {
			item.DurationMs = ended.Sub(*item.StartedAt).Milliseconds()
		}
	})
}

// finishAttempt decides between another attempt and a terminal Error.
func (m *Manager) finishAttempt(ctx context.Context, id string, target mediautil.Format, opts codec.Options, retryCount int, cause error) {
	if retryCount < MaxRetries {
		m.logger.Warn("item attempt failed, retrying",
			zap.String("item_id", id),
			zap.Int("attempt", retryCount+1),
			zap.Error(cause))
		m.processItem(ctx, id, target, opts, retryCount+1)
		return
	}

	m.logger.Error("item failed after retries",
		zap.String("item_id", id),
		zap.Int("attempts", retryCount+1),
		zap.Error(cause))

	ended := time.Now()
	m.updateItem(id, func(item *Item) {
		item.Status = StatusError
		item.Progress = 0
		item.Error = cause.Error()
		item.CompletedAt = &ended
		if item.StartedAt != nil {
			item.DurationMs = ended.Sub(*item.StartedAt).Milliseconds()
		}
	})
}

// RetryItem reruns a terminally failed item with a fresh retry budget. It is
// valid only for items in Error state.
func (m *Manager) RetryItem(ctx context.Context, id string, target mediautil.Format, opts codec.Options) error {
	var eligible bool
	m.updateItem(id, func(item *Item) {
		if item.Status != StatusError {
			return
		}
		eligible = true
		item.Status = StatusQueued
		item.Error = ""
		item.Progress = 0
		item.Result = nil
		item.StartedAt = nil
		item.CompletedAt = nil
		item.DurationMs = 0
	})
	if !eligible {
		return fmt.Errorf("item %s is not in error state", id)
	}

	m.processItem(ctx, id, target, opts, 0)
	return nil
}

// CancelItem removes a Queued item from the batch outright. Cancelling an
// item in any other state is a no-op: in-flight work cannot be recalled from
// an execution unit.
func (m *Manager) CancelItem(id string) bool {
	m.mu.Lock()
	it, ok := m.items[id]
	if !ok || it.Status != StatusQueued {
		m.mu.Unlock()
		return false
	}
	delete(m.items, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	state := m.deriveStateLocked()
	m.mu.Unlock()

	m.observers.notify(state)
	return true
}

// UpdateItemResizeConfig attaches or replaces the resize config of an item
// that has not finalized yet. Complete and Error items are left untouched.
func (m *Manager) UpdateItemResizeConfig(id string, cfg transform.Config) bool {
	var updated bool
	m.updateItem(id, func(item *Item) {
		if item.Status != StatusQueued && item.Status != StatusProcessing {
			return
		}
		item.ResizeConfig = &cfg
		updated = true
	})
	return updated
}

// ApplyResizeConfigToAll applies cfg to every item still eligible for
// mutation.
func (m *Manager) ApplyResizeConfigToAll(cfg transform.Config) int {
	m.mu.Lock()
	count := 0
	for _, it := range m.items {
		if it.Status == StatusQueued || it.Status == StatusProcessing {
			c := cfg
			it.ResizeConfig = &c
			count++
		}
	}
	state := m.deriveStateLocked()
	m.mu.Unlock()

	m.observers.notify(state)
	return count
}

// Clear removes every item from the batch.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.items = make(map[string]*Item)
	m.order = nil
	state := m.deriveStateLocked()
	m.mu.Unlock()
	m.observers.notify(state)
}

// ClearCompleted removes only Complete items.
func (m *Manager) ClearCompleted() {
	m.mu.Lock()
	kept := m.order[:0]
	for _, id := range m.order {
		if m.items[id].Status == StatusComplete {
			delete(m.items, id)
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	state := m.deriveStateLocked()
	m.mu.Unlock()
	m.observers.notify(state)
}

// updateItem is the single mutation funnel: it merges one change into the
// item map and fires exactly one notification. Unknown ids are ignored.
func (m *Manager) updateItem(id string, mutate func(*Item)) {
	m.mu.Lock()
	it, ok := m.items[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	mutate(it)
	state := m.deriveStateLocked()
	m.mu.Unlock()

	m.observers.notify(state)
}
