package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/MediaForgeNet/mediaforge-core/internal/codec"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrPoolClosed is returned for tasks submitted to, or still pending in,
	// a terminated pool.
	ErrPoolClosed = errors.New("worker pool is terminated")
	// ErrNotInitialized is returned when Execute is called before Initialize.
	ErrNotInitialized = errors.New("worker pool is not initialized")
)

// Pool owns a fixed set of execution units, a FIFO queue of pending tasks and
// the map of in-flight task ids to their blocked callers. Tasks are started
// in submission order as units free up; completion order is whatever the
// units deliver.
type Pool struct {
	factory codec.EngineFactory
	logger  *zap.Logger

	mu       sync.Mutex
	units    []*unit
	idle     []*unit
	pending  []*boundTask
	inflight map[string]*boundTask

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	initialized bool
	terminated  bool

	totalTasks     int64
	completedTasks int64
	failedTasks    int64
	startTime      time.Time
}

// NewPool creates an uninitialized pool. Each execution unit gets its own
// engine from factory.
func NewPool(cfg Config, factory codec.EngineFactory, logger *zap.Logger) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	count := cfg.UnitCount
	if count <= 0 {
		count = 4
	}
	if max := runtime.NumCPU(); count > max {
		count = max
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		factory:  factory,
		logger:   logger,
		units:    make([]*unit, 0, count),
		idle:     make([]*unit, 0, count),
		inflight: make(map[string]*boundTask),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Initialize spins up every execution unit and waits for each to signal
// readiness. There are no partial pools: if any engine fails to construct,
// the started units are torn down and the error is returned.
func (p *Pool) Initialize(ctx context.Context) error {
	p.mu.Lock()
	if p.initialized {
		p.mu.Unlock()
		return fmt.Errorf("worker pool is already initialized")
	}
	if p.terminated {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	count := cap(p.units)
	p.mu.Unlock()

	ready := make(chan error, count)
	var units []*unit
	for i := 0; i < count; i++ {
		u := &unit{
			id:       i + 1,
			taskChan: make(chan *boundTask, 1),
			quit:     make(chan struct{}),
			pool:     p,
			logger:   p.logger,
		}
		units = append(units, u)
		go func(u *unit) {
			engine, err := p.factory()
			if err != nil {
				ready <- fmt.Errorf("unit %d: %w", u.id, err)
				return
			}
			u.engine = engine
			ready <- nil
			u.start(p.ctx)
		}(u)
	}

	var initErr error
	for i := 0; i < count; i++ {
		select {
		case err := <-ready:
			if err != nil && initErr == nil {
				initErr = err
			}
		case <-ctx.Done():
			initErr = ctx.Err()
		}
		if initErr != nil {
			break
		}
	}

	if initErr != nil {
		for _, u := range units {
			close(u.quit)
		}
		return fmt.Errorf("worker pool initialization failed: %w", initErr)
	}

	p.mu.Lock()
	p.units = units
	p.idle = append(p.idle, units...)
	p.initialized = true
	p.startTime = time.Now()
	p.mu.Unlock()

	p.logger.Info("worker pool ready", zap.Int("units", count))
	return nil
}

// Execute submits a task and blocks until its result arrives. The request's
// payload buffer is moved into the pool; reading it afterwards fails with
// ErrBufferMoved. Execute never panics.
func (p *Pool) Execute(ctx context.Context, req *TaskRequest) (*TaskResult, error) {
	p.mu.Lock()
	switch {
	case p.terminated:
		p.mu.Unlock()
		return nil, ErrPoolClosed
	case !p.initialized:
		p.mu.Unlock()
		return nil, ErrNotInitialized
	}

	// The payload moves only once the pool has accepted the request; a
	// rejected submission leaves the caller's buffer readable.
	payload, err := req.Payload.Take()
	if err != nil {
		p.mu.Unlock()
		return nil, fmt.Errorf("task payload: %w", err)
	}

	task := &boundTask{
		id: uuid.NewString(),
		req: &codec.Request{
			Op:           req.Op,
			Payload:      payload,
			SourceFormat: req.SourceFormat,
			TargetFormat: req.TargetFormat,
			Options:      req.Options,
			OnProgress:   req.OnProgress,
		},
		outcome: make(chan taskOutcome, 1),
	}

	p.totalTasks++
	p.pending = append(p.pending, task)
	p.dispatchLocked()
	p.mu.Unlock()

	select {
	case out := <-task.outcome:
		return out.result, out.err
	case <-p.done:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		// The unit keeps running; only the caller stops waiting. There is no
		// cooperative mid-flight cancellation once a task is handed off.
		p.abandon(task.id)
		return nil, ctx.Err()
	}
}

// dispatchLocked pairs the oldest pending task with an idle unit until one of
// the two runs out. Callers hold p.mu.
func (p *Pool) dispatchLocked() {
	for len(p.pending) > 0 && len(p.idle) > 0 {
		task := p.pending[0]
		p.pending = p.pending[1:]

		u := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]

		p.inflight[task.id] = task
		u.taskChan <- task
	}
}

// complete resolves the caller blocked on the task, returns the unit to the
// idle set, and immediately hands it the next queued task if there is one.
func (p *Pool) complete(u *unit, task *boundTask, result *TaskResult, err error) {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return
	}
	_, tracked := p.inflight[task.id]
	delete(p.inflight, task.id)
	if err != nil {
		p.failedTasks++
	} else {
		p.completedTasks++
	}
	p.idle = append(p.idle, u)
	p.dispatchLocked()
	p.mu.Unlock()

	if tracked {
		task.outcome <- taskOutcome{result: result, err: err}
	}
}

// abandon drops the binding for a task whose caller gave up waiting.
func (p *Pool) abandon(taskID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, taskID)
	for i, t := range p.pending {
		if t.id == taskID {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			break
		}
	}
}

// Terminate forcibly stops every unit and clears all internal state. Pending
// tasks are not resolved; callers still blocked in Execute receive
// ErrPoolClosed through the pool's done channel.
func (p *Pool) Terminate() {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return
	}
	p.terminated = true
	for _, u := range p.units {
		close(u.quit)
	}
	p.pending = nil
	p.idle = nil
	p.inflight = make(map[string]*boundTask)
	p.mu.Unlock()

	p.cancel()
	close(p.done)
	p.logger.Info("worker pool terminated")
}

// GetStats returns a snapshot of pool activity.
func (p *Pool) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	var uptime time.Duration
	if p.initialized {
		uptime = time.Since(p.startTime)
	}
	return Stats{
		UnitCount:      len(p.units),
		TotalTasks:     p.totalTasks,
		CompletedTasks: p.completedTasks,
		FailedTasks:    p.failedTasks,
		QueueLength:    int64(len(p.pending)),
		Uptime:         uptime,
		IsRunning:      p.initialized && !p.terminated,
	}
}

// UnitCount reports how many execution units the pool runs.
func (p *Pool) UnitCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.units) > 0 {
		return len(p.units)
	}
	return cap(p.units)
}
