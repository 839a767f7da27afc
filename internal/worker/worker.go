package workerpool

import (
	"context"
	"fmt"
	"time"

	"github.com/MediaForgeNet/mediaforge-core/internal/codec"
	"go.uber.org/zap"
)

// unit is one isolated execution context. It owns its engine instance and
// runs exactly one task at a time.
type unit struct {
	id       int
	engine   codec.Engine
	taskChan chan *boundTask
	quit     chan struct{}
	pool     *Pool
	logger   *zap.Logger
}

// boundTask pairs a queued request with the channel its Execute caller is
// blocked on. The outcome channel is buffered so delivery never blocks a
// unit.
type boundTask struct {
	id      string
	req     *codec.Request
	outcome chan taskOutcome
}

type taskOutcome struct {
	result *TaskResult
	err    error
}

func (u *unit) start(ctx context.Context) {
	for {
		select {
		case task := <-u.taskChan:
			u.execute(ctx, task)
		case <-u.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (u *unit) execute(ctx context.Context, task *boundTask) {
	start := time.Now()

	resp, err := u.runEngine(ctx, task)

	end := time.Now()
	var result *TaskResult
	if err == nil {
		result = &TaskResult{
			TaskID:     task.id,
			Payload:    resp.Payload,
			Dimensions: resp.Dimensions,
			StartTime:  start,
			EndTime:    end,
			Duration:   end.Sub(start),
		}
	}

	u.pool.complete(u, task, result, err)
}

// runEngine isolates engine panics: a crashing codec surfaces as an explicit
// error response instead of taking the whole process down, and the unit stays
// usable.
func (u *unit) runEngine(ctx context.Context, task *boundTask) (resp *codec.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			u.logger.Error("execution unit crashed",
				zap.Int("unit", u.id),
				zap.String("task_id", task.id),
				zap.Any("panic", r))
			err = fmt.Errorf("execution unit crashed: %v", r)
		}
	}()
	return u.engine.Process(ctx, task.req)
}
