package workerpool

import (
	"time"

	"github.com/MediaForgeNet/mediaforge-core/internal/codec"
	"github.com/MediaForgeNet/mediaforge-core/internal/mediautil"
)

// TaskRequest is one unit of work handed to the pool. Payload ownership moves
// to the pool on Execute: the caller must not touch the buffer afterwards.
type TaskRequest struct {
	Op           codec.Op
	Payload      *mediautil.Buffer
	SourceFormat mediautil.Format
	TargetFormat mediautil.Format
	Options      codec.Options
	OnProgress   codec.ProgressFunc
}

// TaskResult is produced exactly once per task by exactly one execution unit.
type TaskResult struct {
	TaskID     string
	Payload    []byte
	Dimensions *mediautil.Dimensions
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}

// Config sizes the pool.
type Config struct {
	// UnitCount is the requested number of execution units. The pool caps it
	// at the machine's available parallelism.
	UnitCount int
}

// Stats is a point-in-time view of pool activity.
type Stats struct {
	UnitCount      int
	TotalTasks     int64
	CompletedTasks int64
	FailedTasks    int64
	QueueLength    int64
	Uptime         time.Duration
	IsRunning      bool
}
