package batch

import (
	"time"

	"github.com/MediaForgeNet/mediaforge-core/internal/convert"
	"github.com/MediaForgeNet/mediaforge-core/internal/mediautil"
	"github.com/MediaForgeNet/mediaforge-core/internal/transform"
)

// Status is the lifecycle state of one item. Valid transitions are
// Queued -> Processing -> Complete | Error, Error -> Queued on retry, and
// Queued -> removed on cancel. Nothing else.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Item is the manager's authoritative record of one user-submitted file.
// Only the manager mutates it; subscribers observe copies.
type Item struct {
	ID                 string                `json:"id"`
	Filename           string                `json:"filename"`
	File               *mediautil.File       `json:"-"`
	Status             Status                `json:"status"`
	Progress           int                   `json:"progress"`
	Error              string                `json:"error,omitempty"`
	Result             *convert.Result       `json:"-"`
	ResizeConfig       *transform.Config     `json:"resize_config,omitempty"`
	OriginalDimensions *mediautil.Dimensions `json:"original_dimensions,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	StartedAt          *time.Time            `json:"started_at,omitempty"`
	CompletedAt        *time.Time            `json:"completed_at,omitempty"`
	DurationMs         int64                 `json:"duration_ms,omitempty"`
}

// IsTerminal reports whether the item finished its current attempt cycle.
func (it *Item) IsTerminal() bool {
	return it.Status == StatusComplete || it.Status == StatusError
}

func (it *Item) clone() *Item {
	cp := *it
	if it.ResizeConfig != nil {
		cfg := *it.ResizeConfig
		cp.ResizeConfig = &cfg
	}
	if it.OriginalDimensions != nil {
		dims := *it.OriginalDimensions
		cp.OriginalDimensions = &dims
	}
	return &cp
}
