package api

import (
	"github.com/MediaForgeNet/mediaforge-core/internal/batch"
)

type MessageResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type AddFilesResponse struct {
	ItemIDs []string `json:"item_ids"`
}

type ProcessRequest struct {
	TargetFormat string `json:"target_format"`
	Quality      int    `json:"quality,omitempty"`
	Lossless     bool   `json:"lossless,omitempty"`
}

type ProcessResponse struct {
	State batch.State `json:"state"`
}

type ResizeRequest struct {
	Preset              string `json:"preset,omitempty"`
	Width               int    `json:"width"`
	Height              int    `json:"height"`
	MaintainAspectRatio bool   `json:"maintain_aspect_ratio"`
	DPI                 int    `json:"dpi,omitempty"`
	ApplyToAll          bool   `json:"apply_to_all,omitempty"`
}

type VersionInfo struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
	Platform  string
}

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

type WorkerPoolStatus struct {
	UnitCount      int    `json:"unit_count"`
	TotalTasks     int64  `json:"total_tasks"`
	CompletedTasks int64  `json:"completed_tasks"`
	FailedTasks    int64  `json:"failed_tasks"`
	QueueLength    int64  `json:"queue_length"`
	IsRunning      bool   `json:"is_running"`
	Uptime         string `json:"uptime"`
}

type HealthResponse struct {
	Status     string           `json:"status"`
	Version    string           `json:"version"`
	Build      BuildInfo        `json:"build"`
	WorkerPool WorkerPoolStatus `json:"worker_pool"`
}
