package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/MediaForgeNet/mediaforge-core/internal/batch"
	"github.com/MediaForgeNet/mediaforge-core/internal/codec"
	"github.com/MediaForgeNet/mediaforge-core/internal/mediautil"
	"github.com/MediaForgeNet/mediaforge-core/internal/transform"
	workerpool "github.com/MediaForgeNet/mediaforge-core/internal/worker"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Handler drives one batch manager over HTTP. It is not an upload service:
// files live only in memory for the life of the process.
type Handler struct {
	manager        *batch.Manager
	pool           *workerpool.Pool
	logger         *zap.Logger
	versionInfo    VersionInfo
	maxUploadBytes int64
	submitLimiter  *rate.Limiter
}

// NewHandler wires the HTTP surface onto a batch manager.
func NewHandler(manager *batch.Manager, pool *workerpool.Pool, logger *zap.Logger, versionInfo VersionInfo, maxUploadBytes int64, submitRate float64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 256 << 20
	}
	if submitRate <= 0 {
		submitRate = 5
	}
	return &Handler{
		manager:        manager,
		pool:           pool,
		logger:         logger,
		versionInfo:    versionInfo,
		maxUploadBytes: maxUploadBytes,
		submitLimiter:  rate.NewLimiter(rate.Limit(submitRate), int(submitRate)+1),
	}
}

// handleAddFiles accepts a multipart upload and queues every file part.
func (h *Handler) handleAddFiles(w http.ResponseWriter, r *http.Request) {
	if !h.submitLimiter.Allow() {
		writeError(w, "Too many submissions", http.StatusTooManyRequests)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.logger.Error("Failed to parse multipart form", zap.Error(err))
		writeError(w, "Failed to parse upload", http.StatusBadRequest)
		return
	}

	var files []*mediautil.File
	for _, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				writeError(w, "Failed to open uploaded file", http.StatusBadRequest)
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeError(w, "Failed to read uploaded file", http.StatusBadRequest)
				return
			}
			files = append(files, &mediautil.File{Name: fh.Filename, Data: data})
		}
	}

	if len(files) == 0 {
		writeError(w, "No files provided", http.StatusBadRequest)
		return
	}

	ids := h.manager.AddFiles(files)
	writeJSON(w, AddFilesResponse{ItemIDs: ids})
}

// handleProcess starts the batch and blocks until it settles. A concurrent
// invocation is refused, never queued.
func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	target, err := mediautil.ParseFormat(req.TargetFormat)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := codec.Options{Quality: req.Quality, Lossless: req.Lossless}
	if err := h.manager.ProcessBatch(r.Context(), target, opts); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, ProcessResponse{State: h.manager.GetState()})
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.manager.GetState())
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.manager.GetStatistics())
}

func (h *Handler) handleItemResult(w http.ResponseWriter, r *http.Request) {
	item, ok := h.manager.GetItem(mux.Vars(r)["id"])
	if !ok {
		writeError(w, "Item not found", http.StatusNotFound)
		return
	}
	if item.Status != batch.StatusComplete || item.Result == nil {
		writeError(w, "Item has no result", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", item.Result.MIMEType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+item.Result.Filename+`"`)
	_, _ = w.Write(item.Result.Buffer)
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	target, err := mediautil.ParseFormat(req.TargetFormat)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := mux.Vars(r)["id"]
	opts := codec.Options{Quality: req.Quality, Lossless: req.Lossless}
	if err := h.manager.RetryItem(r.Context(), id, target, opts); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	item, _ := h.manager.GetItem(id)
	writeJSON(w, item)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !h.manager.CancelItem(id) {
		writeError(w, "Only queued items can be cancelled", http.StatusConflict)
		return
	}
	writeJSON(w, MessageResponse{Status: http.StatusOK, Message: "Item cancelled"})
}

func (h *Handler) handleResize(w http.ResponseWriter, r *http.Request) {
	var req ResizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	cfg := transform.Config{
		Preset:              transform.Preset(req.Preset),
		Width:               req.Width,
		Height:              req.Height,
		MaintainAspectRatio: req.MaintainAspectRatio,
		DPI:                 req.DPI,
	}
	if cfg.Preset == "" {
		cfg.Preset = transform.PresetCustom
	}

	if req.ApplyToAll {
		count := h.manager.ApplyResizeConfigToAll(cfg)
		writeJSON(w, MessageResponse{Status: http.StatusOK, Message: fmt.Sprintf("Resize applied to %d items", count)})
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		writeError(w, "Missing item id", http.StatusBadRequest)
		return
	}
	if !h.manager.UpdateItemResizeConfig(id, cfg) {
		writeError(w, "Item is already finalized", http.StatusConflict)
		return
	}
	writeJSON(w, MessageResponse{Status: http.StatusOK, Message: "Resize config updated"})
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("completed") == "true" {
		h.manager.ClearCompleted()
	} else {
		h.manager.Clear()
	}
	writeJSON(w, h.manager.GetState())
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := h.pool.GetStats()
	writeJSON(w, HealthResponse{
		Status:  "ok",
		Version: h.versionInfo.Version,
		Build: BuildInfo{
			Version:   h.versionInfo.Version,
			Commit:    h.versionInfo.Commit,
			Date:      h.versionInfo.Date,
			GoVersion: h.versionInfo.GoVersion,
			Platform:  h.versionInfo.Platform,
		},
		WorkerPool: WorkerPoolStatus{
			UnitCount:      stats.UnitCount,
			TotalTasks:     stats.TotalTasks,
			CompletedTasks: stats.CompletedTasks,
			FailedTasks:    stats.FailedTasks,
			QueueLength:    stats.QueueLength,
			IsRunning:      stats.IsRunning,
			Uptime:         stats.Uptime.String(),
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(MessageResponse{Status: status, Message: msg})
}
