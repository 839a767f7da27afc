package probe

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/MediaForgeNet/mediaforge-core/internal/mediautil"
	"github.com/gorilla/mux"
)

const (
	DefaultMaxConcurrent = 8
	DefaultMaxUploadMB   = 64
)

// Result describes one probed file.
type Result struct {
	Filename  string `json:"filename"`
	Format    string `json:"format"`
	MIMEType  string `json:"mime_type,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	SizeBytes int64  `json:"size_bytes"`
	Failed    bool   `json:"failed"`
	Error     string `json:"error,omitempty"`
	ProbedAt  string `json:"probed_at"`
}

// Response aggregates a multi-file probe.
type Response struct {
	TotalProbed int      `json:"total_probed"`
	Recognized  int      `json:"recognized"`
	Failed      int      `json:"failed"`
	Results     []Result `json:"results"`
	ProcessedAt string   `json:"processed_at"`
}

// Service sniffs formats and dimensions for uploaded media.
type Service struct {
	maxConcurrent int
}

func NewService(maxConcurrent int) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Service{maxConcurrent: maxConcurrent}
}

func (s *Service) probeOne(file *mediautil.File) Result {
	result := Result{
		Filename:  file.Name,
		SizeBytes: file.Size(),
		ProbedAt:  time.Now().Format(time.RFC3339),
	}

	format, err := mediautil.DetectFormat(file.Data)
	if err != nil {
		result.Failed = true
		result.Error = err.Error()
		return result
	}
	result.Format = format.String()
	result.MIMEType = format.MIMEType()

	if !format.IsVideo() {
		if dims, err := mediautil.ProbeDimensions(file.Data); err == nil {
			result.Width = dims.Width
			result.Height = dims.Height
		}
	}
	return result
}

// ProbeFiles sniffs all files concurrently, bounded by the service's
// semaphore.
func (s *Service) ProbeFiles(files []*mediautil.File) *Response {
	resultChan := make(chan Result, len(files))
	sem := make(chan struct{}, s.maxConcurrent)
	var wg sync.WaitGroup

	for _, file := range files {
		wg.Add(1)
		go func(f *mediautil.File) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			resultChan <- s.probeOne(f)
		}(file)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]Result, 0, len(files))
	for r := range resultChan {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Failed != results[j].Failed {
			return !results[i].Failed
		}
		return results[i].Filename < results[j].Filename
	})

	recognized := 0
	for _, r := range results {
		if !r.Failed {
			recognized++
		}
	}

	return &Response{
		TotalProbed: len(results),
		Recognized:  recognized,
		Failed:      len(results) - recognized,
		Results:     results,
		ProcessedAt: time.Now().Format(time.RFC3339),
	}
}

func (s *Service) handleProbe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, DefaultMaxUploadMB<<20)
	if err := r.ParseMultipartForm(DefaultMaxUploadMB << 20); err != nil {
		http.Error(w, "Failed to parse upload", http.StatusBadRequest)
		return
	}

	var files []*mediautil.File
	for _, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				http.Error(w, "Failed to open uploaded file", http.StatusBadRequest)
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				http.Error(w, "Failed to read uploaded file", http.StatusBadRequest)
				return
			}
			files = append(files, &mediautil.File{Name: fh.Filename, Data: data})
		}
	}

	if len(files) == 0 {
		http.Error(w, "No files uploaded", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.ProbeFiles(files))
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "mediaprobe",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// StartServer runs the probe HTTP service until the listener fails.
func (s *Service) StartServer(port string) error {
	r := mux.NewRouter()
	r.HandleFunc("/probe", s.handleProbe).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	fmt.Printf("mediaprobe listening on :%s\n", port)
	return srv.ListenAndServe()
}
