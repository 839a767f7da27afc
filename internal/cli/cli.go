package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/MediaForgeNet/mediaforge-core/internal/batch"
)

// PathReader collects input file paths from a list file, arguments or stdin.
type PathReader struct{}

func NewPathReader() *PathReader {
	return &PathReader{}
}

func (pr *PathReader) File(filename string) ([]string, error) {
	if filename == "" {
		return []string{}, nil
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var paths []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			paths = append(paths, line)
		}
	}
	return paths, scanner.Err()
}

func (pr *PathReader) Stdin() ([]string, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return nil, nil
	}

	if (stat.Mode() & os.ModeCharDevice) == 0 {
		var paths []string
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" && !strings.HasPrefix(line, "#") {
				paths = append(paths, line)
			}
		}
		return paths, scanner.Err()
	}

	return nil, nil
}

// ReadPaths resolves the input source: stdin wins, then the list file, then
// positional arguments.
func (pr *PathReader) ReadPaths(listFile string, args []string) ([]string, string, error) {
	stdinPaths, err := pr.Stdin()
	if err != nil {
		return nil, "", fmt.Errorf("error reading from stdin: %v", err)
	}
	if len(stdinPaths) > 0 {
		return stdinPaths, "stdin", nil
	}

	if listFile != "" {
		filePaths, err := pr.File(listFile)
		if err != nil {
			return nil, "", fmt.Errorf("error reading from file %s: %v", listFile, err)
		}
		if len(filePaths) > 0 {
			return filePaths, "file", nil
		}
	}

	var fromArgs []string
	for _, p := range args {
		p = strings.TrimSpace(p)
		if p != "" {
			fromArgs = append(fromArgs, p)
		}
	}
	if len(fromArgs) > 0 {
		return fromArgs, "arguments", nil
	}

	return []string{}, "none", nil
}

// PathProcessor cleans up the collected path list.
type PathProcessor struct{}

func NewPathProcessor() *PathProcessor {
	return &PathProcessor{}
}

func (pp *PathProcessor) RemoveDuplicates(paths []string) []string {
	seen := make(map[string]bool)
	var unique []string
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p != "" && !seen[p] {
			seen[p] = true
			unique = append(unique, p)
		}
	}
	return unique
}

// ProgressPrinter renders batch state changes on one terminal line.
type ProgressPrinter struct {
	enabled bool
}

func NewProgressPrinter(enabled bool) *ProgressPrinter {
	return &ProgressPrinter{enabled: enabled}
}

// Observe is a batch.Subscriber.
func (pp *ProgressPrinter) Observe(state batch.State) {
	if !pp.enabled {
		return
	}
	fmt.Printf("\rProgress: %d/%d complete, %d failed (%d%%)",
		state.CompletedCount, state.TotalItems, state.FailedCount,
		state.OverallProgressPercent)
}

func (pp *ProgressPrinter) Finish() {
	if pp.enabled {
		fmt.Println()
	}
}

type OutputOptions struct {
	Format   string
	Filename string
	// Dir receives the converted payloads; empty means alongside the source.
	Dir string
}

// OutputManager writes converted files to disk and renders the item report.
type OutputManager struct{}

func NewOutputManager() *OutputManager {
	return &OutputManager{}
}

// WriteFiles saves every completed item's converted payload.
func (om *OutputManager) WriteFiles(items []*batch.Item, dir string) error {
	for _, it := range items {
		if it.Status != batch.StatusComplete || it.Result == nil {
			continue
		}
		path := it.Result.Filename
		if dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			path = dir + string(os.PathSeparator) + it.Result.Filename
		}
		if err := os.WriteFile(path, it.Result.Buffer, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

func (om *OutputManager) Output(items []*batch.Item, options OutputOptions) error {
	var output string
	var err error

	switch options.Format {
	case "json":
		output, err = om.JSON(items)
	case "csv":
		output, err = om.CSV(items)
	case "table":
		output = om.Table(items)
	default:
		return fmt.Errorf("unsupported output format: %s", options.Format)
	}

	if err != nil {
		return err
	}

	if options.Filename != "" {
		return os.WriteFile(options.Filename, []byte(output), 0644)
	}

	fmt.Print(output)
	return nil
}

func (om *OutputManager) JSON(items []*batch.Item) (string, error) {
	type row struct {
		Filename     string `json:"filename"`
		Status       string `json:"status"`
		Output       string `json:"output,omitempty"`
		BytesIn      int64  `json:"bytes_in,omitempty"`
		BytesOut     int64  `json:"bytes_out,omitempty"`
		DurationMs   int64  `json:"duration_ms,omitempty"`
		ErrorMessage string `json:"error,omitempty"`
	}
	rows := make([]row, 0, len(items))
	for _, it := range items {
		r := row{
			Filename:     it.Filename,
			Status:       string(it.Status),
			DurationMs:   it.DurationMs,
			ErrorMessage: it.Error,
		}
		if it.Result != nil {
			r.Output = it.Result.Filename
			r.BytesIn = it.Result.OriginalSizeBytes
			r.BytesOut = it.Result.ConvertedSizeBytes
		}
		rows = append(rows, r)
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	return string(data), err
}

func (om *OutputManager) CSV(items []*batch.Item) (string, error) {
	var lines []string
	lines = append(lines, "Status,File,Output,BytesIn,BytesOut,Duration(ms),Error")

	for _, it := range items {
		output, bytesIn, bytesOut := "", int64(0), int64(0)
		if it.Result != nil {
			output = it.Result.Filename
			bytesIn = it.Result.OriginalSizeBytes
			bytesOut = it.Result.ConvertedSizeBytes
		}
		line := fmt.Sprintf("%s,%s,%s,%d,%d,%d,%s",
			it.Status,
			escapeCSV(it.Filename),
			escapeCSV(output),
			bytesIn,
			bytesOut,
			it.DurationMs,
			escapeCSV(it.Error))
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n") + "\n", nil
}

func (om *OutputManager) Table(items []*batch.Item) string {
	var lines []string

	lines = append(lines, fmt.Sprintf("%-10s %-30s %-30s %-12s %-12s %-40s",
		"STATUS", "FILE", "OUTPUT", "BYTES OUT", "TIME(ms)", "ERROR"))
	lines = append(lines, strings.Repeat("-", 136))

	for _, it := range items {
		output, bytesOut := "", int64(0)
		if it.Result != nil {
			output = it.Result.Filename
			bytesOut = it.Result.ConvertedSizeBytes
		}
		lines = append(lines, fmt.Sprintf("%-10s %-30s %-30s %-12d %-12d %-40s",
			it.Status,
			truncateString(it.Filename, 30),
			truncateString(output, 30),
			bytesOut,
			it.DurationMs,
			truncateString(it.Error, 40)))
	}

	return strings.Join(lines, "\n") + "\n"
}

func escapeCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
