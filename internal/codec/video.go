package codec

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MediaForgeNet/mediaforge-core/internal/mediautil"
)

// VideoOptions are the transcode knobs passed to the ffmpeg command line.
type VideoOptions struct {
	CRF        int     // constant rate factor, 0 means codec default
	BitrateK   int     // target bitrate in kbit/s, overrides CRF when set
	Width      int     // output width, 0 keeps source
	Height     int     // output height, 0 keeps source
	TrimStart  float64 // seconds
	TrimEnd    float64 // seconds, 0 means end of input
	VideoCodec string  // e.g. libx264, libvpx-vp9
	MuteAudio  bool
}

// VideoEngine shells out to ffmpeg. Input and output live in a scratch
// directory the engine manages; callers only exchange byte slices.
type VideoEngine struct {
	binary string
}

// NewVideoEngine locates ffmpeg on PATH. Construction fails when the binary
// is missing so the pool refuses to start a unit that cannot work.
func NewVideoEngine(binary string) (Engine, error) {
	if binary == "" {
		binary = "ffmpeg"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	return &VideoEngine{binary: path}, nil
}

func (e *VideoEngine) Name() string { return "video" }

func (e *VideoEngine) Process(ctx context.Context, req *Request) (*Response, error) {
	scratch, err := os.MkdirTemp("", "mediaforge-video-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	input := filepath.Join(scratch, "input"+req.SourceFormat.Extension())
	output := filepath.Join(scratch, "output"+req.TargetFormat.Extension())
	if err := os.WriteFile(input, req.Payload, 0o600); err != nil {
		return nil, fmt.Errorf("write scratch input: %w", err)
	}

	opts := videoOptionsFrom(req.Options)
	args := BuildFFmpegArgs(input, output, req.TargetFormat, opts)

	cmd := exec.CommandContext(ctx, e.binary, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe ffmpeg stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	var tail []string
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	var totalSecs float64
	for scanner.Scan() {
		line := scanner.Text()
		tail = append(tail, line)
		if len(tail) > 20 {
			tail = tail[1:]
		}
		if totalSecs == 0 {
			totalSecs = parseDurationLine(line)
		}
		if done := parseTimeLine(line); done > 0 && totalSecs > 0 {
			percent := int(done / totalSecs * 100)
			if percent > 99 {
				percent = 99
			}
			report(req.OnProgress, "transcoding", percent)
		}
	}

	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w\n%s", err, strings.Join(tail, "\n"))
	}

	data, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("read scratch output: %w", err)
	}

	report(req.OnProgress, "done", 100)
	return &Response{Payload: data}, nil
}

// BuildFFmpegArgs assembles the explicit argument list for one transcode.
func BuildFFmpegArgs(input, output string, target mediautil.Format, opts VideoOptions) []string {
	args := []string{"-hide_banner", "-y"}

	if opts.TrimStart > 0 {
		args = append(args, "-ss", formatSeconds(opts.TrimStart))
	}
	args = append(args, "-i", input)
	if opts.TrimEnd > opts.TrimStart {
		args = append(args, "-t", formatSeconds(opts.TrimEnd-opts.TrimStart))
	}

	codec := opts.VideoCodec
	if codec == "" {
		switch target {
		case mediautil.FormatWebM:
			codec = "libvpx-vp9"
		default:
			codec = "libx264"
		}
	}
	args = append(args, "-c:v", codec)

	if opts.BitrateK > 0 {
		args = append(args, "-b:v", fmt.Sprintf("%dk", opts.BitrateK))
	} else if opts.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(opts.CRF))
	}

	if opts.Width > 0 || opts.Height > 0 {
		w, h := opts.Width, opts.Height
		if w == 0 {
			w = -2
		}
		if h == 0 {
			h = -2
		}
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", w, h))
	}

	if opts.MuteAudio {
		args = append(args, "-an")
	}

	return append(args, output)
}

// EstimateRemaining extrapolates remaining processing time linearly from the
// elapsed time and the completed fraction. The estimate is approximate by
// construction and callers must treat it as such.
func EstimateRemaining(elapsed time.Duration, percent float64) time.Duration {
	if percent <= 0 {
		return 0
	}
	total := float64(elapsed) / percent * 100
	return time.Duration(total - float64(elapsed))
}

func videoOptionsFrom(opts Options) VideoOptions {
	// Quality maps onto CRF space: higher quality means lower CRF.
	v := VideoOptions{}
	if opts.Quality > 0 {
		crf := 51 - opts.Quality*33/100
		if crf < 18 {
			crf = 18
		}
		v.CRF = crf
	}
	return v
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

func parseDurationLine(line string) float64 {
	idx := strings.Index(line, "Duration: ")
	if idx < 0 {
		return 0
	}
	field := line[idx+len("Duration: "):]
	if end := strings.Index(field, ","); end > 0 {
		field = field[:end]
	}
	return parseClock(strings.TrimSpace(field))
}

func parseTimeLine(line string) float64 {
	idx := strings.Index(line, "time=")
	if idx < 0 {
		return 0
	}
	field := line[idx+len("time="):]
	if end := strings.IndexByte(field, ' '); end > 0 {
		field = field[:end]
	}
	return parseClock(field)
}

// parseClock parses ffmpeg's HH:MM:SS.cc stamps into seconds.
func parseClock(s string) float64 {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0
	}
	h, err1 := strconv.ParseFloat(parts[0], 64)
	m, err2 := strconv.ParseFloat(parts[1], 64)
	sec, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0
	}
	return h*3600 + m*60 + sec
}
