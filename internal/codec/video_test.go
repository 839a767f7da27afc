package codec

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/MediaForgeNet/mediaforge-core/internal/mediautil"
)

func TestBuildFFmpegArgsDefaults(t *testing.T) {
	args := BuildFFmpegArgs("in.mov", "out.mp4", mediautil.FormatMP4, VideoOptions{})
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "-i in.mov") {
		t.Fatalf("missing input: %s", joined)
	}
	if !strings.Contains(joined, "-c:v libx264") {
		t.Fatalf("mp4 should default to libx264: %s", joined)
	}
	if args[len(args)-1] != "out.mp4" {
		t.Fatalf("output must be last: %v", args)
	}
	if strings.Contains(joined, "-vf") || strings.Contains(joined, "-an") {
		t.Fatalf("unexpected optional flags: %s", joined)
	}
}

func TestBuildFFmpegArgsWebMCodec(t *testing.T) {
	args := BuildFFmpegArgs("in.mp4", "out.webm", mediautil.FormatWebM, VideoOptions{})
	if !strings.Contains(strings.Join(args, " "), "-c:v libvpx-vp9") {
		t.Fatalf("webm should default to libvpx-vp9: %v", args)
	}
}

func TestBuildFFmpegArgsTrimScaleMute(t *testing.T) {
	args := BuildFFmpegArgs("in.mp4", "out.mp4", mediautil.FormatMP4, VideoOptions{
		TrimStart: 1.5,
		TrimEnd:   4.5,
		Width:     640,
		MuteAudio: true,
		CRF:       23,
	})
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "-ss 1.500") {
		t.Fatalf("missing trim start: %s", joined)
	}
	if !strings.Contains(joined, "-t 3.000") {
		t.Fatalf("missing trim duration: %s", joined)
	}
	if !strings.Contains(joined, "-vf scale=640:-2") {
		t.Fatalf("missing scale filter: %s", joined)
	}
	if !strings.Contains(joined, "-an") {
		t.Fatalf("missing mute flag: %s", joined)
	}
	if !strings.Contains(joined, "-crf 23") {
		t.Fatalf("missing crf: %s", joined)
	}
}

func TestBuildFFmpegArgsBitrateWinsOverCRF(t *testing.T) {
	args := BuildFFmpegArgs("in.mp4", "out.mp4", mediautil.FormatMP4, VideoOptions{
		BitrateK: 2500,
		CRF:      20,
	})
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-b:v 2500k") {
		t.Fatalf("missing bitrate: %s", joined)
	}
	if strings.Contains(joined, "-crf") {
		t.Fatalf("crf must yield to explicit bitrate: %s", joined)
	}
}

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"00:00:10.00", 10},
		{"00:01:30.50", 90.5},
		{"01:00:00.00", 3600},
		{"garbage", 0},
		{"1:2", 0},
	}
	for _, tc := range cases {
		if got := parseClock(tc.in); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("parseClock(%q) = %f, want %f", tc.in, got, tc.want)
		}
	}
}

func TestParseDurationLine(t *testing.T) {
	line := "  Duration: 00:02:00.00, start: 0.000000, bitrate: 1205 kb/s"
	if got := parseDurationLine(line); got != 120 {
		t.Fatalf("parseDurationLine = %f, want 120", got)
	}
	if got := parseDurationLine("no duration here"); got != 0 {
		t.Fatalf("parseDurationLine on noise = %f, want 0", got)
	}
}

func TestParseTimeLine(t *testing.T) {
	line := "frame=  300 fps=100 q=28.0 size=  1024kB time=00:00:12.00 bitrate= 698.5kbits/s"
	if got := parseTimeLine(line); got != 12 {
		t.Fatalf("parseTimeLine = %f, want 12", got)
	}
	if got := parseTimeLine("frame=1 fps=1"); got != 0 {
		t.Fatalf("parseTimeLine on noise = %f, want 0", got)
	}
}

func TestEstimateRemaining(t *testing.T) {
	if got := EstimateRemaining(10*time.Second, 25); got != 30*time.Second {
		t.Fatalf("EstimateRemaining(10s, 25%%) = %v, want 30s", got)
	}
	if got := EstimateRemaining(time.Minute, 100); got != 0 {
		t.Fatalf("EstimateRemaining at 100%% = %v, want 0", got)
	}
	if got := EstimateRemaining(time.Minute, 0); got != 0 {
		t.Fatalf("EstimateRemaining at 0%% = %v, want 0", got)
	}
}

func TestVideoOptionsFromQuality(t *testing.T) {
	if v := videoOptionsFrom(Options{}); v.CRF != 0 {
		t.Fatalf("zero quality should leave CRF unset, got %d", v.CRF)
	}
	if v := videoOptionsFrom(Options{Quality: 100}); v.CRF != 18 {
		t.Fatalf("quality 100 should clamp to CRF 18, got %d", v.CRF)
	}
	if v := videoOptionsFrom(Options{Quality: 50}); v.CRF != 51-50*33/100 {
		t.Fatalf("quality 50 CRF = %d", v.CRF)
	}
}

func TestNewVideoEngineMissingBinary(t *testing.T) {
	if _, err := NewVideoEngine("definitely-not-ffmpeg-xyz"); err == nil {
		t.Fatal("expected error for missing binary")
	}
}
