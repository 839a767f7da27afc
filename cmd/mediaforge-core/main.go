package main

import (
	"fmt"
	"log"
	"runtime"

	"github.com/MediaForgeNet/mediaforge-core/internal/config"
	"github.com/spf13/cobra"
)

// Build-time variables (injected via -ldflags)
var (
	version   = "dev"     // Default for development
	commit    = "unknown" // Git commit hash
	date      = "unknown" // Build date
	goVersion = runtime.Version()
	platform  = runtime.GOOS + "/" + runtime.GOARCH

	workerCount int
	ffmpegPath  string

	cfg *config.Config
)

func getVersionInfo() string {
	commitHash := commit
	if len(commit) > 8 {
		commitHash = commit[:8]
	}
	return fmt.Sprintf("mediaforge-core %s (%s) built with %s on %s at %s",
		version, commitHash, goVersion, platform, date)
}

var rootCmd = &cobra.Command{
	Use:     "mediaforge-core",
	Version: version,
	Short:   "mediaforge-core media conversion service",
	Long:    `A batch media converter that runs images, GIFs and video through a pool of isolated codec execution units.`,
}

func init() {
	// Load configuration from environment variables
	cfg = config.Load()

	rootCmd.PersistentFlags().IntVarP(&workerCount, "workers", "w", 0, "Number of execution units (default: WORKER_COUNT or 4)")
	rootCmd.PersistentFlags().StringVar(&ffmpegPath, "ffmpeg", "", "Path to the ffmpeg binary")
	rootCmd.SetVersionTemplate(getVersionInfo() + "\n")

	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(convertCmd)
}

// effectiveWorkerCount lets the CLI flag override the environment.
func effectiveWorkerCount() int {
	if workerCount > 0 {
		return workerCount
	}
	return cfg.Worker.Count
}

func effectiveFFmpeg() string {
	if ffmpegPath != "" {
		return ffmpegPath
	}
	return cfg.FFmpeg.Binary
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
