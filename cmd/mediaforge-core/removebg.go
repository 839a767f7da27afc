package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MediaForgeNet/mediaforge-core/internal/cli"
	"github.com/MediaForgeNet/mediaforge-core/internal/codec"
	"github.com/MediaForgeNet/mediaforge-core/internal/logger"
	"github.com/MediaForgeNet/mediaforge-core/internal/mediautil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	removeBgListFile string
	removeBgOutDir   string
	removeBgBinary   string
)

var removeBgCmd = &cobra.Command{
	Use:   "removebg [files...]",
	Short: "Remove image backgrounds",
	Long:  `Strip the background from every input image using the rembg segmentation model. Results are written as PNG with alpha.`,
	Run:   runRemoveBg,
}

func init() {
	removeBgCmd.Flags().StringVarP(&removeBgListFile, "file", "i", "", "File containing input paths (one per line)")
	removeBgCmd.Flags().StringVarP(&removeBgOutDir, "out-dir", "d", "", "Directory for output files (default: working directory)")
	removeBgCmd.Flags().StringVar(&removeBgBinary, "rembg", "", "Path to the rembg binary")
	rootCmd.AddCommand(removeBgCmd)
}

func runRemoveBg(cmd *cobra.Command, args []string) {
	log, err := logger.NewForCLI(cfg.App.LogLevel)
	if err != nil {
		fmt.Println("Failed to initialize logger:", err)
		return
	}
	defer func() {
		_ = log.Sync()
	}()

	reader := cli.NewPathReader()
	processor := cli.NewPathProcessor()

	paths, _, err := reader.ReadPaths(removeBgListFile, args)
	if err != nil {
		log.Error("error reading input paths", zap.Error(err))
		return
	}
	uniquePaths := processor.RemoveDuplicates(paths)
	if len(uniquePaths) == 0 {
		log.Error("no input files provided")
		return
	}

	var files []*mediautil.File
	for _, p := range uniquePaths {
		f, err := mediautil.ReadFile(p)
		if err != nil {
			log.Error("cannot read input file", zap.String("path", p), zap.Error(err))
			return
		}
		files = append(files, f)
	}

	ctx := context.Background()
	remover := codec.NewBackgroundRemover(removeBgBinary)
	if err := remover.Initialize(ctx); err != nil {
		log.Fatal("background remover unavailable", zap.Error(err))
	}

	results := remover.ProcessMany(ctx, files)
	log.Info("background removal finished",
		zap.Int("input", len(files)),
		zap.Int("succeeded", len(results)))

	for _, r := range results {
		path := r.Name
		if removeBgOutDir != "" {
			if err := os.MkdirAll(removeBgOutDir, 0o755); err != nil {
				log.Error("create output dir", zap.Error(err))
				return
			}
			path = filepath.Join(removeBgOutDir, r.Name)
		}
		if err := os.WriteFile(path, r.Data, 0o644); err != nil {
			log.Error("write output", zap.String("path", path), zap.Error(err))
			return
		}
		fmt.Println(path)
	}

	if len(results) < len(files) {
		log.Warn("some images failed", zap.Int("failed", len(files)-len(results)))
	}
}
