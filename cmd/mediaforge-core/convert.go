package main

import (
	"context"
	"fmt"

	"github.com/MediaForgeNet/mediaforge-core/internal/batch"
	"github.com/MediaForgeNet/mediaforge-core/internal/cli"
	"github.com/MediaForgeNet/mediaforge-core/internal/codec"
	"github.com/MediaForgeNet/mediaforge-core/internal/convert"
	"github.com/MediaForgeNet/mediaforge-core/internal/logger"
	"github.com/MediaForgeNet/mediaforge-core/internal/mediautil"
	"github.com/MediaForgeNet/mediaforge-core/internal/transform"
	workerpool "github.com/MediaForgeNet/mediaforge-core/internal/worker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	listFile     string
	targetFormat string
	quality      int
	lossless     bool
	outputDir    string
	outputFormat string
	outputFile   string
	showProgress bool
	resizeWidth  int
	resizeHeight int
	keepAspect   bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "mediaforge-core batch converter",
	Long:  `Convert images, GIFs and video files to a target format in one batch, with per-item retry and statistics.`,
	Run:   runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&listFile, "file", "i", "", "File containing input paths (one per line)")
	convertCmd.Flags().StringVarP(&targetFormat, "to", "T", "webp", "Target format: webp, jpeg, png, gif, bmp, tiff, mp4, webm")
	convertCmd.Flags().IntVarP(&quality, "quality", "q", 0, "Encode quality 1-100 (0 uses the format default)")
	convertCmd.Flags().BoolVar(&lossless, "lossless", false, "Lossless webp encoding")
	convertCmd.Flags().StringVarP(&outputDir, "out-dir", "d", "", "Directory for converted files (default: working directory)")
	convertCmd.Flags().StringVarP(&outputFormat, "format", "f", "table", "Report format: table, json, csv")
	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Report file (default: stdout)")
	convertCmd.Flags().BoolVar(&showProgress, "progress", true, "Show progress during conversion")
	convertCmd.Flags().IntVar(&resizeWidth, "width", 0, "Resize width before conversion")
	convertCmd.Flags().IntVar(&resizeHeight, "height", 0, "Resize height before conversion")
	convertCmd.Flags().BoolVar(&keepAspect, "keep-aspect", true, "Maintain aspect ratio when resizing")
}

func runConvert(cmd *cobra.Command, args []string) {
	log, err := logger.NewForCLI(cfg.App.LogLevel)
	if err != nil {
		fmt.Println("Failed to initialize logger:", err)
		return
	}
	defer func() {
		_ = log.Sync()
	}()

	target, err := mediautil.ParseFormat(targetFormat)
	if err != nil {
		log.Error("invalid target format", zap.Error(err))
		return
	}

	reader := cli.NewPathReader()
	processor := cli.NewPathProcessor()
	outputManager := cli.NewOutputManager()
	summaryPrinter := cli.NewSummaryPrinter()

	paths, source, err := reader.ReadPaths(listFile, args)
	if err != nil {
		log.Error("error reading input paths", zap.Error(err))
		return
	}
	uniquePaths := processor.RemoveDuplicates(paths)
	if len(uniquePaths) == 0 {
		log.Error("no input files provided")
		return
	}

	log.Info("input reading completed",
		zap.String("source", source),
		zap.Int("total", len(paths)),
		zap.Int("unique", len(uniquePaths)))

	var files []*mediautil.File
	for _, p := range uniquePaths {
		f, err := mediautil.ReadFile(p)
		if err != nil {
			log.Error("cannot read input file", zap.String("path", p), zap.Error(err))
			return
		}
		files = append(files, f)
	}

	ffmpeg := effectiveFFmpeg()
	pool := workerpool.NewPool(
		workerpool.Config{UnitCount: effectiveWorkerCount()},
		func() (codec.Engine, error) { return codec.NewRouterEngine(ffmpeg) },
		log,
	)

	ctx := context.Background()
	if err := pool.Initialize(ctx); err != nil {
		log.Fatal("failed to initialize worker pool", zap.Error(err))
	}
	defer pool.Terminate()

	service := convert.NewService(pool, log)
	manager := batch.NewManager(service, pool.UnitCount(), log)

	progress := cli.NewProgressPrinter(showProgress)
	unsubscribe := manager.Subscribe(progress.Observe)
	defer unsubscribe()

	manager.AddFiles(files)

	if resizeWidth > 0 || resizeHeight > 0 {
		manager.ApplyResizeConfigToAll(resizeConfig())
	}

	opts := codec.Options{Quality: quality, Lossless: lossless}
	if opts.Quality == 0 {
		opts.Quality = cfg.App.DefaultQuality
	}
	if err := manager.ProcessBatch(ctx, target, opts); err != nil {
		log.Error("batch processing failed", zap.Error(err))
		return
	}
	progress.Finish()

	state := manager.GetState()
	if err := outputManager.WriteFiles(state.Items, outputDir); err != nil {
		log.Error("failed to write converted files", zap.Error(err))
		return
	}

	outputOptions := cli.OutputOptions{
		Format:   outputFormat,
		Filename: outputFile,
		Dir:      outputDir,
	}
	if err := outputManager.Output(state.Items, outputOptions); err != nil {
		log.Error("failed to output results", zap.Error(err))
		return
	}

	summaryPrinter.PrintSummary(state, manager.GetStatistics())
}

func resizeConfig() transform.Config {
	return transform.Config{
		Preset:              transform.PresetCustom,
		Width:               resizeWidth,
		Height:              resizeHeight,
		MaintainAspectRatio: keepAspect,
	}
}
