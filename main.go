package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/MediaForgeNet/mediaforge-core/internal/codec"
	"github.com/MediaForgeNet/mediaforge-core/internal/convert"
	"github.com/MediaForgeNet/mediaforge-core/internal/mediautil"
	workerpool "github.com/MediaForgeNet/mediaforge-core/internal/worker"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	DefaultWorkers   = 2
	DefaultQuality   = 85
	MaxUploadBytes   = 64 << 20
	ConvertTimeout   = 2 * time.Minute
	DefaultFFmpegBin = "ffmpeg"
)

// QuickConvertService converts a single uploaded file per request. It is
// a trimmed-down alternative to the full batch API for one-shot use.
type QuickConvertService struct {
	pool    *workerpool.Pool
	service *convert.Service
}

func NewQuickConvertService(workers int, logger *zap.Logger) (*QuickConvertService, error) {
	pool := workerpool.NewPool(workerpool.Config{UnitCount: workers}, func() (codec.Engine, error) {
		return codec.NewRouterEngine(DefaultFFmpegBin)
	}, logger)
	if err := pool.Initialize(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize worker pool: %w", err)
	}
	return &QuickConvertService{
		pool:    pool,
		service: convert.NewService(pool, logger),
	}, nil
}

func (qcs *QuickConvertService) handleConvert(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	if len(data) > MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return
	}

	target, err := mediautil.ParseFormat(c.DefaultQuery("format", "webp"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quality := DefaultQuality
	if q := c.Query("quality"); q != "" {
		if parsed, err := strconv.Atoi(q); err == nil && parsed >= 1 && parsed <= 100 {
			quality = parsed
		}
	}

	log.Printf("Converting file: %s -> %s", header.Filename, target)

	ctx, cancel := context.WithTimeout(c.Request.Context(), ConvertTimeout)
	defer cancel()

	result, err := qcs.service.Convert(ctx, &mediautil.File{Name: header.Filename, Data: data}, target, codec.Options{
		Quality:  quality,
		Lossless: c.Query("lossless") == "true",
	}, nil)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.MIMEType, result.Buffer)
}

func (qcs *QuickConvertService) handleHealth(c *gin.Context) {
	stats := qcs.pool.GetStats()
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "mediaforge-quick",
		"workers": stats.UnitCount,
		"time":    time.Now().Format(time.RFC3339),
	})
}

func main() {
	workers := DefaultWorkers
	port := "8080"

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	service, err := NewQuickConvertService(workers, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer service.pool.Terminate()

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", service.handleHealth)
	router.POST("/convert", service.handleConvert)
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "MediaForge Quick Convert",
			"version": "1.0.0",
			"endpoints": []string{
				"GET /health - Health check",
				"POST /convert?format=webp&quality=85 - Convert a single file (upload)",
			},
		})
	})

	log.Printf("MediaForge quick convert service starting on port %s", port)
	log.Printf("Workers: %d, Max upload: %d MB", workers, MaxUploadBytes>>20)

	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
