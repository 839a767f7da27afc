package main

import (
	"log"

	"github.com/MediaForgeNet/mediaforge-core/internal/probe"
	"github.com/spf13/cobra"
)

var (
	port          string
	maxConcurrent int
)

var rootCmd = &cobra.Command{
	Use:   "mediaprobe",
	Short: "MediaForge Media Probe Service",
	Long:  `A service to sniff the format and dimensions of uploaded media files including JPEG, PNG, GIF, WebP, BMP, TIFF, AVIF, HEIC, MP4 and WebM.`,
	Run: func(cmd *cobra.Command, args []string) {
		srv := probe.NewService(maxConcurrent)
		if err := srv.StartServer(port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&port, "port", "p", "8090", "Port to run the service on")
	rootCmd.PersistentFlags().IntVarP(&maxConcurrent, "concurrent", "c", probe.DefaultMaxConcurrent, "Maximum concurrent probes")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
