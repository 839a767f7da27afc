package cli

import (
	"fmt"

	"github.com/MediaForgeNet/mediaforge-core/internal/batch"
)

// SummaryPrinter renders the batch totals after a run.
type SummaryPrinter struct{}

func NewSummaryPrinter() *SummaryPrinter {
	return &SummaryPrinter{}
}

func (sp *SummaryPrinter) PrintSummary(state batch.State, stats batch.Statistics) {
	fmt.Println()
	fmt.Printf("Total:      %d\n", state.TotalItems)
	fmt.Printf("Converted:  %d\n", state.CompletedCount)
	fmt.Printf("Failed:     %d\n", state.FailedCount)
	if stats.CompletedCount > 0 {
		fmt.Printf("Bytes in:   %s\n", humanBytes(stats.TotalOriginalBytes))
		fmt.Printf("Bytes out:  %s\n", humanBytes(stats.TotalConvertedBytes))
		fmt.Printf("Saved:      %s (avg ratio %.2f)\n",
			humanBytes(stats.TotalSavedBytes), stats.AvgCompressionRatio)
		fmt.Printf("Time:       %dms total, %dms avg\n",
			stats.TotalDurationMs, stats.AvgDurationMs)
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit && n > -unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit || v <= -unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
