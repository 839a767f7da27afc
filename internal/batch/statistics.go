package batch

// Statistics aggregates the Complete items of the batch. Failed and pending
// items contribute nothing beyond their counts in State.
type Statistics struct {
	CompletedCount      int     `json:"completed_count"`
	TotalOriginalBytes  int64   `json:"total_original_bytes"`
	TotalConvertedBytes int64   `json:"total_converted_bytes"`
	TotalSavedBytes     int64   `json:"total_saved_bytes"`
	AvgCompressionRatio float64 `json:"avg_compression_ratio"`
	TotalDurationMs     int64   `json:"total_duration_ms"`
	AvgDurationMs       int64   `json:"avg_duration_ms"`
}

// GetStatistics derives the aggregate view from Complete items only. The
// compression ratio is the mean of each item's own ratio, not a
// ratio-of-sums.
func (m *Manager) GetStatistics() Statistics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats Statistics
	var ratioSum float64
	for _, it := range m.items {
		if it.Status != StatusComplete || it.Result == nil {
			continue
		}
		stats.CompletedCount++
		stats.TotalOriginalBytes += it.Result.OriginalSizeBytes
		stats.TotalConvertedBytes += it.Result.ConvertedSizeBytes
		stats.TotalDurationMs += it.DurationMs
		if it.Result.OriginalSizeBytes > 0 {
			ratioSum += float64(it.Result.ConvertedSizeBytes) / float64(it.Result.OriginalSizeBytes)
		}
	}

	if stats.CompletedCount > 0 {
		stats.AvgCompressionRatio = ratioSum / float64(stats.CompletedCount)
		stats.AvgDurationMs = stats.TotalDurationMs / int64(stats.CompletedCount)
	}
	stats.TotalSavedBytes = stats.TotalOriginalBytes - stats.TotalConvertedBytes
	return stats
}
