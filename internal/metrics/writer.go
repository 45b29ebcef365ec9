package metrics

// Metrics output (CSV/JSON) and summary formatting

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Writer streams metrics to a CSV file, a JSON file, or both.
type Writer struct {
	csvFile   *os.File
	csvWriter *csv.Writer
	jsonFile  *os.File
	jsonCount int
}

var csvHeader = []string{
	"timestamp",
	"sequence",
	"capture_index",
	"bytes",
	"success",
	"delay_ms",
	"lateness_ms",
	"error",
}

// NewWriter opens the given outputs. Empty paths are skipped.
func NewWriter(csvPath, jsonPath string) (*Writer, error) {
	w := &Writer{}

	if csvPath != "" {
		file, err := os.Create(csvPath)
		if err != nil {
			return nil, fmt.Errorf("create CSV file: %w", err)
		}
		w.csvFile = file
		w.csvWriter = csv.NewWriter(file)
		if err := w.csvWriter.Write(csvHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("write CSV header: %w", err)
		}
	}

	if jsonPath != "" {
		file, err := os.Create(jsonPath)
		if err != nil {
			if w.csvFile != nil {
				w.csvFile.Close()
			}
			return nil, fmt.Errorf("create JSON file: %w", err)
		}
		w.jsonFile = file
		if _, err := file.WriteString("["); err != nil {
			file.Close()
			if w.csvFile != nil {
				w.csvFile.Close()
			}
			return nil, fmt.Errorf("write JSON start: %w", err)
		}
	}

	return w, nil
}

// WriteMetric appends one metric to every open output.
func (w *Writer) WriteMetric(m Metric) error {
	if w.csvWriter != nil {
		record := []string{
			m.Timestamp.Format(time.RFC3339Nano),
			strconv.Itoa(m.Sequence),
			strconv.Itoa(m.CaptureIndex),
			strconv.Itoa(m.Bytes),
			strconv.FormatBool(m.Success),
			formatMs(m.DelayMs),
			formatMs(m.LatenessMs),
			m.Error,
		}
		if err := w.csvWriter.Write(record); err != nil {
			return fmt.Errorf("write CSV record: %w", err)
		}
	}

	if w.jsonFile != nil {
		data, err := json.MarshalIndent(m, "  ", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		sep := ",\n  "
		if w.jsonCount == 0 {
			sep = "\n  "
		}
		if _, err := w.jsonFile.WriteString(sep); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
		if _, err := w.jsonFile.Write(data); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
		w.jsonCount++
	}

	return nil
}

// WriteAll writes every metric in order.
func (w *Writer) WriteAll(metrics []Metric) error {
	for _, m := range metrics {
		if err := w.WriteMetric(m); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes all outputs.
func (w *Writer) Close() error {
	var errs []error

	if w.csvWriter != nil {
		w.csvWriter.Flush()
		if err := w.csvWriter.Error(); err != nil {
			errs = append(errs, err)
		}
	}
	if w.csvFile != nil {
		if err := w.csvFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if w.jsonFile != nil {
		if _, err := w.jsonFile.WriteString("\n]\n"); err != nil {
			errs = append(errs, err)
		}
		if err := w.jsonFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close writer: %v", errs)
	}
	return nil
}

func formatMs(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// FormatSummary formats a summary for human-readable output
func FormatSummary(summary *Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Packets: %d (%d sent, %d failed)\n", summary.TotalPackets, summary.Sent, summary.Failed)
	if summary.Sent == 0 {
		return b.String()
	}
	fmt.Fprintf(&b, "Send lateness:\n")
	fmt.Fprintf(&b, "  Min: %.3f ms\n", summary.MinLateness)
	fmt.Fprintf(&b, "  Max: %.3f ms\n", summary.MaxLateness)
	fmt.Fprintf(&b, "  Avg: %.3f ms\n", summary.AvgLateness)
	fmt.Fprintf(&b, "  P50: %.3f ms\n", summary.P50Lateness)
	fmt.Fprintf(&b, "  P90: %.3f ms\n", summary.P90Lateness)
	fmt.Fprintf(&b, "  P99: %.3f ms\n", summary.P99Lateness)
	fmt.Fprintf(&b, "  Buckets: <1ms=%d 1-5ms=%d 5-10ms=%d 10-50ms=%d 50-100ms=%d 100-500ms=%d >500ms=%d\n",
		summary.LatenessBuckets["lt_1ms"],
		summary.LatenessBuckets["1_5ms"],
		summary.LatenessBuckets["5_10ms"],
		summary.LatenessBuckets["10_50ms"],
		summary.LatenessBuckets["50_100ms"],
		summary.LatenessBuckets["100_500ms"],
		summary.LatenessBuckets["gt_500ms"],
	)
	return b.String()
}
