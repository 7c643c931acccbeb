package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/loom-ml/loom/internal/nn"
	"github.com/loom-ml/loom/internal/train"
)

// SaveMetricsArchive writes the run's metric history as gzip-compressed
// JSON under dir and returns the written path.
func SaveMetricsArchive(history *train.History, lr float64, batchSize int, dir string, now time.Time) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("metrics-lr-%s-batch-%d-%s.json.gz",
		strconv.FormatFloat(lr, 'g', -1, 64), batchSize, now.Format(nn.TimestampLayout)))
	if err := writeGzipJSON(path, history); err != nil {
		return "", err
	}
	return path, nil
}

// LoadMetricsArchive reads a history archive written by
// SaveMetricsArchive.
func LoadMetricsArchive(path string) (*train.History, error) {
	var history train.History
	if err := readGzipJSON(path, &history); err != nil {
		return nil, err
	}
	return &history, nil
}

// SaveConfusionArchive writes the normalized confusion matrix as
// gzip-compressed JSON under dir and returns the written path.
func SaveConfusionArchive(rows [][]float64, dir string, now time.Time) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("confusion-matrix-%s.json.gz", now.Format(nn.TimestampLayout)))
	if err := writeGzipJSON(path, rows); err != nil {
		return "", err
	}
	return path, nil
}

// LoadConfusionArchive reads a matrix archive written by
// SaveConfusionArchive.
func LoadConfusionArchive(path string) ([][]float64, error) {
	var rows [][]float64
	if err := readGzipJSON(path, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func writeGzipJSON(path string, v any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(v); err != nil {
		return fmt.Errorf("failed to encode archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

func readGzipJSON(path string, v any) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}
	defer func() {
		if closeErr := gz.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := json.NewDecoder(gz).Decode(v); err != nil {
		return fmt.Errorf("failed to decode archive: %w", err)
	}
	return nil
}
