package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flywheel-ml/flywheel/internal/domain"
)

// PartitionKey names a LabeledExample field the LocalExporter partitions
// output directories by.
type PartitionKey string

const (
	PartitionModelID      PartitionKey = "model_id"
	PartitionModelVersion PartitionKey = "model_version"
	PartitionDate         PartitionKey = "date"
)

// LocalExporter writes labeled examples to a partitioned directory tree
// under OutputDir, one file per partition per flush, grounded on
// LocalExporter from the original exporter.rs.
type LocalExporter struct {
	OutputDir   string
	Format      string
	PartitionBy []PartitionKey
}

// NewLocalExporter constructs a LocalExporter with the original's default
// partitioning (model_id, then date) when partitionBy is empty.
func NewLocalExporter(outputDir, format string, partitionBy []PartitionKey) *LocalExporter {
	if len(partitionBy) == 0 {
		partitionBy = []PartitionKey{PartitionModelID, PartitionDate}
	}
	return &LocalExporter{OutputDir: outputDir, Format: format, PartitionBy: partitionBy}
}

// ExportBatch partitions examples and writes one file per partition.
// Returns the file paths written. A nil/empty batch is a no-op.
func (l *LocalExporter) ExportBatch(examples []domain.LabeledExample) ([]string, error) {
	if len(examples) == 0 {
		return nil, nil
	}

	partitions := make(map[string][]domain.LabeledExample)
	for _, e := range examples {
		key := l.partitionPath(e)
		partitions[key] = append(partitions[key], e)
	}

	var written []string
	for relPath, group := range partitions {
		dir := filepath.Join(l.OutputDir, relPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return written, domain.NewError("export.ExportBatch", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
		}
		path, err := l.writeFile(dir, group)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// Export implements domain.TrainingExporter, joining the (possibly
// several, one-per-partition) file paths ExportBatch wrote into a single
// comma-separated location string.
func (l *LocalExporter) Export(ctx context.Context, examples []domain.LabeledExample) (string, error) {
	written, err := l.ExportBatch(examples)
	if err != nil {
		return "", err
	}
	return strings.Join(written, ","), nil
}

func (l *LocalExporter) writeFile(dir string, examples []domain.LabeledExample) (string, error) {
	ext := l.Format
	if ext == "" {
		ext = "jsonl"
	}
	filename := fmt.Sprintf("examples_%d.%s", timeNowMillis(), ext)
	path := filepath.Join(dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", domain.NewError("export.writeFile", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	defer f.Close()

	w := NewFormatWriter(l.Format, f)
	for _, e := range examples {
		if err := w.Write(e); err != nil {
			return "", domain.NewError("export.writeFile", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
		}
	}
	if err := w.Flush(); err != nil {
		return "", domain.NewError("export.writeFile", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	return path, nil
}

func (l *LocalExporter) partitionPath(e domain.LabeledExample) string {
	parts := make([]string, 0, len(l.PartitionBy))
	for _, key := range l.PartitionBy {
		switch key {
		case PartitionModelID:
			parts = append(parts, "model_id="+e.ModelID)
		case PartitionModelVersion:
			parts = append(parts, "model_version="+e.ModelVersion)
		case PartitionDate:
			parts = append(parts, "date="+e.PredictionTimestamp.Format("2006-01-02"))
		}
	}
	return strings.Join(parts, string(filepath.Separator))
}

// timeNowMillis is a var so tests can stub it for deterministic filenames.
var timeNowMillis = func() int64 {
	return time.Now().UnixMilli()
}

var _ domain.TrainingExporter = (*LocalExporter)(nil)
