package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/flywheel-ml/flywheel/internal/domain"
)

// FormatWriter writes LabeledExamples to an underlying io.Writer in one
// serialization format, mirroring the original's FormatWriter trait
// (JsonLinesWriter/CsvWriter/ParquetBatchWriter).
type FormatWriter interface {
	Write(e domain.LabeledExample) error
	Flush() error
}

// NewFormatWriter selects a FormatWriter for format, writing to w.
func NewFormatWriter(format string, w io.Writer) FormatWriter {
	switch format {
	case "csv":
		return NewCSVWriter(w)
	case "parquet":
		// No pure-Go Parquet library is carried by the example corpus, so
		// columnar output falls back to the same newline-delimited JSON
		// encoding as JSONL, under the .parquet extension, until a real
		// writer is wired in.
		return NewJSONLinesWriter(w)
	default:
		return NewJSONLinesWriter(w)
	}
}

// JSONLinesWriter writes one JSON object per line.
type JSONLinesWriter struct {
	w *bufio.Writer
}

func NewJSONLinesWriter(w io.Writer) *JSONLinesWriter {
	return &JSONLinesWriter{w: bufio.NewWriter(w)}
}

func (j *JSONLinesWriter) Write(e domain.LabeledExample) error {
	line, err := marshalExample(e)
	if err != nil {
		return err
	}
	if _, err := j.w.Write(line); err != nil {
		return err
	}
	return j.w.WriteByte('\n')
}

func (j *JSONLinesWriter) Flush() error {
	return j.w.Flush()
}

// CSVWriter writes one row per example, JSON-encoding the nested
// features/prediction/ground-truth fields into single cells.
type CSVWriter struct {
	w             *csv.Writer
	headerWritten bool
}

func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

var csvHeader = []string{
	"example_id", "prediction_id", "model_id", "model_version",
	"features", "prediction", "ground_truth",
	"prediction_timestamp", "feedback_timestamp", "delay_ms",
	"feedback_confidence", "is_correct",
}

func (c *CSVWriter) Write(e domain.LabeledExample) error {
	if !c.headerWritten {
		if err := c.w.Write(csvHeader); err != nil {
			return err
		}
		c.headerWritten = true
	}

	gtJSON, err := domain.MarshalGroundTruth(e.GroundTruth)
	if err != nil {
		return err
	}
	isCorrect := ""
	if e.IsCorrect != nil {
		isCorrect = strconv.FormatBool(*e.IsCorrect)
	}
	row := []string{
		e.ExampleID, e.PredictionID, e.ModelID, e.ModelVersion,
		string(e.FeaturesJSON), string(e.PredictionJSON), string(gtJSON),
		e.PredictionTimestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		e.FeedbackTimestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		strconv.FormatInt(e.DelayMs, 10),
		strconv.FormatFloat(e.FeedbackConfidence, 'f', -1, 64),
		isCorrect,
	}
	return c.w.Write(row)
}

func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

func marshalExample(e domain.LabeledExample) ([]byte, error) {
	gtJSON, err := domain.MarshalGroundTruth(e.GroundTruth)
	if err != nil {
		return nil, fmt.Errorf("marshal ground truth: %w", err)
	}
	doc := struct {
		ExampleID           string          `json:"example_id"`
		PredictionID        string          `json:"prediction_id"`
		ModelID             string          `json:"model_id"`
		ModelVersion        string          `json:"model_version"`
		Features            json.RawMessage `json:"features"`
		Prediction          json.RawMessage `json:"prediction"`
		GroundTruth         json.RawMessage `json:"ground_truth"`
		PredictionTimestamp string          `json:"prediction_timestamp"`
		FeedbackTimestamp   string          `json:"feedback_timestamp"`
		DelayMs             int64           `json:"delay_ms"`
		FeedbackConfidence  float64         `json:"feedback_confidence"`
		IsCorrect           *bool           `json:"is_correct,omitempty"`
	}{
		ExampleID: e.ExampleID, PredictionID: e.PredictionID, ModelID: e.ModelID,
		ModelVersion: e.ModelVersion, Features: e.FeaturesJSON, Prediction: e.PredictionJSON,
		GroundTruth:         gtJSON,
		PredictionTimestamp: e.PredictionTimestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		FeedbackTimestamp:   e.FeedbackTimestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		DelayMs:             e.DelayMs, FeedbackConfidence: e.FeedbackConfidence, IsCorrect: e.IsCorrect,
	}
	return json.Marshal(doc)
}
