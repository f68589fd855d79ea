package stages_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flywheel-ml/flywheel/internal/domain"
	"github.com/flywheel-ml/flywheel/internal/dsl"
	"github.com/flywheel-ml/flywheel/internal/export"
	"github.com/flywheel-ml/flywheel/internal/stages"
)

type fakeExporter struct {
	batches [][]domain.LabeledExample
}

func (f *fakeExporter) Export(ctx context.Context, examples []domain.LabeledExample) (string, error) {
	f.batches = append(f.batches, examples)
	return "fake://location", nil
}

func TestTrainingExportFlushesAtBatchSize(t *testing.T) {
	sampler := export.NewSampler(dsl.SamplingSpec{Strategy: dsl.SamplingAll}, nil)
	exporter := &fakeExporter{}
	stage := stages.NewTrainingExportStage("export", dsl.TrainingExport{DestinationURI: "file:///tmp"}, sampler, exporter, 2)

	for i := 0; i < 3; i++ {
		rec := stages.Record{LabeledExample: &domain.LabeledExample{
			ExampleID: "ex", PredictionTimestamp: time.Now(),
		}}
		require.NoError(t, stage.Process(context.Background(), &rec))
	}

	require.Len(t, exporter.batches, 1)
	assert.Len(t, exporter.batches[0], 2)

	require.NoError(t, stage.Flush(context.Background()))
	require.Len(t, exporter.batches, 2)
	assert.Len(t, exporter.batches[1], 1)
}

func TestTrainingExportSkipsRecordsWithoutLabeledExample(t *testing.T) {
	sampler := export.NewSampler(dsl.SamplingSpec{Strategy: dsl.SamplingAll}, nil)
	exporter := &fakeExporter{}
	stage := stages.NewTrainingExportStage("export", dsl.TrainingExport{DestinationURI: "file:///tmp"}, sampler, exporter, 10)

	rec := stages.Record{}
	require.NoError(t, stage.Process(context.Background(), &rec))
	require.NoError(t, stage.Flush(context.Background()))
	assert.Empty(t, exporter.batches)
}
