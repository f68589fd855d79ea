package metrics_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flywheel-ml/flywheel/internal/domain"
	"github.com/flywheel-ml/flywheel/internal/metrics"
)

var _ = Describe("Detector", func() {
	var det *metrics.Detector

	BeforeEach(func() {
		det = metrics.NewDetector(metrics.DetectorConfig{
			PSIThreshold:      0.25,
			KLThreshold:       0.1,
			AccuracyThreshold: 0.85,
			WindowSize:        10000,
			Bins:              10,
		})
	})

	It("makes no decision below the 100-sample floor", func() {
		det.SetReference([]float64{1, 2, 3})
		for i := 0; i < 50; i++ {
			det.AddValue(float64(i))
		}
		result := det.CheckDrift()
		Expect(result.IsDrifted).To(BeFalse())
		Expect(result.PSIScore).To(BeNil())
		Expect(result.Severity).To(Equal(domain.DriftSeverityNone))
	})

	It("flags statistical drift once the window shifts", func() {
		reference := make([]float64, 1000)
		for i := range reference {
			reference[i] = float64(i) / 1000.0
		}
		det.SetReference(reference)
		for i := 0; i < 1000; i++ {
			det.AddValue(float64(i)/1000.0 + 0.5)
		}

		result := det.CheckDrift()
		Expect(result.IsDrifted).To(BeTrue())
		Expect(result.DriftType).To(Equal(domain.DriftTypeStatistical))
		Expect(*result.PSIScore).To(BeNumerically(">", 0.25))
	})

	It("flags performance drift when accuracy drops below threshold", func() {
		reference := make([]float64, 200)
		for i := range reference {
			reference[i] = float64(i)
			det.AddValue(float64(i))
		}
		det.SetReference(reference)
		det.SetBaselineAccuracy(0.95)

		for i := 0; i < 100; i++ {
			det.RecordPrediction(true, false, 1000, false)
		}

		result := det.CheckDrift()
		Expect(result.IsDrifted).To(BeTrue())
		Expect(result.DriftType).To(BeElementOf(domain.DriftTypePerformance, domain.DriftTypeBoth))
		Expect(*result.AccuracyDelta).To(BeNumerically(">", 0))
	})
})
