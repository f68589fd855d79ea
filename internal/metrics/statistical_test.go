package metrics_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flywheel-ml/flywheel/internal/metrics"
)

var _ = Describe("ComputePSI", func() {
	It("reports low PSI for identical distributions", func() {
		reference := make([]float64, 1000)
		current := make([]float64, 1000)
		for i := range reference {
			reference[i] = float64(i) / 1000.0
			current[i] = float64(i) / 1000.0
		}

		Expect(metrics.ComputePSI(reference, current, 10)).To(BeNumerically("<", 0.1))
	})

	It("reports high PSI for a shifted distribution", func() {
		reference := make([]float64, 1000)
		current := make([]float64, 1000)
		for i := range reference {
			reference[i] = float64(i) / 1000.0
			current[i] = float64(i)/1000.0 + 0.5
		}

		Expect(metrics.ComputePSI(reference, current, 10)).To(BeNumerically(">", 0.1))
	})
})

var _ = Describe("ComputeKLDivergence", func() {
	It("is zero for identical proportion vectors", func() {
		p := []float64{0.25, 0.25, 0.25, 0.25}
		Expect(metrics.ComputeKLDivergence(p, p)).To(BeNumerically("~", 0, 1e-9))
	})

	It("is positive for diverging proportion vectors", func() {
		p := []float64{0.9, 0.1}
		q := []float64{0.1, 0.9}
		Expect(metrics.ComputeKLDivergence(p, q)).To(BeNumerically(">", 0))
	})
})
