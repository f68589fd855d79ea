package runner

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/flywheel-ml/flywheel/internal/domain"
)

// loadBaseline reads a drift-detection stage's reference distribution: one
// float per line. Only file:// URIs are supported directly — object
// storage (s3://, gs://) is an external collaborator's upload/fetch
// concern (spec §1's "object-storage uploaders" exclusion), so those
// schemes fail with a clear config error rather than a silent no-op.
func loadBaseline(uri string) ([]float64, error) {
	path, ok := strings.CutPrefix(uri, "file://")
	if !ok {
		return nil, domain.NewError("runner.loadBaseline", "config",
			fmt.Errorf("%w: unsupported baseline scheme %q, only file:// is read directly", domain.ErrConfig, uri))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, domain.NewError("runner.loadBaseline", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	defer f.Close()

	var values []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, domain.NewError("runner.loadBaseline", "config", fmt.Errorf("%w: %v", domain.ErrConfig, err))
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.NewError("runner.loadBaseline", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	return values, nil
}
