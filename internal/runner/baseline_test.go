package runner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBaseline_ReadsNewlineDelimitedFloats(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "baseline.txt")
	require.NoError(t, os.WriteFile(path, []byte("1.0\n2.5\n\n3.25\n"), 0o644))

	values, err := loadBaseline("file://" + path)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.0, 2.5, 3.25}, values)
}

func TestLoadBaseline_UnsupportedSchemeIsConfigError(t *testing.T) {
	_, err := loadBaseline("s3://bucket/baseline.txt")
	require.Error(t, err)
}

func TestLoadBaseline_MissingFileIsIOError(t *testing.T) {
	_, err := loadBaseline("file:///no/such/path/baseline.txt")
	require.Error(t, err)
}
