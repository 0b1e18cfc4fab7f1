package render

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview/reportd/internal/job"
)

func TestLocalRendererWritesOutput(t *testing.T) {
	dir := t.TempDir()
	r, err := NewLocalRenderer(dir)
	require.NoError(t, err)

	j := job.New(job.KindPropertyCard, job.FormatHTML, []byte("<html>12 Main St</html>"), "appraiser-1", 1)

	location, err := r.Render(context.Background(), j)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, j.ID.String()+".html"), location)

	data, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Equal(t, j.Payload, data)
}

func TestNewLocalRendererCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "reports")

	_, err := NewLocalRenderer(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
