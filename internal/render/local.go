package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harborview/reportd/internal/job"
)

// LocalRenderer writes the job payload to a file under a local output
// directory and returns the file path. It stands in for a real document
// renderer: the plumbing around it (naming, placement, the returned
// location reference) is what the job system depends on, not the
// content of the bytes.
type LocalRenderer struct {
	outputDir string
}

// NewLocalRenderer creates a renderer rooted at outputDir, creating the
// directory if needed.
func NewLocalRenderer(outputDir string) (*LocalRenderer, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &LocalRenderer{outputDir: outputDir}, nil
}

// Render writes the payload to <outputDir>/<job-id>.<format> and
// returns the resulting path.
func (r *LocalRenderer) Render(_ context.Context, j *job.Job) (string, error) {
	name := fmt.Sprintf("%s.%s", j.ID, j.Format)
	path := filepath.Join(r.outputDir, name)
	if err := os.WriteFile(path, j.Payload, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report output: %w", err)
	}
	return path, nil
}
