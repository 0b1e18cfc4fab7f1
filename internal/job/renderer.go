package job

import "context"

// Renderer is the collaborator that turns a job into output bytes. The
// job system treats rendering as an opaque, potentially failing
// operation of unknown duration; it cannot be interrupted once started.
type Renderer interface {
	Render(ctx context.Context, j *Job) (outputLocation string, err error)
}

// RenderFunc adapts a plain function to the Renderer interface.
type RenderFunc func(ctx context.Context, j *Job) (string, error)

// Render calls f.
func (f RenderFunc) Render(ctx context.Context, j *Job) (string, error) {
	return f(ctx, j)
}
