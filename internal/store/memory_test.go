package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview/reportd/internal/job"
)

func TestMemoryStoreJobRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	j := job.New(job.KindURAR, job.FormatPDF, []byte(`{"form":"1004"}`), "appraiser-1", 3)
	require.NoError(t, s.SaveJob(ctx, j))

	got, err := s.LoadJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, j.ID, got.ID)
	assert.Equal(t, j.Priority, got.Priority)
	assert.Equal(t, job.StatusQueued, got.Status)

	// The stored record is a copy: mutating the original must not change
	// what a later load sees.
	j.Status = job.StatusFailed
	got, err = s.LoadJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, job.StatusQueued, got.Status)
}

func TestMemoryStoreLoadJobNotFound(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.LoadJob(context.Background(), job.New(job.KindCustom, job.FormatJSON, nil, "", 1).ID)
	assert.ErrorIs(t, err, job.ErrJobNotFound)
}

func TestMemoryStoreDeleteJob(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	j := job.New(job.KindPropertyCard, job.FormatHTML, []byte("{}"), "appraiser-1", 1)
	require.NoError(t, s.SaveJob(ctx, j))
	require.NoError(t, s.SavePayload(ctx, j.ID, j.Payload))

	require.NoError(t, s.DeleteJob(ctx, j.ID))

	_, err := s.LoadJob(ctx, j.ID)
	assert.ErrorIs(t, err, job.ErrJobNotFound)
	_, err = s.LoadPayload(ctx, j.ID)
	assert.ErrorIs(t, err, job.ErrJobNotFound)
}

func TestMemoryStorePayloadIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id := job.New(job.KindCompsGrid, job.FormatPDF, nil, "", 1).ID
	payload := []byte(`{"comps":[1,2,3]}`)
	require.NoError(t, s.SavePayload(ctx, id, payload))

	payload[0] = 'X'
	got, err := s.LoadPayload(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, byte('{'), got[0], "stored payload must not alias the caller's slice")

	got[1] = 'Y'
	again, err := s.LoadPayload(ctx, id)
	require.NoError(t, err)
	assert.NotEqual(t, byte('Y'), again[1], "loaded payload must not alias the stored copy")
}

func TestMemoryStoreQueueLog(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	a := job.New(job.KindURAR, job.FormatPDF, nil, "appraiser-1", 2)
	b := job.New(job.KindURAR, job.FormatPDF, nil, "appraiser-1", 5)
	require.NoError(t, s.AppendQueueLog(ctx, a.Summary()))
	require.NoError(t, s.AppendQueueLog(ctx, b.Summary()))

	entries, err := s.ListQueueLog(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// Appending the same job again replaces its entry.
	a.Priority = 9
	require.NoError(t, s.AppendQueueLog(ctx, a.Summary()))
	entries, err = s.ListQueueLog(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	require.NoError(t, s.RemoveQueueLog(ctx, a.ID))
	entries, err = s.ListQueueLog(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, b.ID, entries[0].ID)
}

func TestMemoryStorePingAndClose(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}
