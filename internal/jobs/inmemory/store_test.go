package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledger-intake/internal/jobs"
)

func TestStore_SaveAndGetReturnCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	job := &jobs.ExtractionJob{JobID: "j1", StagingIDs: []string{"stg-0001"}}
	require.NoError(t, s.SaveJob(ctx, job))
	job.StagingIDs[0] = "changed"

	got, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, []string{"stg-0001"}, got.StagingIDs)

	got.Status = jobs.JobStatusFailed
	again, _ := s.GetJob(ctx, "j1")
	assert.NotEqual(t, jobs.JobStatusFailed, again.Status)
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	assert.Error(t, s.SaveJob(ctx, &jobs.ExtractionJob{}))

	_, err := s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrJobNotFound)
	assert.ErrorIs(t, s.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, ""), jobs.ErrJobNotFound)
}

func TestStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, j := range []*jobs.ExtractionJob{
		{JobID: "c", SessionID: "s1", Status: jobs.JobStatusCompleted},
		{JobID: "a", SessionID: "s1", Status: jobs.JobStatusPending},
		{JobID: "b", SessionID: "s2", Status: jobs.JobStatusPending},
	} {
		j.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.SaveJob(ctx, j))
	}

	all, err := s.ListJobs(ctx, jobs.JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{all[0].JobID, all[1].JobID, all[2].JobID})

	s1, _ := s.ListJobs(ctx, jobs.JobFilter{SessionID: "s1"})
	assert.Len(t, s1, 2)

	pending, _ := s.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusPending, Limit: 1})
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].JobID)

	paged, _ := s.ListJobs(ctx, jobs.JobFilter{Offset: 2})
	require.Len(t, paged, 1)
	assert.Equal(t, "b", paged[0].JobID)

	empty, _ := s.ListJobs(ctx, jobs.JobFilter{Offset: 10})
	assert.Empty(t, empty)

	require.NoError(t, s.UpdateJobStatus(ctx, "a", jobs.JobStatusFailed, "boom"))
	got, _ := s.GetJob(ctx, "a")
	assert.Equal(t, jobs.JobStatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)
}
