package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetentionJob_Sweep(t *testing.T) {
	trail := setupDBLogger(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, trail.LogSecurityEvent(ctx, deniedEvent("ancient", now.AddDate(0, 0, -200))))
	require.NoError(t, trail.LogSecurityEvent(ctx, deniedEvent("fresh", now)))

	job := NewRetentionJob(trail, RetentionPolicy{RetentionDays: 90}, nil)
	require.NoError(t, job.Sweep(ctx))

	remaining, err := trail.Search(ctx, SearchFilter{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "fresh", remaining[0].UserID)
}

func TestRetentionJob_ArchivesBeforePrune(t *testing.T) {
	trail := setupDBLogger(t)
	ctx := context.Background()
	now := time.Now().UTC()
	archiveDir := t.TempDir()

	require.NoError(t, trail.LogSecurityEvent(ctx, deniedEvent("ancient", now.AddDate(0, 0, -200))))

	job := NewRetentionJob(trail, RetentionPolicy{
		RetentionDays: 90,
		ArchivePath:   archiveDir,
	}, nil)
	require.NoError(t, job.Sweep(ctx))

	archive, err := NewFileLogger(FileLoggerConfig{BasePath: archiveDir})
	require.NoError(t, err)
	defer archive.Close()

	archived, err := archive.ReadEvents(0)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "ancient", archived[0].UserID)

	remaining, err := trail.Search(ctx, SearchFilter{})
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestRetentionJob_StartStop(t *testing.T) {
	trail := setupDBLogger(t)
	job := NewRetentionJob(trail, DefaultRetentionPolicy(), nil)

	require.NoError(t, job.Start())
	job.Stop()
}

func TestDefaultRetentionPolicy(t *testing.T) {
	policy := DefaultRetentionPolicy()
	assert.Equal(t, 90, policy.RetentionDays)
	assert.NotEmpty(t, policy.Schedule)
}
