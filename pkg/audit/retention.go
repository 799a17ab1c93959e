package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/edukit/eduguard/pkg/observability"
)

// RetentionJob prunes the database trail on a cron schedule. When the
// policy names an archive path, pruned events are written there as
// NDJSON before deletion.
type RetentionJob struct {
	trail  *DBLogger
	policy RetentionPolicy
	logger *observability.Logger
	cron   *cron.Cron
}

// NewRetentionJob builds the job. Start must be called to schedule it.
func NewRetentionJob(trail *DBLogger, policy RetentionPolicy, logger *observability.Logger) *RetentionJob {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	if policy.RetentionDays <= 0 {
		policy.RetentionDays = DefaultRetentionPolicy().RetentionDays
	}
	if policy.Schedule == "" {
		policy.Schedule = DefaultRetentionPolicy().Schedule
	}
	return &RetentionJob{
		trail:  trail,
		policy: policy,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start schedules the prune job
func (j *RetentionJob) Start() error {
	_, err := j.cron.AddFunc(j.policy.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := j.Sweep(ctx); err != nil {
			j.logger.WithError(err).Error("security trail retention sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule retention job: %w", err)
	}
	j.cron.Start()
	return nil
}

// Stop halts the schedule, waiting for a running sweep to finish
func (j *RetentionJob) Stop() {
	<-j.cron.Stop().Done()
}

// Sweep archives (when configured) and prunes events older than the
// retention window. Exposed for manual runs and tests.
func (j *RetentionJob) Sweep(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -j.policy.RetentionDays)

	if j.policy.ArchivePath != "" {
		if err := j.archive(ctx, cutoff); err != nil {
			return fmt.Errorf("archive before prune: %w", err)
		}
	}

	pruned, err := j.trail.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"pruned": pruned,
		"cutoff": cutoff.Format(time.RFC3339),
	}).Info("security trail retention sweep complete")
	return nil
}

func (j *RetentionJob) archive(ctx context.Context, cutoff time.Time) error {
	events, err := j.trail.Search(ctx, SearchFilter{EndTime: &cutoff})
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	archive, err := NewFileLogger(FileLoggerConfig{BasePath: j.policy.ArchivePath})
	if err != nil {
		return err
	}
	defer archive.Close()

	for _, event := range events {
		if err := archive.LogSecurityEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
