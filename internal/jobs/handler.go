package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/ledger-intake/internal/logger"
	"github.com/dvloznov/ledger-intake/internal/session"
)

// SessionSource looks up sessions by id.
type SessionSource interface {
	Get(id string) (*session.Session, error)
}

// NewExtractionHandler returns a handler that runs the job's text through its
// session. A busy session makes the job wait and try again; a missing or
// cancelled session fails it for good.
func NewExtractionHandler(sessions SessionSource) JobHandler {
	return func(ctx context.Context, job *ExtractionJob) error {
		log := logger.FromContext(ctx).With().
			Str("job_id", job.JobID).
			Str("session_id", job.SessionID).
			Logger()

		sess, err := sessions.Get(job.SessionID)
		if err != nil {
			return Permanent(fmt.Errorf("extraction job: %w", err))
		}

		report, err := sess.IngestText(logger.WithContext(ctx, log), job.Text)
		switch {
		case errors.Is(err, session.ErrIngestionInProgress):
			log.Debug().Int("busy_waits", job.BusyWaits).Msg("session busy, will retry")
			return Busy(err)
		case err != nil:
			return Permanent(fmt.Errorf("extraction job: %w", err))
		}

		job.Outcome = string(report.Outcome)
		job.Notice = report.Notice
		job.Rejected = report.Rejected()
		job.CandidateCount = len(report.StagingIDs)
		job.StagingIDs = make([]string, 0, len(report.StagingIDs))
		for _, id := range report.StagingIDs {
			job.StagingIDs = append(job.StagingIDs, string(id))
		}
		log.Info().Str("outcome", job.Outcome).Int("candidates", job.CandidateCount).Msg("extraction job finished")
		return nil
	}
}
