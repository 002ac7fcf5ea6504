package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/ledger-intake/internal/domain"
	"github.com/dvloznov/ledger-intake/internal/logger"
)

// Commit applies a batch of candidates in order. Account existence is
// checked again here since the directory may have changed after staging.
// Either every candidate becomes a ledger transaction and its balance delta
// is applied, or nothing changes and a *CommitError names the culprit.
// An empty batch is a no-op.
func (s *Store) Commit(ctx context.Context, cands []domain.CandidateTransaction) ([]domain.LedgerTransaction, error) {
	if len(cands) == 0 {
		return nil, nil
	}
	log := logger.FromContext(ctx)

	var committed []domain.LedgerTransaction
	err := s.mutate(ctx, func(next *state) error {
		committed = make([]domain.LedgerTransaction, 0, len(cands))
		now := s.now().UTC()

		for i, c := range cands {
			tx := domain.LedgerTransaction{
				ID:          s.newID(),
				Date:        c.Date,
				Description: strings.TrimSpace(c.Description),
				Amount:      c.Amount,
				Type:        c.Type,
				Category:    domain.OrUncategorized(c.Category),
				SubCategory: domain.OrUncategorized(c.SubCategory),
				AccountID:   c.AccountID,
				UnitDetails: c.UnitDetails,
				Remarks:     c.Remarks,
				Source:      c.Source,
				CreatedAt:   now,
			}
			if err := validateTransaction(tx); err != nil {
				return &CommitError{Index: i, StagingID: c.StagingID, Err: err}
			}
			if err := next.applyDeltas(tx, 1); err != nil {
				return &CommitError{Index: i, StagingID: c.StagingID, Err: err}
			}
			next.transactions = append(next.transactions, tx)
			committed = append(committed, tx)
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Int("candidates", len(cands)).Msg("commit aborted")
		return nil, fmt.Errorf("Commit: %w", err)
	}

	log.Info().Int("transactions", len(committed)).Msg("batch committed")
	s.notify(ctx, committed)
	return committed, nil
}
