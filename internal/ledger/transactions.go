package ledger

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledger-intake/internal/domain"
	"github.com/dvloznov/ledger-intake/internal/logger"
)

// TransferSubCategory is the sub-category of every transfer transaction.
const TransferSubCategory = "Internal"

// TransferRequest moves Amount from one account to another.
type TransferRequest struct {
	FromAccountID string
	ToAccountID   string
	Amount        decimal.Decimal
	Date          civil.Date
	Description   string
	Remarks       string
}

// Transfer records a transfer as a single transaction against the source
// account. The source is debited and the destination credited.
func (s *Store) Transfer(ctx context.Context, req TransferRequest) (domain.LedgerTransaction, error) {
	if req.FromAccountID == "" || req.ToAccountID == "" {
		return domain.LedgerTransaction{}, fmt.Errorf("Transfer: %w: both accounts are required", ErrInvalidTransfer)
	}
	if req.FromAccountID == req.ToAccountID {
		return domain.LedgerTransaction{}, fmt.Errorf("Transfer: %w: source and destination are the same account", ErrInvalidTransfer)
	}
	if !req.Amount.IsPositive() {
		return domain.LedgerTransaction{}, fmt.Errorf("Transfer: %w: amount must be positive", ErrInvalidTransfer)
	}

	var tx domain.LedgerTransaction
	err := s.mutate(ctx, func(next *state) error {
		from := next.accountIndex(req.FromAccountID)
		to := next.accountIndex(req.ToAccountID)
		if from < 0 {
			return fmt.Errorf("source %s: %w", req.FromAccountID, ErrAccountNotFound)
		}
		if to < 0 {
			return fmt.Errorf("destination %s: %w", req.ToAccountID, ErrAccountNotFound)
		}

		date := req.Date
		if !date.IsValid() {
			date = civil.DateOf(s.now())
		}
		desc := strings.TrimSpace(req.Description)
		if desc == "" {
			desc = fmt.Sprintf("Transfer to %s", next.accounts[to].Name)
		}

		tx = domain.LedgerTransaction{
			ID:                s.newID(),
			Date:              date,
			Description:       desc,
			Amount:            req.Amount,
			Type:              domain.Expense,
			Category:          domain.TransferCategory,
			SubCategory:       TransferSubCategory,
			AccountID:         req.FromAccountID,
			TransferAccountID: req.ToAccountID,
			Remarks:           strings.TrimSpace(req.Remarks),
			Source:            domain.SourceTransfer,
			CreatedAt:         s.now().UTC(),
		}
		if err := next.applyDeltas(tx, 1); err != nil {
			return err
		}
		next.transactions = append(next.transactions, tx)
		return nil
	})
	if err != nil {
		return domain.LedgerTransaction{}, fmt.Errorf("Transfer: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("transaction_id", tx.ID).
		Str("from", req.FromAccountID).
		Str("to", req.ToAccountID).
		Str("amount", req.Amount.String()).
		Msg("transfer recorded")
	s.notify(ctx, []domain.LedgerTransaction{tx})
	return tx, nil
}

// TransactionEdit lists the fields to change; nil fields are kept.
type TransactionEdit struct {
	Date        *civil.Date
	Description *string
	Amount      *decimal.Decimal
	Type        *domain.TransactionType
	Category    *string
	SubCategory *string
	AccountID   *string
	Remarks     *string
}

// EditTransaction changes a committed transaction and restates the affected
// balances: the old delta is reversed and the new one applied.
// A transfer keeps its type and accounts.
func (s *Store) EditTransaction(ctx context.Context, id string, edit TransactionEdit) (domain.LedgerTransaction, error) {
	var updated domain.LedgerTransaction
	err := s.mutate(ctx, func(next *state) error {
		i := next.transactionIndex(id)
		if i < 0 {
			return fmt.Errorf("transaction %s: %w", id, ErrTransactionNotFound)
		}
		old := next.transactions[i]
		tx := old

		if edit.Date != nil {
			tx.Date = *edit.Date
		}
		if edit.Description != nil {
			tx.Description = strings.TrimSpace(*edit.Description)
		}
		if edit.Amount != nil {
			tx.Amount = *edit.Amount
		}
		if edit.Type != nil {
			tx.Type = *edit.Type
		}
		if edit.Category != nil {
			tx.Category = domain.OrUncategorized(*edit.Category)
		}
		if edit.SubCategory != nil {
			tx.SubCategory = domain.OrUncategorized(*edit.SubCategory)
		}
		if edit.AccountID != nil {
			tx.AccountID = *edit.AccountID
		}
		if edit.Remarks != nil {
			tx.Remarks = strings.TrimSpace(*edit.Remarks)
		}

		if old.IsTransfer() && (tx.Type != old.Type || tx.AccountID != old.AccountID) {
			return fmt.Errorf("%w: cannot change type or account of a transfer", ErrInvalidTransfer)
		}
		if err := validateTransaction(tx); err != nil {
			return err
		}
		if err := next.applyDeltas(old, -1); err != nil {
			return err
		}
		if err := next.applyDeltas(tx, 1); err != nil {
			return err
		}
		next.transactions[i] = tx
		updated = tx
		return nil
	})
	if err != nil {
		return domain.LedgerTransaction{}, fmt.Errorf("EditTransaction: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("transaction_id", id).Msg("transaction edited")
	return updated, nil
}

// DeleteTransaction removes a committed transaction and reverses its delta.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	err := s.mutate(ctx, func(next *state) error {
		i := next.transactionIndex(id)
		if i < 0 {
			return fmt.Errorf("transaction %s: %w", id, ErrTransactionNotFound)
		}
		if err := next.applyDeltas(next.transactions[i], -1); err != nil {
			return err
		}
		next.transactions = append(next.transactions[:i], next.transactions[i+1:]...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("transaction_id", id).Msg("transaction deleted")
	return nil
}
