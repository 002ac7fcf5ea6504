package ledger

import (
	"errors"
	"fmt"

	"github.com/dvloznov/ledger-intake/internal/domain"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountExists       = errors.New("account already exists")
	ErrAccountInUse        = errors.New("account has transactions")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidTransfer     = errors.New("invalid transfer")
	ErrInvalidSnapshot     = errors.New("invalid ledger snapshot")
	ErrInvalidTransaction  = errors.New("invalid transaction")
)

// CommitError names the candidate that made a commit fail. No part of the
// batch has been applied when it is returned.
type CommitError struct {
	Index     int
	StagingID domain.StagingID
	Err       error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit aborted at candidate %d (%s): %v", e.Index, e.StagingID, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }
