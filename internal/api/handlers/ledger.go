package handlers

import (
	"context"
	"net/http"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/ledger-intake/internal/api/middleware"
	"github.com/dvloznov/ledger-intake/internal/domain"
	"github.com/dvloznov/ledger-intake/internal/ledger"
)

// LedgerStore is the ledger surface used by the account and transaction
// endpoints.
type LedgerStore interface {
	Accounts() []domain.Account
	Account(id string) (domain.Account, error)
	CreateAccount(ctx context.Context, name string, typ domain.AccountType, opening decimal.Decimal) (domain.Account, error)
	RenameAccount(ctx context.Context, id, name string) (domain.Account, error)
	DeleteAccount(ctx context.Context, id string) error

	Transactions() []domain.LedgerTransaction
	Transaction(id string) (domain.LedgerTransaction, error)
	EditTransaction(ctx context.Context, id string, edit ledger.TransactionEdit) (domain.LedgerTransaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	Transfer(ctx context.Context, req ledger.TransferRequest) (domain.LedgerTransaction, error)

	Categories() []domain.Category
	SetCategories(ctx context.Context, cats []domain.Category) error
	Settings() domain.Settings
	UpdateSettings(ctx context.Context, settings domain.Settings) error
}

// AccountsHandler serves the account directory.
type AccountsHandler struct {
	store LedgerStore
	log   zerolog.Logger
}

func NewAccountsHandler(store LedgerStore, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{store: store, log: log}
}

// ListAccounts handles GET /api/accounts
func (h *AccountsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := h.store.Accounts()
	if accounts == nil {
		accounts = []domain.Account{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"accounts": accounts, "count": len(accounts)})
}

// GetAccount handles GET /api/accounts/{id}
func (h *AccountsHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.store.Account(r.PathValue("id"))
	if err != nil {
		writeError(w, &h.log, err, "Failed to get account")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, acct)
}

// CreateAccount handles POST /api/accounts
func (h *AccountsHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string           `json:"name"`
		Type           string           `json:"type"`
		OpeningBalance *decimal.Decimal `json:"openingBalance"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	typ := domain.AccountOther
	if req.Type != "" {
		parsed, err := domain.ParseAccountType(req.Type)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		typ = parsed
	}
	opening := decimal.Zero
	if req.OpeningBalance != nil {
		opening = *req.OpeningBalance
	}

	acct, err := h.store.CreateAccount(r.Context(), req.Name, typ, opening)
	if err != nil {
		writeError(w, &h.log, err, "Failed to create account")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, acct)
}

// RenameAccount handles PATCH /api/accounts/{id}
func (h *AccountsHandler) RenameAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	acct, err := h.store.RenameAccount(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		writeError(w, &h.log, err, "Failed to rename account")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, acct)
}

// DeleteAccount handles DELETE /api/accounts/{id}
func (h *AccountsHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteAccount(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, &h.log, err, "Failed to delete account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TransactionsHandler serves committed transactions and transfers.
type TransactionsHandler struct {
	store LedgerStore
	log   zerolog.Logger
}

func NewTransactionsHandler(store LedgerStore, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{store: store, log: log}
}

// ListTransactions handles GET /api/transactions. Optional filters:
// account_id, start_date, end_date (inclusive, YYYY-MM-DD), limit, offset.
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var start, end civil.Date
	var err error
	if v := query.Get("start_date"); v != "" {
		if start, err = civil.ParseDate(v); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
			return
		}
	}
	if v := query.Get("end_date"); v != "" {
		if end, err = civil.ParseDate(v); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
			return
		}
	}
	accountID := query.Get("account_id")

	result := []domain.LedgerTransaction{}
	for _, tx := range h.store.Transactions() {
		if accountID != "" && tx.AccountID != accountID && tx.TransferAccountID != accountID {
			continue
		}
		if start.IsValid() && tx.Date.Before(start) {
			continue
		}
		if end.IsValid() && tx.Date.After(end) {
			continue
		}
		result = append(result, tx)
	}

	total := len(result)
	if offset := queryInt(r, "offset"); offset > 0 {
		if offset >= len(result) {
			result = []domain.LedgerTransaction{}
		} else {
			result = result[offset:]
		}
	}
	if limit := queryInt(r, "limit"); limit > 0 && limit < len(result) {
		result = result[:limit]
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": result,
		"count":        len(result),
		"total":        total,
	})
}

// GetTransaction handles GET /api/transactions/{id}
func (h *TransactionsHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.store.Transaction(r.PathValue("id"))
	if err != nil {
		writeError(w, &h.log, err, "Failed to get transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

type transactionEditRequest struct {
	Date        *string          `json:"date"`
	Description *string          `json:"description"`
	Amount      *decimal.Decimal `json:"amount"`
	Type        *string          `json:"type"`
	Category    *string          `json:"category"`
	SubCategory *string          `json:"subCategory"`
	AccountID   *string          `json:"accountId"`
	Remarks     *string          `json:"remarks"`
}

func (req transactionEditRequest) toEdit() (ledger.TransactionEdit, error) {
	edit := ledger.TransactionEdit{
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
		SubCategory: req.SubCategory,
		AccountID:   req.AccountID,
		Remarks:     req.Remarks,
	}
	if req.Date != nil {
		d, err := civil.ParseDate(*req.Date)
		if err != nil {
			return edit, err
		}
		edit.Date = &d
	}
	if req.Type != nil {
		t, err := domain.ParseTransactionType(*req.Type)
		if err != nil {
			return edit, err
		}
		edit.Type = &t
	}
	return edit, nil
}

// EditTransaction handles PATCH /api/transactions/{id}
func (h *TransactionsHandler) EditTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionEditRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	edit, err := req.toEdit()
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := h.store.EditTransaction(r.Context(), r.PathValue("id"), edit)
	if err != nil {
		writeError(w, &h.log, err, "Failed to edit transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, &h.log, err, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateTransfer handles POST /api/transfers. The date defaults to today.
func (h *TransactionsHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromAccountID string          `json:"fromAccountId"`
		ToAccountID   string          `json:"toAccountId"`
		Amount        decimal.Decimal `json:"amount"`
		Date          string          `json:"date"`
		Description   string          `json:"description"`
		Remarks       string          `json:"remarks"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	transfer := ledger.TransferRequest{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Description:   req.Description,
		Remarks:       req.Remarks,
	}
	if req.Date != "" {
		d, err := civil.ParseDate(req.Date)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid date format")
			return
		}
		transfer.Date = d
	}

	tx, err := h.store.Transfer(r.Context(), transfer)
	if err != nil {
		writeError(w, &h.log, err, "Failed to record transfer")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// CategoriesHandler serves the category list and ledger settings.
type CategoriesHandler struct {
	store LedgerStore
	log   zerolog.Logger
}

func NewCategoriesHandler(store LedgerStore, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{store: store, log: log}
}

// ListCategories handles GET /api/categories
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats := h.store.Categories()
	if cats == nil {
		cats = []domain.Category{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"categories": cats, "count": len(cats)})
}

// ReplaceCategories handles PUT /api/categories
func (h *CategoriesHandler) ReplaceCategories(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Categories []domain.Category `json:"categories"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.SetCategories(r.Context(), req.Categories); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.ListCategories(w, r)
}

// GetSettings handles GET /api/settings
func (h *CategoriesHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.store.Settings())
}

// UpdateSettings handles PUT /api/settings
func (h *CategoriesHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.Settings
	if err := decodeJSON(w, r, &settings); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.UpdateSettings(r.Context(), settings); err != nil {
		writeError(w, &h.log, err, "Failed to update settings")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.store.Settings())
}
