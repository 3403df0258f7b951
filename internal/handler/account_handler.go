package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"banking-api/internal/errors"
	"banking-api/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
	logger         *slog.Logger
}

func NewAccountHandler(accountService *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

type CreateAccountRequest struct {
	UserID            int64           `json:"user_id" validate:"required,gt=0"`
	BankName          string          `json:"bank_name" validate:"required"`
	BankAccountNumber string          `json:"bank_account_number" validate:"required,min=10"`
	Balance           decimal.Decimal `json:"balance" validate:"required,money"`
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	body, err := decodeFields(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	req := CreateAccountRequest{
		UserID:            body.Int("user_id"),
		BankName:          body.String("bank_name"),
		BankAccountNumber: body.String("bank_account_number"),
		Balance:           body.Decimal("balance"),
	}
	body.replace("balance", errors.ErrInvalidBalance.Issues[0])
	if err := body.check(req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	account, err := h.accountService.CreateAccount(r.Context(), service.CreateAccountRequest{
		UserID:            req.UserID,
		BankName:          req.BankName,
		BankAccountNumber: req.BankAccountNumber,
		Balance:           req.Balance,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusCreated, envelope{
		"message": fmt.Sprintf("successfully added account for user_id %d", account.UserID),
		"account": account,
	})
}

func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountService.ListAccounts(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{"accounts_data": accounts})
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, h.logger, accountNotFound(r))
		return
	}

	account, err := h.accountService.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{"account": account})
}

func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, h.logger, accountNotFound(r))
		return
	}

	account, err := h.accountService.DeleteAccount(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{
		"message":         fmt.Sprintf("Account with id %d deleted successfully", id),
		"deleted_account": account,
	})
}

func accountNotFound(r *http.Request) error {
	return errors.NewAppErrorf(errors.AccountNotFound, "Account with id %s not found", rawID(r))
}
