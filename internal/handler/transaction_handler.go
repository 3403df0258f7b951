package handler

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"banking-api/internal/errors"
	"banking-api/internal/service"
)

type TransactionHandler struct {
	transactionService *service.TransactionService
	logger             *slog.Logger
}

func NewTransactionHandler(transactionService *service.TransactionService, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

type TransferRequest struct {
	SourceAccountID      int64           `json:"source_account_id" validate:"required,gt=0"`
	DestinationAccountID int64           `json:"destination_account_id" validate:"required,gt=0"`
	Amount               decimal.Decimal `json:"amount" validate:"required,positive_decimal,money"`
}

func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	body, err := decodeFields(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	req := TransferRequest{
		SourceAccountID:      body.Int("source_account_id"),
		DestinationAccountID: body.Int("destination_account_id"),
		Amount:               body.Decimal("amount"),
	}
	if err := body.check(req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.transactionService.Transfer(r.Context(), service.TransferRequest{
		SourceAccountID:      req.SourceAccountID,
		DestinationAccountID: req.DestinationAccountID,
		Amount:               req.Amount,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusCreated, envelope{
		"transaction":         result.Transaction,
		"source_account":      result.SourceAccount,
		"destination_account": result.DestinationAccount,
	})
}

func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.transactionService.ListTransactions(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{"transactions_data": transactions})
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, h.logger, errors.NewAppErrorf(errors.TransactionNotFound,
			"Transaction with id %s not found", rawID(r)))
		return
	}

	transaction, err := h.transactionService.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeSuccess(w, http.StatusOK, envelope{"transaction": transaction})
}
