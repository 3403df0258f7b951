package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"banking-api/internal/errors"
)

const (
	statusSuccess = "success"
	statusFailed  = "failed"
)

// envelope is the top-level response object; "status" is filled in by the
// write helpers.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeSuccess(w http.ResponseWriter, statusCode int, body envelope) {
	body["status"] = statusSuccess
	writeJSON(w, statusCode, body)
}

// writeError renders err. Validation errors become the bare issue array,
// other AppErrors a {status, message} object, and anything unclassified is
// logged and reported as a generic 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		logger.Error("Unhandled error", "error", err)
		appErr = errors.ErrInternal
	}

	if appErr.Code == errors.ValidationFailed && len(appErr.Issues) > 0 {
		writeJSON(w, http.StatusBadRequest, appErr.Issues)
		return
	}

	status := appErr.HTTPStatus()
	message := appErr.Message
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "error", appErr, "details", appErr.Details)
		message = errors.ErrInternal.Message
	}

	writeJSON(w, status, envelope{"status": statusFailed, "message": message})
}

// pathID parses the {id} route variable. Anything that is not a positive
// integer cannot name a row, so it is reported the same way as a missing one.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func rawID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

// NotFound answers requests that match no route.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, envelope{"status": statusFailed, "message": "Not found"})
}
