package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/flywheel-ml/flywheel/internal/domain"
)

// statusError is the JSON envelope for every failed request, carrying the
// taxonomy name spec §7 maps onto (NotFound, InvalidArgument,
// DeadlineExceeded, Unavailable, Internal) alongside the message.
type statusError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a domain error onto spec §7's RPC status taxonomy and
// writes the matching HTTP status plus a JSON status body. An error with
// no recognized domain classification maps to Internal/500.
func writeError(w http.ResponseWriter, err error) {
	var derr *domain.Error
	_ = errors.As(err, &derr)

	switch {
	case domain.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, statusError{Status: "NotFound", Message: err.Error()})
	case domain.IsInvalidArgument(err):
		writeJSON(w, http.StatusBadRequest, statusError{Status: "InvalidArgument", Message: err.Error()})
	case domain.IsTimeout(err):
		writeJSON(w, http.StatusGatewayTimeout, statusError{Status: "DeadlineExceeded", Message: err.Error()})
	case domain.IsUnavailable(err):
		writeJSON(w, http.StatusServiceUnavailable, statusError{Status: "Unavailable", Message: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, statusError{Status: "Internal", Message: err.Error()})
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, statusError{Status: "InvalidArgument", Message: msg})
}
