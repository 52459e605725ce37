package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"crewdesk/backend/internal/errs"
)

type errorResponse struct {
	Error string    `json:"error"`
	Kind  errs.Kind `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps a service error's kind to an HTTP status. Internal errors
// are logged and returned with a generic message.
func writeError(w http.ResponseWriter, log *zap.SugaredLogger, err error) {
	kind := errs.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case errs.KindUnauthenticated:
		status = http.StatusUnauthorized
	case errs.KindDenied:
		status = http.StatusForbidden
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindConflict:
		status = http.StatusConflict
	case errs.KindInvalid:
		status = http.StatusBadRequest
	}

	msg := err.Error()
	if e, ok := err.(*errs.Error); ok {
		msg = e.Message
	}
	if kind == errs.KindInternal {
		if log != nil {
			log.Errorw("request failed", "error", err)
		}
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind})
}

// decodeJSON decodes the request body into v; a failure is an Invalid error.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Invalid("malformed request body")
	}
	return nil
}
