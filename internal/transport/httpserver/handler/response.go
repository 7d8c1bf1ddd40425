package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"quest-scheduler-go/internal/domain/apperr"
	"quest-scheduler-go/internal/transport/httpserver/middleware"
)

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if err := decodeJSON(r, dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func invalidJSON(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
}

func invalidRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, "invalid_request", message)
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAccessDenied:
		return http.StatusForbidden
	case apperr.KindInvalidState, apperr.KindCapacityExceeded, apperr.KindDuplicate:
		return http.StatusConflict
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindUnknown:
	}
	return http.StatusInternalServerError
}

// fail writes err as the error envelope. Domain rejections are logged as
// business errors, everything else as internal errors with a generic body.
func (h *Handlers) fail(w http.ResponseWriter, op string, err error, args ...any) {
	status := statusFor(apperr.KindOf(err))
	if status == http.StatusInternalServerError {
		h.log.InternalError(op+": failed", err, args...)
		writeError(w, status, "internal_error", "internal error")
		return
	}
	h.log.BusinessError(op+": rejected", err, args...)
	writeError(w, status, apperr.CodeOf(err), err.Error())
}

func (h *Handlers) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return "", false
	}
	return user.ID, true
}

func viewerID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
