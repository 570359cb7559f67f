package httputil

import (
	"errors"
	"log/slog"
	"net/http"
)

// WriteFailure writes `{"success": false, "message": message}`.
func WriteFailure(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, J{
		"success": false,
		"message": message,
	})
}

// WriteInvalid writes the field errors of v as a 400.
func WriteInvalid(w http.ResponseWriter, v *Validation) {
	WriteJSON(w, http.StatusBadRequest, J{
		"success": false,
		"errors":  v.Errors,
	})
}

// WriteInternal logs err and writes a generic 500 failure.
func WriteInternal(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(
		r.Context(), "request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"err", err,
	)
	WriteFailure(w, http.StatusInternalServerError, "Internal server error")
}

// WriteDecodeError answers a body that could not be decoded.
func WriteDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrBodyTooLarge) {
		WriteFailure(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	WriteFailure(w, http.StatusBadRequest, "Invalid JSON body")
}
