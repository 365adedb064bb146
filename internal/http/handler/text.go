package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"bulletbot/internal/logging"
)

// maxBody bounds a text/plain request body.
const maxBody = 64 << 10

func readText(w http.ResponseWriter, r *http.Request) (string, bool) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
			return "", false
		}
		http.Error(w, "bad body", http.StatusBadRequest)
		return "", false
	}
	return string(b), true
}

func writeText(w http.ResponseWriter, status int, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, s)
}

func serverError(ctx context.Context, w http.ResponseWriter, log logging.Logger, msg string, err error) {
	log.Error(ctx, msg, "err", err)
	http.Error(w, "server error", http.StatusInternalServerError)
}
