package handler

import (
	"net/http"
	"strings"

	"bulletbot/internal/bullet"
	"bulletbot/internal/logging"
)

type RecipientHandler struct {
	Svc *bullet.Service
	Log logging.Logger
}

func (h *RecipientHandler) List(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Svc.ListRecipients(r.Context())
	if err != nil {
		serverError(r.Context(), w, h.Log, "list recipients", err)
		return
	}
	writeText(w, http.StatusOK, resp)
}

func (h *RecipientHandler) Add(w http.ResponseWriter, r *http.Request) {
	body, ok := readText(w, r)
	if !ok {
		return
	}
	resp, err := h.Svc.AddRecipients(r.Context(), body)
	if err != nil {
		serverError(r.Context(), w, h.Log, "add recipients", err)
		return
	}
	writeText(w, recipientStatus(resp), resp)
}

func (h *RecipientHandler) Remove(w http.ResponseWriter, r *http.Request) {
	body, ok := readText(w, r)
	if !ok {
		return
	}
	resp, err := h.Svc.RemoveRecipients(r.Context(), body)
	if err != nil {
		serverError(r.Context(), w, h.Log, "remove recipients", err)
		return
	}
	writeText(w, recipientStatus(resp), resp)
}

func recipientStatus(resp string) int {
	if resp == bullet.RecipientsHint || strings.HasPrefix(resp, bullet.BadAddressText) {
		return http.StatusBadRequest
	}
	return http.StatusOK
}
