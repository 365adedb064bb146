package handler

import (
	"net/http"

	"bulletbot/internal/bullet"
	"bulletbot/internal/chat"
	"bulletbot/internal/logging"

	"github.com/go-chi/chi/v5"
)

type BulletHandler struct {
	Svc  *bullet.Service
	Chat *chat.Router
	Log  logging.Logger
}

func (h *BulletHandler) Create(w http.ResponseWriter, r *http.Request) {
	nick := chi.URLParam(r, "nick")
	body, ok := readText(w, r)
	if !ok {
		return
	}
	resp, err := h.Svc.CreateNote(r.Context(), nick, body)
	if err != nil {
		serverError(r.Context(), w, h.Log, "create bullet", err)
		return
	}
	status := http.StatusCreated
	if resp == bullet.EmptyNoteText {
		status = http.StatusBadRequest
	}
	writeText(w, status, resp)
}

func (h *BulletHandler) List(w http.ResponseWriter, r *http.Request) {
	resp, err := h.Svc.ListNotes(r.Context(), chi.URLParam(r, "nick"))
	if err != nil {
		serverError(r.Context(), w, h.Log, "list bullets", err)
		return
	}
	writeText(w, http.StatusOK, resp)
}

// Delete takes the positions to delete as the request body, e.g. "0, 2".
// Unknown positions and parse errors answer 200 with an explanation, the
// same text a chat user would see.
func (h *BulletHandler) Delete(w http.ResponseWriter, r *http.Request) {
	nick := chi.URLParam(r, "nick")
	body, ok := readText(w, r)
	if !ok {
		return
	}
	resp, err := h.Svc.DeleteNotes(r.Context(), nick, body)
	if err != nil {
		serverError(r.Context(), w, h.Log, "delete bullets", err)
		return
	}
	writeText(w, http.StatusOK, resp)
}

func (h *BulletHandler) Register(w http.ResponseWriter, r *http.Request) {
	nick := chi.URLParam(r, "nick")
	body, ok := readText(w, r)
	if !ok {
		return
	}
	resp, err := h.Svc.RegisterDisplayName(r.Context(), nick, body)
	if err != nil {
		serverError(r.Context(), w, h.Log, "register name", err)
		return
	}
	writeText(w, http.StatusOK, resp)
}

// Message feeds one chat line through the command router.
func (h *BulletHandler) Message(w http.ResponseWriter, r *http.Request) {
	nick := chi.URLParam(r, "nick")
	body, ok := readText(w, r)
	if !ok {
		return
	}
	resp, err := h.Chat.Handle(r.Context(), nick, body)
	if err != nil {
		h.Log.Error(r.Context(), "chat message failed", "nick", nick, "err", err)
		writeText(w, http.StatusInternalServerError, resp)
		return
	}
	writeText(w, http.StatusOK, resp)
}
