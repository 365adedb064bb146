package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"bulletbot/internal/deliver"
	"bulletbot/internal/digest"
	"bulletbot/internal/logging"
)

type DigestHandler struct {
	Compiler *digest.Compiler
	Sink     deliver.Sink
	Log      logging.Logger
}

type noteDTO struct {
	ID        uint64    `json:"id"`
	Index     int       `json:"index"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type userNotesDTO struct {
	Nick  string    `json:"nick"`
	Name  string    `json:"name"`
	Notes []noteDTO `json:"notes"`
}

// Preview renders the digest as it would be sent now.
func (h *DigestHandler) Preview(w http.ResponseWriter, r *http.Request) {
	text, err := h.Compiler.Compile(r.Context())
	if err != nil {
		serverError(r.Context(), w, h.Log, "compile digest", err)
		return
	}
	writeText(w, http.StatusOK, text)
}

// Unsent lists the collected notes as JSON.
func (h *DigestHandler) Unsent(w http.ResponseWriter, r *http.Request) {
	collected, err := h.Compiler.CollectUnsent(r.Context())
	if err != nil {
		serverError(r.Context(), w, h.Log, "collect unsent", err)
		return
	}

	out := make([]userNotesDTO, 0, len(collected))
	for _, un := range collected {
		dto := userNotesDTO{Nick: un.Nick, Name: un.Name, Notes: make([]noteDTO, 0, len(un.Notes))}
		for i, n := range un.Notes {
			dto.Notes = append(dto.Notes, noteDTO{ID: n.ID, Index: i, Body: n.Body, CreatedAt: n.CreatedAt})
		}
		out = append(out, dto)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// Send delivers the digest now and answers with the number of bullets
// marked sent.
func (h *DigestHandler) Send(w http.ResponseWriter, r *http.Request) {
	n, err := h.Compiler.Send(r.Context(), h.Sink)
	if err != nil {
		serverError(r.Context(), w, h.Log, "send digest", err)
		return
	}
	writeText(w, http.StatusOK, strconv.FormatInt(n, 10))
}

// MarkSent marks every unsent bullet sent without delivering a digest and
// answers with the count.
func (h *DigestHandler) MarkSent(w http.ResponseWriter, r *http.Request) {
	n, err := h.Compiler.MarkAllSent(r.Context())
	if err != nil {
		serverError(r.Context(), w, h.Log, "mark sent", err)
		return
	}
	writeText(w, http.StatusOK, strconv.FormatInt(n, 10))
}
