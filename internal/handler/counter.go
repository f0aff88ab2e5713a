package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/chatkeeper/internal/service"
)

// CounterHandler exposes the named counters.
type CounterHandler struct {
	counters *service.CounterService
}

func NewCounterHandler(counters *service.CounterService) *CounterHandler {
	return &CounterHandler{counters: counters}
}

type bumpRequest struct {
	Amount      int64  `json:"amount,omitempty"`
	TriggeredBy string `json:"triggered_by,omitempty"`
	Channel     string `json:"channel,omitempty"`
}

func (h *CounterHandler) Bump(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req bumpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	c, err := h.counters.Bump(r.Context(), name, req.Amount, req.TriggeredBy, req.Channel)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *CounterHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	c, err := h.counters.Get(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (h *CounterHandler) List(w http.ResponseWriter, r *http.Request) {
	counters, err := h.counters.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, counters)
}
