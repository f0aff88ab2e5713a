package handler

import (
	"net/http"

	"github.com/sakif/chatkeeper/internal/model"
	"github.com/sakif/chatkeeper/internal/service"
)

// ObitHandler exposes the kill ledger and the obituary phrase pools.
type ObitHandler struct {
	obits *service.ObitService
}

func NewObitHandler(obits *service.ObitService) *ObitHandler {
	return &ObitHandler{obits: obits}
}

type killRequest struct {
	Killer string `json:"killer"`
	Victim string `json:"victim"`
}

type killResponse struct {
	Obituary string `json:"obituary"`
}

// Kill records a kill (or a suicide when killer and victim match) and returns
// a composed obituary line.
func (h *ObitHandler) Kill(w http.ResponseWriter, r *http.Request) {
	var req killRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	obituary, err := h.obits.Kill(r.Context(), req.Killer, req.Victim)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, killResponse{Obituary: obituary})
}

func (h *ObitHandler) Record(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	rec, err := h.obits.Record(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (h *ObitHandler) Board(w http.ResponseWriter, r *http.Request) {
	rows, err := h.obits.Board(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

func (h *ObitHandler) Rankings(w http.ResponseWriter, r *http.Request) {
	rankings, err := h.obits.Rankings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rankings)
}

type addObitStringRequest struct {
	Content   string               `json:"content"`
	Type      model.ObitStringType `json:"type"`
	Submitter string               `json:"submitter"`
}

func (h *ObitHandler) AddString(w http.ResponseWriter, r *http.Request) {
	var req addObitStringRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	s, err := h.obits.AddString(r.Context(), req.Content, req.Type, req.Submitter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, s)
}

type removeObitStringRequest struct {
	Content string               `json:"content"`
	Type    model.ObitStringType `json:"type"`
}

func (h *ObitHandler) RemoveString(w http.ResponseWriter, r *http.Request) {
	var req removeObitStringRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.obits.RemoveString(r.Context(), req.Content, req.Type); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
