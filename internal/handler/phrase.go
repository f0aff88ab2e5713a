package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/chatkeeper/internal/apperror"
	"github.com/sakif/chatkeeper/internal/model"
	"github.com/sakif/chatkeeper/internal/service"
)

// PhraseHandler exposes the response phrase tables and the eight-ball.
type PhraseHandler struct {
	phrases *service.PhraseService
}

func NewPhraseHandler(phrases *service.PhraseService) *PhraseHandler {
	return &PhraseHandler{phrases: phrases}
}

type addPhraseRequest struct {
	Phrase    string              `json:"phrase"`
	Action    bool                `json:"action,omitempty"`
	Kind      *model.ResponseKind `json:"kind,omitempty"`
	Submitter string              `json:"submitter,omitempty"`
}

func (h *PhraseHandler) Add(w http.ResponseWriter, r *http.Request) {
	table := model.PhraseTable(chi.URLParam(r, "table"))

	var req addPhraseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.phrases.Add(r.Context(), table, req.Phrase, req.Action, req.Kind, req.Submitter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

type removePhraseRequest struct {
	Phrase string `json:"phrase"`
}

func (h *PhraseHandler) Remove(w http.ResponseWriter, r *http.Request) {
	table := model.PhraseTable(chi.URLParam(r, "table"))

	var req removePhraseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.phrases.Remove(r.Context(), table, req.Phrase); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Draw picks a random phrase from a table. For the questioned table a kind
// query parameter narrows the draw to one sentiment.
func (h *PhraseHandler) Draw(w http.ResponseWriter, r *http.Request) {
	table := model.PhraseTable(chi.URLParam(r, "table"))

	kind, err := parseKind(r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, err)
		return
	}

	p, err := h.phrases.Draw(r.Context(), table, kind)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *PhraseHandler) List(w http.ResponseWriter, r *http.Request) {
	table := model.PhraseTable(chi.URLParam(r, "table"))

	phrases, err := h.phrases.List(r.Context(), table)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, phrases)
}

type askRequest struct {
	Question string `json:"question"`
}

func (h *PhraseHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.phrases.Ask(r.Context(), req.Question)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

type addEightBallRequest struct {
	Response      string             `json:"response"`
	Action        bool               `json:"action,omitempty"`
	Kind          model.ResponseKind `json:"kind"`
	ExpectsAction *bool              `json:"expects_action,omitempty"`
	Submitter     string             `json:"submitter"`
}

func (h *PhraseHandler) AddEightBall(w http.ResponseWriter, r *http.Request) {
	var req addEightBallRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.phrases.AddEightBall(r.Context(), req.Response, req.Action, req.Kind, req.ExpectsAction, req.Submitter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

type removeEightBallRequest struct {
	Response string `json:"response"`
}

func (h *PhraseHandler) RemoveEightBall(w http.ResponseWriter, r *http.Request) {
	var req removeEightBallRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.phrases.RemoveEightBall(r.Context(), req.Response); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseKind(raw string) (*model.ResponseKind, error) {
	if raw == "" {
		return nil, nil
	}
	kind, ok := model.ParseResponseKind(raw)
	if !ok {
		return nil, apperror.ValidationFailed("kind", "kind must be positive, negative, or neutral")
	}
	return &kind, nil
}
