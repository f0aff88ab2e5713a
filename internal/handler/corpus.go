package handler

import (
	"net/http"
	"strconv"

	"github.com/sakif/chatkeeper/internal/apperror"
	"github.com/sakif/chatkeeper/internal/model"
	"github.com/sakif/chatkeeper/internal/service"
)

// CorpusHandler exposes the chat corpus used for text generation.
type CorpusHandler struct {
	corpus *service.CorpusService
}

func NewCorpusHandler(corpus *service.CorpusService) *CorpusHandler {
	return &CorpusHandler{corpus: corpus}
}

type ingestLineRequest struct {
	Line     string  `json:"line"`
	Author   string  `json:"author,omitempty"`
	Protocol string  `json:"protocol,omitempty"`
	Server   *string `json:"server,omitempty"`
	Channel  *string `json:"channel,omitempty"`
}

func (h *CorpusHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	l, err := h.corpus.Ingest(r.Context(), req.Line, req.Author, req.Protocol, req.Server, req.Channel)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, l)
}

// sourceIDParam parses the optional source query parameter, nil when absent.
func sourceIDParam(r *http.Request) (*int64, error) {
	raw := r.URL.Query().Get("source")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperror.ValidationFailed("source", "source must be a numeric id")
	}
	return &id, nil
}

func (h *CorpusHandler) Lines(w http.ResponseWriter, r *http.Request) {
	sourceID, err := sourceIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	it, err := h.corpus.Lines(r.Context(), r.URL.Query().Get("author"), sourceID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer it.Close()

	lines := []model.CorpusLine{}
	for {
		line, ok := it.Next()
		if !ok {
			break
		}
		lines = append(lines, line)
	}
	if err := it.Err(); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, lines)
}

type corpusCountResponse struct {
	Count int64 `json:"count"`
}

func (h *CorpusHandler) Count(w http.ResponseWriter, r *http.Request) {
	sourceID, err := sourceIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	count, err := h.corpus.Count(r.Context(), r.URL.Query().Get("author"), sourceID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, corpusCountResponse{Count: count})
}
