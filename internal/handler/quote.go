package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sakif/chatkeeper/internal/model"
	"github.com/sakif/chatkeeper/internal/service"
)

// QuoteHandler exposes the quote database: submission, retrieval, search,
// and the leaderboard and statistics reports.
type QuoteHandler struct {
	quotes *service.QuoteService
}

func NewQuoteHandler(quotes *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{quotes: quotes}
}

type submitQuoteRequest struct {
	Submitter      string                   `json:"submitter"`
	Style          model.QuoteStyle         `json:"style,omitempty"`
	Lines          []service.QuoteLineInput `json:"lines"`
	SubmissionDate *time.Time               `json:"submission_date,omitempty"`
}

func (h *QuoteHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitQuoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	q, err := h.quotes.Submit(r.Context(), req.Submitter, req.Style, req.Lines, req.SubmissionDate)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, q)
}

func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	q, err := h.quotes.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, q)
}

// Random draws one quote at random, optionally narrowed by author, submitter,
// or a body substring.
func (h *QuoteHandler) Random(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	quote, err := h.quotes.Random(r.Context(), q.Get("author"), q.Get("submitter"), q.Get("body"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	includeHidden := q.Get("include_hidden") == "true"

	entries, err := h.quotes.List(r.Context(), includeHidden, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (h *QuoteHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	quotes, err := h.quotes.Search(r.Context(), q.Get("author"), q.Get("submitter"), q.Get("body"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, quotes)
}

type hideQuoteRequest struct {
	Hidden bool `json:"hidden"`
}

func (h *QuoteHandler) SetHidden(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req hideQuoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.quotes.SetHidden(r.Context(), id, req.Hidden); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.quotes.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *QuoteHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.quotes.Leaderboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

func (h *QuoteHandler) GlobalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.quotes.GlobalStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *QuoteHandler) UserStats(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	stats, err := h.quotes.UserStats(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *QuoteHandler) YearlyCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.quotes.YearlyCounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, counts)
}
