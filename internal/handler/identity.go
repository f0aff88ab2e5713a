package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/chatkeeper/internal/apperror"
	"github.com/sakif/chatkeeper/internal/service"
)

// IdentityHandler exposes participant, user, alias, and source endpoints.
type IdentityHandler struct {
	identities *service.IdentityService
}

func NewIdentityHandler(identities *service.IdentityService) *IdentityHandler {
	return &IdentityHandler{identities: identities}
}

type observeRequest struct {
	Protocol string  `json:"protocol"`
	Server   *string `json:"server,omitempty"`
	Channel  *string `json:"channel,omitempty"`
	Name     string  `json:"name"`
}

// Observe records a sighting of a name on a source, minting the participant
// and source rows if they are new.
func (h *IdentityHandler) Observe(w http.ResponseWriter, r *http.Request) {
	var req observeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	sighting, err := h.identities.Observe(r.Context(), req.Protocol, req.Server, req.Channel, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sighting)
}

type resolveRequest struct {
	Name string `json:"name"`
}

func (h *IdentityHandler) ResolveParticipant(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.identities.ResolveParticipant(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *IdentityHandler) GetParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	p, err := h.identities.Participant(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *IdentityHandler) GetParticipantByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, apperror.ValidationFailed("name", "name is required"))
		return
	}

	p, err := h.identities.ParticipantByName(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

type renameRequest struct {
	Name string `json:"name"`
}

func (h *IdentityHandler) RenameParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.identities.RenameParticipant(r.Context(), id, req.Name); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.identities.Participant(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *IdentityHandler) DeleteParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.identities.DeleteParticipant(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *IdentityHandler) Names(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	names, err := h.identities.Names(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, names)
}

type registerUserRequest struct {
	Name     string         `json:"name"`
	Comment  string         `json:"comment,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (h *IdentityHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	u, err := h.identities.RegisterUser(r.Context(), req.Name, req.Comment, req.Metadata)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, u)
}

func (h *IdentityHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	u, err := h.identities.User(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}

func (h *IdentityHandler) GetUserByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, apperror.ValidationFailed("name", "name is required"))
		return
	}
	exact := r.URL.Query().Get("exact") == "true"

	u, err := h.identities.UserByName(r.Context(), name, !exact)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}

func (h *IdentityHandler) RenameUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.identities.RenameUser(r.Context(), id, req.Name); err != nil {
		writeError(w, err)
		return
	}

	u, err := h.identities.User(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, u)
}

func (h *IdentityHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.identities.DeleteUser(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type linkRequest struct {
	ParticipantID int64 `json:"participant_id"`
}

func (h *IdentityHandler) LinkParticipant(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req linkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.identities.LinkParticipant(r.Context(), req.ParticipantID, userID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *IdentityHandler) UnlinkParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.identities.UnlinkParticipant(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type addAliasRequest struct {
	Name          string `json:"name"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
}

func (h *IdentityHandler) AddAlias(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req addAliasRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	a, err := h.identities.AddAlias(r.Context(), userID, req.Name, req.CaseSensitive)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

func (h *IdentityHandler) RemoveAlias(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	name := chi.URLParam(r, "name")
	if err := h.identities.RemoveAlias(r.Context(), userID, name); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *IdentityHandler) Aliases(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	aliases, err := h.identities.Aliases(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, aliases)
}

type registerProtocolRequest struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name,omitempty"`
}

func (h *IdentityHandler) RegisterProtocol(w http.ResponseWriter, r *http.Request) {
	var req registerProtocolRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.identities.RegisterProtocol(r.Context(), req.Identifier, req.Name); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *IdentityHandler) Protocols(w http.ResponseWriter, r *http.Request) {
	protocols, err := h.identities.Protocols(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, protocols)
}

func (h *IdentityHandler) GetSource(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	s, err := h.identities.Source(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s)
}
