package api

import (
	"errors"
	"net/http"

	"github.com/qaforge/qaforge/internal/api/middleware"
	"github.com/qaforge/qaforge/internal/api/shared"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/service/auth"
	"github.com/qaforge/qaforge/internal/store"
)

// KnowledgeHandler handles knowledge-base endpoints. Entries are global, not
// workspace-scoped; mutation is restricted to the author or a global admin.
type KnowledgeHandler struct {
	knowledge store.KnowledgeStore
	users     store.UserStore
}

// NewKnowledgeHandler creates a new KnowledgeHandler with the given
// dependencies.
func NewKnowledgeHandler(knowledge store.KnowledgeStore, users store.UserStore) *KnowledgeHandler {
	return &KnowledgeHandler{
		knowledge: knowledge,
		users:     users,
	}
}

// List handles GET /knowledge.
func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.KnowledgeFilter{
		Category: r.URL.Query().Get("category"),
		Tag:      r.URL.Query().Get("tag"),
		Search:   r.URL.Query().Get("search"),
	}

	params := shared.ParsePageParams(r)
	entries, total, err := h.knowledge.List(r.Context(), filter, params.Request())
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondList(w, r, entries, params.Pagination(total), "")
}

// Create handles POST /knowledge.
func (h *KnowledgeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}

	var req CreateKnowledgeRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	entry, err := domain.NewKnowledgeEntry(userID, req.Title, req.Content, req.Category, req.Tags)
	if err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if err := h.knowledge.Create(r.Context(), entry); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondCreated(w, r, entry, "知识条目已创建")
}

// Get handles GET /knowledge/{id}.
func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	entryID, err := parseIDParam(r, "id")
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	entry, err := h.knowledge.GetByID(r.Context(), entryID)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, entry, "")
}

// Update handles PUT /knowledge/{id}.
func (h *KnowledgeHandler) Update(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.requireMutable(w, r)
	if !ok {
		return
	}

	var req UpdateKnowledgeRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if req.Title != nil {
		entry.Title = *req.Title
	}
	if req.Content != nil {
		entry.Content = *req.Content
	}
	if req.Category != nil {
		entry.Category = *req.Category
	}
	if req.Tags != nil {
		entry.Tags = domain.NormalizeTags(req.Tags)
	}

	if err := h.knowledge.Update(r.Context(), entry); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, entry, "知识条目已更新")
}

// Delete handles DELETE /knowledge/{id}.
func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.requireMutable(w, r)
	if !ok {
		return
	}

	if err := h.knowledge.Delete(r.Context(), entry.ID); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, nil, "知识条目已删除")
}

// requireMutable resolves the addressed entry and verifies the caller is its
// author or a global admin.
func (h *KnowledgeHandler) requireMutable(w http.ResponseWriter, r *http.Request) (*domain.KnowledgeEntry, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return nil, false
	}
	entryID, err := parseIDParam(r, "id")
	if err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}
	entry, err := h.knowledge.GetByID(r.Context(), entryID)
	if err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			RespondMappedError(w, r, auth.ErrMissingToken)
			return nil, false
		}
		RespondMappedError(w, r, err)
		return nil, false
	}

	if !entry.CanMutate(userID, user.Role) {
		RespondForbidden(w, r)
		return nil, false
	}
	return entry, true
}
