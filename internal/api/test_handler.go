package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/qaforge/qaforge/internal/api/middleware"
	"github.com/qaforge/qaforge/internal/api/shared"
	"github.com/qaforge/qaforge/internal/domain"
	"github.com/qaforge/qaforge/internal/service/auth"
	"github.com/qaforge/qaforge/internal/store"
)

// maxTreeDepth bounds the parent-chain walk when checking for cycles, so a
// corrupted tree cannot hang a request.
const maxTreeDepth = 100

// TestHandler handles the test-tree endpoints.
type TestHandler struct {
	tests store.TestStore
	guard *MemberGuard
}

// NewTestHandler creates a new TestHandler with the given dependencies.
func NewTestHandler(tests store.TestStore, guard *MemberGuard) *TestHandler {
	return &TestHandler{
		tests: tests,
		guard: guard,
	}
}

// testResponse augments a test with its direct children ids.
type testResponse struct {
	*domain.Test
	ChildIDs []uuid.UUID `json:"child_ids"`
}

// List handles GET /tests?projectId=...
func (h *TestHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}

	projectID, err := parseQueryID(r, "projectId")
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}
	if _, err := h.guard.RequireProjectMember(r.Context(), userID, projectID, false); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	filter := store.TestFilter{
		ProjectID:       projectID,
		Type:            domain.TestType(r.URL.Query().Get("type")),
		Tag:             r.URL.Query().Get("tag"),
		Search:          r.URL.Query().Get("search"),
		IncludeArchived: r.URL.Query().Get("includeArchived") == "true",
	}
	if raw := r.URL.Query().Get("parentId"); raw != "" {
		if parentID, err := uuid.Parse(raw); err == nil {
			filter.ParentID = &parentID
		}
	}

	params := shared.ParsePageParams(r)
	tests, total, err := h.tests.List(r.Context(), filter, params.Request())
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondList(w, r, tests, params.Pagination(total), "")
}

// Create handles POST /tests.
func (h *TestHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return
	}

	var req CreateTestRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if _, err := h.guard.RequireProjectMember(r.Context(), userID, req.ProjectID, true); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	if req.ParentID != nil {
		if ok := h.verifyParent(w, r, req.ProjectID, *req.ParentID, uuid.Nil); !ok {
			return
		}
	}

	test, err := domain.NewTest(req.ProjectID, req.ParentID, req.Name, domain.TestType(req.Type), req.Content, req.Tags)
	if err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if err := h.tests.Create(r.Context(), test); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondCreated(w, r, test, "测试已创建")
}

// Get handles GET /tests/{id}, expanding the direct children ids.
func (h *TestHandler) Get(w http.ResponseWriter, r *http.Request) {
	test, ok := h.requireTest(w, r, false)
	if !ok {
		return
	}

	childIDs, err := h.tests.ListChildIDs(r.Context(), test.ID)
	if err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, testResponse{Test: test, ChildIDs: childIDs}, "")
}

// Update handles PUT /tests/{id}. Re-parenting is checked against the
// same-project and no-cycle invariants.
func (h *TestHandler) Update(w http.ResponseWriter, r *http.Request) {
	test, ok := h.requireTest(w, r, true)
	if !ok {
		return
	}

	var req UpdateTestRequest
	if err := shared.DecodeAndValidate(r, &req); err != nil {
		RespondValidationError(w, r, err)
		return
	}

	if req.ParentID != nil {
		if *req.ParentID == test.ID {
			RespondValidationError(w, r, domain.ErrTestParentSelf)
			return
		}
		if ok := h.verifyParent(w, r, test.ProjectID, *req.ParentID, test.ID); !ok {
			return
		}
		test.ParentID = req.ParentID
	}
	if req.Name != nil {
		test.Name = *req.Name
	}
	if req.Type != nil {
		test.Type = domain.TestType(*req.Type)
	}
	if req.Content != nil {
		test.Content = req.Content
	}
	if req.Tags != nil {
		test.Tags = domain.NormalizeTags(req.Tags)
	}

	if err := h.tests.Update(r.Context(), test); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, test, "测试已更新")
}

// Delete handles DELETE /tests/{id}: a soft delete. Executions and issue
// links stay intact.
func (h *TestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	test, ok := h.requireTest(w, r, true)
	if !ok {
		return
	}

	if err := h.tests.Archive(r.Context(), test.ID); err != nil {
		RespondMappedError(w, r, err)
		return
	}

	shared.RespondOK(w, r, nil, "测试已归档")
}

// verifyParent checks that a prospective parent exists, belongs to the same
// project, and (when moving an existing node) would not create a cycle. The
// cycle check walks the parent chain upward from the new parent; hitting
// moving means the new parent is a descendant of the node being moved.
func (h *TestHandler) verifyParent(w http.ResponseWriter, r *http.Request, projectID, parentID, moving uuid.UUID) bool {
	parent, err := h.tests.GetByID(r.Context(), parentID)
	if err != nil {
		RespondMappedError(w, r, err)
		return false
	}
	if parent.ProjectID != projectID {
		shared.RespondError(w, r, http.StatusBadRequest, shared.CodeValidation, "父级测试必须属于同一项目")
		return false
	}

	if moving == uuid.Nil {
		return true
	}
	current := parent
	for depth := 0; depth < maxTreeDepth; depth++ {
		if current.ID == moving {
			shared.RespondError(w, r, http.StatusBadRequest, shared.CodeValidation, "不能将测试移动到其子节点下")
			return false
		}
		if current.ParentID == nil {
			return true
		}
		current, err = h.tests.GetByID(r.Context(), *current.ParentID)
		if err != nil {
			RespondMappedError(w, r, err)
			return false
		}
	}

	shared.RespondError(w, r, http.StatusBadRequest, shared.CodeValidation, "测试层级过深")
	return false
}

// requireTest resolves the addressed test and checks the caller's membership
// in its project's workspace.
func (h *TestHandler) requireTest(w http.ResponseWriter, r *http.Request, mutate bool) (*domain.Test, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		RespondMappedError(w, r, auth.ErrMissingToken)
		return nil, false
	}
	testID, err := parseIDParam(r, "id")
	if err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}
	test, err := h.tests.GetByID(r.Context(), testID)
	if err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}
	if _, err := h.guard.RequireProjectMember(r.Context(), userID, test.ProjectID, mutate); err != nil {
		RespondMappedError(w, r, err)
		return nil, false
	}
	return test, true
}
