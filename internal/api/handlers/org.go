package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/legalwatchdog/platform/internal/api/respond"
	"github.com/legalwatchdog/platform/internal/org"
	"github.com/legalwatchdog/platform/internal/tenant"
)

type OrgHandler struct {
	svc *org.Service
}

func NewOrgHandler(svc *org.Service) *OrgHandler {
	return &OrgHandler{svc: svc}
}

func orgError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, org.ErrNotFound):
		respond.Failure(w, http.StatusNotFound, "not found")
	case errors.Is(err, org.ErrRoleInUse):
		respond.Failure(w, http.StatusConflict, err.Error())
	case errors.Is(err, org.ErrRoleNameTaken):
		respond.Failure(w, http.StatusConflict, err.Error())
	case errors.Is(err, org.ErrLastAdmin):
		respond.Failure(w, http.StatusConflict, err.Error())
	case errors.Is(err, org.ErrInvitationInvalid):
		respond.Failure(w, http.StatusBadRequest, err.Error())
	default:
		respond.Error(w, err)
	}
}

func (h *OrgHandler) Get(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	o, err := h.svc.Get(r.Context(), access)
	if err != nil {
		orgError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "organization", o)
}

func (h *OrgHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	members, err := h.svc.ListMembers(r.Context(), access)
	if err != nil {
		orgError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "members", map[string]interface{}{"members": members, "count": len(members)})
}

func (h *OrgHandler) DeactivateMember(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.svc.DeactivateMember(r.Context(), access, userID); err != nil {
		orgError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "member deactivated", nil)
}

type assignRoleRequest struct {
	RoleID uuid.UUID `json:"role_id"`
}

func (h *OrgHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	userID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req assignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RoleID == uuid.Nil {
		respond.Failure(w, http.StatusBadRequest, "role_id is required")
		return
	}

	if err := h.svc.AssignRole(r.Context(), access, userID, req.RoleID); err != nil {
		orgError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "role assigned", nil)
}

func (h *OrgHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	roles, err := h.svc.ListRoles(r.Context(), access)
	if err != nil {
		orgError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "roles", map[string]interface{}{"roles": roles, "count": len(roles)})
}

func (h *OrgHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())

	var in org.RoleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		respond.Failure(w, http.StatusBadRequest, err.Error())
		return
	}

	role, err := h.svc.CreateRole(r.Context(), access, in)
	if err != nil {
		orgError(w, err)
		return
	}
	respond.Success(w, http.StatusCreated, "role created", role)
}

func (h *OrgHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	roleID, err := uuid.Parse(chi.URLParam(r, "role_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid role id")
		return
	}

	var in org.RoleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		respond.Failure(w, http.StatusBadRequest, err.Error())
		return
	}

	role, err := h.svc.UpdateRole(r.Context(), access, roleID, in)
	if err != nil {
		orgError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "role updated", role)
}

func (h *OrgHandler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())
	roleID, err := uuid.Parse(chi.URLParam(r, "role_id"))
	if err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid role id")
		return
	}

	if err := h.svc.DeleteRole(r.Context(), access, roleID); err != nil {
		orgError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "role deleted", nil)
}

func (h *OrgHandler) Invite(w http.ResponseWriter, r *http.Request) {
	access := tenant.AccessFromContext(r.Context())

	var in org.InviteInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inv, token, err := h.svc.Invite(r.Context(), access, in)
	if err != nil {
		orgError(w, err)
		return
	}
	respond.Success(w, http.StatusCreated, "invitation created",
		map[string]interface{}{"invitation": inv, "token": token})
}

// AcceptInvitation is unauthenticated; the emailed token is the credential.
func (h *OrgHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var in org.AcceptInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Failure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.Token == "" {
		respond.Failure(w, http.StatusBadRequest, "token is required")
		return
	}

	user, err := h.svc.Accept(r.Context(), in)
	if err != nil {
		orgError(w, err)
		return
	}
	respond.Success(w, http.StatusOK, "invitation accepted", user)
}
