package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/reelwork/marketplace/internal/api/middleware"
	"github.com/reelwork/marketplace/internal/api/types"
	"github.com/reelwork/marketplace/internal/services"
)

type UsersHandler struct {
	svc services.ProfileService
}

func NewUsersHandler(svc services.ProfileService) *UsersHandler {
	return &UsersHandler{svc: svc}
}

func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "Invalid user ID")
	if !ok {
		return
	}
	u, err := h.svc.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Update handles PUT /users/{id}. A caller other than the target is
// rejected before the body is read.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, r, "id", "Invalid user ID")
	if !ok {
		return
	}
	if id != p.UserID {
		writeErrorStr(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	h.update(w, r, id)
}

// UpdateSelf handles PATCH /users/profile.
func (h *UsersHandler) UpdateSelf(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	h.update(w, r, p.UserID)
}

func (h *UsersHandler) update(w http.ResponseWriter, r *http.Request, target uuid.UUID) {
	p, _ := middleware.PrincipalFrom(r.Context())
	var req types.ProfileUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	u, err := h.svc.UpdateProfile(r.Context(), p.UserID, target, services.UpdateProfileInput{
		Name:           req.Name,
		Bio:            req.Bio,
		ProfilePic:     req.ProfilePic,
		PortfolioURL:   req.PortfolioURL,
		Skills:         req.Skills,
		ContactDisplay: req.ContactDisplay,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "Invalid user ID")
	if !ok {
		return
	}
	p, _ := middleware.PrincipalFrom(r.Context())
	if err := h.svc.DeleteProfile(r.Context(), p.UserID, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.MessageResponse{Message: "Profile deleted successfully"})
}
