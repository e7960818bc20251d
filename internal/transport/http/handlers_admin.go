package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"carehub/internal/identity/models"
	"carehub/internal/provider"
	"carehub/pkg/domain"
	"carehub/pkg/platform/sentinel"
	"carehub/pkg/requestcontext"
)

// IdentityAdmin is the lifecycle slice exposed to administrators.
type IdentityAdmin interface {
	Approve(ctx context.Context, id domain.IdentityID) (*models.Identity, error)
	Suspend(ctx context.Context, id domain.IdentityID) (*models.Identity, error)
	Reinstate(ctx context.Context, id domain.IdentityID) (*models.Identity, error)
}

// ProfileAdmin reflects lifecycle decisions onto the provider profile.
type ProfileAdmin interface {
	FindByIdentity(ctx context.Context, identityID domain.IdentityID) (*provider.Profile, error)
	SetStatus(ctx context.Context, profileID domain.ProfileID, status domain.ProfileStatus) error
}

// AdminHandler serves the account review endpoints. The router guards it with
// authentication plus the ADMIN role.
type AdminHandler struct {
	identities IdentityAdmin
	profiles   ProfileAdmin
	logger     *slog.Logger
}

// NewAdminHandler builds the admin handler.
func NewAdminHandler(identities IdentityAdmin, profiles ProfileAdmin, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{identities: identities, profiles: profiles, logger: logger}
}

// Register mounts the admin routes.
func (h *AdminHandler) Register(r chi.Router) {
	r.Post("/admin/accounts/{id}/approve", h.handleApprove)
	r.Post("/admin/accounts/{id}/suspend", h.handleSuspend)
	r.Post("/admin/accounts/{id}/reinstate", h.handleReinstate)
}

type accountResponse struct {
	IdentityID string `json:"identity_id"`
	Status     string `json:"status"`
}

// handleApprove activates a reviewed provider account and marks its profile
// approved. A provider without a profile is approved anyway; profile creation
// and account approval are separate admin concerns.
func (h *AdminHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseIdentityID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	identity, err := h.identities.Approve(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.approveProfile(ctx, id); err != nil {
		h.logger.WarnContext(ctx, "profile status update failed after approval",
			"identity_id", id, "error", err,
			"request_id", requestcontext.RequestID(ctx))
	}

	writeJSON(w, http.StatusOK, accountResponse{
		IdentityID: identity.ID.String(),
		Status:     identity.Status.String(),
	})
}

func (h *AdminHandler) approveProfile(ctx context.Context, identityID domain.IdentityID) error {
	profile, err := h.profiles.FindByIdentity(ctx, identityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return err
	}
	return h.profiles.SetStatus(ctx, profile.ID, domain.ProfileApproved)
}

func (h *AdminHandler) handleSuspend(w http.ResponseWriter, r *http.Request) {
	h.lifecycleAction(w, r, h.identities.Suspend)
}

func (h *AdminHandler) handleReinstate(w http.ResponseWriter, r *http.Request) {
	h.lifecycleAction(w, r, h.identities.Reinstate)
}

func (h *AdminHandler) lifecycleAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(context.Context, domain.IdentityID) (*models.Identity, error),
) {
	id, err := domain.ParseIdentityID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	identity, err := action(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, accountResponse{
		IdentityID: identity.ID.String(),
		Status:     identity.Status.String(),
	})
}
