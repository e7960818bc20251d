package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"carehub/internal/identity/models"
	service "carehub/internal/identity/service"
	"carehub/internal/registration"
	"carehub/pkg/domain"
	dErrors "carehub/pkg/domain-errors"
	"carehub/pkg/requestcontext"
)

// maxRegistrationForm bounds the in-memory part of the multipart parse;
// larger file parts spill to disk.
const maxRegistrationForm = 32 << 20

// Registrar runs the provider registration saga.
type Registrar interface {
	Register(ctx context.Context, req registration.Request) (*registration.Result, error)
}

// IdentityService is the slice of the identity provider the auth endpoints use.
type IdentityService interface {
	Authenticate(ctx context.Context, email, password string) (*service.SignInResult, error)
	SignOut(ctx context.Context, sessionID domain.SessionID) error
	VerifyEmail(ctx context.Context, id domain.IdentityID) (*models.Identity, error)
}

// AuthHandler serves registration, sign-in, sign-out and email verification.
type AuthHandler struct {
	registrar  Registrar
	identities IdentityService
	logger     *slog.Logger
}

// NewAuthHandler builds the auth handler.
func NewAuthHandler(registrar Registrar, identities IdentityService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{registrar: registrar, identities: identities, logger: logger}
}

// Register mounts the public auth routes.
func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/register/provider", h.handleRegisterProvider)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/verify", h.handleVerify)
}

// RegisterAuthenticated mounts the routes that need a valid session.
func (h *AuthHandler) RegisterAuthenticated(r chi.Router) {
	r.Post("/auth/logout", h.handleLogout)
}

type registerResponse struct {
	IdentityID string `json:"identity_id"`
	ProfileID  string `json:"profile_id"`
	Status     string `json:"status"`
}

func (h *AuthHandler) handleRegisterProvider(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxRegistrationForm); err != nil {
		h.logger.WarnContext(ctx, "malformed registration form",
			"error", err, "request_id", requestcontext.RequestID(ctx))
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "malformed multipart form"))
		return
	}

	req, closers, err := parseRegistrationForm(r)
	defer closeAll(closers)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.registrar.Register(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "provider registration failed",
			"error", err, "request_id", requestcontext.RequestID(ctx))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		IdentityID: result.IdentityID.String(),
		ProfileID:  result.ProfileID.String(),
		Status:     result.Status.String(),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
	IdentityID string    `json:"identity_id"`
	Role       string    `json:"role"`
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	result, err := h.identities.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:      result.Token,
		ExpiresAt:  result.Session.ExpiresAt,
		IdentityID: result.Identity.ID.String(),
		Role:       result.Identity.Role.String(),
	})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID := requestcontext.SessionID(ctx)
	if sessionID.IsNil() {
		writeError(w, dErrors.New(dErrors.CodeUnauthorized, "no session"))
		return
	}

	if err := h.identities.SignOut(ctx, sessionID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type verifyRequest struct {
	IdentityID string `json:"identity_id"`
}

type verifyResponse struct {
	IdentityID string `json:"identity_id"`
	Status     string `json:"status"`
}

// handleVerify confirms an email address. The identity reference arrives from
// the emailed verification link.
func (h *AuthHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	id, err := domain.ParseIdentityID(req.IdentityID)
	if err != nil {
		writeError(w, err)
		return
	}

	identity, err := h.identities.VerifyEmail(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{
		IdentityID: identity.ID.String(),
		Status:     identity.Status.String(),
	})
}

// parseRegistrationForm maps the multipart form onto the saga request.
// Services and schedule arrive as JSON-encoded form fields; files stay open
// until the saga has streamed them to storage.
func parseRegistrationForm(r *http.Request) (registration.Request, []multipart.File, error) {
	var closers []multipart.File

	form := r.FormValue
	req := registration.Request{
		Email:           form("email"),
		Password:        form("password"),
		ConfirmPassword: form("confirmPassword"),
		DisplayName:     form("displayName"),
		Phone:           form("phone"),
		BusinessName:    form("businessName"),
		ProviderType:    form("providerType"),
		Description:     form("description"),
		BusinessEmail:   form("businessEmail"),
		BusinessPhone:   form("businessPhone"),
		Address:         form("address"),
		City:            form("city"),
		Country:         form("country"),
		PermitNumber:    form("permitNumber"),
		LicenseNumber:   form("licenseNumber"),
	}

	var err error
	if req.Latitude, err = parseCoord(form("latitude"), "latitude"); err != nil {
		return req, closers, err
	}
	if req.Longitude, err = parseCoord(form("longitude"), "longitude"); err != nil {
		return req, closers, err
	}

	if raw := form("services"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Services); err != nil {
			return req, closers, dErrors.New(dErrors.CodeInvalidInput, "services must be a JSON array").WithField("services")
		}
	}
	if raw := form("schedule"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Schedule); err != nil {
			return req, closers, dErrors.New(dErrors.CodeInvalidInput, "schedule must be a JSON array").WithField("schedule")
		}
	}

	open := func(field string) (*registration.Upload, error) {
		file, header, err := r.FormFile(field)
		if err != nil {
			if err == http.ErrMissingFile {
				return nil, nil
			}
			return nil, dErrors.New(dErrors.CodeInvalidInput, "unreadable file upload").WithField(field)
		}
		closers = append(closers, file)
		return &registration.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Content:     file,
		}, nil
	}

	if req.PermitDocument, err = open("permitDocument"); err != nil {
		return req, closers, err
	}
	if req.Banner, err = open("banner"); err != nil {
		return req, closers, err
	}
	if req.LicenseDocument, err = open("licenseDocument"); err != nil {
		return req, closers, err
	}

	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["galleryImages"] {
			file, err := header.Open()
			if err != nil {
				return req, closers, dErrors.New(dErrors.CodeInvalidInput, "unreadable gallery image").WithField("galleryImages")
			}
			closers = append(closers, file)
			req.GalleryImages = append(req.GalleryImages, &registration.Upload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
				Content:     file,
			})
		}
	}

	return req, closers, nil
}

func parseCoord(raw, field string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "must be a number").WithField(field)
	}
	return v, nil
}

func closeAll(files []multipart.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
