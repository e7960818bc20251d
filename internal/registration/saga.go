package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"carehub/internal/audit"
	"carehub/internal/identity/models"
	"carehub/internal/platform/metrics"
	"carehub/internal/policy"
	"carehub/internal/provider"
	"carehub/internal/storage"
	"carehub/pkg/domain"
	dErrors "carehub/pkg/domain-errors"
	"carehub/pkg/platform/sentinel"
)

// Saga step names, used to tag failures and metrics.
const (
	StepValidating       = "VALIDATING"
	StepCreatingIdentity = "CREATING_IDENTITY"
	StepUploadingDocs    = "UPLOADING_DOCS"
	StepPersisting       = "PERSISTING"
)

// Error tags a failed attempt with the step it died at. The underlying coded
// error stays reachable through errors.As / errors.Is.
type Error struct {
	Step string
	Err  error
}

func (e *Error) Error() string { return e.Step + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// IdentityService is the slice of the identity provider the saga needs.
type IdentityService interface {
	Create(ctx context.Context, input models.NewIdentity) (*models.Identity, error)
	Delete(ctx context.Context, id domain.IdentityID) error
}

// ProfileStore persists the profile aggregate.
type ProfileStore interface {
	CreateProfileGraph(ctx context.Context, graph provider.Graph) error
}

// Result is a completed registration.
type Result struct {
	IdentityID domain.IdentityID
	ProfileID  domain.ProfileID
	Status     domain.AccountStatus
}

// Config carries the saga's policy knobs.
type Config struct {
	Bucket            string
	PasswordMinLength int
	PasswordMaxLength int
}

// Saga runs provider registration end to end.
type Saga struct {
	identities IdentityService
	profiles   ProfileStore
	objects    storage.Gateway
	policy     *policy.Policy
	metrics    *metrics.Metrics
	audit      *audit.Recorder
	logger     *slog.Logger
	cfg        Config
}

// New wires a registration saga. Metrics and audit may be nil.
func New(
	identities IdentityService,
	profiles ProfileStore,
	objects storage.Gateway,
	pol *policy.Policy,
	m *metrics.Metrics,
	rec *audit.Recorder,
	logger *slog.Logger,
	cfg Config,
) *Saga {
	return &Saga{
		identities: identities,
		profiles:   profiles,
		objects:    objects,
		policy:     pol,
		metrics:    m,
		audit:      rec,
		logger:     logger,
		cfg:        cfg,
	}
}

// Register runs one registration attempt. On success the new identity and
// profile exist and the result carries both IDs. On failure after identity
// creation, uploads are removed in reverse order and the identity deleted
// before the step-tagged error returns; compensation problems are logged,
// never surfaced.
func (s *Saga) Register(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.RegistrationsStarted.Inc()
	}
	s.record(ctx, audit.Event{Action: audit.ActionRegistrationStarted})

	result, err := s.run(ctx, req)
	if err != nil {
		var sagaErr *Error
		step := StepValidating
		if errors.As(err, &sagaErr) {
			step = sagaErr.Step
		}
		if s.metrics != nil {
			s.metrics.ObserveSaga(start, step)
		}
		s.record(ctx, audit.Event{
			Action:  audit.ActionRegistrationFailed,
			Outcome: step,
			Reason:  err.Error(),
		})
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveSaga(start, "")
	}
	s.record(ctx, audit.Event{
		IdentityID: result.IdentityID.String(),
		Action:     audit.ActionRegistrationCompleted,
	})
	s.logger.InfoContext(ctx, "provider registration completed",
		"identity_id", result.IdentityID, "profile_id", result.ProfileID,
		"duration", time.Since(start))
	return result, nil
}

func (s *Saga) run(ctx context.Context, req Request) (*Result, error) {
	// VALIDATING: pure rules first, then the uniqueness pre-flights. Nothing
	// to compensate on failure.
	if err := validate(req, s.cfg.PasswordMinLength, s.cfg.PasswordMaxLength); err != nil {
		return nil, &Error{Step: StepValidating, Err: err}
	}
	if !s.policy.AllowedEmailDomain(req.Email) {
		return nil, &Error{Step: StepValidating,
			Err: dErrors.New(dErrors.CodeInvalidInput, "email domain is not permitted").WithField("email")}
	}
	if err := s.policy.CheckEmailAvailable(ctx, req.Email); err != nil {
		return nil, &Error{Step: StepValidating, Err: err}
	}
	if err := s.policy.CheckBusinessEmailAvailable(ctx, req.BusinessEmail); err != nil {
		return nil, &Error{Step: StepValidating, Err: err}
	}

	// CREATING_IDENTITY: terminal on failure, nothing created yet.
	identity, err := s.identities.Create(ctx, models.NewIdentity{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
		Role:        domain.RoleProvider,
	})
	if err != nil {
		return nil, &Error{Step: StepCreatingIdentity, Err: err}
	}

	comp := &compensator{identityID: identity.ID}

	// UPLOADING_DOCS.
	refs, err := s.uploadAll(ctx, identity.ID, req, comp)
	if err != nil {
		s.compensate(ctx, comp)
		return nil, &Error{Step: StepUploadingDocs, Err: err}
	}

	// PERSISTING: one transaction for the whole graph.
	graph := buildGraph(identity.ID, req, refs, time.Now())
	if err := s.profiles.CreateProfileGraph(ctx, graph); err != nil {
		s.compensate(ctx, comp)
		if errors.Is(err, sentinel.ErrDuplicate) {
			return nil, &Error{Step: StepPersisting,
				Err: dErrors.New(dErrors.CodeDuplicateEmail, "business email already in use").WithField("businessEmail")}
		}
		return nil, &Error{Step: StepPersisting,
			Err: dErrors.Wrap(err, dErrors.CodePersistence, "profile persistence failed")}
	}

	return &Result{
		IdentityID: identity.ID,
		ProfileID:  graph.Profile.ID,
		Status:     identity.Status,
	}, nil
}

// uploadRefs collects the storage references the persistence step needs.
type uploadRefs struct {
	permit  storage.Ref
	banner  storage.Ref
	license *storage.Ref
	gallery []string
}

// uploadAll pushes every file concurrently with fail-fast cancellation.
// Successful uploads land on the compensation list before the next result is
// even looked at, so a failure on upload N still cleans up uploads 1..N-1.
// Gallery images are advisory: their failures log and leave a gap.
func (s *Saga) uploadAll(ctx context.Context, identityID domain.IdentityID, req Request, comp *compensator) (*uploadRefs, error) {
	refs := &uploadRefs{gallery: make([]string, len(req.GalleryImages))}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ref, err := s.uploadOne(gctx, identityID, "permits", req.PermitDocument, comp)
		if err != nil {
			return uploadFailed("permitDocument", err)
		}
		refs.permit = ref
		return nil
	})

	g.Go(func() error {
		ref, err := s.uploadOne(gctx, identityID, "banners", req.Banner, comp)
		if err != nil {
			return uploadFailed("banner", err)
		}
		refs.banner = ref
		return nil
	})

	if req.LicenseDocument != nil {
		g.Go(func() error {
			ref, err := s.uploadOne(gctx, identityID, "licenses", req.LicenseDocument, comp)
			if err != nil {
				return uploadFailed("licenseDocument", err)
			}
			refs.license = &ref
			return nil
		})
	}

	for i, img := range req.GalleryImages {
		g.Go(func() error {
			ref, err := s.uploadOne(gctx, identityID, "gallery", img, comp)
			if err != nil {
				s.logger.WarnContext(gctx, "optional gallery upload failed, continuing",
					"identity_id", identityID, "filename", img.Filename, "error", err)
				return nil
			}
			refs.gallery[i] = ref.PublicURL
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Drop the gaps failed optional uploads left behind.
	kept := refs.gallery[:0]
	for _, url := range refs.gallery {
		if url != "" {
			kept = append(kept, url)
		}
	}
	refs.gallery = kept
	return refs, nil
}

func (s *Saga) uploadOne(ctx context.Context, identityID domain.IdentityID, kind string, up *Upload, comp *compensator) (storage.Ref, error) {
	path := fmt.Sprintf("%s/%s-%s", kind, identityID, up.Filename)
	ref, err := s.objects.Upload(ctx, s.cfg.Bucket, path, up.Content, up.Size, up.ContentType)
	if err != nil {
		return storage.Ref{}, err
	}
	comp.addBlob(ref.Path)
	return ref, nil
}

func uploadFailed(field string, err error) error {
	return dErrors.Wrap(err, dErrors.CodeUploadFailed, "document upload failed").WithField(field)
}

// buildGraph assembles the profile aggregate from the form and the collected
// storage references.
func buildGraph(identityID domain.IdentityID, req Request, refs *uploadRefs, now time.Time) provider.Graph {
	profileID := domain.NewProfileID()

	images, _ := json.Marshal(refs.gallery)
	providerType, _ := domain.ParseProviderType(req.ProviderType)

	graph := provider.Graph{
		Profile: provider.Profile{
			ID:            profileID,
			IdentityID:    identityID,
			Status:        domain.ProfilePending,
			BusinessName:  req.BusinessName,
			ProviderType:  providerType,
			Description:   req.Description,
			BusinessEmail: req.BusinessEmail,
			BusinessPhone: req.BusinessPhone,
			Address:       req.Address,
			City:          req.City,
			Country:       req.Country,
			Latitude:      req.Latitude,
			Longitude:     req.Longitude,
			BannerURL:     refs.banner.PublicURL,
			Images:        images,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}

	graph.Documents = append(graph.Documents, provider.Document{
		ID:         domain.NewDocumentID(),
		ProfileID:  profileID,
		IdentityID: identityID,
		Type:       domain.DocBusinessPermit,
		Status:     domain.DocumentPending,
		StorageRef: refs.permit.Path,
		PublicURL:  refs.permit.PublicURL,
		Identifier: req.PermitNumber,
		CreatedAt:  now,
	})
	if refs.license != nil {
		graph.Documents = append(graph.Documents, provider.Document{
			ID:         domain.NewDocumentID(),
			ProfileID:  profileID,
			IdentityID: identityID,
			Type:       domain.DocProfessionalLicense,
			Status:     domain.DocumentPending,
			StorageRef: refs.license.Path,
			PublicURL:  refs.license.PublicURL,
			Identifier: req.LicenseNumber,
			CreatedAt:  now,
		})
	}

	for _, svc := range req.Services {
		graph.Services = append(graph.Services, provider.Service{
			ID:          domain.NewServiceID(),
			ProfileID:   profileID,
			Name:        svc.Name,
			Description: svc.Description,
			PriceRange:  svc.PriceRange,
			CreatedAt:   now,
		})
	}

	for _, day := range req.Schedule {
		entry := provider.ScheduleEntry{
			ID:        domain.NewScheduleID(),
			ProfileID: profileID,
			DayOfWeek: day.DayOfWeek,
			IsOpen:    day.IsOpen,
		}
		if day.IsOpen {
			entry.OpenTime = day.OpenTime
			entry.CloseTime = day.CloseTime
		}
		graph.Schedule = append(graph.Schedule, entry)
	}

	return graph
}

// compensator accumulates what a failed attempt has to undo. Blob paths are
// appended only after their upload succeeded; the identity is fixed at
// creation time.
type compensator struct {
	mu         sync.Mutex
	identityID domain.IdentityID
	blobs      []string
}

func (c *compensator) addBlob(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blobs = append(c.blobs, path)
}

// snapshot returns the blob paths in reverse insertion order.
func (c *compensator) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.blobs))
	for i, p := range c.blobs {
		out[len(c.blobs)-1-i] = p
	}
	return out
}

// compensate undoes a failed attempt: blobs first, newest first, then the
// identity. Every error here is logged and swallowed; the caller reports the
// original failure, not the cleanup's.
func (s *Saga) compensate(ctx context.Context, comp *compensator) {
	if s.metrics != nil {
		s.metrics.CompensationRuns.Inc()
	}

	blobs := comp.snapshot()
	if len(blobs) > 0 {
		if err := s.objects.Remove(ctx, s.cfg.Bucket, blobs); err != nil {
			s.logger.ErrorContext(ctx, "compensation blob cleanup incomplete",
				"identity_id", comp.identityID, "error", err)
		}
	}

	if err := s.identities.Delete(ctx, comp.identityID); err != nil {
		if s.metrics != nil {
			s.metrics.OrphanedIdentities.Inc()
		}
		s.record(ctx, audit.Event{
			IdentityID: comp.identityID.String(),
			Action:     audit.ActionIdentityOrphaned,
			Reason:     err.Error(),
		})
		s.logger.ErrorContext(ctx, "compensation left an orphaned identity",
			"identity_id", comp.identityID, "error", err)
		return
	}

	s.record(ctx, audit.Event{
		IdentityID: comp.identityID.String(),
		Action:     audit.ActionRegistrationCompensated,
	})
}

func (s *Saga) record(ctx context.Context, event audit.Event) {
	if s.audit != nil {
		s.audit.Record(ctx, event)
	}
}
