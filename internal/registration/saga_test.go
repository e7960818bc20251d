package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	identitysvc "carehub/internal/identity/service"
	sessionstore "carehub/internal/identity/store/session"
	userstore "carehub/internal/identity/store/user"
	"carehub/internal/policy"
	"carehub/internal/provider"
	"carehub/internal/storage"
	"carehub/internal/token"
	"carehub/pkg/domain"
	dErrors "carehub/pkg/domain-errors"
	"carehub/pkg/platform/sentinel"
)

type SagaSuite struct {
	suite.Suite
	users    *userstore.InMemoryStore
	profiles *provider.InMemoryStore
	objects  *storage.InMemoryGateway
	idsvc    *identitysvc.Service
	saga     *Saga
}

func TestSagaSuite(t *testing.T) {
	suite.Run(t, new(SagaSuite))
}

func (s *SagaSuite) SetupTest() {
	s.users = userstore.New()
	s.profiles = provider.NewInMemory()
	s.objects = storage.NewInMemory()

	pol := policy.New(nil, s.users, s.profiles)
	tokens := token.NewService("test-signing-key", "carehub-test")

	s.idsvc = identitysvc.New(s.users, sessionstore.New(), pol, tokens, nil, nil, nil, slog.Default(),
		identitysvc.Config{
			SessionTTL:               time.Hour,
			PasswordMinLength:        8,
			PasswordMaxLength:        100,
			EmailVerificationEnabled: true,
		})

	s.saga = New(s.idsvc, s.profiles, s.objects, pol, nil, nil, slog.Default(), Config{
		Bucket:            "provider-documents",
		PasswordMinLength: 8,
		PasswordMaxLength: 100,
	})
}

// request returns a complete valid registration form with distinct emails.
func (s *SagaSuite) request(tag string) Request {
	req := validRequest()
	req.Email = fmt.Sprintf("owner-%s@sunrise.example", tag)
	req.BusinessEmail = fmt.Sprintf("front-%s@sunrise.example", tag)
	req.GalleryImages = []*Upload{
		{Filename: "waiting-room.jpg", ContentType: "image/jpeg", Size: 3, Content: strings.NewReader("jpg")},
	}
	return req
}

func (s *SagaSuite) assertNothingPersisted(personalEmail, businessEmail string) {
	_, err := s.users.FindByEmail(context.Background(), personalEmail)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	inUse, err := s.profiles.BusinessEmailInUse(context.Background(), businessEmail)
	s.Require().NoError(err)
	s.False(inUse)

	s.Equal(0, s.objects.Count(), "no blobs may survive the attempt")
}

func (s *SagaSuite) TestSuccessfulRegistration() {
	req := s.request("ok")
	result, err := s.saga.Register(context.Background(), req)
	s.Require().NoError(err)
	s.Require().NotNil(result)
	s.Equal(domain.StatusPendingVerification, result.Status)

	identity, err := s.users.FindByID(context.Background(), result.IdentityID)
	s.Require().NoError(err)
	s.Equal(domain.RoleProvider, identity.Role)

	profile, err := s.profiles.FindByIdentity(context.Background(), result.IdentityID)
	s.Require().NoError(err)
	s.Equal(result.ProfileID, profile.ID)
	s.Equal(domain.ProfilePending, profile.Status)
	s.Len(profile.Services, 2)
	s.Len(profile.Schedule, 7)
	s.NotEmpty(profile.BannerURL)

	// Exactly one entry per day of week, at least one open.
	days := map[int]bool{}
	anyOpen := false
	for _, entry := range profile.Schedule {
		s.False(days[entry.DayOfWeek])
		days[entry.DayOfWeek] = true
		anyOpen = anyOpen || entry.IsOpen
	}
	s.True(anyOpen)

	// Permit document row references the uploaded blob.
	s.Require().Len(profile.Documents, 1)
	s.Equal(domain.DocBusinessPermit, profile.Documents[0].Type)
	s.Equal("PRM-1234", profile.Documents[0].Identifier)
	s.True(s.objects.Exists("provider-documents", profile.Documents[0].StorageRef))

	var gallery []string
	s.Require().NoError(json.Unmarshal(profile.Images, &gallery))
	s.Len(gallery, 1)

	// Permit + banner + one gallery image.
	s.Equal(3, s.objects.Count())
}

func (s *SagaSuite) TestSignInGateAfterRegistration() {
	req := s.request("gate")
	result, err := s.saga.Register(context.Background(), req)
	s.Require().NoError(err)

	// Fresh provider: correct credentials but unverified email.
	_, err = s.idsvc.Authenticate(context.Background(), req.Email, req.Password)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeSignInDenied))
	s.Equal(dErrors.DenyEmailNotVerified, dErrors.ReasonOf(err))

	_, err = s.idsvc.VerifyEmail(context.Background(), result.IdentityID)
	s.Require().NoError(err)

	_, err = s.idsvc.Authenticate(context.Background(), req.Email, req.Password)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeSignInDenied))
	s.Equal(dErrors.DenyPendingApproval, dErrors.ReasonOf(err))

	_, err = s.idsvc.Approve(context.Background(), result.IdentityID)
	s.Require().NoError(err)

	signedIn, err := s.idsvc.Authenticate(context.Background(), req.Email, req.Password)
	s.Require().NoError(err)
	s.NotEmpty(signedIn.Token)
}

func (s *SagaSuite) TestValidationFailureHasNoSideEffects() {
	req := s.request("invalid")
	req.Schedule = req.Schedule[:3]

	_, err := s.saga.Register(context.Background(), req)
	s.Require().Error(err)

	var sagaErr *Error
	s.Require().ErrorAs(err, &sagaErr)
	s.Equal(StepValidating, sagaErr.Step)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	s.Equal("schedule", dErrors.FieldOf(err))

	s.assertNothingPersisted(req.Email, req.BusinessEmail)
}

func (s *SagaSuite) TestDuplicatePersonalEmailFailsFast() {
	first := s.request("dup")
	_, err := s.saga.Register(context.Background(), first)
	s.Require().NoError(err)

	second := s.request("dup2")
	second.Email = first.Email

	_, err = s.saga.Register(context.Background(), second)
	s.Require().Error(err)

	var sagaErr *Error
	s.Require().ErrorAs(err, &sagaErr)
	s.Equal(StepValidating, sagaErr.Step)
	s.True(dErrors.HasCode(err, dErrors.CodeDuplicateEmail))
	s.Equal("email", dErrors.FieldOf(err))
}

func (s *SagaSuite) TestBannerUploadFailureCompensatesEverything() {
	req := s.request("banner-down")
	s.objects.FailPath("banners/")

	_, err := s.saga.Register(context.Background(), req)
	s.Require().Error(err)

	var sagaErr *Error
	s.Require().ErrorAs(err, &sagaErr)
	s.Equal(StepUploadingDocs, sagaErr.Step)
	s.True(dErrors.HasCode(err, dErrors.CodeUploadFailed))
	s.Equal("banner", dErrors.FieldOf(err))

	// The permit blob that preceded the failure is gone, and so is the
	// identity.
	s.assertNothingPersisted(req.Email, req.BusinessEmail)
}

func (s *SagaSuite) TestPersistFailureCompensatesEverything() {
	req := s.request("db-down")
	s.profiles.FailNextCreate(errors.New("connection reset by peer"))

	_, err := s.saga.Register(context.Background(), req)
	s.Require().Error(err)

	var sagaErr *Error
	s.Require().ErrorAs(err, &sagaErr)
	s.Equal(StepPersisting, sagaErr.Step)
	s.True(dErrors.HasCode(err, dErrors.CodePersistence))

	s.assertNothingPersisted(req.Email, req.BusinessEmail)
}

func (s *SagaSuite) TestConcurrentAttemptsAdmitExactlyOne() {
	base := s.request("race")
	other := s.request("race-b")
	other.BusinessEmail = base.BusinessEmail // same business, different owner

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, req := range []Request{base, other} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.saga.Register(context.Background(), req)
		}()
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateEmail),
			"loser must see a duplicate error, got %v", err)
	}
	s.Equal(1, successes)

	inUse, err := s.profiles.BusinessEmailInUse(context.Background(), base.BusinessEmail)
	s.Require().NoError(err)
	s.True(inUse)
}

func (s *SagaSuite) TestOptionalGalleryFailureDoesNotAbort() {
	req := s.request("gallery-down")
	req.GalleryImages = append(req.GalleryImages,
		&Upload{Filename: "lobby.jpg", ContentType: "image/jpeg", Size: 3, Content: strings.NewReader("jpg")})
	s.objects.FailPath("gallery/")

	result, err := s.saga.Register(context.Background(), req)
	s.Require().NoError(err)

	profile, err := s.profiles.FindByIdentity(context.Background(), result.IdentityID)
	s.Require().NoError(err)

	var gallery []string
	s.Require().NoError(json.Unmarshal(profile.Images, &gallery))
	s.Len(gallery, 1, "the failed image leaves no reference behind")
	s.NotEmpty(profile.BannerURL)
}

func (s *SagaSuite) TestLicenseDocumentPersistsAlongsidePermit() {
	req := s.request("licensed")
	req.LicenseNumber = "LIC-9876"
	req.LicenseDocument = &Upload{Filename: "license.pdf", ContentType: "application/pdf", Size: 4, Content: strings.NewReader("%PDF")}

	result, err := s.saga.Register(context.Background(), req)
	s.Require().NoError(err)

	profile, err := s.profiles.FindByIdentity(context.Background(), result.IdentityID)
	s.Require().NoError(err)
	s.Require().Len(profile.Documents, 2)

	types := map[domain.DocumentType]string{}
	for _, doc := range profile.Documents {
		types[doc.Type] = doc.Identifier
	}
	s.Equal("PRM-1234", types[domain.DocBusinessPermit])
	s.Equal("LIC-9876", types[domain.DocProfessionalLicense])
}

// failingDeleter wraps the identity service so compensation's identity delete
// fails, exercising the orphan-incident path.
type failingDeleter struct {
	*identitysvc.Service
}

func (f *failingDeleter) Delete(context.Context, domain.IdentityID) error {
	return errors.New("identity backend unavailable")
}

func (s *SagaSuite) TestCompensationFailureNeverMasksOriginalError() {
	pol := policy.New(nil, s.users, s.profiles)
	saga := New(&failingDeleter{s.idsvc}, s.profiles, s.objects, pol, nil, nil, slog.Default(), Config{
		Bucket:            "provider-documents",
		PasswordMinLength: 8,
		PasswordMaxLength: 100,
	})

	req := s.request("orphan")
	s.objects.FailPath("banners/")

	_, err := saga.Register(context.Background(), req)
	s.Require().Error(err)

	// The caller still sees the upload failure, not the delete failure.
	var sagaErr *Error
	s.Require().ErrorAs(err, &sagaErr)
	s.Equal(StepUploadingDocs, sagaErr.Step)
	s.True(dErrors.HasCode(err, dErrors.CodeUploadFailed))

	// Blobs were still cleaned up; only the identity is orphaned.
	s.Equal(0, s.objects.Count())
	_, lookupErr := s.users.FindByEmail(context.Background(), req.Email)
	s.Require().NoError(lookupErr)
}

func TestCompensatorSnapshotReversesInsertionOrder(t *testing.T) {
	comp := &compensator{}
	comp.addBlob("permits/a")
	comp.addBlob("banners/b")
	comp.addBlob("gallery/c")

	got := comp.snapshot()
	want := []string{"gallery/c", "banners/b", "permits/a"}
	if len(got) != len(want) {
		t.Fatalf("snapshot length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snapshot[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
