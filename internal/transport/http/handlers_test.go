package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"carehub/internal/identity/models"
	identitysvc "carehub/internal/identity/service"
	sessionstore "carehub/internal/identity/store/session"
	userstore "carehub/internal/identity/store/user"
	"carehub/internal/policy"
	"carehub/internal/provider"
	"carehub/internal/registration"
	"carehub/internal/storage"
	"carehub/internal/token"
	"carehub/pkg/domain"
	dErrors "carehub/pkg/domain-errors"
)

type HandlerSuite struct {
	suite.Suite
	users    *userstore.InMemoryStore
	profiles *provider.InMemoryStore
	objects  *storage.InMemoryGateway
	idsvc    *identitysvc.Service
	server   *httptest.Server
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.users = userstore.New()
	s.profiles = provider.NewInMemory()
	s.objects = storage.NewInMemory()

	pol := policy.New(nil, s.users, s.profiles)
	tokens := token.NewService("test-signing-key", "carehub-test")
	logger := slog.Default()

	s.idsvc = identitysvc.New(s.users, sessionstore.New(), pol, tokens, nil, nil, nil, logger,
		identitysvc.Config{
			SessionTTL:               time.Hour,
			PasswordMinLength:        8,
			PasswordMaxLength:        100,
			EmailVerificationEnabled: true,
		})

	saga := registration.New(s.idsvc, s.profiles, s.objects, pol, nil, nil, logger, registration.Config{
		Bucket:            "provider-documents",
		PasswordMinLength: 8,
		PasswordMaxLength: 100,
	})

	handler := NewRouter(RouterDeps{
		Auth:      NewAuthHandler(saga, s.idsvc, logger),
		Admin:     NewAdminHandler(s.idsvc, s.profiles, logger),
		Validator: SessionValidator{Identities: s.idsvc},
		Logger:    logger,
	})
	s.server = httptest.NewServer(handler)
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
}

// registrationForm builds a complete multipart provider registration with
// emails derived from tag.
func (s *HandlerSuite) registrationForm(tag string) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	fields := map[string]string{
		"email":           fmt.Sprintf("owner-%s@sunrise.example", tag),
		"password":        "correct horse battery",
		"confirmPassword": "correct horse battery",
		"displayName":     "Jane Doe",
		"businessName":    "Sunrise Clinic",
		"providerType":    "CLINIC",
		"businessEmail":   fmt.Sprintf("front-%s@sunrise.example", tag),
		"latitude":        "6.52",
		"longitude":       "3.37",
		"permitNumber":    "PRM-1234",
		"services":        `[{"name":"General consultation"},{"name":"Vaccination"}]`,
	}
	schedule := make([]map[string]any, 7)
	for day := 0; day < 7; day++ {
		schedule[day] = map[string]any{"dayOfWeek": day, "isOpen": true, "openTime": "09:00", "closeTime": "17:00"}
	}
	raw, err := json.Marshal(schedule)
	s.Require().NoError(err)
	fields["schedule"] = string(raw)

	for name, value := range fields {
		s.Require().NoError(mw.WriteField(name, value))
	}

	for field, filename := range map[string]string{
		"permitDocument": "permit.pdf",
		"banner":         "banner.png",
	} {
		part, err := mw.CreateFormFile(field, filename)
		s.Require().NoError(err)
		_, err = part.Write([]byte("file-bytes"))
		s.Require().NoError(err)
	}

	s.Require().NoError(mw.Close())
	return body, mw.FormDataContentType()
}

func (s *HandlerSuite) do(req *http.Request) (*http.Response, []byte) {
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp, raw
}

func (s *HandlerSuite) postJSON(path, token string, body any) (*http.Response, []byte) {
	payload := &bytes.Buffer{}
	if body != nil {
		s.Require().NoError(json.NewEncoder(payload).Encode(body))
	}
	req, err := http.NewRequest(http.MethodPost, s.server.URL+path, payload)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.do(req)
}

func (s *HandlerSuite) register(tag string) registerResponse {
	body, contentType := s.registrationForm(tag)
	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/auth/register/provider", body)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", contentType)

	resp, raw := s.do(req)
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(raw))

	var created registerResponse
	s.Require().NoError(json.Unmarshal(raw, &created))
	return created
}

// adminToken provisions an active admin account out of band and signs it in.
func (s *HandlerSuite) adminToken() string {
	_, err := s.idsvc.Create(context.Background(), identityInput("admin@carehub.example", domain.RoleAdmin))
	s.Require().NoError(err)

	resp, raw := s.postJSON("/auth/login", "", map[string]string{
		"email":    "admin@carehub.example",
		"password": "correct horse battery",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(raw))

	var signedIn loginResponse
	s.Require().NoError(json.Unmarshal(raw, &signedIn))
	return signedIn.Token
}

func (s *HandlerSuite) TestRegisterProvider() {
	created := s.register("ok")
	s.Equal(domain.StatusPendingVerification.String(), created.Status)
	s.NotEmpty(created.ProfileID)

	id, err := domain.ParseIdentityID(created.IdentityID)
	s.Require().NoError(err)

	identity, err := s.users.FindByID(context.Background(), id)
	s.Require().NoError(err)
	s.Equal(domain.RoleProvider, identity.Role)

	// Permit and banner blobs landed.
	s.Equal(2, s.objects.Count())
}

func (s *HandlerSuite) TestRegisterValidationErrorNamesField() {
	// A form with only an email fails validation long before any side effect.
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	s.Require().NoError(mw.WriteField("email", "owner-invalid@sunrise.example"))
	s.Require().NoError(mw.Close())

	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/auth/register/provider", buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, raw := s.do(req)
	s.Require().Equal(http.StatusBadRequest, resp.StatusCode)

	var envelope errorEnvelope
	s.Require().NoError(json.Unmarshal(raw, &envelope))
	s.Equal(string(dErrors.CodeInvalidInput), envelope.Error)
	s.NotEmpty(envelope.Field)
}

func (s *HandlerSuite) TestDuplicateEmailConflict() {
	s.register("dup")

	body, contentType := s.registrationForm("dup")
	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/auth/register/provider", body)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", contentType)

	resp, raw := s.do(req)
	s.Require().Equal(http.StatusConflict, resp.StatusCode)

	var envelope errorEnvelope
	s.Require().NoError(json.Unmarshal(raw, &envelope))
	s.Equal(string(dErrors.CodeDuplicateEmail), envelope.Error)
	s.Equal("email", envelope.Field)
}

func (s *HandlerSuite) TestSignInGateThroughLifecycle() {
	created := s.register("gate")
	credentials := map[string]string{
		"email":    "owner-gate@sunrise.example",
		"password": "correct horse battery",
	}

	resp, raw := s.postJSON("/auth/login", "", credentials)
	s.Require().Equal(http.StatusForbidden, resp.StatusCode)
	var envelope errorEnvelope
	s.Require().NoError(json.Unmarshal(raw, &envelope))
	s.Equal(string(dErrors.CodeSignInDenied), envelope.Error)
	s.Equal("EMAIL_NOT_VERIFIED", envelope.Reason)

	resp, _ = s.postJSON("/auth/verify", "", map[string]string{"identity_id": created.IdentityID})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp, raw = s.postJSON("/auth/login", "", credentials)
	s.Require().Equal(http.StatusForbidden, resp.StatusCode)
	s.Require().NoError(json.Unmarshal(raw, &envelope))
	s.Equal("PENDING_APPROVAL", envelope.Reason)

	admin := s.adminToken()
	resp, raw = s.postJSON("/admin/accounts/"+created.IdentityID+"/approve", admin, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(raw))

	var account accountResponse
	s.Require().NoError(json.Unmarshal(raw, &account))
	s.Equal(domain.StatusActive.String(), account.Status)

	resp, raw = s.postJSON("/auth/login", "", credentials)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var signedIn loginResponse
	s.Require().NoError(json.Unmarshal(raw, &signedIn))
	s.NotEmpty(signedIn.Token)

	// Approval also reflected onto the profile.
	id, err := domain.ParseIdentityID(created.IdentityID)
	s.Require().NoError(err)
	profile, err := s.profiles.FindByIdentity(context.Background(), id)
	s.Require().NoError(err)
	s.Equal(domain.ProfileApproved, profile.Status)
}

func (s *HandlerSuite) TestLoginWrongPasswordUnauthorized() {
	// An account the gate would admit: only the credentials are wrong.
	created := s.register("creds")
	admin := s.adminToken()

	resp, _ := s.postJSON("/auth/verify", "", map[string]string{"identity_id": created.IdentityID})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	resp, _ = s.postJSON("/admin/accounts/"+created.IdentityID+"/approve", admin, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp, raw := s.postJSON("/auth/login", "", map[string]string{
		"email":    "owner-creds@sunrise.example",
		"password": "not the password",
	})
	s.Require().Equal(http.StatusUnauthorized, resp.StatusCode)

	var envelope errorEnvelope
	s.Require().NoError(json.Unmarshal(raw, &envelope))
	s.Equal(string(dErrors.CodeUnauthorized), envelope.Error)
	s.Empty(envelope.Reason)
}

// The account gate is evaluated before the credential result, so a gated
// account reports its denial even when the password is also wrong.
func (s *HandlerSuite) TestLoginGateDenialOutranksWrongPassword() {
	s.register("gated-creds")

	resp, raw := s.postJSON("/auth/login", "", map[string]string{
		"email":    "owner-gated-creds@sunrise.example",
		"password": "not the password",
	})
	s.Require().Equal(http.StatusForbidden, resp.StatusCode)

	var envelope errorEnvelope
	s.Require().NoError(json.Unmarshal(raw, &envelope))
	s.Equal(string(dErrors.CodeSignInDenied), envelope.Error)
	s.Equal("EMAIL_NOT_VERIFIED", envelope.Reason)
}

func (s *HandlerSuite) TestAdminRoutesGuarded() {
	created := s.register("guard")

	// No token at all.
	resp, _ := s.postJSON("/admin/accounts/"+created.IdentityID+"/approve", "", nil)
	s.Require().Equal(http.StatusUnauthorized, resp.StatusCode)

	// An authenticated non-admin is forbidden.
	_, err := s.idsvc.Create(context.Background(), identityInput("user-guard@carehub.example", domain.RoleEndUser))
	s.Require().NoError(err)
	resp, raw := s.postJSON("/auth/login", "", map[string]string{
		"email":    "user-guard@carehub.example",
		"password": "correct horse battery",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(raw))
	var signedIn loginResponse
	s.Require().NoError(json.Unmarshal(raw, &signedIn))

	resp, _ = s.postJSON("/admin/accounts/"+created.IdentityID+"/approve", signedIn.Token, nil)
	s.Require().Equal(http.StatusForbidden, resp.StatusCode)
}

func (s *HandlerSuite) TestSuspendAndReinstate() {
	created := s.register("pause")
	admin := s.adminToken()

	resp, _ := s.postJSON("/auth/verify", "", map[string]string{"identity_id": created.IdentityID})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	resp, _ = s.postJSON("/admin/accounts/"+created.IdentityID+"/approve", admin, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp, raw := s.postJSON("/admin/accounts/"+created.IdentityID+"/suspend", admin, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var account accountResponse
	s.Require().NoError(json.Unmarshal(raw, &account))
	s.Equal(domain.StatusSuspended.String(), account.Status)

	resp, raw = s.postJSON("/auth/login", "", map[string]string{
		"email":    "owner-pause@sunrise.example",
		"password": "correct horse battery",
	})
	s.Require().Equal(http.StatusForbidden, resp.StatusCode)
	var envelope errorEnvelope
	s.Require().NoError(json.Unmarshal(raw, &envelope))
	s.Equal("ACCOUNT_DISABLED", envelope.Reason)

	resp, raw = s.postJSON("/admin/accounts/"+created.IdentityID+"/reinstate", admin, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().NoError(json.Unmarshal(raw, &account))
	s.Equal(domain.StatusActive.String(), account.Status)
}

func (s *HandlerSuite) TestLogoutRevokesSession() {
	created := s.register("logout")
	admin := s.adminToken()

	resp, _ := s.postJSON("/auth/verify", "", map[string]string{"identity_id": created.IdentityID})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	resp, _ = s.postJSON("/admin/accounts/"+created.IdentityID+"/approve", admin, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	resp, raw := s.postJSON("/auth/login", "", map[string]string{
		"email":    "owner-logout@sunrise.example",
		"password": "correct horse battery",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var signedIn loginResponse
	s.Require().NoError(json.Unmarshal(raw, &signedIn))

	resp, _ = s.postJSON("/auth/logout", signedIn.Token, nil)
	s.Require().Equal(http.StatusNoContent, resp.StatusCode)

	// The token is dead once its session is gone.
	resp, _ = s.postJSON("/auth/logout", signedIn.Token, nil)
	s.Require().Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *HandlerSuite) TestHealthz() {
	resp, raw := s.do(s.getRequest("/healthz"))
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Contains(string(raw), `"ok"`)
}

func (s *HandlerSuite) TestHealthzReportsDegradedBackend() {
	handler := NewRouter(RouterDeps{
		Auth:      NewAuthHandler(nil, s.idsvc, slog.Default()),
		Admin:     NewAdminHandler(s.idsvc, s.profiles, slog.Default()),
		Validator: SessionValidator{Identities: s.idsvc},
		Logger:    slog.Default(),
		Checks:    map[string]Health{"database": staticHealth(false)},
	})
	server := httptest.NewServer(handler)
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusServiceUnavailable, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Contains(string(raw), `"degraded"`)
	s.Contains(string(raw), `"database"`)
}

func (s *HandlerSuite) TestMetricsExposed() {
	resp, raw := s.do(s.getRequest("/metrics"))
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Contains(string(raw), "go_goroutines")
}

func (s *HandlerSuite) getRequest(path string) *http.Request {
	req, err := http.NewRequest(http.MethodGet, s.server.URL+path, nil)
	s.Require().NoError(err)
	return req
}

type staticHealth bool

func (h staticHealth) Healthy() bool { return bool(h) }

// identityInput provisions an already-active account, the way an operator
// would seed one outside the registration flow.
func identityInput(email string, role domain.Role) models.NewIdentity {
	return models.NewIdentity{
		Email:       email,
		Password:    "correct horse battery",
		DisplayName: "Seed Account",
		Role:        role,
		Status:      domain.StatusActive,
	}
}
