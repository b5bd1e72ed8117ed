package handlers_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vani-hq/vani/internal/access"
	"github.com/vani-hq/vani/internal/api/dto"
	"github.com/vani-hq/vani/internal/api/handlers"
	"github.com/vani-hq/vani/internal/api/middleware"
	"github.com/vani-hq/vani/internal/database/models"
	"github.com/vani-hq/vani/internal/pitch"
	"github.com/vani-hq/vani/internal/sheets"
	"github.com/vani-hq/vani/internal/testutil"
)

func newTargetRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	t.Helper()
	tc := testutil.NewTestContext(t)
	t.Cleanup(tc.Cleanup)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := handlers.NewTargetHandler(
		tc.DB,
		access.NewService(tc.DB),
		pitch.NewGenerator("", "", tc.DB, logger),
		sheets.NewExporter("", logger),
	)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tc.JWTService))
		r.Use(middleware.IndustryScope())
		r.Get("/targets", h.List)
		r.Post("/targets", h.Create)
		r.Post("/targets/identify", h.Identify)
		r.Get("/targets/{id}", h.Get)
		r.Put("/targets/{id}", h.Update)
		r.Delete("/targets/{id}", h.Delete)
	})
	return r, tc
}

func TestListTargets_ScopedToGrants(t *testing.T) {
	r, tc := newTargetRouter(t)

	fmcg := testutil.CreateTestIndustry(t, tc.DB, "FMCG")
	fintech := testutil.CreateTestIndustry(t, tc.DB, "Fintech")

	testutil.CreateTestTarget(t, tc.DB, fmcg, tc.SuperUser, "In Scope")
	testutil.CreateTestTarget(t, tc.DB, fintech, tc.SuperUser, "Out Of Scope")

	user := testutil.CreateTestUser(t, tc.DB, models.RoleStandard, nil)
	testutil.GrantUseCase(t, tc.DB, user, tc.UseCases[models.UseCaseTargetManagement], fmcg, tc.SuperUser)
	token := testutil.GenerateTestToken(t, tc.JWTService, user)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, testutil.AuthenticatedRequest(t, http.MethodGet, "/targets", nil, token))
	testutil.AssertStatus(t, rec, http.StatusOK)

	var resp dto.PaginatedResponse
	testutil.ParseJSONResponse(t, rec, &resp)
	assert.Equal(t, int64(1), resp.Total)
}

func TestListTargets_NoGrantIsForbidden(t *testing.T) {
	r, tc := newTargetRouter(t)

	user := testutil.CreateTestUser(t, tc.DB, models.RoleStandard, nil)
	token := testutil.GenerateTestToken(t, tc.JWTService, user)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, testutil.AuthenticatedRequest(t, http.MethodGet, "/targets", nil, token))
	testutil.AssertStatus(t, rec, http.StatusForbidden)

	var resp dto.ErrorResponse
	testutil.ParseJSONResponse(t, rec, &resp)
	assert.Equal(t, "Permission denied", resp.Error)
}

func TestListTargets_UngrantedIndustryHeaderDistinguishable(t *testing.T) {
	r, tc := newTargetRouter(t)

	fmcg := testutil.CreateTestIndustry(t, tc.DB, "FMCG")
	fintech := testutil.CreateTestIndustry(t, tc.DB, "Fintech")

	user := testutil.CreateTestUser(t, tc.DB, models.RoleStandard, nil)
	testutil.GrantUseCase(t, tc.DB, user, tc.UseCases[models.UseCaseTargetManagement], fmcg, tc.SuperUser)
	token := testutil.GenerateTestToken(t, tc.JWTService, user)

	req := testutil.AuthenticatedRequest(t, http.MethodGet, "/targets", nil, token)
	req.Header.Set("X-Industry-Id", fintech.ID.String())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	testutil.AssertStatus(t, rec, http.StatusForbidden)

	var resp dto.ErrorResponse
	testutil.ParseJSONResponse(t, rec, &resp)
	assert.Equal(t, "Industry access denied", resp.Error)
}

func TestCreateTarget_ExplicitIndustryMustBeCovered(t *testing.T) {
	r, tc := newTargetRouter(t)

	fmcg := testutil.CreateTestIndustry(t, tc.DB, "FMCG")
	fintech := testutil.CreateTestIndustry(t, tc.DB, "Fintech")

	user := testutil.CreateTestUser(t, tc.DB, models.RoleStandard, nil)
	testutil.GrantUseCase(t, tc.DB, user, tc.UseCases[models.UseCaseTargetManagement], fmcg, tc.SuperUser)
	token := testutil.GenerateTestToken(t, tc.JWTService, user)

	granted := fmcg.ID.String()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, testutil.AuthenticatedRequest(t, http.MethodPost, "/targets", handlers.TargetRequest{
		Name:       "Ada Lovelace",
		IndustryID: &granted,
	}, token))
	testutil.AssertStatus(t, rec, http.StatusCreated)

	ungranted := fintech.ID.String()
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, testutil.AuthenticatedRequest(t, http.MethodPost, "/targets", handlers.TargetRequest{
		Name:       "Grace Hopper",
		IndustryID: &ungranted,
	}, token))
	testutil.AssertStatus(t, rec, http.StatusForbidden)
}

func TestCreateTarget_IndustryDerivedFromAssignment(t *testing.T) {
	r, tc := newTargetRouter(t)

	fmcg := testutil.CreateTestIndustry(t, tc.DB, "FMCG")
	admin := testutil.CreateTestUser(t, tc.DB, models.RoleIndustryAdmin, fmcg)
	testutil.GrantUseCase(t, tc.DB, admin, tc.UseCases[models.UseCaseTargetManagement], fmcg, tc.SuperUser)
	token := testutil.GenerateTestToken(t, tc.JWTService, admin)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, testutil.AuthenticatedRequest(t, http.MethodPost, "/targets", handlers.TargetRequest{
		Name: "Derived Industry",
	}, token))
	testutil.AssertStatus(t, rec, http.StatusCreated)

	var created models.Target
	testutil.ParseJSONResponse(t, rec, &created)
	require.NotNil(t, created.IndustryID)
	assert.Equal(t, fmcg.ID, *created.IndustryID)
}

func TestCreateTarget_ValidationErrors(t *testing.T) {
	r, tc := newTargetRouter(t)
	token := tc.Token

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, testutil.AuthenticatedRequest(t, http.MethodPost, "/targets", handlers.TargetRequest{}, token))
	testutil.AssertStatus(t, rec, http.StatusBadRequest)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, testutil.AuthenticatedRequest(t, http.MethodPost, "/targets", handlers.TargetRequest{
		Name:   "Bad Status",
		Status: "levitating",
	}, token))
	testutil.AssertStatus(t, rec, http.StatusBadRequest)
}

func TestGetTarget_OutOfScopeLooksMissing(t *testing.T) {
	r, tc := newTargetRouter(t)

	fmcg := testutil.CreateTestIndustry(t, tc.DB, "FMCG")
	fintech := testutil.CreateTestIndustry(t, tc.DB, "Fintech")
	hidden := testutil.CreateTestTarget(t, tc.DB, fintech, tc.SuperUser, "Hidden")

	user := testutil.CreateTestUser(t, tc.DB, models.RoleStandard, nil)
	testutil.GrantUseCase(t, tc.DB, user, tc.UseCases[models.UseCaseTargetManagement], fmcg, tc.SuperUser)
	token := testutil.GenerateTestToken(t, tc.JWTService, user)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, testutil.AuthenticatedRequest(t, http.MethodGet, "/targets/"+hidden.ID.String(), nil, token))
	testutil.AssertStatus(t, rec, http.StatusNotFound)

	// A genuinely missing target answers identically.
	rec2 := httptest.NewRecorder()
	r.ServeHTTP(rec2, testutil.AuthenticatedRequest(t, http.MethodGet, "/targets/00000000-0000-0000-0000-000000000001", nil, token))
	testutil.AssertStatus(t, rec2, http.StatusNotFound)

	var a, b dto.ErrorResponse
	testutil.ParseJSONResponse(t, rec, &a)
	testutil.ParseJSONResponse(t, rec2, &b)
	assert.Equal(t, b.Error, a.Error)
}

func TestUpdateTarget_IndustryTagImmutable(t *testing.T) {
	r, tc := newTargetRouter(t)

	fmcg := testutil.CreateTestIndustry(t, tc.DB, "FMCG")
	fintech := testutil.CreateTestIndustry(t, tc.DB, "Fintech")
	target := testutil.CreateTestTarget(t, tc.DB, fmcg, tc.SuperUser, "Ada")

	other := fintech.ID.String()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, testutil.AuthenticatedRequest(t, http.MethodPut, "/targets/"+target.ID.String(), handlers.TargetRequest{
		Name:       "Ada Updated",
		Status:     "contacted",
		IndustryID: &other,
	}, tc.Token))
	testutil.AssertStatus(t, rec, http.StatusOK)

	var updated models.Target
	require.NoError(t, tc.DB.First(&updated, target.ID).Error)
	assert.Equal(t, "Ada Updated", updated.Name)
	assert.Equal(t, models.TargetStatusContacted, updated.Status)
	require.NotNil(t, updated.IndustryID)
	assert.Equal(t, fmcg.ID, *updated.IndustryID)
}

func TestDeleteTarget(t *testing.T) {
	r, tc := newTargetRouter(t)

	target := testutil.CreateTestTarget(t, tc.DB, nil, tc.SuperUser, "Doomed")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, testutil.AuthenticatedRequest(t, http.MethodDelete, "/targets/"+target.ID.String(), nil, tc.Token))
	testutil.AssertStatus(t, rec, http.StatusOK)

	var count int64
	require.NoError(t, tc.DB.Model(&models.Target{}).Where("id = ?", target.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestIdentifyTargets_UnconfiguredProvider(t *testing.T) {
	r, tc := newTargetRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, testutil.AuthenticatedRequest(t, http.MethodPost, "/targets/identify", handlers.IdentifyTargetsRequest{
		Industry: "FMCG",
	}, tc.Token))
	testutil.AssertStatus(t, rec, http.StatusServiceUnavailable)
}

func TestTargets_Unauthenticated(t *testing.T) {
	r, _ := newTargetRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, testutil.UnauthenticatedRequest(t, http.MethodGet, "/targets", nil))
	testutil.AssertStatus(t, rec, http.StatusUnauthorized)
}
