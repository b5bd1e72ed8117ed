package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/vani-hq/vani/internal/auth"
	"github.com/vani-hq/vani/internal/database/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Industry{},
		&models.User{},
		&models.UseCase{},
		&models.UserPermission{},
		&models.Company{},
		&models.Contact{},
		&models.Target{},
		&models.GeneratedPitch{},
		&models.OutreachActivity{},
		&models.Meeting{},
		&models.WebhookEvent{},
		&models.ChannelCredential{},
		&models.ScheduledFollowUp{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTestDB closes the test database connection
func CleanupTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Logf("warning: failed to get sql.DB: %v", err)
		return
	}
	sqlDB.Close()
}

// CreateTestIndustry creates an industry with a unique name and code
func CreateTestIndustry(t *testing.T, db *gorm.DB, name string) *models.Industry {
	t.Helper()

	industry := &models.Industry{
		Base: models.Base{ID: uuid.New()},
		Name: name,
		Code: name + "-" + uuid.New().String()[:8],
	}

	if err := db.Create(industry).Error; err != nil {
		t.Fatalf("failed to create test industry: %v", err)
	}

	return industry
}

// CreateTestUser creates a user with the given role. A nil industry leaves
// the assignment empty.
func CreateTestUser(t *testing.T, db *gorm.DB, role models.Role, industry *models.Industry) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("testpassword123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Base:               models.Base{ID: uuid.New()},
		Email:              "test-" + uuid.New().String()[:8] + "@example.com",
		PasswordHash:       hash,
		Name:               "Test User",
		ExternalIdentityID: uuid.NewString(),
		Role:               role,
		IsActive:           true,
	}
	if industry != nil {
		user.DefaultIndustryID = &industry.ID
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	return user
}

// SeedUseCases inserts the full use-case catalog
func SeedUseCases(t *testing.T, db *gorm.DB) map[string]*models.UseCase {
	t.Helper()

	out := make(map[string]*models.UseCase)
	for _, uc := range models.SeedUseCases() {
		uc := uc
		uc.ID = uuid.New()
		if err := db.Create(&uc).Error; err != nil {
			t.Fatalf("failed to seed use case %s: %v", uc.Code, err)
		}
		out[uc.Code] = &uc
	}
	return out
}

// GrantUseCase grants a use case to the user, optionally scoped to an
// industry (nil = global grant).
func GrantUseCase(t *testing.T, db *gorm.DB, user *models.User, useCase *models.UseCase, industry *models.Industry, grantedBy *models.User) *models.UserPermission {
	t.Helper()

	grant := &models.UserPermission{
		Base:        models.Base{ID: uuid.New()},
		UserID:      user.ID,
		UseCaseID:   useCase.ID,
		GrantedByID: grantedBy.ID,
	}
	if industry != nil {
		grant.IndustryID = &industry.ID
	}

	if err := db.Create(grant).Error; err != nil {
		t.Fatalf("failed to create test grant: %v", err)
	}

	return grant
}

// CreateTestTarget creates a target in the given industry (nil = unscoped)
func CreateTestTarget(t *testing.T, db *gorm.DB, industry *models.Industry, createdBy *models.User, name string) *models.Target {
	t.Helper()

	target := &models.Target{
		Base:        models.Base{ID: uuid.New()},
		Name:        name,
		Email:       "target-" + uuid.New().String()[:8] + "@example.com",
		Status:      models.TargetStatusNew,
		CreatedByID: createdBy.ID,
	}
	if industry != nil {
		target.IndustryID = &industry.ID
	}

	if err := db.Create(target).Error; err != nil {
		t.Fatalf("failed to create test target: %v", err)
	}

	return target
}

// CreateTestActivity creates an outreach activity in "sent" state with the
// given correlation identifier
func CreateTestActivity(t *testing.T, db *gorm.DB, target *models.Target, channel models.Channel, correlationID string, sentBy *models.User) *models.OutreachActivity {
	t.Helper()

	activity := &models.OutreachActivity{
		Base:          models.Base{ID: uuid.New()},
		TargetID:      target.ID,
		Channel:       channel,
		Status:        models.StatusSent,
		StatusRank:    models.StatusSent.Rank(),
		CorrelationID: correlationID,
		IndustryID:    target.IndustryID,
		SentByID:      sentBy.ID,
		LastEventAt:   time.Now(),
	}

	if err := db.Create(activity).Error; err != nil {
		t.Fatalf("failed to create test activity: %v", err)
	}

	return activity
}

// CreateTestJWTService creates a JWT service for testing
func CreateTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-for-testing", 24*time.Hour)
}

// GenerateTestToken generates a valid JWT token for the given user
func GenerateTestToken(t *testing.T, jwtService *auth.JWTService, user *models.User) string {
	t.Helper()

	token, err := jwtService.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	return token
}

// AuthenticatedRequest creates an HTTP request with authentication
func AuthenticatedRequest(t *testing.T, method, path string, body interface{}, token string) *http.Request {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// UnauthenticatedRequest creates an HTTP request without authentication
func UnauthenticatedRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	return AuthenticatedRequest(t, method, path, body, "")
}

// AssertStatus checks if the response has the expected status code
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}

// ParseJSONResponse parses the response body into the given struct
func ParseJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()

	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to parse response body: %v. Body: %s", err, rr.Body.String())
	}
}

// TestContext creates a context with a timeout for tests
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestSetup holds the common test dependencies: a seeded catalog, one
// super user, and a token for them.
type TestSetup struct {
	DB         *gorm.DB
	JWTService *auth.JWTService
	UseCases   map[string]*models.UseCase
	SuperUser  *models.User
	Token      string
}

// NewTestContext creates a complete test setup
func NewTestContext(t *testing.T) *TestSetup {
	t.Helper()

	db := SetupTestDB(t)
	jwtService := CreateTestJWTService()
	useCases := SeedUseCases(t, db)
	superUser := CreateTestUser(t, db, models.RoleSuperUser, nil)
	token := GenerateTestToken(t, jwtService, superUser)

	return &TestSetup{
		DB:         db,
		JWTService: jwtService,
		UseCases:   useCases,
		SuperUser:  superUser,
		Token:      token,
	}
}

// Cleanup closes the test database
func (ts *TestSetup) Cleanup() {
	if ts.DB != nil {
		sqlDB, err := ts.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}
