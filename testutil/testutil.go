package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Govind-619/Tutorix/config"
	"github.com/Govind-619/Tutorix/models"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory database private to the test
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a new database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	return db
}

// Money parses a rupee amount
func Money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Fixture is a coaching with an owner, an admin, a student and the student's parent
type Fixture struct {
	Coaching models.Coaching
	Owner    models.CoachingMember
	Admin    models.CoachingMember
	Student  models.CoachingMember
	Parent   models.User
	Outsider models.User
}

// CreateTestUser creates a user with a unique email
func CreateTestUser(t *testing.T, db *gorm.DB, name, email string) models.User {
	t.Helper()
	user := models.User{Name: name, Email: email, Phone: "+919876543210"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// CreateTestMember adds user to coaching with role
func CreateTestMember(t *testing.T, db *gorm.DB, coachingID, userID uint, role models.Role, parentID *uint) models.CoachingMember {
	t.Helper()
	member := models.CoachingMember{CoachingID: coachingID, UserID: userID, Role: role, ParentUserID: parentID}
	require.NoError(t, db.Create(&member).Error)
	return member
}

// SeedCoaching creates a coaching with the usual cast of members
func SeedCoaching(t *testing.T, db *gorm.DB) Fixture {
	t.Helper()
	var f Fixture
	f.Coaching = models.Coaching{Name: "Bright Minds", ContactEmail: "office@brightminds.test"}
	require.NoError(t, db.Create(&f.Coaching).Error)

	owner := CreateTestUser(t, db, "Owner", "owner@brightminds.test")
	admin := CreateTestUser(t, db, "Admin", "admin@brightminds.test")
	student := CreateTestUser(t, db, "Student", "student@brightminds.test")
	f.Parent = CreateTestUser(t, db, "Parent", "parent@brightminds.test")
	f.Outsider = CreateTestUser(t, db, "Outsider", "outsider@brightminds.test")

	f.Owner = CreateTestMember(t, db, f.Coaching.ID, owner.ID, models.RoleOwner, nil)
	f.Admin = CreateTestMember(t, db, f.Coaching.ID, admin.ID, models.RoleAdmin, nil)
	f.Student = CreateTestMember(t, db, f.Coaching.ID, student.ID, models.RoleStudent, &f.Parent.ID)
	CreateTestMember(t, db, f.Coaching.ID, f.Parent.ID, models.RoleParent, nil)
	return f
}

// EnableOnlinePayments turns on gateway collection for the coaching
func EnableOnlinePayments(t *testing.T, db *gorm.DB, coachingID uint) models.PaymentSettings {
	t.Helper()
	settings := models.PaymentSettings{CoachingID: coachingID, OnlinePaymentsEnabled: true}
	require.NoError(t, db.Create(&settings).Error)
	return settings
}

// CreateTestRecord creates a structure, an assignment and one PENDING record
func CreateTestRecord(t *testing.T, db *gorm.DB, coachingID, memberID uint, amount decimal.Decimal, due time.Time) models.FeeRecord {
	t.Helper()
	structure := models.FeeStructure{
		CoachingID: coachingID,
		Name:       "Tuition",
		Amount:     amount,
		Cycle:      models.CycleMonthly,
		TaxType:    models.TaxNone,
		GSTRate:    decimal.Zero,
	}
	require.NoError(t, db.Create(&structure).Error)

	assignment := models.FeeAssignment{
		CoachingID:     coachingID,
		MemberID:       memberID,
		FeeStructureID: structure.ID,
		DiscountAmount: decimal.Zero,
		StartDate:      due,
	}
	require.NoError(t, db.Create(&assignment).Error)

	record := models.FeeRecord{
		CoachingID:     coachingID,
		AssignmentID:   assignment.ID,
		MemberID:       memberID,
		Title:          structure.Name,
		BaseAmount:     amount,
		DiscountAmount: decimal.Zero,
		FineAmount:     decimal.Zero,
		FinalAmount:    amount,
		PaidAmount:     decimal.Zero,
		Status:         models.FeeStatusPending,
		DueDate:        due,
	}
	require.NoError(t, db.Create(&record).Error)
	return record
}

// ReloadRecord reads a record back from the database
func ReloadRecord(t *testing.T, db *gorm.DB, id uint) models.FeeRecord {
	t.Helper()
	var record models.FeeRecord
	require.NoError(t, db.First(&record, id).Error)
	return record
}

// TestRequest represents a test HTTP request
type TestRequest struct {
	Method  string
	Path    string
	Body    interface{}
	Headers map[string]string
}

// TestResponse represents a test HTTP response
type TestResponse struct {
	StatusCode int
	Body       map[string]interface{}
	Raw        []byte
}

// MakeTestRequest makes a test HTTP request
func MakeTestRequest(t *testing.T, router http.Handler, req TestRequest) TestResponse {
	t.Helper()
	var body []byte
	if req.Body != nil {
		var err error
		body, err = json.Marshal(req.Body)
		require.NoError(t, err)
	}

	httpReq, err := http.NewRequest(req.Method, req.Path, bytes.NewBuffer(body))
	require.NoError(t, err)
	httpReq.Header.Set("Content-Type", "application/json")
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httpReq)

	var responseBody map[string]interface{}
	if w.Body.Len() > 0 && json.Valid(w.Body.Bytes()) {
		_ = json.Unmarshal(w.Body.Bytes(), &responseBody)
	}

	return TestResponse{
		StatusCode: w.Code,
		Body:       responseBody,
		Raw:        w.Body.Bytes(),
	}
}

// AssertResponse asserts the status code and envelope status
func AssertResponse(t *testing.T, response TestResponse, expectedStatusCode int) {
	t.Helper()
	assert.Equal(t, expectedStatusCode, response.StatusCode, string(response.Raw))
	if response.Body == nil {
		return
	}
	if expectedStatusCode < 400 {
		assert.Equal(t, "success", response.Body["status"])
	} else {
		assert.Equal(t, "error", response.Body["status"])
	}
}

func init() {
	gin.SetMode(gin.TestMode)
}
