package testutil

import (
	"fmt"
	"os"
	"testing"

	"github.com/kendall-kelly/tailoring-orders-api/config"
	"github.com/kendall-kelly/tailoring-orders-api/services"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
// It will fail the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// RequireTestEnvironmentOrSkip is similar to RequireTestEnvironment but skips the test
// instead of failing it. Use this for optional tests that should only run in test environment.
func RequireTestEnvironmentOrSkip(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Skipf("Skipping test: GO_ENV must be 'test' (current: %q)", env)
	}
}

// MustSetTestEnvironment sets GO_ENV to test and fails if it cannot be set.
// Use this in TestMain or suite setup functions.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("Failed to set GO_ENV=test: %v", err)
	}

	// Verify it was set
	if os.Getenv("GO_ENV") != "test" {
		t.Fatal("Failed to verify GO_ENV=test")
	}
}

// PrintEnvironmentInfo prints the current test environment configuration.
// Useful for debugging test environment issues.
func PrintEnvironmentInfo() {
	fmt.Printf("Test Environment Info:\n")
	fmt.Printf("  GO_ENV: %s\n", os.Getenv("GO_ENV"))
	fmt.Printf("  DATABASE_URL: %s\n", maskDatabaseURL(os.Getenv("DATABASE_URL")))
	fmt.Printf("  PORT: %s\n", os.Getenv("PORT"))
}

// maskDatabaseURL masks sensitive parts of the database URL for safe printing
func maskDatabaseURL(url string) string {
	if url == "" {
		return "(not set)"
	}
	// Simple masking - just show if it contains "test"
	if len(url) > 20 {
		return url[:20] + "..." + (map[bool]string{true: " [contains 'test']", false: " [WARNING: may not be test DB]"})[containsTest(url)]
	}
	return url
}

func containsTest(s string) bool {
	return len(s) > 0 && (s[len(s)-5:] == "_test" || s[len(s)-4:] == "test")
}

// NewTestDB opens a migrated in-memory SQLite database and installs it as the global DB.
// A single connection keeps every query on the same in-memory database and serializes transactions.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "Failed to connect to test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.Migrate(db), "Failed to migrate test database")
	config.SetDB(db)
	return db
}

// TestServices holds the service graph installed by InitTestServices
type TestServices struct {
	Blobs     *services.MockBlobStore
	Events    *services.RecordingPublisher
	Workflow  *services.WorkflowService
	Staff     *services.StaffService
	Dashboard *services.DashboardService
	Imports   *services.ImportService
}

// InitTestServices wires every service against db with an in-memory blob store and a
// recording event publisher, and installs them as the global instances used by controllers
func InitTestServices(t *testing.T, db *gorm.DB) *TestServices {
	t.Helper()

	store := services.NewGormWorkflowStore(db)
	blobs := services.NewMockBlobStore()
	blobs.SetAsMockForTesting()
	events := services.NewRecordingPublisher()
	photos := services.NewFabricPhotoService(blobs)

	ts := &TestServices{
		Blobs:     blobs,
		Events:    events,
		Workflow:  services.InitWorkflowService(store, photos, events),
		Staff:     services.InitStaffService(store, events),
		Dashboard: services.InitDashboardService(store),
	}
	ts.Imports = services.InitImportService(ts.Workflow, events, 5)
	return ts
}
