package services

import (
	"context"
	"sync"
	"testing"
	"time"

	appConfig "github.com/kendall-kelly/tailoring-orders-api/config"
	"github.com/kendall-kelly/tailoring-orders-api/models"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testClock is a settable time source shared by the services under test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type testEnv struct {
	db        *gorm.DB
	store     *GormWorkflowStore
	blobs     *MockBlobStore
	events    *RecordingPublisher
	clock     *testClock
	workflow  *WorkflowService
	staff     *StaffService
	dashboard *DashboardService
	imports   *ImportService
}

// setupTestDB opens a migrated in-memory database.
// A single connection keeps every session on the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
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

	require.NoError(t, appConfig.Migrate(db), "Failed to migrate test database")
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	store := NewGormWorkflowStore(db)
	blobs := NewMockBlobStore()
	events := NewRecordingPublisher()
	clock := &testClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}

	workflow := NewWorkflowService(store, NewFabricPhotoService(blobs), events)
	workflow.now = clock.Now
	dashboard := NewDashboardService(store)
	dashboard.now = clock.Now

	return &testEnv{
		db:        db,
		store:     store,
		blobs:     blobs,
		events:    events,
		clock:     clock,
		workflow:  workflow,
		staff:     NewStaffService(store, events),
		dashboard: dashboard,
		imports:   NewImportService(workflow, events, 10),
	}
}

func maleOrderInput(name string) CreateOrderInput {
	return CreateOrderInput{
		CustomerName:           name,
		CustomerPhone:          "08031234567",
		CustomerEmail:          "customer@example.com",
		GarmentType:            "agbada",
		Gender:                 models.GenderMale,
		ExpectedCollectionDate: time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
		Measurements: models.Measurements{
			Male: &models.MaleMeasurements{Chest: 42, Waist: 36, Shoulder: 19, SleeveLength: 25},
		},
		FabricType: "aso-oke",
	}
}

func maleOrderJSON() datatypes.JSONType[models.Measurements] {
	return datatypes.NewJSONType(maleOrderInput("").Measurements)
}

func femaleOrderInput(name string) CreateOrderInput {
	return CreateOrderInput{
		CustomerName:           name,
		CustomerPhone:          "08037654321",
		GarmentType:            "iro and buba",
		Gender:                 models.GenderFemale,
		ExpectedCollectionDate: time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC),
		Measurements: models.Measurements{
			Female: &models.FemaleMeasurements{Bust: 38, Waist: 30, Hip: 42},
		},
		FabricType: "lace",
	}
}

func (e *testEnv) createOrder(t *testing.T, name string) *models.Order {
	t.Helper()
	order, err := e.workflow.CreateOrder(context.Background(), maleOrderInput(name))
	require.NoError(t, err)
	return order
}

func (e *testEnv) createStaff(t *testing.T, name, phone string, role models.Role) *models.Staff {
	t.Helper()
	staff, err := e.staff.CreateStaff(context.Background(), CreateStaffInput{Name: name, Phone: phone, Role: role})
	require.NoError(t, err)
	return staff
}

// reloadOrder reads the order straight from the database
func (e *testEnv) reloadOrder(t *testing.T, id uint) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, e.db.First(&order, id).Error)
	return order
}

func (e *testEnv) countAssignments(t *testing.T, query string, args ...interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&models.StaffAssignment{}).Where(query, args...).Count(&count).Error)
	return count
}

func (e *testEnv) countHistory(t *testing.T, query string, args ...interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&models.StageHistory{}).Where(query, args...).Count(&count).Error)
	return count
}

// requireProgressMirrorsStage checks the stored progress of every order
func (e *testEnv) requireProgressMirrorsStage(t *testing.T) {
	t.Helper()
	var orders []models.Order
	require.NoError(t, e.db.Find(&orders).Error)
	for _, order := range orders {
		want, err := order.WorkflowStage.Progress()
		require.NoError(t, err)
		require.Equal(t, want, order.Progress, "order %s progress should mirror stage %s", order.OrderNumber, order.WorkflowStage)
	}
}

func ptr[T any](v T) *T {
	return &v
}
