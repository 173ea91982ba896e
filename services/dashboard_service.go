package services

import (
	"context"
	"time"

	"github.com/kendall-kelly/tailoring-orders-api/models"
	pkgerrors "github.com/pkg/errors"
)

// DashboardStats summarizes orders and staff for the dashboard cards.
// Every number is computed on request from the orders, staff and assignment tables.
type DashboardStats struct {
	TotalOrders        int64                  `json:"total_orders"`
	OrdersByStage      map[models.Stage]int64 `json:"orders_by_stage"` // uncollected orders only
	InProduction       int64                  `json:"in_production"`
	ReadyForCollection int64                  `json:"ready_for_collection"`
	Collected          int64                  `json:"collected"`
	Overdue            int64                  `json:"overdue"`
	Unassigned         int64                  `json:"unassigned"`
	TotalStaff         int64                  `json:"total_staff"`
	StaffByRole        map[models.Role]int64  `json:"staff_by_role"`
	AvailableStaff     int64                  `json:"available_staff"`
	BusyStaff          int64                  `json:"busy_staff"`
	GeneratedAt        time.Time              `json:"generated_at"`
}

// DashboardService computes read-only dashboard statistics
type DashboardService struct {
	store WorkflowStore
	now   func() time.Time
}

var dashboardServiceInstance *DashboardService

// NewDashboardService builds a dashboard service
func NewDashboardService(store WorkflowStore) *DashboardService {
	return &DashboardService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// InitDashboardService initializes the global dashboard service
func InitDashboardService(store WorkflowStore) *DashboardService {
	dashboardServiceInstance = NewDashboardService(store)
	return dashboardServiceInstance
}

// GetDashboardService returns the initialized dashboard service instance
func GetDashboardService() *DashboardService {
	return dashboardServiceInstance
}

// SetDashboardService sets the dashboard service instance (primarily for testing)
func SetDashboardService(service *DashboardService) {
	dashboardServiceInstance = service
}

type groupCount struct {
	GroupKey string
	Total    int64
}

// Stats folds the current orders, staff and active assignments into DashboardStats
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	db := s.store.DB(ctx)
	now := s.now()

	stats := &DashboardStats{
		OrdersByStage: make(map[models.Stage]int64, len(models.WorkflowStages)),
		StaffByRole:   make(map[models.Role]int64, len(models.StaffRoles)),
		GeneratedAt:   now,
	}
	for _, stage := range models.WorkflowStages {
		stats.OrdersByStage[stage] = 0
	}
	for _, role := range models.StaffRoles {
		stats.StaffByRole[role] = 0
	}

	var byStage []groupCount
	if err := db.Model(&models.Order{}).
		Select("workflow_stage AS group_key, COUNT(*) AS total").
		Where("collected = ?", false).
		Group("workflow_stage").
		Scan(&byStage).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "count orders by stage")
	}
	for _, row := range byStage {
		stats.OrdersByStage[models.Stage(row.GroupKey)] = row.Total
		stats.TotalOrders += row.Total
		if models.Stage(row.GroupKey).IsWorking() {
			stats.InProduction += row.Total
		}
	}
	stats.ReadyForCollection = stats.OrdersByStage[models.StageCompleted]

	if err := db.Model(&models.Order{}).Where("collected = ?", true).Count(&stats.Collected).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "count collected orders")
	}
	stats.TotalOrders += stats.Collected

	if err := db.Model(&models.Order{}).
		Where("collected = ? AND workflow_stage <> ? AND expected_collection_date < ?", false, models.StageCompleted, now).
		Count(&stats.Overdue).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "count overdue orders")
	}

	if err := db.Model(&models.Order{}).
		Where("collected = ? AND workflow_stage <> ? AND current_staff_id IS NULL", false, models.StageCompleted).
		Count(&stats.Unassigned).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "count unassigned orders")
	}

	var byRole []groupCount
	if err := db.Model(&models.Staff{}).
		Select("role AS group_key, COUNT(*) AS total").
		Where("is_active = ?", true).
		Group("role").
		Scan(&byRole).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "count staff by role")
	}
	for _, row := range byRole {
		stats.StaffByRole[models.Role(row.GroupKey)] = row.Total
		stats.TotalStaff += row.Total
	}

	if err := db.Model(&models.StaffAssignment{}).
		Joins("JOIN staff ON staff.id = staff_assignments.staff_id").
		Where("staff_assignments.status = ? AND staff.is_active = ?", models.AssignmentActive, true).
		Distinct("staff_assignments.staff_id").
		Count(&stats.BusyStaff).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "count busy staff")
	}
	stats.AvailableStaff = stats.TotalStaff - stats.BusyStaff

	return stats, nil
}
