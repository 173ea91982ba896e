package models

import "time"

// AssignmentStatus tracks whether a staff member is still working an order
type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "active"
	AssignmentCompleted AssignmentStatus = "completed"
)

// StaffAssignment pairs one staff member with one order for the duration of a stage.
// The partial unique indexes allow at most one active row per staff member and per order.
type StaffAssignment struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	StaffID     uint             `gorm:"not null;index:idx_staff_assignments_staff_status;uniqueIndex:idx_staff_assignments_active_staff,where:status = 'active'" json:"staff_id"`
	StaffName   string           `gorm:"not null" json:"staff_name"`
	StaffRole   Role             `gorm:"type:varchar(20);not null" json:"staff_role"`
	OrderID     uint             `gorm:"not null;index;uniqueIndex:idx_staff_assignments_active_order,where:status = 'active'" json:"order_id"`
	OrderNumber string           `gorm:"not null" json:"order_number"`
	Stage       Stage            `gorm:"type:varchar(20);not null" json:"stage"`
	Status      AssignmentStatus `gorm:"type:varchar(20);not null;default:'active';index:idx_staff_assignments_staff_status" json:"status"`
	AssignedAt  time.Time        `gorm:"not null" json:"assigned_at"`
	CompletedAt *time.Time       `json:"completed_at"`
}

// TableName specifies the table name for the StaffAssignment model
func (StaffAssignment) TableName() string {
	return "staff_assignments"
}
