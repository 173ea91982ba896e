package models

import (
	"time"

	"gorm.io/datatypes"
)

// Order represents a garment order moving through the production pipeline
type Order struct {
	ID                     uint                             `gorm:"primaryKey" json:"id"`
	OrderNumber            string                           `gorm:"not null;index" json:"order_number"`
	CustomerName           string                           `gorm:"not null" json:"customer_name"`
	CustomerPhone          string                           `gorm:"not null" json:"customer_phone"`
	CustomerEmail          string                           `json:"customer_email"`
	GarmentType            string                           `gorm:"not null" json:"garment_type"`
	Gender                 Gender                           `gorm:"type:varchar(10);not null" json:"gender"`
	ExpectedCollectionDate time.Time                        `gorm:"not null" json:"expected_collection_date"`
	Measurements           datatypes.JSONType[Measurements] `gorm:"not null" json:"measurements"`
	FabricType             string                           `json:"fabric_type"`
	FabricPhotoKey         *string                          `json:"fabric_photo_key"`                 // nullable, blob reference
	FabricPhotoURL         *string                          `gorm:"-" json:"fabric_photo_url,omitempty"` // computed field
	SpecialInstructions    string                           `gorm:"type:text" json:"special_instructions"`
	WorkflowStage          Stage                            `gorm:"type:varchar(20);not null;default:'pending';index" json:"workflow_stage"`
	Progress               int                              `gorm:"not null;default:0" json:"progress"`
	CurrentStaffID         *uint                            `gorm:"index" json:"current_staff_id"` // denormalized from the active assignment
	CurrentStaffRole       *Role                            `gorm:"type:varchar(20)" json:"current_staff_role"`
	Collected              bool                             `gorm:"not null;default:false;index" json:"collected"`
	CollectedAt            *time.Time                       `json:"collected_at"`
	CreatedAt              time.Time                        `gorm:"index" json:"created_at"`
	UpdatedAt              time.Time                        `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// ApplyStage moves the order to stage and sets the matching progress value
func (o *Order) ApplyStage(stage Stage) error {
	progress, err := stage.Progress()
	if err != nil {
		return err
	}
	o.WorkflowStage = stage
	o.Progress = progress
	return nil
}

// SetCurrentStaff points the order at the staff member holding its active assignment
func (o *Order) SetCurrentStaff(staff *Staff) {
	id := staff.ID
	role := staff.Role
	o.CurrentStaffID = &id
	o.CurrentStaffRole = &role
}

// ClearCurrentStaff removes the assignment pointer
func (o *Order) ClearCurrentStaff() {
	o.CurrentStaffID = nil
	o.CurrentStaffRole = nil
}

// HasCurrentStaff reports whether someone is working the current stage
func (o *Order) HasCurrentStaff() bool {
	return o.CurrentStaffID != nil
}

// OrderSequence is the per-month counter behind order numbers
type OrderSequence struct {
	Period    string    `gorm:"primaryKey;type:varchar(4)" json:"period"` // YYMM
	LastValue int       `gorm:"not null;default:0" json:"last_value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the OrderSequence model
func (OrderSequence) TableName() string {
	return "order_sequences"
}
