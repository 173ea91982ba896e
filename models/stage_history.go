package models

import "time"

// StageHistoryStatus is the state of one audit entry
type StageHistoryStatus string

const (
	StageHistoryInProgress StageHistoryStatus = "in_progress"
	StageHistoryCompleted  StageHistoryStatus = "completed"
)

// StageOutcome records how a completed stage ended
type StageOutcome string

const (
	StageOutcomePassed StageOutcome = "passed"
	// StageOutcomeRework marks a QC inspection that sent the order back to beading
	StageOutcomeRework StageOutcome = "requires_rework"
)

// StageHistory is the audit record of one staff member working one stage of an order.
// Entries are closed once and never edited afterwards.
type StageHistory struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	OrderID     uint               `gorm:"not null;index:idx_stage_history_order_stage;uniqueIndex:idx_stage_history_in_progress,where:status = 'in_progress'" json:"order_id"`
	OrderNumber string             `gorm:"not null" json:"order_number"`
	Stage       Stage              `gorm:"type:varchar(20);not null;index:idx_stage_history_order_stage;uniqueIndex:idx_stage_history_in_progress" json:"stage"`
	StaffID     uint               `gorm:"not null;index" json:"staff_id"`
	StaffName   string             `gorm:"not null" json:"staff_name"`
	StaffRole   Role               `gorm:"type:varchar(20);not null" json:"staff_role"`
	StartedAt   time.Time          `gorm:"not null" json:"started_at"`
	CompletedAt *time.Time         `json:"completed_at"`
	DurationMs  *int64             `json:"duration_ms"`
	Status      StageHistoryStatus `gorm:"type:varchar(20);not null;default:'in_progress'" json:"status"`
	Outcome     StageOutcome       `gorm:"type:varchar(20)" json:"outcome,omitempty"`
	Notes       string             `gorm:"type:text" json:"notes"`
}

// TableName specifies the table name for the StageHistory model
func (StageHistory) TableName() string {
	return "stage_history"
}

// Close marks the entry completed at completedAt and records the elapsed time
func (h *StageHistory) Close(completedAt time.Time, notes string, outcome StageOutcome) {
	duration := completedAt.Sub(h.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}
	h.CompletedAt = &completedAt
	h.DurationMs = &duration
	h.Status = StageHistoryCompleted
	h.Notes = notes
	h.Outcome = outcome
}
