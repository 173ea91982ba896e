package services

import (
	"context"
	"errors"

	"github.com/kendall-kelly/tailoring-orders-api/models"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WorkflowStore is the transaction boundary for every mutating workflow operation.
// The order row, the assignment ledger and the stage history are written through the
// same tx so that all of them commit or none do.
type WorkflowStore interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	DB(ctx context.Context) *gorm.DB
}

// GormWorkflowStore implements WorkflowStore on a gorm connection
type GormWorkflowStore struct {
	db *gorm.DB
}

// NewGormWorkflowStore creates a store backed by db
func NewGormWorkflowStore(db *gorm.DB) *GormWorkflowStore {
	return &GormWorkflowStore{db: db}
}

// WithTransaction runs fn inside a database transaction.
// Returning an error from fn rolls back every write made through tx.
func (s *GormWorkflowStore) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// DB returns a session for read-only queries
func (s *GormWorkflowStore) DB(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// forUpdate locks the selected rows until the transaction ends.
// SQLite ignores the clause and serializes writers instead.
func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func lockOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := forUpdate(tx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(CodeOrderNotFound, "Order %d not found", orderID)
		}
		return nil, pkgerrors.Wrapf(err, "load order %d", orderID)
	}
	return &order, nil
}

func lockStaff(tx *gorm.DB, staffID uint) (*models.Staff, error) {
	var staff models.Staff
	if err := forUpdate(tx).First(&staff, staffID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(CodeStaffNotFound, "Staff member %d not found", staffID)
		}
		return nil, pkgerrors.Wrapf(err, "load staff %d", staffID)
	}
	return &staff, nil
}

// activeAssignmentForStaff returns the staff member's active assignment, or nil
func activeAssignmentForStaff(tx *gorm.DB, staffID uint) (*models.StaffAssignment, error) {
	var assignment models.StaffAssignment
	err := tx.Where("staff_id = ? AND status = ?", staffID, models.AssignmentActive).
		Limit(1).Find(&assignment).Error
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "load active assignment for staff %d", staffID)
	}
	if assignment.ID == 0 {
		return nil, nil
	}
	return &assignment, nil
}

// activeAssignmentForOrder returns the order's active assignment, or nil
func activeAssignmentForOrder(tx *gorm.DB, orderID uint) (*models.StaffAssignment, error) {
	var assignment models.StaffAssignment
	err := tx.Where("order_id = ? AND status = ?", orderID, models.AssignmentActive).
		Limit(1).Find(&assignment).Error
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "load active assignment for order %d", orderID)
	}
	if assignment.ID == 0 {
		return nil, nil
	}
	return &assignment, nil
}

func inProgressHistory(tx *gorm.DB, orderID uint, stage models.Stage) (*models.StageHistory, error) {
	var entry models.StageHistory
	err := tx.Where("order_id = ? AND stage = ? AND status = ?", orderID, stage, models.StageHistoryInProgress).
		Limit(1).Find(&entry).Error
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "load stage history for order %d", orderID)
	}
	if entry.ID == 0 {
		return nil, nil
	}
	return &entry, nil
}
