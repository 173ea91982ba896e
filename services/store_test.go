package services

import (
	"context"
	"errors"
	"testing"

	"github.com/kendall-kelly/tailoring-orders-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	store := NewGormWorkflowStore(db)
	boom := errors.New("boom")

	err := store.WithTransaction(context.Background(), func(tx *gorm.DB) error {
		staff := models.Staff{Name: "Tunde", Phone: "0801", Role: models.RoleTailor, IsActive: true}
		require.NoError(t, tx.Create(&staff).Error)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, store.DB(context.Background()).Model(&models.Staff{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestLockHelpers_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := lockOrder(db, 1)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, CodeOrderNotFound, ErrorCode(err))

	_, err = lockStaff(db, 1)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, CodeStaffNotFound, ErrorCode(err))
}

func TestActiveAssignmentLookups(t *testing.T) {
	db := setupTestDB(t)

	none, err := activeAssignmentForStaff(db, 1)
	require.NoError(t, err)
	assert.Nil(t, none)

	completed := models.StaffAssignment{StaffID: 1, StaffName: "Tunde", StaffRole: models.RoleTailor,
		OrderID: 2, OrderNumber: "AMA-2603-0001", Stage: models.StageTailoring, Status: models.AssignmentCompleted}
	require.NoError(t, db.Create(&completed).Error)

	none, err = activeAssignmentForOrder(db, 2)
	require.NoError(t, err)
	assert.Nil(t, none, "completed assignments are not active")

	active := models.StaffAssignment{StaffID: 1, StaffName: "Tunde", StaffRole: models.RoleTailor,
		OrderID: 3, OrderNumber: "COH-2603-0002", Stage: models.StageTailoring, Status: models.AssignmentActive}
	require.NoError(t, db.Create(&active).Error)

	found, err := activeAssignmentForStaff(db, 1)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, uint(3), found.OrderID)

	entry, err := inProgressHistory(db, 3, models.StageTailoring)
	require.NoError(t, err)
	assert.Nil(t, entry)
}
