package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/kendall-kelly/tailoring-orders-api/models"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// Availability is derived from the assignment ledger on every read
type Availability string

const (
	Available Availability = "available"
	Busy      Availability = "busy"
)

// StaffDeletionKind is the kind of deletion that actually happened
type StaffDeletionKind string

const (
	SoftDelete StaffDeletionKind = "soft"
	HardDelete StaffDeletionKind = "hard"
)

// StaffDeletion reports the outcome of DeleteStaff.
// A requested hard delete falls back to a soft delete when the staff member has worked any order.
type StaffDeletion struct {
	StaffID             uint              `json:"staff_id"`
	Kind                StaffDeletionKind `json:"kind"`
	HardDeleteRequested bool              `json:"hard_delete_requested"`
}

// FellBackToSoft reports whether a hard delete was asked for but a soft delete happened
func (d StaffDeletion) FellBackToSoft() bool {
	return d.HardDeleteRequested && d.Kind == SoftDelete
}

// decideStaffDeletion picks the deletion kind from the request and the number of
// history and assignment records that reference the staff member
func decideStaffDeletion(forceHardDelete bool, historicalRecords int64) StaffDeletionKind {
	if forceHardDelete && historicalRecords == 0 {
		return HardDelete
	}
	return SoftDelete
}

// StaffWithAvailability is a staff member plus the derived busy/available status
type StaffWithAvailability struct {
	models.Staff
	Availability       Availability `json:"availability"`
	CurrentOrderID     *uint        `json:"current_order_id,omitempty"`
	CurrentOrderNumber string       `json:"current_order_number,omitempty"`
	CurrentStage       models.Stage `json:"current_stage,omitempty"`
}

// CreateStaffInput carries the fields of a new staff member
type CreateStaffInput struct {
	Name  string
	Phone string
	Role  models.Role
}

// StaffPatch lists the editable fields of a staff member. Nil fields are left unchanged.
type StaffPatch struct {
	Name     *string
	Phone    *string
	Role     *models.Role
	IsActive *bool
}

// StaffFilter narrows ListStaff
type StaffFilter struct {
	Role            *models.Role
	Availability    Availability
	IncludeInactive bool
}

// StaffService manages the staff registry
type StaffService struct {
	store  WorkflowStore
	events EventPublisher
}

var staffServiceInstance *StaffService

// NewStaffService builds a staff service
func NewStaffService(store WorkflowStore, events EventPublisher) *StaffService {
	if events == nil {
		events = NoopPublisher{}
	}
	return &StaffService{store: store, events: events}
}

// InitStaffService initializes the global staff service
func InitStaffService(store WorkflowStore, events EventPublisher) *StaffService {
	staffServiceInstance = NewStaffService(store, events)
	return staffServiceInstance
}

// GetStaffService returns the initialized staff service instance
func GetStaffService() *StaffService {
	return staffServiceInstance
}

// SetStaffService sets the staff service instance (primarily for testing)
func SetStaffService(service *StaffService) {
	staffServiceInstance = service
}

// CreateStaff registers an active staff member. Phone numbers are unique.
func (s *StaffService) CreateStaff(ctx context.Context, input CreateStaffInput) (*models.Staff, error) {
	name := strings.TrimSpace(input.Name)
	phone := strings.TrimSpace(input.Phone)
	role := models.Role(strings.ToLower(strings.TrimSpace(string(input.Role))))
	if name == "" {
		return nil, invalid("Staff name is required")
	}
	if phone == "" {
		return nil, invalid("Staff phone is required")
	}
	if err := role.Validate(); err != nil {
		return nil, invalid("%v", err)
	}

	staff := &models.Staff{Name: name, Phone: phone, Role: role, IsActive: true}
	err := s.store.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := ensurePhoneFree(tx, phone, 0); err != nil {
			return err
		}
		if err := tx.Create(staff).Error; err != nil {
			if isDuplicateKey(err) {
				return duplicatePhone(phone)
			}
			return pkgerrors.Wrap(err, "create staff")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Staff member %s (%s) created", staff.Name, staff.Role)
	return staff, nil
}

// UpdateStaff patches a staff member.
// Deactivating or changing the role of someone with an active assignment is rejected.
func (s *StaffService) UpdateStaff(ctx context.Context, staffID uint, patch StaffPatch) (*models.Staff, error) {
	var staff *models.Staff

	err := s.store.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		staff, err = lockStaff(tx, staffID)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return invalid("Staff name is required")
			}
			staff.Name = name
		}
		if patch.Phone != nil {
			phone := strings.TrimSpace(*patch.Phone)
			if phone == "" {
				return invalid("Staff phone is required")
			}
			if phone != staff.Phone {
				if err := ensurePhoneFree(tx, phone, staff.ID); err != nil {
					return err
				}
			}
			staff.Phone = phone
		}

		roleChanged := false
		if patch.Role != nil {
			role := models.Role(strings.ToLower(strings.TrimSpace(string(*patch.Role))))
			if err := role.Validate(); err != nil {
				return invalid("%v", err)
			}
			roleChanged = role != staff.Role
			staff.Role = role
		}
		deactivating := patch.IsActive != nil && !*patch.IsActive && staff.IsActive
		if patch.IsActive != nil {
			staff.IsActive = *patch.IsActive
		}

		if deactivating || roleChanged {
			busy, err := activeAssignmentForStaff(tx, staff.ID)
			if err != nil {
				return err
			}
			if busy != nil {
				if deactivating {
					return violation(CodeStaffHasActiveWork, "%s cannot be deactivated while working on order %s",
						staff.Name, busy.OrderNumber)
				}
				return violation(CodeStaffHasActiveWork, "%s cannot change role while working on order %s",
					staff.Name, busy.OrderNumber)
			}
		}

		if err := tx.Model(staff).Select("name", "phone", "role", "is_active", "updated_at").Updates(staff).Error; err != nil {
			if isDuplicateKey(err) {
				return duplicatePhone(staff.Phone)
			}
			return pkgerrors.Wrapf(err, "update staff %d", staff.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return staff, nil
}

// DeleteStaff deactivates a staff member, or removes the row when a hard delete is requested
// and the staff member has never worked an order. The result says which one happened.
func (s *StaffService) DeleteStaff(ctx context.Context, staffID uint, forceHardDelete bool) (*StaffDeletion, error) {
	result := &StaffDeletion{StaffID: staffID, HardDeleteRequested: forceHardDelete}
	var staff *models.Staff

	err := s.store.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		staff, err = lockStaff(tx, staffID)
		if err != nil {
			return err
		}

		busy, err := activeAssignmentForStaff(tx, staff.ID)
		if err != nil {
			return err
		}
		if busy != nil {
			return violation(CodeStaffHasActiveWork, "%s cannot be deleted while working on order %s",
				staff.Name, busy.OrderNumber)
		}

		var historyCount, assignmentCount int64
		if err := tx.Model(&models.StageHistory{}).Where("staff_id = ?", staff.ID).Count(&historyCount).Error; err != nil {
			return pkgerrors.Wrapf(err, "count stage history of staff %d", staff.ID)
		}
		if err := tx.Model(&models.StaffAssignment{}).Where("staff_id = ?", staff.ID).Count(&assignmentCount).Error; err != nil {
			return pkgerrors.Wrapf(err, "count assignments of staff %d", staff.ID)
		}

		result.Kind = decideStaffDeletion(forceHardDelete, historyCount+assignmentCount)
		switch result.Kind {
		case HardDelete:
			if err := tx.Delete(staff).Error; err != nil {
				return pkgerrors.Wrapf(err, "delete staff %d", staff.ID)
			}
		case SoftDelete:
			staff.IsActive = false
			if err := tx.Model(staff).Select("is_active", "updated_at").Updates(staff).Error; err != nil {
				return pkgerrors.Wrapf(err, "deactivate staff %d", staff.ID)
			}
		default:
			return pkgerrors.Errorf("unknown staff deletion kind %q", result.Kind)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.FellBackToSoft() {
		log.Printf("Staff member %s has work history; deactivated instead of deleted", staff.Name)
	}
	if err := s.events.Publish(ctx, EventStaffDeleted, result); err != nil {
		log.Printf("publish %s failed: %v", EventStaffDeleted, err)
	}
	return result, nil
}

// GetStaff returns one staff member with derived availability
func (s *StaffService) GetStaff(ctx context.Context, staffID uint) (*StaffWithAvailability, error) {
	db := s.store.DB(ctx)

	var staff models.Staff
	if err := db.First(&staff, staffID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(CodeStaffNotFound, "Staff member %d not found", staffID)
		}
		return nil, pkgerrors.Wrapf(err, "load staff %d", staffID)
	}

	withAvailability, err := withAvailability(db, []models.Staff{staff})
	if err != nil {
		return nil, err
	}
	return &withAvailability[0], nil
}

// ListStaff returns staff ordered by name with availability computed from active assignments
func (s *StaffService) ListStaff(ctx context.Context, filter StaffFilter) ([]StaffWithAvailability, error) {
	db := s.store.DB(ctx)

	query := db.Model(&models.Staff{})
	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter.Role != nil {
		if err := filter.Role.Validate(); err != nil {
			return nil, invalid("%v", err)
		}
		query = query.Where("role = ?", *filter.Role)
	}
	switch filter.Availability {
	case "", Available, Busy:
	default:
		return nil, invalid("unknown availability %q", string(filter.Availability))
	}

	var staff []models.Staff
	if err := query.Order("name ASC").Order("id ASC").Find(&staff).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "list staff")
	}

	all, err := withAvailability(db, staff)
	if err != nil {
		return nil, err
	}
	if filter.Availability == "" {
		return all, nil
	}

	filtered := make([]StaffWithAvailability, 0, len(all))
	for _, member := range all {
		if member.Availability == filter.Availability {
			filtered = append(filtered, member)
		}
	}
	return filtered, nil
}

// ListStaffAssignments returns every assignment of a staff member, most recent first
func (s *StaffService) ListStaffAssignments(ctx context.Context, staffID uint) ([]models.StaffAssignment, error) {
	db := s.store.DB(ctx)

	var count int64
	if err := db.Model(&models.Staff{}).Where("id = ?", staffID).Count(&count).Error; err != nil {
		return nil, pkgerrors.Wrapf(err, "load staff %d", staffID)
	}
	if count == 0 {
		return nil, notFound(CodeStaffNotFound, "Staff member %d not found", staffID)
	}

	var assignments []models.StaffAssignment
	if err := db.Where("staff_id = ?", staffID).
		Order("assigned_at DESC").Order("id DESC").
		Find(&assignments).Error; err != nil {
		return nil, pkgerrors.Wrapf(err, "list assignments of staff %d", staffID)
	}
	return assignments, nil
}

// withAvailability joins staff with their active assignments
func withAvailability(db *gorm.DB, staff []models.Staff) ([]StaffWithAvailability, error) {
	result := make([]StaffWithAvailability, 0, len(staff))
	if len(staff) == 0 {
		return result, nil
	}

	ids := make([]uint, 0, len(staff))
	for _, member := range staff {
		ids = append(ids, member.ID)
	}

	var active []models.StaffAssignment
	if err := db.Where("staff_id IN ? AND status = ?", ids, models.AssignmentActive).
		Find(&active).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "load active assignments")
	}
	byStaff := make(map[uint]models.StaffAssignment, len(active))
	for _, assignment := range active {
		byStaff[assignment.StaffID] = assignment
	}

	for _, member := range staff {
		entry := StaffWithAvailability{Staff: member, Availability: Available}
		if assignment, ok := byStaff[member.ID]; ok {
			orderID := assignment.OrderID
			entry.Availability = Busy
			entry.CurrentOrderID = &orderID
			entry.CurrentOrderNumber = assignment.OrderNumber
			entry.CurrentStage = assignment.Stage
		}
		result = append(result, entry)
	}
	return result, nil
}

func ensurePhoneFree(tx *gorm.DB, phone string, exceptID uint) error {
	var existing models.Staff
	err := tx.Where("phone = ? AND id <> ?", phone, exceptID).Limit(1).Find(&existing).Error
	if err != nil {
		return pkgerrors.Wrap(err, "check staff phone")
	}
	if existing.ID != 0 {
		return violation(CodeDuplicatePhone, "Phone %s is already registered to %s", phone, existing.Name)
	}
	return nil
}

func duplicatePhone(phone string) error {
	return violation(CodeDuplicatePhone, "Phone %s is already registered to another staff member", phone)
}
