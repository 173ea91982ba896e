package services

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/kendall-kelly/tailoring-orders-api/models"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WorkflowService moves orders through the production pipeline.
// Every mutating operation runs in one WorkflowStore transaction that writes the order,
// the assignment ledger and the stage history together.
type WorkflowService struct {
	store  WorkflowStore
	photos *FabricPhotoService
	events EventPublisher
	now    func() time.Time
}

var workflowServiceInstance *WorkflowService

// NewWorkflowService builds a service with dependencies.
// photos and events may be nil.
func NewWorkflowService(store WorkflowStore, photos *FabricPhotoService, events EventPublisher) *WorkflowService {
	if events == nil {
		events = NoopPublisher{}
	}
	return &WorkflowService{
		store:  store,
		photos: photos,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// InitWorkflowService initializes the global workflow service
func InitWorkflowService(store WorkflowStore, photos *FabricPhotoService, events EventPublisher) *WorkflowService {
	workflowServiceInstance = NewWorkflowService(store, photos, events)
	return workflowServiceInstance
}

// GetWorkflowService returns the initialized workflow service instance
func GetWorkflowService() *WorkflowService {
	return workflowServiceInstance
}

// SetWorkflowService sets the workflow service instance (primarily for testing)
func SetWorkflowService(service *WorkflowService) {
	workflowServiceInstance = service
}

// CreateOrderInput carries the fields of a new order
type CreateOrderInput struct {
	CustomerName           string
	CustomerPhone          string
	CustomerEmail          string
	GarmentType            string
	Gender                 models.Gender
	ExpectedCollectionDate time.Time
	Measurements           models.Measurements
	FabricType             string
	SpecialInstructions    string
	FabricPhoto            *PhotoUpload // optional
}

func (in *CreateOrderInput) normalize() {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	in.GarmentType = strings.TrimSpace(in.GarmentType)
	in.FabricType = strings.TrimSpace(in.FabricType)
	in.SpecialInstructions = strings.TrimSpace(in.SpecialInstructions)
	in.Gender = models.Gender(strings.ToLower(strings.TrimSpace(string(in.Gender))))
}

func (in *CreateOrderInput) validate() error {
	if in.CustomerName == "" {
		return invalid("Customer name is required")
	}
	if in.CustomerPhone == "" {
		return invalid("Customer phone is required")
	}
	if err := validateEmail(in.CustomerEmail); err != nil {
		return err
	}
	if in.GarmentType == "" {
		return invalid("Garment type is required")
	}
	if in.ExpectedCollectionDate.IsZero() {
		return invalid("Expected collection date is required")
	}
	if err := in.Measurements.Validate(in.Gender); err != nil {
		return invalid("Invalid measurements: %v", err)
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return invalid("Invalid customer email %q", email)
	}
	return nil
}

// OrderPatch lists the editable fields of an order. Nil fields are left unchanged.
type OrderPatch struct {
	CustomerName           *string
	CustomerPhone          *string
	CustomerEmail          *string
	GarmentType            *string
	Gender                 *models.Gender
	ExpectedCollectionDate *time.Time
	Measurements           *models.Measurements
	FabricType             *string
	SpecialInstructions    *string
}

// StageCompletion is the result of CompleteCurrentStage
type StageCompletion struct {
	CompletedStage models.Stage  `json:"completed_stage"`
	NewStage       models.Stage  `json:"new_stage"`
	OrderCompleted bool          `json:"order_completed"`
	Order          *models.Order `json:"order"`
}

// OrderFilter narrows ListOrders
type OrderFilter struct {
	Stage     *models.Stage
	Collected *bool
	Search    string
	Sort      OrderSort
	Page      int
	Limit     int
}

// OrderSort selects the ListOrders ordering
type OrderSort string

const (
	SortNewest  OrderSort = "newest"
	SortDueDate OrderSort = "due_date"
)

func (o OrderSort) clause() (string, error) {
	switch o {
	case "", SortNewest:
		return "created_at DESC", nil
	case SortDueDate:
		return "expected_collection_date ASC", nil
	default:
		return "", invalid("Unknown sort %q, expected newest or due_date", string(o))
	}
}

// CreateOrder validates the input and stores a new pending order with a fresh order number.
// A photo that fails to upload is dropped and the order is created without one.
func (s *WorkflowService) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	input.normalize()
	if err := input.validate(); err != nil {
		return nil, err
	}

	var photoKey *string
	if input.FabricPhoto != nil {
		ref, err := s.photos.Store(ctx, input.FabricPhoto)
		if err != nil {
			log.Printf("warning: fabric photo upload failed, creating order without photo: %v", err)
		} else {
			photoKey = &ref
		}
	}

	now := s.now()
	order := &models.Order{
		CustomerName:           input.CustomerName,
		CustomerPhone:          input.CustomerPhone,
		CustomerEmail:          input.CustomerEmail,
		GarmentType:            input.GarmentType,
		Gender:                 input.Gender,
		ExpectedCollectionDate: input.ExpectedCollectionDate,
		Measurements:           datatypes.NewJSONType(input.Measurements),
		FabricType:             input.FabricType,
		FabricPhotoKey:         photoKey,
		SpecialInstructions:    input.SpecialInstructions,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := order.ApplyStage(models.StagePending); err != nil {
		return nil, err
	}

	err := s.store.WithTransaction(ctx, func(tx *gorm.DB) error {
		number, err := generateOrderNumber(tx, order.CustomerName, now)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		if err := tx.Create(order).Error; err != nil {
			return pkgerrors.Wrap(err, "create order")
		}
		return nil
	})
	if err != nil {
		if photoKey != nil {
			s.deletePhoto(ctx, *photoKey)
		}
		return nil, err
	}

	log.Printf("Order %s created for %s", order.OrderNumber, order.CustomerName)
	s.publish(ctx, EventOrderCreated, order, nil, "")
	s.attachPhotoURL(ctx, order)
	return order, nil
}

// GetOrder returns one order with its photo URL resolved
func (s *WorkflowService) GetOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.store.DB(ctx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(CodeOrderNotFound, "Order %d not found", orderID)
		}
		return nil, pkgerrors.Wrapf(err, "load order %d", orderID)
	}
	s.attachPhotoURL(ctx, &order)
	return &order, nil
}

// ListOrders returns one page of orders, newest first, and the total number of matches
func (s *WorkflowService) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	orderBy, err := filter.Sort.clause()
	if err != nil {
		return nil, 0, err
	}

	query := s.store.DB(ctx).Model(&models.Order{})
	if filter.Stage != nil {
		if err := filter.Stage.Validate(); err != nil {
			return nil, 0, invalid("%v", err)
		}
		query = query.Where("workflow_stage = ?", *filter.Stage)
	}
	if filter.Collected != nil {
		query = query.Where("collected = ?", *filter.Collected)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(customer_name) LIKE ? OR LOWER(order_number) LIKE ? OR customer_phone LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "count orders")
	}

	page, limit := NormalizePage(filter.Page, filter.Limit)
	var orders []models.Order
	if err := query.Session(&gorm.Session{}).Order(orderBy).Order("id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(err, "list orders")
	}

	for i := range orders {
		s.attachPhotoURL(ctx, &orders[i])
	}
	return orders, total, nil
}

// NormalizePage clamps paging to page >= 1 and 1..100 rows, defaulting to 20
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// GetOrderHistory returns the stage history of an order in the order the stages were started
func (s *WorkflowService) GetOrderHistory(ctx context.Context, orderID uint) ([]models.StageHistory, error) {
	db := s.store.DB(ctx)

	var count int64
	if err := db.Model(&models.Order{}).Where("id = ?", orderID).Count(&count).Error; err != nil {
		return nil, pkgerrors.Wrapf(err, "load order %d", orderID)
	}
	if count == 0 {
		return nil, notFound(CodeOrderNotFound, "Order %d not found", orderID)
	}

	var history []models.StageHistory
	if err := db.Where("order_id = ?", orderID).
		Order("started_at ASC").Order("id ASC").
		Find(&history).Error; err != nil {
		return nil, pkgerrors.Wrapf(err, "load stage history for order %d", orderID)
	}
	return history, nil
}

// AssignStaff puts a staff member on the order's current stage.
// A pending order moves to tailoring. The stage history entry, the assignment and the
// order patch commit together or not at all.
func (s *WorkflowService) AssignStaff(ctx context.Context, orderID, staffID uint) (*models.Order, error) {
	now := s.now()
	var order *models.Order
	var staff *models.Staff

	err := s.store.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Collected {
			return collectedError(order)
		}
		if order.WorkflowStage == models.StageCompleted {
			return violation(CodeOrderCompleted, "Order %s is already completed and cannot be assigned", order.OrderNumber)
		}

		staff, err = lockStaff(tx, staffID)
		if err != nil {
			return err
		}
		if !staff.IsActive {
			return violation(CodeStaffInactive, "%s is inactive and cannot be assigned", staff.Name)
		}

		current, err := activeAssignmentForOrder(tx, order.ID)
		if err != nil {
			return err
		}
		if current != nil {
			return violation(CodeOrderAlreadyAssigned, "Order %s is already assigned to %s (%s)",
				order.OrderNumber, current.StaffName, current.StaffRole)
		}
		if order.HasCurrentStaff() {
			return violation(CodeInconsistentAssignment, "Order %s points at staff member %d but has no active assignment",
				order.OrderNumber, *order.CurrentStaffID)
		}

		busy, err := activeAssignmentForStaff(tx, staff.ID)
		if err != nil {
			return err
		}
		if busy != nil {
			return violation(CodeStaffBusy, "%s is already working on order %s", staff.Name, busy.OrderNumber)
		}

		required, err := order.WorkflowStage.RequiredRole()
		if err != nil {
			return violation(CodeInvalidStage, "Order %s cannot be assigned: %v", order.OrderNumber, err)
		}
		if staff.Role != required {
			return violation(CodeRoleMismatch, "Order %s is in stage %s which requires a %s, but %s is a %s",
				order.OrderNumber, order.WorkflowStage, required, staff.Name, staff.Role)
		}

		stage := order.WorkflowStage
		if stage == models.StagePending {
			stage = models.StageTailoring
		}
		if err := order.ApplyStage(stage); err != nil {
			return err
		}

		entry := models.StageHistory{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Stage:       stage,
			StaffID:     staff.ID,
			StaffName:   staff.Name,
			StaffRole:   staff.Role,
			StartedAt:   now,
			Status:      models.StageHistoryInProgress,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return assignmentWriteError(err, "create stage history")
		}

		assignment := models.StaffAssignment{
			StaffID:     staff.ID,
			StaffName:   staff.Name,
			StaffRole:   staff.Role,
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Stage:       stage,
			Status:      models.AssignmentActive,
			AssignedAt:  now,
		}
		if err := tx.Create(&assignment).Error; err != nil {
			return assignmentWriteError(err, "create assignment")
		}

		order.SetCurrentStaff(staff)
		order.UpdatedAt = now
		return saveWorkflowFields(tx, order)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Order %s assigned to %s (%s) for %s", order.OrderNumber, staff.Name, staff.Role, order.WorkflowStage)
	s.publish(ctx, EventStageStarted, order, &staff.ID, "")
	s.attachPhotoURL(ctx, order)
	return order, nil
}

// CompleteCurrentStage closes the active stage of the order and advances it to the next stage
func (s *WorkflowService) CompleteCurrentStage(ctx context.Context, orderID uint, notes string) (*StageCompletion, error) {
	now := s.now()
	notes = strings.TrimSpace(notes)
	var result *StageCompletion
	var staffID uint

	err := s.store.WithTransaction(ctx, func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Collected {
			return collectedError(order)
		}

		completed := order.WorkflowStage
		if !completed.IsWorking() {
			return violation(CodeInvalidStage, "Order %s is in stage %s; there is no stage to complete",
				order.OrderNumber, completed)
		}

		assignment, _, err := closeActiveWork(tx, order, now, notes, models.StageOutcomePassed)
		if err != nil {
			return err
		}
		staffID = assignment.StaffID

		next, err := completed.Next()
		if err != nil {
			return err
		}
		if err := order.ApplyStage(next); err != nil {
			return err
		}
		order.ClearCurrentStaff()
		order.UpdatedAt = now
		if err := saveWorkflowFields(tx, order); err != nil {
			return err
		}

		result = &StageCompletion{
			CompletedStage: completed,
			NewStage:       next,
			OrderCompleted: next == models.StageCompleted,
			Order:          order,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Order %s completed stage %s, now %s", result.Order.OrderNumber, result.CompletedStage, result.NewStage)
	s.publish(ctx, EventStageCompleted, result.Order, &staffID, notes)
	s.attachPhotoURL(ctx, result.Order)
	return result, nil
}

// RequestRework closes a QC inspection as failed and sends the order back to beading.
// The order needs a new beader assignment before it can move forward again.
func (s *WorkflowService) RequestRework(ctx context.Context, orderID uint, notes string) (*models.Order, error) {
	now := s.now()
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, invalid("Rework notes are required")
	}
	var order *models.Order
	var staffID uint

	err := s.store.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Collected {
			return collectedError(order)
		}
		if order.WorkflowStage != models.StageQC {
			return violation(CodeInvalidStage, "Order %s is in stage %s; rework can only be requested during qc",
				order.OrderNumber, order.WorkflowStage)
		}

		assignment, _, err := closeActiveWork(tx, order, now, notes, models.StageOutcomeRework)
		if err != nil {
			return err
		}
		staffID = assignment.StaffID

		if err := order.ApplyStage(models.StageBeading); err != nil {
			return err
		}
		order.ClearCurrentStaff()
		order.UpdatedAt = now
		return saveWorkflowFields(tx, order)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Order %s sent back to %s for rework", order.OrderNumber, order.WorkflowStage)
	s.publish(ctx, EventReworkRequested, order, &staffID, notes)
	s.attachPhotoURL(ctx, order)
	return order, nil
}

// MarkCollected records that the customer picked up a completed order.
// A collected order can no longer be changed.
func (s *WorkflowService) MarkCollected(ctx context.Context, orderID uint) (*models.Order, error) {
	now := s.now()
	var order *models.Order

	err := s.store.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Collected {
			return violation(CodeOrderCollected, "Order %s has already been collected", order.OrderNumber)
		}
		if order.WorkflowStage != models.StageCompleted {
			return violation(CodeOrderNotCompleted, "Order %s is in stage %s and cannot be collected until it is completed",
				order.OrderNumber, order.WorkflowStage)
		}

		order.Collected = true
		order.CollectedAt = &now
		order.UpdatedAt = now
		if err := tx.Model(order).Select("collected", "collected_at", "updated_at").Updates(order).Error; err != nil {
			return pkgerrors.Wrapf(err, "mark order %d collected", order.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Order %s collected", order.OrderNumber)
	s.publish(ctx, EventOrderCollected, order, nil, "")
	s.attachPhotoURL(ctx, order)
	return order, nil
}

// UpdateOrder patches the editable fields of an uncollected order.
// Changing the customer name issues a new order number.
func (s *WorkflowService) UpdateOrder(ctx context.Context, orderID uint, patch OrderPatch) (*models.Order, error) {
	now := s.now()
	var order *models.Order

	err := s.store.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Collected {
			return collectedError(order)
		}

		renamed, err := applyOrderPatch(order, patch)
		if err != nil {
			return err
		}
		if renamed {
			number, err := generateOrderNumber(tx, order.CustomerName, now)
			if err != nil {
				return err
			}
			order.OrderNumber = number
			if err := restampOrderNumber(tx, order.ID, number); err != nil {
				return err
			}
		}
		order.UpdatedAt = now

		if err := tx.Model(order).Select(
			"order_number", "customer_name", "customer_phone", "customer_email", "garment_type",
			"gender", "expected_collection_date", "measurements", "fabric_type",
			"special_instructions", "updated_at",
		).Updates(order).Error; err != nil {
			return pkgerrors.Wrapf(err, "update order %d", order.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventOrderUpdated, order, nil, "")
	s.attachPhotoURL(ctx, order)
	return order, nil
}

// restampOrderNumber carries a reissued order number onto the order's assignments and
// stage history so busy messages and availability never name a retired number.
func restampOrderNumber(tx *gorm.DB, orderID uint, number string) error {
	if err := tx.Model(&models.StaffAssignment{}).Where("order_id = ?", orderID).
		Update("order_number", number).Error; err != nil {
		return pkgerrors.Wrapf(err, "restamp assignments of order %d", orderID)
	}
	if err := tx.Model(&models.StageHistory{}).Where("order_id = ?", orderID).
		Update("order_number", number).Error; err != nil {
		return pkgerrors.Wrapf(err, "restamp stage history of order %d", orderID)
	}
	return nil
}

// applyOrderPatch copies the set fields of patch onto order and re-validates it.
// It reports whether the customer name changed.
func applyOrderPatch(order *models.Order, patch OrderPatch) (bool, error) {
	renamed := false
	if patch.CustomerName != nil {
		name := strings.TrimSpace(*patch.CustomerName)
		if name == "" {
			return false, invalid("Customer name is required")
		}
		renamed = name != order.CustomerName
		order.CustomerName = name
	}
	if patch.CustomerPhone != nil {
		phone := strings.TrimSpace(*patch.CustomerPhone)
		if phone == "" {
			return false, invalid("Customer phone is required")
		}
		order.CustomerPhone = phone
	}
	if patch.CustomerEmail != nil {
		email := strings.TrimSpace(*patch.CustomerEmail)
		if err := validateEmail(email); err != nil {
			return false, err
		}
		order.CustomerEmail = email
	}
	if patch.GarmentType != nil {
		garment := strings.TrimSpace(*patch.GarmentType)
		if garment == "" {
			return false, invalid("Garment type is required")
		}
		order.GarmentType = garment
	}
	if patch.ExpectedCollectionDate != nil {
		if patch.ExpectedCollectionDate.IsZero() {
			return false, invalid("Expected collection date is required")
		}
		order.ExpectedCollectionDate = *patch.ExpectedCollectionDate
	}
	if patch.FabricType != nil {
		order.FabricType = strings.TrimSpace(*patch.FabricType)
	}
	if patch.SpecialInstructions != nil {
		order.SpecialInstructions = strings.TrimSpace(*patch.SpecialInstructions)
	}

	if patch.Gender != nil {
		order.Gender = models.Gender(strings.ToLower(strings.TrimSpace(string(*patch.Gender))))
	}
	measurements := order.Measurements.Data()
	if patch.Measurements != nil {
		measurements = *patch.Measurements
	}
	if patch.Gender != nil || patch.Measurements != nil {
		if err := measurements.Validate(order.Gender); err != nil {
			return false, invalid("Invalid measurements: %v", err)
		}
		order.Measurements = datatypes.NewJSONType(measurements)
	}
	return renamed, nil
}

// ReplaceFabricPhoto stores a new fabric photo for the order and removes the old one
func (s *WorkflowService) ReplaceFabricPhoto(ctx context.Context, orderID uint, photo *PhotoUpload) (*models.Order, error) {
	ref, err := s.photos.Store(ctx, photo)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var order *models.Order
	var previous *string

	err = s.store.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Collected {
			return collectedError(order)
		}

		previous = order.FabricPhotoKey
		order.FabricPhotoKey = &ref
		order.UpdatedAt = now
		if err := tx.Model(order).Select("fabric_photo_key", "updated_at").Updates(order).Error; err != nil {
			return pkgerrors.Wrapf(err, "update fabric photo of order %d", order.ID)
		}
		return nil
	})
	if err != nil {
		s.deletePhoto(ctx, ref)
		return nil, err
	}

	if previous != nil {
		s.deletePhoto(ctx, *previous)
	}
	s.publish(ctx, EventOrderUpdated, order, nil, "")
	s.attachPhotoURL(ctx, order)
	return order, nil
}

// DeleteOrder removes an uncollected order that nobody is working on, together with its
// stage history and assignment records. The fabric photo is removed after the commit and a
// failure to remove it is only logged.
func (s *WorkflowService) DeleteOrder(ctx context.Context, orderID uint) error {
	var order *models.Order

	err := s.store.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Collected {
			return violation(CodeOrderCollected, "Order %s has been collected and cannot be deleted", order.OrderNumber)
		}

		current, err := activeAssignmentForOrder(tx, order.ID)
		if err != nil {
			return err
		}
		if current != nil || order.HasCurrentStaff() {
			return violation(CodeOrderHasActiveWork, "Order %s has an active assignment; complete the current stage before deleting it",
				order.OrderNumber)
		}

		if err := tx.Where("order_id = ?", order.ID).Delete(&models.StageHistory{}).Error; err != nil {
			return pkgerrors.Wrapf(err, "delete stage history of order %d", order.ID)
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.StaffAssignment{}).Error; err != nil {
			return pkgerrors.Wrapf(err, "delete assignments of order %d", order.ID)
		}
		if err := tx.Delete(order).Error; err != nil {
			return pkgerrors.Wrapf(err, "delete order %d", order.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if order.FabricPhotoKey != nil {
		s.deletePhoto(ctx, *order.FabricPhotoKey)
	}
	log.Printf("Order %s deleted", order.OrderNumber)
	s.publish(ctx, EventOrderDeleted, order, nil, "")
	return nil
}

// closeActiveWork completes the active assignment and the in-progress stage history entry of
// the order's current stage
func closeActiveWork(tx *gorm.DB, order *models.Order, now time.Time, notes string, outcome models.StageOutcome) (*models.StaffAssignment, *models.StageHistory, error) {
	if !order.HasCurrentStaff() {
		return nil, nil, violation(CodeNoActiveAssignment, "Order %s has no staff member assigned to stage %s",
			order.OrderNumber, order.WorkflowStage)
	}

	assignment, err := activeAssignmentForOrder(tx, order.ID)
	if err != nil {
		return nil, nil, err
	}
	if assignment == nil || assignment.StaffID != *order.CurrentStaffID {
		return nil, nil, violation(CodeInconsistentAssignment, "Order %s has no active assignment for staff member %d",
			order.OrderNumber, *order.CurrentStaffID)
	}

	entry, err := inProgressHistory(tx, order.ID, order.WorkflowStage)
	if err != nil {
		return nil, nil, err
	}
	if entry == nil {
		return nil, nil, violation(CodeInconsistentAssignment, "Order %s has no stage history entry in progress for %s",
			order.OrderNumber, order.WorkflowStage)
	}

	entry.Close(now, notes, outcome)
	if err := tx.Model(entry).Select("completed_at", "duration_ms", "status", "notes", "outcome").Updates(entry).Error; err != nil {
		return nil, nil, pkgerrors.Wrapf(err, "close stage history %d", entry.ID)
	}

	assignment.Status = models.AssignmentCompleted
	assignment.CompletedAt = &now
	if err := tx.Model(assignment).Select("status", "completed_at").Updates(assignment).Error; err != nil {
		return nil, nil, pkgerrors.Wrapf(err, "complete assignment %d", assignment.ID)
	}
	return assignment, entry, nil
}

// saveWorkflowFields writes the stage, progress and current staff pointer of order
func saveWorkflowFields(tx *gorm.DB, order *models.Order) error {
	err := tx.Model(order).
		Select("workflow_stage", "progress", "current_staff_id", "current_staff_role", "updated_at").
		Updates(order).Error
	if err != nil {
		return pkgerrors.Wrapf(err, "update workflow state of order %d", order.ID)
	}
	return nil
}

// assignmentWriteError reports a unique index violation on the ledger as a conflict
func assignmentWriteError(err error, action string) error {
	if isDuplicateKey(err) {
		return violation(CodeAssignmentConflict, "Assignment conflict: the staff member or the order already has active work")
	}
	return pkgerrors.Wrap(err, action)
}

func collectedError(order *models.Order) error {
	return violation(CodeOrderCollected, "Order %s has been collected and can no longer be changed", order.OrderNumber)
}

func (s *WorkflowService) attachPhotoURL(ctx context.Context, order *models.Order) {
	order.FabricPhotoURL = nil
	if order.FabricPhotoKey == nil || *order.FabricPhotoKey == "" {
		return
	}
	url, err := s.photos.URL(ctx, *order.FabricPhotoKey)
	if err != nil {
		log.Printf("warning: failed to resolve fabric photo URL for order %s: %v", order.OrderNumber, err)
		return
	}
	if url != "" {
		order.FabricPhotoURL = &url
	}
}

func (s *WorkflowService) deletePhoto(ctx context.Context, ref string) {
	if err := s.photos.Delete(ctx, ref); err != nil {
		log.Printf("warning: failed to delete fabric photo %s: %v", ref, err)
	}
}

func (s *WorkflowService) publish(ctx context.Context, event string, order *models.Order, staffID *uint, notes string) {
	payload := OrderEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Stage:       string(order.WorkflowStage),
		StaffID:     staffID,
		Notes:       notes,
		OccurredAt:  s.now(),
	}
	if err := s.events.Publish(ctx, event, payload); err != nil {
		log.Printf("publish %s failed: %v", event, err)
	}
}
