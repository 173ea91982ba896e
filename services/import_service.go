package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/tailoring-orders-api/models"
)

// DefaultMaxImportRows caps a single import batch when no limit is configured
const DefaultMaxImportRows = 500

// ImportRow is one order in a bulk import batch
type ImportRow struct {
	CustomerName        string              `json:"name"`
	CustomerPhone       string              `json:"phone"`
	CustomerEmail       string              `json:"email"`
	GarmentType         string              `json:"garment_type"`
	Gender              models.Gender       `json:"gender"`
	DueDate             string              `json:"due_date"` // YYYY-MM-DD or RFC3339
	Measurements        models.Measurements `json:"measurements"`
	FabricType          string              `json:"fabric_type"`
	SpecialInstructions string              `json:"special_instructions"`
}

// ImportRowError is the failure of one row
type ImportRowError struct {
	Row      int    `json:"row"` // 1-based position in the batch
	Customer string `json:"customer"`
	Error    string `json:"error"`
}

// ImportedOrder identifies an order created from a row
type ImportedOrder struct {
	Row         int    `json:"row"`
	OrderID     uint   `json:"order_id"`
	OrderNumber string `json:"order_number"`
}

// ImportResult is the per-row tally of an import batch
type ImportResult struct {
	BatchID     uuid.UUID        `json:"batch_id"`
	Processed   int              `json:"processed"`
	Succeeded   int              `json:"succeeded"`
	Failed      int              `json:"failed"`
	Created     []ImportedOrder  `json:"created"`
	Errors      []ImportRowError `json:"errors"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
}

// ImportService creates orders from a batch of rows, one CreateOrder call per row
type ImportService struct {
	workflow *WorkflowService
	events   EventPublisher
	maxRows  int
}

var importServiceInstance *ImportService

// NewImportService builds an import service. maxRows <= 0 uses DefaultMaxImportRows.
func NewImportService(workflow *WorkflowService, events EventPublisher, maxRows int) *ImportService {
	if events == nil {
		events = NoopPublisher{}
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxImportRows
	}
	return &ImportService{workflow: workflow, events: events, maxRows: maxRows}
}

// InitImportService initializes the global import service
func InitImportService(workflow *WorkflowService, events EventPublisher, maxRows int) *ImportService {
	importServiceInstance = NewImportService(workflow, events, maxRows)
	return importServiceInstance
}

// GetImportService returns the initialized import service instance
func GetImportService() *ImportService {
	return importServiceInstance
}

// SetImportService sets the import service instance (primarily for testing)
func SetImportService(service *ImportService) {
	importServiceInstance = service
}

// ImportOrders creates the rows in order. A failing row is recorded and the batch moves on.
// Only an empty or oversized batch is rejected as a whole.
func (s *ImportService) ImportOrders(ctx context.Context, rows []ImportRow) (*ImportResult, error) {
	if len(rows) == 0 {
		return nil, invalid("Import contains no rows")
	}
	if len(rows) > s.maxRows {
		return nil, &WorkflowError{
			Kind:    ErrValidation,
			Code:    CodeImportTooLarge,
			Message: fmt.Sprintf("Import contains %d rows; at most %d rows can be imported at once", len(rows), s.maxRows),
		}
	}

	result := &ImportResult{
		BatchID:   uuid.New(),
		Created:   []ImportedOrder{},
		Errors:    []ImportRowError{},
		StartedAt: s.workflow.now(),
	}

	for idx, row := range rows {
		rowNumber := idx + 1
		result.Processed++

		order, err := s.importRow(ctx, row)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ImportRowError{
				Row:      rowNumber,
				Customer: strings.TrimSpace(row.CustomerName),
				Error:    err.Error(),
			})
			continue
		}

		result.Succeeded++
		result.Created = append(result.Created, ImportedOrder{
			Row:         rowNumber,
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
		})
	}
	result.CompletedAt = s.workflow.now()

	log.Printf("Import batch %s: %d processed, %d succeeded, %d failed",
		result.BatchID, result.Processed, result.Succeeded, result.Failed)
	if err := s.events.Publish(ctx, EventOrdersImported, result); err != nil {
		log.Printf("publish %s failed: %v", EventOrdersImported, err)
	}
	return result, nil
}

func (s *ImportService) importRow(ctx context.Context, row ImportRow) (*models.Order, error) {
	dueDate, err := ParseDueDate(row.DueDate)
	if err != nil {
		return nil, err
	}
	return s.workflow.CreateOrder(ctx, CreateOrderInput{
		CustomerName:           row.CustomerName,
		CustomerPhone:          row.CustomerPhone,
		CustomerEmail:          row.CustomerEmail,
		GarmentType:            row.GarmentType,
		Gender:                 row.Gender,
		ExpectedCollectionDate: dueDate,
		Measurements:           row.Measurements,
		FabricType:             row.FabricType,
		SpecialInstructions:    row.SpecialInstructions,
	})
}

// ParseDueDate accepts a calendar date or a full RFC3339 timestamp
func ParseDueDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, invalid("Due date is required")
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, invalid("Invalid due date %q, expected YYYY-MM-DD", value)
}
