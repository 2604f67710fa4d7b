package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/freteflow/backend/internal/domain/finance"
	"github.com/freteflow/backend/internal/domain/shared"
	"github.com/freteflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// collectibleReceivableStatuses are the receivable statuses still awaiting
// receipts and not yet flagged overdue.
var collectibleReceivableStatuses = []finance.ReceivableStatus{
	finance.ReceivableStatusOpen,
	finance.ReceivableStatusPartial,
}

var allowedReceivableOrderColumns = map[string]bool{
	"created_at":      true,
	"updated_at":      true,
	"due_date":        true,
	"issue_date":      true,
	"document_number": true,
	"amount":          true,
	"status":          true,
}

// GormAccountReceivableRepository implements AccountReceivableRepository using GORM
type GormAccountReceivableRepository struct {
	db *gorm.DB
}

// NewGormAccountReceivableRepository creates a new GormAccountReceivableRepository
func NewGormAccountReceivableRepository(db *gorm.DB) *GormAccountReceivableRepository {
	return &GormAccountReceivableRepository{db: db}
}

// FindByID finds a receivable by ID within an organization and branch
func (r *GormAccountReceivableRepository) FindByID(ctx context.Context, organizationID, branchID, id uuid.UUID) (*finance.AccountReceivable, error) {
	var model models.AccountReceivableModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND branch_id = ? AND id = ?", organizationID, branchID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByDocumentNumber finds a receivable by its document number
func (r *GormAccountReceivableRepository) FindByDocumentNumber(ctx context.Context, organizationID, branchID uuid.UUID, documentNumber string) (*finance.AccountReceivable, error) {
	var model models.AccountReceivableModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND branch_id = ? AND document_number = ?", organizationID, branchID, documentNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindAll finds receivables with filtering
func (r *GormAccountReceivableRepository) FindAll(ctx context.Context, organizationID, branchID uuid.UUID, filter finance.AccountReceivableFilter) ([]finance.AccountReceivable, error) {
	var receivableModels []models.AccountReceivableModel
	query := r.db.WithContext(ctx).Model(&models.AccountReceivableModel{}).
		Where("organization_id = ? AND branch_id = ?", organizationID, branchID)
	query = r.applyFilter(query, filter)

	if err := query.Find(&receivableModels).Error; err != nil {
		return nil, err
	}
	return toDomainReceivables(receivableModels)
}

// FindOverdue finds collectible titles past their due date that are not yet
// flagged OVERDUE
func (r *GormAccountReceivableRepository) FindOverdue(ctx context.Context, organizationID, branchID uuid.UUID, reference time.Time) ([]finance.AccountReceivable, error) {
	var receivableModels []models.AccountReceivableModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND branch_id = ? AND due_date < ? AND status IN ?",
			organizationID, branchID, reference, collectibleReceivableStatuses).
		Order("due_date ASC").
		Find(&receivableModels).Error; err != nil {
		return nil, err
	}
	return toDomainReceivables(receivableModels)
}

// FindOverdueScopes lists the organization and branch pairs holding
// collectible titles past their due date
func (r *GormAccountReceivableRepository) FindOverdueScopes(ctx context.Context, reference time.Time) ([]finance.BranchScope, error) {
	var scopes []finance.BranchScope
	if err := r.db.WithContext(ctx).
		Model(&models.AccountReceivableModel{}).
		Distinct("organization_id", "branch_id").
		Where("due_date < ? AND status IN ?", reference, collectibleReceivableStatuses).
		Find(&scopes).Error; err != nil {
		return nil, err
	}
	return scopes, nil
}

// Save creates or updates a receivable
func (r *GormAccountReceivableRepository) Save(ctx context.Context, receivable *finance.AccountReceivable) error {
	model := models.AccountReceivableModelFromDomain(receivable)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with an optimistic version check
func (r *GormAccountReceivableRepository) SaveWithLock(ctx context.Context, receivable *finance.AccountReceivable) error {
	model := models.AccountReceivableModelFromDomain(receivable)
	result := r.db.WithContext(ctx).
		Model(&models.AccountReceivableModel{}).
		Where("id = ? AND version = ?", receivable.ID, receivable.Version-1).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Count counts receivables matching the filter
func (r *GormAccountReceivableRepository) Count(ctx context.Context, organizationID, branchID uuid.UUID, filter finance.AccountReceivableFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.AccountReceivableModel{}).
		Where("organization_id = ? AND branch_id = ?", organizationID, branchID)
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormAccountReceivableRepository) applyFilter(query *gorm.DB, filter finance.AccountReceivableFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" && allowedReceivableOrderColumns[filter.OrderBy] {
		direction := "ASC"
		if strings.EqualFold(filter.Order, "desc") {
			direction = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + direction)
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

func (r *GormAccountReceivableRepository) applyFilterWithoutPagination(query *gorm.DB, filter finance.AccountReceivableFilter) *gorm.DB {
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Origin != nil {
		query = query.Where("origin = ?", *filter.Origin)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", *filter.DueTo)
	}
	if filter.MinAmount != nil {
		query = query.Where("amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("amount <= ?", *filter.MaxAmount)
	}
	return query
}

func toDomainReceivables(receivableModels []models.AccountReceivableModel) ([]finance.AccountReceivable, error) {
	receivables := make([]finance.AccountReceivable, len(receivableModels))
	for i := range receivableModels {
		receivable, err := receivableModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		receivables[i] = *receivable
	}
	return receivables, nil
}

// Ensure GormAccountReceivableRepository implements AccountReceivableRepository
var _ finance.AccountReceivableRepository = (*GormAccountReceivableRepository)(nil)
