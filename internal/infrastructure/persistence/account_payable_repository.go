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

// collectiblePayableStatuses are the payable statuses that still owe money.
var collectiblePayableStatuses = []finance.PayableStatus{
	finance.PayableStatusOpen,
	finance.PayableStatusPartial,
}

// allowedPayableOrderColumns restricts user-supplied ordering to real columns.
var allowedPayableOrderColumns = map[string]bool{
	"created_at":      true,
	"updated_at":      true,
	"due_date":        true,
	"document_number": true,
	"amount":          true,
	"status":          true,
}

// GormAccountPayableRepository implements AccountPayableRepository using GORM
type GormAccountPayableRepository struct {
	db *gorm.DB
}

// NewGormAccountPayableRepository creates a new GormAccountPayableRepository
func NewGormAccountPayableRepository(db *gorm.DB) *GormAccountPayableRepository {
	return &GormAccountPayableRepository{db: db}
}

// FindByID finds a payable by ID within an organization and branch
func (r *GormAccountPayableRepository) FindByID(ctx context.Context, organizationID, branchID, id uuid.UUID) (*finance.AccountPayable, error) {
	var model models.AccountPayableModel
	if err := r.db.WithContext(ctx).
		Preload("Payments").
		Where("organization_id = ? AND branch_id = ? AND id = ?", organizationID, branchID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByDocumentNumber finds a payable by its document number
func (r *GormAccountPayableRepository) FindByDocumentNumber(ctx context.Context, organizationID, branchID uuid.UUID, documentNumber string) (*finance.AccountPayable, error) {
	var model models.AccountPayableModel
	if err := r.db.WithContext(ctx).
		Preload("Payments").
		Where("organization_id = ? AND branch_id = ? AND document_number = ?", organizationID, branchID, documentNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindAll finds payables with filtering
func (r *GormAccountPayableRepository) FindAll(ctx context.Context, organizationID, branchID uuid.UUID, filter finance.AccountPayableFilter) ([]finance.AccountPayable, error) {
	var payableModels []models.AccountPayableModel
	query := r.db.WithContext(ctx).Model(&models.AccountPayableModel{}).
		Preload("Payments").
		Where("organization_id = ? AND branch_id = ?", organizationID, branchID)
	query = r.applyFilter(query, filter)

	if err := query.Find(&payableModels).Error; err != nil {
		return nil, err
	}
	return toDomainPayables(payableModels)
}

// FindOverdue finds open titles past their due date at the reference instant
func (r *GormAccountPayableRepository) FindOverdue(ctx context.Context, organizationID, branchID uuid.UUID, reference time.Time) ([]finance.AccountPayable, error) {
	var payableModels []models.AccountPayableModel
	if err := r.db.WithContext(ctx).
		Preload("Payments").
		Where("organization_id = ? AND branch_id = ? AND due_date < ? AND status IN ?",
			organizationID, branchID, reference, collectiblePayableStatuses).
		Order("due_date ASC").
		Find(&payableModels).Error; err != nil {
		return nil, err
	}
	return toDomainPayables(payableModels)
}

// Save creates or updates a payable together with its payments
func (r *GormAccountPayableRepository) Save(ctx context.Context, payable *finance.AccountPayable) error {
	model := models.AccountPayableModelFromDomain(payable)
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(model).Error
}

// SaveWithLock saves with an optimistic version check. The write is rejected
// when the stored version has advanced past the one this aggregate was loaded
// at. Payment rows are upserted in the same transaction.
func (r *GormAccountPayableRepository) SaveWithLock(ctx context.Context, payable *finance.AccountPayable) error {
	model := models.AccountPayableModelFromDomain(payable)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.AccountPayableModel{}).
			Where("id = ? AND version = ?", payable.ID, payable.Version-1).
			Select("*").
			Omit("Payments", "id", "created_at").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		for i := range model.Payments {
			if err := tx.Save(&model.Payments[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Count counts payables matching the filter
func (r *GormAccountPayableRepository) Count(ctx context.Context, organizationID, branchID uuid.UUID, filter finance.AccountPayableFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.AccountPayableModel{}).
		Where("organization_id = ? AND branch_id = ?", organizationID, branchID)
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormAccountPayableRepository) applyFilter(query *gorm.DB, filter finance.AccountPayableFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" && allowedPayableOrderColumns[filter.OrderBy] {
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

func (r *GormAccountPayableRepository) applyFilterWithoutPagination(query *gorm.DB, filter finance.AccountPayableFilter) *gorm.DB {
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
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

func toDomainPayables(payableModels []models.AccountPayableModel) ([]finance.AccountPayable, error) {
	payables := make([]finance.AccountPayable, len(payableModels))
	for i := range payableModels {
		payable, err := payableModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		payables[i] = *payable
	}
	return payables, nil
}

// Ensure GormAccountPayableRepository implements AccountPayableRepository
var _ finance.AccountPayableRepository = (*GormAccountPayableRepository)(nil)
