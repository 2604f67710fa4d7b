package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Filter carries common pagination and ordering options
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	Order    string // asc or desc
}

// AccountPayableFilter defines filtering options for payable queries
type AccountPayableFilter struct {
	Filter
	SupplierID *uuid.UUID
	Status     *PayableStatus
	DueFrom    *time.Time
	DueTo      *time.Time
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
}

// AccountPayableRepository defines the interface for payable persistence.
// Every lookup is keyed by organization and branch; tenancy is never optional.
type AccountPayableRepository interface {
	// FindByID finds a payable by ID within an organization and branch
	FindByID(ctx context.Context, organizationID, branchID, id uuid.UUID) (*AccountPayable, error)

	// FindByDocumentNumber finds a payable by its document number
	FindByDocumentNumber(ctx context.Context, organizationID, branchID uuid.UUID, documentNumber string) (*AccountPayable, error)

	// FindAll finds payables with filtering
	FindAll(ctx context.Context, organizationID, branchID uuid.UUID, filter AccountPayableFilter) ([]AccountPayable, error)

	// FindOverdue finds open titles past their due date at the reference instant
	FindOverdue(ctx context.Context, organizationID, branchID uuid.UUID, reference time.Time) ([]AccountPayable, error)

	// Save creates or updates a payable together with its payments
	Save(ctx context.Context, payable *AccountPayable) error

	// SaveWithLock saves with an optimistic version check, rejecting the write
	// if the stored version has advanced
	SaveWithLock(ctx context.Context, payable *AccountPayable) error

	// Count counts payables matching the filter
	Count(ctx context.Context, organizationID, branchID uuid.UUID, filter AccountPayableFilter) (int64, error)
}

// BranchScope identifies one organization and branch pair
type BranchScope struct {
	OrganizationID uuid.UUID
	BranchID       uuid.UUID
}

// AccountReceivableFilter defines filtering options for receivable queries
type AccountReceivableFilter struct {
	Filter
	CustomerID *uuid.UUID
	Status     *ReceivableStatus
	Origin     *ReceivableOrigin
	DueFrom    *time.Time
	DueTo      *time.Time
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
}

// AccountReceivableRepository defines the interface for receivable persistence
type AccountReceivableRepository interface {
	// FindByID finds a receivable by ID within an organization and branch
	FindByID(ctx context.Context, organizationID, branchID, id uuid.UUID) (*AccountReceivable, error)

	// FindByDocumentNumber finds a receivable by its document number
	FindByDocumentNumber(ctx context.Context, organizationID, branchID uuid.UUID, documentNumber string) (*AccountReceivable, error)

	// FindAll finds receivables with filtering
	FindAll(ctx context.Context, organizationID, branchID uuid.UUID, filter AccountReceivableFilter) ([]AccountReceivable, error)

	// FindOverdue finds collectible titles past their due date that are not
	// yet flagged OVERDUE
	FindOverdue(ctx context.Context, organizationID, branchID uuid.UUID, reference time.Time) ([]AccountReceivable, error)

	// FindOverdueScopes lists the organization and branch pairs that hold
	// collectible titles past their due date at the reference instant
	FindOverdueScopes(ctx context.Context, reference time.Time) ([]BranchScope, error)

	// Save creates or updates a receivable
	Save(ctx context.Context, receivable *AccountReceivable) error

	// SaveWithLock saves with an optimistic version check
	SaveWithLock(ctx context.Context, receivable *AccountReceivable) error

	// Count counts receivables matching the filter
	Count(ctx context.Context, organizationID, branchID uuid.UUID, filter AccountReceivableFilter) (int64, error)
}
