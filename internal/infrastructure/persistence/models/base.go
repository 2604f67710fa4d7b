// Package models holds the GORM persistence models and their mappings to and
// from the domain layer.
package models

import (
	"time"

	"github.com/freteflow/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// AggregateModel provides common persistence fields for aggregate roots.
// It extends BaseModel with version for optimistic locking.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// FromDomainAggregateRoot populates AggregateModel from domain BaseAggregateRoot
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.Version = a.Version
}

// BranchAggregateModel provides common persistence fields for aggregate roots
// scoped to an organization and branch.
type BranchAggregateModel struct {
	AggregateModel
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index"`
	BranchID       uuid.UUID `gorm:"type:uuid;not null;index"`
}

// FromDomainBranchAggregateRoot populates BranchAggregateModel from domain BranchAggregateRoot
func (m *BranchAggregateModel) FromDomainBranchAggregateRoot(r shared.BranchAggregateRoot) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.OrganizationID = r.OrganizationID
	m.BranchID = r.BranchID
}

// ToBranchAggregateRoot rebuilds a domain BranchAggregateRoot from the model
func (m *BranchAggregateModel) ToBranchAggregateRoot() shared.BranchAggregateRoot {
	return shared.BranchAggregateRoot{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		OrganizationID: m.OrganizationID,
		BranchID:       m.BranchID,
	}
}
