package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/posledger/backend/internal/domain/possync"
)

// POSConnectionModel is the persistence model for POS connections
type POSConnectionModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key"`
	TenantID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_pos_connections_tenant_system,priority:1"`
	System         string     `gorm:"type:varchar(20);not null;uniqueIndex:idx_pos_connections_tenant_system,priority:2"`
	ExternalHandle string     `gorm:"type:varchar(255);not null"`
	LastSyncTime   *time.Time `gorm:"index"`
	Status         string     `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	CreatedAt      time.Time  `gorm:"not null"`
	UpdatedAt      time.Time  `gorm:"not null"`
}

// TableName specifies the table name
func (POSConnectionModel) TableName() string {
	return "pos_connections"
}

// ToDomain converts the model to a domain connection
func (m *POSConnectionModel) ToDomain() *possync.POSConnection {
	return &possync.POSConnection{
		ID:             m.ID,
		TenantID:       m.TenantID,
		System:         possync.POSSystem(m.System),
		ExternalHandle: m.ExternalHandle,
		LastSyncTime:   m.LastSyncTime,
		Status:         possync.ConnectionStatus(m.Status),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// FromDomain populates the model from a domain connection
func (m *POSConnectionModel) FromDomain(c *possync.POSConnection) {
	m.ID = c.ID
	m.TenantID = c.TenantID
	m.System = c.System.String()
	m.ExternalHandle = c.ExternalHandle
	m.LastSyncTime = c.LastSyncTime
	m.Status = string(c.Status)
	m.CreatedAt = c.CreatedAt
	m.UpdatedAt = c.UpdatedAt
}

// SaleRecordModel is the persistence model for ledger rows
type SaleRecordModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_sale_records_tenant_date,priority:1"`
	System            string          `gorm:"type:varchar(20);not null"`
	ExternalOrderID   string          `gorm:"type:varchar(128);not null;index"`
	ExternalItemID    string          `gorm:"type:varchar(128);not null"`
	SaleDate          time.Time       `gorm:"type:date;not null;index:idx_sale_records_tenant_date,priority:2"`
	SaleTime          time.Time       `gorm:"not null"`
	ItemName          string          `gorm:"type:varchar(255);not null"`
	Quantity          int64           `gorm:"not null"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(15,4);not null"`
	TotalPrice        decimal.Decimal `gorm:"type:decimal(15,4);not null"`
	Adjustment        string          `gorm:"type:varchar(20);not null"`
	SuggestedCategory string          `gorm:"type:varchar(100)"`
	ApprovedCategory  string          `gorm:"type:varchar(100)"`
	Categorized       bool            `gorm:"not null;default:false"`
	ParentRecordID    *uuid.UUID      `gorm:"type:uuid;index"`
	CreatedAt         time.Time       `gorm:"not null"`
}

// TableName specifies the table name
func (SaleRecordModel) TableName() string {
	return "sale_records"
}

// ToDomain converts the model to a domain ledger row
func (m *SaleRecordModel) ToDomain() possync.SaleRecord {
	return possync.SaleRecord{
		ID:                m.ID,
		TenantID:          m.TenantID,
		System:            possync.POSSystem(m.System),
		ExternalOrderID:   m.ExternalOrderID,
		ExternalItemID:    m.ExternalItemID,
		SaleDate:          m.SaleDate,
		SaleTime:          m.SaleTime,
		ItemName:          m.ItemName,
		Quantity:          m.Quantity,
		UnitPrice:         m.UnitPrice,
		TotalPrice:        m.TotalPrice,
		Adjustment:        possync.AdjustmentType(m.Adjustment),
		SuggestedCategory: m.SuggestedCategory,
		ApprovedCategory:  m.ApprovedCategory,
		Categorized:       m.Categorized,
		ParentRecordID:    m.ParentRecordID,
	}
}

// FromDomain populates the model from a domain ledger row
func (m *SaleRecordModel) FromDomain(r *possync.SaleRecord) {
	m.ID = r.ID
	m.TenantID = r.TenantID
	m.System = r.System.String()
	m.ExternalOrderID = r.ExternalOrderID
	m.ExternalItemID = r.ExternalItemID
	m.SaleDate = r.SaleDate
	m.SaleTime = r.SaleTime
	m.ItemName = r.ItemName
	m.Quantity = r.Quantity
	m.UnitPrice = r.UnitPrice
	m.TotalPrice = r.TotalPrice
	m.Adjustment = string(r.Adjustment)
	m.SuggestedCategory = r.SuggestedCategory
	m.ApprovedCategory = r.ApprovedCategory
	m.Categorized = r.Categorized
	m.ParentRecordID = r.ParentRecordID
}

// DailyAggregateModel is the persistence model for daily aggregates
type DailyAggregateModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_daily_aggregates_tenant_date,priority:1"`
	Date       time.Time       `gorm:"type:date;not null;uniqueIndex:idx_daily_aggregates_tenant_date,priority:2"`
	GrossSales decimal.Decimal `gorm:"type:decimal(15,4);not null"`
	Discounts  decimal.Decimal `gorm:"type:decimal(15,4);not null"`
	Voids      decimal.Decimal `gorm:"type:decimal(15,4);not null"`
	NetSales   decimal.Decimal `gorm:"type:decimal(15,4);not null"`
	Tax        decimal.Decimal `gorm:"type:decimal(15,4);not null"`
	Tips       decimal.Decimal `gorm:"type:decimal(15,4);not null"`
	ComputedAt time.Time       `gorm:"not null"`
}

// TableName specifies the table name
func (DailyAggregateModel) TableName() string {
	return "daily_aggregates"
}

// ToDomain converts the model to a domain aggregate
func (m *DailyAggregateModel) ToDomain() *possync.DailyAggregate {
	return &possync.DailyAggregate{
		ID:         m.ID,
		TenantID:   m.TenantID,
		Date:       m.Date,
		GrossSales: m.GrossSales,
		Discounts:  m.Discounts,
		Voids:      m.Voids,
		NetSales:   m.NetSales,
		Tax:        m.Tax,
		Tips:       m.Tips,
		ComputedAt: m.ComputedAt,
	}
}

// FromDomain populates the model from a domain aggregate
func (m *DailyAggregateModel) FromDomain(a *possync.DailyAggregate) {
	m.ID = a.ID
	m.TenantID = a.TenantID
	m.Date = a.Date
	m.GrossSales = a.GrossSales
	m.Discounts = a.Discounts
	m.Voids = a.Voids
	m.NetSales = a.NetSales
	m.Tax = a.Tax
	m.Tips = a.Tips
	m.ComputedAt = a.ComputedAt
}

// CategoryRuleModel is the persistence model for categorization rules
type CategoryRuleModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Keyword   string    `gorm:"type:varchar(100);not null"`
	Category  string    `gorm:"type:varchar(100);not null"`
	System    *string   `gorm:"type:varchar(20)"`
	Priority  int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name
func (CategoryRuleModel) TableName() string {
	return "category_rules"
}

// ToDomain converts the model to a domain rule
func (m *CategoryRuleModel) ToDomain() possync.CategoryRule {
	rule := possync.CategoryRule{
		ID:       m.ID,
		TenantID: m.TenantID,
		Keyword:  m.Keyword,
		Category: m.Category,
		Priority: m.Priority,
	}
	if m.System != nil {
		system := possync.POSSystem(*m.System)
		rule.System = &system
	}
	return rule
}

// FromDomain populates the model from a domain rule
func (m *CategoryRuleModel) FromDomain(r *possync.CategoryRule) {
	m.ID = r.ID
	m.TenantID = r.TenantID
	m.Keyword = r.Keyword
	m.Category = r.Category
	m.Priority = r.Priority
	if r.System != nil {
		system := r.System.String()
		m.System = &system
	} else {
		m.System = nil
	}
}
