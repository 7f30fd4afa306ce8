package repository

import (
	"github.com/bitfantasy/garage-erp/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// GetItem 获取库存物料
func (r *InventoryRepository) GetItem(companyID, id string) (*entity.InventoryItem, error) {
	var item entity.InventoryItem
	err := r.db.Where("company_id = ? AND id = ?", companyID, id).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItemForUpdate 在事务内加行锁获取物料，串行化同一物料的并发调整
func (r *InventoryRepository) GetItemForUpdate(tx *gorm.DB, companyID, id string) (*entity.InventoryItem, error) {
	var item entity.InventoryItem
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

type InventoryListParams struct {
	Category string
	Keyword  string
	LowStock bool
	Inactive bool
	Page     int
	Size     int
}

func (r *InventoryRepository) ListItems(companyID string, params InventoryListParams) ([]entity.InventoryItem, int64, error) {
	query := r.db.Model(&entity.InventoryItem{}).Where("company_id = ?", companyID)
	if !params.Inactive {
		query = query.Where("is_active = true")
	}
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("sku ILIKE ? OR name ILIKE ?", kw, kw)
	}
	if params.LowStock {
		query = query.Where("is_tracked = true AND quantity_on_hand <= reorder_point")
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var items []entity.InventoryItem
	err := query.Order("updated_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&items).Error
	return items, total, err
}

// LowStock 获取需要补货的物料：启用、追踪库存且在库不高于补货点
func (r *InventoryRepository) LowStock(companyID string) ([]entity.InventoryItem, error) {
	var items []entity.InventoryItem
	err := r.db.Where("company_id = ? AND is_active = true AND is_tracked = true AND quantity_on_hand <= reorder_point", companyID).
		Order("quantity_on_hand ASC").
		Find(&items).Error
	return items, err
}

// InventoryStats 库存统计快照
type InventoryStats struct {
	TotalItems    int64   `json:"total_items"`
	ActiveItems   int64   `json:"active_items"`
	LowStockItems int64   `json:"low_stock_items"`
	TotalValue    float64 `json:"total_value"`
	RetailValue   float64 `json:"retail_value"`
}

// Stats 汇总租户库存统计，只读投影
func (r *InventoryRepository) Stats(companyID string) (*InventoryStats, error) {
	var stats InventoryStats
	err := r.db.Raw(`
		SELECT
			COUNT(*) as total_items,
			COUNT(*) FILTER (WHERE is_active) as active_items,
			COUNT(*) FILTER (WHERE is_active AND is_tracked AND quantity_on_hand <= reorder_point) as low_stock_items,
			COALESCE(SUM(quantity_on_hand * cost_price), 0) as total_value,
			COALESCE(SUM(quantity_on_hand * selling_price), 0) as retail_value
		FROM garage_inventory_items
		WHERE company_id = ?
	`, companyID).Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

type MovementListParams struct {
	InventoryItemID string
	MovementType    string
	Page            int
	Size            int
}

// ListMovements 按变动时间倒序返回流水
func (r *InventoryRepository) ListMovements(companyID string, params MovementListParams) ([]entity.StockMovement, int64, error) {
	query := r.db.Model(&entity.StockMovement{}).Where("company_id = ?", companyID)
	if params.InventoryItemID != "" {
		query = query.Where("inventory_item_id = ?", params.InventoryItemID)
	}
	if params.MovementType != "" {
		query = query.Where("movement_type = ?", params.MovementType)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var movements []entity.StockMovement
	err := query.Order("movement_date DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&movements).Error
	return movements, total, err
}

// MovementsForReplay 按变动时间正序返回某物料全部流水，用于对账重放
func (r *InventoryRepository) MovementsForReplay(companyID, itemID string) ([]entity.StockMovement, error) {
	var movements []entity.StockMovement
	err := r.db.Where("company_id = ? AND inventory_item_id = ?", companyID, itemID).
		Order("movement_date ASC, created_at ASC").
		Find(&movements).Error
	return movements, err
}

// DB 返回底层db用于事务
func (r *InventoryRepository) DB() *gorm.DB {
	return r.db
}
