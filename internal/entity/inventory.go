package entity

import (
	"math"
	"time"
)

// MovementType 库存变动类型
const (
	MovementTypePurchase   = "PURCHASE"   // 采购入库
	MovementTypeSale       = "SALE"       // 领用出库
	MovementTypeReturn     = "RETURN"     // 退回入库
	MovementTypeAdjustment = "ADJUSTMENT" // 盘点调整，正负由数量符号决定
	MovementTypeDamaged    = "DAMAGED"    // 损坏出库
	MovementTypeExpired    = "EXPIRED"    // 过期出库
)

// InventoryItem 库存物料。在售/领用路径之外不允许直接改写在库数量
type InventoryItem struct {
	ID              string     `json:"id" gorm:"primaryKey;size:36"`
	CompanyID       string     `json:"company_id" gorm:"size:36;not null;index;uniqueIndex:idx_inventory_company_sku,priority:1"`
	SKU             string     `json:"sku" gorm:"size:64;not null;uniqueIndex:idx_inventory_company_sku,priority:2"`
	Name            string     `json:"name" gorm:"size:256;not null"`
	Description     string     `json:"description" gorm:"type:text"`
	Category        string     `json:"category" gorm:"size:64;index"`
	Unit            string     `json:"unit" gorm:"size:20;not null;default:pcs"`
	QuantityOnHand  float64    `json:"quantity_on_hand" gorm:"type:decimal(12,4);not null;default:0"`
	MinimumQuantity float64    `json:"minimum_quantity" gorm:"type:decimal(12,4);default:0"`
	ReorderPoint    float64    `json:"reorder_point" gorm:"type:decimal(12,4);default:0"`
	CostPrice       float64    `json:"cost_price" gorm:"type:decimal(12,4);default:0"`
	SellingPrice    float64    `json:"selling_price" gorm:"type:decimal(12,4);default:0"`
	IsActive        bool       `json:"is_active" gorm:"default:true"`
	IsTracked       bool       `json:"is_tracked" gorm:"default:true"`
	LastRestockAt   *time.Time `json:"last_restock_at"`
	CreatedBy       string     `json:"created_by" gorm:"size:36;not null"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (InventoryItem) TableName() string {
	return "garage_inventory_items"
}

// StockMovement 库存流水：只追加不修改。
// 数量始终存绝对值，方向由类型决定；quantity_after_movement
// 记录变动后的在库快照，按 movement_date 重放必须得到当前在库数量
type StockMovement struct {
	ID                    string    `json:"id" gorm:"primaryKey;size:36"`
	CompanyID             string    `json:"company_id" gorm:"size:36;not null;index;uniqueIndex:idx_movements_company_number,priority:1"`
	InventoryItemID       string    `json:"inventory_item_id" gorm:"size:36;not null;index"`
	MovementNumber        string    `json:"movement_number" gorm:"size:32;not null;uniqueIndex:idx_movements_company_number,priority:2"`
	MovementType          string    `json:"movement_type" gorm:"size:20;not null"`
	Quantity              float64   `json:"quantity" gorm:"type:decimal(12,4);not null"`
	UnitCost              float64   `json:"unit_cost" gorm:"type:decimal(12,4);default:0"`
	TotalCost             float64   `json:"total_cost" gorm:"type:decimal(12,2);default:0"`
	QuantityAfterMovement float64   `json:"quantity_after_movement" gorm:"type:decimal(12,4);not null"`
	ReferenceType         string    `json:"reference_type" gorm:"size:32"` // JOB_CARD, RESTOCK, MANUAL
	ReferenceID           string    `json:"reference_id" gorm:"size:36"`
	Notes                 string    `json:"notes" gorm:"type:text"`
	MovementDate          time.Time `json:"movement_date" gorm:"not null;index"`
	CreatedBy             string    `json:"created_by" gorm:"size:36;not null"`
	CreatedAt             time.Time `json:"created_at"`
}

func (StockMovement) TableName() string {
	return "garage_stock_movements"
}

// MovementDirection 返回变动类型对在库数量的符号影响。
// ADJUSTMENT 的方向由调用方传入的数量符号决定
func MovementDirection(movementType string, quantity float64) float64 {
	switch movementType {
	case MovementTypePurchase, MovementTypeReturn:
		return 1
	case MovementTypeSale, MovementTypeDamaged, MovementTypeExpired:
		return -1
	case MovementTypeAdjustment:
		if quantity < 0 {
			return -1
		}
		return 1
	}
	return 1
}

// MovementEffect 返回一条流水对在库数量的有符号增量。
// ADJUSTMENT 流水的 Quantity 落库时保留符号，重放台账时据此恢复方向
func MovementEffect(movementType string, quantity float64) float64 {
	return MovementDirection(movementType, quantity) * math.Abs(quantity)
}
