package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bitfantasy/garage-erp/internal/entity"
	"github.com/bitfantasy/garage-erp/internal/notify"
	"github.com/bitfantasy/garage-erp/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const statsCacheTTL = 60 * time.Second

// StockService 库存台账。在库数量只能通过这里的变动操作修改，
// 每次变动追加一条不可变流水并快照变动后的在库数量
type StockService struct {
	repo     *repository.InventoryRepository
	db       *gorm.DB
	rdb      *redis.Client
	notifier notify.Notifier
}

func NewStockService(repo *repository.InventoryRepository, db *gorm.DB, rdb *redis.Client, notifier notify.Notifier) *StockService {
	return &StockService{repo: repo, db: db, rdb: rdb, notifier: notifier}
}

type CreateItemRequest struct {
	SKU             string  `json:"sku" binding:"required"`
	Name            string  `json:"name" binding:"required"`
	Description     string  `json:"description"`
	Category        string  `json:"category"`
	Unit            string  `json:"unit"`
	MinimumQuantity float64 `json:"minimum_quantity"`
	ReorderPoint    float64 `json:"reorder_point"`
	CostPrice       float64 `json:"cost_price"`
	SellingPrice    float64 `json:"selling_price"`
	IsTracked       *bool   `json:"is_tracked"`
}

// CreateItem 建立库存物料，初始在库为零，入库走 Restock/Adjust
func (s *StockService) CreateItem(req CreateItemRequest, companyID, userID string) (*entity.InventoryItem, error) {
	unit := req.Unit
	if unit == "" {
		unit = "pcs"
	}
	tracked := true
	if req.IsTracked != nil {
		tracked = *req.IsTracked
	}
	item := &entity.InventoryItem{
		ID:              uuid.New().String(),
		CompanyID:       companyID,
		SKU:             req.SKU,
		Name:            req.Name,
		Description:     req.Description,
		Category:        req.Category,
		Unit:            unit,
		MinimumQuantity: req.MinimumQuantity,
		ReorderPoint:    req.ReorderPoint,
		CostPrice:       req.CostPrice,
		SellingPrice:    req.SellingPrice,
		IsActive:        true,
		IsTracked:       tracked,
		CreatedBy:       userID,
	}
	if err := s.db.Create(item).Error; err != nil {
		return nil, fmt.Errorf("创建库存物料失败: %w", err)
	}
	s.invalidateStats(companyID)
	return item, nil
}

type UpdateItemRequest struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	MinimumQuantity *float64 `json:"minimum_quantity"`
	ReorderPoint    *float64 `json:"reorder_point"`
	SellingPrice    *float64 `json:"selling_price"`
	IsActive        *bool    `json:"is_active"`
}

// UpdateItem 更新物料档案。在库数量不在此处修改
func (s *StockService) UpdateItem(itemID, companyID string, req UpdateItemRequest) (*entity.InventoryItem, error) {
	item, err := s.repo.GetItem(companyID, itemID)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		item.Name = req.Name
	}
	if req.Description != "" {
		item.Description = req.Description
	}
	if req.Category != "" {
		item.Category = req.Category
	}
	if req.MinimumQuantity != nil {
		item.MinimumQuantity = *req.MinimumQuantity
	}
	if req.ReorderPoint != nil {
		item.ReorderPoint = *req.ReorderPoint
	}
	if req.SellingPrice != nil {
		item.SellingPrice = *req.SellingPrice
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
	if err := s.db.Save(item).Error; err != nil {
		return nil, fmt.Errorf("更新库存物料失败: %w", err)
	}
	s.invalidateStats(companyID)
	return item, nil
}

func (s *StockService) GetItem(itemID, companyID string) (*entity.InventoryItem, error) {
	return s.repo.GetItem(companyID, itemID)
}

func (s *StockService) ListItems(companyID string, params repository.InventoryListParams) ([]entity.InventoryItem, int64, error) {
	return s.repo.ListItems(companyID, params)
}

type AdjustRequest struct {
	Quantity      float64 `json:"quantity" binding:"required"`
	MovementType  string  `json:"movement_type" binding:"required"`
	UnitCost      float64 `json:"unit_cost"`
	ReferenceType string  `json:"reference_type"`
	ReferenceID   string  `json:"reference_id"`
	Notes         string  `json:"notes"`
}

// Adjust 调整在库数量并落一条流水。整个调整在单事务内完成：
// 行锁物料 → 计算方向 → 拒绝负库存 → 分配流水编号 → 写流水快照 → 存物料
func (s *StockService) Adjust(itemID, companyID, userID string, req AdjustRequest) (*entity.StockMovement, error) {
	var movement *entity.StockMovement
	var lastErr error
	for i := 0; i < numberRetries; i++ {
		lastErr = s.db.Transaction(func(tx *gorm.DB) error {
			var err error
			movement, err = s.adjustTx(tx, itemID, companyID, userID, req)
			return err
		})
		if lastErr == nil {
			break
		}
		if !errors.Is(lastErr, gorm.ErrDuplicatedKey) {
			return nil, lastErr
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("库存调整失败: %w", lastErr)
	}

	s.invalidateStats(companyID)
	s.publishLowStockIfNeeded(itemID, companyID)
	return movement, nil
}

// AdjustTx 供其他工作流（工单配件）在自己的事务内联动库存
func (s *StockService) AdjustTx(tx *gorm.DB, itemID, companyID, userID string, req AdjustRequest) (*entity.StockMovement, error) {
	return s.adjustTx(tx, itemID, companyID, userID, req)
}

func (s *StockService) adjustTx(tx *gorm.DB, itemID, companyID, userID string, req AdjustRequest) (*entity.StockMovement, error) {
	if req.Quantity == 0 {
		return nil, fmt.Errorf("%w: 调整数量不能为零", ErrInvalidTransition)
	}

	item, err := s.repo.GetItemForUpdate(tx, companyID, itemID)
	if err != nil {
		return nil, err
	}

	quantity := math.Abs(req.Quantity)
	if req.MovementType == entity.MovementTypeAdjustment {
		// 盘点调整保留符号，否则流水重放时方向无从恢复
		quantity = req.Quantity
	}
	delta := entity.MovementEffect(req.MovementType, req.Quantity)

	after := item.QuantityOnHand + delta
	if after < 0 {
		return nil, fmt.Errorf("%w: 需要%.4f, 在库%.4f", ErrInsufficientStock, math.Abs(req.Quantity), item.QuantityOnHand)
	}

	now := time.Now()
	number, err := repository.NextNumber(tx, entity.StockMovement{}.TableName(), "movement_number",
		companyID, repository.PrefixMovement, now)
	if err != nil {
		return nil, err
	}

	unitCost := req.UnitCost
	if unitCost == 0 {
		unitCost = item.CostPrice
	}

	movement := &entity.StockMovement{
		ID:                    uuid.New().String(),
		CompanyID:             companyID,
		InventoryItemID:       item.ID,
		MovementNumber:        number,
		MovementType:          req.MovementType,
		Quantity:              quantity,
		UnitCost:              unitCost,
		TotalCost:             math.Abs(quantity) * unitCost,
		QuantityAfterMovement: after,
		ReferenceType:         req.ReferenceType,
		ReferenceID:           req.ReferenceID,
		Notes:                 req.Notes,
		MovementDate:          now,
		CreatedBy:             userID,
	}
	if err := tx.Create(movement).Error; err != nil {
		return nil, err
	}

	item.QuantityOnHand = after
	if err := tx.Save(item).Error; err != nil {
		return nil, err
	}
	return movement, nil
}

type RestockRequest struct {
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
	UnitCost float64 `json:"unit_cost" binding:"required,gt=0"`
	Notes    string  `json:"notes"`
}

// Restock 采购补货：入库流水之外还更新成本价和补货时间
func (s *StockService) Restock(itemID, companyID, userID string, req RestockRequest) (*entity.StockMovement, error) {
	var movement *entity.StockMovement
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		movement, err = s.adjustTx(tx, itemID, companyID, userID, AdjustRequest{
			Quantity:      req.Quantity,
			MovementType:  entity.MovementTypePurchase,
			UnitCost:      req.UnitCost,
			ReferenceType: "RESTOCK",
			Notes:         req.Notes,
		})
		if err != nil {
			return err
		}
		now := time.Now()
		return tx.Model(&entity.InventoryItem{}).
			Where("company_id = ? AND id = ?", companyID, itemID).
			Updates(map[string]interface{}{
				"cost_price":      req.UnitCost,
				"last_restock_at": now,
			}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("补货失败: %w", err)
	}
	s.invalidateStats(companyID)
	return movement, nil
}

// LowStock 获取需要补货的物料
func (s *StockService) LowStock(companyID string) ([]entity.InventoryItem, error) {
	return s.repo.LowStock(companyID)
}

// Stats 库存统计，短期缓存在redis，写路径变动后失效
func (s *StockService) Stats(ctx context.Context, companyID string) (*repository.InventoryStats, error) {
	key := statsCacheKey(companyID)
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, key).Result(); err == nil {
			var stats repository.InventoryStats
			if json.Unmarshal([]byte(cached), &stats) == nil {
				return &stats, nil
			}
		}
	}

	stats, err := s.repo.Stats(companyID)
	if err != nil {
		return nil, fmt.Errorf("统计库存失败: %w", err)
	}
	if s.rdb != nil {
		if payload, err := json.Marshal(stats); err == nil {
			s.rdb.Set(ctx, key, payload, statsCacheTTL)
		}
	}
	return stats, nil
}

func (s *StockService) ListMovements(companyID string, params repository.MovementListParams) ([]entity.StockMovement, int64, error) {
	return s.repo.ListMovements(companyID, params)
}

// MovementsForReplay 正序流水，供对账与导出
func (s *StockService) MovementsForReplay(companyID, itemID string) ([]entity.StockMovement, error) {
	return s.repo.MovementsForReplay(companyID, itemID)
}

func (s *StockService) invalidateStats(companyID string) {
	if s.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.rdb.Del(ctx, statsCacheKey(companyID))
}

func (s *StockService) publishLowStockIfNeeded(itemID, companyID string) {
	item, err := s.repo.GetItem(companyID, itemID)
	if err != nil || !item.IsTracked || item.QuantityOnHand > item.ReorderPoint {
		return
	}
	s.notifier.Publish(notify.Event{
		Type:      notify.EventLowStock,
		CompanyID: companyID,
		EntityID:  item.ID,
		Message:   fmt.Sprintf("物料 %s 在库 %.2f 低于补货点 %.2f", item.SKU, item.QuantityOnHand, item.ReorderPoint),
	})
}

func statsCacheKey(companyID string) string {
	return "garage:inventory:stats:" + companyID
}
