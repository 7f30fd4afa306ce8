package handler

import (
	"fmt"
	"net/url"

	"github.com/bitfantasy/garage-erp/internal/export"
	"github.com/bitfantasy/garage-erp/internal/repository"
	"github.com/bitfantasy/garage-erp/internal/service"
	"github.com/gin-gonic/gin"
)

// InventoryHandler 库存处理器
type InventoryHandler struct {
	svc *service.StockService
}

func NewInventoryHandler(svc *service.StockService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// CreateItem 建立库存物料
func (h *InventoryHandler) CreateItem(c *gin.Context) {
	var req service.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	item, err := h.svc.CreateItem(req, GetCompanyID(c), GetUserID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, item)
}

// UpdateItem 更新物料档案
func (h *InventoryHandler) UpdateItem(c *gin.Context) {
	var req service.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	item, err := h.svc.UpdateItem(c.Param("id"), GetCompanyID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, item)
}

// GetItem 物料详情
func (h *InventoryHandler) GetItem(c *gin.Context) {
	item, err := h.svc.GetItem(c.Param("id"), GetCompanyID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, item)
}

// ListItems 物料列表
func (h *InventoryHandler) ListItems(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.InventoryListParams{
		Category: c.Query("category"),
		Keyword:  c.Query("keyword"),
		LowStock: c.Query("low_stock") == "true",
		Inactive: c.Query("inactive") == "true",
		Page:     page,
		Size:     pageSize,
	}

	items, total, err := h.svc.ListItems(GetCompanyID(c), params)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, NewListResponse(items, total, page, pageSize))
}

// Adjust 库存调整
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var req service.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	movement, err := h.svc.Adjust(c.Param("id"), GetCompanyID(c), GetUserID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, movement)
}

// Restock 采购补货
func (h *InventoryHandler) Restock(c *gin.Context) {
	var req service.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	movement, err := h.svc.Restock(c.Param("id"), GetCompanyID(c), GetUserID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, movement)
}

// LowStock 待补货物料
func (h *InventoryHandler) LowStock(c *gin.Context) {
	items, err := h.svc.LowStock(GetCompanyID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, items)
}

// Stats 库存统计
func (h *InventoryHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), GetCompanyID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, stats)
}

// ListMovements 流水列表
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.MovementListParams{
		InventoryItemID: c.Query("inventory_item_id"),
		MovementType:    c.Query("movement_type"),
		Page:            page,
		Size:            pageSize,
	}

	movements, total, err := h.svc.ListMovements(GetCompanyID(c), params)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, NewListResponse(movements, total, page, pageSize))
}

// ExportLedger 导出物料流水台账xlsx
func (h *InventoryHandler) ExportLedger(c *gin.Context) {
	companyID := GetCompanyID(c)
	itemID := c.Param("id")

	item, err := h.svc.GetItem(itemID, companyID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	movements, err := h.svc.MovementsForReplay(companyID, itemID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	f, filename, err := export.MovementLedger(item, movements)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, url.PathEscape(filename)))
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write xlsx: "+err.Error())
	}
}
