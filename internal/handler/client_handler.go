package handler

import (
	"github.com/bitfantasy/garage-erp/internal/repository"
	"github.com/bitfantasy/garage-erp/internal/service"
	"github.com/gin-gonic/gin"
)

// ClientHandler 客户与车辆处理器
type ClientHandler struct {
	svc *service.ClientService
}

func NewClientHandler(svc *service.ClientService) *ClientHandler {
	return &ClientHandler{svc: svc}
}

// Create 创建客户
func (h *ClientHandler) Create(c *gin.Context) {
	var req service.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	client, err := h.svc.Create(req, GetCompanyID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, client)
}

// Update 更新客户
func (h *ClientHandler) Update(c *gin.Context) {
	var req service.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	client, err := h.svc.Update(c.Param("id"), GetCompanyID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, client)
}

// Get 客户详情
func (h *ClientHandler) Get(c *gin.Context) {
	client, err := h.svc.Get(c.Param("id"), GetCompanyID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, client)
}

// List 客户列表
func (h *ClientHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.ClientListParams{
		Keyword: c.Query("keyword"),
		Page:    page,
		Size:    pageSize,
	}

	clients, total, err := h.svc.List(GetCompanyID(c), params)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, NewListResponse(clients, total, page, pageSize))
}

// CreateVehicle 创建车辆
func (h *ClientHandler) CreateVehicle(c *gin.Context) {
	var req service.CreateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	vehicle, err := h.svc.CreateVehicle(req, GetCompanyID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, vehicle)
}

// GetVehicle 车辆详情
func (h *ClientHandler) GetVehicle(c *gin.Context) {
	vehicle, err := h.svc.GetVehicle(c.Param("id"), GetCompanyID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, vehicle)
}

// ListVehicles 客户车辆列表
func (h *ClientHandler) ListVehicles(c *gin.Context) {
	vehicles, err := h.svc.ListVehicles(c.Param("id"), GetCompanyID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, vehicles)
}
