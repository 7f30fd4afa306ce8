package handler

import (
	"strconv"

	"github.com/bitfantasy/garage-erp/internal/repository"
	"github.com/bitfantasy/garage-erp/internal/service"
	"github.com/gin-gonic/gin"
)

// SessionHandler 服务会话处理器
type SessionHandler struct {
	svc *service.SessionService
}

func NewSessionHandler(svc *service.SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// Create 车辆进场
func (h *SessionHandler) Create(c *gin.Context) {
	var req service.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	session, err := h.svc.Create(req, GetCompanyID(c), GetUserID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, session)
}

// List 会话列表
func (h *SessionHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.SessionListParams{
		BranchID: c.Query("branch_id"),
		ClientID: c.Query("client_id"),
		Status:   c.Query("status"),
		Keyword:  c.Query("keyword"),
		Page:     page,
		Size:     pageSize,
	}

	views, total, err := h.svc.List(GetCompanyID(c), params)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, NewListResponse(views, total, page, pageSize))
}

// Get 会话详情
func (h *SessionHandler) Get(c *gin.Context) {
	view, err := h.svc.Get(c.Param("id"), GetCompanyID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, view)
}

// AdvanceStatus 推进会话状态
func (h *SessionHandler) AdvanceStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	session, err := h.svc.AdvanceStatus(c.Param("id"), GetCompanyID(c), req.Status)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, session)
}

// CheckOut 交车
func (h *SessionHandler) CheckOut(c *gin.Context) {
	var req struct {
		MileageOut int `json:"mileage_out"`
	}
	// 交车允许空body
	c.ShouldBindJSON(&req)

	session, err := h.svc.CheckOut(c.Param("id"), GetCompanyID(c), req.MileageOut)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, session)
}

// Delete 删除会话
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id"), GetCompanyID(c)); err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, nil)
}

// CreateCustomerRequest 录入客户需求
func (h *SessionHandler) CreateCustomerRequest(c *gin.Context) {
	var req service.CreateCustomerRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cr, err := h.svc.CreateCustomerRequest(c.Param("id"), GetCompanyID(c), GetUserID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, cr)
}

// UpdateCustomerRequest 更新客户需求
func (h *SessionHandler) UpdateCustomerRequest(c *gin.Context) {
	var req service.UpdateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cr, err := h.svc.UpdateCustomerRequest(c.Param("id"), GetCompanyID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, cr)
}

// CreateInspection 开始车辆检查
func (h *SessionHandler) CreateInspection(c *gin.Context) {
	var req service.CreateInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	inspection, err := h.svc.CreateInspection(c.Param("id"), GetCompanyID(c), GetUserID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, inspection)
}

// UpdateInspection 更新检查记录
func (h *SessionHandler) UpdateInspection(c *gin.Context) {
	var req service.UpdateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	inspection, err := h.svc.UpdateInspection(c.Param("id"), GetCompanyID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, inspection)
}

// CreateTestDrive 开始试车
func (h *SessionHandler) CreateTestDrive(c *gin.Context) {
	var req service.CreateTestDriveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	testDrive, err := h.svc.CreateTestDrive(c.Param("id"), GetCompanyID(c), GetUserID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, testDrive)
}

// UpdateTestDrive 更新试车记录
func (h *SessionHandler) UpdateTestDrive(c *gin.Context) {
	var req service.UpdateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	testDrive, err := h.svc.UpdateTestDrive(c.Param("id"), GetCompanyID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, testDrive)
}

// AddPhoto 登记会话照片
func (h *SessionHandler) AddPhoto(c *gin.Context) {
	var req service.AddPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	photo, err := h.svc.AddPhoto(c.Param("id"), GetCompanyID(c), GetUserID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, photo)
}

func parsePriority(c *gin.Context) *int {
	if p := c.Query("priority"); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			return &v
		}
	}
	return nil
}
