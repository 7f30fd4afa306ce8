package handler

import (
	"github.com/bitfantasy/garage-erp/internal/repository"
	"github.com/bitfantasy/garage-erp/internal/service"
	"github.com/gin-gonic/gin"
)

// JobCardHandler 维修工单处理器
type JobCardHandler struct {
	svc     *service.JobCardService
	timeSvc *service.TimeTrackingService
}

func NewJobCardHandler(svc *service.JobCardService, timeSvc *service.TimeTrackingService) *JobCardHandler {
	return &JobCardHandler{svc: svc, timeSvc: timeSvc}
}

// Create 创建工单
func (h *JobCardHandler) Create(c *gin.Context) {
	var req service.CreateJobCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	card, err := h.svc.Create(req, GetCompanyID(c), GetUserID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, card)
}

// List 工单列表
func (h *JobCardHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.JobCardListParams{
		Status:   c.Query("status"),
		Priority: parsePriority(c),
		Keyword:  c.Query("keyword"),
		Page:     page,
		Size:     pageSize,
	}

	cards, total, err := h.svc.List(GetCompanyID(c), params)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, NewListResponse(cards, total, page, pageSize))
}

// Get 工单详情
func (h *JobCardHandler) Get(c *gin.Context) {
	card, err := h.svc.Get(c.Param("id"), GetCompanyID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, card)
}

// Approve 内部批准
func (h *JobCardHandler) Approve(c *gin.Context) {
	var req service.ApproveRequest
	c.ShouldBindJSON(&req)

	card, err := h.svc.Approve(c.Param("id"), GetCompanyID(c), GetUserID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, card)
}

// Authorize 客户授权
func (h *JobCardHandler) Authorize(c *gin.Context) {
	var req service.AuthorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	card, err := h.svc.AuthorizeByCustomer(c.Param("id"), GetCompanyID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, card)
}

// StartWork 开工
func (h *JobCardHandler) StartWork(c *gin.Context) {
	card, err := h.svc.StartWork(c.Param("id"), GetCompanyID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, card)
}

// WaitParts 等配件
func (h *JobCardHandler) WaitParts(c *gin.Context) {
	card, err := h.svc.MoveToWaitingParts(c.Param("id"), GetCompanyID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, card)
}

// ResumeWork 恢复施工
func (h *JobCardHandler) ResumeWork(c *gin.Context) {
	card, err := h.svc.ResumeWork(c.Param("id"), GetCompanyID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, card)
}

// QualityCheck 进入质检
func (h *JobCardHandler) QualityCheck(c *gin.Context) {
	card, err := h.svc.MoveToQualityCheck(c.Param("id"), GetCompanyID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, card)
}

// Complete 完工
func (h *JobCardHandler) Complete(c *gin.Context) {
	card, err := h.svc.CompleteWork(c.Param("id"), GetCompanyID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, card)
}

// Summary 工单费用汇总
func (h *JobCardHandler) Summary(c *gin.Context) {
	summary, err := h.svc.Summary(c.Param("id"), GetCompanyID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, summary)
}

// AddItem 追加工单项
func (h *JobCardHandler) AddItem(c *gin.Context) {
	var req service.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	item, err := h.svc.AddItem(c.Param("id"), GetCompanyID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, item)
}

// StartItem 工单项开工
func (h *JobCardHandler) StartItem(c *gin.Context) {
	var req struct {
		TechnicianID string `json:"technician_id"`
	}
	c.ShouldBindJSON(&req)

	item, err := h.svc.StartItem(c.Param("id"), c.Param("itemId"), GetCompanyID(c), req.TechnicianID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, item)
}

// CompleteItem 工单项完工
func (h *JobCardHandler) CompleteItem(c *gin.Context) {
	var req service.CompleteItemRequest
	c.ShouldBindJSON(&req)

	item, err := h.svc.CompleteItem(c.Param("id"), c.Param("itemId"), GetCompanyID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, item)
}

// QualityCheckItem 工单项质检
func (h *JobCardHandler) QualityCheckItem(c *gin.Context) {
	var req service.QualityCheckItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	item, err := h.svc.QualityCheckItem(c.Param("id"), c.Param("itemId"), GetCompanyID(c), GetUserID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, item)
}

// AddComment 追加评论
func (h *JobCardHandler) AddComment(c *gin.Context) {
	var req service.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	comment, err := h.svc.AddComment(c.Param("id"), GetCompanyID(c), GetUserID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, comment)
}

// ListComments 评论列表
func (h *JobCardHandler) ListComments(c *gin.Context) {
	comments, err := h.svc.ListComments(c.Param("id"), GetCompanyID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, comments)
}

// DeleteComment 删除评论
func (h *JobCardHandler) DeleteComment(c *gin.Context) {
	if err := h.svc.DeleteComment(c.Param("commentId"), GetCompanyID(c)); err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, nil)
}

// StartTimer 开始计时
func (h *JobCardHandler) StartTimer(c *gin.Context) {
	var req service.StartTimeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entry, err := h.timeSvc.Start(c.Param("id"), GetCompanyID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, entry)
}

// StopTimer 结束计时
func (h *JobCardHandler) StopTimer(c *gin.Context) {
	entry, err := h.timeSvc.Stop(c.Param("entryId"), GetCompanyID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, entry)
}

// SetBreak 修改休息时长
func (h *JobCardHandler) SetBreak(c *gin.Context) {
	var req struct {
		BreakMinutes *int `json:"break_minutes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entry, err := h.timeSvc.SetBreak(c.Param("entryId"), GetCompanyID(c), *req.BreakMinutes)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, entry)
}

// ListTimeEntries 工时记录列表
func (h *JobCardHandler) ListTimeEntries(c *gin.Context) {
	entries, err := h.timeSvc.ListByJobCard(c.Param("id"), GetCompanyID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, entries)
}

// LaborCost 可计费人工成本
func (h *JobCardHandler) LaborCost(c *gin.Context) {
	total, err := h.timeSvc.TotalLaborCost(c.Param("id"), GetCompanyID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, gin.H{"labor_cost": total})
}

// AddPart 追加配件
func (h *JobCardHandler) AddPart(c *gin.Context) {
	var req service.AddPartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	part, err := h.svc.AddPart(c.Param("id"), GetCompanyID(c), GetUserID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, part)
}

// UpdatePart 更新配件
func (h *JobCardHandler) UpdatePart(c *gin.Context) {
	var req service.UpdatePartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	part, err := h.svc.UpdatePart(c.Param("id"), c.Param("partId"), GetCompanyID(c), GetUserID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, part)
}

// DeletePart 删除配件
func (h *JobCardHandler) DeletePart(c *gin.Context) {
	if err := h.svc.DeletePart(c.Param("id"), c.Param("partId"), GetCompanyID(c), GetUserID(c)); err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, nil)
}
