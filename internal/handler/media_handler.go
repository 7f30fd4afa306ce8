package handler

import (
	"github.com/bitfantasy/garage-erp/internal/service"
	"github.com/gin-gonic/gin"
)

// MediaHandler 照片与附件处理器。上传走预签名URL直传，
// 上传完成后客户端回调登记对象key
type MediaHandler struct {
	svc        *service.MediaService
	sessionSvc *service.SessionService
}

func NewMediaHandler(svc *service.MediaService, sessionSvc *service.SessionService) *MediaHandler {
	return &MediaHandler{svc: svc, sessionSvc: sessionSvc}
}

// PresignUpload 生成上传URL
func (h *MediaHandler) PresignUpload(c *gin.Context) {
	var req struct {
		FileName string `json:"file_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	objectName := service.ObjectName(c.Param("id"), req.FileName)
	uploadURL, err := h.svc.PresignUpload(c.Request.Context(), objectName)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{
		"object_key": objectName,
		"upload_url": uploadURL,
	})
}

// ConfirmUpload 上传完成回调：校验对象存在后登记照片
func (h *MediaHandler) ConfirmUpload(c *gin.Context) {
	var req service.AddPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	exists, err := h.svc.Exists(c.Request.Context(), req.ObjectKey)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	if !exists {
		BadRequest(c, "Object has not been uploaded")
		return
	}

	photo, err := h.sessionSvc.AddPhoto(c.Param("id"), GetCompanyID(c), GetUserID(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, photo)
}

// PresignDownload 生成下载URL
func (h *MediaHandler) PresignDownload(c *gin.Context) {
	objectKey := c.Query("object_key")
	if objectKey == "" {
		BadRequest(c, "object_key is required")
		return
	}

	downloadURL, err := h.svc.PresignDownload(c.Request.Context(), objectKey)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, gin.H{"download_url": downloadURL})
}

// Delete 删除对象
func (h *MediaHandler) Delete(c *gin.Context) {
	objectKey := c.Query("object_key")
	if objectKey == "" {
		BadRequest(c, "object_key is required")
		return
	}

	if err := h.svc.Delete(c.Request.Context(), objectKey); err != nil {
		InternalError(c, err.Error())
		return
	}
	Success(c, nil)
}
