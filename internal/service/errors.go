package service

import "errors"

// 业务错误。NotFound 统一用 gorm.ErrRecordNotFound 表达，
// 编号撞号由服务内部换号重试，不对外暴露
var (
	// ErrInvalidTransition 当前状态不允许该转移
	ErrInvalidTransition = errors.New("当前状态不允许该操作")
	// ErrSessionClosed 会话已关闭，子阶段不可再变更
	ErrSessionClosed = errors.New("会话已关闭")
	// ErrItemNotCompleted 质检前工单项必须已完成
	ErrItemNotCompleted = errors.New("工单项尚未完成，不能质检")
	// ErrNotApproved 工单未同时获得内部批准与客户授权
	ErrNotApproved = errors.New("工单需要内部批准和客户授权后才能开工")
	// ErrTimeEntryStopped 工时记录已结束或不存在运行中区间
	ErrTimeEntryStopped = errors.New("工时记录不在运行中")
	// ErrCommentHasReplies 评论存在回复时禁止删除
	ErrCommentHasReplies = errors.New("评论存在回复，不能删除")
	// ErrInsufficientStock 出库数量超过在库数量
	ErrInsufficientStock = errors.New("库存不足")
)
