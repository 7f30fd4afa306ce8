package service

import (
	"fmt"
	"math"
	"time"

	"github.com/bitfantasy/garage-erp/internal/entity"
	"github.com/bitfantasy/garage-erp/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TimeTrackingService 工时台账。每条记录是独立的开始/结束区间，
// 允许多名技师同时各自计时，互不加锁
type TimeTrackingService struct {
	repo *repository.JobCardRepository
	db   *gorm.DB
}

func NewTimeTrackingService(repo *repository.JobCardRepository, db *gorm.DB) *TimeTrackingService {
	return &TimeTrackingService{repo: repo, db: db}
}

type StartTimeEntryRequest struct {
	JobCardItemID string  `json:"job_card_item_id"`
	TechnicianID  string  `json:"technician_id" binding:"required"`
	Description   string  `json:"description"`
	HourlyRate    float64 `json:"hourly_rate"`
	IsBillable    *bool   `json:"is_billable"`
}

// Start 开始计时
func (s *TimeTrackingService) Start(jobCardID, companyID string, req StartTimeEntryRequest) (*entity.JobCardTimeEntry, error) {
	if _, err := s.repo.GetLean(companyID, jobCardID); err != nil {
		return nil, err
	}
	billable := true
	if req.IsBillable != nil {
		billable = *req.IsBillable
	}
	entry := &entity.JobCardTimeEntry{
		ID:            uuid.New().String(),
		CompanyID:     companyID,
		JobCardID:     jobCardID,
		JobCardItemID: req.JobCardItemID,
		TechnicianID:  req.TechnicianID,
		Description:   req.Description,
		StartTime:     time.Now(),
		IsActive:      true,
		HourlyRate:    req.HourlyRate,
		IsBillable:    billable,
	}
	if err := s.db.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("开始计时失败: %w", err)
	}
	return entry, nil
}

// Stop 结束计时并结算工时与成本。
// 只有运行中的记录可以结束，重复结束返回失败信号
func (s *TimeTrackingService) Stop(entryID, companyID string) (*entity.JobCardTimeEntry, error) {
	entry, err := s.repo.GetTimeEntry(companyID, entryID)
	if err != nil {
		return nil, err
	}
	if !entry.IsActive || entry.EndTime != nil {
		return nil, ErrTimeEntryStopped
	}

	now := time.Now()
	entry.EndTime = &now
	entry.IsActive = false
	entry.Hours = ComputeHours(entry.StartTime, now, entry.BreakMinutes)
	entry.TotalCost = RoundMoney(entry.Hours * entry.HourlyRate)

	if err := s.db.Save(entry).Error; err != nil {
		return nil, fmt.Errorf("结束计时失败: %w", err)
	}
	return entry, nil
}

// SetBreak 修改休息时长。运行中直接存，已结束的重新结算
func (s *TimeTrackingService) SetBreak(entryID, companyID string, breakMinutes int) (*entity.JobCardTimeEntry, error) {
	if breakMinutes < 0 {
		return nil, fmt.Errorf("%w: 休息时长不能为负", ErrInvalidTransition)
	}
	entry, err := s.repo.GetTimeEntry(companyID, entryID)
	if err != nil {
		return nil, err
	}
	entry.BreakMinutes = breakMinutes
	if entry.EndTime != nil {
		entry.Hours = ComputeHours(entry.StartTime, *entry.EndTime, breakMinutes)
		entry.TotalCost = RoundMoney(entry.Hours * entry.HourlyRate)
	}
	if err := s.db.Save(entry).Error; err != nil {
		return nil, fmt.Errorf("更新休息时长失败: %w", err)
	}
	return entry, nil
}

// ListByJobCard 获取工单工时记录
func (s *TimeTrackingService) ListByJobCard(jobCardID, companyID string) ([]entity.JobCardTimeEntry, error) {
	return s.repo.ListTimeEntries(companyID, jobCardID)
}

// TotalLaborCost 汇总工单可计费人工成本
func (s *TimeTrackingService) TotalLaborCost(jobCardID, companyID string) (float64, error) {
	return s.repo.SumBillableCost(companyID, jobCardID)
}

// ComputeHours 结算计费工时：区间时长减去休息时间
func ComputeHours(start, end time.Time, breakMinutes int) float64 {
	hours := end.Sub(start).Hours() - float64(breakMinutes)/60
	if hours < 0 {
		return 0
	}
	return hours
}

// RoundMoney 金额保留两位小数
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
