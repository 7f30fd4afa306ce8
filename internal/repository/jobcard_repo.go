package repository

import (
	"github.com/bitfantasy/garage-erp/internal/entity"
	"gorm.io/gorm"
)

type JobCardRepository struct {
	db *gorm.DB
}

func NewJobCardRepository(db *gorm.DB) *JobCardRepository {
	return &JobCardRepository{db: db}
}

// GetByID 获取工单及全部明细
func (r *JobCardRepository) GetByID(companyID, id string) (*entity.JobCard, error) {
	var card entity.JobCard
	err := r.db.Where("company_id = ? AND id = ?", companyID, id).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, created_at ASC")
		}).
		Preload("Parts").
		Preload("TimeEntries").
		First(&card).Error
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// GetLean 只取工单主行
func (r *JobCardRepository) GetLean(companyID, id string) (*entity.JobCard, error) {
	var card entity.JobCard
	err := r.db.Where("company_id = ? AND id = ?", companyID, id).First(&card).Error
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// GetBySession 获取会话对应的工单
func (r *JobCardRepository) GetBySession(companyID, sessionID string) (*entity.JobCard, error) {
	var card entity.JobCard
	err := r.db.Where("company_id = ? AND session_id = ?", companyID, sessionID).First(&card).Error
	if err != nil {
		return nil, err
	}
	return &card, nil
}

type JobCardListParams struct {
	Status   string
	Priority *int
	Keyword  string
	Page     int
	Size     int
}

func (r *JobCardRepository) List(companyID string, params JobCardListParams) ([]entity.JobCard, int64, error) {
	query := r.db.Model(&entity.JobCard{}).Where("company_id = ?", companyID)
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Priority != nil {
		query = query.Where("priority = ?", *params.Priority)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("job_card_number ILIKE ? OR title ILIKE ?", kw, kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var cards []entity.JobCard
	err := query.Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&cards).Error
	return cards, total, err
}

// GetItem 获取工单项
func (r *JobCardRepository) GetItem(companyID, jobCardID, itemID string) (*entity.JobCardItem, error) {
	var item entity.JobCardItem
	err := r.db.Where("company_id = ? AND job_card_id = ? AND id = ?", companyID, jobCardID, itemID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SumItemHours 汇总工单全部项的实际工时
func (r *JobCardRepository) SumItemHours(tx *gorm.DB, companyID, jobCardID string) (float64, error) {
	var result struct{ Total float64 }
	err := tx.Raw(`
		SELECT COALESCE(SUM(actual_hours), 0) as total
		FROM garage_job_card_items
		WHERE company_id = ? AND job_card_id = ?
	`, companyID, jobCardID).Scan(&result).Error
	return result.Total, err
}

// CountOpenItems 统计未完成的工单项数量，tx可以是事务句柄
func (r *JobCardRepository) CountOpenItems(tx *gorm.DB, companyID, jobCardID string) (int64, error) {
	var count int64
	err := tx.Model(&entity.JobCardItem{}).
		Where("company_id = ? AND job_card_id = ? AND status <> ?", companyID, jobCardID, entity.StageCompleted).
		Count(&count).Error
	return count, err
}

// GetComment 获取工单评论
func (r *JobCardRepository) GetComment(companyID, commentID string) (*entity.JobCardComment, error) {
	var comment entity.JobCardComment
	err := r.db.Where("company_id = ? AND id = ?", companyID, commentID).First(&comment).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// CountReplies 统计评论的直接回复数
func (r *JobCardRepository) CountReplies(companyID, commentID string) (int64, error) {
	var count int64
	err := r.db.Model(&entity.JobCardComment{}).
		Where("company_id = ? AND parent_comment_id = ?", companyID, commentID).
		Count(&count).Error
	return count, err
}

// ListComments 获取工单顶层评论及一级回复
func (r *JobCardRepository) ListComments(companyID, jobCardID string) ([]entity.JobCardComment, error) {
	var comments []entity.JobCardComment
	err := r.db.Where("company_id = ? AND job_card_id = ? AND (parent_comment_id IS NULL OR parent_comment_id = '')",
		companyID, jobCardID).
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}

// GetTimeEntry 获取工时记录
func (r *JobCardRepository) GetTimeEntry(companyID, entryID string) (*entity.JobCardTimeEntry, error) {
	var entry entity.JobCardTimeEntry
	err := r.db.Where("company_id = ? AND id = ?", companyID, entryID).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListTimeEntries 获取工单工时记录，运行中的在前
func (r *JobCardRepository) ListTimeEntries(companyID, jobCardID string) ([]entity.JobCardTimeEntry, error) {
	var entries []entity.JobCardTimeEntry
	err := r.db.Where("company_id = ? AND job_card_id = ?", companyID, jobCardID).
		Order("is_active DESC, start_time DESC").
		Find(&entries).Error
	return entries, err
}

// SumBillableCost 汇总工单可计费工时成本
func (r *JobCardRepository) SumBillableCost(companyID, jobCardID string) (float64, error) {
	var result struct{ Total float64 }
	err := r.db.Raw(`
		SELECT COALESCE(SUM(total_cost), 0) as total
		FROM garage_job_card_time_entries
		WHERE company_id = ? AND job_card_id = ? AND is_billable = true
	`, companyID, jobCardID).Scan(&result).Error
	return result.Total, err
}

// GetPart 获取工单配件
func (r *JobCardRepository) GetPart(companyID, jobCardID, partID string) (*entity.JobCardPart, error) {
	var part entity.JobCardPart
	err := r.db.Where("company_id = ? AND job_card_id = ? AND id = ?", companyID, jobCardID, partID).
		First(&part).Error
	if err != nil {
		return nil, err
	}
	return &part, nil
}

// SumPartTotals 汇总工单配件成本与售价
func (r *JobCardRepository) SumPartTotals(companyID, jobCardID string) (cost float64, price float64, err error) {
	var result struct {
		Cost  float64
		Price float64
	}
	err = r.db.Raw(`
		SELECT COALESCE(SUM(total_cost), 0) as cost, COALESCE(SUM(total_price), 0) as price
		FROM garage_job_card_parts
		WHERE company_id = ? AND job_card_id = ?
	`, companyID, jobCardID).Scan(&result).Error
	return result.Cost, result.Price, err
}

// DB 返回底层db用于事务
func (r *JobCardRepository) DB() *gorm.DB {
	return r.db
}
