package repository

import (
	"github.com/bitfantasy/garage-erp/internal/entity"
	"gorm.io/gorm"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// GetByID 获取会话及全部子阶段
func (r *SessionRepository) GetByID(companyID, id string) (*entity.GarageSession, error) {
	var session entity.GarageSession
	err := r.db.Where("company_id = ? AND id = ?", companyID, id).
		Preload("CustomerRequest").
		Preload("Inspection").
		Preload("TestDrive").
		Preload("JobCard").
		Preload("Photos").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetLean 只取会话主行，不带子阶段
func (r *SessionRepository) GetLean(companyID, id string) (*entity.GarageSession, error) {
	var session entity.GarageSession
	err := r.db.Where("company_id = ? AND id = ?", companyID, id).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

type SessionListParams struct {
	BranchID string
	ClientID string
	Status   string
	Keyword  string
	Page     int
	Size     int
}

func (r *SessionRepository) List(companyID string, params SessionListParams) ([]entity.GarageSession, int64, error) {
	query := r.db.Model(&entity.GarageSession{}).Where("company_id = ?", companyID)
	if params.BranchID != "" {
		query = query.Where("branch_id = ?", params.BranchID)
	}
	if params.ClientID != "" {
		query = query.Where("client_id = ?", params.ClientID)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Keyword != "" {
		query = query.Where("session_number ILIKE ?", "%"+params.Keyword+"%")
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var sessions []entity.GarageSession
	err := query.Preload("JobCard").Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&sessions).Error
	return sessions, total, err
}

// Delete 管理员删除会话，连带删除全部子阶段。正常流程不删会话
func (r *SessionRepository) Delete(companyID, id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var session entity.GarageSession
		if err := tx.Where("company_id = ? AND id = ?", companyID, id).First(&session).Error; err != nil {
			return err
		}
		where := "company_id = ? AND session_id = ?"
		if err := tx.Where(where, companyID, id).Delete(&entity.CustomerRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Where(where, companyID, id).Delete(&entity.Inspection{}).Error; err != nil {
			return err
		}
		if err := tx.Where(where, companyID, id).Delete(&entity.TestDrive{}).Error; err != nil {
			return err
		}
		if err := tx.Where(where, companyID, id).Delete(&entity.SessionPhoto{}).Error; err != nil {
			return err
		}
		var jc entity.JobCard
		if err := tx.Where(where, companyID, id).First(&jc).Error; err == nil {
			jcWhere := "company_id = ? AND job_card_id = ?"
			tx.Where(jcWhere, companyID, jc.ID).Delete(&entity.JobCardItem{})
			tx.Where(jcWhere, companyID, jc.ID).Delete(&entity.JobCardComment{})
			tx.Where(jcWhere, companyID, jc.ID).Delete(&entity.JobCardTimeEntry{})
			tx.Where(jcWhere, companyID, jc.ID).Delete(&entity.JobCardPart{})
			if err := tx.Delete(&jc).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&session).Error
	})
}

// DB 返回底层db用于事务
func (r *SessionRepository) DB() *gorm.DB {
	return r.db
}
