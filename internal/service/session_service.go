package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/garage-erp/internal/entity"
	"github.com/bitfantasy/garage-erp/internal/notify"
	"github.com/bitfantasy/garage-erp/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 编号撞号重试次数
const numberRetries = 3

// SessionService 服务会话工作流：进场、子阶段推进、交车
type SessionService struct {
	repo       *repository.SessionRepository
	clientRepo *repository.ClientRepository
	db         *gorm.DB
	notifier   notify.Notifier
}

func NewSessionService(repo *repository.SessionRepository, clientRepo *repository.ClientRepository, db *gorm.DB, notifier notify.Notifier) *SessionService {
	return &SessionService{repo: repo, clientRepo: clientRepo, db: db, notifier: notifier}
}

type CreateSessionRequest struct {
	BranchID        string `json:"branch_id"`
	ClientID        string `json:"client_id" binding:"required"`
	ClientVehicleID string `json:"client_vehicle_id" binding:"required"`
	MileageIn       int    `json:"mileage_in"`
	AdvisorID       string `json:"advisor_id"`
	Notes           string `json:"notes"`
}

// Create 车辆进场，分配当日会话编号，初始状态 CHECKED_IN
func (s *SessionService) Create(req CreateSessionRequest, companyID, userID string) (*entity.GarageSession, error) {
	now := time.Now()
	session := &entity.GarageSession{
		ID:              uuid.New().String(),
		CompanyID:       companyID,
		BranchID:        req.BranchID,
		ClientID:        req.ClientID,
		ClientVehicleID: req.ClientVehicleID,
		Status:          entity.SessionStatusCheckedIn,
		MileageIn:       req.MileageIn,
		CheckInAt:       &now,
		AdvisorID:       req.AdvisorID,
		Notes:           req.Notes,
		CreatedBy:       userID,
	}

	// 编号分配与插入在同一事务内完成；并发撞号时换号重试
	var lastErr error
	for i := 0; i < numberRetries; i++ {
		lastErr = s.db.Transaction(func(tx *gorm.DB) error {
			number, err := repository.NextNumber(tx, session.TableName(), "session_number",
				companyID, repository.PrefixSession, now)
			if err != nil {
				return err
			}
			session.SessionNumber = number
			return tx.Create(session).Error
		})
		if lastErr == nil {
			break
		}
		if !errors.Is(lastErr, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("创建会话失败: %w", lastErr)
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("创建会话失败: %w", lastErr)
	}

	s.notifier.Publish(notify.Event{
		Type:      notify.EventSessionCreated,
		CompanyID: companyID,
		EntityID:  session.ID,
		Number:    session.SessionNumber,
		Status:    session.Status,
		Message:   "车辆已进场",
	})
	return session, nil
}

// AdvanceStatus 推进会话状态。只允许向前，不允许回退；
// 目标状态不比当前靠后时不做任何修改
func (s *SessionService) AdvanceStatus(sessionID, companyID, newStatus string) (*entity.GarageSession, error) {
	if entity.SessionStatusRank(newStatus) < 0 {
		return nil, fmt.Errorf("%w: 未知状态 %s", ErrInvalidTransition, newStatus)
	}
	session, err := s.repo.GetLean(companyID, sessionID)
	if err != nil {
		return nil, err
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		return advanceSessionTx(tx, session, newStatus)
	})
	if err != nil {
		return nil, fmt.Errorf("推进会话状态失败: %w", err)
	}
	s.publishStatus(session)
	return session, nil
}

// advanceSessionTx 在调用方事务内向前推进会话状态。
// 行锁重读后再做序比较：调用方持有的快照可能已过时，
// 两个子阶段并发推进时不能让低序里程碑覆盖高序里程碑
func advanceSessionTx(tx *gorm.DB, session *entity.GarageSession, newStatus string) error {
	var current entity.GarageSession
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "company_id", "status").
		Where("company_id = ? AND id = ?", session.CompanyID, session.ID).
		First(&current).Error
	if err != nil {
		return err
	}
	if !entity.SessionStatusAdvances(current.Status, newStatus) {
		session.Status = current.Status
		return nil
	}
	session.Status = newStatus
	return tx.Model(&entity.GarageSession{}).
		Where("company_id = ? AND id = ?", session.CompanyID, session.ID).
		Update("status", newStatus).Error
}

// CheckOut 交车：状态强制 CLOSED。重复调用不覆盖首次的交车时间
func (s *SessionService) CheckOut(sessionID, companyID string, mileageOut int) (*entity.GarageSession, error) {
	session, err := s.repo.GetLean(companyID, sessionID)
	if err != nil {
		return nil, err
	}

	session.Status = entity.SessionStatusClosed
	if mileageOut > 0 {
		session.MileageOut = mileageOut
	}
	if session.CheckOutAt == nil {
		now := time.Now()
		session.CheckOutAt = &now
	}
	if err := s.db.Save(session).Error; err != nil {
		return nil, fmt.Errorf("交车失败: %w", err)
	}

	s.notifier.Publish(notify.Event{
		Type:      notify.EventSessionCheckedOut,
		CompanyID: companyID,
		EntityID:  session.ID,
		Number:    session.SessionNumber,
		Status:    session.Status,
		Message:   "车辆已交付",
	})
	return session, nil
}

// SessionView 会话展示投影：客户和车辆名允许悬空外键，
// 查不到时用占位文案，不让展示层碰到空指针
type SessionView struct {
	entity.GarageSession
	ClientName         string `json:"client_name"`
	VehicleName        string `json:"vehicle_name"`
	HasCustomerRequest bool   `json:"has_customer_request"`
	HasInspection      bool   `json:"has_inspection"`
	HasTestDrive       bool   `json:"has_test_drive"`
	HasJobCard         bool   `json:"has_job_card"`
}

// Get 获取会话详情投影
func (s *SessionService) Get(sessionID, companyID string) (*SessionView, error) {
	session, err := s.repo.GetByID(companyID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.project(session), nil
}

// List 分页获取会话投影列表
func (s *SessionService) List(companyID string, params repository.SessionListParams) ([]SessionView, int64, error) {
	sessions, total, err := s.repo.List(companyID, params)
	if err != nil {
		return nil, 0, err
	}
	views := make([]SessionView, 0, len(sessions))
	for i := range sessions {
		views = append(views, *s.project(&sessions[i]))
	}
	return views, total, nil
}

func (s *SessionService) project(session *entity.GarageSession) *SessionView {
	view := &SessionView{
		GarageSession:      *session,
		ClientName:         "Unknown Client",
		VehicleName:        "Unknown Vehicle",
		HasCustomerRequest: session.CustomerRequest != nil,
		HasInspection:      session.Inspection != nil,
		HasTestDrive:       session.TestDrive != nil,
		HasJobCard:         session.JobCard != nil,
	}
	if client, err := s.clientRepo.GetByID(session.CompanyID, session.ClientID); err == nil {
		view.ClientName = client.Name
	}
	if vehicle, err := s.clientRepo.GetVehicle(session.CompanyID, session.ClientVehicleID); err == nil {
		if name := vehicle.DisplayName(); name != "" {
			view.VehicleName = name
		}
	}
	return view
}

// Delete 管理员删除会话。正常流程不删，仅作兜底
func (s *SessionService) Delete(sessionID, companyID string) error {
	return s.repo.Delete(companyID, sessionID)
}

type CreateCustomerRequestRequest struct {
	Description string `json:"description" binding:"required"`
	Priority    int    `json:"priority"`
}

// CreateCustomerRequest 录入客户需求，并把会话推进到 CUSTOMER_REQUEST
func (s *SessionService) CreateCustomerRequest(sessionID, companyID, userID string, req CreateCustomerRequestRequest) (*entity.CustomerRequest, error) {
	session, err := s.repo.GetLean(companyID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == entity.SessionStatusClosed {
		return nil, ErrSessionClosed
	}

	cr := &entity.CustomerRequest{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		SessionID:   sessionID,
		Status:      entity.StagePending,
		Description: req.Description,
		Priority:    req.Priority,
		CreatedBy:   userID,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(cr).Error; err != nil {
			return err
		}
		return advanceSessionTx(tx, session, entity.SessionStatusCustomerRequest)
	})
	if err != nil {
		return nil, fmt.Errorf("创建客户需求失败: %w", err)
	}
	s.publishStatus(session)
	return cr, nil
}

type UpdateStageRequest struct {
	Status   string `json:"status"`
	Findings string `json:"findings"`
	Priority *int   `json:"priority"`
}

// UpdateCustomerRequest 更新客户需求。会话关闭后不可再改
func (s *SessionService) UpdateCustomerRequest(sessionID, companyID string, req UpdateStageRequest) (*entity.CustomerRequest, error) {
	session, err := s.repo.GetLean(companyID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == entity.SessionStatusClosed {
		return nil, ErrSessionClosed
	}
	var cr entity.CustomerRequest
	if err := s.db.Where("company_id = ? AND session_id = ?", companyID, sessionID).First(&cr).Error; err != nil {
		return nil, err
	}
	applyStageUpdate(&cr.Status, &cr.Findings, &cr.Priority, &cr.CompletedAt, req)
	if err := s.db.Save(&cr).Error; err != nil {
		return nil, fmt.Errorf("更新客户需求失败: %w", err)
	}
	return &cr, nil
}

type CreateInspectionRequest struct {
	Findings    string `json:"findings"`
	Priority    int    `json:"priority"`
	InspectorID string `json:"inspector_id"`
}

// CreateInspection 开始车辆检查，并把会话推进到 INSPECTION
func (s *SessionService) CreateInspection(sessionID, companyID, userID string, req CreateInspectionRequest) (*entity.Inspection, error) {
	session, err := s.repo.GetLean(companyID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == entity.SessionStatusClosed {
		return nil, ErrSessionClosed
	}

	inspection := &entity.Inspection{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		SessionID:   sessionID,
		Status:      entity.StagePending,
		Findings:    req.Findings,
		Priority:    req.Priority,
		InspectorID: req.InspectorID,
		CreatedBy:   userID,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(inspection).Error; err != nil {
			return err
		}
		return advanceSessionTx(tx, session, entity.SessionStatusInspection)
	})
	if err != nil {
		return nil, fmt.Errorf("创建检查记录失败: %w", err)
	}
	s.publishStatus(session)
	return inspection, nil
}

// UpdateInspection 更新检查记录
func (s *SessionService) UpdateInspection(sessionID, companyID string, req UpdateStageRequest) (*entity.Inspection, error) {
	session, err := s.repo.GetLean(companyID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == entity.SessionStatusClosed {
		return nil, ErrSessionClosed
	}
	var inspection entity.Inspection
	if err := s.db.Where("company_id = ? AND session_id = ?", companyID, sessionID).First(&inspection).Error; err != nil {
		return nil, err
	}
	applyStageUpdate(&inspection.Status, &inspection.Findings, &inspection.Priority, &inspection.CompletedAt, req)
	if err := s.db.Save(&inspection).Error; err != nil {
		return nil, fmt.Errorf("更新检查记录失败: %w", err)
	}
	return &inspection, nil
}

type CreateTestDriveRequest struct {
	Findings string `json:"findings"`
	Priority int    `json:"priority"`
	DriverID string `json:"driver_id"`
}

// CreateTestDrive 开始试车，并把会话推进到 TEST_DRIVE
func (s *SessionService) CreateTestDrive(sessionID, companyID, userID string, req CreateTestDriveRequest) (*entity.TestDrive, error) {
	session, err := s.repo.GetLean(companyID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == entity.SessionStatusClosed {
		return nil, ErrSessionClosed
	}

	testDrive := &entity.TestDrive{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		SessionID: sessionID,
		Status:    entity.StagePending,
		Findings:  req.Findings,
		Priority:  req.Priority,
		DriverID:  req.DriverID,
		CreatedBy: userID,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(testDrive).Error; err != nil {
			return err
		}
		return advanceSessionTx(tx, session, entity.SessionStatusTestDrive)
	})
	if err != nil {
		return nil, fmt.Errorf("创建试车记录失败: %w", err)
	}
	s.publishStatus(session)
	return testDrive, nil
}

// UpdateTestDrive 更新试车记录
func (s *SessionService) UpdateTestDrive(sessionID, companyID string, req UpdateStageRequest) (*entity.TestDrive, error) {
	session, err := s.repo.GetLean(companyID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == entity.SessionStatusClosed {
		return nil, ErrSessionClosed
	}
	var testDrive entity.TestDrive
	if err := s.db.Where("company_id = ? AND session_id = ?", companyID, sessionID).First(&testDrive).Error; err != nil {
		return nil, err
	}
	applyStageUpdate(&testDrive.Status, &testDrive.Findings, &testDrive.Priority, &testDrive.CompletedAt, req)
	if err := s.db.Save(&testDrive).Error; err != nil {
		return nil, fmt.Errorf("更新试车记录失败: %w", err)
	}
	return &testDrive, nil
}

type AddPhotoRequest struct {
	ObjectKey   string `json:"object_key" binding:"required"`
	ContentType string `json:"content_type"`
	Caption     string `json:"caption"`
}

// AddPhoto 登记会话照片。只存对象存储的key，上传本身走预签名URL
func (s *SessionService) AddPhoto(sessionID, companyID, userID string, req AddPhotoRequest) (*entity.SessionPhoto, error) {
	if _, err := s.repo.GetLean(companyID, sessionID); err != nil {
		return nil, err
	}
	photo := &entity.SessionPhoto{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		SessionID:   sessionID,
		ObjectKey:   req.ObjectKey,
		ContentType: req.ContentType,
		Caption:     req.Caption,
		UploadedBy:  userID,
	}
	if err := s.db.Create(photo).Error; err != nil {
		return nil, fmt.Errorf("登记照片失败: %w", err)
	}
	return photo, nil
}

func (s *SessionService) publishStatus(session *entity.GarageSession) {
	s.notifier.Publish(notify.Event{
		Type:      notify.EventSessionStatus,
		CompanyID: session.CompanyID,
		EntityID:  session.ID,
		Number:    session.SessionNumber,
		Status:    session.Status,
		Message:   "会话状态更新",
	})
}

func applyStageUpdate(status *string, findings *string, priority *int, completedAt **time.Time, req UpdateStageRequest) {
	if req.Status != "" {
		*status = req.Status
		if req.Status == entity.StageCompleted && *completedAt == nil {
			now := time.Now()
			*completedAt = &now
		}
	}
	if req.Findings != "" {
		*findings = req.Findings
	}
	if req.Priority != nil {
		*priority = *req.Priority
	}
}
