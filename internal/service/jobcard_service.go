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
)

// JobCardService 维修工单工作流。工单由会话派生，携带双重授权
// （内部批准+客户授权），下挂工单项、评论、工时和配件
type JobCardService struct {
	repo        *repository.JobCardRepository
	sessionRepo *repository.SessionRepository
	stock       *StockService
	db          *gorm.DB
	notifier    notify.Notifier
}

func NewJobCardService(repo *repository.JobCardRepository, sessionRepo *repository.SessionRepository,
	stock *StockService, db *gorm.DB, notifier notify.Notifier) *JobCardService {
	return &JobCardService{repo: repo, sessionRepo: sessionRepo, stock: stock, db: db, notifier: notifier}
}

type CreateJobCardRequest struct {
	SessionID      string     `json:"session_id" binding:"required"`
	Title          string     `json:"title" binding:"required"`
	Description    string     `json:"description"`
	Priority       int        `json:"priority"`
	EstimatedHours float64    `json:"estimated_hours"`
	EstimatedStartAt *time.Time `json:"estimated_start_at"`
	EstimatedCompletionAt *time.Time `json:"estimated_completion_at"`
}

// Create 建立工单并把会话推进到待批准。
// 编号分配和会话状态推进在同一事务内，撞号则换号重试
func (s *JobCardService) Create(req CreateJobCardRequest, companyID, userID string) (*entity.JobCard, error) {
	session, err := s.sessionRepo.GetLean(companyID, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == entity.SessionStatusClosed {
		return nil, ErrSessionClosed
	}

	var card *entity.JobCard
	var lastErr error
	for i := 0; i < numberRetries; i++ {
		lastErr = s.db.Transaction(func(tx *gorm.DB) error {
			number, err := repository.NextNumber(tx, entity.JobCard{}.TableName(), "job_card_number",
				companyID, repository.PrefixJobCard, time.Now())
			if err != nil {
				return err
			}
			card = &entity.JobCard{
				ID:                    uuid.New().String(),
				CompanyID:             companyID,
				SessionID:             req.SessionID,
				JobCardNumber:         number,
				Title:                 req.Title,
				Description:           req.Description,
				Status:                entity.JobCardStatusPending,
				Priority:              req.Priority,
				EstimatedHours:        req.EstimatedHours,
				EstimatedStartAt:      req.EstimatedStartAt,
				EstimatedCompletionAt: req.EstimatedCompletionAt,
				CreatedBy:             userID,
			}
			if err := tx.Create(card).Error; err != nil {
				return err
			}
			return advanceSessionTx(tx, session, entity.SessionStatusAwaitingApproval)
		})
		if lastErr == nil {
			break
		}
		if !errors.Is(lastErr, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("创建工单失败: %w", lastErr)
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("创建工单失败: %w", lastErr)
	}

	s.notifier.Publish(notify.Event{
		Type:      notify.EventJobCardCreated,
		CompanyID: companyID,
		EntityID:  card.ID,
		Message:   fmt.Sprintf("工单 %s 已创建", card.JobCardNumber),
	})
	return card, nil
}

func (s *JobCardService) Get(jobCardID, companyID string) (*entity.JobCard, error) {
	return s.repo.GetByID(companyID, jobCardID)
}

func (s *JobCardService) GetBySession(sessionID, companyID string) (*entity.JobCard, error) {
	return s.repo.GetBySession(companyID, sessionID)
}

func (s *JobCardService) List(companyID string, params repository.JobCardListParams) ([]entity.JobCard, int64, error) {
	return s.repo.List(companyID, params)
}

type ApproveRequest struct {
	Notes string `json:"notes"`
}

// Approve 内部批准。幂等：已批准的工单直接返回。
// 批准同时把工单和会话推进到进行中并盖实际开工时间
func (s *JobCardService) Approve(jobCardID, companyID, approverID string, req ApproveRequest) (*entity.JobCard, error) {
	card, err := s.repo.GetLean(companyID, jobCardID)
	if err != nil {
		return nil, err
	}
	if card.IsApproved {
		return card, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		card.IsApproved = true
		card.ApprovedAt = &now
		card.ApprovedByID = approverID
		card.ApprovalNotes = req.Notes
		if card.Status == entity.JobCardStatusPending {
			card.Status = entity.JobCardStatusInProgress
		}
		if card.ActualStartAt == nil {
			card.ActualStartAt = &now
		}
		if err := tx.Save(card).Error; err != nil {
			return err
		}

		session, err := s.sessionRepo.GetLean(companyID, card.SessionID)
		if err != nil {
			return err
		}
		return advanceSessionTx(tx, session, entity.SessionStatusInProgress)
	})
	if err != nil {
		return nil, fmt.Errorf("批准工单失败: %w", err)
	}

	s.notifier.Publish(notify.Event{
		Type:      notify.EventJobCardApproved,
		CompanyID: companyID,
		EntityID:  card.ID,
		Message:   fmt.Sprintf("工单 %s 已批准", card.JobCardNumber),
	})
	return card, nil
}

type AuthorizeRequest struct {
	Method string `json:"method" binding:"required,oneof=SIGNATURE PHONE EMAIL"`
	Notes  string `json:"notes"`
}

// AuthorizeByCustomer 记录客户授权，幂等
func (s *JobCardService) AuthorizeByCustomer(jobCardID, companyID string, req AuthorizeRequest) (*entity.JobCard, error) {
	card, err := s.repo.GetLean(companyID, jobCardID)
	if err != nil {
		return nil, err
	}
	if card.CustomerAuthorized {
		return card, nil
	}
	now := time.Now()
	card.CustomerAuthorized = true
	card.AuthorizedAt = &now
	card.AuthorizationMethod = req.Method
	card.AuthorizationNotes = req.Notes
	if err := s.db.Save(card).Error; err != nil {
		return nil, fmt.Errorf("记录客户授权失败: %w", err)
	}
	return card, nil
}

// StartWork 开工。必须同时具备内部批准和客户授权
func (s *JobCardService) StartWork(jobCardID, companyID string) (*entity.JobCard, error) {
	card, err := s.repo.GetLean(companyID, jobCardID)
	if err != nil {
		return nil, err
	}
	if !card.IsApproved || !card.CustomerAuthorized {
		return nil, ErrNotApproved
	}
	if card.Status == entity.JobCardStatusInProgress {
		return card, nil
	}
	if !entity.JobCardCanTransition(card.Status, entity.JobCardStatusInProgress) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, card.Status, entity.JobCardStatusInProgress)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		card.Status = entity.JobCardStatusInProgress
		if card.ActualStartAt == nil {
			card.ActualStartAt = &now
		}
		if err := tx.Save(card).Error; err != nil {
			return err
		}
		session, err := s.sessionRepo.GetLean(companyID, card.SessionID)
		if err != nil {
			return err
		}
		return advanceSessionTx(tx, session, entity.SessionStatusInProgress)
	})
	if err != nil {
		return nil, fmt.Errorf("开工失败: %w", err)
	}
	s.publishStatus(card)
	return card, nil
}

// MoveToWaitingParts 等配件。只有进行中的工单可以进入，到货后用 ResumeWork 回到进行中
func (s *JobCardService) MoveToWaitingParts(jobCardID, companyID string) (*entity.JobCard, error) {
	return s.transition(jobCardID, companyID, entity.JobCardStatusWaitingParts, nil)
}

// ResumeWork 配件到货后恢复施工
func (s *JobCardService) ResumeWork(jobCardID, companyID string) (*entity.JobCard, error) {
	return s.transition(jobCardID, companyID, entity.JobCardStatusInProgress, nil)
}

// MoveToQualityCheck 进入质检。全部工单项完成才可进入，
// 进入时从工单项汇总实际工时，并把会话推进到质检阶段
func (s *JobCardService) MoveToQualityCheck(jobCardID, companyID string) (*entity.JobCard, error) {
	return s.transition(jobCardID, companyID, entity.JobCardStatusQualityCheck, func(tx *gorm.DB, card *entity.JobCard) error {
		open, err := s.repo.CountOpenItems(tx, companyID, jobCardID)
		if err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("%w: 还有%d个未完成的工单项", ErrInvalidTransition, open)
		}
		total, err := s.repo.SumItemHours(tx, companyID, jobCardID)
		if err != nil {
			return err
		}
		card.ActualHours = total
		if err := tx.Save(card).Error; err != nil {
			return err
		}
		session, err := s.sessionRepo.GetLean(companyID, card.SessionID)
		if err != nil {
			return err
		}
		return advanceSessionTx(tx, session, entity.SessionStatusQualityCheck)
	})
}

// CompleteWork 完工。从工单项汇总实际工时，盖完工时间，
// 并把会话推进到已完成
func (s *JobCardService) CompleteWork(jobCardID, companyID string) (*entity.JobCard, error) {
	card, err := s.transition(jobCardID, companyID, entity.JobCardStatusCompleted, func(tx *gorm.DB, card *entity.JobCard) error {
		total, err := s.repo.SumItemHours(tx, companyID, jobCardID)
		if err != nil {
			return err
		}
		now := time.Now()
		card.ActualHours = total
		card.ActualCompletionAt = &now
		if err := tx.Save(card).Error; err != nil {
			return err
		}
		session, err := s.sessionRepo.GetLean(companyID, card.SessionID)
		if err != nil {
			return err
		}
		return advanceSessionTx(tx, session, entity.SessionStatusCompleted)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(notify.Event{
		Type:      notify.EventVehicleReady,
		CompanyID: companyID,
		EntityID:  card.SessionID,
		Message:   fmt.Sprintf("工单 %s 已完工", card.JobCardNumber),
	})
	return card, nil
}

// transition 按转移表推进工单状态，extra 在同一事务内执行
func (s *JobCardService) transition(jobCardID, companyID, newStatus string,
	extra func(tx *gorm.DB, card *entity.JobCard) error) (*entity.JobCard, error) {
	card, err := s.repo.GetLean(companyID, jobCardID)
	if err != nil {
		return nil, err
	}
	if !entity.JobCardCanTransition(card.Status, newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, card.Status, newStatus)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		card.Status = newStatus
		if err := tx.Save(card).Error; err != nil {
			return err
		}
		if extra != nil {
			return extra(tx, card)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("工单状态推进失败: %w", err)
	}
	s.publishStatus(card)
	return card, nil
}

type AddItemRequest struct {
	Title          string  `json:"title" binding:"required"`
	Description    string  `json:"description"`
	Priority       int     `json:"priority"`
	Source         string  `json:"source"`
	SourceID       string  `json:"source_id"`
	TechnicianID   string  `json:"technician_id"`
	EstimatedHours float64 `json:"estimated_hours"`
	SortOrder      int     `json:"sort_order"`
}

// AddItem 追加工单项
func (s *JobCardService) AddItem(jobCardID, companyID string, req AddItemRequest) (*entity.JobCardItem, error) {
	card, err := s.repo.GetLean(companyID, jobCardID)
	if err != nil {
		return nil, err
	}
	if card.Status == entity.JobCardStatusCompleted {
		return nil, fmt.Errorf("%w: 工单已完工", ErrInvalidTransition)
	}
	item := &entity.JobCardItem{
		ID:             uuid.New().String(),
		CompanyID:      companyID,
		JobCardID:      jobCardID,
		Title:          req.Title,
		Description:    req.Description,
		Status:         entity.StagePending,
		Priority:       req.Priority,
		Source:         req.Source,
		SourceID:       req.SourceID,
		TechnicianID:   req.TechnicianID,
		EstimatedHours: req.EstimatedHours,
		SortOrder:      req.SortOrder,
	}
	if err := s.db.Create(item).Error; err != nil {
		return nil, fmt.Errorf("追加工单项失败: %w", err)
	}
	return item, nil
}

// StartItem 工单项开工
func (s *JobCardService) StartItem(jobCardID, itemID, companyID, technicianID string) (*entity.JobCardItem, error) {
	item, err := s.repo.GetItem(companyID, jobCardID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status == entity.StageCompleted {
		return nil, fmt.Errorf("%w: 工单项已完成", ErrInvalidTransition)
	}
	now := time.Now()
	item.Status = entity.StageInProgress
	if technicianID != "" {
		item.TechnicianID = technicianID
	}
	if item.StartedAt == nil {
		item.StartedAt = &now
	}
	if err := s.db.Save(item).Error; err != nil {
		return nil, fmt.Errorf("工单项开工失败: %w", err)
	}
	return item, nil
}

type CompleteItemRequest struct {
	WorkPerformed string  `json:"work_performed"`
	ActualHours   float64 `json:"actual_hours"`
	Notes         string  `json:"notes"`
}

// CompleteItem 工单项完工，记录实际工时和施工内容
func (s *JobCardService) CompleteItem(jobCardID, itemID, companyID string, req CompleteItemRequest) (*entity.JobCardItem, error) {
	item, err := s.repo.GetItem(companyID, jobCardID, itemID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	item.Status = entity.StageCompleted
	item.WorkPerformed = req.WorkPerformed
	if req.ActualHours > 0 {
		item.ActualHours = req.ActualHours
	}
	if req.Notes != "" {
		item.Notes = req.Notes
	}
	if item.CompletedAt == nil {
		item.CompletedAt = &now
	}
	if err := s.db.Save(item).Error; err != nil {
		return nil, fmt.Errorf("工单项完工失败: %w", err)
	}
	return item, nil
}

type QualityCheckItemRequest struct {
	Passed bool   `json:"passed"`
	Notes  string `json:"notes"`
}

// QualityCheckItem 工单项质检。只有已完成的项可以质检，
// 不合格的项退回进行中重做
func (s *JobCardService) QualityCheckItem(jobCardID, itemID, companyID, checkerID string, req QualityCheckItemRequest) (*entity.JobCardItem, error) {
	item, err := s.repo.GetItem(companyID, jobCardID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status != entity.StageCompleted {
		return nil, ErrItemNotCompleted
	}
	now := time.Now()
	item.QualityChecked = req.Passed
	item.QualityCheckedByID = checkerID
	item.QualityNotes = req.Notes
	item.QualityCheckedAt = &now
	if !req.Passed {
		item.Status = entity.StageInProgress
		item.CompletedAt = nil
	}
	if err := s.db.Save(item).Error; err != nil {
		return nil, fmt.Errorf("工单项质检失败: %w", err)
	}
	return item, nil
}

type AddCommentRequest struct {
	Content         string `json:"content" binding:"required"`
	ParentCommentID string `json:"parent_comment_id"`
}

// AddComment 追加评论。只支持一级回复：
// 回复的目标必须是顶层评论
func (s *JobCardService) AddComment(jobCardID, companyID, authorID string, req AddCommentRequest) (*entity.JobCardComment, error) {
	if _, err := s.repo.GetLean(companyID, jobCardID); err != nil {
		return nil, err
	}
	if req.ParentCommentID != "" {
		parent, err := s.repo.GetComment(companyID, req.ParentCommentID)
		if err != nil {
			return nil, err
		}
		if parent.JobCardID != jobCardID {
			return nil, gorm.ErrRecordNotFound
		}
		if parent.ParentCommentID != "" {
			return nil, fmt.Errorf("%w: 只支持一级回复", ErrInvalidTransition)
		}
	}
	comment := &entity.JobCardComment{
		ID:              uuid.New().String(),
		CompanyID:       companyID,
		JobCardID:       jobCardID,
		ParentCommentID: req.ParentCommentID,
		Content:         req.Content,
		AuthorID:        authorID,
	}
	if err := s.db.Create(comment).Error; err != nil {
		return nil, fmt.Errorf("追加评论失败: %w", err)
	}
	return comment, nil
}

func (s *JobCardService) ListComments(jobCardID, companyID string) ([]entity.JobCardComment, error) {
	return s.repo.ListComments(companyID, jobCardID)
}

// DeleteComment 删除评论。存在回复时禁止删除，先删回复
func (s *JobCardService) DeleteComment(commentID, companyID string) error {
	comment, err := s.repo.GetComment(companyID, commentID)
	if err != nil {
		return err
	}
	count, err := s.repo.CountReplies(companyID, commentID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCommentHasReplies
	}
	return s.db.Delete(comment).Error
}

type AddPartRequest struct {
	JobCardItemID   string  `json:"job_card_item_id"`
	InventoryItemID string  `json:"inventory_item_id"`
	PartName        string  `json:"part_name"`
	PartNumber      string  `json:"part_number"`
	QuantityUsed    float64 `json:"quantity_used" binding:"required,gt=0"`
	UnitCost        float64 `json:"unit_cost"`
	UnitPrice       float64 `json:"unit_price"`
	Markup          float64 `json:"markup"`
	WarrantyMonths  int     `json:"warranty_months"`
	WarrantyNotes   string  `json:"warranty_notes"`
}

// AddPart 追加工单配件。关联库存物料时在同一事务内做销售出库，
// 名称和价格缺省从物料档案带出
func (s *JobCardService) AddPart(jobCardID, companyID, userID string, req AddPartRequest) (*entity.JobCardPart, error) {
	if _, err := s.repo.GetLean(companyID, jobCardID); err != nil {
		return nil, err
	}

	part := &entity.JobCardPart{
		ID:              uuid.New().String(),
		CompanyID:       companyID,
		JobCardID:       jobCardID,
		JobCardItemID:   req.JobCardItemID,
		InventoryItemID: req.InventoryItemID,
		PartName:        req.PartName,
		PartNumber:      req.PartNumber,
		QuantityUsed:    req.QuantityUsed,
		UnitCost:        req.UnitCost,
		UnitPrice:       req.UnitPrice,
		Markup:          req.Markup,
		Status:          entity.PartStatusPending,
		WarrantyMonths:  req.WarrantyMonths,
		WarrantyNotes:   req.WarrantyNotes,
		CreatedBy:       userID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if req.InventoryItemID != "" {
			movement, err := s.stock.AdjustTx(tx, req.InventoryItemID, companyID, userID, AdjustRequest{
				Quantity:      req.QuantityUsed,
				MovementType:  entity.MovementTypeSale,
				UnitCost:      req.UnitCost,
				ReferenceType: "JOB_CARD",
				ReferenceID:   jobCardID,
			})
			if err != nil {
				return err
			}
			if part.PartName == "" || part.UnitCost == 0 || part.UnitPrice == 0 {
				item, err := s.stock.repo.GetItem(companyID, req.InventoryItemID)
				if err != nil {
					return err
				}
				if part.PartName == "" {
					part.PartName = item.Name
				}
				if part.PartNumber == "" {
					part.PartNumber = item.SKU
				}
				if part.UnitCost == 0 {
					part.UnitCost = movement.UnitCost
				}
				if part.UnitPrice == 0 {
					part.UnitPrice = item.SellingPrice
				}
			}
		}
		if part.PartName == "" {
			return fmt.Errorf("%w: 配件名称不能为空", ErrInvalidTransition)
		}
		part.TotalCost = RoundMoney(part.QuantityUsed * part.UnitCost)
		part.TotalPrice = RoundMoney(part.QuantityUsed * part.UnitPrice)
		return tx.Create(part).Error
	})
	if err != nil {
		return nil, fmt.Errorf("追加配件失败: %w", err)
	}
	return part, nil
}

type UpdatePartRequest struct {
	QuantityUsed *float64 `json:"quantity_used"`
	UnitCost     *float64 `json:"unit_cost"`
	UnitPrice    *float64 `json:"unit_price"`
	Status       string   `json:"status"`
	WarrantyMonths *int   `json:"warranty_months"`
	WarrantyNotes  string `json:"warranty_notes"`
}

// UpdatePart 更新配件。数量变化时对关联物料补差出库或退回，
// 总价按新数量与单价重算
func (s *JobCardService) UpdatePart(jobCardID, partID, companyID, userID string, req UpdatePartRequest) (*entity.JobCardPart, error) {
	part, err := s.repo.GetPart(companyID, jobCardID, partID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if req.QuantityUsed != nil && *req.QuantityUsed != part.QuantityUsed {
			if *req.QuantityUsed <= 0 {
				return fmt.Errorf("%w: 配件数量必须大于零", ErrInvalidTransition)
			}
			if part.InventoryItemID != "" {
				diff := *req.QuantityUsed - part.QuantityUsed
				movementType := entity.MovementTypeSale
				if diff < 0 {
					movementType = entity.MovementTypeReturn
				}
				if _, err := s.stock.AdjustTx(tx, part.InventoryItemID, companyID, userID, AdjustRequest{
					Quantity:      diff,
					MovementType:  movementType,
					UnitCost:      part.UnitCost,
					ReferenceType: "JOB_CARD",
					ReferenceID:   jobCardID,
				}); err != nil {
					return err
				}
			}
			part.QuantityUsed = *req.QuantityUsed
		}
		if req.UnitCost != nil {
			part.UnitCost = *req.UnitCost
		}
		if req.UnitPrice != nil {
			part.UnitPrice = *req.UnitPrice
		}
		if req.Status != "" {
			part.Status = req.Status
			if req.Status == entity.PartStatusInstalled && part.InstalledAt == nil {
				now := time.Now()
				part.InstalledAt = &now
			}
		}
		if req.WarrantyMonths != nil {
			part.WarrantyMonths = *req.WarrantyMonths
		}
		if req.WarrantyNotes != "" {
			part.WarrantyNotes = req.WarrantyNotes
		}
		part.TotalCost = RoundMoney(part.QuantityUsed * part.UnitCost)
		part.TotalPrice = RoundMoney(part.QuantityUsed * part.UnitPrice)
		return tx.Save(part).Error
	})
	if err != nil {
		return nil, fmt.Errorf("更新配件失败: %w", err)
	}
	return part, nil
}

// DeletePart 删除配件。关联物料的用量退回库存
func (s *JobCardService) DeletePart(jobCardID, partID, companyID, userID string) error {
	part, err := s.repo.GetPart(companyID, jobCardID, partID)
	if err != nil {
		return err
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if part.InventoryItemID != "" {
			if _, err := s.stock.AdjustTx(tx, part.InventoryItemID, companyID, userID, AdjustRequest{
				Quantity:      part.QuantityUsed,
				MovementType:  entity.MovementTypeReturn,
				UnitCost:      part.UnitCost,
				ReferenceType: "JOB_CARD",
				ReferenceID:   jobCardID,
			}); err != nil {
				return err
			}
		}
		return tx.Delete(part).Error
	})
	if err != nil {
		return fmt.Errorf("删除配件失败: %w", err)
	}
	return nil
}

// Summary 工单费用汇总
type JobCardSummary struct {
	JobCardID   string  `json:"job_card_id"`
	LaborCost   float64 `json:"labor_cost"`
	PartsCost   float64 `json:"parts_cost"`
	PartsPrice  float64 `json:"parts_price"`
	TotalCost   float64 `json:"total_cost"`
	ActualHours float64 `json:"actual_hours"`
	OpenItems   int64   `json:"open_items"`
}

// Summary 汇总工单的人工成本、配件成本与未完成项数
func (s *JobCardService) Summary(jobCardID, companyID string) (*JobCardSummary, error) {
	card, err := s.repo.GetLean(companyID, jobCardID)
	if err != nil {
		return nil, err
	}
	labor, err := s.repo.SumBillableCost(companyID, jobCardID)
	if err != nil {
		return nil, err
	}
	partsCost, partsPrice, err := s.repo.SumPartTotals(companyID, jobCardID)
	if err != nil {
		return nil, err
	}
	open, err := s.repo.CountOpenItems(s.repo.DB(), companyID, jobCardID)
	if err != nil {
		return nil, err
	}
	return &JobCardSummary{
		JobCardID:   card.ID,
		LaborCost:   labor,
		PartsCost:   partsCost,
		PartsPrice:  partsPrice,
		TotalCost:   RoundMoney(labor + partsCost),
		ActualHours: card.ActualHours,
		OpenItems:   open,
	}, nil
}

func (s *JobCardService) publishStatus(card *entity.JobCard) {
	s.notifier.Publish(notify.Event{
		Type:      notify.EventJobCardStatus,
		CompanyID: card.CompanyID,
		EntityID:  card.ID,
		Message:   fmt.Sprintf("工单 %s 状态变更为 %s", card.JobCardNumber, card.Status),
	})
}
