package entity

import (
	"time"
)

// JobCardStatus 维修工单状态
const (
	JobCardStatusPending      = "PENDING"
	JobCardStatusInProgress   = "IN_PROGRESS"
	JobCardStatusWaitingParts = "WAITING_PARTS"
	JobCardStatusQualityCheck = "QUALITY_CHECK"
	JobCardStatusCompleted    = "COMPLETED"
)

// PartStatus 工单配件状态
const (
	PartStatusPending   = "PENDING"
	PartStatusOrdered   = "ORDERED"
	PartStatusReceived  = "RECEIVED"
	PartStatusInstalled = "INSTALLED"
)

// JobCard 维修工单
type JobCard struct {
	ID                  string     `json:"id" gorm:"primaryKey;size:36"`
	CompanyID           string     `json:"company_id" gorm:"size:36;not null;index;uniqueIndex:idx_job_cards_company_number,priority:1"`
	SessionID           string     `json:"session_id" gorm:"size:36;not null;uniqueIndex"`
	JobCardNumber       string     `json:"job_card_number" gorm:"size:32;not null;uniqueIndex:idx_job_cards_company_number,priority:2"`
	Title               string     `json:"title" gorm:"size:256;not null"`
	Description         string     `json:"description" gorm:"type:text"`
	Status              string     `json:"status" gorm:"size:20;not null;default:PENDING"`
	Priority            int        `json:"priority" gorm:"default:0"` // 0=普通, 1=紧急, 2=特急
	IsApproved          bool       `json:"is_approved" gorm:"default:false"`
	ApprovedAt          *time.Time `json:"approved_at"`
	ApprovedByID        string     `json:"approved_by_id" gorm:"size:36"`
	ApprovalNotes       string     `json:"approval_notes" gorm:"type:text"`
	CustomerAuthorized  bool       `json:"customer_authorized" gorm:"default:false"`
	AuthorizedAt        *time.Time `json:"authorized_at"`
	AuthorizationMethod string     `json:"authorization_method" gorm:"size:32"` // SIGNATURE, PHONE, EMAIL
	AuthorizationNotes  string     `json:"authorization_notes" gorm:"type:text"`
	EstimatedHours      float64    `json:"estimated_hours" gorm:"type:decimal(10,2);default:0"`
	ActualHours         float64    `json:"actual_hours" gorm:"type:decimal(10,2);default:0"`
	EstimatedStartAt    *time.Time `json:"estimated_start_at"`
	EstimatedCompletionAt *time.Time `json:"estimated_completion_at"`
	ActualStartAt       *time.Time `json:"actual_start_at"`
	ActualCompletionAt  *time.Time `json:"actual_completion_at"`
	CreatedBy           string     `json:"created_by" gorm:"size:36;not null"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	Items       []JobCardItem      `json:"items,omitempty" gorm:"foreignKey:JobCardID;constraint:OnDelete:CASCADE"`
	Comments    []JobCardComment   `json:"comments,omitempty" gorm:"foreignKey:JobCardID;constraint:OnDelete:CASCADE"`
	TimeEntries []JobCardTimeEntry `json:"time_entries,omitempty" gorm:"foreignKey:JobCardID;constraint:OnDelete:CASCADE"`
	Parts       []JobCardPart      `json:"parts,omitempty" gorm:"foreignKey:JobCardID;constraint:OnDelete:CASCADE"`
}

func (JobCard) TableName() string {
	return "garage_job_cards"
}

// ItemSource 工单项来源
const (
	ItemSourceCustomerRequest = "CUSTOMER_REQUEST"
	ItemSourceInspection      = "INSPECTION"
	ItemSourceTestDrive       = "TEST_DRIVE"
)

// JobCardItem 工单项：工单内的一个独立维修任务
type JobCardItem struct {
	ID             string     `json:"id" gorm:"primaryKey;size:36"`
	CompanyID      string     `json:"company_id" gorm:"size:36;not null;index"`
	JobCardID      string     `json:"job_card_id" gorm:"size:36;not null;index"`
	Title          string     `json:"title" gorm:"size:256;not null"`
	Description    string     `json:"description" gorm:"type:text"`
	Status         string     `json:"status" gorm:"size:20;not null;default:PENDING"`
	Priority       int        `json:"priority" gorm:"default:0"`
	Source         string     `json:"source" gorm:"size:32"` // 来源阶段
	SourceID       string     `json:"source_id" gorm:"size:36"`
	TechnicianID   string     `json:"technician_id" gorm:"size:36"`
	EstimatedHours float64    `json:"estimated_hours" gorm:"type:decimal(10,2);default:0"`
	ActualHours    float64    `json:"actual_hours" gorm:"type:decimal(10,2);default:0"`
	WorkPerformed  string     `json:"work_performed" gorm:"type:text"`
	Notes          string     `json:"notes" gorm:"type:text"`
	QualityChecked bool       `json:"quality_checked" gorm:"default:false"`
	QualityCheckedByID string `json:"quality_checked_by_id" gorm:"size:36"`
	QualityNotes   string     `json:"quality_notes" gorm:"type:text"`
	QualityCheckedAt *time.Time `json:"quality_checked_at"`
	SortOrder      int        `json:"sort_order" gorm:"default:0"`
	StartedAt      *time.Time `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (JobCardItem) TableName() string {
	return "garage_job_card_items"
}

// JobCardComment 工单评论，支持一级回复
type JobCardComment struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	CompanyID       string    `json:"company_id" gorm:"size:36;not null;index"`
	JobCardID       string    `json:"job_card_id" gorm:"size:36;not null;index"`
	ParentCommentID string    `json:"parent_comment_id" gorm:"size:36;index"`
	Content         string    `json:"content" gorm:"type:text;not null"`
	AuthorID        string    `json:"author_id" gorm:"size:36;not null"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Replies []JobCardComment `json:"replies,omitempty" gorm:"foreignKey:ParentCommentID"`
}

func (JobCardComment) TableName() string {
	return "garage_job_card_comments"
}

// JobCardTimeEntry 工时记录：两阶段区间，开始/结束后结算工时与成本
type JobCardTimeEntry struct {
	ID           string     `json:"id" gorm:"primaryKey;size:36"`
	CompanyID    string     `json:"company_id" gorm:"size:36;not null;index"`
	JobCardID    string     `json:"job_card_id" gorm:"size:36;not null;index"`
	JobCardItemID string    `json:"job_card_item_id" gorm:"size:36;index"`
	TechnicianID string     `json:"technician_id" gorm:"size:36;not null"`
	Description  string     `json:"description" gorm:"type:text"`
	StartTime    time.Time  `json:"start_time" gorm:"not null"`
	EndTime      *time.Time `json:"end_time"`
	IsActive     bool       `json:"is_active" gorm:"default:true"`
	BreakMinutes int        `json:"break_minutes" gorm:"default:0"`
	Hours        float64    `json:"hours" gorm:"type:decimal(10,2);default:0"`
	HourlyRate   float64    `json:"hourly_rate" gorm:"type:decimal(12,2);default:0"`
	TotalCost    float64    `json:"total_cost" gorm:"type:decimal(12,2);default:0"`
	IsBillable   bool       `json:"is_billable" gorm:"default:true"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (JobCardTimeEntry) TableName() string {
	return "garage_job_card_time_entries"
}

// JobCardPart 工单配件，可关联库存物料
type JobCardPart struct {
	ID              string     `json:"id" gorm:"primaryKey;size:36"`
	CompanyID       string     `json:"company_id" gorm:"size:36;not null;index"`
	JobCardID       string     `json:"job_card_id" gorm:"size:36;not null;index"`
	JobCardItemID   string     `json:"job_card_item_id" gorm:"size:36;index"`
	InventoryItemID string     `json:"inventory_item_id" gorm:"size:36;index"`
	PartName        string     `json:"part_name" gorm:"size:256;not null"`
	PartNumber      string     `json:"part_number" gorm:"size:64"`
	QuantityUsed    float64    `json:"quantity_used" gorm:"type:decimal(12,4);not null"`
	UnitCost        float64    `json:"unit_cost" gorm:"type:decimal(12,4);default:0"`
	UnitPrice       float64    `json:"unit_price" gorm:"type:decimal(12,4);default:0"`
	Markup          float64    `json:"markup" gorm:"type:decimal(10,4);default:0"`
	TotalCost       float64    `json:"total_cost" gorm:"type:decimal(12,2);default:0"`
	TotalPrice      float64    `json:"total_price" gorm:"type:decimal(12,2);default:0"`
	Status          string     `json:"status" gorm:"size:20;not null;default:PENDING"`
	WarrantyMonths  int        `json:"warranty_months" gorm:"default:0"`
	WarrantyNotes   string     `json:"warranty_notes" gorm:"type:text"`
	InstalledAt     *time.Time `json:"installed_at"`
	CreatedBy       string     `json:"created_by" gorm:"size:36;not null"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (JobCardPart) TableName() string {
	return "garage_job_card_parts"
}
