package entity

import (
	"time"
)

// SessionStatus 服务会话状态
const (
	SessionStatusCheckedIn        = "CHECKED_IN"
	SessionStatusCustomerRequest  = "CUSTOMER_REQUEST"
	SessionStatusInspection       = "INSPECTION"
	SessionStatusTestDrive        = "TEST_DRIVE"
	SessionStatusAwaitingApproval = "AWAITING_APPROVAL"
	SessionStatusInProgress       = "IN_PROGRESS"
	SessionStatusQualityCheck     = "QUALITY_CHECK"
	SessionStatusCompleted        = "COMPLETED"
	SessionStatusReadyForPickup   = "READY_FOR_PICKUP"
	SessionStatusClosed           = "CLOSED"
)

// StageStatus 会话阶段状态（客户需求/检查/试车/工单项通用）
const (
	StagePending    = "PENDING"
	StageInProgress = "IN_PROGRESS"
	StageCompleted  = "COMPLETED"
)

// GarageSession 服务会话：一辆车从进场到交车的完整过程
type GarageSession struct {
	ID              string     `json:"id" gorm:"primaryKey;size:36"`
	CompanyID       string     `json:"company_id" gorm:"size:36;not null;index;uniqueIndex:idx_sessions_company_number,priority:1"`
	BranchID        string     `json:"branch_id" gorm:"size:36;index"`
	ClientID        string     `json:"client_id" gorm:"size:36;index"`
	ClientVehicleID string     `json:"client_vehicle_id" gorm:"size:36;index"`
	SessionNumber   string     `json:"session_number" gorm:"size:32;not null;uniqueIndex:idx_sessions_company_number,priority:2"`
	Status          string     `json:"status" gorm:"size:32;not null;default:CHECKED_IN"`
	MileageIn       int        `json:"mileage_in" gorm:"default:0"`
	MileageOut      int        `json:"mileage_out" gorm:"default:0"`
	CheckInAt       *time.Time `json:"check_in_at"`
	CheckOutAt      *time.Time `json:"check_out_at"`
	AdvisorID       string     `json:"advisor_id" gorm:"size:36"`
	TechnicianID    string     `json:"technician_id" gorm:"size:36"`
	Notes           string     `json:"notes" gorm:"type:text"`
	CreatedBy       string     `json:"created_by" gorm:"size:36;not null"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	CustomerRequest *CustomerRequest `json:"customer_request,omitempty" gorm:"foreignKey:SessionID"`
	Inspection      *Inspection      `json:"inspection,omitempty" gorm:"foreignKey:SessionID"`
	TestDrive       *TestDrive       `json:"test_drive,omitempty" gorm:"foreignKey:SessionID"`
	JobCard         *JobCard         `json:"job_card,omitempty" gorm:"foreignKey:SessionID"`
	Photos          []SessionPhoto   `json:"photos,omitempty" gorm:"foreignKey:SessionID"`
}

func (GarageSession) TableName() string {
	return "garage_sessions"
}

// CustomerRequest 客户需求记录（每个会话最多一条）
type CustomerRequest struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	CompanyID   string     `json:"company_id" gorm:"size:36;not null;index"`
	SessionID   string     `json:"session_id" gorm:"size:36;not null;uniqueIndex"`
	Status      string     `json:"status" gorm:"size:20;not null;default:PENDING"`
	Description string     `json:"description" gorm:"type:text"`
	Findings    string     `json:"findings" gorm:"type:text"`
	Priority    int        `json:"priority" gorm:"default:0"`
	CreatedBy   string     `json:"created_by" gorm:"size:36;not null"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (CustomerRequest) TableName() string {
	return "garage_customer_requests"
}

// Inspection 车辆检查记录（每个会话最多一条）
type Inspection struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	CompanyID   string     `json:"company_id" gorm:"size:36;not null;index"`
	SessionID   string     `json:"session_id" gorm:"size:36;not null;uniqueIndex"`
	Status      string     `json:"status" gorm:"size:20;not null;default:PENDING"`
	Findings    string     `json:"findings" gorm:"type:text"`
	Priority    int        `json:"priority" gorm:"default:0"`
	InspectorID string     `json:"inspector_id" gorm:"size:36"`
	CreatedBy   string     `json:"created_by" gorm:"size:36;not null"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Inspection) TableName() string {
	return "garage_inspections"
}

// TestDrive 试车记录（每个会话最多一条）
type TestDrive struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	CompanyID   string     `json:"company_id" gorm:"size:36;not null;index"`
	SessionID   string     `json:"session_id" gorm:"size:36;not null;uniqueIndex"`
	Status      string     `json:"status" gorm:"size:20;not null;default:PENDING"`
	Findings    string     `json:"findings" gorm:"type:text"`
	Priority    int        `json:"priority" gorm:"default:0"`
	DriverID    string     `json:"driver_id" gorm:"size:36"`
	CreatedBy   string     `json:"created_by" gorm:"size:36;not null"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (TestDrive) TableName() string {
	return "garage_test_drives"
}

// SessionPhoto 会话照片，只保存对象存储返回的key
type SessionPhoto struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	CompanyID   string    `json:"company_id" gorm:"size:36;not null;index"`
	SessionID   string    `json:"session_id" gorm:"size:36;not null;index"`
	ObjectKey   string    `json:"object_key" gorm:"size:512;not null"`
	ContentType string    `json:"content_type" gorm:"size:128"`
	Caption     string    `json:"caption" gorm:"size:256"`
	UploadedBy  string    `json:"uploaded_by" gorm:"size:36;not null"`
	CreatedAt   time.Time `json:"created_at"`
}

func (SessionPhoto) TableName() string {
	return "garage_session_photos"
}
