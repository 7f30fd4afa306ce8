package entity

import (
	"strconv"
	"strings"
	"time"
)

// Client 客户
type Client struct {
	ID        string     `json:"id" gorm:"primaryKey;size:36"`
	CompanyID string     `json:"company_id" gorm:"size:36;not null;index"`
	Name      string     `json:"name" gorm:"size:128;not null"`
	Phone     string     `json:"phone" gorm:"size:32;index"`
	Email     string     `json:"email" gorm:"size:128"`
	Address   string     `json:"address" gorm:"size:256"`
	Notes     string     `json:"notes" gorm:"type:text"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`

	Vehicles []ClientVehicle `json:"vehicles,omitempty" gorm:"foreignKey:ClientID"`
}

func (Client) TableName() string {
	return "garage_clients"
}

// ClientVehicle 客户车辆
type ClientVehicle struct {
	ID           string     `json:"id" gorm:"primaryKey;size:36"`
	CompanyID    string     `json:"company_id" gorm:"size:36;not null;index"`
	ClientID     string     `json:"client_id" gorm:"size:36;not null;index"`
	Make         string     `json:"make" gorm:"size:64"`
	Model        string     `json:"model" gorm:"size:64"`
	Year         int        `json:"year" gorm:"default:0"`
	PlateNumber  string     `json:"plate_number" gorm:"size:32;index"`
	VIN          string     `json:"vin" gorm:"size:32"`
	Color        string     `json:"color" gorm:"size:32"`
	Mileage      int        `json:"mileage" gorm:"default:0"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at" gorm:"index"`
}

func (ClientVehicle) TableName() string {
	return "garage_client_vehicles"
}

// DisplayName 车辆展示名，如 "2021 Toyota Camry"
func (v ClientVehicle) DisplayName() string {
	name := ""
	if v.Year > 0 {
		name = strconv.Itoa(v.Year) + " "
	}
	name += v.Make
	if v.Model != "" {
		name += " " + v.Model
	}
	return strings.TrimSpace(name)
}
