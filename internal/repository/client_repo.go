package repository

import (
	"github.com/bitfantasy/garage-erp/internal/entity"
	"gorm.io/gorm"
)

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) Create(client *entity.Client) error {
	return r.db.Create(client).Error
}

func (r *ClientRepository) Update(client *entity.Client) error {
	return r.db.Save(client).Error
}

func (r *ClientRepository) GetByID(companyID, id string) (*entity.Client, error) {
	var client entity.Client
	err := r.db.Where("company_id = ? AND id = ? AND deleted_at IS NULL", companyID, id).
		Preload("Vehicles").
		First(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

type ClientListParams struct {
	Keyword string
	Page    int
	Size    int
}

func (r *ClientRepository) List(companyID string, params ClientListParams) ([]entity.Client, int64, error) {
	query := r.db.Model(&entity.Client{}).Where("company_id = ? AND deleted_at IS NULL", companyID)
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("name ILIKE ? OR phone ILIKE ?", kw, kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var clients []entity.Client
	err := query.Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&clients).Error
	return clients, total, err
}

func (r *ClientRepository) CreateVehicle(vehicle *entity.ClientVehicle) error {
	return r.db.Create(vehicle).Error
}

func (r *ClientRepository) GetVehicle(companyID, id string) (*entity.ClientVehicle, error) {
	var vehicle entity.ClientVehicle
	err := r.db.Where("company_id = ? AND id = ? AND deleted_at IS NULL", companyID, id).
		First(&vehicle).Error
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *ClientRepository) ListVehicles(companyID, clientID string) ([]entity.ClientVehicle, error) {
	var vehicles []entity.ClientVehicle
	err := r.db.Where("company_id = ? AND client_id = ? AND deleted_at IS NULL", companyID, clientID).
		Order("created_at DESC").
		Find(&vehicles).Error
	return vehicles, err
}
