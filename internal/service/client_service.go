package service

import (
	"fmt"

	"github.com/bitfantasy/garage-erp/internal/entity"
	"github.com/bitfantasy/garage-erp/internal/repository"
	"github.com/google/uuid"
)

// ClientService 客户与车辆档案
type ClientService struct {
	repo *repository.ClientRepository
}

func NewClientService(repo *repository.ClientRepository) *ClientService {
	return &ClientService{repo: repo}
}

type CreateClientRequest struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

func (s *ClientService) Create(req CreateClientRequest, companyID string) (*entity.Client, error) {
	client := &entity.Client{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		Address:   req.Address,
		Notes:     req.Notes,
	}
	if err := s.repo.Create(client); err != nil {
		return nil, fmt.Errorf("创建客户失败: %w", err)
	}
	return client, nil
}

type UpdateClientRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

func (s *ClientService) Update(clientID, companyID string, req UpdateClientRequest) (*entity.Client, error) {
	client, err := s.repo.GetByID(companyID, clientID)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		client.Name = req.Name
	}
	if req.Phone != "" {
		client.Phone = req.Phone
	}
	if req.Email != "" {
		client.Email = req.Email
	}
	if req.Address != "" {
		client.Address = req.Address
	}
	if req.Notes != "" {
		client.Notes = req.Notes
	}
	if err := s.repo.Update(client); err != nil {
		return nil, fmt.Errorf("更新客户失败: %w", err)
	}
	return client, nil
}

func (s *ClientService) Get(clientID, companyID string) (*entity.Client, error) {
	return s.repo.GetByID(companyID, clientID)
}

func (s *ClientService) List(companyID string, params repository.ClientListParams) ([]entity.Client, int64, error) {
	return s.repo.List(companyID, params)
}

type CreateVehicleRequest struct {
	ClientID    string `json:"client_id" binding:"required"`
	Make        string `json:"make" binding:"required"`
	Model       string `json:"model"`
	Year        int    `json:"year"`
	PlateNumber string `json:"plate_number"`
	VIN         string `json:"vin"`
	Color       string `json:"color"`
	Mileage     int    `json:"mileage"`
}

func (s *ClientService) CreateVehicle(req CreateVehicleRequest, companyID string) (*entity.ClientVehicle, error) {
	if _, err := s.repo.GetByID(companyID, req.ClientID); err != nil {
		return nil, err
	}
	vehicle := &entity.ClientVehicle{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		ClientID:    req.ClientID,
		Make:        req.Make,
		Model:       req.Model,
		Year:        req.Year,
		PlateNumber: req.PlateNumber,
		VIN:         req.VIN,
		Color:       req.Color,
		Mileage:     req.Mileage,
	}
	if err := s.repo.CreateVehicle(vehicle); err != nil {
		return nil, fmt.Errorf("创建车辆失败: %w", err)
	}
	return vehicle, nil
}

func (s *ClientService) GetVehicle(vehicleID, companyID string) (*entity.ClientVehicle, error) {
	return s.repo.GetVehicle(companyID, vehicleID)
}

func (s *ClientService) ListVehicles(clientID, companyID string) ([]entity.ClientVehicle, error) {
	return s.repo.ListVehicles(companyID, clientID)
}
