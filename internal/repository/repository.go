package repository

import "gorm.io/gorm"

// Repositories 仓库集合
type Repositories struct {
	Session   *SessionRepository
	JobCard   *JobCardRepository
	Inventory *InventoryRepository
	Client    *ClientRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Session:   NewSessionRepository(db),
		JobCard:   NewJobCardRepository(db),
		Inventory: NewInventoryRepository(db),
		Client:    NewClientRepository(db),
	}
}
