package postgres

import (
	"gorm.io/gorm"

	"github.com/shoplane/identity-service/internal/ports"
)

// Repositories bundles the Postgres-backed persistence adapters.
type Repositories struct {
	Users           ports.UserRepository
	Events          ports.EventStoreRepository
	Outbox          ports.OutboxRepository
	ProcessedEvents ports.ProcessedEventRepository
	LoginAttempts   ports.LoginAttemptRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:           &userRepository{db: db},
		Events:          &eventStoreRepository{db: db},
		Outbox:          &outboxRepository{db: db},
		ProcessedEvents: &processedEventRepository{db: db},
		LoginAttempts:   &loginAttemptRepository{db: db},
	}
}
