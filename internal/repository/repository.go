package repository

import (
	"context"
	"database/sql"
	"time"

	"weighstation/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

type RecordRepo interface {
	Save(ctx context.Context, rec models.WeightRecord) error
	Latest(ctx context.Context) (models.WeightRecord, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.StationEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.StationEvent, error)
}

type Repository struct {
	Records RecordRepo
	Events  EventRepo
	Auth    Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Records: NewRecordSQLite(db),
		Events:  NewEventSQLite(db),
		Auth:    NewUserRepository(db),
	}
}
