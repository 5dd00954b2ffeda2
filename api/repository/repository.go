package repository

import (
	"context"
	"errors"

	"github.com/canbahi79-lgtm/formatfactory/api/models"
)

var ErrJobNotFound = errors.New("job not found")

type Repository interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	MarkFailed(ctx context.Context, id, message string) error
}
