package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/canbahi79-lgtm/formatfactory/api/cache"
	"github.com/canbahi79-lgtm/formatfactory/api/dto"
	"github.com/canbahi79-lgtm/formatfactory/api/kafka"
	"github.com/canbahi79-lgtm/formatfactory/api/models"
	"github.com/canbahi79-lgtm/formatfactory/api/repository"
)

// StatusCache is the slice of the redis cache the gateway needs.
type StatusCache interface {
	Get(ctx context.Context, jobID string) (*cache.Snapshot, error)
	Set(ctx context.Context, jobID string, snap cache.Snapshot) error
}

type JobService struct {
	repo     repository.Repository
	cache    StatusCache
	producer kafka.Producer
	topic    string
}

func NewJobService(repo repository.Repository, cache StatusCache, producer kafka.Producer, topic string) *JobService {
	return &JobService{
		repo:     repo,
		cache:    cache,
		producer: producer,
		topic:    topic,
	}
}

// CreateJob validates the payload, persists a queued job and hands it to the
// queue. Nothing is created for an empty manuscript.
func (s *JobService) CreateJob(ctx context.Context, traceID string, req *dto.ConvertRequest) (*dto.ConvertResponse, error) {
	if strings.TrimSpace(req.ContentText) == "" {
		return nil, dto.ErrEmptyContent
	}

	mapping := req.Mapping
	if mapping == nil {
		mapping = map[string]any{}
	}

	job := &models.Job{
		ID:          uuid.New().String(),
		TraceID:     traceID,
		ContentText: req.ContentText,
		Mapping:     mapping,
		TemplateURL: req.TemplateURL,
		Status:      models.StatusQueued,
		Progress:    0,
	}

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	s.cache.Set(ctx, job.ID, cache.Snapshot{Status: string(models.StatusQueued)})

	msg := &kafka.JobMessage{
		JobID:       job.ID,
		TraceID:     traceID,
		ContentText: job.ContentText,
		Mapping:     job.Mapping,
		TemplateURL: job.TemplateURL,
	}
	if err := s.producer.SendJobMessage(ctx, s.topic, msg); err != nil {
		// The row is already durable but no worker will ever see it.
		if mErr := s.repo.MarkFailed(ctx, job.ID, "enqueue failed"); mErr == nil {
			s.cache.Set(ctx, job.ID, cache.Snapshot{
				Status: string(models.StatusFailed),
				Error:  "enqueue failed",
			})
		}
		return nil, err
	}

	return &dto.ConvertResponse{JobID: job.ID}, nil
}

func (s *JobService) GetJobStatus(ctx context.Context, jobID string) (*dto.StatusResponse, error) {
	if snap, err := s.cache.Get(ctx, jobID); err == nil {
		return &dto.StatusResponse{
			JobID:    jobID,
			Status:   snap.Status,
			Progress: snap.Progress,
			DocxURL:  snap.DocxURL,
			PdfURL:   snap.PdfURL,
			Error:    snap.Error,
		}, nil
	}

	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, dto.ErrJobNotFound
		}
		return nil, err
	}

	s.cache.Set(ctx, job.ID, cache.Snapshot{
		Status:   string(job.Status),
		Progress: job.Progress,
		DocxURL:  job.DocxURL,
		PdfURL:   job.PdfURL,
		Error:    job.ErrorMessage,
	})

	return &dto.StatusResponse{
		JobID:    job.ID,
		Status:   string(job.Status),
		Progress: job.Progress,
		DocxURL:  job.DocxURL,
		PdfURL:   job.PdfURL,
		Error:    job.ErrorMessage,
	}, nil
}
