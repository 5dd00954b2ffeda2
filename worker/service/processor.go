package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/canbahi79-lgtm/formatfactory/worker/cache"
	"github.com/canbahi79-lgtm/formatfactory/worker/kafka"
	"github.com/canbahi79-lgtm/formatfactory/worker/repository"
)

type DocumentRenderer interface {
	Render(ctx context.Context, contentText string, mapping map[string]any, templateURL string) ([]byte, error)
}

type PrintRenderer interface {
	Render(ctx context.Context, contentText string) ([]byte, error)
}

type ArtifactStore interface {
	Save(name string, data []byte) (string, error)
}

type StatusCache interface {
	Set(ctx context.Context, jobID string, snap cache.Snapshot) error
}

// Processor drives one job through its state machine: claim, render DOCX,
// store it, render PDF, store it, mark terminal. Any stage failure fails the
// whole job; the consumer loop is never broken by a job error.
type Processor struct {
	repo      repository.Repository
	cache     StatusCache
	documents DocumentRenderer
	printer   PrintRenderer
	store     ArtifactStore
	retention int
	logger    *zap.Logger
}

func NewProcessor(
	repo repository.Repository,
	statusCache StatusCache,
	documents DocumentRenderer,
	printer PrintRenderer,
	store ArtifactStore,
	retention int,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		repo:      repo,
		cache:     statusCache,
		documents: documents,
		printer:   printer,
		store:     store,
		retention: retention,
		logger:    logger,
	}
}

func (p *Processor) Process(ctx context.Context, msg *kafka.JobMessage) error {
	log := p.logger.With(
		zap.String("job_id", msg.JobID),
		zap.String("trace_id", msg.TraceID),
	)

	claimed, err := p.repo.ClaimJob(ctx, msg.JobID)
	if err != nil {
		log.Error("Failed to claim job", zap.Error(err))
		return err
	}
	if !claimed {
		// Re-delivered for an already terminal job; nothing to do.
		log.Info("Job not claimable, skipping")
		return nil
	}

	progress := 10
	p.cacheSnapshot(ctx, msg.JobID, cache.Snapshot{Status: "processing", Progress: progress})

	docxBytes, err := p.documents.Render(ctx, msg.ContentText, msg.Mapping, msg.TemplateURL)
	if err != nil {
		return p.fail(ctx, log, msg.JobID, progress, err)
	}
	progress = 40
	p.progress(ctx, msg.JobID, progress)

	docxURL, err := p.store.Save("job-"+msg.JobID+".docx", docxBytes)
	if err != nil {
		return p.fail(ctx, log, msg.JobID, progress, err)
	}
	progress = 60
	p.progress(ctx, msg.JobID, progress)

	pdfBytes, err := p.printer.Render(ctx, msg.ContentText)
	if err != nil {
		return p.fail(ctx, log, msg.JobID, progress, err)
	}
	progress = 90
	p.progress(ctx, msg.JobID, progress)

	pdfURL, err := p.store.Save("job-"+msg.JobID+".pdf", pdfBytes)
	if err != nil {
		return p.fail(ctx, log, msg.JobID, progress, err)
	}

	if err := p.repo.MarkSucceeded(ctx, msg.JobID, docxURL, pdfURL); err != nil {
		log.Error("Failed to mark job succeeded", zap.Error(err))
		return err
	}
	p.cacheSnapshot(ctx, msg.JobID, cache.Snapshot{
		Status:   "succeeded",
		Progress: 100,
		DocxURL:  docxURL,
		PdfURL:   pdfURL,
	})

	if err := p.repo.SweepTerminal(ctx, p.retention); err != nil {
		log.Warn("Retention sweep failed", zap.Error(err))
	}

	log.Info("Job completed",
		zap.String("docx_url", docxURL),
		zap.String("pdf_url", pdfURL),
	)
	return nil
}

func (p *Processor) progress(ctx context.Context, jobID string, value int) {
	if err := p.repo.SetProgress(ctx, jobID, value); err != nil {
		p.logger.Warn("Failed to update progress",
			zap.String("job_id", jobID),
			zap.Error(err),
		)
	}
	p.cacheSnapshot(ctx, jobID, cache.Snapshot{Status: "processing", Progress: value})
}

func (p *Processor) cacheSnapshot(ctx context.Context, jobID string, snap cache.Snapshot) {
	if err := p.cache.Set(ctx, jobID, snap); err != nil {
		p.logger.Warn("Failed to cache status snapshot",
			zap.String("job_id", jobID),
			zap.Error(err),
		)
	}
}

// fail records the job failure and returns nil: a broken job must not break
// the consumer loop. A shutdown mid-render is not the job's fault, so the
// error propagates instead and re-delivery retries the job.
func (p *Processor) fail(ctx context.Context, log *zap.Logger, jobID string, progress int, cause error) error {
	if ctx.Err() != nil {
		log.Warn("Render interrupted by shutdown, leaving job for re-delivery", zap.Error(cause))
		return ctx.Err()
	}

	log.Error("Job failed", zap.Error(cause))

	if err := p.repo.MarkFailed(ctx, jobID, cause.Error()); err != nil {
		log.Error("Failed to mark job failed", zap.Error(err))
	}
	p.cacheSnapshot(ctx, jobID, cache.Snapshot{
		Status:   "failed",
		Progress: progress,
		Error:    cause.Error(),
	})
	return nil
}
