package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/halodent/clinic-api/internal/dto"
	"github.com/halodent/clinic-api/internal/models"
	"github.com/halodent/clinic-api/internal/repository"
	appErrors "github.com/halodent/clinic-api/pkg/errors"
	"github.com/halodent/clinic-api/pkg/export"
	"github.com/halodent/clinic-api/pkg/jobs"
	"github.com/halodent/clinic-api/pkg/storage"
)

type exportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
}

type taskDispatcher interface {
	Enqueue(task jobs.Task) error
}

type daySheetSource interface {
	DaySheet(ctx context.Context, branchID, doctorID string, date time.Time, clinicName string) (*export.DaySheet, error)
}

type exportFileStore interface {
	Save(relPath string, data []byte) (string, error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes day-sheet export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ClinicName      string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
	MaxRetries      int
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	URL          string
	ExpiresAt    time.Time
}

// ExportDownload aggregates resolved download data.
type ExportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ExportFormat
	ExpiresAt time.Time
}

// DaySheetGenerator renders a job's day sheet and persists the file.
type DaySheetGenerator struct {
	sheets   daySheetSource
	store    exportFileStore
	exporter *export.DaySheetExporter
	signer   *storage.DownloadSigner
	cfg      ExportConfig
}

// NewDaySheetGenerator constructs a generator.
func NewDaySheetGenerator(sheets daySheetSource, store exportFileStore, signer *storage.DownloadSigner, cfg ExportConfig, exporter *export.DaySheetExporter) *DaySheetGenerator {
	if exporter == nil {
		exporter = export.NewDaySheetExporter()
	}
	return &DaySheetGenerator{
		sheets:   sheets,
		store:    store,
		exporter: exporter,
		signer:   signer,
		cfg:      cfg,
	}
}

// Generate builds the day sheet described by the job, renders it in the
// requested format and stores the file, returning a signed download URL.
func (g *DaySheetGenerator) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	date, err := models.ParseDate(job.Params.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid job date %q: %w", job.Params.Date, err)
	}
	sheet, err := g.sheets.DaySheet(ctx, job.BranchID, job.Params.DoctorID, date, g.cfg.ClinicName)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = g.exporter.RenderCSV(*sheet)
	case models.ExportFormatPDF:
		payload, err = g.exporter.RenderPDF(*sheet)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("%s/day-sheet-%s-%s.%s", job.BranchID, job.Params.DoctorID, job.Params.Date, job.Params.Format)
	relPath, err := g.store.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := g.signer.Sign(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(g.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		ExpiresAt:    expiresAt,
	}, nil
}

// VerifyToken validates download token metadata.
func (g *DaySheetGenerator) VerifyToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return g.signer.Verify(token, allowExpired)
}

// Open returns the stored file behind a relative path.
func (g *DaySheetGenerator) Open(relPath string) (*os.File, error) {
	return g.store.Open(relPath)
}

// Delete removes a stored export file.
func (g *DaySheetGenerator) Delete(relPath string) error {
	return g.store.Delete(relPath)
}

// Cleanup removes stored files older than the TTL.
func (g *DaySheetGenerator) Cleanup(ttl time.Duration) ([]string, error) {
	return g.store.CleanupOlderThan(ttl)
}

// ExportService orchestrates the day-sheet export job lifecycle.
type ExportService struct {
	repo      exportJobStore
	staff     staffLookupRepository
	queue     taskDispatcher
	generator *DaySheetGenerator
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs the export service.
func NewExportService(repo exportJobStore, staff staffLookupRepository, queue taskDispatcher, generator *DaySheetGenerator, validate *validator.Validate, logger *zap.Logger, cfg ExportConfig) *ExportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		repo:      repo,
		staff:     staff,
		queue:     queue,
		generator: generator,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// CreateJob validates the request, persists the job row and enqueues it.
func (s *ExportService) CreateJob(ctx context.Context, branchID string, req dto.ExportRequest, actorID string) (*dto.ExportJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf and doctor_id and date are required")
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	doctor, err := s.staff.FindByID(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}
	if doctor.BranchID != branchID {
		return nil, appErrors.Clone(appErrors.ErrCrossBranch, "doctor belongs to a different branch")
	}

	job := &models.ExportJob{
		BranchID: branchID,
		Params: models.ExportJobParams{
			DoctorID: req.DoctorID,
			Date:     date.Format(models.DateLayout),
			Format:   models.ExportFormat(strings.ToLower(req.Format)),
		},
		Status:    models.ExportStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Task{ID: job.ID, Kind: "day-sheet"}); err != nil {
		failed := models.ExportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		_ = s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
			Status:       &failed,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue export job")
	}
	return &dto.ExportJobResponse{ID: job.ID, Status: string(job.Status)}, nil
}

// Status exposes job metadata to clients within the owning branch.
func (s *ExportService) Status(ctx context.Context, branchID, id string) (*dto.ExportJobResponse, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.BranchID != branchID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	resp := &dto.ExportJobResponse{ID: job.ID, Status: string(job.Status), ResultURL: job.ResultURL}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload validates a token and opens the stored export file.
func (s *ExportService) ResolveDownload(ctx context.Context, token string) (*ExportDownload, error) {
	jobID, relPath, expiresAt, err := s.generator.VerifyToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ExportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "export not ready")
	}
	file, err := s.generator.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ExportDownload{
		File:      file,
		Filename:  filepath.Base(relPath),
		Format:    job.Params.Format,
		ExpiresAt: expiresAt,
	}, nil
}

// RecoverPending replays queued jobs after a process restart.
func (s *ExportService) RecoverPending(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued export jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Task{ID: job.ID, Kind: "day-sheet"}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue export job", "job_id", job.ID, "error", err)
		}
	}
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ExportService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	for {
		stale, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
		if err != nil {
			s.logger.Sugar().Warnw("export cleanup list failed", "error", err)
			return
		}
		if len(stale) == 0 {
			break
		}
		for _, job := range stale {
			if job.ResultURL == nil {
				continue
			}
			token := lastPathSegment(*job.ResultURL)
			if token == "" {
				continue
			}
			_, relPath, _, err := s.generator.VerifyToken(token, true)
			if err != nil {
				continue
			}
			if err := s.generator.Delete(relPath); err != nil {
				s.logger.Sugar().Warnw("export cleanup delete failed", "job_id", job.ID, "error", err)
			}
		}
		if len(stale) < 100 {
			break
		}
	}
	if _, err := s.generator.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Sugar().Warnw("export filesystem cleanup failed", "error", err)
	}
}

func lastPathSegment(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

// ExportWorker bridges queue tasks to the generator, recording job state.
type ExportWorker struct {
	repo       exportJobStore
	generator  *DaySheetGenerator
	logger     *zap.Logger
	maxRetries int
}

// NewExportWorker constructs a worker.
func NewExportWorker(repo exportJobStore, generator *DaySheetGenerator, maxRetries int, logger *zap.Logger) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ExportWorker{
		repo:       repo,
		generator:  generator,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Handle processes one queued export task.
func (w *ExportWorker) Handle(ctx context.Context, task jobs.Task) error {
	record, err := w.repo.FindByID(ctx, task.ID)
	if err != nil {
		return err
	}
	running := models.ExportStatusRunning
	if err := w.repo.Update(ctx, task.ID, repository.UpdateExportJobParams{Status: &running}); err != nil {
		return err
	}

	result, err := w.generator.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		if task.Attempt >= w.maxRetries {
			failed := models.ExportStatusFailed
			now := time.Now().UTC()
			if updateErr := w.repo.Update(ctx, task.ID, repository.UpdateExportJobParams{
				Status:       &failed,
				ErrorMessage: &msg,
				FinishedAt:   &now,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark export job failed", "job_id", task.ID, "error", updateErr)
			}
		} else {
			queued := models.ExportStatusQueued
			if updateErr := w.repo.Update(ctx, task.ID, repository.UpdateExportJobParams{
				Status:       &queued,
				ErrorMessage: &msg,
			}); updateErr != nil {
				w.logger.Sugar().Warnw("failed to mark export job queued", "job_id", task.ID, "error", updateErr)
			}
		}
		return err
	}

	finished := models.ExportStatusFinished
	now := time.Now().UTC()
	url := result.URL
	clear := ""
	if err := w.repo.Update(ctx, task.ID, repository.UpdateExportJobParams{
		Status:       &finished,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark export job finished", "job_id", task.ID, "error", err)
		return err
	}
	return nil
}
