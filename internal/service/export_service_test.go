package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halodent/clinic-api/internal/dto"
	"github.com/halodent/clinic-api/internal/models"
	"github.com/halodent/clinic-api/internal/repository"
	"github.com/halodent/clinic-api/pkg/export"
	"github.com/halodent/clinic-api/pkg/jobs"
	"github.com/halodent/clinic-api/pkg/storage"
)

type fakeExportJobStore struct {
	jobs   map[string]*models.ExportJob
	nextID int
}

func newFakeExportJobStore() *fakeExportJobStore {
	return &fakeExportJobStore{jobs: make(map[string]*models.ExportJob)}
}

func (r *fakeExportJobStore) Create(_ context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		r.nextID++
		job.ID = fmt.Sprintf("job-%d", r.nextID)
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	copied := *job
	r.jobs[job.ID] = &copied
	return nil
}

func (r *fakeExportJobStore) FindByID(_ context.Context, id string) (*models.ExportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *job
	return &copied, nil
}

func (r *fakeExportJobStore) Update(_ context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *fakeExportJobStore) ListQueued(_ context.Context, _ int) ([]models.ExportJob, error) {
	var queued []models.ExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *fakeExportJobStore) ListFinishedBefore(_ context.Context, cutoff time.Time, _ int) ([]models.ExportJob, error) {
	var finished []models.ExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			finished = append(finished, *job)
		}
	}
	return finished, nil
}

type recordingDispatcher struct {
	tasks []jobs.Task
	err   error
}

func (d *recordingDispatcher) Enqueue(task jobs.Task) error {
	if d.err != nil {
		return d.err
	}
	d.tasks = append(d.tasks, task)
	return nil
}

type stubSheetSource struct {
	sheet *export.DaySheet
	err   error
}

func (s *stubSheetSource) DaySheet(_ context.Context, _, _ string, date time.Time, clinicName string) (*export.DaySheet, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.sheet != nil {
		return s.sheet, nil
	}
	return &export.DaySheet{
		ClinicName: clinicName,
		DoctorName: "Greta Holm",
		Date:       date,
		Rows: []export.DaySheetRow{
			{Sequence: "001", TimeRange: "10:00-11:00", Name: "Checkup", Patient: "Ines Falk", Office: "Room 1"},
		},
	}, nil
}

type exportTestFixture struct {
	svc       *ExportService
	worker    *ExportWorker
	store     *fakeExportJobStore
	dispatch  *recordingDispatcher
	sheets    *stubSheetSource
	generator *DaySheetGenerator
}

func newExportFixture(t *testing.T, staff ...*models.Staff) *exportTestFixture {
	t.Helper()
	fileStore, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	sheets := &stubSheetSource{}
	cfg := ExportConfig{APIPrefix: "/api/v1", ClinicName: "Halodent", ResultTTL: time.Hour, MaxRetries: 2}
	signer := storage.NewDownloadSigner("test-secret", time.Hour)
	generator := NewDaySheetGenerator(sheets, fileStore, signer, cfg, export.NewDaySheetExporter())

	store := newFakeExportJobStore()
	dispatch := &recordingDispatcher{}
	svc := NewExportService(store, newFakeStaffRepo(staff...), dispatch, generator, nil, nil, cfg)
	worker := NewExportWorker(store, generator, cfg.MaxRetries, nil)

	return &exportTestFixture{svc: svc, worker: worker, store: store, dispatch: dispatch, sheets: sheets, generator: generator}
}

func TestExportCreateJobQueuesWork(t *testing.T) {
	fixture := newExportFixture(t, testDoctor())

	resp, err := fixture.svc.CreateJob(context.Background(), "branch-1", dto.ExportRequest{
		DoctorID: "doc-1",
		Date:     mondayRaw,
		Format:   "csv",
	}, "usr-1")
	require.NoError(t, err)
	assert.Equal(t, string(models.ExportStatusQueued), resp.Status)

	require.Len(t, fixture.dispatch.tasks, 1)
	assert.Equal(t, resp.ID, fixture.dispatch.tasks[0].ID)

	stored, err := fixture.store.FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", stored.Params.DoctorID)
	assert.Equal(t, models.ExportFormatCSV, stored.Params.Format)
	assert.Equal(t, "usr-1", stored.CreatedBy)
}

func TestExportCreateJobRejectsUnknownFormat(t *testing.T) {
	fixture := newExportFixture(t, testDoctor())

	_, err := fixture.svc.CreateJob(context.Background(), "branch-1", dto.ExportRequest{
		DoctorID: "doc-1",
		Date:     mondayRaw,
		Format:   "xlsx",
	}, "usr-1")
	assertErrorCode(t, err, "VALIDATION_ERROR")
}

func TestExportCreateJobRejectsUnknownDoctor(t *testing.T) {
	fixture := newExportFixture(t)

	_, err := fixture.svc.CreateJob(context.Background(), "branch-1", dto.ExportRequest{
		DoctorID: "doc-9",
		Date:     mondayRaw,
		Format:   "pdf",
	}, "usr-1")
	assertErrorCode(t, err, "NOT_FOUND")
}

func TestExportCreateJobRejectsCrossBranchDoctor(t *testing.T) {
	doctor := testDoctor()
	doctor.BranchID = "branch-2"
	fixture := newExportFixture(t, doctor)

	_, err := fixture.svc.CreateJob(context.Background(), "branch-1", dto.ExportRequest{
		DoctorID: "doc-1",
		Date:     mondayRaw,
		Format:   "pdf",
	}, "usr-1")
	assertErrorCode(t, err, "CROSS_BRANCH")
}

func TestExportWorkerFinishesJob(t *testing.T) {
	fixture := newExportFixture(t, testDoctor())

	resp, err := fixture.svc.CreateJob(context.Background(), "branch-1", dto.ExportRequest{
		DoctorID: "doc-1",
		Date:     mondayRaw,
		Format:   "csv",
	}, "usr-1")
	require.NoError(t, err)

	require.NoError(t, fixture.worker.Handle(context.Background(), fixture.dispatch.tasks[0]))

	stored, err := fixture.store.FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, stored.Status)
	require.NotNil(t, stored.ResultURL)
	assert.Contains(t, *stored.ResultURL, "/api/v1/export/")
	require.NotNil(t, stored.FinishedAt)
}

func TestExportDownloadRoundTrip(t *testing.T) {
	fixture := newExportFixture(t, testDoctor())

	resp, err := fixture.svc.CreateJob(context.Background(), "branch-1", dto.ExportRequest{
		DoctorID: "doc-1",
		Date:     mondayRaw,
		Format:   "csv",
	}, "usr-1")
	require.NoError(t, err)
	require.NoError(t, fixture.worker.Handle(context.Background(), fixture.dispatch.tasks[0]))

	stored, err := fixture.store.FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResultURL)
	token := (*stored.ResultURL)[strings.LastIndex(*stored.ResultURL, "/")+1:]

	download, err := fixture.svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	defer download.File.Close()

	assert.Equal(t, models.ExportFormatCSV, download.Format)
	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Checkup")
}

func TestExportDownloadRejectsForgedToken(t *testing.T) {
	fixture := newExportFixture(t, testDoctor())

	forged := storage.NewDownloadSigner("other-secret", time.Hour)
	token, _, err := forged.Sign("job-1", "branch-1/day-sheet.csv")
	require.NoError(t, err)

	_, err = fixture.svc.ResolveDownload(context.Background(), token)
	assertErrorCode(t, err, "FORBIDDEN")
}

func TestExportDownloadRejectsUnfinishedJob(t *testing.T) {
	fixture := newExportFixture(t, testDoctor())

	resp, err := fixture.svc.CreateJob(context.Background(), "branch-1", dto.ExportRequest{
		DoctorID: "doc-1",
		Date:     mondayRaw,
		Format:   "csv",
	}, "usr-1")
	require.NoError(t, err)

	token, _, err := fixture.generator.signer.Sign(resp.ID, "branch-1/day-sheet.csv")
	require.NoError(t, err)

	_, err = fixture.svc.ResolveDownload(context.Background(), token)
	assertErrorCode(t, err, "FORBIDDEN")
}

func TestExportWorkerMarksJobFailedAfterRetries(t *testing.T) {
	fixture := newExportFixture(t, testDoctor())
	fixture.sheets.err = assert.AnError

	resp, err := fixture.svc.CreateJob(context.Background(), "branch-1", dto.ExportRequest{
		DoctorID: "doc-1",
		Date:     mondayRaw,
		Format:   "pdf",
	}, "usr-1")
	require.NoError(t, err)

	task := fixture.dispatch.tasks[0]
	task.Attempt = 2
	require.Error(t, fixture.worker.Handle(context.Background(), task))

	stored, err := fixture.store.FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.NotEmpty(t, *stored.ErrorMessage)
}

func TestExportStatusScopedToBranch(t *testing.T) {
	fixture := newExportFixture(t, testDoctor())

	resp, err := fixture.svc.CreateJob(context.Background(), "branch-1", dto.ExportRequest{
		DoctorID: "doc-1",
		Date:     mondayRaw,
		Format:   "csv",
	}, "usr-1")
	require.NoError(t, err)

	_, err = fixture.svc.Status(context.Background(), "branch-2", resp.ID)
	assertErrorCode(t, err, "NOT_FOUND")

	status, err := fixture.svc.Status(context.Background(), "branch-1", resp.ID)
	require.NoError(t, err)
	assert.Equal(t, string(models.ExportStatusQueued), status.Status)
}

func TestExportRecoverPendingRequeuesQueuedJobs(t *testing.T) {
	fixture := newExportFixture(t, testDoctor())

	_, err := fixture.svc.CreateJob(context.Background(), "branch-1", dto.ExportRequest{
		DoctorID: "doc-1",
		Date:     mondayRaw,
		Format:   "csv",
	}, "usr-1")
	require.NoError(t, err)

	fixture.dispatch.tasks = nil
	fixture.svc.RecoverPending(context.Background())
	assert.Len(t, fixture.dispatch.tasks, 1)
}
