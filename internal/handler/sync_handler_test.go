package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/eduops/cohort-sync-api/internal/models"
	"github.com/eduops/cohort-sync-api/internal/service"
)

type stubCourses struct{ err error }

func (s *stubCourses) FindByProgramID(ctx context.Context, programID string) (*models.Course, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Course{ID: "course-1", ProgramID: programID, Name: "Pilot Program", RemoteCourseID: 5000}, nil
}

type stubUsers struct{}

func (s *stubUsers) ExistsByParticipantID(ctx context.Context, participantID string) (bool, error) {
	return false, nil
}

type stubSnapshots struct{}

func (s *stubSnapshots) Find(ctx context.Context, participantID string) (*models.ParticipantSnapshot, error) {
	return nil, nil
}

func (s *stubSnapshots) Upsert(ctx context.Context, snapshot *models.ParticipantSnapshot) error {
	return nil
}

type stubSource struct{ roster []models.ParticipantSnapshot }

func (s *stubSource) ListParticipants(ctx context.Context, programID string) ([]models.ParticipantSnapshot, error) {
	return s.roster, nil
}

type stubReconciler struct{ err error }

func (s *stubReconciler) Reconcile(ctx context.Context, course *models.Course, diff service.Diff) error {
	return s.err
}

type stubLocks struct{ busy bool }

func (s *stubLocks) Acquire(ctx context.Context, programID string) (bool, error) {
	return !s.busy, nil
}

func (s *stubLocks) Release(ctx context.Context, programID string) error {
	return nil
}

type syncRouterOptions struct {
	roster       []models.ParticipantSnapshot
	courseErr    error
	lockBusy     bool
	reconcileErr error
}

func buildSyncRouter(opts syncRouterOptions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewProgramSyncService(
		&stubCourses{err: opts.courseErr},
		&stubUsers{},
		&stubSnapshots{},
		&stubSource{roster: opts.roster},
		&stubReconciler{err: opts.reconcileErr},
		&stubLocks{busy: opts.lockBusy},
		nil, nil, nil, nil,
	)
	router := gin.New()
	router.POST("/sync/programs/:id", NewSyncHandler(svc).Trigger)
	return router
}

func performRequest(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func enrolledLearner() models.ParticipantSnapshot {
	return models.ParticipantSnapshot{
		ParticipantID:     "p-1",
		ProgramID:         "prog-1",
		FullName:          "Ada Lovelace",
		Email:             "ada@example.com",
		Role:              models.RoleLearner,
		Status:            models.StatusEnrolled,
		ScheduleGroupID:   "sched-1",
		ScheduleGroupName: "Mon 7pm",
	}
}

func TestSyncTriggerSuccess(t *testing.T) {
	router := buildSyncRouter(syncRouterOptions{roster: []models.ParticipantSnapshot{enrolledLearner()}})

	resp := performRequest(router, http.MethodPost, "/sync/programs/prog-1")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"program_id":"prog-1"`)
	require.Contains(t, resp.Body.String(), `"synced":1`)
}

func TestSyncTriggerPartialFailureStillReturnsResult(t *testing.T) {
	router := buildSyncRouter(syncRouterOptions{
		roster:       []models.ParticipantSnapshot{enrolledLearner()},
		reconcileErr: errors.New("lms rejected enrollment"),
	})

	resp := performRequest(router, http.MethodPost, "/sync/programs/prog-1")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"partial":true`)
	require.Contains(t, resp.Body.String(), `"failed":1`)
	require.Contains(t, resp.Body.String(), `"failures"`)
}

func TestSyncTriggerConflictWhenLocked(t *testing.T) {
	router := buildSyncRouter(syncRouterOptions{lockBusy: true})

	resp := performRequest(router, http.MethodPost, "/sync/programs/prog-1")
	require.Equal(t, http.StatusConflict, resp.Code)
	require.Contains(t, resp.Body.String(), "SYNC_IN_PROGRESS")
}

func TestSyncTriggerUnconfiguredProgram(t *testing.T) {
	router := buildSyncRouter(syncRouterOptions{courseErr: sql.ErrNoRows})

	resp := performRequest(router, http.MethodPost, "/sync/programs/prog-9")
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	require.Contains(t, resp.Body.String(), "PROGRAM_CONFIG")
}
