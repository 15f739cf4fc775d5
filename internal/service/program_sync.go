package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eduops/cohort-sync-api/internal/models"
	appErrors "github.com/eduops/cohort-sync-api/pkg/errors"
)

type courseReader interface {
	FindByProgramID(ctx context.Context, programID string) (*models.Course, error)
}

type userExistenceChecker interface {
	ExistsByParticipantID(ctx context.Context, participantID string) (bool, error)
}

type snapshotStore interface {
	Find(ctx context.Context, participantID string) (*models.ParticipantSnapshot, error)
	Upsert(ctx context.Context, snapshot *models.ParticipantSnapshot) error
}

type reconciler interface {
	Reconcile(ctx context.Context, course *models.Course, diff Diff) error
}

type syncLocker interface {
	Acquire(ctx context.Context, programID string) (bool, error)
	Release(ctx context.Context, programID string) error
}

// ProgramSyncService walks a program's roster and reconciles each changed
// participant, isolating per-participant failures so one bad record never
// blocks the rest of the cohort.
type ProgramSyncService struct {
	courses      courseReader
	users        userExistenceChecker
	snapshots    snapshotStore
	source       SnapshotSource
	reconciler   reconciler
	locks        syncLocker
	conferencing ConferencingRegistrar
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewProgramSyncService constructs ProgramSyncService. conferencing and
// metrics may be nil.
func NewProgramSyncService(courses courseReader, users userExistenceChecker, snapshots snapshotStore, source SnapshotSource, rec reconciler, locks syncLocker, conferencing ConferencingRegistrar, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ProgramSyncService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgramSyncService{
		courses:      courses,
		users:        users,
		snapshots:    snapshots,
		source:       source,
		reconciler:   rec,
		locks:        locks,
		conferencing: conferencing,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
	}
}

// SyncProgram pulls the full roster for a program, diffs every participant
// against their last persisted snapshot and reconciles the changed ones.
// Configuration problems abort the run before any participant is touched;
// participant failures are collected and reported together.
func (s *ProgramSyncService) SyncProgram(ctx context.Context, programID string) (*models.SyncResult, error) {
	if err := s.validator.Var(programID, "required"); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "program id is required")
	}

	acquired, err := s.locks.Acquire(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire sync lock")
	}
	if !acquired {
		return nil, appErrors.Clone(appErrors.ErrSyncInProgress, "")
	}
	defer func() {
		if err := s.locks.Release(context.WithoutCancel(ctx), programID); err != nil {
			s.logger.Error("releasing sync lock failed", zap.String("program_id", programID), zap.Error(err))
		}
	}()

	course, err := s.courses.FindByProgramID(ctx, programID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrProgramConfig,
				fmt.Sprintf("no course configured for program %s", programID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program course")
	}

	roster, err := s.source.ListParticipants(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRemoteAPI.Code, appErrors.ErrRemoteAPI.Status, "failed to fetch participant roster")
	}

	start := time.Now()
	result := &models.SyncResult{ProgramID: programID, Processed: len(roster)}

	for _, current := range roster {
		if err := ctx.Err(); err != nil {
			s.recordRun(programID, "cancelled", start)
			return result, err
		}

		if err := s.syncParticipant(ctx, course, current); err != nil {
			if errors.Is(err, errSkipped) {
				result.Skipped++
				s.recordParticipant(programID, "skipped")
				continue
			}
			appErr := appErrors.FromError(err)
			result.Failed++
			result.Failures = append(result.Failures, models.FailedParticipant{
				ParticipantID: current.ParticipantID,
				FullName:      current.FullName,
				Email:         current.Email,
				Reason:        appErr.Error(),
			})
			s.recordParticipant(programID, "failed")
			s.logger.Warn("participant sync failed",
				zap.String("program_id", programID),
				zap.String("participant_id", current.ParticipantID),
				zap.Error(err))
			continue
		}

		result.Synced++
		s.recordParticipant(programID, "synced")
	}

	if result.Failed > 0 {
		s.recordRun(programID, "partial", start)
		return result, appErrors.Clone(appErrors.ErrPartialSync,
			fmt.Sprintf("%d of %d participants failed to sync", result.Failed, result.Processed))
	}

	s.recordRun(programID, "success", start)
	return result, nil
}

// errSkipped marks a participant that needed no writes at all.
var errSkipped = errors.New("participant skipped")

func (s *ProgramSyncService) syncParticipant(ctx context.Context, course *models.Course, current models.ParticipantSnapshot) error {
	previous, err := s.snapshots.Find(ctx, current.ParticipantID)
	if err != nil {
		return err
	}
	localUserExists, err := s.users.ExistsByParticipantID(ctx, current.ParticipantID)
	if err != nil {
		return err
	}

	diff := ComputeDiff(previous, current, localUserExists)
	if !diff.Changed() {
		return errSkipped
	}

	if err := s.reconciler.Reconcile(ctx, course, diff); err != nil {
		return fmt.Errorf("participant %s: %w", current.ParticipantID, err)
	}

	if s.conferencing != nil && diff.ConferencingChanged() {
		if err := s.conferencing.RegisterParticipant(ctx, current); err != nil {
			// Conferencing registration is best-effort; the enrollment
			// reconciliation already succeeded.
			s.logger.Warn("conferencing registration failed",
				zap.String("participant_id", current.ParticipantID),
				zap.Error(err))
		}
	}

	if err := s.snapshots.Upsert(ctx, &current); err != nil {
		return fmt.Errorf("persist snapshot for %s: %w", current.ParticipantID, err)
	}
	return nil
}

func (s *ProgramSyncService) recordParticipant(programID, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordParticipant(programID, outcome)
	}
}

func (s *ProgramSyncService) recordRun(programID, outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordSyncRun(programID, outcome, time.Since(start))
	}
}
