package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/eduops/cohort-sync-api/internal/models"
	appErrors "github.com/eduops/cohort-sync-api/pkg/errors"
)

type groupStore interface {
	FindByExternalGrouping(ctx context.Context, courseID, externalGroupingID string) (*models.Group, error)
	ListFixedByKind(ctx context.Context, courseID string, kind models.GroupKind) ([]models.Group, error)
	ListByKind(ctx context.Context, courseID string, kind models.GroupKind) ([]models.Group, error)
	Insert(ctx context.Context, group *models.Group) (bool, error)
	UpdateRemoteID(ctx context.Context, id string, remoteGroupID int64) error
	Delete(ctx context.Context, id string) error
}

// GroupSpec describes the group a participant must belong to.
type GroupSpec struct {
	Name string
	// ExternalGroupingID is empty for system-generated fixed groups, of
	// which at most one may exist per (course, kind).
	ExternalGroupingID string
	Kind               models.GroupKind
	// CopyOverridesFrom names the remote group whose assignment date
	// overrides seed a newly created group, so a cohort does not lose its
	// due dates the moment it is created.
	CopyOverridesFrom *int64
}

// GroupResolver finds or lazily creates the local and remote halves of a
// group together. The local row is created first so it has an id to
// reference; if the remote side fails, the local row is rolled back rather
// than left orphaned.
type GroupResolver struct {
	groups groupStore
	lms    RemoteLmsClient
	logger *zap.Logger
}

// NewGroupResolver constructs GroupResolver.
func NewGroupResolver(groups groupStore, lmsClient RemoteLmsClient, logger *zap.Logger) *GroupResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupResolver{groups: groups, lms: lmsClient, logger: logger}
}

// FindOrCreate returns the group matching the spec, creating it locally and
// remotely when absent. Idempotent: an existing group is returned unchanged.
func (r *GroupResolver) FindOrCreate(ctx context.Context, course *models.Course, spec GroupSpec) (*models.Group, error) {
	existing, err := r.find(ctx, course.ID, spec)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	group := &models.Group{
		CourseID: course.ID,
		Name:     spec.Name,
		Kind:     spec.Kind,
	}
	if spec.ExternalGroupingID != "" {
		extID := spec.ExternalGroupingID
		group.ExternalGroupingID = &extID
	}

	inserted, err := r.groups.Insert(ctx, group)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// Lost the uniqueness race; the winner's row is the group.
		winner, err := r.find(ctx, course.ID, spec)
		if err != nil {
			return nil, err
		}
		if winner == nil {
			return nil, fmt.Errorf("group for course %s vanished after conflicting insert", course.ID)
		}
		return winner, nil
	}

	remoteID, err := r.lms.CreateGroup(ctx, course.RemoteCourseID, spec.Name)
	if err != nil {
		if delErr := r.groups.Delete(ctx, group.ID); delErr != nil {
			r.logger.Error("rollback of local group failed",
				zap.String("group_id", group.ID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("create remote group %q: %w", spec.Name, err)
	}
	if err := r.groups.UpdateRemoteID(ctx, group.ID, remoteID); err != nil {
		return nil, err
	}
	group.RemoteGroupID = &remoteID

	if spec.Kind == models.GroupKindCohort && spec.CopyOverridesFrom != nil {
		r.copyOverrides(ctx, course, *spec.CopyOverridesFrom, remoteID)
	}

	return group, nil
}

func (r *GroupResolver) find(ctx context.Context, courseID string, spec GroupSpec) (*models.Group, error) {
	if spec.ExternalGroupingID != "" {
		return r.groups.FindByExternalGrouping(ctx, courseID, spec.ExternalGroupingID)
	}

	fixed, err := r.groups.ListFixedByKind(ctx, courseID, spec.Kind)
	if err != nil {
		return nil, err
	}
	switch len(fixed) {
	case 0:
		return nil, nil
	case 1:
		return &fixed[0], nil
	default:
		return nil, appErrors.Clone(appErrors.ErrGroupConfig,
			fmt.Sprintf("found %d fixed %s groups for course %s, expected at most one", len(fixed), spec.Kind, courseID))
	}
}

// copyOverrides is best-effort: a cohort that starts without its schedule
// group's due dates is logged, not failed.
func (r *GroupResolver) copyOverrides(ctx context.Context, course *models.Course, fromRemoteID, toRemoteID int64) {
	overrides, err := r.lms.ListGroupOverrides(ctx, course.RemoteCourseID, fromRemoteID)
	if err != nil {
		r.logger.Warn("listing source group overrides failed",
			zap.Int64("source_remote_group_id", fromRemoteID), zap.Error(err))
		return
	}

	for _, override := range overrides {
		override.GroupID = &toRemoteID
		override.StudentIDs = nil
		if err := r.lms.CreateOverride(ctx, course.RemoteCourseID, override); err != nil {
			r.logger.Warn("copying override to new group failed",
				zap.Int64("assignment_id", override.AssignmentID),
				zap.Int64("target_remote_group_id", toRemoteID),
				zap.Error(err))
		}
	}
}
