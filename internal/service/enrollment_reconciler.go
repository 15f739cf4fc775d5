package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/eduops/cohort-sync-api/internal/lms"
	"github.com/eduops/cohort-sync-api/internal/models"
)

type userStore interface {
	FindByParticipantID(ctx context.Context, participantID string) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) error
}

type assignmentStore interface {
	ListByUserAndCourse(ctx context.Context, userID, courseID string) ([]models.Assignment, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error
}

type groupKindLister interface {
	ListByKind(ctx context.Context, courseID string, kind models.GroupKind) ([]models.Group, error)
}

type groupResolver interface {
	FindOrCreate(ctx context.Context, course *models.Course, spec GroupSpec) (*models.Group, error)
}

// Remote role names expected by the LMS enrollment API.
const (
	remoteRoleStudent   = "student"
	remoteRoleCoach     = "coach"
	remoteRoleAssistant = "assistant"
)

const fixedAssistantsGroupName = "Assistants"

// EnrollmentReconciler applies a participant diff to the local store and the
// remote LMS. Primary enrollment uses a drop-and-rebuild strategy: all
// existing primary assignments are cleared and exactly one new one is
// created, with the participant's assignment date overrides carried across
// the rebuild.
type EnrollmentReconciler struct {
	users       userStore
	assignments assignmentStore
	groups      groupKindLister
	resolver    groupResolver
	lms         RemoteLmsClient
	logger      *zap.Logger
}

// NewEnrollmentReconciler constructs EnrollmentReconciler.
func NewEnrollmentReconciler(users userStore, assignments assignmentStore, groups groupKindLister, resolver groupResolver, lmsClient RemoteLmsClient, logger *zap.Logger) *EnrollmentReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentReconciler{
		users:       users,
		assignments: assignments,
		groups:      groups,
		resolver:    resolver,
		lms:         lmsClient,
		logger:      logger,
	}
}

// Reconcile brings the local store and the remote LMS into agreement with
// the current snapshot. Any failure aborts this participant; no partial
// state is assumed safe, so the caller must not persist the snapshot.
func (s *EnrollmentReconciler) Reconcile(ctx context.Context, course *models.Course, diff Diff) error {
	snapshot := diff.Current

	user, err := s.ensureUser(ctx, snapshot, diff.ContactChanged())
	if err != nil {
		return fmt.Errorf("ensure local user: %w", err)
	}

	if diff.PrimaryEnrollmentChanged() {
		if err := s.rebuildPrimary(ctx, course, user, snapshot); err != nil {
			return fmt.Errorf("rebuild primary enrollment: %w", err)
		}
	}

	if diff.CaseloadChanged() || diff.PrimaryEnrollmentChanged() {
		if err := s.reconcileCaseloads(ctx, course, user, snapshot); err != nil {
			return fmt.Errorf("reconcile caseloads: %w", err)
		}
	}

	return nil
}

func (s *EnrollmentReconciler) ensureUser(ctx context.Context, snapshot models.ParticipantSnapshot, contactChanged bool) (*models.User, error) {
	user, err := s.users.FindByParticipantID(ctx, snapshot.ParticipantID)
	if err != nil {
		return nil, err
	}
	if user != nil && !contactChanged {
		return user, nil
	}

	if user == nil {
		user = &models.User{ParticipantID: snapshot.ParticipantID}
	}
	user.FullName = snapshot.FullName
	user.Email = snapshot.Email
	user.CRMContactID = snapshot.CRMContactID
	user.RemoteUserID = snapshot.RemoteUserID
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// rebuildPrimary tears down every primary assignment and builds the single
// correct one. Dropping a remote enrollment cascades away the student's
// individual date overrides, so they are fetched first and re-created after
// the new enrollment exists.
func (s *EnrollmentReconciler) rebuildPrimary(ctx context.Context, course *models.Course, user *models.User, snapshot models.ParticipantSnapshot) error {
	overrides, err := s.lms.ListUserOverrides(ctx, course.RemoteCourseID, user.RemoteUserID)
	if err != nil {
		return fmt.Errorf("fetch overrides before teardown: %w", err)
	}

	existing, err := s.assignments.ListByUserAndCourse(ctx, user.ID, course.ID)
	if err != nil {
		return err
	}
	if len(existing) > 1 {
		// Should be impossible; the rebuild self-heals by clearing all of them.
		s.logger.Warn("participant holds duplicate primary assignments",
			zap.String("participant_id", snapshot.ParticipantID),
			zap.Int("count", len(existing)))
	}
	for _, assignment := range existing {
		if assignment.RemoteEnrollmentID != nil {
			if err := s.lms.UnenrollUser(ctx, *assignment.RemoteEnrollmentID); err != nil {
				return fmt.Errorf("unenroll %d: %w", *assignment.RemoteEnrollmentID, err)
			}
		}
		if err := s.assignments.Delete(ctx, assignment.ID); err != nil {
			return err
		}
	}

	if snapshot.Status != models.StatusEnrolled {
		return nil
	}

	group, err := s.targetGroup(ctx, course, snapshot)
	if err != nil {
		return err
	}
	if group.RemoteGroupID == nil {
		return fmt.Errorf("group %s has no remote counterpart", group.ID)
	}

	remoteEnrollmentID, err := s.lms.EnrollUser(ctx, user.RemoteUserID, *group.RemoteGroupID, remoteRole(snapshot.Role), false)
	if err != nil {
		return fmt.Errorf("enroll in group %q: %w", group.Name, err)
	}

	if err := s.assignments.Create(ctx, &models.Assignment{
		CourseID:           course.ID,
		UserID:             user.ID,
		GroupID:            group.ID,
		Role:               snapshot.Role,
		RemoteEnrollmentID: &remoteEnrollmentID,
	}); err != nil {
		return err
	}

	for _, override := range overrides {
		override.StudentIDs = []int64{user.RemoteUserID}
		override.GroupID = nil
		if err := s.lms.CreateOverride(ctx, course.RemoteCourseID, override); err != nil {
			return fmt.Errorf("restore override for assignment %d: %w", override.AssignmentID, err)
		}
	}

	return nil
}

// targetGroup resolves the one group that should hold the participant's
// primary enrollment. Learners and coaches graduate from their schedule
// group to a cohort group once the manual grouping step assigns one.
func (s *EnrollmentReconciler) targetGroup(ctx context.Context, course *models.Course, snapshot models.ParticipantSnapshot) (*models.Group, error) {
	switch snapshot.Role {
	case models.RoleLearner, models.RoleCoach:
		if snapshot.ScheduleGroupID == "" && snapshot.CohortGroupID == nil {
			return nil, fmt.Errorf("participant %s has no schedule or cohort group assigned", snapshot.ParticipantID)
		}

		var scheduleGroup *models.Group
		if snapshot.ScheduleGroupID != "" {
			var err error
			scheduleGroup, err = s.resolver.FindOrCreate(ctx, course, GroupSpec{
				Name:               groupName(snapshot.ScheduleGroupName, snapshot.ScheduleGroupID),
				ExternalGroupingID: snapshot.ScheduleGroupID,
				Kind:               models.GroupKindSchedule,
			})
			if err != nil {
				return nil, err
			}
		}

		if snapshot.CohortGroupID == nil {
			return scheduleGroup, nil
		}

		spec := GroupSpec{
			Name:               groupName(derefString(snapshot.CohortGroupName), *snapshot.CohortGroupID),
			ExternalGroupingID: *snapshot.CohortGroupID,
			Kind:               models.GroupKindCohort,
		}
		if scheduleGroup != nil {
			spec.CopyOverridesFrom = scheduleGroup.RemoteGroupID
		}
		return s.resolver.FindOrCreate(ctx, course, spec)

	case models.RoleAssistant:
		return s.resolver.FindOrCreate(ctx, course, GroupSpec{
			Name: fixedAssistantsGroupName,
			Kind: models.GroupKindAssistants,
		})

	default:
		return nil, fmt.Errorf("unknown participant role %q", snapshot.Role)
	}
}

// reconcileCaseloads aligns the participant's additive caseload memberships
// with the snapshot. Current membership is read live from the LMS because
// caseload groups are enrollment-only constructs with no durable local
// mirror of who belongs to them.
func (s *EnrollmentReconciler) reconcileCaseloads(ctx context.Context, course *models.Course, user *models.User, snapshot models.ParticipantSnapshot) error {
	switch snapshot.Role {
	case models.RoleLearner:
		return s.reconcileLearnerCaseloads(ctx, course, user, snapshot)
	case models.RoleAssistant:
		if snapshot.Status != models.StatusEnrolled {
			return nil
		}
		return s.ensureAssistantCaseloadGroup(ctx, course, user, snapshot)
	default:
		return nil
	}
}

func (s *EnrollmentReconciler) reconcileLearnerCaseloads(ctx context.Context, course *models.Course, user *models.User, snapshot models.ParticipantSnapshot) error {
	desired := make(map[int64]struct{})
	if snapshot.Status == models.StatusEnrolled {
		for _, caseload := range snapshot.Caseloads {
			group, err := s.resolver.FindOrCreate(ctx, course, GroupSpec{
				Name:               caseload.AssistantName + " Caseload",
				ExternalGroupingID: caseloadGroupingID(caseload.AssistantID),
				Kind:               models.GroupKindCaseload,
			})
			if err != nil {
				return err
			}
			if group.RemoteGroupID == nil {
				return fmt.Errorf("caseload group %s has no remote counterpart", group.ID)
			}
			desired[*group.RemoteGroupID] = struct{}{}
		}
	}

	caseloadGroups, err := s.groups.ListByKind(ctx, course.ID, models.GroupKindCaseload)
	if err != nil {
		return err
	}
	known := make(map[int64]struct{}, len(caseloadGroups))
	for _, group := range caseloadGroups {
		if group.RemoteGroupID != nil {
			known[*group.RemoteGroupID] = struct{}{}
		}
	}

	live, err := s.lms.ListUserEnrollments(ctx, course.RemoteCourseID, user.RemoteUserID)
	if err != nil {
		return fmt.Errorf("list live enrollments: %w", err)
	}

	current := make(map[int64]lms.RemoteEnrollment)
	for _, enrollment := range live {
		if _, ok := known[enrollment.GroupID]; ok {
			current[enrollment.GroupID] = enrollment
		}
	}

	for remoteGroupID := range desired {
		if _, ok := current[remoteGroupID]; ok {
			continue
		}
		if _, err := s.lms.EnrollUser(ctx, user.RemoteUserID, remoteGroupID, remoteRoleStudent, true); err != nil {
			return fmt.Errorf("enroll in caseload group %d: %w", remoteGroupID, err)
		}
	}
	for remoteGroupID, enrollment := range current {
		if _, ok := desired[remoteGroupID]; ok {
			continue
		}
		if err := s.lms.UnenrollUser(ctx, enrollment.ID); err != nil {
			return fmt.Errorf("unenroll from caseload group %d: %w", remoteGroupID, err)
		}
	}

	return nil
}

// ensureAssistantCaseloadGroup guarantees the assistant's own caseload group
// exists and that the assistant is a member, so their learners are visible
// to them.
func (s *EnrollmentReconciler) ensureAssistantCaseloadGroup(ctx context.Context, course *models.Course, user *models.User, snapshot models.ParticipantSnapshot) error {
	group, err := s.resolver.FindOrCreate(ctx, course, GroupSpec{
		Name:               snapshot.FullName + " Caseload",
		ExternalGroupingID: caseloadGroupingID(snapshot.ParticipantID),
		Kind:               models.GroupKindCaseload,
	})
	if err != nil {
		return err
	}
	if group.RemoteGroupID == nil {
		return fmt.Errorf("caseload group %s has no remote counterpart", group.ID)
	}

	members, err := s.lms.ListGroupEnrollments(ctx, *group.RemoteGroupID)
	if err != nil {
		return err
	}
	for _, member := range members {
		if member.UserID == user.RemoteUserID {
			return nil
		}
	}

	if _, err := s.lms.EnrollUser(ctx, user.RemoteUserID, *group.RemoteGroupID, remoteRoleAssistant, false); err != nil {
		return fmt.Errorf("enroll assistant in caseload group: %w", err)
	}
	return nil
}

func remoteRole(role models.ParticipantRole) string {
	switch role {
	case models.RoleCoach:
		return remoteRoleCoach
	case models.RoleAssistant:
		return remoteRoleAssistant
	default:
		return remoteRoleStudent
	}
}

// caseloadGroupingID namespaces assistant ids so they cannot collide with
// CRM schedule or cohort grouping ids within the same course.
func caseloadGroupingID(assistantID string) string {
	return "caseload:" + assistantID
}

func groupName(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
