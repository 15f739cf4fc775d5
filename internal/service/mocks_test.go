package service

import (
	"context"
	"fmt"

	"github.com/eduops/cohort-sync-api/internal/lms"
	"github.com/eduops/cohort-sync-api/internal/models"
)

type fakeGroupStore struct {
	groups  map[string]*models.Group
	deleted []string
	nextID  int
	// conflictWinner simulates losing the insert race to a concurrent sync:
	// the next Insert stores the winner's row instead and reports a conflict.
	conflictWinner *models.Group
}

func newFakeGroupStore() *fakeGroupStore {
	return &fakeGroupStore{groups: map[string]*models.Group{}}
}

func (f *fakeGroupStore) FindByExternalGrouping(ctx context.Context, courseID, externalGroupingID string) (*models.Group, error) {
	for _, group := range f.groups {
		if group.CourseID == courseID && group.ExternalGroupingID != nil && *group.ExternalGroupingID == externalGroupingID {
			copied := *group
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeGroupStore) ListFixedByKind(ctx context.Context, courseID string, kind models.GroupKind) ([]models.Group, error) {
	var result []models.Group
	for _, group := range f.groups {
		if group.CourseID == courseID && group.Kind == kind && group.ExternalGroupingID == nil {
			result = append(result, *group)
		}
	}
	return result, nil
}

func (f *fakeGroupStore) ListByKind(ctx context.Context, courseID string, kind models.GroupKind) ([]models.Group, error) {
	var result []models.Group
	for _, group := range f.groups {
		if group.CourseID == courseID && group.Kind == kind {
			result = append(result, *group)
		}
	}
	return result, nil
}

func (f *fakeGroupStore) Insert(ctx context.Context, group *models.Group) (bool, error) {
	if f.conflictWinner != nil {
		copied := *f.conflictWinner
		f.groups[copied.ID] = &copied
		f.conflictWinner = nil
		return false, nil
	}
	f.nextID++
	if group.ID == "" {
		group.ID = fmt.Sprintf("group-%d", f.nextID)
	}
	copied := *group
	f.groups[group.ID] = &copied
	return true, nil
}

func (f *fakeGroupStore) UpdateRemoteID(ctx context.Context, id string, remoteGroupID int64) error {
	if group, ok := f.groups[id]; ok {
		group.RemoteGroupID = &remoteGroupID
	}
	return nil
}

func (f *fakeGroupStore) Delete(ctx context.Context, id string) error {
	delete(f.groups, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeLms struct {
	nextID           int64
	enrollments      map[int64]lms.RemoteEnrollment
	createdGroups    []string
	createdOverrides []lms.AssignmentOverride
	userOverrides    map[int64][]lms.AssignmentOverride
	groupOverrides   map[int64][]lms.AssignmentOverride

	failCreateGroup       error
	failEnroll            error
	failUnenroll          error
	failListUserOverrides error
	failCreateOverride    error
}

func newFakeLms() *fakeLms {
	return &fakeLms{
		enrollments:    map[int64]lms.RemoteEnrollment{},
		userOverrides:  map[int64][]lms.AssignmentOverride{},
		groupOverrides: map[int64][]lms.AssignmentOverride{},
	}
}

func (f *fakeLms) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeLms) CreateGroup(ctx context.Context, courseRemoteID int64, name string) (int64, error) {
	if f.failCreateGroup != nil {
		return 0, f.failCreateGroup
	}
	f.createdGroups = append(f.createdGroups, name)
	return f.id(), nil
}

func (f *fakeLms) EnrollUser(ctx context.Context, userRemoteID, groupRemoteID int64, role string, limited bool) (int64, error) {
	if f.failEnroll != nil {
		return 0, f.failEnroll
	}
	id := f.id()
	f.enrollments[id] = lms.RemoteEnrollment{ID: id, UserID: userRemoteID, GroupID: groupRemoteID, Role: role, Limited: limited}
	return id, nil
}

func (f *fakeLms) UnenrollUser(ctx context.Context, enrollmentRemoteID int64) error {
	if f.failUnenroll != nil {
		return f.failUnenroll
	}
	delete(f.enrollments, enrollmentRemoteID)
	return nil
}

func (f *fakeLms) ListGroupEnrollments(ctx context.Context, groupRemoteID int64) ([]lms.RemoteEnrollment, error) {
	var result []lms.RemoteEnrollment
	for _, enrollment := range f.enrollments {
		if enrollment.GroupID == groupRemoteID {
			result = append(result, enrollment)
		}
	}
	return result, nil
}

func (f *fakeLms) ListUserEnrollments(ctx context.Context, courseRemoteID, userRemoteID int64) ([]lms.RemoteEnrollment, error) {
	var result []lms.RemoteEnrollment
	for _, enrollment := range f.enrollments {
		if enrollment.UserID == userRemoteID {
			result = append(result, enrollment)
		}
	}
	return result, nil
}

func (f *fakeLms) ListUserOverrides(ctx context.Context, courseRemoteID, userRemoteID int64) ([]lms.AssignmentOverride, error) {
	if f.failListUserOverrides != nil {
		return nil, f.failListUserOverrides
	}
	return f.userOverrides[userRemoteID], nil
}

func (f *fakeLms) ListGroupOverrides(ctx context.Context, courseRemoteID, groupRemoteID int64) ([]lms.AssignmentOverride, error) {
	return f.groupOverrides[groupRemoteID], nil
}

func (f *fakeLms) CreateOverride(ctx context.Context, courseRemoteID int64, override lms.AssignmentOverride) error {
	if f.failCreateOverride != nil {
		return f.failCreateOverride
	}
	f.createdOverrides = append(f.createdOverrides, override)
	return nil
}

type fakeUserStore struct {
	users  map[string]*models.User
	nextID int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*models.User{}}
}

func (f *fakeUserStore) FindByParticipantID(ctx context.Context, participantID string) (*models.User, error) {
	if user, ok := f.users[participantID]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeUserStore) ExistsByParticipantID(ctx context.Context, participantID string) (bool, error) {
	_, ok := f.users[participantID]
	return ok, nil
}

func (f *fakeUserStore) Upsert(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		f.nextID++
		user.ID = fmt.Sprintf("user-%d", f.nextID)
	}
	copied := *user
	f.users[user.ParticipantID] = &copied
	return nil
}

type fakeAssignmentStore struct {
	assignments map[string]models.Assignment
	nextID      int
}

func newFakeAssignmentStore() *fakeAssignmentStore {
	return &fakeAssignmentStore{assignments: map[string]models.Assignment{}}
}

func (f *fakeAssignmentStore) ListByUserAndCourse(ctx context.Context, userID, courseID string) ([]models.Assignment, error) {
	var result []models.Assignment
	for _, assignment := range f.assignments {
		if assignment.UserID == userID && assignment.CourseID == courseID {
			result = append(result, assignment)
		}
	}
	return result, nil
}

func (f *fakeAssignmentStore) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		f.nextID++
		assignment.ID = fmt.Sprintf("assignment-%d", f.nextID)
	}
	f.assignments[assignment.ID] = *assignment
	return nil
}

func (f *fakeAssignmentStore) Delete(ctx context.Context, id string) error {
	delete(f.assignments, id)
	return nil
}

func testCourse() *models.Course {
	return &models.Course{ID: "course-1", ProgramID: "prog-1", Name: "Pilot Program", RemoteCourseID: 5000}
}
