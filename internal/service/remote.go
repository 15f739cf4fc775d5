package service

import (
	"context"

	"github.com/eduops/cohort-sync-api/internal/lms"
	"github.com/eduops/cohort-sync-api/internal/models"
)

// SnapshotSource is the read-only roster feed from the CRM of record.
type SnapshotSource interface {
	ListParticipants(ctx context.Context, programID string) ([]models.ParticipantSnapshot, error)
}

// RemoteLmsClient is the slice of the LMS API this engine needs.
type RemoteLmsClient interface {
	CreateGroup(ctx context.Context, courseRemoteID int64, name string) (int64, error)
	EnrollUser(ctx context.Context, userRemoteID, groupRemoteID int64, role string, limited bool) (int64, error)
	UnenrollUser(ctx context.Context, enrollmentRemoteID int64) error
	ListGroupEnrollments(ctx context.Context, groupRemoteID int64) ([]lms.RemoteEnrollment, error)
	ListUserEnrollments(ctx context.Context, courseRemoteID, userRemoteID int64) ([]lms.RemoteEnrollment, error)
	ListUserOverrides(ctx context.Context, courseRemoteID, userRemoteID int64) ([]lms.AssignmentOverride, error)
	ListGroupOverrides(ctx context.Context, courseRemoteID, groupRemoteID int64) ([]lms.AssignmentOverride, error)
	CreateOverride(ctx context.Context, courseRemoteID int64, override lms.AssignmentOverride) error
}

// ConferencingRegistrar keeps the video-conferencing provider's registrant
// records in step with participant contact info.
type ConferencingRegistrar interface {
	RegisterParticipant(ctx context.Context, snapshot models.ParticipantSnapshot) error
}
