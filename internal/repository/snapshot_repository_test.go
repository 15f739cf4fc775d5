package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/eduops/cohort-sync-api/internal/models"
)

func newSnapshotRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSnapshotRepositoryFind(t *testing.T) {
	db, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()

	repo := NewSnapshotRepository(db)
	syncedAt := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"participant_id", "program_id", "full_name", "email", "crm_contact_id", "remote_user_id", "role", "status", "schedule_group_id", "schedule_group_name", "cohort_group_id", "cohort_group_name", "caseloads", "synced_at"}).
		AddRow("p-1", "prog-1", "Ada Lovelace", "ada@example.com", 101, 201, "LEARNER", "ENROLLED", "sched-1", "Mon 7pm", nil, nil, []byte(`[{"assistant_name":"Grace Hopper","assistant_id":"a-1"}]`), syncedAt)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT participant_id, program_id, full_name")).
		WithArgs("p-1").
		WillReturnRows(rows)

	snapshot, err := repo.Find(context.Background(), "p-1")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	require.Equal(t, "Ada Lovelace", snapshot.FullName)
	require.Equal(t, models.RoleLearner, snapshot.Role)
	require.Nil(t, snapshot.CohortGroupID)
	require.Len(t, snapshot.Caseloads, 1)
	require.Equal(t, "a-1", snapshot.Caseloads[0].AssistantID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryFindMissingIsNil(t *testing.T) {
	db, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()

	repo := NewSnapshotRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT participant_id, program_id, full_name")).
		WithArgs("p-unknown").
		WillReturnRows(sqlmock.NewRows([]string{"participant_id"}))

	snapshot, err := repo.Find(context.Background(), "p-unknown")
	require.NoError(t, err)
	require.Nil(t, snapshot)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newSnapshotRepoMock(t)
	defer cleanup()

	repo := NewSnapshotRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO participant_snapshots")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	snapshot := &models.ParticipantSnapshot{
		ParticipantID: "p-1",
		ProgramID:     "prog-1",
		FullName:      "Ada Lovelace",
		Email:         "ada@example.com",
		CRMContactID:  101,
		RemoteUserID:  201,
		Role:          models.RoleLearner,
		Status:        models.StatusEnrolled,
	}
	require.NoError(t, repo.Upsert(context.Background(), snapshot))
	require.False(t, snapshot.SyncedAt.IsZero(), "upsert stamps the sync time")
	require.NoError(t, mock.ExpectationsWereMet())
}
