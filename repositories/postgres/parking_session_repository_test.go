package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/car-park/models"
	"github.com/upb/car-park/repositories"
	"go.uber.org/zap"
)

var sessionRowColumns = []string{"id", "reg_plate", "entry_time", "entry_photo", "exit_time", "duration_hours", "payment_due"}

func TestParkingSessionRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewParkingSessionRepository(db, zap.NewNop())

	session := models.NewParkingSession("AB12CDE", "entry/cam1.jpg", time.Now())

	mock.ExpectExec("INSERT INTO parking_sessions").
		WithArgs(session.ID, "AB12CDE", sqlmock.AnyArg(), "entry/cam1.jpg").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), session))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParkingSessionRepository_Create_OpenSessionExists(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewParkingSessionRepository(db, zap.NewNop())

	session := models.NewParkingSession("AB12CDE", "", time.Now())

	mock.ExpectExec("INSERT INTO parking_sessions").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "idx_parking_sessions_open"})

	err := repo.Create(context.Background(), session)
	assert.ErrorIs(t, err, repositories.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParkingSessionRepository_GetOpenByRegPlate(t *testing.T) {
	entry := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	session := models.NewParkingSession("AB12CDE", "", entry)

	t.Run("open session", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewParkingSessionRepository(db, zap.NewNop())

		mock.ExpectQuery("WHERE reg_plate = \\$1 AND exit_time IS NULL (.+) FOR UPDATE").
			WithArgs("AB12CDE").
			WillReturnRows(sqlmock.NewRows(sessionRowColumns).
				AddRow(session.ID.String(), "AB12CDE", entry, "", nil, nil, nil))

		got, err := repo.GetOpenByRegPlate(context.Background(), "AB12CDE")

		require.NoError(t, err)
		assert.Equal(t, session.ID, got.ID)
		assert.Equal(t, entry, got.EntryTime)
		assert.True(t, got.IsOpen())
		assert.Nil(t, got.PaymentDue)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("none open", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewParkingSessionRepository(db, zap.NewNop())

		mock.ExpectQuery("exit_time IS NULL").WithArgs("AB12CDE").WillReturnError(sql.ErrNoRows)

		_, err := repo.GetOpenByRegPlate(context.Background(), "AB12CDE")

		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("database error", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewParkingSessionRepository(db, zap.NewNop())

		mock.ExpectQuery("exit_time IS NULL").WithArgs("AB12CDE").WillReturnError(errors.New("connection reset"))

		_, err := repo.GetOpenByRegPlate(context.Background(), "AB12CDE")

		require.Error(t, err)
		assert.NotErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestParkingSessionRepository_Close(t *testing.T) {
	entry := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("closes open session", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewParkingSessionRepository(db, zap.NewNop())

		session := models.NewParkingSession("AB12CDE", "", entry)
		session.Close(entry.Add(3601*time.Second), models.DefaultHourlyRate)

		mock.ExpectExec("UPDATE parking_sessions SET exit_time = \\$2").
			WithArgs(session.ID, *session.ExitTime, 2, 4.0).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Close(context.Background(), session))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already closed elsewhere", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewParkingSessionRepository(db, zap.NewNop())

		session := models.NewParkingSession("AB12CDE", "", entry)
		session.Close(entry.Add(time.Minute), models.DefaultHourlyRate)

		mock.ExpectExec("UPDATE parking_sessions").WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Close(context.Background(), session)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("rejects open session", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewParkingSessionRepository(db, zap.NewNop())

		err := repo.Close(context.Background(), models.NewParkingSession("AB12CDE", "", entry))

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestParkingSessionRepository_GetLatestByRegPlateContaining(t *testing.T) {
	entry := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	exit := entry.Add(2 * time.Hour)

	t.Run("match", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewParkingSessionRepository(db, zap.NewNop())
		id := models.NewParkingSession("AB12CDE", "", entry).ID

		mock.ExpectQuery("WHERE strpos\\(reg_plate, \\$1\\) > 0 ORDER BY entry_time DESC LIMIT 1").
			WithArgs("12C").
			WillReturnRows(sqlmock.NewRows(sessionRowColumns).
				AddRow(id.String(), "AB12CDE", entry, "p.jpg", exit, int64(2), 4.0))

		got, err := repo.GetLatestByRegPlateContaining(context.Background(), "12C")

		require.NoError(t, err)
		assert.Equal(t, "AB12CDE", got.RegPlate)
		require.NotNil(t, got.ExitTime)
		assert.Equal(t, exit, *got.ExitTime)
		assert.Equal(t, 2, *got.DurationHours)
		assert.Equal(t, 4.0, *got.PaymentDue)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no match", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewParkingSessionRepository(db, zap.NewNop())

		mock.ExpectQuery("strpos").WithArgs("QQ").WillReturnError(sql.ErrNoRows)

		_, err := repo.GetLatestByRegPlateContaining(context.Background(), "QQ")

		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}
