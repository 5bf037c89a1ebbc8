package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dskvich/banana-draw-bot/pkg/domain"
)

// uuidArg matches any well-formed UUID string.
type uuidArg struct{}

func (uuidArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func TestGenerationsSave(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	repo := NewGenerationsRepository(db)
	repo.now = func() time.Time { return now }

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO generations")).
		WithArgs(uuidArg{}, "telegram:1", "7", "fig", "a cat", "main_provider", "m", 1, "", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Save(context.Background(), domain.Generation{
		Origin:     "telegram:1",
		SenderID:   "7",
		Trigger:    "fig",
		Prompt:     "a cat",
		Provider:   "main_provider",
		Model:      "m",
		ImageCount: 1,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerationsSaveError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO generations")).
		WillReturnError(errors.New("connection reset"))

	err = NewGenerationsRepository(db).Save(context.Background(), domain.Generation{Origin: "x"})
	assert.ErrorContains(t, err, "saving generation: connection reset")
}

func TestGenerationsRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "origin", "sender_id", "trigger", "prompt", "provider", "model", "image_count", "error", "created_at",
	}).
		AddRow("b", "telegram:1", "7", "fig", "second", "", "", 0, "quota", created).
		AddRow("a", "telegram:1", "7", "fig", "first", "main_provider", "m", 2, "", created.Add(-time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta("FROM generations")).
		WithArgs("telegram:1", 5).
		WillReturnRows(rows)

	got, err := NewGenerationsRepository(db).Recent(context.Background(), "telegram:1", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "quota", got[0].Error)
	assert.Equal(t, 2, got[1].ImageCount)
	assert.Equal(t, created, got[0].CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
