package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"linkbio-service/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProfileID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"

var profileRowColumns = []string{
	"id", "name", "title", "bio", "location", "available", "avatar_url", "background_url",
	"profile_bg_color", "profile_text_color", "button_bg_color", "button_text_color", "username",
	"created_at", "updated_at",
}

func setupMockRepo(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewPostgres(mockDB), mock
}

func profileRow(username interface{}) *sqlmock.Rows {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(profileRowColumns).AddRow(
		testProfileID, "Ada", "Digital Creator", "", "Worldwide", true, "", "",
		"wht", "gry900", "gry100", "gry900", username, created, created,
	)
}

func TestGetProfileByID(t *testing.T) {
	repo, mock := setupMockRepo(t)
	mock.ExpectQuery(`FROM profiles WHERE id = \$1`).
		WithArgs(testProfileID).
		WillReturnRows(profileRow("ada"))

	profile, err := repo.GetProfileByID(context.Background(), testProfileID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile.Name)
	require.NotNil(t, profile.Username)
	assert.Equal(t, "ada", *profile.Username)
	assert.True(t, profile.Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfileByUsernameNotFound(t *testing.T) {
	repo, mock := setupMockRepo(t)
	mock.ExpectQuery(`FROM profiles WHERE username = \$1`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetProfileByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfileNullUsername(t *testing.T) {
	repo, mock := setupMockRepo(t)
	mock.ExpectQuery(`FROM profiles WHERE id`).WillReturnRows(profileRow(nil))

	profile, err := repo.GetProfileByID(context.Background(), testProfileID)
	require.NoError(t, err)
	assert.Nil(t, profile.Username)
}

func TestCreateProfile(t *testing.T) {
	repo, mock := setupMockRepo(t)
	now := time.Now().UTC()
	profile := models.Profile{ID: testProfileID, Name: "New User", Available: true, CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec(`INSERT INTO profiles .* ON CONFLICT \(id\) DO NOTHING`).
		WithArgs(testProfileID, "New User", "", "", "", true, "", "", "", "", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO profiles`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.CreateProfile(context.Background(), profile)
	assert.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateProfile(context.Background(), profile)
	assert.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfileOnlySuppliedFields(t *testing.T) {
	repo, mock := setupMockRepo(t)
	now := time.Now().UTC()
	title := "Engineer"
	available := false

	mock.ExpectQuery(`UPDATE profiles SET title = \$1, available = \$2, updated_at = \$3 WHERE id = \$4 RETURNING`).
		WithArgs(title, available, now, testProfileID).
		WillReturnRows(profileRow(nil))

	_, err := repo.UpdateProfile(context.Background(), testProfileID, models.ProfileUpdate{Title: &title, Available: &available}, now)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfileClearsUsername(t *testing.T) {
	repo, mock := setupMockRepo(t)
	now := time.Now().UTC()
	empty := ""

	mock.ExpectQuery(`UPDATE profiles SET username = \$1, updated_at = \$2 WHERE id = \$3`).
		WithArgs(sql.NullString{}, now, testProfileID).
		WillReturnRows(profileRow(nil))

	_, err := repo.UpdateProfile(context.Background(), testProfileID, models.ProfileUpdate{Username: &empty}, now)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfileUniqueViolation(t *testing.T) {
	repo, mock := setupMockRepo(t)
	username := "taken"

	mock.ExpectQuery(`UPDATE profiles SET username`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "profiles_username_key"})

	_, err := repo.UpdateProfile(context.Background(), testProfileID, models.ProfileUpdate{Username: &username}, time.Now())
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.EqualError(t, err, "conflict: username already taken")
	assert.NotContains(t, err.Error(), "profiles_username_key")
}

func TestUpdateProfileMissingRow(t *testing.T) {
	repo, mock := setupMockRepo(t)
	name := "Ada"

	mock.ExpectQuery(`UPDATE profiles SET name`).WillReturnError(sql.ErrNoRows)

	_, err := repo.UpdateProfile(context.Background(), testProfileID, models.ProfileUpdate{Name: &name}, time.Now())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUsernameTaken(t *testing.T) {
	repo, mock := setupMockRepo(t)
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM profiles WHERE username = \$1 AND id <> \$2\)`).
		WithArgs("ada", testProfileID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := repo.UsernameTaken(context.Background(), "ada", testProfileID)
	assert.NoError(t, err)
	assert.True(t, taken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsernameTakenError(t *testing.T) {
	repo, mock := setupMockRepo(t)
	mock.ExpectQuery(`SELECT EXISTS`).WillReturnError(errors.New("connection reset"))

	_, err := repo.UsernameTaken(context.Background(), "ada", testProfileID)
	assert.EqualError(t, err, "connection reset")
}
