package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"linkbio-service/models"
)

const profileColumns = `id, name, title, bio, location, available, avatar_url, background_url,
	profile_bg_color, profile_text_color, button_bg_color, button_text_color, username, created_at, updated_at`

func scanProfile(row rowScanner) (models.Profile, error) {
	var profile models.Profile
	var username sql.NullString
	err := row.Scan(
		&profile.ID,
		&profile.Name,
		&profile.Title,
		&profile.Bio,
		&profile.Location,
		&profile.Available,
		&profile.AvatarURL,
		&profile.BackgroundURL,
		&profile.ProfileBgColor,
		&profile.ProfileTextColor,
		&profile.ButtonBgColor,
		&profile.ButtonTextColor,
		&username,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return models.Profile{}, mapError(err)
	}
	profile.Username = stringPtr(username)
	return profile, nil
}

func (p *Postgres) GetProfileByID(ctx context.Context, id string) (models.Profile, error) {
	row := p.db.QueryRowContext(ctx, "SELECT "+profileColumns+" FROM profiles WHERE id = $1", id)
	return scanProfile(row)
}

func (p *Postgres) GetProfileByUsername(ctx context.Context, username string) (models.Profile, error) {
	row := p.db.QueryRowContext(ctx, "SELECT "+profileColumns+" FROM profiles WHERE username = $1", username)
	return scanProfile(row)
}

// CreateProfile inserts the row unless one already exists for the id. It
// reports whether this call created it.
func (p *Postgres) CreateProfile(ctx context.Context, profile models.Profile) (bool, error) {
	result, err := p.db.ExecContext(ctx, `INSERT INTO profiles (id, name, title, bio, location, available,
		profile_bg_color, profile_text_color, button_bg_color, button_text_color, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`,
		profile.ID, profile.Name, profile.Title, profile.Bio, profile.Location, profile.Available,
		profile.ProfileBgColor, profile.ProfileTextColor, profile.ButtonBgColor, profile.ButtonTextColor,
		profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		return false, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// UpdateProfile writes only the fields present in update, plus updated_at.
func (p *Postgres) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate, updatedAt time.Time) (models.Profile, error) {
	var sets []string
	var args []interface{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.Title != nil {
		add("title", *update.Title)
	}
	if update.Bio != nil {
		add("bio", *update.Bio)
	}
	if update.Location != nil {
		add("location", *update.Location)
	}
	if update.Available != nil {
		add("available", *update.Available)
	}
	if update.AvatarURL != nil {
		add("avatar_url", *update.AvatarURL)
	}
	if update.BackgroundURL != nil {
		add("background_url", *update.BackgroundURL)
	}
	if update.ProfileBgColor != nil {
		add("profile_bg_color", *update.ProfileBgColor)
	}
	if update.ProfileTextColor != nil {
		add("profile_text_color", *update.ProfileTextColor)
	}
	if update.ButtonBgColor != nil {
		add("button_bg_color", *update.ButtonBgColor)
	}
	if update.ButtonTextColor != nil {
		add("button_text_color", *update.ButtonTextColor)
	}
	if update.Username != nil {
		add("username", nullString(update.Username))
	}
	add("updated_at", updatedAt)
	args = append(args, id)

	query := fmt.Sprintf("UPDATE profiles SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), profileColumns)
	return scanProfile(p.db.QueryRowContext(ctx, query, args...))
}

// UsernameTaken reports whether another profile than excludeID owns username.
func (p *Postgres) UsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM profiles WHERE username = $1 AND id <> $2)",
		username, excludeID).Scan(&exists)
	if err != nil {
		return false, mapError(err)
	}
	return exists, nil
}
