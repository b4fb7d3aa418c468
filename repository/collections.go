package repository

import (
	"context"
	"database/sql"

	"linkbio-service/models"
)

const subtitleColumns = "id, profile_id, text, order_index, created_at, updated_at"

const linkColumns = "id, profile_id, subtitle_id, title, username, icon, url, order_index, created_at, updated_at"

func scanSubtitle(row rowScanner) (models.Subtitle, error) {
	var subtitle models.Subtitle
	err := row.Scan(
		&subtitle.ID,
		&subtitle.ProfileID,
		&subtitle.Text,
		&subtitle.OrderIndex,
		&subtitle.CreatedAt,
		&subtitle.UpdatedAt,
	)
	if err != nil {
		return models.Subtitle{}, mapError(err)
	}
	return subtitle, nil
}

func scanLink(row rowScanner) (models.Link, error) {
	var link models.Link
	var subtitleID sql.NullString
	var icon string
	err := row.Scan(
		&link.ID,
		&link.ProfileID,
		&subtitleID,
		&link.Title,
		&link.Username,
		&icon,
		&link.URL,
		&link.OrderIndex,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	if err != nil {
		return models.Link{}, mapError(err)
	}
	link.SubtitleID = stringPtr(subtitleID)
	link.Icon = models.ParseIconKey(icon)
	return link, nil
}

func (p *Postgres) ListSubtitles(ctx context.Context, profileID string) ([]models.Subtitle, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT "+subtitleColumns+" FROM subtitles WHERE profile_id = $1 ORDER BY order_index, created_at",
		profileID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	subtitles := []models.Subtitle{}
	for rows.Next() {
		subtitle, err := scanSubtitle(rows)
		if err != nil {
			return nil, err
		}
		subtitles = append(subtitles, subtitle)
	}
	return subtitles, rows.Err()
}

func (p *Postgres) GetSubtitle(ctx context.Context, profileID, id string) (models.Subtitle, error) {
	row := p.db.QueryRowContext(ctx,
		"SELECT "+subtitleColumns+" FROM subtitles WHERE id = $1 AND profile_id = $2", id, profileID)
	return scanSubtitle(row)
}

func (p *Postgres) CountSubtitles(ctx context.Context, profileID string) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM subtitles WHERE profile_id = $1", profileID).Scan(&count)
	return count, mapError(err)
}

func (p *Postgres) InsertSubtitle(ctx context.Context, subtitle models.Subtitle) error {
	_, err := p.db.ExecContext(ctx,
		"INSERT INTO subtitles ("+subtitleColumns+") VALUES ($1, $2, $3, $4, $5, $6)",
		subtitle.ID, subtitle.ProfileID, subtitle.Text, subtitle.OrderIndex, subtitle.CreatedAt, subtitle.UpdatedAt)
	return mapError(err)
}

const reorderSubtitlesQuery = "UPDATE subtitles SET order_index = $1, updated_at = $2 WHERE id = $3 AND profile_id = $4"

const reorderLinksQuery = "UPDATE links SET order_index = $1, updated_at = $2 WHERE id = $3 AND profile_id = $4"

// UpdateSubtitle rewrites a subtitle and shifts its siblings in one
// transaction; the WHERE clause scopes it to its owner.
func (p *Postgres) UpdateSubtitle(ctx context.Context, subtitle models.Subtitle, shifts []models.OrderChange) (models.Subtitle, error) {
	var updated models.Subtitle
	err := p.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			"UPDATE subtitles SET text = $1, order_index = $2, updated_at = $3 WHERE id = $4 AND profile_id = $5 RETURNING "+subtitleColumns,
			subtitle.Text, subtitle.OrderIndex, subtitle.UpdatedAt, subtitle.ID, subtitle.ProfileID)
		var err error
		if updated, err = scanSubtitle(row); err != nil {
			return err
		}
		return applyOrder(ctx, tx, reorderSubtitlesQuery, subtitle.ProfileID, shifts)
	})
	if err != nil {
		return models.Subtitle{}, err
	}
	return updated, nil
}

// DeleteSubtitle removes the section. Its links keep existing with a NULL
// subtitle_id through the foreign key.
func (p *Postgres) DeleteSubtitle(ctx context.Context, profileID, id string) error {
	result, err := p.db.ExecContext(ctx, "DELETE FROM subtitles WHERE id = $1 AND profile_id = $2", id, profileID)
	if err != nil {
		return mapError(err)
	}
	return expectAffected(result)
}

func (p *Postgres) ReorderSubtitles(ctx context.Context, profileID string, changes []models.OrderChange) error {
	return p.reorder(ctx, reorderSubtitlesQuery, profileID, changes)
}

func (p *Postgres) ListLinks(ctx context.Context, profileID string) ([]models.Link, error) {
	return p.queryLinks(ctx,
		"SELECT "+linkColumns+" FROM links WHERE profile_id = $1 ORDER BY order_index, created_at",
		profileID)
}

func (p *Postgres) ListLinksInSubtitle(ctx context.Context, profileID, subtitleID string) ([]models.Link, error) {
	return p.queryLinks(ctx,
		"SELECT "+linkColumns+" FROM links WHERE profile_id = $1 AND subtitle_id = $2 ORDER BY order_index, created_at",
		profileID, subtitleID)
}

func (p *Postgres) queryLinks(ctx context.Context, query string, args ...interface{}) ([]models.Link, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	links := []models.Link{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (p *Postgres) GetLink(ctx context.Context, profileID, id string) (models.Link, error) {
	row := p.db.QueryRowContext(ctx,
		"SELECT "+linkColumns+" FROM links WHERE id = $1 AND profile_id = $2", id, profileID)
	return scanLink(row)
}

func (p *Postgres) CountLinks(ctx context.Context, profileID, subtitleID string) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM links WHERE profile_id = $1 AND subtitle_id = $2", profileID, subtitleID).Scan(&count)
	return count, mapError(err)
}

func (p *Postgres) InsertLink(ctx context.Context, link models.Link) error {
	_, err := p.db.ExecContext(ctx,
		"INSERT INTO links ("+linkColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)",
		link.ID, link.ProfileID, nullString(link.SubtitleID), link.Title, link.Username, string(link.Icon),
		link.URL, link.OrderIndex, link.CreatedAt, link.UpdatedAt)
	return mapError(err)
}

// UpdateLink rewrites a link and shifts its neighbours in one transaction;
// the WHERE clause scopes it to its owner.
func (p *Postgres) UpdateLink(ctx context.Context, link models.Link, shifts []models.OrderChange) (models.Link, error) {
	var updated models.Link
	err := p.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`UPDATE links SET subtitle_id = $1, title = $2, username = $3, icon = $4, url = $5, order_index = $6, updated_at = $7
			WHERE id = $8 AND profile_id = $9 RETURNING `+linkColumns,
			nullString(link.SubtitleID), link.Title, link.Username, string(link.Icon), link.URL, link.OrderIndex,
			link.UpdatedAt, link.ID, link.ProfileID)
		var err error
		if updated, err = scanLink(row); err != nil {
			return err
		}
		return applyOrder(ctx, tx, reorderLinksQuery, link.ProfileID, shifts)
	})
	if err != nil {
		return models.Link{}, err
	}
	return updated, nil
}

func (p *Postgres) DeleteLink(ctx context.Context, profileID, id string) error {
	result, err := p.db.ExecContext(ctx, "DELETE FROM links WHERE id = $1 AND profile_id = $2", id, profileID)
	if err != nil {
		return mapError(err)
	}
	return expectAffected(result)
}

func (p *Postgres) ReorderLinks(ctx context.Context, profileID string, changes []models.OrderChange) error {
	return p.reorder(ctx, reorderLinksQuery, profileID, changes)
}
