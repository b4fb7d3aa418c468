package repository

import (
	"context"
	"time"

	"linkbio-service/models"
)

// ListSessionDurations returns the session duration in seconds of every page
// view of the profile created in [from, to).
func (p *Postgres) ListSessionDurations(ctx context.Context, userID string, from, to time.Time) ([]int, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT session_duration FROM page_views WHERE user_id = $1 AND created_at >= $2 AND created_at < $3",
		userID, from, to)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	durations := []int{}
	for rows.Next() {
		var duration int
		if err := rows.Scan(&duration); err != nil {
			return nil, err
		}
		durations = append(durations, duration)
	}
	return durations, rows.Err()
}

func (p *Postgres) CountLinkClicks(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM link_clicks WHERE user_id = $1 AND created_at >= $2 AND created_at < $3",
		userID, from, to).Scan(&count)
	return count, mapError(err)
}

func (p *Postgres) DeviceStats(ctx context.Context, userID string, from time.Time) ([]models.DeviceCount, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT device_type, count FROM get_device_stats($1, $2)", userID, from)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	stats := []models.DeviceCount{}
	for rows.Next() {
		var stat models.DeviceCount
		if err := rows.Scan(&stat.DeviceType, &stat.Count); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

func (p *Postgres) GeoStats(ctx context.Context, userID string, from time.Time) ([]models.CountryCount, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT country, count FROM get_geo_stats($1, $2)", userID, from)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	stats := []models.CountryCount{}
	for rows.Next() {
		var stat models.CountryCount
		if err := rows.Scan(&stat.Country, &stat.Count); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// LinkClickCounts returns the most clicked links of the profile in [from, to).
// Links without clicks are included with a zero count.
func (p *Postgres) LinkClickCounts(ctx context.Context, userID string, from, to time.Time, limit int) ([]models.LinkClickCount, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT l.id, l.title, l.url, COUNT(c.id)
		FROM links l
		LEFT JOIN link_clicks c ON c.link_id = l.id AND c.created_at >= $2 AND c.created_at < $3
		WHERE l.profile_id = $1
		GROUP BY l.id, l.title, l.url
		ORDER BY COUNT(c.id) DESC, l.title
		LIMIT $4`, userID, from, to, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	counts := []models.LinkClickCount{}
	for rows.Next() {
		var count models.LinkClickCount
		if err := rows.Scan(&count.LinkID, &count.Title, &count.URL, &count.Clicks); err != nil {
			return nil, err
		}
		counts = append(counts, count)
	}
	return counts, rows.Err()
}

func (p *Postgres) InsertPageView(ctx context.Context, view models.PageView) (int64, error) {
	var id int64
	err := p.db.QueryRowContext(ctx, `INSERT INTO page_views (user_id, session_duration, device_type, country, visitor_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		view.UserID, view.SessionDuration, view.DeviceType, view.Country, view.VisitorHash, view.CreatedAt).Scan(&id)
	return id, mapError(err)
}

func (p *Postgres) InsertLinkClick(ctx context.Context, click models.LinkClick) (int64, error) {
	var id int64
	err := p.db.QueryRowContext(ctx, `INSERT INTO link_clicks (user_id, link_id, device_type, country, visitor_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		click.UserID, click.LinkID, click.DeviceType, click.Country, click.VisitorHash, click.CreatedAt).Scan(&id)
	return id, mapError(err)
}
