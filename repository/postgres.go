// Package repository persists profiles, their sections and links, and the
// analytics event tables in Postgres.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"linkbio-service/models"

	"github.com/lib/pq"
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

// conflictMessages names the unique constraints in client terms.
var conflictMessages = map[string]string{
	"profiles_username_key": "username already taken",
}

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// mapError converts driver errors into the domain taxonomy.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case uniqueViolation:
		message, ok := conflictMessages[pqErr.Constraint]
		if !ok {
			message = "already exists"
		}
		return fmt.Errorf("%w: %s", models.ErrConflict, message)
	case invalidTextRepresentation:
		// A malformed id cannot name any row.
		return models.ErrNotFound
	}
	return err
}

func expectAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// inTx runs fn in a transaction, rolling back when fn fails.
func (p *Postgres) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("warning: rollback failed: err=%v", rbErr)
		}
		return err
	}
	return tx.Commit()
}

func applyOrder(ctx context.Context, tx *sql.Tx, query string, profileID string, changes []models.OrderChange) error {
	now := time.Now().UTC()
	for _, change := range changes {
		if _, err := tx.ExecContext(ctx, query, change.OrderIndex, now, change.ID, profileID); err != nil {
			return mapError(err)
		}
	}
	return nil
}

// reorder applies order index changes in one transaction.
func (p *Postgres) reorder(ctx context.Context, query string, profileID string, changes []models.OrderChange) error {
	if len(changes) == 0 {
		return nil
	}
	return p.inTx(ctx, func(tx *sql.Tx) error {
		return applyOrder(ctx, tx, query, profileID, changes)
	})
}

func nullString(value *string) sql.NullString {
	if value == nil || *value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}
