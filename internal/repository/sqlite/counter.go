package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sakif/chatkeeper/internal/apperror"
	"github.com/sakif/chatkeeper/internal/model"
	"github.com/sakif/chatkeeper/internal/repository"
)

var _ repository.CounterRepository = (*DB)(nil)

// IncrementCounter bumps the named counter by n, creating it first if
// needed, and stamps the trigger metadata. The bump and the stamp land
// together; two racing increments serialize on the row and both count.
func (db *DB) IncrementCounter(ctx context.Context, name string, n int64, trig repository.CounterTrigger) (*model.Counter, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "counter name is required")
	}
	if n <= 0 {
		return nil, apperror.ValidationFailed("n", "increment must be positive")
	}

	ts := now()
	var c *model.Counter
	err := db.withTx(ctx, "increment counter", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO "counter" ("name", "count", "created_at", "last_triggered", "last_user", "last_channel")
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT ("name") DO UPDATE SET
				"count" = "count" + excluded."count",
				"last_triggered" = excluded."last_triggered",
				"last_user" = excluded."last_user",
				"last_channel" = excluded."last_channel"`,
			name, n, ts, ts, nullInt64Ptr(trig.ParticipantID), nullStringPtr(trig.Channel),
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return apperror.Constraint("counter trigger references an unknown participant")
			}
			return fmt.Errorf("sqlite: incrementing counter %q: %w", name, err)
		}

		got, err := counterByName(ctx, tx, name)
		if err != nil {
			return err
		}
		c = got
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Counter retrieves a counter by name.
func (db *DB) Counter(ctx context.Context, name string) (*model.Counter, error) {
	return counterByName(ctx, db.conn, name)
}

func counterByName(ctx context.Context, q querier, name string) (*model.Counter, error) {
	var (
		c         model.Counter
		triggered sql.NullTime
		user      sql.NullInt64
		channel   sql.NullString
	)
	err := q.QueryRowContext(ctx,
		`SELECT "name", "count", "created_at", "last_triggered", "last_user", "last_channel"
		 FROM "counter" WHERE "name" = ?`,
		name,
	).Scan(&c.Name, &c.Count, &c.CreatedAt, &triggered, &user, &channel)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("counter", name)
		}
		return nil, fmt.Errorf("sqlite: getting counter %q: %w", name, err)
	}
	if triggered.Valid {
		c.LastTriggered = &triggered.Time
	}
	if user.Valid {
		c.LastUserID = &user.Int64
	}
	if channel.Valid {
		c.LastChannel = &channel.String
	}
	return &c, nil
}

// Counters lists every counter in name order.
func (db *DB) Counters(ctx context.Context) ([]model.Counter, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT "name", "count", "created_at", "last_triggered", "last_user", "last_channel"
		 FROM "counter" ORDER BY "name"`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing counters: %w", err)
	}
	defer rows.Close()

	var counters []model.Counter
	for rows.Next() {
		var (
			c         model.Counter
			triggered sql.NullTime
			user      sql.NullInt64
			channel   sql.NullString
		)
		if err := rows.Scan(&c.Name, &c.Count, &c.CreatedAt, &triggered, &user, &channel); err != nil {
			return nil, fmt.Errorf("sqlite: scanning counter row: %w", err)
		}
		if triggered.Valid {
			c.LastTriggered = &triggered.Time
		}
		if user.Valid {
			c.LastUserID = &user.Int64
		}
		if channel.Valid {
			c.LastChannel = &channel.String
		}
		counters = append(counters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating counters: %w", err)
	}
	return counters, nil
}
