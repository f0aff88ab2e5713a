package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/sakif/chatkeeper/internal/apperror"
	"github.com/sakif/chatkeeper/internal/model"
	"github.com/sakif/chatkeeper/internal/repository"
)

var _ repository.ObitRepository = (*DB)(nil)

// RecordKill updates the killer's and victim's tally rows as one atomic
// unit, creating either lazily. A participant killing themselves records a
// suicide: one row, suicides+1 with kills and deaths untouched, and the
// last-victim/last-murderer pointers both stamped to self.
func (db *DB) RecordKill(ctx context.Context, killerID, victimID int64) error {
	ts := now()
	return db.withTx(ctx, "record kill", func(tx *sql.Tx) error {
		if killerID == victimID {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO "obit" ("participant_id", "suicides",
				                     "last_victim", "last_kill", "last_murderer", "last_death")
				 VALUES (?, 1, ?, ?, ?, ?)
				 ON CONFLICT ("participant_id") DO UPDATE SET
					"suicides" = "suicides" + 1,
					"last_victim" = excluded."last_victim",
					"last_kill" = excluded."last_kill",
					"last_murderer" = excluded."last_murderer",
					"last_death" = excluded."last_death"`,
				killerID, killerID, ts, killerID, ts,
			)
			if err != nil {
				if isForeignKeyViolation(err) {
					return apperror.NotFound("participant", strconv.FormatInt(killerID, 10))
				}
				return fmt.Errorf("sqlite: recording suicide for participant %d: %w", killerID, err)
			}
			return nil
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO "obit" ("participant_id", "kills", "last_victim", "last_kill")
			 VALUES (?, 1, ?, ?)
			 ON CONFLICT ("participant_id") DO UPDATE SET
				"kills" = "kills" + 1,
				"last_victim" = excluded."last_victim",
				"last_kill" = excluded."last_kill"`,
			killerID, victimID, ts,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return apperror.NotFound("participant", strconv.FormatInt(killerID, 10))
			}
			return fmt.Errorf("sqlite: recording kill for participant %d: %w", killerID, err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO "obit" ("participant_id", "deaths", "last_murderer", "last_death")
			 VALUES (?, 1, ?, ?)
			 ON CONFLICT ("participant_id") DO UPDATE SET
				"deaths" = "deaths" + 1,
				"last_murderer" = excluded."last_murderer",
				"last_death" = excluded."last_death"`,
			victimID, killerID, ts,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return apperror.NotFound("participant", strconv.FormatInt(victimID, 10))
			}
			return fmt.Errorf("sqlite: recording death for participant %d: %w", victimID, err)
		}
		return nil
	})
}

// ObitRecord retrieves a participant's tally row. A participant with no
// recorded events has no row: NotFound.
func (db *DB) ObitRecord(ctx context.Context, participantID int64) (*model.ObitRecord, error) {
	var (
		r                  model.ObitRecord
		victim, murderer   sql.NullInt64
		lastKill, lastDeath sql.NullTime
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT "participant_id", "kills", "deaths", "suicides",
		        "last_victim", "last_murderer", "last_kill", "last_death"
		 FROM "obit" WHERE "participant_id" = ?`,
		participantID,
	).Scan(&r.ParticipantID, &r.Kills, &r.Deaths, &r.Suicides,
		&victim, &murderer, &lastKill, &lastDeath)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("obit record", strconv.FormatInt(participantID, 10))
		}
		return nil, fmt.Errorf("sqlite: getting obit record for participant %d: %w", participantID, err)
	}
	if victim.Valid {
		r.LastVictimID = &victim.Int64
	}
	if murderer.Valid {
		r.LastMurdererID = &murderer.Int64
	}
	if lastKill.Valid {
		r.LastKill = &lastKill.Time
	}
	if lastDeath.Valid {
		r.LastDeath = &lastDeath.Time
	}
	return &r, nil
}

// ObitBoard returns every tally row with pointer fields resolved to names,
// most kills first.
func (db *DB) ObitBoard(ctx context.Context) ([]model.ObitBoardRow, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT "User", "Kills", "Deaths", "Suicides",
		        "Last Victim", "Last Victim Killed At", "Last Murderer", "Last Killed At"
		 FROM "obit_merged"
		 ORDER BY "Kills" DESC, "User"`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying obit board: %w", err)
	}
	defer rows.Close()

	var board []model.ObitBoardRow
	for rows.Next() {
		var (
			r                   model.ObitBoardRow
			victim, murderer    sql.NullString
			lastKill, lastDeath sql.NullTime
		)
		if err := rows.Scan(&r.Name, &r.Kills, &r.Deaths, &r.Suicides,
			&victim, &lastKill, &murderer, &lastDeath); err != nil {
			return nil, fmt.Errorf("sqlite: scanning obit board row: %w", err)
		}
		if victim.Valid {
			r.LastVictim = &victim.String
		}
		if murderer.Valid {
			r.LastMurderer = &murderer.String
		}
		if lastKill.Valid {
			r.LastKill = &lastKill.Time
		}
		if lastDeath.Valid {
			r.LastDeath = &lastDeath.Time
		}
		board = append(board, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating obit board: %w", err)
	}
	return board, nil
}

// ObitRankings returns the kill, death, and suicide rankings. Ties share a
// rank (competition style: 1, 1, 3) and zero tallies are omitted.
func (db *DB) ObitRankings(ctx context.Context) (kills, deaths, suicides []model.RankedTally, err error) {
	kills, err = db.rankedTally(ctx, "kills")
	if err != nil {
		return nil, nil, nil, err
	}
	deaths, err = db.rankedTally(ctx, "deaths")
	if err != nil {
		return nil, nil, nil, err
	}
	suicides, err = db.rankedTally(ctx, "suicides")
	if err != nil {
		return nil, nil, nil, err
	}
	return kills, deaths, suicides, nil
}

func (db *DB) rankedTally(ctx context.Context, column string) ([]model.RankedTally, error) {
	// column is one of three fixed names, never user input.
	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf(
		`SELECT RANK() OVER (ORDER BY "%[1]s" DESC) AS "rank", p."name", "%[1]s"
		 FROM "obit"
		 JOIN "participants" AS "p" USING ("participant_id")
		 WHERE "%[1]s" > 0
		 ORDER BY "%[1]s" DESC, p."name"`, column,
	))
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying %s ranking: %w", column, err)
	}
	defer rows.Close()

	var ranking []model.RankedTally
	for rows.Next() {
		var t model.RankedTally
		if err := rows.Scan(&t.Rank, &t.Name, &t.Count); err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s ranking row: %w", column, err)
		}
		ranking = append(ranking, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s ranking: %w", column, err)
	}
	return ranking, nil
}

// AddObitString stores one message fragment. The (content, type) pair is
// unique; re-adding the same fragment is a constraint violation.
func (db *DB) AddObitString(ctx context.Context, s *model.ObitString) error {
	s.Content = strings.TrimSpace(s.Content)
	if s.Content == "" {
		return apperror.ValidationFailed("content", "obit string is empty")
	}
	if !validObitType(s.Type) {
		return apperror.ValidationFailed("type", "unknown obit string type")
	}
	if s.DateAdded.IsZero() {
		s.DateAdded = now()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO "obit_strings" ("content", "type", "submitter", "date_added")
		 VALUES (?, ?, ?, ?)`,
		s.Content, s.Type, s.SubmitterID, s.DateAdded,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperror.Constraint("obit string already exists")
		case isForeignKeyViolation(err):
			return apperror.NotFound("participant", strconv.FormatInt(s.SubmitterID, 10))
		case isBusy(err):
			return apperror.Contention("add obit string")
		}
		return fmt.Errorf("sqlite: inserting obit string: %w", err)
	}
	return nil
}

// RemoveObitString deletes one message fragment by its (content, type) key.
func (db *DB) RemoveObitString(ctx context.Context, content string, typ model.ObitStringType) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM "obit_strings" WHERE "content" = ? AND "type" = ?`,
		content, typ,
	)
	if err != nil {
		if isBusy(err) {
			return apperror.Contention("remove obit string")
		}
		return fmt.Errorf("sqlite: removing obit string: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("obit string", content)
	}
	return nil
}

// RandomObitString draws a uniformly random fragment of the given type.
func (db *DB) RandomObitString(ctx context.Context, typ model.ObitStringType) (*model.ObitString, error) {
	var s model.ObitString
	err := db.conn.QueryRowContext(ctx,
		`SELECT "content", "type", "submitter", "date_added"
		 FROM "obit_strings" WHERE "type" = ?
		 ORDER BY RANDOM() LIMIT 1`,
		typ,
	).Scan(&s.Content, &s.Type, &s.SubmitterID, &s.DateAdded)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("obit string", fmt.Sprintf("type %d", typ))
		}
		return nil, fmt.Errorf("sqlite: drawing random obit string: %w", err)
	}
	return &s, nil
}

func validObitType(t model.ObitStringType) bool {
	switch t {
	case model.ObitKill, model.ObitWeapon, model.ObitCloser, model.ObitSuicide:
		return true
	}
	return false
}
