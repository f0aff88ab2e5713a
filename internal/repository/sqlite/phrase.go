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

var _ repository.PhraseRepository = (*DB)(nil)

// phraseTableName maps the collection name onto its table. The phrase table
// set is closed, so the table name never comes from user input.
func phraseTableName(t model.PhraseTable) (string, error) {
	if !t.Valid() {
		return "", apperror.ValidationFailed("table", fmt.Sprintf("unknown phrase table %q", t))
	}
	return `"chat_` + string(t) + `"`, nil
}

// AddPhrase stores a canned response in the named collection. Phrases are
// unique per collection. A response type is only accepted for the
// questioned collection, which picks answers by sentiment.
func (db *DB) AddPhrase(ctx context.Context, table model.PhraseTable, p *model.Phrase) error {
	tbl, err := phraseTableName(table)
	if err != nil {
		return err
	}
	p.Phrase = strings.TrimSpace(p.Phrase)
	if p.Phrase == "" {
		return apperror.ValidationFailed("phrase", "phrase is empty")
	}
	if p.DateAdded.IsZero() {
		p.DateAdded = now()
	}

	var execErr error
	if table == model.PhraseQuestioned {
		kind := model.ResponseNeutral
		if p.ResponseType != nil {
			kind = *p.ResponseType
		}
		_, execErr = db.conn.ExecContext(ctx,
			`INSERT INTO `+tbl+` ("phrase", "action", "response_type", "submitter", "date_added")
			 VALUES (?, ?, ?, ?, ?)`,
			p.Phrase, p.Action, kind, p.SubmitterID, p.DateAdded,
		)
	} else {
		if p.ResponseType != nil {
			return apperror.ValidationFailed("responseType", "only questioned phrases carry a response type")
		}
		_, execErr = db.conn.ExecContext(ctx,
			`INSERT INTO `+tbl+` ("phrase", "action", "submitter", "date_added")
			 VALUES (?, ?, ?, ?)`,
			p.Phrase, p.Action, p.SubmitterID, p.DateAdded,
		)
	}
	if execErr != nil {
		switch {
		case isUniqueViolation(execErr):
			return apperror.Constraint("phrase already exists in this collection")
		case isForeignKeyViolation(execErr):
			return apperror.NotFound("participant", strconv.FormatInt(p.SubmitterID, 10))
		case isBusy(execErr):
			return apperror.Contention("add phrase")
		}
		return fmt.Errorf("sqlite: inserting phrase: %w", execErr)
	}
	return nil
}

// RemovePhrase deletes a phrase from the named collection.
func (db *DB) RemovePhrase(ctx context.Context, table model.PhraseTable, phrase string) error {
	tbl, err := phraseTableName(table)
	if err != nil {
		return err
	}
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM `+tbl+` WHERE "phrase" = ?`, phrase,
	)
	if err != nil {
		if isBusy(err) {
			return apperror.Contention("remove phrase")
		}
		return fmt.Errorf("sqlite: removing phrase: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("phrase", phrase)
	}
	return nil
}

// RandomPhrase draws a uniformly random phrase from the collection. For the
// questioned collection a non-nil kind narrows the draw to one sentiment;
// other collections ignore it.
func (db *DB) RandomPhrase(ctx context.Context, table model.PhraseTable, kind *model.ResponseKind) (*model.Phrase, error) {
	tbl, err := phraseTableName(table)
	if err != nil {
		return nil, err
	}

	var (
		p       model.Phrase
		scanErr error
	)
	if table == model.PhraseQuestioned {
		query := `SELECT "phrase", "action", "response_type", "submitter", "date_added" FROM ` + tbl
		args := []any{}
		if kind != nil {
			query += ` WHERE "response_type" = ?`
			args = append(args, *kind)
		}
		query += ` ORDER BY RANDOM() LIMIT 1`
		var rt model.ResponseKind
		scanErr = db.conn.QueryRowContext(ctx, query, args...).
			Scan(&p.Phrase, &p.Action, &rt, &p.SubmitterID, &p.DateAdded)
		if scanErr == nil {
			p.ResponseType = &rt
		}
	} else {
		scanErr = db.conn.QueryRowContext(ctx,
			`SELECT "phrase", "action", "submitter", "date_added" FROM `+tbl+
				` ORDER BY RANDOM() LIMIT 1`,
		).Scan(&p.Phrase, &p.Action, &p.SubmitterID, &p.DateAdded)
	}
	if scanErr != nil {
		if isNoRows(scanErr) {
			return nil, apperror.NotFound("phrase", string(table))
		}
		return nil, fmt.Errorf("sqlite: drawing random phrase from %s: %w", table, scanErr)
	}
	return &p, nil
}

// Phrases lists a collection's phrases in alphabetical order.
func (db *DB) Phrases(ctx context.Context, table model.PhraseTable) ([]model.Phrase, error) {
	tbl, err := phraseTableName(table)
	if err != nil {
		return nil, err
	}

	withKind := table == model.PhraseQuestioned
	cols := `"phrase", "action", "submitter", "date_added"`
	if withKind {
		cols = `"phrase", "action", "response_type", "submitter", "date_added"`
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+cols+` FROM `+tbl+` ORDER BY "phrase"`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing phrases of %s: %w", table, err)
	}
	defer rows.Close()

	var phrases []model.Phrase
	for rows.Next() {
		var p model.Phrase
		if withKind {
			var rt model.ResponseKind
			if err := rows.Scan(&p.Phrase, &p.Action, &rt, &p.SubmitterID, &p.DateAdded); err != nil {
				return nil, fmt.Errorf("sqlite: scanning phrase row: %w", err)
			}
			p.ResponseType = &rt
		} else {
			if err := rows.Scan(&p.Phrase, &p.Action, &p.SubmitterID, &p.DateAdded); err != nil {
				return nil, fmt.Errorf("sqlite: scanning phrase row: %w", err)
			}
		}
		phrases = append(phrases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating phrases: %w", err)
	}
	return phrases, nil
}

// AddEightBall stores one magic-8-ball answer. Answers are globally unique.
func (db *DB) AddEightBall(ctx context.Context, r *model.EightBallResponse) error {
	r.Response = strings.TrimSpace(r.Response)
	if r.Response == "" {
		return apperror.ValidationFailed("response", "response is empty")
	}
	if r.ResponseType == 0 {
		r.ResponseType = model.ResponsePositive
	}

	var expects any
	if r.ExpectsAction != nil {
		expects = *r.ExpectsAction
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO "magic8ball" ("response", "action", "response_type", "expects_action", "submitter")
		 VALUES (?, ?, ?, ?, ?)`,
		r.Response, r.Action, r.ResponseType, expects, r.SubmitterID,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperror.Constraint("8-ball response already exists")
		case isForeignKeyViolation(err):
			return apperror.NotFound("participant", strconv.FormatInt(r.SubmitterID, 10))
		case isBusy(err):
			return apperror.Contention("add 8-ball response")
		}
		return fmt.Errorf("sqlite: inserting 8-ball response: %w", err)
	}
	return nil
}

// RemoveEightBall deletes one magic-8-ball answer.
func (db *DB) RemoveEightBall(ctx context.Context, response string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM "magic8ball" WHERE "response" = ?`, response,
	)
	if err != nil {
		if isBusy(err) {
			return apperror.Contention("remove 8-ball response")
		}
		return fmt.Errorf("sqlite: removing 8-ball response: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("8-ball response", response)
	}
	return nil
}

// RandomEightBall draws a uniformly random 8-ball answer, optionally of one
// sentiment.
func (db *DB) RandomEightBall(ctx context.Context, kind *model.ResponseKind) (*model.EightBallResponse, error) {
	query := `SELECT "response", "action", "response_type", "expects_action", "submitter" FROM "magic8ball"`
	args := []any{}
	if kind != nil {
		query += ` WHERE "response_type" = ?`
		args = append(args, *kind)
	}
	query += ` ORDER BY RANDOM() LIMIT 1`

	var (
		r       model.EightBallResponse
		expects sql.NullBool
	)
	err := db.conn.QueryRowContext(ctx, query, args...).
		Scan(&r.Response, &r.Action, &r.ResponseType, &expects, &r.SubmitterID)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("8-ball response", "any")
		}
		return nil, fmt.Errorf("sqlite: drawing random 8-ball response: %w", err)
	}
	if expects.Valid {
		r.ExpectsAction = &expects.Bool
	}
	return &r, nil
}
