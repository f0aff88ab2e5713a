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

var _ repository.QuoteRepository = (*DB)(nil)

// AddQuote persists the quote and its lines in one transaction. Lines are
// numbered 1..N in the order given; author_num assigns each distinct speaker
// an ordinal within the quote for display styling.
func (db *DB) AddQuote(ctx context.Context, q *model.Quote) error {
	if len(q.Lines) == 0 {
		return apperror.ValidationFailed("lines", "a quote needs at least one line")
	}
	for i, l := range q.Lines {
		if strings.TrimSpace(l.Line) == "" {
			return apperror.ValidationFailed("lines", fmt.Sprintf("line %d is empty", i+1))
		}
	}
	if q.Style == 0 {
		q.Style = model.StyleStandard
	}
	if q.SubmissionDate.IsZero() {
		q.SubmissionDate = now()
	}

	return db.withTx(ctx, "add quote", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO "quote" ("submitter", "submission_date", "style", "hidden")
			 VALUES (?, ?, ?, ?)`,
			q.SubmitterID, q.SubmissionDate, q.Style, q.Hidden,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return apperror.NotFound("participant", strconv.FormatInt(q.SubmitterID, 10))
			}
			return fmt.Errorf("sqlite: inserting quote: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading new quote id: %w", err)
		}
		q.ID = id

		authorNums := map[int64]int{}
		for i := range q.Lines {
			l := &q.Lines[i]
			l.QuoteID = id
			l.LineNum = i + 1
			num, ok := authorNums[l.AuthorID]
			if !ok {
				num = len(authorNums) + 1
				authorNums[l.AuthorID] = num
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO "quote_lines" ("quote_id", "line_num", "line", "participant_id", "author_num", "action")
				 VALUES (?, ?, ?, ?, ?, ?)`,
				l.QuoteID, l.LineNum, l.Line, l.AuthorID, num, l.Action,
			)
			if err != nil {
				if isForeignKeyViolation(err) {
					return apperror.NotFound("participant", strconv.FormatInt(l.AuthorID, 10))
				}
				return fmt.Errorf("sqlite: inserting quote line %d: %w", l.LineNum, err)
			}
		}
		return nil
	})
}

// QuoteByID retrieves a quote with its lines in order. Hidden quotes are
// returned too; hiding only removes a quote from random draws and stats.
func (db *DB) QuoteByID(ctx context.Context, id int64) (*model.Quote, error) {
	return quoteByID(ctx, db.conn, id)
}

func quoteByID(ctx context.Context, q querier, id int64) (*model.Quote, error) {
	var quote model.Quote
	err := q.QueryRowContext(ctx,
		`SELECT "quote_id", "submitter", "submission_date", "style", "hidden"
		 FROM "quote" WHERE "quote_id" = ?`,
		id,
	).Scan(&quote.ID, &quote.SubmitterID, &quote.SubmissionDate, &quote.Style, &quote.Hidden)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("quote", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting quote %d: %w", id, err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT "quote_id", "line_num", "line", "participant_id", "action"
		 FROM "quote_lines" WHERE "quote_id" = ? ORDER BY "line_num"`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting lines of quote %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var l model.QuoteLine
		if err := rows.Scan(&l.QuoteID, &l.LineNum, &l.Line, &l.AuthorID, &l.Action); err != nil {
			return nil, fmt.Errorf("sqlite: scanning quote line: %w", err)
		}
		quote.Lines = append(quote.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating quote lines: %w", err)
	}
	return &quote, nil
}

// SetQuoteHidden toggles a quote's visibility. Hidden quotes stay
// addressable by id but drop out of random draws, searches, and every
// statistics projection.
func (db *DB) SetQuoteHidden(ctx context.Context, id int64, hidden bool) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE "quote" SET "hidden" = ? WHERE "quote_id" = ?`,
		hidden, id,
	)
	if err != nil {
		if isBusy(err) {
			return apperror.Contention("hide quote")
		}
		return fmt.Errorf("sqlite: updating quote %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("quote", strconv.FormatInt(id, 10))
	}
	return nil
}

// DeleteQuote removes a quote; its lines cascade.
func (db *DB) DeleteQuote(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM "quote" WHERE "quote_id" = ?`, id,
	)
	if err != nil {
		if isBusy(err) {
			return apperror.Contention("delete quote")
		}
		return fmt.Errorf("sqlite: deleting quote %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("quote", strconv.FormatInt(id, 10))
	}
	return nil
}

// RandomQuote draws a uniformly random quote matching the filter.
func (db *DB) RandomQuote(ctx context.Context, f repository.QuoteFilter) (*model.Quote, error) {
	where, args := quoteFilterSQL(f)
	var id int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT DISTINCT q."quote_id"
		 FROM "quote" AS "q"
		 JOIN "quote_lines" AS "l" USING ("quote_id")
		 WHERE `+where+`
		 ORDER BY RANDOM() LIMIT 1`,
		args...,
	).Scan(&id)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("quote", "matching filter")
		}
		return nil, fmt.Errorf("sqlite: drawing random quote: %w", err)
	}
	return db.QuoteByID(ctx, id)
}

// SearchQuotes returns quotes matching the filter in id order.
// ListQuoteLines reads the quote_merged view: one row per line, author and
// submitter resolved to names, ordered by quote id then line number.
func (db *DB) ListQuoteLines(ctx context.Context, includeHidden bool, opts repository.ListOptions) ([]model.QuoteListEntry, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}

	where := `"Hidden?" = 0`
	if includeHidden {
		where = `1 = 1`
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT "Quote ID", "Line #", "Author", "Line", "Submission Date",
		        "Submitter", "Action?", "Style", "Hidden?"
		 FROM "quote_merged"
		 WHERE `+where+`
		 ORDER BY "Quote ID", "Line #"
		 LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing quote lines: %w", err)
	}
	defer rows.Close()

	var entries []model.QuoteListEntry
	for rows.Next() {
		var e model.QuoteListEntry
		if err := rows.Scan(
			&e.QuoteID, &e.LineNum, &e.Author, &e.Line, &e.SubmissionDate,
			&e.Submitter, &e.Action, &e.Style, &e.Hidden,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning quote line entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating quote line entries: %w", err)
	}
	return entries, nil
}

func (db *DB) SearchQuotes(ctx context.Context, f repository.QuoteFilter, opts repository.ListOptions) ([]model.Quote, error) {
	where, args := quoteFilterSQL(f)
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	args = append(args, opts.Limit, opts.Offset)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT q."quote_id"
		 FROM "quote" AS "q"
		 JOIN "quote_lines" AS "l" USING ("quote_id")
		 WHERE `+where+`
		 ORDER BY q."quote_id"
		 LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching quotes: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning quote id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating quote ids: %w", err)
	}

	quotes := make([]model.Quote, 0, len(ids))
	for _, id := range ids {
		q, err := db.QuoteByID(ctx, id)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, *q)
	}
	return quotes, nil
}

func quoteFilterSQL(f repository.QuoteFilter) (string, []any) {
	conds := []string{"1=1"}
	var args []any
	if !f.IncludeHidden {
		conds = append(conds, `q."hidden" = 0`)
	}
	if f.AuthorID != nil {
		conds = append(conds, `l."participant_id" = ?`)
		args = append(args, *f.AuthorID)
	}
	if f.SubmitterID != nil {
		conds = append(conds, `q."submitter" = ?`)
		args = append(args, *f.SubmitterID)
	}
	if f.Body != "" {
		conds = append(conds, `l."line" LIKE '%' || ? || '%'`)
		args = append(args, f.Body)
	}
	return strings.Join(conds, " AND "), args
}

// Leaderboard returns per-identity quote and submission tallies with
// pre-rendered percentage strings, most-quoted first.
func (db *DB) Leaderboard(ctx context.Context) ([]model.LeaderboardRow, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT "Name", "Number of Quotes", "Number of Submissions", "Quote %", "Submission %"
		 FROM "quote_leaderboard"
		 ORDER BY "Number of Quotes" DESC, "Name"`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying leaderboard: %w", err)
	}
	defer rows.Close()

	var board []model.LeaderboardRow
	for rows.Next() {
		var (
			r              model.LeaderboardRow
			quotePct       sql.NullString
			submissionPct  sql.NullString
		)
		if err := rows.Scan(&r.Name, &r.Quotes, &r.Submissions, &quotePct, &submissionPct); err != nil {
			return nil, fmt.Errorf("sqlite: scanning leaderboard row: %w", err)
		}
		r.QuotePercent = orZeroPercent(quotePct)
		r.SubmissionPercent = orZeroPercent(submissionPct)
		board = append(board, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating leaderboard: %w", err)
	}
	return board, nil
}

// GlobalStats returns the store-wide statistics projection. An empty store
// yields all-zero stats rather than an error.
func (db *DB) GlobalStats(ctx context.Context) (*model.QuoteGlobalStats, error) {
	var (
		s       model.QuoteGlobalStats
		selfPct sql.NullString
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT "Number of Quotes", "Number of Submitters", "Self-Submissions",
		        "Self-Sub %", "Quotes this Year", "Avg. Yearly Quotes"
		 FROM "quote_stats_global"`,
	).Scan(&s.Quotes, &s.Submitters, &s.SelfSubmissions, &selfPct, &s.QuotesThisYear, &s.AvgYearlyQuotes)
	if err != nil {
		if isNoRows(err) {
			return &model.QuoteGlobalStats{SelfSubPercent: "0.0%"}, nil
		}
		return nil, fmt.Errorf("sqlite: querying global quote stats: %w", err)
	}
	s.SelfSubPercent = orZeroPercent(selfPct)
	return &s, nil
}

// UserStats returns the statistics projection for one identity, matched by
// name the same way participants are (case-insensitive, aliases included).
// An identity with no visible quotes has no row: NotFound.
func (db *DB) UserStats(ctx context.Context, name string) (*model.QuoteUserStats, error) {
	p, err := db.ParticipantByName(ctx, name)
	if err != nil {
		return nil, err
	}

	var (
		s                model.QuoteUserStats
		quotePct, subPct sql.NullString
		selfPct          sql.NullString
	)
	err = db.conn.QueryRowContext(ctx,
		`SELECT "Name", "Number of Quotes", "Quote %", "Number of Submissions", "Submission %",
		        "Self-Submissions", "Self-Sub %", "Quotes this Year", "Submissions this Year",
		        "Avg. Yearly Quotes", "Avg. Yearly Subs"
		 FROM "quote_stats_user" WHERE "Name" = ?`,
		p.Name,
	).Scan(&s.Name, &s.Quotes, &quotePct, &s.Submissions, &subPct,
		&s.SelfSubmissions, &selfPct, &s.QuotesThisYear, &s.SubmissionsThisYear,
		&s.AvgYearlyQuotes, &s.AvgYearlySubs)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("quote stats", p.Name)
		}
		return nil, fmt.Errorf("sqlite: querying quote stats for %q: %w", p.Name, err)
	}
	s.QuotePercent = orZeroPercent(quotePct)
	s.SubmissionPercent = orZeroPercent(subPct)
	s.SelfSubPercent = orZeroPercent(selfPct)
	return &s, nil
}

// YearlyCounts returns visible quote totals bucketed by calendar year,
// oldest first.
func (db *DB) YearlyCounts(ctx context.Context) ([]model.YearCount, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT "Year", "Quotes in Year" FROM "quote_yearly_quotes" ORDER BY "Year"`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying yearly quote counts: %w", err)
	}
	defer rows.Close()

	var counts []model.YearCount
	for rows.Next() {
		var c model.YearCount
		if err := rows.Scan(&c.Year, &c.Quotes); err != nil {
			return nil, fmt.Errorf("sqlite: scanning yearly count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating yearly counts: %w", err)
	}
	return counts, nil
}

// orZeroPercent papers over the NULL a percentage expression yields when the
// divisor is zero.
func orZeroPercent(s sql.NullString) string {
	if s.Valid {
		return s.String
	}
	return "0.0%"
}
