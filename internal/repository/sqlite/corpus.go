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

var _ repository.CorpusRepository = (*DB)(nil)

// AddLine appends one line to the corpus. The corpus is append-only; there
// is no update or delete path, lines only ever lose their source/author tags
// when the referenced rows are pruned.
func (db *DB) AddLine(ctx context.Context, l *model.CorpusLine) error {
	if strings.TrimSpace(l.Line) == "" {
		return apperror.ValidationFailed("line", "corpus line is empty")
	}
	if l.Timestamp.IsZero() {
		l.Timestamp = now()
	}

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO "markov_corpus" ("line", "source", "author", "timestamp")
		 VALUES (?, ?, ?, ?)`,
		l.Line, nullInt64Ptr(l.SourceID), nullInt64Ptr(l.AuthorID), l.Timestamp,
	)
	if err != nil {
		switch {
		case isForeignKeyViolation(err):
			return apperror.Constraint("corpus line references an unknown source or participant")
		case isBusy(err):
			return apperror.Contention("add corpus line")
		}
		return fmt.Errorf("sqlite: inserting corpus line: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new corpus line id: %w", err)
	}
	l.ID = id
	return nil
}

// Lines returns a lazy cursor over corpus lines matching the filter, in
// insertion order. The corpus can be large; callers stream it rather than
// loading it whole.
func (db *DB) Lines(ctx context.Context, f repository.CorpusFilter) (repository.CorpusIterator, error) {
	where, args := corpusFilterSQL(f)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT "line_id", "line", "source", "author", "timestamp"
		 FROM "markov_corpus"
		 WHERE `+where+`
		 ORDER BY "line_id"`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying corpus: %w", err)
	}
	return &corpusIterator{rows: rows}, nil
}

// CountLines reports how many corpus lines match the filter.
func (db *DB) CountLines(ctx context.Context, f repository.CorpusFilter) (int64, error) {
	where, args := corpusFilterSQL(f)
	var n int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM "markov_corpus" WHERE `+where,
		args...,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting corpus lines: %w", err)
	}
	return n, nil
}

func corpusFilterSQL(f repository.CorpusFilter) (string, []any) {
	conds := []string{"1=1"}
	var args []any
	if f.AuthorID != nil {
		conds = append(conds, `"author" = ?`)
		args = append(args, *f.AuthorID)
	}
	if f.SourceID != nil {
		conds = append(conds, `"source" = ?`)
		args = append(args, *f.SourceID)
	}
	return strings.Join(conds, " AND "), args
}

// corpusIterator adapts *sql.Rows to the repository cursor shape.
type corpusIterator struct {
	rows *sql.Rows
	err  error
}

func (it *corpusIterator) Next() (model.CorpusLine, bool) {
	if it.err != nil || !it.rows.Next() {
		return model.CorpusLine{}, false
	}
	var (
		l              model.CorpusLine
		source, author sql.NullInt64
	)
	if err := it.rows.Scan(&l.ID, &l.Line, &source, &author, &l.Timestamp); err != nil {
		it.err = fmt.Errorf("sqlite: scanning corpus line: %w", err)
		return model.CorpusLine{}, false
	}
	if source.Valid {
		l.SourceID = &source.Int64
	}
	if author.Valid {
		l.AuthorID = &author.Int64
	}
	return l, true
}

func (it *corpusIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.rows.Err()
}

func (it *corpusIterator) Close() error {
	return it.rows.Close()
}

func nullInt64Ptr(i *int64) any {
	if i == nil {
		return nil
	}
	return *i
}
