// Package sqlite implements the repository interfaces on an embedded SQLite
// database using the pure-Go modernc.org/sqlite driver.
//
// The store is a faithful reproduction of the bot's persisted layout: the
// identity tables (users, aliases, participants), the source catalog, and the
// feature tables keyed by participant id, plus the derived read-only views.
// The original enforced identity consistency with SQL triggers; here every
// invariant is maintained by explicit application code inside a single
// transaction, which keeps the rules testable and visible in one place.
//
// Case-fold uniqueness is the arbitration mechanism for concurrent
// participant creation: each name row stores a folded form with a UNIQUE
// index, so two racing writers of "Foo" and "FOO" collide in the engine, not
// in application-level checks.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/sakif/chatkeeper/internal/apperror"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and provides the repository methods.
type DB struct {
	conn *sql.DB
	path string
}

// New opens (creating if necessary) the database at dbPath and ensures the
// schema. ":memory:" opens a throwaway in-memory store, used by tests.
//
// The _time_format=sqlite DSN option makes the driver store time.Time values
// in SQLite's own datetime format, so strftime() in the stats views can
// bucket submission dates directly. The pragmas ride in the DSN so the
// driver applies them to every connection the pool opens, not just the
// first: foreign key enforcement and the bounded lock wait have to hold on
// whichever connection a query lands on. WAL lets readers proceed while a
// write is in flight; busy_timeout bounds lock waits, and anything that
// still times out surfaces as a retryable contention error rather than
// hanging the caller.
func New(dbPath string) (*DB, error) {
	dsn := "file:" + dbPath + "?_time_format=sqlite" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database exists per connection; collapsing the pool to a
	// single connection keeps every caller on the same store.
	if strings.Contains(dbPath, ":memory:") {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn, path: dbPath}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Backup writes a consistent snapshot of the database to target using
// VACUUM INTO, which works while the store stays online.
func (db *DB) Backup(ctx context.Context, target string) error {
	if _, err := db.conn.ExecContext(ctx, `VACUUM INTO ?`, target); err != nil {
		return fmt.Errorf("sqlite: backing up to %s: %w", target, err)
	}
	return nil
}

// foldName returns the case-folded form of name used for uniqueness. Unicode
// case folding (not just ASCII lowering) so that e.g. "STRASSE" and "straße"
// collide the way chat nicknames are expected to.
func foldName(name string) string {
	return cases.Fold().String(name)
}

// now is the single timestamp source for the store: UTC, truncated to whole
// seconds to match the persisted datetime format. Year bucketing in the
// stats views is therefore UTC year bucketing.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// withTx runs fn inside a transaction, rolling back on error. SQLITE_BUSY
// escaping the busy_timeout window is translated to a retryable contention
// error; everything else propagates as-is, so a failed multi-row operation
// leaves no partial writes behind.
func (db *DB) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		if isBusy(err) {
			return apperror.Contention(op)
		}
		return fmt.Errorf("sqlite: beginning %s: %w", op, err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		if isBusy(err) {
			return apperror.Contention(op)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if isBusy(err) {
			return apperror.Contention(op)
		}
		return fmt.Errorf("sqlite: committing %s: %w", op, err)
	}
	return nil
}

func sqliteErrCode(err error) int {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()
	}
	return -1
}

func isBusy(err error) bool {
	switch sqliteErrCode(err) & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

func isUniqueViolation(err error) bool {
	switch sqliteErrCode(err) {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	return sqliteErrCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

// migrate applies the schema. Everything is CREATE IF NOT EXISTS, so opening
// an existing store is a no-op and a fresh file gets the full layout plus the
// seed rows (sentinel participant, protocol catalog).
func (db *DB) migrate() error {
	for _, stmt := range []struct {
		name string
		sql  string
	}{
		{"identity tables", schemaIdentity},
		{"source tables", schemaSources},
		{"quote tables", schemaQuote},
		{"corpus table", schemaCorpus},
		{"obit tables", schemaObit},
		{"counter table", schemaCounter},
		{"phrase tables", schemaPhrases},
		{"operator table", schemaOperators},
		{"views", schemaViews},
	} {
		if _, err := db.conn.Exec(stmt.sql); err != nil {
			return fmt.Errorf("creating %s: %w", stmt.name, err)
		}
	}
	return db.seed()
}

// seed inserts the rows the store cannot function without: the sentinel
// participant that absorbs orphaned feature rows, and the protocol catalog.
func (db *DB) seed() error {
	_, err := db.conn.Exec(
		`INSERT INTO "participants" ("participant_id", "name", "name_folded", "user_id")
		 VALUES (?, 'Unknown', 'unknown', NULL)
		 ON CONFLICT ("participant_id") DO NOTHING`,
		sentinelParticipantID,
	)
	if err != nil {
		return fmt.Errorf("seeding sentinel participant: %w", err)
	}

	for _, p := range [][2]string{
		{"irc", "IRC"},
		{"discord", "Discord"},
	} {
		_, err := db.conn.Exec(
			`INSERT INTO "protocols" ("identifier", "name") VALUES (?, ?)
			 ON CONFLICT ("identifier") DO NOTHING`,
			p[0], p[1],
		)
		if err != nil {
			return fmt.Errorf("seeding protocol %s: %w", p[0], err)
		}
	}
	return nil
}

const sentinelParticipantID = int64(0)

const schemaIdentity = `
CREATE TABLE IF NOT EXISTS "users" (
	"user_id"           INTEGER NOT NULL,
	"name"              TEXT NOT NULL UNIQUE,
	"name_folded"       TEXT NOT NULL UNIQUE,
	"created_at"        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	"creation_flags"    INTEGER NOT NULL DEFAULT 0,
	"creation_metadata" TEXT,
	"comment"           TEXT,
	PRIMARY KEY ("user_id")
);

CREATE TABLE IF NOT EXISTS "aliases" (
	"user_id"           INTEGER NOT NULL,
	"name"              TEXT NOT NULL,
	"name_folded"       TEXT NOT NULL,
	"case_sensitive"    BOOLEAN NOT NULL DEFAULT 0 CHECK ("case_sensitive" IN (0,1)),
	"created_at"        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	"creation_flags"    INTEGER NOT NULL DEFAULT 0,
	"creation_metadata" TEXT,
	"comment"           TEXT,
	PRIMARY KEY ("user_id", "name"),
	FOREIGN KEY ("user_id") REFERENCES "users" ("user_id")
		ON DELETE CASCADE
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS "participants" (
	"participant_id" INTEGER NOT NULL,
	"name"           TEXT NOT NULL,
	"name_folded"    TEXT NOT NULL UNIQUE,
	"user_id"        INTEGER UNIQUE,
	PRIMARY KEY ("participant_id"),
	FOREIGN KEY ("user_id") REFERENCES "users" ("user_id")
);
`

const schemaSources = `
CREATE TABLE IF NOT EXISTS "protocols" (
	"identifier" TEXT NOT NULL,
	"name"       TEXT NOT NULL,
	PRIMARY KEY ("identifier")
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS "sources" (
	"source_id" INTEGER NOT NULL,
	"protocol"  TEXT NOT NULL,
	"server"    TEXT,
	"channel"   TEXT,
	PRIMARY KEY ("source_id"),
	UNIQUE ("protocol", "server", "channel"),
	FOREIGN KEY ("protocol") REFERENCES "protocols" ("identifier")
);
`

const schemaQuote = `
CREATE TABLE IF NOT EXISTS "quote" (
	"quote_id"        INTEGER NOT NULL,
	"submitter"       INTEGER NOT NULL DEFAULT 0,
	"submission_date" DATETIME DEFAULT CURRENT_TIMESTAMP,
	"style"           INTEGER NOT NULL DEFAULT 1,
	"hidden"          BOOLEAN NOT NULL DEFAULT 0 CHECK ("hidden" IN (0,1)),
	PRIMARY KEY ("quote_id"),
	FOREIGN KEY ("submitter") REFERENCES "participants" ("participant_id")
);

CREATE TABLE IF NOT EXISTS "quote_lines" (
	"quote_id"       INTEGER NOT NULL,
	"line_num"       INTEGER NOT NULL DEFAULT 1,
	"line"           TEXT NOT NULL,
	"participant_id" INTEGER NOT NULL DEFAULT 0,
	"author_num"     INTEGER NOT NULL DEFAULT 1,
	"action"         BOOLEAN NOT NULL DEFAULT 0 CHECK ("action" IN (0,1)),
	PRIMARY KEY ("quote_id", "line_num"),
	FOREIGN KEY ("quote_id") REFERENCES "quote" ("quote_id")
		ON DELETE CASCADE,
	FOREIGN KEY ("participant_id") REFERENCES "participants" ("participant_id")
) WITHOUT ROWID;
`

const schemaCorpus = `
CREATE TABLE IF NOT EXISTS "markov_corpus" (
	"line_id"   INTEGER NOT NULL,
	"line"      TEXT NOT NULL,
	"source"    INTEGER,
	"author"    INTEGER,
	"timestamp" DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY ("line_id"),
	FOREIGN KEY ("source") REFERENCES "sources" ("source_id"),
	FOREIGN KEY ("author") REFERENCES "participants" ("participant_id")
);
`

const schemaObit = `
CREATE TABLE IF NOT EXISTS "obit" (
	"participant_id" INTEGER NOT NULL DEFAULT 0,
	"kills"          INTEGER NOT NULL DEFAULT 0,
	"deaths"         INTEGER NOT NULL DEFAULT 0,
	"suicides"       INTEGER NOT NULL DEFAULT 0,
	"last_victim"    INTEGER,
	"last_murderer"  INTEGER,
	"last_kill"      DATETIME,
	"last_death"     DATETIME,
	PRIMARY KEY ("participant_id"),
	FOREIGN KEY ("participant_id") REFERENCES "participants" ("participant_id"),
	FOREIGN KEY ("last_victim") REFERENCES "participants" ("participant_id"),
	FOREIGN KEY ("last_murderer") REFERENCES "participants" ("participant_id")
);

CREATE TABLE IF NOT EXISTS "obit_strings" (
	"content"    TEXT NOT NULL,
	"type"       INTEGER NOT NULL DEFAULT 1,
	"submitter"  INTEGER NOT NULL DEFAULT 0,
	"date_added" DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY ("content", "type"),
	FOREIGN KEY ("submitter") REFERENCES "participants" ("participant_id")
) WITHOUT ROWID;

CREATE INDEX IF NOT EXISTS "idx_obit_strings_type"
ON "obit_strings" ("type" ASC);
`

const schemaCounter = `
CREATE TABLE IF NOT EXISTS "counter" (
	"name"           TEXT NOT NULL UNIQUE,
	"count"          INTEGER NOT NULL DEFAULT 0,
	"created_at"     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	"last_triggered" DATETIME,
	"last_user"      INTEGER,
	"last_channel"   TEXT,
	PRIMARY KEY ("name"),
	FOREIGN KEY ("last_user") REFERENCES "participants" ("participant_id")
) WITHOUT ROWID;
`

// The six chat phrase tables share a shape; questioned additionally carries a
// response_type so answers can be picked by sentiment. The 8-ball table keeps
// its historical layout (response_type plus the expects_action tri-state).
const schemaPhrases = `
CREATE TABLE IF NOT EXISTS "chat_activity" (
	"phrase"     TEXT NOT NULL,
	"action"     BOOLEAN NOT NULL DEFAULT 0 CHECK ("action" IN (0,1)),
	"submitter"  INTEGER NOT NULL DEFAULT 0,
	"date_added" DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY ("phrase"),
	FOREIGN KEY ("submitter") REFERENCES "participants" ("participant_id")
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS "chat_badcmd" (
	"phrase"     TEXT NOT NULL,
	"action"     BOOLEAN NOT NULL DEFAULT 0 CHECK ("action" IN (0,1)),
	"submitter"  INTEGER NOT NULL DEFAULT 0,
	"date_added" DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY ("phrase"),
	FOREIGN KEY ("submitter") REFERENCES "participants" ("participant_id")
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS "chat_berate" (
	"phrase"     TEXT NOT NULL,
	"action"     BOOLEAN NOT NULL DEFAULT 0 CHECK ("action" IN (0,1)),
	"submitter"  INTEGER NOT NULL DEFAULT 0,
	"date_added" DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY ("phrase"),
	FOREIGN KEY ("submitter") REFERENCES "participants" ("participant_id")
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS "chat_greetings" (
	"phrase"     TEXT NOT NULL,
	"action"     BOOLEAN NOT NULL DEFAULT 0 CHECK ("action" IN (0,1)),
	"submitter"  INTEGER NOT NULL DEFAULT 0,
	"date_added" DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY ("phrase"),
	FOREIGN KEY ("submitter") REFERENCES "participants" ("participant_id")
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS "chat_mentioned" (
	"phrase"     TEXT NOT NULL,
	"action"     BOOLEAN NOT NULL DEFAULT 0 CHECK ("action" IN (0,1)),
	"submitter"  INTEGER NOT NULL DEFAULT 0,
	"date_added" DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY ("phrase"),
	FOREIGN KEY ("submitter") REFERENCES "participants" ("participant_id")
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS "chat_questioned" (
	"phrase"        TEXT NOT NULL,
	"action"        BOOLEAN NOT NULL DEFAULT 0 CHECK ("action" IN (0,1)),
	"response_type" INTEGER NOT NULL DEFAULT 3,
	"submitter"     INTEGER NOT NULL DEFAULT 0,
	"date_added"    DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY ("phrase"),
	FOREIGN KEY ("submitter") REFERENCES "participants" ("participant_id")
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS "magic8ball" (
	"response"       TEXT NOT NULL UNIQUE,
	"action"         BOOLEAN NOT NULL DEFAULT 0 CHECK ("action" IN (0,1)),
	"response_type"  INTEGER DEFAULT 1,
	"expects_action" BOOLEAN CHECK ("expects_action" IN (NULL,0,1)),
	"submitter"      INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY ("response"),
	FOREIGN KEY ("submitter") REFERENCES "participants" ("participant_id")
) WITHOUT ROWID;

CREATE INDEX IF NOT EXISTS "idx_magic8ball_response_type"
ON "magic8ball" ("response_type" ASC);
`

const schemaOperators = `
CREATE TABLE IF NOT EXISTS "operators" (
	"id"            TEXT NOT NULL,
	"login"         TEXT NOT NULL UNIQUE,
	"password_hash" TEXT NOT NULL,
	"created_at"    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	"updated_at"    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY ("id")
);
`

// Derived read-only views. The name-union views back name matching in the
// command layer; the quote views are the statistics projections. Hidden
// quotes are excluded from every aggregate.
const schemaViews = `
CREATE VIEW IF NOT EXISTS "users_all_names" ("user_id", "name", "case_sensitive") AS
SELECT "user_id", "name", 0 FROM "users"
UNION
SELECT "user_id", "name", "case_sensitive" FROM "aliases";

CREATE VIEW IF NOT EXISTS "participants_all_names"
	("participant_id", "user_id", "name", "case_sensitive") AS
SELECT "participant_id", "user_id", "name", 0 FROM "participants"
UNION
SELECT p."participant_id", p."user_id", a."name", a."case_sensitive"
FROM "participants" AS "p"
JOIN "aliases" AS "a" USING ("user_id");

CREATE VIEW IF NOT EXISTS "quote_yearly_quotes" AS
SELECT COUNT("quote_id") AS "Quotes in Year",
       CAST(strftime('%Y', "submission_date") AS INTEGER) AS "Year"
FROM "quote"
WHERE "hidden" = 0
GROUP BY "Year";

CREATE VIEW IF NOT EXISTS "quote_leaderboard" AS
SELECT authors."name" AS "Name",
       COUNT(DISTINCT "quote_id") AS "Number of Quotes",
       ifnull("numsubs", 0) AS "Number of Submissions",
       ROUND(100.0 * COUNT(DISTINCT "quote_id")
             / (SELECT COUNT(*) FROM "quote" WHERE "hidden" = 0), 1) || '%' AS "Quote %",
       ROUND(100.0 * ifnull("numsubs", 0)
             / (SELECT COUNT(*) FROM "quote" WHERE "hidden" = 0), 1) || '%' AS "Submission %"
FROM "quote_lines"
JOIN "quote" USING ("quote_id")
JOIN "participants" AS "authors" USING ("participant_id")
LEFT JOIN (
	SELECT "name", COUNT("quote_id") AS "numsubs"
	FROM "quote"
	JOIN "participants" ON "participant_id" = "submitter"
	WHERE "hidden" = 0
	GROUP BY "submitter"
) AS "submissions" ON authors."name" = submissions."name"
WHERE "hidden" = 0
GROUP BY authors."name";

CREATE VIEW IF NOT EXISTS "quote_merged" AS
SELECT "quote_id" AS "Quote ID",
       "line_num" AS "Line #",
       authors."name" AS "Author",
       "line" AS "Line",
       "submission_date" AS "Submission Date",
       submitters."name" AS "Submitter",
       "action" AS "Action?",
       "style" AS "Style",
       "hidden" AS "Hidden?"
FROM "quote"
JOIN "quote_lines" USING ("quote_id")
JOIN "participants" AS "submitters" ON "submitter" = submitters."participant_id"
JOIN "participants" AS "authors" USING ("participant_id");

CREATE VIEW IF NOT EXISTS "quote_stats_global" AS
WITH "self" AS (
	SELECT "quote_id", 1 AS "selfsub"
	FROM "quote"
	JOIN "quote_lines" USING ("quote_id")
	WHERE "hidden" = 0
	GROUP BY "quote_id"
	HAVING "submitter" = "participant_id" AND COUNT("line_num") = 1
)
SELECT COUNT(DISTINCT top."quote_id") AS "Number of Quotes",
       COUNT(DISTINCT "submitter") AS "Number of Submitters",
       COUNT("selfsub") AS "Self-Submissions",
       ROUND(100.0 * COUNT("selfsub") / COUNT(DISTINCT top."quote_id"), 1) || '%' AS "Self-Sub %",
       ifnull("Quotes in Year", 0) AS "Quotes this Year",
       ifnull("Avg. Yearly Quotes", 0) AS "Avg. Yearly Quotes"
FROM "quote" AS "top"
LEFT JOIN "self" ON top."quote_id" = self."quote_id"
LEFT JOIN "quote_yearly_quotes"
	ON "Year" = CAST(strftime('%Y', 'now') AS INTEGER)
LEFT JOIN (
	SELECT AVG("Quotes in Year") AS "Avg. Yearly Quotes"
	FROM "quote_yearly_quotes"
) AS "avg"
WHERE top."hidden" = 0;

CREATE VIEW IF NOT EXISTS "quote_stats_user" AS
WITH "submissions" AS (
	SELECT "name", COUNT("quote_id") AS "numsubs"
	FROM "quote"
	JOIN "participants" ON "participant_id" = "submitter"
	WHERE "hidden" = 0
	GROUP BY "submitter"
),
"self" AS (
	SELECT "quote_id", 1 AS "selfsub"
	FROM "quote"
	JOIN "quote_lines" USING ("quote_id")
	WHERE "hidden" = 0
	GROUP BY "quote_id"
	HAVING "submitter" = "participant_id" AND COUNT("line_num") = 1
),
"year_quotes" AS (
	SELECT "name",
	       COUNT(DISTINCT "quote_id") AS "Quotes in Year",
	       CAST(strftime('%Y', "submission_date") AS INTEGER) AS "Year"
	FROM "quote"
	JOIN "quote_lines" USING ("quote_id")
	JOIN "participants" USING ("participant_id")
	WHERE "hidden" = 0
	GROUP BY "name", "Year"
),
"year_subs" AS (
	SELECT "name",
	       COUNT(DISTINCT "quote_id") AS "Submissions in Year",
	       CAST(strftime('%Y', "submission_date") AS INTEGER) AS "Year"
	FROM "quote"
	JOIN "participants" ON "submitter" = "participant_id"
	WHERE "hidden" = 0
	GROUP BY "name", "Year"
),
"avg_year_quotes" AS (
	SELECT "name", AVG("Quotes in Year") AS "Avg. Yearly Quotes"
	FROM "year_quotes"
	GROUP BY "name"
),
"avg_year_subs" AS (
	SELECT "name", AVG("Submissions in Year") AS "Avg. Yearly Subs"
	FROM "year_subs"
	GROUP BY "name"
)
SELECT authors."name" AS "Name",
       COUNT(DISTINCT top."quote_id") AS "Number of Quotes",
       ROUND(100.0 * COUNT(DISTINCT top."quote_id")
             / (SELECT COUNT(*) FROM "quote" WHERE "hidden" = 0), 1) || '%' AS "Quote %",
       ifnull("numsubs", 0) AS "Number of Submissions",
       ROUND(100.0 * ifnull("numsubs", 0)
             / (SELECT COUNT(*) FROM "quote" WHERE "hidden" = 0), 1) || '%' AS "Submission %",
       COUNT("selfsub") AS "Self-Submissions",
       ROUND(100.0 * COUNT("selfsub") / COUNT(DISTINCT top."quote_id"), 1) || '%' AS "Self-Sub %",
       ifnull("Quotes in Year", 0) AS "Quotes this Year",
       ifnull("Submissions in Year", 0) AS "Submissions this Year",
       ROUND(ifnull("Avg. Yearly Quotes", 0), 2) AS "Avg. Yearly Quotes",
       ROUND(ifnull("Avg. Yearly Subs", 0), 2) AS "Avg. Yearly Subs"
FROM "quote" AS "top"
JOIN "quote_lines" USING ("quote_id")
JOIN "participants" AS "authors" USING ("participant_id")
LEFT JOIN "submissions" ON authors."name" = submissions."name"
LEFT JOIN "self" ON top."quote_id" = self."quote_id"
LEFT JOIN "year_quotes"
	ON year_quotes."name" = authors."name"
	AND year_quotes."Year" = CAST(strftime('%Y', 'now') AS INTEGER)
LEFT JOIN "year_subs"
	ON year_subs."name" = authors."name"
	AND year_subs."Year" = CAST(strftime('%Y', 'now') AS INTEGER)
LEFT JOIN "avg_year_quotes" AS "ayq" ON ayq."name" = authors."name"
LEFT JOIN "avg_year_subs" AS "ays" ON ays."name" = authors."name"
WHERE top."hidden" = 0
GROUP BY authors."name";

CREATE VIEW IF NOT EXISTS "obit_merged" AS
SELECT p."name" AS "User",
       "kills" AS "Kills",
       "deaths" AS "Deaths",
       "suicides" AS "Suicides",
       victims."name" AS "Last Victim",
       "last_kill" AS "Last Victim Killed At",
       murderers."name" AS "Last Murderer",
       "last_death" AS "Last Killed At"
FROM "obit"
JOIN "participants" AS "p" USING ("participant_id")
LEFT JOIN "participants" AS "victims" ON "last_victim" = victims."participant_id"
LEFT JOIN "participants" AS "murderers" ON "last_murderer" = murderers."participant_id";
`
