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

var _ repository.SourceRepository = (*DB)(nil)

// GetOrCreateSource returns the id of the (protocol, server, channel)
// origin, minting a row on first sight. The protocol must already be
// registered. Sources are append-only: identical coordinates always
// resolve to the same row.
func (db *DB) GetOrCreateSource(ctx context.Context, protocol string, server, channel *string) (*model.Source, error) {
	protocol = strings.TrimSpace(protocol)
	if protocol == "" {
		return nil, apperror.ValidationFailed("protocol", "protocol is required")
	}

	var src *model.Source
	err := db.withTx(ctx, "get or create source", func(tx *sql.Tx) error {
		var ok int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM "protocols" WHERE "identifier" = ?`, protocol,
		).Scan(&ok)
		if isNoRows(err) {
			return apperror.NotFound("protocol", protocol)
		}
		if err != nil {
			return fmt.Errorf("sqlite: checking protocol %q: %w", protocol, err)
		}

		found, err := findSource(ctx, tx, protocol, server, channel)
		if err == nil {
			src = found
			return nil
		}
		if !isNoRows(err) {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO "sources" ("protocol", "server", "channel") VALUES (?, ?, ?)`,
			protocol, nullStringPtr(server), nullStringPtr(channel),
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting source: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading new source id: %w", err)
		}
		src = &model.Source{ID: id, Protocol: protocol, Server: server, Channel: channel}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}

// findSource matches on exact coordinates. NULL server or channel is a
// distinct coordinate, not a wildcard, so the comparison has to be
// NULL-aware.
func findSource(ctx context.Context, q querier, protocol string, server, channel *string) (*model.Source, error) {
	var (
		src        model.Source
		srv, chann sql.NullString
	)
	err := q.QueryRowContext(ctx,
		`SELECT "source_id", "protocol", "server", "channel"
		 FROM "sources"
		 WHERE "protocol" = ? AND "server" IS ? AND "channel" IS ?`,
		protocol, nullStringPtr(server), nullStringPtr(channel),
	).Scan(&src.ID, &src.Protocol, &srv, &chann)
	if err != nil {
		return nil, err
	}
	if srv.Valid {
		src.Server = &srv.String
	}
	if chann.Valid {
		src.Channel = &chann.String
	}
	return &src, nil
}

// SourceByID retrieves a source by id.
func (db *DB) SourceByID(ctx context.Context, id int64) (*model.Source, error) {
	var (
		src        model.Source
		srv, chann sql.NullString
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT "source_id", "protocol", "server", "channel"
		 FROM "sources" WHERE "source_id" = ?`,
		id,
	).Scan(&src.ID, &src.Protocol, &srv, &chann)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("source", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting source %d: %w", id, err)
	}
	if srv.Valid {
		src.Server = &srv.String
	}
	if chann.Valid {
		src.Channel = &chann.String
	}
	return &src, nil
}

// RegisterProtocol records a chat protocol. Re-registering an existing
// identifier updates the display name.
func (db *DB) RegisterProtocol(ctx context.Context, p model.Protocol) error {
	p.Identifier = strings.TrimSpace(p.Identifier)
	if p.Identifier == "" {
		return apperror.ValidationFailed("identifier", "protocol identifier is required")
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO "protocols" ("identifier", "name") VALUES (?, ?)
		 ON CONFLICT ("identifier") DO UPDATE SET "name" = excluded."name"`,
		p.Identifier, p.Name,
	)
	if err != nil {
		if isBusy(err) {
			return apperror.Contention("register protocol")
		}
		return fmt.Errorf("sqlite: registering protocol %q: %w", p.Identifier, err)
	}
	return nil
}

// Protocols lists all registered protocols.
func (db *DB) Protocols(ctx context.Context) ([]model.Protocol, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT "identifier", "name" FROM "protocols" ORDER BY "identifier"`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing protocols: %w", err)
	}
	defer rows.Close()

	var protocols []model.Protocol
	for rows.Next() {
		var p model.Protocol
		if err := rows.Scan(&p.Identifier, &p.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning protocol row: %w", err)
		}
		protocols = append(protocols, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating protocols: %w", err)
	}
	return protocols, nil
}

func nullStringPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
