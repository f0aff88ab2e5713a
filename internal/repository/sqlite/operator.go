package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/chatkeeper/internal/apperror"
	"github.com/sakif/chatkeeper/internal/model"
	"github.com/sakif/chatkeeper/internal/repository"
)

var _ repository.OperatorRepository = (*DB)(nil)

// CreateOperator inserts an admin account, assigning its id.
func (db *DB) CreateOperator(ctx context.Context, op *model.Operator) error {
	op.Login = strings.TrimSpace(op.Login)
	if op.Login == "" {
		return apperror.ValidationFailed("login", "login is required")
	}

	op.ID = xid.New().String()
	ts := now()
	op.CreatedAt = ts
	op.UpdatedAt = ts

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO "operators" ("id", "login", "password_hash", "created_at", "updated_at")
		 VALUES (?, ?, ?, ?, ?)`,
		op.ID, op.Login, op.PasswordHash, op.CreatedAt, op.UpdatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperror.NameConflict(op.Login, "is already taken")
		case isBusy(err):
			return apperror.Contention("create operator")
		}
		return fmt.Errorf("sqlite: inserting operator %q: %w", op.Login, err)
	}
	return nil
}

// OperatorByLogin retrieves an operator by login.
func (db *DB) OperatorByLogin(ctx context.Context, login string) (*model.Operator, error) {
	var op model.Operator
	err := db.conn.QueryRowContext(ctx,
		`SELECT "id", "login", "password_hash", "created_at", "updated_at"
		 FROM "operators" WHERE "login" = ?`,
		login,
	).Scan(&op.ID, &op.Login, &op.PasswordHash, &op.CreatedAt, &op.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("operator", login)
		}
		return nil, fmt.Errorf("sqlite: getting operator %q: %w", login, err)
	}
	return &op, nil
}

// OperatorByID retrieves an operator by id.
func (db *DB) OperatorByID(ctx context.Context, id string) (*model.Operator, error) {
	var op model.Operator
	err := db.conn.QueryRowContext(ctx,
		`SELECT "id", "login", "password_hash", "created_at", "updated_at"
		 FROM "operators" WHERE "id" = ?`,
		id,
	).Scan(&op.ID, &op.Login, &op.PasswordHash, &op.CreatedAt, &op.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("operator", id)
		}
		return nil, fmt.Errorf("sqlite: getting operator %s: %w", id, err)
	}
	return &op, nil
}
