package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/chatkeeper/internal/apperror"
	"github.com/sakif/chatkeeper/internal/model"
)

func TestCreateOperator(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	op := &model.Operator{Login: "admin", PasswordHash: "$2a$10$fakehash"}
	if err := db.CreateOperator(ctx, op); err != nil {
		t.Fatalf("CreateOperator() error = %v", err)
	}
	if op.ID == "" {
		t.Error("CreateOperator() did not set ID")
	}
	if op.CreatedAt.IsZero() {
		t.Error("CreateOperator() did not set CreatedAt")
	}

	got, err := db.OperatorByLogin(ctx, "admin")
	if err != nil {
		t.Fatalf("OperatorByLogin() error = %v", err)
	}
	if got.ID != op.ID {
		t.Errorf("OperatorByLogin() id = %s, want %s", got.ID, op.ID)
	}

	byID, err := db.OperatorByID(ctx, op.ID)
	if err != nil {
		t.Fatalf("OperatorByID() error = %v", err)
	}
	if byID.Login != "admin" {
		t.Errorf("OperatorByID() login = %q", byID.Login)
	}
}

func TestCreateOperatorDuplicateLogin(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.CreateOperator(ctx, &model.Operator{Login: "admin", PasswordHash: "h"}); err != nil {
		t.Fatalf("CreateOperator() error = %v", err)
	}
	err := db.CreateOperator(ctx, &model.Operator{Login: "admin", PasswordHash: "h"})
	if !errors.Is(err, apperror.ErrNameConflict) {
		t.Errorf("CreateOperator(duplicate) error = %v, want ErrNameConflict", err)
	}
}

func TestOperatorMissing(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.OperatorByLogin(context.Background(), "nobody"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("OperatorByLogin(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := db.OperatorByID(context.Background(), "xid000"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("OperatorByID(missing) error = %v, want ErrNotFound", err)
	}
}
