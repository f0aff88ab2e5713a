package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/chatkeeper/internal/apperror"
	"github.com/sakif/chatkeeper/internal/model"
)

func strptr(s string) *string { return &s }

func TestGetOrCreateSourceIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first, err := db.GetOrCreateSource(ctx, "irc", strptr("irc.libera.chat"), strptr("#go-nuts"))
	if err != nil {
		t.Fatalf("GetOrCreateSource() error = %v", err)
	}
	second, err := db.GetOrCreateSource(ctx, "irc", strptr("irc.libera.chat"), strptr("#go-nuts"))
	if err != nil {
		t.Fatalf("GetOrCreateSource() error = %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("same coordinates minted two sources: %d, %d", first.ID, second.ID)
	}
}

func TestGetOrCreateSourceNullCoordinates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	bare, err := db.GetOrCreateSource(ctx, "irc", nil, nil)
	if err != nil {
		t.Fatalf("GetOrCreateSource(nil, nil) error = %v", err)
	}
	withServer, err := db.GetOrCreateSource(ctx, "irc", strptr("irc.libera.chat"), nil)
	if err != nil {
		t.Fatalf("GetOrCreateSource(server, nil) error = %v", err)
	}
	if bare.ID == withServer.ID {
		t.Error("nil server treated as a wildcard, want a distinct coordinate")
	}

	again, err := db.GetOrCreateSource(ctx, "irc", nil, nil)
	if err != nil {
		t.Fatalf("GetOrCreateSource(nil, nil) error = %v", err)
	}
	if again.ID != bare.ID {
		t.Errorf("nil coordinates not idempotent: %d vs %d", again.ID, bare.ID)
	}
}

func TestGetOrCreateSourceUnknownProtocol(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetOrCreateSource(context.Background(), "telegraph", nil, nil)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetOrCreateSource(unknown protocol) error = %v, want ErrNotFound", err)
	}
}

func TestRegisterProtocolUpsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.RegisterProtocol(ctx, model.Protocol{Identifier: "matrix", Name: "Matrix"}); err != nil {
		t.Fatalf("RegisterProtocol() error = %v", err)
	}
	// Re-registering updates the display name.
	if err := db.RegisterProtocol(ctx, model.Protocol{Identifier: "matrix", Name: "Matrix v2"}); err != nil {
		t.Fatalf("RegisterProtocol(again) error = %v", err)
	}

	protocols, err := db.Protocols(ctx)
	if err != nil {
		t.Fatalf("Protocols() error = %v", err)
	}
	var found *model.Protocol
	for i := range protocols {
		if protocols[i].Identifier == "matrix" {
			found = &protocols[i]
		}
	}
	if found == nil {
		t.Fatal("registered protocol missing from listing")
	}
	if found.Name != "Matrix v2" {
		t.Errorf("protocol name = %q, want Matrix v2", found.Name)
	}
}

func TestSeededProtocols(t *testing.T) {
	db := newTestDB(t)

	protocols, err := db.Protocols(context.Background())
	if err != nil {
		t.Fatalf("Protocols() error = %v", err)
	}
	seen := map[string]bool{}
	for _, p := range protocols {
		seen[p.Identifier] = true
	}
	if !seen["irc"] || !seen["discord"] {
		t.Errorf("seeded protocols = %v, want irc and discord", seen)
	}
}

func TestSourceByIDMissing(t *testing.T) {
	db := newTestDB(t)

	_, err := db.SourceByID(context.Background(), 42)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("SourceByID(missing) error = %v, want ErrNotFound", err)
	}
}
