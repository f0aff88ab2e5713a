package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sakif/chatkeeper/internal/apperror"
	"github.com/sakif/chatkeeper/internal/model"
)

// newTestDB returns a DB backed by a fresh in-memory database. t.Cleanup
// closes it when the test (or subtest) finishes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// resolveTestParticipant creates (or finds) a participant and fails the test
// on error.
func resolveTestParticipant(t *testing.T, db *DB, name string) *model.Participant {
	t.Helper()
	p, err := db.ResolveParticipant(context.Background(), name)
	if err != nil {
		t.Fatalf("failed to resolve participant %q: %v", name, err)
	}
	return p
}

// createTestUser registers a user and fails the test on error.
func createTestUser(t *testing.T, db *DB, name string) *model.User {
	t.Helper()
	u := &model.User{Name: name}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create test user %q: %v", name, err)
	}
	return u
}

func TestResolveParticipantCreates(t *testing.T) {
	db := newTestDB(t)

	p := resolveTestParticipant(t, db, "alice")
	if p.ID == 0 {
		t.Error("ResolveParticipant() returned the sentinel id for a new name")
	}
	if p.Name != "alice" {
		t.Errorf("ResolveParticipant() name = %q, want %q", p.Name, "alice")
	}
	if p.UserID != nil {
		t.Error("ResolveParticipant() created a linked participant")
	}
}

func TestResolveParticipantCaseInsensitive(t *testing.T) {
	db := newTestDB(t)

	first := resolveTestParticipant(t, db, "Alice")
	second := resolveTestParticipant(t, db, "ALICE")

	if first.ID != second.ID {
		t.Errorf("case variants resolved to different participants: %d vs %d", first.ID, second.ID)
	}
	// The stored display name is the one seen first.
	if second.Name != "Alice" {
		t.Errorf("resolved name = %q, want %q", second.Name, "Alice")
	}
}

func TestResolveParticipantMatchesAlias(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, db, "alice")
	if err := db.AddAlias(ctx, &model.Alias{UserID: u.ID, Name: "ally"}); err != nil {
		t.Fatalf("AddAlias() error = %v", err)
	}

	p, err := db.ResolveParticipant(ctx, "Ally")
	if err != nil {
		t.Fatalf("ResolveParticipant() error = %v", err)
	}
	if p.UserID == nil || *p.UserID != u.ID {
		t.Errorf("alias resolved to participant linked to %v, want user %d", p.UserID, u.ID)
	}
	if p.Name != "alice" {
		t.Errorf("alias resolved to %q, want canonical name %q", p.Name, "alice")
	}
}

func TestResolveParticipantCaseSensitiveAlias(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, db, "alice")
	if err := db.AddAlias(ctx, &model.Alias{UserID: u.ID, Name: "NiCk", CaseSensitive: true}); err != nil {
		t.Fatalf("AddAlias() error = %v", err)
	}

	// Exact case matches the alias.
	p := resolveTestParticipant(t, db, "NiCk")
	if p.UserID == nil || *p.UserID != u.ID {
		t.Error("exact-case alias did not resolve to the linked participant")
	}

	// A different casing does not, and mints a fresh participant instead.
	other := resolveTestParticipant(t, db, "nick")
	if other.ID == p.ID {
		t.Error("case-sensitive alias matched a different casing")
	}
}

func TestResolveParticipantConcurrent(t *testing.T) {
	db := newTestDB(t)

	const workers = 8
	ids := make([]int64, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := db.ResolveParticipant(context.Background(), "newcomer")
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = p.ID
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: ResolveParticipant() error = %v", i, err)
		}
	}
	for i := 1; i < workers; i++ {
		if ids[i] != ids[0] {
			t.Errorf("worker %d resolved id %d, worker 0 resolved %d", i, ids[i], ids[0])
		}
	}
}

func TestResolveParticipantEmptyName(t *testing.T) {
	db := newTestDB(t)

	_, err := db.ResolveParticipant(context.Background(), "   ")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("ResolveParticipant(blank) error = %v, want ErrValidation", err)
	}
}

func TestParticipantByNameNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.ParticipantByName(context.Background(), "ghost")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("ParticipantByName() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// USER CREATION AND LINKING
// =========================================================================

func TestCreateUserLinksExistingParticipant(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := resolveTestParticipant(t, db, "Bob")
	u := createTestUser(t, db, "bob")

	got, err := db.ParticipantByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("ParticipantByID() error = %v", err)
	}
	if got.UserID == nil || *got.UserID != u.ID {
		t.Errorf("participant link = %v, want user %d", got.UserID, u.ID)
	}
	// Linking adopts the user's canonical name.
	if got.Name != "bob" {
		t.Errorf("participant name = %q, want %q", got.Name, "bob")
	}
}

func TestCreateUserMintsParticipant(t *testing.T) {
	db := newTestDB(t)

	u := createTestUser(t, db, "carol")

	p, err := db.ParticipantByName(context.Background(), "carol")
	if err != nil {
		t.Fatalf("ParticipantByName() error = %v", err)
	}
	if p.UserID == nil || *p.UserID != u.ID {
		t.Errorf("new user's participant link = %v, want %d", p.UserID, u.ID)
	}
}

func TestCreateUserNameTaken(t *testing.T) {
	db := newTestDB(t)

	createTestUser(t, db, "dave")

	err := db.CreateUser(context.Background(), &model.User{Name: "DAVE"})
	if !errors.Is(err, apperror.ErrNameConflict) {
		t.Errorf("CreateUser(duplicate) error = %v, want ErrNameConflict", err)
	}
}

func TestCreateUserSetsFields(t *testing.T) {
	db := newTestDB(t)

	u := &model.User{
		Name:             "erin",
		CreationMetadata: map[string]any{"origin": "irc"},
	}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if u.ID == 0 {
		t.Error("CreateUser() did not set ID")
	}
	if u.CreatedAt.IsZero() {
		t.Error("CreateUser() did not set CreatedAt")
	}

	got, err := db.UserByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("UserByID() error = %v", err)
	}
	if got.CreationMetadata["origin"] != "irc" {
		t.Errorf("metadata round-trip = %v", got.CreationMetadata)
	}
}

func TestLinkParticipantAdoptsCanonicalName(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, db, "frank")
	// The user already has a linked participant, detach it first so a
	// different participant can be linked.
	p1, err := db.ParticipantByName(ctx, "frank")
	if err != nil {
		t.Fatalf("ParticipantByName() error = %v", err)
	}
	if err := db.UnlinkParticipant(ctx, p1.ID); err != nil {
		t.Fatalf("UnlinkParticipant() error = %v", err)
	}
	// Free the name so the link rename cannot collide with p1.
	if err := db.RenameParticipant(ctx, p1.ID, "frank_old"); err != nil {
		t.Fatalf("RenameParticipant() error = %v", err)
	}

	p2 := resolveTestParticipant(t, db, "franky")
	if err := db.LinkParticipant(ctx, p2.ID, u.ID); err != nil {
		t.Fatalf("LinkParticipant() error = %v", err)
	}

	got, err := db.ParticipantByID(ctx, p2.ID)
	if err != nil {
		t.Fatalf("ParticipantByID() error = %v", err)
	}
	if got.Name != "frank" {
		t.Errorf("linked participant name = %q, want %q", got.Name, "frank")
	}
	if got.UserID == nil || *got.UserID != u.ID {
		t.Errorf("linked participant user = %v, want %d", got.UserID, u.ID)
	}
}

func TestLinkParticipantAlreadyLinked(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u1 := createTestUser(t, db, "gina")
	u2 := createTestUser(t, db, "hank")

	p, err := db.ParticipantByName(ctx, "gina")
	if err != nil {
		t.Fatalf("ParticipantByName() error = %v", err)
	}

	err = db.LinkParticipant(ctx, p.ID, u2.ID)
	if !errors.Is(err, apperror.ErrNameConflict) {
		t.Errorf("LinkParticipant(relink) error = %v, want ErrNameConflict", err)
	}

	// Relinking to the same user is a no-op, not an error.
	if err := db.LinkParticipant(ctx, p.ID, u1.ID); err != nil {
		t.Errorf("LinkParticipant(same user) error = %v", err)
	}
}

// =========================================================================
// RENAME PROPAGATION
// =========================================================================

func TestRenameParticipantPropagatesToUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, db, "ivy")
	p, err := db.ParticipantByName(ctx, "ivy")
	if err != nil {
		t.Fatalf("ParticipantByName() error = %v", err)
	}

	if err := db.RenameParticipant(ctx, p.ID, "poison_ivy"); err != nil {
		t.Fatalf("RenameParticipant() error = %v", err)
	}

	gotU, err := db.UserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("UserByID() error = %v", err)
	}
	if gotU.Name != "poison_ivy" {
		t.Errorf("user name after participant rename = %q, want %q", gotU.Name, "poison_ivy")
	}
}

func TestRenameUserPropagatesToParticipant(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, db, "jack")
	if err := db.RenameUser(ctx, u.ID, "jackal"); err != nil {
		t.Fatalf("RenameUser() error = %v", err)
	}

	p, err := db.ParticipantByName(ctx, "jackal")
	if err != nil {
		t.Fatalf("ParticipantByName() error = %v", err)
	}
	if p.UserID == nil || *p.UserID != u.ID {
		t.Errorf("renamed participant link = %v, want %d", p.UserID, u.ID)
	}

	// The old name no longer resolves to an existing identity.
	if _, err := db.ParticipantByName(ctx, "jack"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("old name lookup error = %v, want ErrNotFound", err)
	}
}

func TestRenameParticipantConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	resolveTestParticipant(t, db, "kate")
	p := resolveTestParticipant(t, db, "kim")

	err := db.RenameParticipant(ctx, p.ID, "KATE")
	if !errors.Is(err, apperror.ErrNameConflict) {
		t.Errorf("RenameParticipant(taken) error = %v, want ErrNameConflict", err)
	}
}

func TestRenameParticipantSameNameNewCase(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := resolveTestParticipant(t, db, "luke")
	if err := db.RenameParticipant(ctx, p.ID, "Luke"); err != nil {
		t.Fatalf("RenameParticipant(case change) error = %v", err)
	}

	got, err := db.ParticipantByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("ParticipantByID() error = %v", err)
	}
	if got.Name != "Luke" {
		t.Errorf("name after case change = %q, want %q", got.Name, "Luke")
	}
}

// =========================================================================
// DELETION AND SENTINEL REASSIGNMENT
// =========================================================================

func TestDeleteParticipantLinkedFails(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestUser(t, db, "mona")
	p, err := db.ParticipantByName(ctx, "mona")
	if err != nil {
		t.Fatalf("ParticipantByName() error = %v", err)
	}

	err = db.DeleteParticipant(ctx, p.ID)
	if !errors.Is(err, apperror.ErrIdentityLinked) {
		t.Errorf("DeleteParticipant(linked) error = %v, want ErrIdentityLinked", err)
	}
}

func TestDeleteParticipantSentinelFails(t *testing.T) {
	db := newTestDB(t)

	err := db.DeleteParticipant(context.Background(), model.UnknownParticipantID)
	if !errors.Is(err, apperror.ErrConstraint) {
		t.Errorf("DeleteParticipant(sentinel) error = %v, want ErrConstraint", err)
	}
}

func TestDeleteParticipantReassignsQuotes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	author := resolveTestParticipant(t, db, "nina")
	submitter := resolveTestParticipant(t, db, "omar")

	q := &model.Quote{
		SubmitterID: submitter.ID,
		Lines: []model.QuoteLine{
			{Line: "first line", AuthorID: author.ID},
			{Line: "second line", AuthorID: author.ID},
		},
	}
	if err := db.AddQuote(ctx, q); err != nil {
		t.Fatalf("AddQuote() error = %v", err)
	}

	if err := db.DeleteParticipant(ctx, author.ID); err != nil {
		t.Fatalf("DeleteParticipant() error = %v", err)
	}

	got, err := db.QuoteByID(ctx, q.ID)
	if err != nil {
		t.Fatalf("QuoteByID() error = %v", err)
	}
	for _, l := range got.Lines {
		if l.AuthorID != model.UnknownParticipantID {
			t.Errorf("line %d author = %d, want sentinel", l.LineNum, l.AuthorID)
		}
	}

	// The participant itself is gone.
	if _, err := db.ParticipantByID(ctx, author.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("deleted participant lookup error = %v, want ErrNotFound", err)
	}
}

func TestDeleteParticipantMergesObitTally(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	killer := resolveTestParticipant(t, db, "pete")
	victim := resolveTestParticipant(t, db, "quinn")
	if err := db.RecordKill(ctx, killer.ID, victim.ID); err != nil {
		t.Fatalf("RecordKill() error = %v", err)
	}

	if err := db.DeleteParticipant(ctx, killer.ID); err != nil {
		t.Fatalf("DeleteParticipant() error = %v", err)
	}

	sentinel, err := db.ObitRecord(ctx, model.UnknownParticipantID)
	if err != nil {
		t.Fatalf("ObitRecord(sentinel) error = %v", err)
	}
	if sentinel.Kills != 1 {
		t.Errorf("sentinel kills after merge = %d, want 1", sentinel.Kills)
	}

	// The victim's last-murderer pointer was nulled, not redirected.
	vr, err := db.ObitRecord(ctx, victim.ID)
	if err != nil {
		t.Fatalf("ObitRecord(victim) error = %v", err)
	}
	if vr.LastMurdererID != nil {
		t.Errorf("victim last murderer = %v, want nil", vr.LastMurdererID)
	}
}

func TestDeleteUserUnlinksParticipant(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, db, "rosa")
	if err := db.AddAlias(ctx, &model.Alias{UserID: u.ID, Name: "rose"}); err != nil {
		t.Fatalf("AddAlias() error = %v", err)
	}

	if err := db.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	// The participant survives, unlinked.
	p, err := db.ParticipantByName(ctx, "rosa")
	if err != nil {
		t.Fatalf("ParticipantByName() error = %v", err)
	}
	if p.UserID != nil {
		t.Errorf("participant still linked to %d after user deletion", *p.UserID)
	}

	// The alias no longer resolves.
	if _, err := db.ParticipantByName(ctx, "rose"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("alias lookup after user deletion error = %v, want ErrNotFound", err)
	}

	if _, err := db.UserByID(ctx, u.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("deleted user lookup error = %v, want ErrNotFound", err)
	}
}

func TestDeleteUserMissing(t *testing.T) {
	db := newTestDB(t)

	err := db.DeleteUser(context.Background(), 9999)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DeleteUser(missing) error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// ALIASES AND NAME LISTINGS
// =========================================================================

func TestAddAliasDuplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, db, "sara")
	if err := db.AddAlias(ctx, &model.Alias{UserID: u.ID, Name: "sally"}); err != nil {
		t.Fatalf("AddAlias() error = %v", err)
	}
	err := db.AddAlias(ctx, &model.Alias{UserID: u.ID, Name: "sally"})
	if !errors.Is(err, apperror.ErrNameConflict) {
		t.Errorf("AddAlias(duplicate) error = %v, want ErrNameConflict", err)
	}
}

func TestRemoveAlias(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, db, "tess")
	if err := db.AddAlias(ctx, &model.Alias{UserID: u.ID, Name: "tessa"}); err != nil {
		t.Fatalf("AddAlias() error = %v", err)
	}
	if err := db.RemoveAlias(ctx, u.ID, "tessa"); err != nil {
		t.Fatalf("RemoveAlias() error = %v", err)
	}
	if err := db.RemoveAlias(ctx, u.ID, "tessa"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("RemoveAlias(gone) error = %v, want ErrNotFound", err)
	}
}

func TestListNames(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, db, "uma")
	if err := db.AddAlias(ctx, &model.Alias{UserID: u.ID, Name: "U", CaseSensitive: true}); err != nil {
		t.Fatalf("AddAlias() error = %v", err)
	}
	p, err := db.ParticipantByName(ctx, "uma")
	if err != nil {
		t.Fatalf("ParticipantByName() error = %v", err)
	}

	names, err := db.ListNames(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListNames() error = %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("ListNames() returned %d entries, want 2", len(names))
	}
	if names[0].Name != "uma" || names[0].CaseSensitive {
		t.Errorf("first entry = %+v, want canonical name first", names[0])
	}
	if names[1].Name != "U" || !names[1].CaseSensitive {
		t.Errorf("second entry = %+v, want case-sensitive alias", names[1])
	}
}

func TestUserByNameIgnoreCase(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, db, "vic")
	if err := db.AddAlias(ctx, &model.Alias{UserID: u.ID, Name: "Vicky", CaseSensitive: true}); err != nil {
		t.Fatalf("AddAlias() error = %v", err)
	}

	// Wrong case against a case-sensitive alias misses by default.
	if _, err := db.UserByName(ctx, "vicky", false); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UserByName(strict) error = %v, want ErrNotFound", err)
	}

	// ignoreCase overrides the alias's sensitivity.
	got, err := db.UserByName(ctx, "vicky", true)
	if err != nil {
		t.Fatalf("UserByName(ignoreCase) error = %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("UserByName(ignoreCase) = user %d, want %d", got.ID, u.ID)
	}
}
