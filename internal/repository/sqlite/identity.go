package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sakif/chatkeeper/internal/apperror"
	"github.com/sakif/chatkeeper/internal/model"
	"github.com/sakif/chatkeeper/internal/repository"
)

// compile-time check that *DB implements repository.IdentityRepository
var _ repository.IdentityRepository = (*DB)(nil)

// querier lets the lookup helpers run either on the pool or inside a
// transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ResolveParticipant returns the participant known by name, creating an
// unlinked one on first sight. Lookup is case-insensitive and also matches
// user aliases, so a registered user's alternate nick resolves to the same
// participant as their canonical name.
//
// Two callers racing on the same new name both land here with no row
// present; the UNIQUE index on the folded name arbitrates. The loser's
// INSERT is a no-op (ON CONFLICT DO NOTHING) and the re-read returns the
// winner's row, so both receive identical ids.
func (db *DB) ResolveParticipant(ctx context.Context, name string) (*model.Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "participant name is required")
	}

	for attempt := 0; attempt < 2; attempt++ {
		p, err := lookupParticipant(ctx, db.conn, name)
		if err == nil {
			return p, nil
		}
		if !isNoRows(err) {
			return nil, fmt.Errorf("sqlite: resolving participant %q: %w", name, err)
		}

		_, err = db.conn.ExecContext(ctx,
			`INSERT INTO "participants" ("name", "name_folded")
			 VALUES (?, ?)
			 ON CONFLICT ("name_folded") DO NOTHING`,
			name, foldName(name),
		)
		if err != nil {
			if isBusy(err) {
				return nil, apperror.Contention("resolve participant")
			}
			return nil, fmt.Errorf("sqlite: creating participant %q: %w", name, err)
		}
		// Whether we won or lost the insert race, the row exists now;
		// loop back and read it.
	}

	return nil, apperror.Contention("resolve participant")
}

// lookupParticipant matches name against canonical participant names
// (case-folded) and user aliases (honoring per-alias case sensitivity).
// Returns sql.ErrNoRows when nothing matches.
func lookupParticipant(ctx context.Context, q querier, name string) (*model.Participant, error) {
	folded := foldName(name)
	var (
		p      model.Participant
		userID sql.NullInt64
	)
	err := q.QueryRowContext(ctx,
		`SELECT "participant_id", "name", "user_id"
		 FROM "participants"
		 WHERE "name_folded" = ?
		 UNION
		 SELECT p."participant_id", p."name", p."user_id"
		 FROM "participants" AS "p"
		 JOIN "aliases" AS "a" USING ("user_id")
		 WHERE (a."case_sensitive" = 0 AND a."name_folded" = ?)
		    OR (a."case_sensitive" = 1 AND a."name" = ?)
		 LIMIT 1`,
		folded, folded, name,
	).Scan(&p.ID, &p.Name, &userID)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		p.UserID = &userID.Int64
	}
	return &p, nil
}

func isNoRows(err error) bool {
	return err == sql.ErrNoRows
}

// ParticipantByID retrieves a participant by id.
func (db *DB) ParticipantByID(ctx context.Context, id int64) (*model.Participant, error) {
	return participantByID(ctx, db.conn, id)
}

func participantByID(ctx context.Context, q querier, id int64) (*model.Participant, error) {
	var (
		p      model.Participant
		userID sql.NullInt64
	)
	err := q.QueryRowContext(ctx,
		`SELECT "participant_id", "name", "user_id"
		 FROM "participants" WHERE "participant_id" = ?`,
		id,
	).Scan(&p.ID, &p.Name, &userID)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("participant", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting participant %d: %w", id, err)
	}
	if userID.Valid {
		p.UserID = &userID.Int64
	}
	return &p, nil
}

// ParticipantByName is a pure lookup: same matching rules as
// ResolveParticipant, but a miss is NotFound instead of a creation.
func (db *DB) ParticipantByName(ctx context.Context, name string) (*model.Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "participant name is required")
	}
	p, err := lookupParticipant(ctx, db.conn, name)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("participant", name)
		}
		return nil, fmt.Errorf("sqlite: looking up participant %q: %w", name, err)
	}
	return p, nil
}

// RenameParticipant changes a participant's observed name. If the
// participant is linked to a user, the user's canonical name follows in the
// same transaction, so the two names stay identical whenever linked. Fails with
// NameConflict when the new name already denotes a distinct identity.
func (db *DB) RenameParticipant(ctx context.Context, id int64, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return apperror.ValidationFailed("name", "new name is required")
	}

	return db.withTx(ctx, "rename participant", func(tx *sql.Tx) error {
		p, err := participantByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := ensureNameFree(ctx, tx, newName, id, p.UserID); err != nil {
			return err
		}
		if err := applyRename(ctx, tx, p, newName); err != nil {
			return err
		}
		return nil
	})
}

// RenameUser changes a user's canonical name; the linked participant's name
// follows in the same transaction.
func (db *DB) RenameUser(ctx context.Context, id int64, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return apperror.ValidationFailed("name", "new name is required")
	}

	return db.withTx(ctx, "rename user", func(tx *sql.Tx) error {
		u, err := userByID(ctx, tx, id)
		if err != nil {
			return err
		}

		// The linked participant, if any, gets the same treatment.
		p, err := participantByUser(ctx, tx, id)
		if err != nil && !isNoRows(err) {
			return fmt.Errorf("sqlite: finding participant for user %d: %w", id, err)
		}

		var pid int64 = -1
		if p != nil {
			pid = p.ID
		}
		if err := ensureNameFree(ctx, tx, newName, pid, &u.ID); err != nil {
			return err
		}

		if p != nil {
			return applyRename(ctx, tx, p, newName)
		}

		// No linked participant: only the user row changes.
		_, err = tx.ExecContext(ctx,
			`UPDATE "users" SET "name" = ?, "name_folded" = ? WHERE "user_id" = ?`,
			newName, foldName(newName), id,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.NameConflict(newName, "already denotes another identity")
			}
			return fmt.Errorf("sqlite: renaming user %d: %w", id, err)
		}
		return nil
	})
}

// applyRename writes the new name to the participant row and, when linked,
// to the owning user row. Callers have already checked for conflicts;
// unique violations here mean a concurrent writer beat us and are reported
// as conflicts all the same.
func applyRename(ctx context.Context, tx *sql.Tx, p *model.Participant, newName string) error {
	folded := foldName(newName)
	_, err := tx.ExecContext(ctx,
		`UPDATE "participants" SET "name" = ?, "name_folded" = ? WHERE "participant_id" = ?`,
		newName, folded, p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.NameConflict(newName, "already denotes another identity")
		}
		return fmt.Errorf("sqlite: renaming participant %d: %w", p.ID, err)
	}

	if p.UserID != nil {
		_, err := tx.ExecContext(ctx,
			`UPDATE "users" SET "name" = ?, "name_folded" = ? WHERE "user_id" = ?`,
			newName, folded, *p.UserID,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.NameConflict(newName, "already denotes another identity")
			}
			return fmt.Errorf("sqlite: renaming user %d: %w", *p.UserID, err)
		}
	}
	return nil
}

// ensureNameFree fails with NameConflict when name already denotes an
// identity other than the (participant, user) pair being renamed. Aliases
// count: a name that matches someone else's alias is taken.
func ensureNameFree(ctx context.Context, tx *sql.Tx, name string, participantID int64, userID *int64) error {
	existing, err := lookupParticipant(ctx, tx, name)
	if err == nil && existing.ID != participantID {
		return apperror.NameConflict(name, "already denotes another identity")
	}
	if err != nil && !isNoRows(err) {
		return fmt.Errorf("sqlite: checking name %q: %w", name, err)
	}

	var ownerID int64
	err = tx.QueryRowContext(ctx,
		`SELECT "user_id" FROM "users_all_names" WHERE "name" = ? COLLATE NOCASE
		 UNION
		 SELECT "user_id" FROM "users" WHERE "name_folded" = ?
		 LIMIT 1`,
		name, foldName(name),
	).Scan(&ownerID)
	if err == nil && (userID == nil || ownerID != *userID) {
		return apperror.NameConflict(name, "already belongs to another user")
	}
	if err != nil && !isNoRows(err) {
		return fmt.Errorf("sqlite: checking user name %q: %w", name, err)
	}
	return nil
}

// CreateUser registers a durable identity. If an unlinked participant
// already bears the same case-folded name, it is linked to the new user
// instead of a duplicate identity appearing; if no participant bears the
// name, one is created alongside so the user is immediately attributable.
// A participant linked to some other user makes the name taken: NameConflict.
func (db *DB) CreateUser(ctx context.Context, u *model.User) error {
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return apperror.ValidationFailed("name", "user name is required")
	}

	return db.withTx(ctx, "create user", func(tx *sql.Tx) error {
		metadata, err := marshalMetadata(u.CreationMetadata)
		if err != nil {
			return err
		}
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now()
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO "users" ("name", "name_folded", "created_at", "creation_flags", "creation_metadata", "comment")
			 VALUES (?, ?, ?, ?, ?, ?)`,
			u.Name, foldName(u.Name), u.CreatedAt, u.CreationFlags, metadata, nullString(u.Comment),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.NameConflict(u.Name, "already registered to a user")
			}
			return fmt.Errorf("sqlite: inserting user %q: %w", u.Name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading new user id: %w", err)
		}
		u.ID = id

		existing, err := lookupParticipant(ctx, tx, u.Name)
		switch {
		case err == nil && existing.UserID != nil:
			return apperror.NameConflict(u.Name, "already belongs to a linked participant")
		case err == nil:
			// Adopt the anonymous participant; its history becomes the
			// user's history.
			_, err := tx.ExecContext(ctx,
				`UPDATE "participants" SET "user_id" = ?, "name" = ? WHERE "participant_id" = ?`,
				u.ID, u.Name, existing.ID,
			)
			if err != nil {
				return fmt.Errorf("sqlite: linking participant %d: %w", existing.ID, err)
			}
		case isNoRows(err):
			_, err := tx.ExecContext(ctx,
				`INSERT INTO "participants" ("name", "name_folded", "user_id") VALUES (?, ?, ?)`,
				u.Name, foldName(u.Name), u.ID,
			)
			if err != nil {
				return fmt.Errorf("sqlite: creating participant for user %q: %w", u.Name, err)
			}
		default:
			return fmt.Errorf("sqlite: checking participant %q: %w", u.Name, err)
		}
		return nil
	})
}

// UserByID retrieves a user by id.
func (db *DB) UserByID(ctx context.Context, id int64) (*model.User, error) {
	return userByID(ctx, db.conn, id)
}

func userByID(ctx context.Context, q querier, id int64) (*model.User, error) {
	var (
		u        model.User
		metadata sql.NullString
		comment  sql.NullString
	)
	err := q.QueryRowContext(ctx,
		`SELECT "user_id", "name", "created_at", "creation_flags", "creation_metadata", "comment"
		 FROM "users" WHERE "user_id" = ?`,
		id,
	).Scan(&u.ID, &u.Name, &u.CreatedAt, &u.CreationFlags, &metadata, &comment)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	if err := unmarshalMetadata(metadata, &u.CreationMetadata); err != nil {
		return nil, err
	}
	u.Comment = comment.String
	return &u, nil
}

// UserByName matches name against canonical user names and aliases.
// Canonical names always match case-insensitively; a case-sensitive alias
// matches exactly unless ignoreCase overrides it.
func (db *DB) UserByName(ctx context.Context, name string, ignoreCase bool) (*model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "user name is required")
	}

	folded := foldName(name)
	var id int64
	var err error
	if ignoreCase {
		err = db.conn.QueryRowContext(ctx,
			`SELECT "user_id" FROM "users" WHERE "name_folded" = ?
			 UNION
			 SELECT "user_id" FROM "aliases" WHERE "name_folded" = ?
			 LIMIT 1`,
			folded, folded,
		).Scan(&id)
	} else {
		err = db.conn.QueryRowContext(ctx,
			`SELECT "user_id" FROM "users" WHERE "name_folded" = ?
			 UNION
			 SELECT "user_id" FROM "aliases"
			 WHERE ("case_sensitive" = 0 AND "name_folded" = ?)
			    OR ("case_sensitive" = 1 AND "name" = ?)
			 LIMIT 1`,
			folded, folded, name,
		).Scan(&id)
	}
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user", name)
		}
		return nil, fmt.Errorf("sqlite: looking up user %q: %w", name, err)
	}
	return userByID(ctx, db.conn, id)
}

// participantByUser fetches the participant linked to userID. Returns
// sql.ErrNoRows when the user has no linked participant.
func participantByUser(ctx context.Context, q querier, userID int64) (*model.Participant, error) {
	var p model.Participant
	err := q.QueryRowContext(ctx,
		`SELECT "participant_id", "name", "user_id"
		 FROM "participants" WHERE "user_id" = ?`,
		userID,
	).Scan(&p.ID, &p.Name, &p.UserID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// LinkParticipant binds an existing participant to an existing user. The
// user's canonical name wins: the participant is renamed to match, since the
// two names are identical while linked.
func (db *DB) LinkParticipant(ctx context.Context, participantID, userID int64) error {
	return db.withTx(ctx, "link participant", func(tx *sql.Tx) error {
		p, err := participantByID(ctx, tx, participantID)
		if err != nil {
			return err
		}
		u, err := userByID(ctx, tx, userID)
		if err != nil {
			return err
		}

		if p.UserID != nil {
			if *p.UserID == userID {
				return nil // already linked as requested
			}
			return apperror.NameConflict(p.Name, "already belongs to a linked participant")
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE "participants" SET "user_id" = ?, "name" = ?, "name_folded" = ?
			 WHERE "participant_id" = ?`,
			userID, u.Name, foldName(u.Name), participantID,
		)
		if err != nil {
			if isUniqueViolation(err) {
				// Either the user already has a participant or the user's
				// name is held by another participant.
				return apperror.NameConflict(u.Name, "already denotes another identity")
			}
			return fmt.Errorf("sqlite: linking participant %d to user %d: %w", participantID, userID, err)
		}
		return nil
	})
}

// UnlinkParticipant detaches a participant from its user without touching
// either row's name. The participant reverts to an anonymous identity.
func (db *DB) UnlinkParticipant(ctx context.Context, participantID int64) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE "participants" SET "user_id" = NULL WHERE "participant_id" = ?`,
		participantID,
	)
	if err != nil {
		if isBusy(err) {
			return apperror.Contention("unlink participant")
		}
		return fmt.Errorf("sqlite: unlinking participant %d: %w", participantID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("participant", strconv.FormatInt(participantID, 10))
	}
	return nil
}

// DeleteParticipant removes an unlinked participant. Feature rows that
// reference it are reassigned to the sentinel participant (submitter/author
// attribution) or nulled (pointer fields), never deleted: history survives
// identity pruning. A linked participant cannot be deleted; unlink first.
func (db *DB) DeleteParticipant(ctx context.Context, id int64) error {
	if id == sentinelParticipantID {
		return apperror.Constraint("the sentinel participant cannot be deleted")
	}

	return db.withTx(ctx, "delete participant", func(tx *sql.Tx) error {
		p, err := participantByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.UserID != nil {
			return apperror.IdentityLinked(p.Name)
		}

		// Attribution columns fall back to the sentinel.
		reassign := []string{
			`UPDATE "quote" SET "submitter" = 0 WHERE "submitter" = ?`,
			`UPDATE "quote_lines" SET "participant_id" = 0 WHERE "participant_id" = ?`,
			`UPDATE "obit_strings" SET "submitter" = 0 WHERE "submitter" = ?`,
			`UPDATE "chat_activity" SET "submitter" = 0 WHERE "submitter" = ?`,
			`UPDATE "chat_badcmd" SET "submitter" = 0 WHERE "submitter" = ?`,
			`UPDATE "chat_berate" SET "submitter" = 0 WHERE "submitter" = ?`,
			`UPDATE "chat_greetings" SET "submitter" = 0 WHERE "submitter" = ?`,
			`UPDATE "chat_mentioned" SET "submitter" = 0 WHERE "submitter" = ?`,
			`UPDATE "chat_questioned" SET "submitter" = 0 WHERE "submitter" = ?`,
			`UPDATE "magic8ball" SET "submitter" = 0 WHERE "submitter" = ?`,
			// Pointer and tag fields are nulled instead.
			`UPDATE "markov_corpus" SET "author" = NULL WHERE "author" = ?`,
			`UPDATE "counter" SET "last_user" = NULL WHERE "last_user" = ?`,
			`UPDATE "obit" SET "last_victim" = NULL WHERE "last_victim" = ?`,
			`UPDATE "obit" SET "last_murderer" = NULL WHERE "last_murderer" = ?`,
		}
		for _, stmt := range reassign {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return fmt.Errorf("sqlite: reassigning feature rows for participant %d: %w", id, err)
			}
		}

		// The participant's own tally merges into the sentinel's row so the
		// historical counts are not lost.
		if err := mergeObitIntoSentinel(ctx, tx, id); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM "participants" WHERE "participant_id" = ?`, id,
		); err != nil {
			return fmt.Errorf("sqlite: deleting participant %d: %w", id, err)
		}
		return nil
	})
}

// mergeObitIntoSentinel folds a doomed participant's obit tally into the
// sentinel row, then drops the original.
func mergeObitIntoSentinel(ctx context.Context, tx *sql.Tx, id int64) error {
	var kills, deaths, suicides int
	err := tx.QueryRowContext(ctx,
		`SELECT "kills", "deaths", "suicides" FROM "obit" WHERE "participant_id" = ?`,
		id,
	).Scan(&kills, &deaths, &suicides)
	if isNoRows(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("sqlite: reading obit row for participant %d: %w", id, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO "obit" ("participant_id", "kills", "deaths", "suicides")
		 VALUES (0, ?, ?, ?)
		 ON CONFLICT ("participant_id") DO UPDATE SET
			"kills" = "kills" + excluded."kills",
			"deaths" = "deaths" + excluded."deaths",
			"suicides" = "suicides" + excluded."suicides"`,
		kills, deaths, suicides,
	)
	if err != nil {
		return fmt.Errorf("sqlite: merging obit row into sentinel: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM "obit" WHERE "participant_id" = ?`, id,
	); err != nil {
		return fmt.Errorf("sqlite: deleting obit row for participant %d: %w", id, err)
	}
	return nil
}

// DeleteUser removes a user: its participant is unlinked (not deleted, so
// feature attribution survives), its aliases cascade away, and the user row
// goes. Succeeds unconditionally for an existing user.
func (db *DB) DeleteUser(ctx context.Context, id int64) error {
	return db.withTx(ctx, "delete user", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE "participants" SET "user_id" = NULL WHERE "user_id" = ?`, id,
		); err != nil {
			return fmt.Errorf("sqlite: unlinking participant of user %d: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM "aliases" WHERE "user_id" = ?`, id,
		); err != nil {
			return fmt.Errorf("sqlite: deleting aliases of user %d: %w", id, err)
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM "users" WHERE "user_id" = ?`, id,
		)
		if err != nil {
			return fmt.Errorf("sqlite: deleting user %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if n == 0 {
			return apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil
	})
}

// AddAlias attaches an alternate name to a user. The (user, alias) pair must
// be unique; colliding with an existing alias of the same user is a
// NameConflict.
func (db *DB) AddAlias(ctx context.Context, a *model.Alias) error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return apperror.ValidationFailed("alias", "alias is required")
	}
	metadata, err := marshalMetadata(a.CreationMetadata)
	if err != nil {
		return err
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now()
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO "aliases" ("user_id", "name", "name_folded", "case_sensitive", "created_at", "creation_flags", "creation_metadata", "comment")
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.Name, foldName(a.Name), a.CaseSensitive, a.CreatedAt, a.CreationFlags, metadata, nullString(a.Comment),
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperror.NameConflict(a.Name, "is already an alias of this user")
		case isForeignKeyViolation(err):
			return apperror.NotFound("user", strconv.FormatInt(a.UserID, 10))
		case isBusy(err):
			return apperror.Contention("add alias")
		}
		return fmt.Errorf("sqlite: adding alias %q: %w", a.Name, err)
	}
	return nil
}

// RemoveAlias deletes one of a user's aliases.
func (db *DB) RemoveAlias(ctx context.Context, userID int64, name string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM "aliases" WHERE "user_id" = ? AND "name" = ?`,
		userID, name,
	)
	if err != nil {
		if isBusy(err) {
			return apperror.Contention("remove alias")
		}
		return fmt.Errorf("sqlite: removing alias %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("alias", name)
	}
	return nil
}

// Aliases lists a user's aliases.
func (db *DB) Aliases(ctx context.Context, userID int64) ([]model.Alias, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT "user_id", "name", "case_sensitive", "created_at", "creation_flags", "creation_metadata", "comment"
		 FROM "aliases" WHERE "user_id" = ? ORDER BY "name"`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing aliases of user %d: %w", userID, err)
	}
	defer rows.Close()

	var aliases []model.Alias
	for rows.Next() {
		var (
			a        model.Alias
			metadata sql.NullString
			comment  sql.NullString
		)
		if err := rows.Scan(&a.UserID, &a.Name, &a.CaseSensitive, &a.CreatedAt, &a.CreationFlags, &metadata, &comment); err != nil {
			return nil, fmt.Errorf("sqlite: scanning alias row: %w", err)
		}
		if err := unmarshalMetadata(metadata, &a.CreationMetadata); err != nil {
			return nil, err
		}
		a.Comment = comment.String
		aliases = append(aliases, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating aliases: %w", err)
	}
	return aliases, nil
}

// ListNames returns the participant's full set of names: the canonical name
// first, then the aliases of the linked user (if any), each tagged with its
// case-sensitivity flag.
func (db *DB) ListNames(ctx context.Context, participantID int64) ([]model.NameEntry, error) {
	p, err := db.ParticipantByID(ctx, participantID)
	if err != nil {
		return nil, err
	}

	names := []model.NameEntry{{Name: p.Name, CaseSensitive: false}}
	if p.UserID == nil {
		return names, nil
	}

	aliases, err := db.Aliases(ctx, *p.UserID)
	if err != nil {
		return nil, err
	}
	for _, a := range aliases {
		names = append(names, model.NameEntry{Name: a.Name, CaseSensitive: a.CaseSensitive})
	}
	return names, nil
}

func marshalMetadata(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding creation metadata: %w", err)
	}
	return string(b), nil
}

func unmarshalMetadata(s sql.NullString, dst *map[string]any) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(s.String), dst); err != nil {
		return fmt.Errorf("sqlite: decoding creation metadata: %w", err)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
