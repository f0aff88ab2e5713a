package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/chatkeeper/internal/apperror"
	"github.com/sakif/chatkeeper/internal/model"
)

func TestAddPhraseAndDraw(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := resolveTestParticipant(t, db, "alice")
	if err := db.AddPhrase(ctx, model.PhraseGreetings, &model.Phrase{
		Phrase:      "hello there",
		SubmitterID: p.ID,
	}); err != nil {
		t.Fatalf("AddPhrase() error = %v", err)
	}

	got, err := db.RandomPhrase(ctx, model.PhraseGreetings, nil)
	if err != nil {
		t.Fatalf("RandomPhrase() error = %v", err)
	}
	if got.Phrase != "hello there" {
		t.Errorf("RandomPhrase() = %q", got.Phrase)
	}
	if got.ResponseType != nil {
		t.Errorf("greeting carries a response type: %v", *got.ResponseType)
	}

	// Collections are independent: the same phrase is absent elsewhere.
	if _, err := db.RandomPhrase(ctx, model.PhraseBerate, nil); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("RandomPhrase(other table) error = %v, want ErrNotFound", err)
	}
}

func TestAddPhraseDuplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.AddPhrase(ctx, model.PhraseBadCmd, &model.Phrase{Phrase: "no such thing"}); err != nil {
		t.Fatalf("AddPhrase() error = %v", err)
	}
	err := db.AddPhrase(ctx, model.PhraseBadCmd, &model.Phrase{Phrase: "no such thing"})
	if !errors.Is(err, apperror.ErrConstraint) {
		t.Errorf("AddPhrase(duplicate) error = %v, want ErrConstraint", err)
	}

	// The same phrase in another collection is fine.
	if err := db.AddPhrase(ctx, model.PhraseBerate, &model.Phrase{Phrase: "no such thing"}); err != nil {
		t.Errorf("AddPhrase(other table) error = %v", err)
	}
}

func TestAddPhraseUnknownTable(t *testing.T) {
	db := newTestDB(t)

	err := db.AddPhrase(context.Background(), "nonsense", &model.Phrase{Phrase: "x"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("AddPhrase(bad table) error = %v, want ErrValidation", err)
	}
}

func TestQuestionedPhraseSentiment(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	pos := model.ResponsePositive
	neg := model.ResponseNegative
	if err := db.AddPhrase(ctx, model.PhraseQuestioned, &model.Phrase{Phrase: "yes", ResponseType: &pos}); err != nil {
		t.Fatalf("AddPhrase() error = %v", err)
	}
	if err := db.AddPhrase(ctx, model.PhraseQuestioned, &model.Phrase{Phrase: "no", ResponseType: &neg}); err != nil {
		t.Fatalf("AddPhrase() error = %v", err)
	}

	got, err := db.RandomPhrase(ctx, model.PhraseQuestioned, &neg)
	if err != nil {
		t.Fatalf("RandomPhrase(negative) error = %v", err)
	}
	if got.Phrase != "no" {
		t.Errorf("negative draw = %q, want no", got.Phrase)
	}
	if got.ResponseType == nil || *got.ResponseType != model.ResponseNegative {
		t.Errorf("drawn response type = %v", got.ResponseType)
	}

	// A response type outside the questioned collection is rejected.
	err = db.AddPhrase(ctx, model.PhraseGreetings, &model.Phrase{Phrase: "hi", ResponseType: &pos})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("AddPhrase(typed greeting) error = %v, want ErrValidation", err)
	}
}

func TestRemovePhrase(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.AddPhrase(ctx, model.PhraseMentioned, &model.Phrase{Phrase: "you rang?"}); err != nil {
		t.Fatalf("AddPhrase() error = %v", err)
	}
	if err := db.RemovePhrase(ctx, model.PhraseMentioned, "you rang?"); err != nil {
		t.Fatalf("RemovePhrase() error = %v", err)
	}
	if err := db.RemovePhrase(ctx, model.PhraseMentioned, "you rang?"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("RemovePhrase(gone) error = %v, want ErrNotFound", err)
	}
}

func TestPhrasesListing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, s := range []string{"zzz", "aaa"} {
		if err := db.AddPhrase(ctx, model.PhraseActivity, &model.Phrase{Phrase: s}); err != nil {
			t.Fatalf("AddPhrase(%q) error = %v", s, err)
		}
	}
	phrases, err := db.Phrases(ctx, model.PhraseActivity)
	if err != nil {
		t.Fatalf("Phrases() error = %v", err)
	}
	if len(phrases) != 2 || phrases[0].Phrase != "aaa" {
		t.Errorf("Phrases() = %+v, want alphabetical order", phrases)
	}
}

func TestEightBall(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	sub := resolveTestParticipant(t, db, "mabel")

	acts := true
	if err := db.AddEightBall(ctx, &model.EightBallResponse{
		Response:      "signs point to yes",
		ResponseType:  model.ResponsePositive,
		ExpectsAction: &acts,
		SubmitterID:   sub.ID,
	}); err != nil {
		t.Fatalf("AddEightBall() error = %v", err)
	}
	if err := db.AddEightBall(ctx, &model.EightBallResponse{
		Response:     "outlook not so good",
		ResponseType: model.ResponseNegative,
	}); err != nil {
		t.Fatalf("AddEightBall() error = %v", err)
	}

	neg := model.ResponseNegative
	got, err := db.RandomEightBall(ctx, &neg)
	if err != nil {
		t.Fatalf("RandomEightBall(negative) error = %v", err)
	}
	if got.Response != "outlook not so good" {
		t.Errorf("negative draw = %q", got.Response)
	}
	if got.ExpectsAction != nil {
		t.Errorf("ExpectsAction = %v, want nil tri-state", *got.ExpectsAction)
	}

	pos := model.ResponsePositive
	got, err = db.RandomEightBall(ctx, &pos)
	if err != nil {
		t.Fatalf("RandomEightBall(positive) error = %v", err)
	}
	if got.ExpectsAction == nil || !*got.ExpectsAction {
		t.Errorf("ExpectsAction = %v, want true", got.ExpectsAction)
	}
	if got.SubmitterID != sub.ID {
		t.Errorf("SubmitterID = %d, want %d", got.SubmitterID, sub.ID)
	}

	err = db.AddEightBall(ctx, &model.EightBallResponse{Response: "signs point to yes"})
	if !errors.Is(err, apperror.ErrConstraint) {
		t.Errorf("AddEightBall(duplicate) error = %v, want ErrConstraint", err)
	}

	if err := db.RemoveEightBall(ctx, "signs point to yes"); err != nil {
		t.Fatalf("RemoveEightBall() error = %v", err)
	}
	if err := db.RemoveEightBall(ctx, "signs point to yes"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("RemoveEightBall(gone) error = %v, want ErrNotFound", err)
	}
}
