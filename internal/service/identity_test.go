package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/sakif/chatkeeper/internal/apperror"
	"github.com/sakif/chatkeeper/internal/model"
)

// testLogger discards output; tests assert on behaviour, not log lines.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockIdentityRepo is an in-memory repository.IdentityRepository. Names are
// folded with lowercase, which is enough for these tests.
type mockIdentityRepo struct {
	participants map[int64]*model.Participant
	users        map[int64]*model.User
	nextID       int64
}

func newMockIdentityRepo() *mockIdentityRepo {
	return &mockIdentityRepo{
		participants: make(map[int64]*model.Participant),
		users:        make(map[int64]*model.User),
	}
}

func (m *mockIdentityRepo) ResolveParticipant(_ context.Context, name string) (*model.Participant, error) {
	folded := strings.ToLower(strings.TrimSpace(name))
	for _, p := range m.participants {
		if strings.ToLower(p.Name) == folded {
			cp := *p
			return &cp, nil
		}
	}
	m.nextID++
	p := &model.Participant{ID: m.nextID, Name: strings.TrimSpace(name)}
	m.participants[p.ID] = p
	cp := *p
	return &cp, nil
}

func (m *mockIdentityRepo) ParticipantByID(_ context.Context, id int64) (*model.Participant, error) {
	p, ok := m.participants[id]
	if !ok {
		return nil, apperror.NotFound("participant", "id")
	}
	cp := *p
	return &cp, nil
}

func (m *mockIdentityRepo) ParticipantByName(_ context.Context, name string) (*model.Participant, error) {
	folded := strings.ToLower(strings.TrimSpace(name))
	for _, p := range m.participants {
		if strings.ToLower(p.Name) == folded {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("participant", name)
}

func (m *mockIdentityRepo) RenameParticipant(_ context.Context, id int64, newName string) error {
	p, ok := m.participants[id]
	if !ok {
		return apperror.NotFound("participant", "id")
	}
	p.Name = newName
	return nil
}

func (m *mockIdentityRepo) DeleteParticipant(_ context.Context, id int64) error {
	p, ok := m.participants[id]
	if !ok {
		return apperror.NotFound("participant", "id")
	}
	if p.UserID != nil {
		return apperror.IdentityLinked(p.Name)
	}
	delete(m.participants, id)
	return nil
}

func (m *mockIdentityRepo) CreateUser(_ context.Context, u *model.User) error {
	folded := strings.ToLower(u.Name)
	for _, existing := range m.users {
		if strings.ToLower(existing.Name) == folded {
			return apperror.NameConflict(u.Name, "already registered to a user")
		}
	}
	m.nextID++
	u.ID = m.nextID
	stored := *u
	m.users[u.ID] = &stored
	for _, p := range m.participants {
		if strings.ToLower(p.Name) == folded && p.UserID == nil {
			uid := u.ID
			p.UserID = &uid
			return nil
		}
	}
	m.nextID++
	uid := u.ID
	m.participants[m.nextID] = &model.Participant{ID: m.nextID, Name: u.Name, UserID: &uid}
	return nil
}

func (m *mockIdentityRepo) UserByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", "id")
	}
	cp := *u
	return &cp, nil
}

func (m *mockIdentityRepo) UserByName(_ context.Context, name string, _ bool) (*model.User, error) {
	folded := strings.ToLower(strings.TrimSpace(name))
	for _, u := range m.users {
		if strings.ToLower(u.Name) == folded {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFound("user", name)
}

func (m *mockIdentityRepo) RenameUser(_ context.Context, id int64, newName string) error {
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user", "id")
	}
	u.Name = newName
	return nil
}

func (m *mockIdentityRepo) DeleteUser(_ context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return apperror.NotFound("user", "id")
	}
	delete(m.users, id)
	for _, p := range m.participants {
		if p.UserID != nil && *p.UserID == id {
			p.UserID = nil
		}
	}
	return nil
}

func (m *mockIdentityRepo) LinkParticipant(_ context.Context, participantID, userID int64) error {
	p, ok := m.participants[participantID]
	if !ok {
		return apperror.NotFound("participant", "id")
	}
	p.UserID = &userID
	return nil
}

func (m *mockIdentityRepo) UnlinkParticipant(_ context.Context, participantID int64) error {
	p, ok := m.participants[participantID]
	if !ok {
		return apperror.NotFound("participant", "id")
	}
	p.UserID = nil
	return nil
}

func (m *mockIdentityRepo) AddAlias(_ context.Context, _ *model.Alias) error    { return nil }
func (m *mockIdentityRepo) RemoveAlias(_ context.Context, _ int64, _ string) error { return nil }
func (m *mockIdentityRepo) Aliases(_ context.Context, _ int64) ([]model.Alias, error) {
	return nil, nil
}
func (m *mockIdentityRepo) ListNames(_ context.Context, _ int64) ([]model.NameEntry, error) {
	return nil, nil
}

// mockSourceRepo is an in-memory repository.SourceRepository.
type mockSourceRepo struct {
	protocols map[string]model.Protocol
	sources   []*model.Source
}

func newMockSourceRepo() *mockSourceRepo {
	return &mockSourceRepo{protocols: map[string]model.Protocol{
		"irc": {Identifier: "irc", Name: "IRC"},
	}}
}

func (m *mockSourceRepo) GetOrCreateSource(_ context.Context, protocol string, server, channel *string) (*model.Source, error) {
	if _, ok := m.protocols[protocol]; !ok {
		return nil, apperror.NotFound("protocol", protocol)
	}
	eq := func(a, b *string) bool {
		if (a == nil) != (b == nil) {
			return false
		}
		return a == nil || *a == *b
	}
	for _, s := range m.sources {
		if s.Protocol == protocol && eq(s.Server, server) && eq(s.Channel, channel) {
			return s, nil
		}
	}
	s := &model.Source{ID: int64(len(m.sources) + 1), Protocol: protocol, Server: server, Channel: channel}
	m.sources = append(m.sources, s)
	return s, nil
}

func (m *mockSourceRepo) SourceByID(_ context.Context, id int64) (*model.Source, error) {
	for _, s := range m.sources {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, apperror.NotFound("source", "id")
}

func (m *mockSourceRepo) RegisterProtocol(_ context.Context, p model.Protocol) error {
	m.protocols[p.Identifier] = p
	return nil
}

func (m *mockSourceRepo) Protocols(_ context.Context) ([]model.Protocol, error) {
	out := make([]model.Protocol, 0, len(m.protocols))
	for _, p := range m.protocols {
		out = append(out, p)
	}
	return out, nil
}

func newTestIdentityService() (*IdentityService, *mockIdentityRepo, *mockSourceRepo) {
	identities := newMockIdentityRepo()
	sources := newMockSourceRepo()
	return NewIdentityService(identities, sources, testLogger()), identities, sources
}

func TestObserveResolvesBoth(t *testing.T) {
	svc, _, _ := newTestIdentityService()
	ctx := context.Background()

	server := "irc.libera.chat"
	channel := "#go-nuts"
	got, err := svc.Observe(ctx, "irc", &server, &channel, "alice")
	if err != nil {
		t.Fatalf("Observe() error = %v", err)
	}
	if got.Participant == nil || got.Participant.Name != "alice" {
		t.Errorf("Observe() participant = %+v", got.Participant)
	}
	if got.Source == nil || got.Source.Protocol != "irc" {
		t.Errorf("Observe() source = %+v", got.Source)
	}

	// Observing the same coordinates again returns the same rows.
	again, err := svc.Observe(ctx, "irc", &server, &channel, "ALICE")
	if err != nil {
		t.Fatalf("Observe() error = %v", err)
	}
	if again.Participant.ID != got.Participant.ID {
		t.Errorf("repeat observation minted participant %d, want %d", again.Participant.ID, got.Participant.ID)
	}
	if again.Source.ID != got.Source.ID {
		t.Errorf("repeat observation minted source %d, want %d", again.Source.ID, got.Source.ID)
	}
}

func TestObserveUnknownProtocol(t *testing.T) {
	svc, _, _ := newTestIdentityService()

	_, err := svc.Observe(context.Background(), "carrier-pigeon", nil, nil, "alice")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Observe(unknown protocol) error = %v, want ErrNotFound", err)
	}
}

func TestObserveValidation(t *testing.T) {
	svc, _, _ := newTestIdentityService()

	if _, err := svc.Observe(context.Background(), "irc", nil, nil, ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Observe(blank name) error = %v, want ErrValidation", err)
	}

	long := strings.Repeat("x", MaxNameLength+1)
	if _, err := svc.Observe(context.Background(), "irc", nil, nil, long); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Observe(long name) error = %v, want ErrValidation", err)
	}
}

func TestRegisterUserTrims(t *testing.T) {
	svc, repo, _ := newTestIdentityService()

	u, err := svc.RegisterUser(context.Background(), "  bob  ", "", nil)
	if err != nil {
		t.Fatalf("RegisterUser() error = %v", err)
	}
	if u.Name != "bob" {
		t.Errorf("RegisterUser() name = %q, want trimmed", u.Name)
	}
	if _, ok := repo.users[u.ID]; !ok {
		t.Error("RegisterUser() did not persist the user")
	}
}

func TestRegisterUserConflict(t *testing.T) {
	svc, _, _ := newTestIdentityService()
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, "carol", "", nil); err != nil {
		t.Fatalf("RegisterUser() error = %v", err)
	}
	_, err := svc.RegisterUser(ctx, "Carol", "", nil)
	if !errors.Is(err, apperror.ErrNameConflict) {
		t.Errorf("RegisterUser(duplicate) error = %v, want ErrNameConflict", err)
	}
}

func TestDeleteParticipantLinked(t *testing.T) {
	svc, repo, _ := newTestIdentityService()
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, "dave", "", nil); err != nil {
		t.Fatalf("RegisterUser() error = %v", err)
	}
	var linkedID int64
	for id, p := range repo.participants {
		if p.UserID != nil {
			linkedID = id
		}
	}

	err := svc.DeleteParticipant(ctx, linkedID)
	if !errors.Is(err, apperror.ErrIdentityLinked) {
		t.Errorf("DeleteParticipant(linked) error = %v, want ErrIdentityLinked", err)
	}
}

func TestRegisterProtocolDefaultsName(t *testing.T) {
	svc, _, sources := newTestIdentityService()

	if err := svc.RegisterProtocol(context.Background(), "matrix", ""); err != nil {
		t.Fatalf("RegisterProtocol() error = %v", err)
	}
	if sources.protocols["matrix"].Name != "matrix" {
		t.Errorf("protocol name = %q, want identifier as default", sources.protocols["matrix"].Name)
	}
}
