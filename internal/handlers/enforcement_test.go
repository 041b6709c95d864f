package handlers

import (
	"context"
	"testing"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/db"
	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/moderation"
)

// stubStore backs an engine with a fixed set of global bans; the rest of
// the persistence contract is inert.
type stubStore struct {
	gbans map[int64]db.GlobalBan
}

func (s *stubStore) AddWarning(context.Context, *db.Warning, int) (int, bool, error) {
	return 0, false, nil
}
func (s *stubStore) GetWarnings(context.Context, int64, int64) ([]db.Warning, error) {
	return nil, nil
}
func (s *stubStore) ResetWarnings(context.Context, int64, int64) (int64, error) { return 0, nil }
func (s *stubStore) UpsertGlobalBan(context.Context, *db.GlobalBan) (bool, error) {
	return false, nil
}
func (s *stubStore) GetGlobalBan(_ context.Context, userID int64) (*db.GlobalBan, error) {
	ban, ok := s.gbans[userID]
	if !ok {
		return nil, nil
	}
	return &ban, nil
}
func (s *stubStore) DeleteGlobalBan(context.Context, int64) (bool, error)    { return false, nil }
func (s *stubStore) GetGlobalBans(context.Context) ([]db.GlobalBan, error)   { return nil, nil }
func (s *stubStore) GetGroupChats(context.Context) ([]db.ChatMeta, error)    { return nil, nil }
func (s *stubStore) GetSetting(context.Context, int64, string) (string, error) {
	return "", nil
}
func (s *stubStore) GetFilters(context.Context, int64) ([]db.Filter, error) { return nil, nil }

type stubRoles struct{}

func (stubRoles) GetRole(context.Context, int64, int64) (moderation.Role, error) {
	return moderation.RoleMember, nil
}

type recordingExecutor struct {
	executed []moderation.Directive
}

func (r *recordingExecutor) Execute(_ context.Context, d moderation.Directive) error {
	r.executed = append(r.executed, d)
	return nil
}

func groupUpdate(msg *api.Message) (*api.Update, *api.Chat, *api.User) {
	chat := &api.Chat{ID: -100, Type: "supergroup"}
	user := &api.User{ID: 777}
	msg.Chat = *chat
	msg.From = user
	return &api.Update{Message: msg}, chat, user
}

func newEnforcementForTest(store *stubStore, exec *recordingExecutor) *Enforcement {
	engine := moderation.NewEngine(store, stubRoles{}, exec, moderation.Options{BotID: 100, OwnerID: 1})
	return NewEnforcement(nil, engine, exec)
}

func TestEnforcementRemovesGbannedAuthorBeforeCommands(t *testing.T) {
	store := &stubStore{gbans: map[int64]db.GlobalBan{777: {UserID: 777, Reason: "spam"}}}
	exec := &recordingExecutor{}
	h := newEnforcementForTest(store, exec)

	// a command message is still checked, not just plain chatter
	msg := commandMessage("/save note payload")
	msg.MessageID = 42
	u, chat, user := groupUpdate(msg)

	proceed, err := h.Handle(context.Background(), u, chat, user)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if proceed {
		t.Fatal("gbanned author's message proceeded down the chain")
	}
	if len(exec.executed) != 2 {
		t.Fatalf("executed %d directives, want ban plus delete", len(exec.executed))
	}
	if exec.executed[0].Action != moderation.ActionBan || exec.executed[1].Action != moderation.ActionDeleteMessage {
		t.Fatalf("unexpected directives: %#v", exec.executed)
	}
	if exec.executed[1].MessageID != 42 {
		t.Fatalf("deleted message %d, want 42", exec.executed[1].MessageID)
	}
}

func TestEnforcementPassesCleanAuthorsThrough(t *testing.T) {
	store := &stubStore{gbans: map[int64]db.GlobalBan{}}
	exec := &recordingExecutor{}
	h := newEnforcementForTest(store, exec)

	u, chat, user := groupUpdate(commandMessage("/help"))

	proceed, err := h.Handle(context.Background(), u, chat, user)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !proceed {
		t.Fatal("clean author's message was stopped")
	}
	if len(exec.executed) != 0 {
		t.Fatalf("executed %d directives for a clean author", len(exec.executed))
	}
}

func TestEnforcementIgnoresPrivateChats(t *testing.T) {
	store := &stubStore{gbans: map[int64]db.GlobalBan{777: {UserID: 777}}}
	exec := &recordingExecutor{}
	h := newEnforcementForTest(store, exec)

	msg := commandMessage("/help")
	chat := &api.Chat{ID: 777, Type: "private"}
	user := &api.User{ID: 777}
	msg.Chat = *chat
	msg.From = user

	proceed, err := h.Handle(context.Background(), &api.Update{Message: msg}, chat, user)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !proceed || len(exec.executed) != 0 {
		t.Fatal("private chat was enforced against")
	}
}
