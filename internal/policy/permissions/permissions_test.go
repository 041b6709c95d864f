package permissions

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/moderation"
)

type staticIdentity struct {
	owner int64
	sudo  map[int64]bool
}

func (s staticIdentity) IsOwner(userID int64) bool { return userID == s.owner }
func (s staticIdentity) IsSudo(userID int64) bool {
	return s.IsOwner(userID) || s.sudo[userID]
}

type staticRoles struct {
	roles map[int64]moderation.Role
	err   error
}

func (s staticRoles) GetRole(_ context.Context, _, userID int64) (moderation.Role, error) {
	if s.err != nil {
		return moderation.RoleNone, s.err
	}
	if role, ok := s.roles[userID]; ok {
		return role, nil
	}
	return moderation.RoleMember, nil
}

var (
	group   = ChatRef{ID: -100}
	private = ChatRef{ID: 555, Private: true}
)

func newTestEvaluator(roles staticRoles) *Evaluator {
	return NewEvaluator(staticIdentity{owner: 1, sudo: map[int64]bool{2: true}}, roles)
}

func TestOwnerAllowedEverything(t *testing.T) {
	t.Parallel()

	e := newTestEvaluator(staticRoles{})
	for _, cap := range []Capability{CapBan, CapGlobalBan, CapBroadcast, CapManageChat} {
		if d := e.Authorize(context.Background(), 1, group, cap); !d.Allowed {
			t.Fatalf("owner denied %s: %#v", cap, d)
		}
	}
}

func TestSudoGetsPrivilegedButNotChatLocal(t *testing.T) {
	t.Parallel()

	e := newTestEvaluator(staticRoles{})
	ctx := context.Background()

	if d := e.Authorize(ctx, 2, group, CapGlobalBan); !d.Allowed {
		t.Fatalf("sudo denied global ban: %#v", d)
	}
	// sudo status alone does not make one an admin of a specific chat
	if d := e.Authorize(ctx, 2, group, CapBan); d.Allowed {
		t.Fatal("non-admin sudo allowed chat-local ban")
	}
}

func TestChatAdminAllowedChatLocalOnly(t *testing.T) {
	t.Parallel()

	e := newTestEvaluator(staticRoles{roles: map[int64]moderation.Role{7: moderation.RoleAdmin}})
	ctx := context.Background()

	if d := e.Authorize(ctx, 7, group, CapBan); !d.Allowed {
		t.Fatalf("chat admin denied ban: %#v", d)
	}
	if d := e.Authorize(ctx, 7, group, CapGlobalBan); d.Allowed {
		t.Fatal("chat admin allowed global ban")
	}
}

func TestMemberDenied(t *testing.T) {
	t.Parallel()

	e := newTestEvaluator(staticRoles{})
	d := e.Authorize(context.Background(), 9, group, CapBan)
	if d.Allowed || d.Reason != moderation.DenyNotAdmin {
		t.Fatalf("plain member not denied: %#v", d)
	}
}

func TestPrivateChatRules(t *testing.T) {
	t.Parallel()

	e := newTestEvaluator(staticRoles{})
	ctx := context.Background()

	if d := e.Authorize(ctx, 9, private, CapBan); d.Allowed || d.Reason != moderation.DenyGroupOnly {
		t.Fatalf("group-only capability in private chat: %#v, want group-only denial", d)
	}
	if d := e.Authorize(ctx, 9, private, CapPromote); d.Allowed || d.Reason != moderation.DenyGroupOnly {
		t.Fatalf("promote in private chat: %#v, want group-only denial", d)
	}
	if d := e.Authorize(ctx, 9, private, CapInfo); !d.Allowed {
		t.Fatal("info denied in private chat")
	}
}

func TestRoleLookupFailureDenies(t *testing.T) {
	t.Parallel()

	e := newTestEvaluator(staticRoles{err: errors.New("telegram down")})
	d := e.Authorize(context.Background(), 7, group, CapBan)
	if d.Allowed {
		t.Fatal("authorization failed open on lookup error")
	}
}
