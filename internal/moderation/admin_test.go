package moderation

import (
	"context"
	"testing"
)

func TestPromoteRejectsBotAndExistingAdmins(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	roles := &fakeRoles{roles: map[int64]Role{
		300: RoleAdmin,
		400: RoleOwner,
	}}
	engine := newTestEngine(newFakeStore(), roles, nil)

	_, err := engine.Promote(ctx, -100, 100) // bot id
	denied, ok := AsDenied(err)
	if !ok || denied.Reason != DenyProtectedTarget {
		t.Fatalf("promoting the bot: %v", err)
	}

	for _, target := range []int64{300, 400} {
		_, err := engine.Promote(ctx, -100, target)
		denied, ok := AsDenied(err)
		if !ok || denied.Reason != DenyAlreadyInState {
			t.Fatalf("promoting privileged %d: %v", target, err)
		}
	}
}

func TestPromoteMemberReturnsDirective(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(newFakeStore(), nil, nil)

	directives, err := engine.Promote(context.Background(), -100, 777)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if len(directives) != 1 || directives[0].Action != ActionPromote || directives[0].UserID != 777 {
		t.Fatalf("unexpected directives: %#v", directives)
	}
}

func TestDemoteGuardsOwnerAndPlainMembers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	roles := &fakeRoles{roles: map[int64]Role{
		300: RoleAdmin,
		400: RoleOwner,
	}}
	engine := newTestEngine(newFakeStore(), roles, nil)

	_, err := engine.Demote(ctx, -100, 400)
	denied, ok := AsDenied(err)
	if !ok || denied.Reason != DenyProtectedTarget {
		t.Fatalf("demoting the owner: %v", err)
	}

	_, err = engine.Demote(ctx, -100, 777) // plain member
	denied, ok = AsDenied(err)
	if !ok || denied.Reason != DenyAlreadyInState {
		t.Fatalf("demoting a member: %v", err)
	}

	directives, err := engine.Demote(ctx, -100, 300)
	if err != nil {
		t.Fatalf("demote admin: %v", err)
	}
	if len(directives) != 1 || directives[0].Action != ActionDemote || directives[0].UserID != 300 {
		t.Fatalf("unexpected directives: %#v", directives)
	}
}

func TestChatManagementDirectives(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(newFakeStore(), nil, nil)

	if d := engine.Pin(-100, 42); d[0].Action != ActionPin || d[0].MessageID != 42 {
		t.Fatalf("pin directive: %#v", d)
	}
	if d := engine.Unpin(-100, 0); d[0].Action != ActionUnpin || d[0].MessageID != 0 {
		t.Fatalf("unpin directive: %#v", d)
	}
	if d := engine.UnpinAll(-100); d[0].Action != ActionUnpinAll || d[0].ChatID != -100 {
		t.Fatalf("unpin-all directive: %#v", d)
	}
	if d := engine.SetTitle(-100, "New Title"); d[0].Action != ActionSetTitle || d[0].Text != "New Title" {
		t.Fatalf("set-title directive: %#v", d)
	}
	if d := engine.SetDescription(-100, "About us"); d[0].Action != ActionSetDescription || d[0].Text != "About us" {
		t.Fatalf("set-description directive: %#v", d)
	}
}
