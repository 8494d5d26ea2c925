package service

import (
	"testing"
	"time"

	"github.com/iliyamo/pamfree/internal/apperror"
	"github.com/iliyamo/pamfree/internal/model"
	"github.com/iliyamo/pamfree/internal/testutil"
	"github.com/iliyamo/pamfree/internal/utils"
)

func TestRegisterEditor(t *testing.T) {
	f := newFixture(t, 0)
	u := testutil.SeedUser(t, f.db, "owner@example.com", model.RoleUser)
	testutil.SeedMap(t, f.db, u.ID, "public", true)
	testutil.SeedMap(t, f.db, u.ID, "private", false)

	_, err := f.svc.Editors.Register(f.ctx, "private", RegisterEditorInput{Nickname: "guest"})
	wantKind(t, err, apperror.KindForbidden)
	_, err = f.svc.Editors.Register(f.ctx, "missing", RegisterEditorInput{Nickname: "guest"})
	wantKind(t, err, apperror.KindNotFound)

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		reg, err := f.svc.Editors.Register(f.ctx, "public", RegisterEditorInput{Nickname: "guest"})
		if err != nil {
			t.Fatalf("register: %v", err)
		}
		if len(reg.Token) != 43 {
			t.Fatalf("token %q is not 32 bytes base64url", reg.Token)
		}
		if seen[reg.Token] || seen[reg.EditorID] {
			t.Fatalf("duplicate token or id at iteration %d", i)
		}
		seen[reg.Token], seen[reg.EditorID] = true, true
	}
	if n := testutil.Count(t, f.db, "public_editors", "nickname = ?", "guest"); n != 200 {
		t.Fatalf("want 200 editors sharing a nickname, got %d", n)
	}
}

func TestVerifyEditor(t *testing.T) {
	f := newFixture(t, 0)
	u := testutil.SeedUser(t, f.db, "owner@example.com", model.RoleUser)
	testutil.SeedMap(t, f.db, u.ID, "public", true)
	reg, err := f.svc.Editors.Register(f.ctx, "public", RegisterEditorInput{Nickname: "guest"})
	if err != nil {
		t.Fatal(err)
	}
	before, _ := f.store.Editors.GetByID(f.ctx, reg.EditorID)

	other, _ := utils.NewEditorToken()
	for _, in := range []VerifyEditorInput{
		{EditorID: reg.EditorID, Token: other},
		{EditorID: reg.EditorID, Token: ""},
		{EditorID: "not-a-uuid", Token: reg.Token},
		{EditorID: "00000000-0000-0000-0000-000000000000", Token: reg.Token},
	} {
		_, err := f.svc.Editors.Verify(f.ctx, in)
		wantKind(t, err, apperror.KindUnauthorized)
	}

	// the clock has not moved, yet lastActiveAt must still advance
	v, err := f.svc.Editors.Verify(f.ctx, VerifyEditorInput{EditorID: reg.EditorID, Token: reg.Token})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !v.Verified || v.EditorID != reg.EditorID || v.Nickname != "guest" || v.MapID != "public" {
		t.Fatalf("unexpected verification %+v", v)
	}
	after, _ := f.store.Editors.GetByID(f.ctx, reg.EditorID)
	if !after.LastActiveAt.After(before.LastActiveAt) {
		t.Fatalf("lastActiveAt %v not after %v", after.LastActiveAt, before.LastActiveAt)
	}

	v2, err := f.svc.Editors.Verify(f.ctx, VerifyEditorInput{EditorID: reg.EditorID, Token: reg.Token})
	if err != nil || !v2.LastActiveAt.After(v.LastActiveAt) {
		t.Fatalf("second verify: %+v %v", v2, err)
	}
}

func TestEditorTTL(t *testing.T) {
	f := newFixture(t, time.Hour)
	u := testutil.SeedUser(t, f.db, "owner@example.com", model.RoleUser)
	testutil.SeedMap(t, f.db, u.ID, "public", true)
	reg, _ := f.svc.Editors.Register(f.ctx, "public", RegisterEditorInput{Nickname: "guest"})
	in := VerifyEditorInput{EditorID: reg.EditorID, Token: reg.Token}

	f.clock.Advance(59 * time.Minute)
	if _, err := f.svc.Editors.Verify(f.ctx, in); err != nil {
		t.Fatalf("within ttl: %v", err)
	}
	// activity resets the idle window
	f.clock.Advance(59 * time.Minute)
	if _, err := f.svc.Editors.Verify(f.ctx, in); err != nil {
		t.Fatalf("after activity: %v", err)
	}
	f.clock.Advance(61 * time.Minute)
	_, err := f.svc.Editors.Verify(f.ctx, in)
	wantKind(t, err, apperror.KindUnauthorized)
}

func TestPublicPinWrites(t *testing.T) {
	f := newFixture(t, 0)
	u := testutil.SeedUser(t, f.db, "owner@example.com", model.RoleUser)
	owner := actorOf(u)
	pub := testutil.SeedMap(t, f.db, u.ID, "public", true)
	otherPub := testutil.SeedMap(t, f.db, u.ID, "other", true)
	floor := testutil.SeedFloor(t, f.db, pub.ID, 1)
	otherFloor := testutil.SeedFloor(t, f.db, otherPub.ID, 1)
	ownerPin := testutil.SeedPin(t, f.db, floor.ID)

	regA, _ := f.svc.Editors.Register(f.ctx, "public", RegisterEditorInput{Nickname: "a"})
	regB, _ := f.svc.Editors.Register(f.ctx, "public", RegisterEditorInput{Nickname: "b"})
	regOther, _ := f.svc.Editors.Register(f.ctx, "other", RegisterEditorInput{Nickname: "o"})
	credA := EditorCredentials{EditorID: regA.EditorID, Token: regA.Token}
	credB := EditorCredentials{EditorID: regB.EditorID, Token: regB.Token}
	in := CreatePinInput{Title: "desk", XPosition: ptr(120.5), YPosition: ptr(-3.0)}

	p, err := f.svc.Editors.CreatePin(f.ctx, credA, "public", floor.ID, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.EditorID == nil || *p.EditorID != regA.EditorID || *p.EditorNickname != "a" || p.XPosition != 120.5 {
		t.Fatalf("unexpected pin %+v", p)
	}

	// wrong token
	_, err = f.svc.Editors.CreatePin(f.ctx, EditorCredentials{EditorID: regA.EditorID, Token: regB.Token}, "public", floor.ID, in)
	wantKind(t, err, apperror.KindUnauthorized)
	// editor of another map
	_, err = f.svc.Editors.CreatePin(f.ctx, EditorCredentials{EditorID: regOther.EditorID, Token: regOther.Token}, "public", floor.ID, in)
	wantKind(t, err, apperror.KindForbidden)
	// floor of another map
	_, err = f.svc.Editors.CreatePin(f.ctx, credA, "public", otherFloor.ID, in)
	wantKind(t, err, apperror.KindNotFound)

	// only the creator may change a pin
	_, err = f.svc.Editors.UpdatePin(f.ctx, credB, "public", floor.ID, p.ID, UpdatePinInput{Title: ptr("x")})
	wantKind(t, err, apperror.KindForbidden)
	_, err = f.svc.Editors.DeletePin(f.ctx, credA, "public", floor.ID, ownerPin.ID)
	wantKind(t, err, apperror.KindForbidden)
	up, err := f.svc.Editors.UpdatePin(f.ctx, credA, "public", floor.ID, p.ID, UpdatePinInput{Title: ptr("chair")})
	if err != nil || up.Title != "chair" {
		t.Fatalf("update own pin: %+v %v", up, err)
	}

	// flipping the map private revokes every editor immediately
	if _, err := f.svc.Maps.Update(f.ctx, owner, "public", UpdateMapInput{IsPubliclyEditable: ptr(false)}); err != nil {
		t.Fatal(err)
	}
	_, err = f.svc.Editors.CreatePin(f.ctx, credA, "public", floor.ID, in)
	wantKind(t, err, apperror.KindForbidden)
	_, err = f.svc.Editors.DeletePin(f.ctx, credA, "public", floor.ID, p.ID)
	wantKind(t, err, apperror.KindForbidden)

	if _, err := f.svc.Maps.Update(f.ctx, owner, "public", UpdateMapInput{IsPubliclyEditable: ptr(true)}); err != nil {
		t.Fatal(err)
	}
	for i, want := range []bool{true, false} {
		res, err := f.svc.Editors.DeletePin(f.ctx, credA, "public", floor.ID, p.ID)
		if err != nil || res.Deleted != want {
			t.Fatalf("delete #%d: %+v %v", i, res, err)
		}
	}
}

func TestPublicPinOnPrivateMapIsForbiddenWithoutCredentials(t *testing.T) {
	f := newFixture(t, 0)
	u := testutil.SeedUser(t, f.db, "owner@example.com", model.RoleUser)
	m := testutil.SeedMap(t, f.db, u.ID, "private", false)
	floor := testutil.SeedFloor(t, f.db, m.ID, 1)
	for _, cred := range []EditorCredentials{{}, {EditorID: "x", Token: "y"}} {
		_, err := f.svc.Editors.CreatePin(f.ctx, cred, "private", floor.ID, CreatePinInput{Title: "t", XPosition: ptr(1.0), YPosition: ptr(1.0)})
		wantKind(t, err, apperror.KindForbidden)
	}
}
