package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"quill/internal/domain"
	"quill/internal/domain/models"
	"quill/internal/domain/services"
)

func TestInitializeSessionFromColdState(t *testing.T) {
	env := newTestEnv(Options{})
	ctx := context.Background()
	base := env.clock.Now()

	// Pre-existing gateway state from an earlier process
	env.edits.edits = []models.DocumentEdit{
		editAt("e1", 1, base.Add(-time.Hour), models.EditInsert, 0, 0, "recovered"),
	}
	env.versions.versions = []models.DocumentVersion{
		{ID: "v1", DocumentID: "doc-1", Version: 1, Content: "", AuthorID: "u1", AuthorName: "Alice"},
		{ID: "v3", DocumentID: "doc-1", Version: 3, Content: "recovered", AuthorID: "u1", AuthorName: "Alice"},
	}

	snap, err := env.engine.InitializeSession(ctx, "doc-1")
	if err != nil {
		t.Fatalf("InitializeSession: %v", err)
	}
	if snap.Content != "recovered" {
		t.Errorf("content = %q, want %q", snap.Content, "recovered")
	}
	if snap.CurrentVersion != 3 {
		t.Errorf("current version = %d, want 3", snap.CurrentVersion)
	}
	if snap.Unsynced {
		t.Error("clean init should not be flagged unsynced")
	}
}

func TestInitializeSessionIsIdempotent(t *testing.T) {
	env := newTestEnv(Options{})
	ctx := context.Background()

	if _, err := env.engine.InitializeSession(ctx, "doc-1"); err != nil {
		t.Fatalf("InitializeSession: %v", err)
	}
	if _, err := env.engine.ApplyEdit(ctx, "doc-1", insertReq("u1", "live", 0)); err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}

	// A second init reuses the live session instead of reloading
	snap, err := env.engine.InitializeSession(ctx, "doc-1")
	if err != nil {
		t.Fatalf("InitializeSession: %v", err)
	}
	if snap.Content != "live" {
		t.Errorf("content = %q, want %q", snap.Content, "live")
	}
}

func TestInitializeSessionRequiresDocumentID(t *testing.T) {
	env := newTestEnv(Options{})
	if _, err := env.engine.InitializeSession(context.Background(), ""); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("InitializeSession(\"\") error = %v, want ErrValidation", err)
	}
}

// Cold start against a dead gateway yields a usable empty session flagged
// unsynced; the first successful Sync recovers the missed history and merges
// it under edits made in the meantime.
func TestInitializeSessionWithGatewayDown(t *testing.T) {
	env := newTestEnv(Options{})
	ctx := context.Background()
	base := env.clock.Now()

	env.edits.edits = []models.DocumentEdit{
		editAt("e1", 1, base.Add(-time.Hour), models.EditInsert, 0, 0, "missed "),
	}
	env.edits.failList = true
	env.versions.failList = true

	snap, err := env.engine.InitializeSession(ctx, "doc-1")
	if err != nil {
		t.Fatalf("InitializeSession with gateway down: %v", err)
	}
	if !snap.Unsynced {
		t.Error("init against a dead gateway should flag the session unsynced")
	}
	if snap.Content != "" {
		t.Errorf("content = %q, want empty", snap.Content)
	}

	// The session still accepts work
	if _, err := env.engine.ApplyEdit(ctx, "doc-1", insertReq("u1", "local", 0)); err != nil {
		t.Fatalf("ApplyEdit on unsynced session: %v", err)
	}

	env.edits.failList = false
	env.versions.failList = false
	if err := env.engine.Sync(ctx, "doc-1"); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	snap, err = env.engine.Snapshot(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Unsynced {
		t.Error("session should be synced after recovery")
	}
	// The recovered fold orders the missed edit (older timestamp) first,
	// then the local insert at its original offset
	if snap.Content != "localmissed " {
		t.Errorf("content = %q, want %q", snap.Content, "localmissed ")
	}
}

func TestCloseSessionLifecycle(t *testing.T) {
	env := newTestEnv(Options{})
	ctx := context.Background()

	if err := env.engine.CloseSession(ctx, "never-opened"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("close of unknown session error = %v, want ErrNotFound", err)
	}

	if _, err := env.engine.Join(ctx, "doc-1", &services.JoinRequest{UserID: "u1", UserName: "Alice"}); err != nil {
		t.Fatalf("Join: %v", err)
	}

	// Refused while a participant is active
	if err := env.engine.CloseSession(ctx, "doc-1"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("close with active participant error = %v, want ErrValidation", err)
	}

	if err := env.engine.Leave(ctx, "doc-1", "u1"); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if err := env.engine.CloseSession(ctx, "doc-1"); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}

	// The registry entry is gone; a new init starts from the gateway
	if _, ok := env.engine.lookup("doc-1"); ok {
		t.Error("closed session should leave the registry")
	}
}

func TestCloseSessionRefusesUnflushedEdits(t *testing.T) {
	env := newTestEnv(Options{})
	ctx := context.Background()

	env.edits.failCreate = true
	if _, err := env.engine.ApplyEdit(ctx, "doc-1", insertReq("u1", "pending", 0)); err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}

	if err := env.engine.CloseSession(ctx, "doc-1"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("close with buffered edits error = %v, want ErrValidation", err)
	}

	env.edits.failCreate = false
	if err := env.engine.Sync(ctx, "doc-1"); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := env.engine.CloseSession(ctx, "doc-1"); err != nil {
		t.Errorf("close after sync: %v", err)
	}
}

func TestJoinAndLeaveManagePresence(t *testing.T) {
	env := newTestEnv(Options{})
	ctx := context.Background()

	presence, err := env.engine.Join(ctx, "doc-1", &services.JoinRequest{UserID: "u1", UserName: "Alice"})
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if presence.DocumentID != "doc-1" || presence.UserID != "u1" {
		t.Errorf("presence = %+v, want doc-1/u1", presence)
	}

	if _, err := env.engine.Join(ctx, "doc-1", &services.JoinRequest{UserID: "u2", UserName: "Bob"}); err != nil {
		t.Fatalf("Join: %v", err)
	}

	active, err := env.engine.GetActiveUsers(ctx, "doc-1")
	if err != nil {
		t.Fatalf("GetActiveUsers: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("active users = %d, want 2", len(active))
	}

	if err := env.engine.Leave(ctx, "doc-1", "u1"); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	active, _ = env.engine.GetActiveUsers(ctx, "doc-1")
	if len(active) != 1 || active[0].UserID != "u2" {
		t.Errorf("active users after leave = %+v, want just u2", active)
	}
}

func TestJoinValidation(t *testing.T) {
	env := newTestEnv(Options{})
	ctx := context.Background()

	if _, err := env.engine.Join(ctx, "doc-1", &services.JoinRequest{UserName: "NoID"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("join without user id error = %v, want ErrValidation", err)
	}
	if _, err := env.engine.Join(ctx, "doc-1", &services.JoinRequest{UserID: "u1"}); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("join without user name error = %v, want ErrValidation", err)
	}
}

func TestSubscribeReceivesSessionEvents(t *testing.T) {
	env := newTestEnv(Options{})
	ctx := context.Background()

	var got []services.EventType
	unsubscribe := env.engine.Subscribe("doc-1", func(event services.Event) {
		got = append(got, event.Type)
	})

	if _, err := env.engine.Join(ctx, "doc-1", &services.JoinRequest{UserID: "u1", UserName: "Alice"}); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if _, err := env.engine.ApplyEdit(ctx, "doc-1", insertReq("u1", "x", 0)); err != nil {
		t.Fatalf("ApplyEdit: %v", err)
	}
	if err := env.engine.Leave(ctx, "doc-1", "u1"); err != nil {
		t.Fatalf("Leave: %v", err)
	}

	want := []services.EventType{
		services.EventUserJoined,
		services.EventEditReceived,
		services.EventUserLeft,
	}
	if len(got) != len(want) {
		t.Fatalf("received %d events %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}

	// After unsubscribing, no further deliveries
	unsubscribe()
	if _, err := env.engine.Join(ctx, "doc-1", &services.JoinRequest{UserID: "u2", UserName: "Bob"}); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if len(got) != len(want) {
		t.Errorf("received %d events after unsubscribe, want %d", len(got), len(want))
	}
}

// Observers on one document must not hear another document's events.
func TestSubscribeIsScopedPerDocument(t *testing.T) {
	env := newTestEnv(Options{})
	ctx := context.Background()

	var count int
	defer env.engine.Subscribe("doc-1", func(services.Event) { count++ })()

	if _, err := env.engine.Join(ctx, "doc-2", &services.JoinRequest{UserID: "u1", UserName: "Alice"}); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if count != 0 {
		t.Errorf("doc-1 observer heard %d events from doc-2, want 0", count)
	}
}
