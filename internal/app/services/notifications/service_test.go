package notifications

import (
	"context"
	"testing"

	"github.com/alphadesk/alphadesk/internal/app/domain/notification"
	"github.com/alphadesk/alphadesk/internal/app/storage/memory"
)

func seed(t *testing.T, store *memory.Store, userID, title string, read bool) notification.Notification {
	t.Helper()
	n, err := store.CreateNotification(context.Background(), notification.Notification{
		UserID:  userID,
		Title:   title,
		Message: "message",
		Type:    "system",
		Read:    read,
	})
	if err != nil {
		t.Fatalf("seed notification: %v", err)
	}
	return n
}

func TestListFiltersUnread(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	seed(t, store, "u1", "first", false)
	seed(t, store, "u1", "second", true)
	seed(t, store, "u2", "other user", false)

	all, err := svc.List(ctx, "u1", false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(all))
	}

	unread, err := svc.List(ctx, "u1", true)
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread) != 1 || unread[0].Title != "first" {
		t.Fatalf("expected only the unread entry, got %+v", unread)
	}
}

func TestMarkRead(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	n := seed(t, store, "u1", "fill", false)
	if err := svc.MarkRead(ctx, n.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	unread, err := svc.List(ctx, "u1", true)
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread) != 0 {
		t.Fatalf("expected no unread entries, got %d", len(unread))
	}
}

func TestMarkAllRead(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	seed(t, store, "u1", "a", false)
	seed(t, store, "u1", "b", false)
	seed(t, store, "u2", "keep", false)

	if err := svc.MarkAllRead(ctx, "u1"); err != nil {
		t.Fatalf("mark all read: %v", err)
	}

	unread, err := svc.List(ctx, "u1", true)
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread) != 0 {
		t.Fatalf("expected u1 inbox cleared, got %d unread", len(unread))
	}

	other, err := svc.List(ctx, "u2", true)
	if err != nil {
		t.Fatalf("list other: %v", err)
	}
	if len(other) != 1 {
		t.Fatalf("expected u2 untouched, got %d unread", len(other))
	}
}
