package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alphadesk/alphadesk/internal/analysis"
	"github.com/alphadesk/alphadesk/internal/app/domain/chat"
	"github.com/alphadesk/alphadesk/internal/app/storage/memory"
)

type fakeChatter struct {
	reply string
	err   error
	turns []analysis.ChatTurn
}

func (f *fakeChatter) Chat(_ context.Context, system string, turns []analysis.ChatTurn) (string, error) {
	f.turns = turns
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func TestAskRecordsBothTurns(t *testing.T) {
	store := memory.New()
	chatter := &fakeChatter{reply: "Markets closed mixed today."}
	svc := New(store, chatter, nil)
	ctx := context.Background()

	reply, err := svc.Ask(ctx, "u1", "how did the market do?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if reply.Role != chat.RoleAssistant || reply.Content != "Markets closed mixed today." {
		t.Fatalf("reply = %+v", reply)
	}

	history, err := svc.History(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history len = %d, want user + assistant", len(history))
	}
	if history[0].Role != chat.RoleUser || history[1].Role != chat.RoleAssistant {
		t.Fatalf("history order: %+v", history)
	}
}

func TestAskCarriesConversationWindow(t *testing.T) {
	store := memory.New()
	chatter := &fakeChatter{reply: "ok"}
	svc := New(store, chatter, nil)
	ctx := context.Background()

	if _, err := svc.Ask(ctx, "u1", "first question"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if _, err := svc.Ask(ctx, "u1", "second question"); err != nil {
		t.Fatalf("ask: %v", err)
	}

	// The second call sends the prior two turns plus the new message.
	if len(chatter.turns) != 3 {
		t.Fatalf("turns = %d, want 3", len(chatter.turns))
	}
	if chatter.turns[0].Content != "first question" {
		t.Fatalf("turns[0] = %+v", chatter.turns[0])
	}
	if chatter.turns[2].Content != "second question" {
		t.Fatalf("turns[2] = %+v", chatter.turns[2])
	}
}

func TestAskFallsBackOnLLMFailure(t *testing.T) {
	store := memory.New()
	svc := New(store, &fakeChatter{err: errors.New("upstream down")}, nil)

	reply, err := svc.Ask(context.Background(), "u1", "hello?")
	if err != nil {
		t.Fatalf("ask must degrade, not fail: %v", err)
	}
	if !strings.Contains(reply.Content, "unavailable") {
		t.Fatalf("reply = %q, want fallback text", reply.Content)
	}
}

func TestAskValidation(t *testing.T) {
	svc := New(memory.New(), &fakeChatter{reply: "ok"}, nil)
	ctx := context.Background()

	if _, err := svc.Ask(ctx, "u1", "   "); err == nil {
		t.Fatal("blank message must be rejected")
	}
	if _, err := svc.Ask(ctx, "u1", strings.Repeat("x", maxMessageLen+1)); err == nil {
		t.Fatal("oversized message must be rejected")
	}
}

func TestFeedback(t *testing.T) {
	store := memory.New()
	svc := New(store, &fakeChatter{reply: "ok"}, nil)
	ctx := context.Background()

	reply, err := svc.Ask(ctx, "u1", "question")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if err := svc.Feedback(ctx, reply.ID, 2); err == nil {
		t.Fatal("only +1/-1 feedback is valid")
	}
	if err := svc.Feedback(ctx, reply.ID, 1); err != nil {
		t.Fatalf("feedback: %v", err)
	}

	history, _ := svc.History(ctx, "u1", 10)
	last := history[len(history)-1]
	if last.Feedback == nil || *last.Feedback != 1 {
		t.Fatalf("feedback not stored: %+v", last)
	}
}
