// Package assistant is the conversational helper: it keeps per-user chat
// history and answers through the LLM with portfolio-aware context.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/alphadesk/alphadesk/internal/analysis"
	"github.com/alphadesk/alphadesk/internal/app/domain/chat"
	"github.com/alphadesk/alphadesk/internal/app/storage"
	"github.com/alphadesk/alphadesk/pkg/logger"
)

const (
	historyWindow = 10
	maxMessageLen = 4000

	systemPrompt = `You are an investment research assistant for a retail
dashboard. Answer concisely. You may discuss markets, portfolio concepts and
the platform's paper trading features. You do not give personalized financial
advice; remind users of that when they ask for it.`

	fallbackReply = "The assistant is unavailable right now. Please try again in a moment."
)

// Chatter produces a free-form reply for a conversation.
type Chatter interface {
	Chat(ctx context.Context, system string, turns []analysis.ChatTurn) (string, error)
}

// Service runs assistant conversations.
type Service struct {
	store   storage.ChatStore
	chatter Chatter
	log     *logger.Logger
}

// New constructs the assistant service. A nil chatter degrades to the
// static fallback reply.
func New(store storage.ChatStore, chatter Chatter, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("assistant")
	}
	return &Service{store: store, chatter: chatter, log: log}
}

// Ask records the user's message, generates a reply from the recent
// conversation window, records it and returns it. LLM failures degrade to a
// fallback reply rather than erroring, so the conversation stays usable.
func (s *Service) Ask(ctx context.Context, userID, message string) (chat.Message, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return chat.Message{}, fmt.Errorf("message required")
	}
	if len(message) > maxMessageLen {
		return chat.Message{}, fmt.Errorf("message too long")
	}

	history, err := s.store.ListChatMessages(ctx, userID, historyWindow)
	if err != nil {
		return chat.Message{}, fmt.Errorf("history: %w", err)
	}

	if _, err := s.store.CreateChatMessage(ctx, chat.Message{
		UserID:  userID,
		Role:    chat.RoleUser,
		Content: message,
	}); err != nil {
		return chat.Message{}, fmt.Errorf("record message: %w", err)
	}

	reply := fallbackReply
	if s.chatter != nil {
		turns := make([]analysis.ChatTurn, 0, len(history)+1)
		for _, m := range history {
			turns = append(turns, analysis.ChatTurn{Role: string(m.Role), Content: m.Content})
		}
		turns = append(turns, analysis.ChatTurn{Role: string(chat.RoleUser), Content: message})

		if text, err := s.chatter.Chat(ctx, systemPrompt, turns); err == nil && strings.TrimSpace(text) != "" {
			reply = strings.TrimSpace(text)
		} else if err != nil {
			s.log.WithError(err).WithField("user", userID).Warn("assistant reply failed")
		}
	}

	return s.store.CreateChatMessage(ctx, chat.Message{
		UserID:  userID,
		Role:    chat.RoleAssistant,
		Content: reply,
	})
}

// History returns the user's recent conversation in chronological order.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListChatMessages(ctx, userID, limit)
}

// Feedback rates an assistant reply: +1 or -1.
func (s *Service) Feedback(ctx context.Context, id string, feedback int) error {
	if feedback != 1 && feedback != -1 {
		return fmt.Errorf("feedback must be +1 or -1")
	}
	return s.store.SetChatFeedback(ctx, id, feedback)
}
