package common

import (
	"context"

	"github.com/deemkeen/thrive/domain"
	"github.com/deemkeen/thrive/engine"
)

// Actions are the intents the views send to the engine. A session's
// Coordinator and Loader together implement it.
type Actions interface {
	SubmitPost(ctx context.Context, d engine.Draft) (*domain.Post, error)
	SubmitReply(ctx context.Context, d engine.ReplyDraft) (*domain.Post, error)
	SuggestReply(post *domain.Post) string
	ToggleBoost(ctx context.Context, cat domain.Category, id string) (bool, error)
	ToggleFavourite(ctx context.Context, cat domain.Category, id string) (bool, error)
	DeleteIntent(cat domain.Category, id string) (engine.Intent, error)
	Delete(ctx context.Context, cat domain.Category, id string) error
	Vote(ctx context.Context, cat domain.Category, id string, choices []int) error
	Refresh(ctx context.Context, cat domain.Category) error
}

// SessionActions adapts a running session to Actions.
type SessionActions struct {
	*engine.Coordinator
	*engine.Loader
}

func NewSessionActions(s *engine.Session) SessionActions {
	return SessionActions{Coordinator: s.Coordinator, Loader: s.Loader}
}
