package repository

import (
	"context"

	"github.com/letscodeshivansh/taskchat/internal/domain"
)

// MessageRepository is the durable append-only record of chat messages.
type MessageRepository interface {
	// Append persists the message, assigning the message ID and a
	// server-side timestamp when absent. The message is durable before a
	// nil error is returned.
	Append(ctx context.Context, msg *domain.Message) (*domain.Message, error)

	// ListByTask returns the task's full history in insertion order.
	ListByTask(ctx context.Context, taskID string) ([]domain.Message, error)

	// ListByReceiver returns all messages addressed to the identity in
	// insertion order.
	ListByReceiver(ctx context.Context, identity string) ([]domain.Message, error)

	// ListByTaskPage returns one bounded slice of the task's history,
	// oldest first, starting after the cursor. An empty cursor starts at
	// the beginning.
	ListByTaskPage(ctx context.Context, taskID, cursor string, limit int) (*domain.MessagePage, error)
}
