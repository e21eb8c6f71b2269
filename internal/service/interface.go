package service

import (
	"context"
	"encoding/json"

	"github.com/letscodeshivansh/taskchat/internal/domain"
	"github.com/letscodeshivansh/taskchat/internal/hub"
)

// ChatService routes inbound chat events: admission to task rooms, message
// persistence and fan-out, feedback relay, and history hydration for the
// page-rendering routes.
type ChatService interface {
	HandleJoin(ctx context.Context, c *hub.Client, taskID string) error
	HandleLeave(ctx context.Context, c *hub.Client, taskID string) error
	HandlePublish(ctx context.Context, c *hub.Client, event *domain.MessageEvent) error
	HandleFeedback(ctx context.Context, c *hub.Client, payload json.RawMessage) error
	HandleDisconnect(ctx context.Context, c *hub.Client) error

	HydrateTask(ctx context.Context, taskID string) ([]domain.Message, error)
	HydrateTaskPage(ctx context.Context, taskID, cursor string, limit int) (*domain.MessagePage, error)
	HydrateInbox(ctx context.Context, identity string) ([]domain.Message, error)
}
