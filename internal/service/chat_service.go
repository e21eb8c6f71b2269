package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/letscodeshivansh/taskchat/internal/audit"
	"github.com/letscodeshivansh/taskchat/internal/config"
	"github.com/letscodeshivansh/taskchat/internal/directory"
	"github.com/letscodeshivansh/taskchat/internal/domain"
	"github.com/letscodeshivansh/taskchat/internal/hub"
	"github.com/letscodeshivansh/taskchat/internal/logging"
	"github.com/letscodeshivansh/taskchat/internal/repository"
)

var validate = validator.New()

type chatService struct {
	hub       *hub.Hub
	repo      repository.MessageRepository
	directory directory.TaskDirectory
	cfg       config.ChatConfig
	sf        singleflight.Group
}

func NewChatService(
	h *hub.Hub,
	repo repository.MessageRepository,
	dir directory.TaskDirectory,
	cfg config.ChatConfig,
) ChatService {
	return &chatService{
		hub:       h,
		repo:      repo,
		directory: dir,
		cfg:       cfg,
	}
}

// HandleJoin admits the connection to the task's room. Admission is granted
// to any authenticated identity: delivery is scoped by room key, not by
// per-message recipient filtering, which reproduces the historical
// behaviour of the chat page. The recipient_only option narrows delivery
// instead (see HandlePublish).
func (s *chatService) HandleJoin(ctx context.Context, c *hub.Client, taskID string) error {
	if !c.Session.IsAuthenticated() {
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeForbidden, "join requires authentication"))
		return domain.ErrForbidden
	}
	if taskID == "" {
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeValidationFailed, "taskId is required"))
		return domain.ErrValidation
	}

	task, err := s.directory.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			c.SendEvent(domain.NewErrorEvent(domain.ErrCodeTaskNotFound, "task not found"))
			return domain.ErrTaskNotFound
		}
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeStorageError, "task lookup failed"))
		return err
	}

	s.hub.JoinRoom(c, taskID)
	c.Session.JoinRoom(taskID)

	audit.LogWithDetail(ctx, audit.ActionJoin, c.Session.Identity, taskID, "joined task room")

	return c.SendEvent(&domain.JoinedEvent{
		Type:   domain.EventJoined,
		TaskID: task.ID,
		Owner:  task.Owner,
	})
}

func (s *chatService) HandleLeave(ctx context.Context, c *hub.Client, taskID string) error {
	if taskID == "" {
		return nil
	}
	s.hub.LeaveRoom(c, taskID)
	c.Session.LeaveRoom(taskID)
	audit.LogWithDetail(ctx, audit.ActionLeave, c.Session.Identity, taskID, "left task room")
	return nil
}

// HandlePublish persists the message and fans it out to the other members
// of the task's room. Persistence failure aborts the fan-out: the sender
// gets a storage error and nothing is delivered.
func (s *chatService) HandlePublish(ctx context.Context, c *hub.Client, event *domain.MessageEvent) error {
	if err := validate.Struct(event); err != nil {
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeValidationFailed, "taskId, receiver and body are required"))
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if !c.Session.InRoom(event.TaskID) {
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeValidationFailed, "message task does not match a joined room"))
		return fmt.Errorf("%w: not joined to task %s", domain.ErrValidation, event.TaskID)
	}

	msg := &domain.Message{
		TaskID:   event.TaskID,
		Sender:   c.Session.Identity, // connection identity wins over the wire field
		Receiver: event.Receiver,
		Body:     event.Body,
	}
	if event.Timestamp != nil {
		msg.CreatedAt = *event.Timestamp
	}

	stored, err := s.repo.Append(ctx, msg)
	if err != nil {
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeStorageError, "message could not be stored, retry"))
		return err
	}

	audit.LogWithDetail(ctx, audit.ActionPublish, c.Session.Identity, stored.TaskID, "message published")

	out := domain.NewChatMessageEvent(stored)
	if s.cfg.RecipientOnly {
		return s.hub.BroadcastToIdentity(stored.TaskID, stored.Receiver, out, c.ID)
	}
	return s.hub.BroadcastToTask(stored.TaskID, out, c.ID)
}

// HandleFeedback relays an opaque payload to the other members of every
// room the sender belongs to. Never persisted.
func (s *chatService) HandleFeedback(ctx context.Context, c *hub.Client, payload json.RawMessage) error {
	if c.Session.RoomCount() == 0 {
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeNotInRoom, "feedback requires a joined room"))
		return domain.ErrNotInRoom
	}
	if s.cfg.FeedbackMaxSize > 0 && len(payload) > s.cfg.FeedbackMaxSize {
		c.SendEvent(domain.NewErrorEvent(domain.ErrCodeValidationFailed, "feedback payload too large"))
		return fmt.Errorf("%w: feedback payload exceeds %d bytes", domain.ErrValidation, s.cfg.FeedbackMaxSize)
	}

	for _, taskID := range c.Session.Rooms() {
		event := &domain.FeedbackRelayEvent{
			Type:    domain.EventFeedback,
			TaskID:  taskID,
			Sender:  c.Session.Identity,
			Payload: payload,
		}
		if err := s.hub.BroadcastToTask(taskID, event, c.ID); err != nil {
			l := logging.Ctx(ctx)
			l.Warn().Err(err).Str(logging.FieldTaskID, taskID).Msg("feedback relay failed")
		}
	}

	audit.Log(ctx, audit.ActionFeedback, c.Session.Identity, "feedback relayed")
	return nil
}

// HandleDisconnect releases every room registration held by the connection.
// Safe to call repeatedly; the gateway's teardown guarantees it runs even
// when later cleanup steps fail.
func (s *chatService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	s.hub.LeaveAll(c)
	c.Session.LeaveAll()
	audit.Log(ctx, audit.ActionDisconnect, c.Session.Identity, "disconnected")
	return nil
}

func (s *chatService) HydrateTask(ctx context.Context, taskID string) ([]domain.Message, error) {
	return s.repo.ListByTask(ctx, taskID)
}

// HydrateTaskPage coalesces concurrent identical reads: reconnect storms
// after a deploy tend to ask for the same first page at once.
func (s *chatService) HydrateTaskPage(ctx context.Context, taskID, cursor string, limit int) (*domain.MessagePage, error) {
	if limit < 1 || limit > s.cfg.HistoryPageLimit {
		limit = s.cfg.HistoryPageLimit
	}

	key := fmt.Sprintf("%s|%s|%d", taskID, cursor, limit)
	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.repo.ListByTaskPage(ctx, taskID, cursor, limit)
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.MessagePage), nil
}

func (s *chatService) HydrateInbox(ctx context.Context, identity string) ([]domain.Message, error) {
	return s.repo.ListByReceiver(ctx, identity)
}
