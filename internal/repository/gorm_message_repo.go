package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/letscodeshivansh/taskchat/internal/domain"
	"github.com/letscodeshivansh/taskchat/internal/logging"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Append(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	l := logging.Ctx(ctx)

	stored := *msg
	if stored.MessageID == "" {
		stored.MessageID = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	model := domain.MessageToModel(&stored)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		l.Error().Err(err).Str(logging.FieldTaskID, stored.TaskID).Msg("failed to append message")
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	l.Debug().
		Str(logging.FieldTaskID, stored.TaskID).
		Str("message_id", stored.MessageID).
		Msg("message appended")
	return model.ToDomain(), nil
}

func (r *GormMessageRepository) ListByTask(ctx context.Context, taskID string) ([]domain.Message, error) {
	var models []domain.MessageModel
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("seq ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return toDomainSlice(models), nil
}

func (r *GormMessageRepository) ListByReceiver(ctx context.Context, identity string) ([]domain.Message, error) {
	var models []domain.MessageModel
	err := r.db.WithContext(ctx).
		Where("receiver = ?", identity).
		Order("seq ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return toDomainSlice(models), nil
}

func (r *GormMessageRepository) ListByTaskPage(ctx context.Context, taskID, cursor string, limit int) (*domain.MessagePage, error) {
	if limit < 1 {
		limit = 1
	}

	query := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("seq ASC").
		Limit(limit + 1) // probe one past the page to detect more

	if cursor != "" {
		seq, err := strconv.ParseUint(cursor, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid cursor %q", domain.ErrValidation, cursor)
		}
		query = query.Where("seq > ?", seq)
	}

	var models []domain.MessageModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}

	hasMore := len(models) > limit
	if hasMore {
		models = models[:limit]
	}

	var nextCursor string
	if len(models) > 0 {
		nextCursor = strconv.FormatUint(models[len(models)-1].Seq, 10)
	}

	return &domain.MessagePage{
		Messages:   toDomainSlice(models),
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func toDomainSlice(models []domain.MessageModel) []domain.Message {
	messages := make([]domain.Message, len(models))
	for i, model := range models {
		messages[i] = *model.ToDomain()
	}
	return messages
}
