package directory

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/letscodeshivansh/taskchat/internal/domain"
	"github.com/letscodeshivansh/taskchat/internal/logging"
)

// TaskDirectory resolves a task to its owner. The tasks table belongs to the
// marketplace's task CRUD surface; this subsystem only reads it for
// authorization.
type TaskDirectory interface {
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
}

// GormTaskDirectory implements TaskDirectory against the shared database.
type GormTaskDirectory struct {
	db *gorm.DB
}

func NewGormTaskDirectory(db *gorm.DB) *GormTaskDirectory {
	return &GormTaskDirectory{db: db}
}

func (d *GormTaskDirectory) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	l := logging.Ctx(ctx)

	var model domain.TaskModel
	result := d.db.WithContext(ctx).First(&model, "id = ?", taskID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTaskNotFound
		}
		l.Error().Err(result.Error).Str(logging.FieldTaskID, taskID).Msg("failed to get task by id")
		return nil, result.Error
	}
	return model.ToDomain(), nil
}
