package domain

import "time"

// Message is a single chat message exchanged on a task.
type Message struct {
	MessageID string    `json:"messageId"`
	TaskID    string    `json:"taskId"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"timestamp"`
}

// MessageModel is the GORM model for the messages table. The auto-increment
// sequence is the primary key so insertion order survives timestamp ties.
type MessageModel struct {
	Seq       uint64    `gorm:"primaryKey;autoIncrement"`
	MessageID string    `gorm:"type:varchar(36);uniqueIndex;not null"`
	TaskID    string    `gorm:"type:varchar(36);index;not null"`
	Sender    string    `gorm:"type:varchar(50);not null"`
	Receiver  string    `gorm:"type:varchar(50);index;not null"`
	Body      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts MessageModel to a domain Message.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		MessageID: m.MessageID,
		TaskID:    m.TaskID,
		Sender:    m.Sender,
		Receiver:  m.Receiver,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}

// MessageToModel converts a domain Message to MessageModel.
func MessageToModel(msg *Message) *MessageModel {
	return &MessageModel{
		MessageID: msg.MessageID,
		TaskID:    msg.TaskID,
		Sender:    msg.Sender,
		Receiver:  msg.Receiver,
		Body:      msg.Body,
		CreatedAt: msg.CreatedAt,
	}
}

// MessagePage is one bounded slice of a task's history.
type MessagePage struct {
	Messages   []Message `json:"messages"`
	NextCursor string    `json:"next_cursor"`
	HasMore    bool      `json:"has_more"`
}

// Task is the external unit of work a chat room is scoped to. Owned by the
// task directory; read-only for this subsystem.
type Task struct {
	ID    string
	Owner string
	Title string
}

// TaskModel is the GORM model for the marketplace's tasks table. Only ID and
// owner are consulted here; the remaining columns belong to the task CRUD
// surface outside this service.
type TaskModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Owner     string    `gorm:"type:varchar(50);index;not null"`
	Title     string    `gorm:"type:varchar(200)"`
	CreatedAt time.Time
}

// TableName specifies the table name for TaskModel.
func (TaskModel) TableName() string {
	return "tasks"
}

// ToDomain converts TaskModel to a domain Task.
func (m *TaskModel) ToDomain() *Task {
	return &Task{
		ID:    m.ID,
		Owner: m.Owner,
		Title: m.Title,
	}
}
