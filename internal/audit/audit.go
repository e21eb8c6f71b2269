package audit

import (
	"context"

	"github.com/letscodeshivansh/taskchat/internal/logging"
)

// Audit actions for the chat subsystem.
const (
	ActionConnect    = "chat.connect"
	ActionJoin       = "chat.join"
	ActionLeave      = "chat.leave"
	ActionPublish    = "chat.publish"
	ActionFeedback   = "chat.feedback"
	ActionDisconnect = "chat.disconnect"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action, identity, msg string) {
	l := logging.Ctx(ctx)
	l.Info().
		Str(logging.FieldLogType, logging.LogTypeAudit).
		Str(FieldAction, action).
		Str(logging.FieldIdentity, identity).
		Msg(msg)
}

// LogWithDetail emits an audit log with an extra detail field.
func LogWithDetail(ctx context.Context, action, identity, detail, msg string) {
	l := logging.Ctx(ctx)
	l.Info().
		Str(logging.FieldLogType, logging.LogTypeAudit).
		Str(FieldAction, action).
		Str(logging.FieldIdentity, identity).
		Str(FieldDetail, detail).
		Msg(msg)
}
