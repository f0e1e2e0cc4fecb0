package lf

import "go.uber.org/zap"

const (
	FieldModule     = "module"
	FieldUsername   = "username"
	FieldTaskType   = "task_type"
	FieldOperation  = "operation"
	FieldRequestID  = "request_id"
	FieldFeedbackID = "feedback_id"
	FieldTextLength = "text_length"
	FieldChatID     = "chat_id"
)

func Module(module string) zap.Field {
	return zap.String(FieldModule, module)
}

func Username(username string) zap.Field {
	return zap.String(FieldUsername, username)
}

func TaskType(taskType string) zap.Field {
	return zap.String(FieldTaskType, taskType)
}

func Operation(op string) zap.Field {
	return zap.String(FieldOperation, op)
}

func RequestID(id string) zap.Field {
	return zap.String(FieldRequestID, id)
}

func FeedbackID(id uint) zap.Field {
	return zap.Uint(FieldFeedbackID, id)
}

func TextLength(text string) zap.Field {
	return zap.Int(FieldTextLength, len(text))
}

func ChatID(id int64) zap.Field {
	return zap.Int64(FieldChatID, id)
}
