package model

// Chat is a message thread on an item.
type Chat struct {
	ID          string      `json:"id"`
	ItemID      string      `json:"itemId"`
	HTMLContent string      `json:"htmlContent"`
	CreatedBy   string      `json:"createdBy"`
	CreatedAt   string      `json:"createdAt"`
	UpdatedAt   *string     `json:"updatedAt"`
	Replies     []ChatReply `json:"replies"`
	Tasks       *string     `json:"tasks,omitempty"` // JSON-encoded []Task
}

type ChatReply struct {
	ID          string  `json:"id"`
	ChatID      string  `json:"chatId"`
	HTMLContent string  `json:"htmlContent"`
	CreatedBy   string  `json:"createdBy"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   *string `json:"updatedAt"`
}

type CreateChatRequest struct {
	ItemID    string  `json:"itemId"`
	Message   string  `json:"message"`
	Responses *string `json:"responses,omitempty"`
	Tasks     *string `json:"tasks,omitempty"`
}

type UpdateChatRequest struct {
	Message string  `json:"message"`
	Tasks   *string `json:"tasks,omitempty"`
}

type CreateReplyRequest struct {
	ChatID      string `json:"-"`
	HTMLContent string `json:"htmlContent"`
}

// Task is a checklist entry extracted from chat HTML.
type Task struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Completed bool   `json:"completed"`
}
