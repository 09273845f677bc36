package models

type ChatConsultRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversationId,omitempty"`
	UserType       string `json:"userType,omitempty"`
}

type ChatConsultResponse struct {
	Data           string `json:"data"`
	ConversationID string `json:"conversationId,omitempty"`
}

type SecondaryQuestionTitle struct {
	ID       int64  `json:"id,omitempty"`
	Title    string `json:"title"`
	Question string `json:"question,omitempty"`
}

type ChatHistoryMessage struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	CreateTime string `json:"createTime,omitempty"`
}

type ConversationMeta struct {
	ConversationID string `json:"conversationId"`
	Title          string `json:"title"`
	CreateTime     string `json:"createTime,omitempty"`
	UpdateTime     string `json:"updateTime,omitempty"`
}
