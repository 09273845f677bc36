package models

type ReviewRequest struct {
	Text           string `json:"text"`
	ConversationID string `json:"conversationId"`
	FileName       string `json:"fileName"`
}

type ReviewResult struct {
	ID       string `json:"id"`
	FileName string `json:"filename"`
	Review   string `json:"review"`
}

type FileReviewRecord struct {
	RecordID      string `json:"recordId"`
	FileName      string `json:"fileName"`
	ReviewContent string `json:"reviewContent"`
	CreateTime    int64  `json:"createTime"`
	UpdateTime    int64  `json:"updateTime"`
}

type SaveRecordRequest struct {
	ReviewContent  string `json:"reviewContent"`
	FileName       string `json:"fileName"`
	ConversationID string `json:"conversationId,omitempty"`
	RecordID       string `json:"recordId,omitempty"`
}

type FileParseResult struct {
	Text     string `json:"text"`
	FileName string `json:"fileName"`
}
