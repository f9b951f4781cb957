package models

// UserPrompt is one entry in the append-only prompt log of a session.
// PromptNumber is sequential per session.
type UserPrompt struct {
	ID              int64  `db:"id" json:"id"`
	ClaudeSessionID string `db:"claude_session_id" json:"claude_session_id"`
	PromptNumber    int64  `db:"prompt_number" json:"prompt_number"`
	PromptText      string `db:"prompt_text" json:"prompt_text"`
	CreatedAt       string `db:"created_at" json:"created_at"`
	CreatedAtEpoch  int64  `db:"created_at_epoch" json:"created_at_epoch"`
}

// UserPromptWithSession includes session context for search results.
type UserPromptWithSession struct {
	UserPrompt
	Project string `db:"project" json:"project"`
}
