package telegram

import "strings"

// Update is the webhook payload. Only the fields the bot reads are mapped.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
}

type PhotoSize struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FileSize     int64  `json:"file_size,omitempty"`
}

type MessageEntity struct {
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}

type Message struct {
	MessageID int64           `json:"message_id"`
	From      *User           `json:"from,omitempty"`
	Chat      Chat            `json:"chat"`
	Date      int64           `json:"date"`
	Text      string          `json:"text,omitempty"`
	Caption   string          `json:"caption,omitempty"`
	Photo     []PhotoSize     `json:"photo,omitempty"`
	Entities  []MessageEntity `json:"entities,omitempty"`
}

type File struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size,omitempty"`
	FilePath string `json:"file_path,omitempty"`
}

// LargestPhoto returns the highest resolution size.
// Telegram orders sizes ascending.
func (m *Message) LargestPhoto() *PhotoSize {
	if m == nil || len(m.Photo) == 0 {
		return nil
	}
	return &m.Photo[len(m.Photo)-1]
}

func (m *Message) IsGroup() bool {
	return m.Chat.Type == "group" || m.Chat.Type == "supergroup"
}

// Command returns the bot command in Text without the leading slash,
// e.g. "help" for "/help" or "/help@my_bot". Commands addressed to
// another bot return "".
func (m *Message) Command(botUsername string) string {
	if m == nil || !strings.HasPrefix(m.Text, "/") {
		return ""
	}

	word := strings.Fields(m.Text)[0][1:]
	cmd, target, addressed := strings.Cut(word, "@")
	if addressed && !strings.EqualFold(target, strings.TrimPrefix(botUsername, "@")) {
		return ""
	}
	return strings.ToLower(cmd)
}
