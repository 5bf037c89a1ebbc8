package domain

import "fmt"

// PlatformQQ is the OneBot (aiocqhttp) platform name. Avatar fallback is only
// available there.
const PlatformQQ = "aiocqhttp"

// Event is an inbound chat message as delivered by the host bot runtime.
type Event struct {
	ChatID    int64
	MessageID int
	SenderID  string
	Platform  string
	Origin    string

	// Text is the plain text of the message, text components joined by a space.
	Text string
	// Mentioned reports whether the bot was addressed directly (mention,
	// private chat or wake command).
	Mentioned bool

	ImageURLs       []string
	QuotedImageURLs []string
	AtUserIDs       []string
}

func Origin(platform string, chatID int64) string {
	return fmt.Sprintf("%s:%d", platform, chatID)
}

// Reply builds a text response quoting the event's message.
func (e *Event) Reply(text string) Response {
	return Response{
		ChatID:           e.ChatID,
		ReplyToMessageID: e.MessageID,
		Text:             text,
	}
}

func (e *Event) ReplyImages(images []Image) Response {
	return Response{
		ChatID:           e.ChatID,
		ReplyToMessageID: e.MessageID,
		Images:           images,
	}
}
