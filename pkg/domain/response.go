package domain

import "github.com/dskvich/banana-draw-bot/pkg/params"

type Response struct {
	ChatID           int64
	ReplyToMessageID int
	Text             string
	Images           []Image
	Err              error
}

// Image is a generated or fetched picture kept as base64 text, the form
// both provider wire formats use.
type Image struct {
	MimeType string
	Data     string
}

// GenerateRequest is what a provider call needs besides the provider itself.
type GenerateRequest struct {
	Prompt   string
	Images   []Image
	Params   params.Params
	Defaults Defaults
}
