package gemini

import "fmt"

// APIError is a non-200 answer carrying the provider's own message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("image generation failed: %s", e.Message)
}

// FinishReasonError aborts the whole call: a candidate ended with anything
// other than STOP, so no partial result is returned.
type FinishReasonError struct {
	Reason string
}

func (e *FinishReasonError) Error() string {
	return fmt.Sprintf("image generation failed, reason: %s", e.Reason)
}

// BlockedError means the prompt was rejected by the content safety system.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("request blocked by content safety system, reason: %s", e.Reason)
}
