package repository

import "context"

// Assistant javob bera olmaganda qaytariladigan matnlar
const (
	EmptyReplyFallback  = "I apologize, but I couldn't generate a response at this moment."
	UnavailableFallback = "⚠️ Sorry, I'm having trouble connecting to my brain. Please try again."
)

// AssistantRepository masofaviy AI yordamchi.
// Send hech qachon xato qaytarmaydi: muvaffaqiyatsizlikda tayyor fallback matn qaytadi.
type AssistantRepository interface {
	Send(ctx context.Context, prompt string) string
}
