package session

import (
	"errors"

	"github.com/at-ishikawa/genius/internal/content"
	"github.com/at-ishikawa/genius/internal/credit"
	"github.com/at-ishikawa/genius/internal/inference"
	"github.com/at-ishikawa/genius/internal/profile"
)

// Error is a sentinel error that knows how to present itself to the guardian
type Error struct {
	message     string
	userMessage string
}

func NewError(message, userMessage string) *Error {
	return &Error{message: message, userMessage: userMessage}
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) UserMessage() string {
	return e.userMessage
}

var (
	ErrBusy            = NewError("another operation is still in progress", "פעולה אחרת עדיין מתבצעת, נא להמתין לסיומה")
	ErrNoActiveProfile = NewError("no active child profile", "יש לבחור פרופיל ילד לפני שמתחילים")
)

const defaultUserMessage = "משהו השתבש, נא לנסות שוב"

// UserMessage converts a transition error into a Hebrew message for the guardian
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var sessionErr *Error
	if errors.As(err, &sessionErr) {
		return sessionErr.UserMessage()
	}

	switch {
	case errors.Is(err, credit.ErrInsufficientCredits):
		return "אין מספיק קרדיטים לפעולה זו"
	case errors.Is(err, credit.ErrDebitFailed):
		return "התוכן נשמר, אך חיוב הקרדיטים נכשל. הצוות שלנו יטפל בכך"
	case errors.Is(err, inference.ErrMissingCredentials):
		return "לא הוגדר מפתח גישה לשירות הבינה המלאכותית"
	case errors.Is(err, inference.ErrGenerationFormat):
		return "היצירה נכשלה, נא לנסות שוב"
	case errors.Is(err, inference.ErrGenerationFailed):
		return "השירות אינו זמין כרגע, נא לנסות שוב בעוד מספר רגעים"
	case errors.Is(err, content.ErrNotFound):
		return "התוכן המבוקש לא נמצא"
	case errors.Is(err, profile.ErrNotFound):
		return "פרופיל הילד לא נמצא"
	case errors.Is(err, content.ErrPersistence):
		return "השמירה נכשלה, התוכן נשמר זמנית במכשיר"
	}
	return defaultUserMessage
}
