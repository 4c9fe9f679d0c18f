package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/at-ishikawa/genius/internal/content"
	"github.com/at-ishikawa/genius/internal/credit"
	"github.com/at-ishikawa/genius/internal/inference"
	"github.com/at-ishikawa/genius/internal/plan"
	"github.com/at-ishikawa/genius/internal/profile"
	"github.com/at-ishikawa/genius/internal/session"
	"github.com/at-ishikawa/genius/internal/story"
	"github.com/at-ishikawa/genius/internal/workbook"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, credit.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, session.ErrBusy),
		errors.Is(err, plan.ErrPlanComplete),
		errors.Is(err, plan.ErrNoSteps):
		return http.StatusConflict
	case errors.Is(err, inference.ErrGenerationFormat),
		errors.Is(err, plan.ErrMalformedPlanStep),
		errors.Is(err, plan.ErrEmptyWorksheet),
		errors.Is(err, workbook.ErrEmptyWorkbook):
		return http.StatusUnprocessableEntity
	case errors.Is(err, workbook.ErrInvalidRequest),
		errors.Is(err, story.ErrEmptyTitle),
		errors.Is(err, plan.ErrMissingSubject),
		errors.Is(err, session.ErrNoActiveProfile):
		return http.StatusBadRequest
	case errors.Is(err, content.ErrNotFound),
		errors.Is(err, profile.ErrNotFound),
		errors.Is(err, story.ErrNotAStory),
		errors.Is(err, plan.ErrNotAPlan),
		errors.Is(err, workbook.ErrNotAWorkbook):
		return http.StatusNotFound
	case errors.Is(err, inference.ErrMissingCredentials):
		return http.StatusPreconditionFailed
	case errors.Is(err, inference.ErrGenerationFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError writes the guardian facing message; internal details only go to the log
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Default().Error("request failed", "path", c.Request.URL.Path, "error", err)
	} else {
		slog.Default().Debug("request rejected", "path", c.Request.URL.Path, "status", status, "error", err)
	}
	c.JSON(status, gin.H{"error": session.UserMessage(err)})
}

func respondBadRequest(c *gin.Context, err error) {
	slog.Default().Debug("invalid request body", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusBadRequest, gin.H{"error": "בקשה לא תקינה"})
}

// warning reports a failed debit next to content that was delivered anyway
func warning(err error) string {
	if errors.Is(err, credit.ErrDebitFailed) {
		return session.UserMessage(err)
	}
	return ""
}

// delivered tells whether the content of a transition reached the guardian
func delivered(err error) bool {
	return err == nil || errors.Is(err, credit.ErrDebitFailed)
}
