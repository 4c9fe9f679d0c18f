package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/at-ishikawa/genius/internal/assets"
	"github.com/at-ishikawa/genius/internal/content"
	"github.com/at-ishikawa/genius/internal/credit"
	"github.com/at-ishikawa/genius/internal/inference"
	"github.com/at-ishikawa/genius/internal/metrics"
	"github.com/at-ishikawa/genius/internal/session"
)

// WorksheetKind discriminates worksheets from generated workbooks, which share a content type
const WorksheetKind = "worksheet"

type WorksheetExercise struct {
	Question string `json:"question"`
}

type Worksheet struct {
	ID                  string              `json:"id"`
	Kind                string              `json:"kind"`
	PlanID              string              `json:"plan_id"`
	Title               string              `json:"title"`
	Introduction        string              `json:"introduction"`
	Exercises           []WorksheetExercise `json:"exercises"`
	MotivationalMessage string              `json:"motivational_message"`
	Image               string              `json:"image,omitempty"`
	// ImageUnavailable is set when the worksheet was committed without its illustration
	ImageUnavailable bool `json:"-"`
}

var (
	ErrNoSteps        = session.NewError("learning plan has no steps yet", "יש ליצור לפחות שלב אחד לפני דף העבודה")
	ErrEmptyWorksheet = session.NewError("generated worksheet has no exercises", "דף העבודה שנוצר ריק, נא לנסות שוב")
)

// GenerateWorksheet summarizes the plan so far into a printable worksheet,
// stored as its own workbook record. The plan itself is not changed.
func (s *Session) GenerateWorksheet(ctx context.Context) (worksheet *Worksheet, err error) {
	release, err := s.guard.Enter()
	if err != nil {
		return nil, err
	}
	defer release()
	defer func() {
		metrics.TransitionsTotal.WithLabelValues("plan", "worksheet", metrics.Outcome(err)).Inc()
	}()

	if len(s.plan.Steps) == 0 {
		return nil, ErrNoSteps
	}

	err = s.app.Services.Gate.Run(ctx, s.app.OwnerID, credit.KindWorksheet, func(ctx context.Context) error {
		generated, err := s.generateWorksheet(ctx)
		if err != nil {
			return err
		}
		worksheet = generated
		return nil
	})
	if err != nil && !errors.Is(err, credit.ErrDebitFailed) {
		return nil, err
	}

	data, marshalErr := json.Marshal(worksheet)
	if marshalErr != nil {
		slog.Default().Error("failed to encode worksheet", "worksheet_id", worksheet.ID, "error", marshalErr)
		return worksheet, err
	}
	worksheet.ID = s.app.Persist(ctx, content.Draft{
		ID:    worksheet.ID,
		Type:  content.TypeWorkbook,
		Title: worksheet.Title,
		Data:  data,
	})
	return worksheet, err
}

func (s *Session) generateWorksheet(ctx context.Context) (*Worksheet, error) {
	steps := make([]assets.WorksheetStep, 0, len(s.plan.Steps))
	for _, step := range s.plan.Steps {
		activities := make([]string, 0, len(step.Cards))
		for _, card := range step.Cards {
			activities = append(activities, card.LearnerActivity)
		}
		steps = append(steps, assets.WorksheetStep{Title: step.StepTitle, Activities: activities})
	}
	prompt, err := s.app.Services.Prompts.PlanWorksheet(assets.WorksheetPrompt{
		Child:   s.app.Child(),
		Subject: s.plan.Subject,
		Topic:   s.plan.Topic,
		Goal:    s.plan.Goal,
		Steps:   steps,
	})
	if err != nil {
		return nil, err
	}

	var response inference.WorksheetResponse
	if err := s.app.Services.Generator.GenerateStructured(ctx, inference.StructuredRequest{
		OwnerID:   s.app.OwnerID,
		Operation: inference.OperationWorksheet,
		Prompt:    prompt,
		Schema:    inference.WorksheetSchema(),
	}, &response); err != nil {
		return nil, err
	}

	exercises := make([]WorksheetExercise, 0, len(response.Exercises))
	for _, exercise := range response.Exercises {
		if strings.TrimSpace(exercise.Question) == "" {
			continue
		}
		exercises = append(exercises, WorksheetExercise{Question: exercise.Question})
	}
	if len(exercises) == 0 {
		return nil, ErrEmptyWorksheet
	}

	worksheet := &Worksheet{
		ID:                  uuid.NewString(),
		Kind:                WorksheetKind,
		PlanID:              s.plan.ID,
		Title:               response.Title,
		Introduction:        response.Introduction,
		Exercises:           exercises,
		MotivationalMessage: response.MotivationalMessage,
	}
	image, err := s.illustrate(ctx, response.ImagePrompt)
	if err != nil {
		return nil, err
	}
	worksheet.Image = image.DataURI()
	worksheet.ImageUnavailable = worksheet.Image == ""
	if worksheet.Title == "" {
		worksheet.Title = fmt.Sprintf("%s: %s", s.plan.Subject, s.plan.Topic)
	}
	return worksheet, nil
}

func (s *Session) illustrate(ctx context.Context, description string) (*inference.Image, error) {
	if strings.TrimSpace(description) == "" {
		return nil, nil
	}
	prompt, err := s.app.Services.Prompts.WorksheetImage(assets.WorksheetImagePrompt{
		Description: description,
		Subject:     s.plan.Subject,
	})
	if err != nil {
		return nil, err
	}
	return s.app.Services.Generator.GenerateImage(ctx, inference.ImageRequest{
		OwnerID:   s.app.OwnerID,
		Operation: inference.OperationWorksheetImage,
		Prompt:    prompt,
	})
}
