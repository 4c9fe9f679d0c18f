package workbook

import (
	"context"
	"math"

	"github.com/at-ishikawa/genius/internal/assets"
	"github.com/at-ishikawa/genius/internal/credit"
	"github.com/at-ishikawa/genius/internal/inference"
	"github.com/at-ishikawa/genius/internal/metrics"
)

type Grade struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// CheckAnswers grades answers, given in exercise order, without touching the
// workbook. It is only credit gated when grading is configured as paid.
func (g *Generator) CheckAnswers(ctx context.Context, workbook *Workbook, answers []string) (grade *Grade, err error) {
	defer func() {
		metrics.TransitionsTotal.WithLabelValues("workbook", "check_answers", metrics.Outcome(err)).Inc()
	}()
	if workbook == nil || len(workbook.Exercises) == 0 {
		return nil, ErrEmptyWorkbook
	}

	graded := make([]assets.GradedAnswer, 0, len(workbook.Exercises))
	for i, exercise := range workbook.Exercises {
		answer := ""
		if i < len(answers) {
			answer = answers[i]
		}
		graded = append(graded, assets.GradedAnswer{
			Question:      exercise.QuestionText,
			CorrectAnswer: exercise.CorrectAnswer,
			Answer:        answer,
		})
	}

	check := func(ctx context.Context) error {
		prompt, err := g.app.Services.Prompts.Grading(assets.GradingPrompt{
			Child:   g.app.Child(),
			Title:   workbook.Title,
			Answers: graded,
		})
		if err != nil {
			return err
		}
		var response inference.GradingResponse
		if err := g.app.Services.Generator.GenerateStructured(ctx, inference.StructuredRequest{
			OwnerID:   g.app.OwnerID,
			Operation: inference.OperationGrading,
			Prompt:    prompt,
			Schema:    inference.GradingSchema(),
		}, &response); err != nil {
			return err
		}
		grade = &Grade{
			Score:    math.Max(0, math.Min(100, response.Score)),
			Feedback: response.Feedback,
		}
		return nil
	}

	if !g.app.Services.ChargeGrading {
		if err := check(ctx); err != nil {
			return nil, err
		}
		return grade, nil
	}
	err = g.app.Services.Gate.Run(ctx, g.app.OwnerID, credit.KindAnswerGrading, check)
	if grade == nil {
		return nil, err
	}
	return grade, err
}
