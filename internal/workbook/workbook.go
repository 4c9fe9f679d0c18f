// Package workbook generates one-shot workbooks and grades the answers to them.
package workbook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/google/uuid"

	"github.com/at-ishikawa/genius/internal/assets"
	"github.com/at-ishikawa/genius/internal/content"
	"github.com/at-ishikawa/genius/internal/credit"
	"github.com/at-ishikawa/genius/internal/inference"
	"github.com/at-ishikawa/genius/internal/metrics"
	"github.com/at-ishikawa/genius/internal/session"
)

const (
	Kind = "workbook"

	MaxExercises = 30
)

type Request struct {
	Description  string `json:"description" validate:"required"`
	NumExercises int    `json:"num_exercises" validate:"min=1,max=30"`
	Subject      string `json:"subject"`
	Topic        string `json:"topic"`
}

type Exercise struct {
	QuestionText  string   `json:"question_text"`
	QuestionType  string   `json:"question_type"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
}

type Workbook struct {
	ID           string     `json:"id"`
	Kind         string     `json:"kind"`
	Title        string     `json:"title"`
	Introduction string     `json:"introduction"`
	Subject      string     `json:"subject,omitempty"`
	Topic        string     `json:"topic,omitempty"`
	Exercises    []Exercise `json:"exercises"`
	Conclusion   string     `json:"conclusion"`
}

var (
	ErrInvalidRequest = session.NewError("invalid workbook request", "יש לכתוב תיאור ולבחור בין 1 ל-30 תרגילים")
	ErrEmptyWorkbook  = session.NewError("generated workbook has no exercises", "חוברת העבודה שנוצרה ריקה, נא לנסות שוב")
	ErrNotAWorkbook   = errors.New("content is not a workbook")
)

type requestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

var newRequestValidator = sync.OnceValues(func() (*requestValidator, error) {
	validate := validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, fmt.Errorf("failed to register default translations: %w", err)
	}
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return &requestValidator{validate: validate, translator: trans}, nil
})

// Validate checks the request without any network call
func (req Request) Validate() error {
	v, err := newRequestValidator()
	if err != nil {
		return err
	}
	req.Description = strings.TrimSpace(req.Description)
	if err := v.validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		messages := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			messages = append(messages, e.Translate(v.translator))
		}
		return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(messages, ", "))
	}
	return nil
}

type Generator struct {
	app *session.Context
}

func NewGenerator(app *session.Context) (*Generator, error) {
	if app == nil || app.Profile == nil {
		return nil, session.ErrNoActiveProfile
	}
	return &Generator{app: app}, nil
}

// Generate creates and stores a workbook. When only the debit fails, the
// workbook is returned together with an error wrapping credit.ErrDebitFailed.
func (g *Generator) Generate(ctx context.Context, req Request) (workbook *Workbook, err error) {
	defer func() {
		metrics.TransitionsTotal.WithLabelValues("workbook", "generate", metrics.Outcome(err)).Inc()
	}()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.Description = strings.TrimSpace(req.Description)

	err = g.app.Services.Gate.Run(ctx, g.app.OwnerID, credit.KindWorkbook, func(ctx context.Context) error {
		generated, err := g.generate(ctx, req)
		if err != nil {
			return err
		}
		workbook = generated
		return nil
	})
	if err != nil && !errors.Is(err, credit.ErrDebitFailed) {
		return nil, err
	}

	data, marshalErr := json.Marshal(workbook)
	if marshalErr != nil {
		slog.Default().Error("failed to encode workbook", "workbook_id", workbook.ID, "error", marshalErr)
		return workbook, err
	}
	workbook.ID = g.app.Persist(ctx, content.Draft{
		ID:    workbook.ID,
		Type:  content.TypeWorkbook,
		Title: workbook.Title,
		Data:  data,
	})
	return workbook, err
}

func (g *Generator) generate(ctx context.Context, req Request) (*Workbook, error) {
	prompt, err := g.app.Services.Prompts.Workbook(assets.WorkbookPrompt{
		Child:         g.app.Child(),
		Description:   req.Description,
		NumExercises:  req.NumExercises,
		Subject:       req.Subject,
		Topic:         req.Topic,
		QuestionTypes: inference.QuestionTypes,
	})
	if err != nil {
		return nil, err
	}

	var response inference.WorkbookResponse
	if err := g.app.Services.Generator.GenerateStructured(ctx, inference.StructuredRequest{
		OwnerID:   g.app.OwnerID,
		Operation: inference.OperationWorkbook,
		Prompt:    prompt,
		Schema:    inference.WorkbookSchema(req.NumExercises),
	}, &response); err != nil {
		return nil, err
	}
	if len(response.Exercises) == 0 {
		return nil, ErrEmptyWorkbook
	}

	workbook := &Workbook{
		ID:           uuid.NewString(),
		Kind:         Kind,
		Title:        response.Title,
		Introduction: response.Introduction,
		Subject:      req.Subject,
		Topic:        req.Topic,
		Exercises:    make([]Exercise, 0, len(response.Exercises)),
		Conclusion:   response.Conclusion,
	}
	for i, exercise := range response.Exercises {
		if strings.TrimSpace(exercise.QuestionText) == "" || strings.TrimSpace(exercise.CorrectAnswer) == "" {
			slog.Default().Warn("generated exercise is incomplete",
				"owner_id", g.app.OwnerID,
				"exercise", i+1,
				"has_question", exercise.QuestionText != "",
				"has_answer", exercise.CorrectAnswer != "",
			)
		}
		workbook.Exercises = append(workbook.Exercises, Exercise{
			QuestionText:  exercise.QuestionText,
			QuestionType:  exercise.QuestionType,
			Options:       exercise.Options,
			CorrectAnswer: exercise.CorrectAnswer,
		})
	}
	if len(workbook.Exercises) != req.NumExercises {
		slog.Default().Info("generated a different number of exercises than requested",
			"owner_id", g.app.OwnerID,
			"requested", req.NumExercises,
			"generated", len(workbook.Exercises),
		)
	}
	if workbook.Title == "" {
		workbook.Title = req.Description
	}
	return workbook, nil
}

// Decode reads a stored workbook record; worksheets are rejected because they carry no answers
func Decode(record *content.Record) (*Workbook, error) {
	if record.Type != content.TypeWorkbook {
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotAWorkbook, record.ID, record.Type)
	}
	var workbook Workbook
	if err := json.Unmarshal(record.ContentData, &workbook); err != nil {
		return nil, fmt.Errorf("json.Unmarshal(%s) > %w", record.ID, err)
	}
	if workbook.Kind != "" && workbook.Kind != Kind {
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotAWorkbook, record.ID, workbook.Kind)
	}
	workbook.ID = record.ID
	return &workbook, nil
}
