// Package plan runs the guided learning plan: ten steps of five activity
// cards each, generated one at a time, plus worksheets and topic ideas.
package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/at-ishikawa/genius/internal/assets"
	"github.com/at-ishikawa/genius/internal/content"
	"github.com/at-ishikawa/genius/internal/credit"
	"github.com/at-ishikawa/genius/internal/inference"
	"github.com/at-ishikawa/genius/internal/metrics"
	"github.com/at-ishikawa/genius/internal/session"
)

const (
	TotalSteps   = 10
	CardsPerStep = 5
)

type EducatorGuidance struct {
	Objective         string `json:"objective"`
	Tips              string `json:"tips"`
	PotentialPitfalls string `json:"potential_pitfalls"`
}

type Card struct {
	LearnerActivity  string           `json:"learner_activity"`
	EducatorGuidance EducatorGuidance `json:"educator_guidance"`
}

type Step struct {
	StepTitle string `json:"step_title"`
	Cards     []Card `json:"cards"`
}

type LearningPlan struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Topic   string `json:"topic"`
	Goal    string `json:"goal"`
	Steps   []Step `json:"steps"`
}

func (p LearningPlan) Complete() bool {
	return len(p.Steps) >= TotalSteps
}

func (p LearningPlan) title() string {
	if p.Topic != "" {
		return p.Topic
	}
	return p.Subject
}

var (
	ErrMissingSubject    = session.NewError("plan subject and topic are required", "יש לבחור תחום ונושא לתוכנית")
	ErrPlanComplete      = session.NewError("learning plan is complete", "התוכנית הושלמה, כל עשרת השלבים נוצרו")
	ErrMalformedPlanStep = session.NewError("generated plan step is malformed", "יצירת השלב נכשלה, נא לנסות שוב")
	ErrNotAPlan          = errors.New("content is not a learning plan")
)

// Session owns one learning plan. Steps and worksheets are serialized;
// a concurrent call fails with session.ErrBusy. mu guards plan against
// snapshot readers; only the transition holding guard writes it.
type Session struct {
	app   *session.Context
	guard session.Guard
	mu    sync.RWMutex
	plan  LearningPlan
}

func New(app *session.Context, subject, topic, goal string) (*Session, error) {
	if app == nil || app.Profile == nil {
		return nil, session.ErrNoActiveProfile
	}
	subject = strings.TrimSpace(subject)
	topic = strings.TrimSpace(topic)
	if subject == "" || topic == "" {
		return nil, ErrMissingSubject
	}
	return &Session{
		app: app,
		plan: LearningPlan{
			ID:      uuid.NewString(),
			Subject: subject,
			Topic:   topic,
			Goal:    strings.TrimSpace(goal),
			Steps:   []Step{},
		},
	}, nil
}

// Resume rebuilds a session from a stored learning plan record
func Resume(app *session.Context, record *content.Record) (*Session, error) {
	if app == nil || app.Profile == nil {
		return nil, session.ErrNoActiveProfile
	}
	if record.Type != content.TypeLearningPlan {
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotAPlan, record.ID, record.Type)
	}
	var plan LearningPlan
	if err := json.Unmarshal(record.ContentData, &plan); err != nil {
		return nil, fmt.Errorf("json.Unmarshal(%s) > %w", record.ID, err)
	}
	plan.ID = record.ID
	if plan.Steps == nil {
		plan.Steps = []Step{}
	}
	return &Session{app: app, plan: plan}, nil
}

func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plan.ID
}

// Plan returns a snapshot of the plan
func (s *Session) Plan() LearningPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := s.plan
	snapshot.Steps = slices.Clone(s.plan.Steps)
	return snapshot
}

// AdvanceStep generates the next step, taking the guardian's feedback on the
// previous one into account. When only the debit fails, the step is returned
// together with an error wrapping credit.ErrDebitFailed.
func (s *Session) AdvanceStep(ctx context.Context, feedback string) (step Step, err error) {
	release, err := s.guard.Enter()
	if err != nil {
		return Step{}, err
	}
	defer release()
	defer func() {
		metrics.TransitionsTotal.WithLabelValues("plan", "advance_step", metrics.Outcome(err)).Inc()
	}()

	if s.plan.Complete() {
		return Step{}, ErrPlanComplete
	}

	err = s.app.Services.Gate.Run(ctx, s.app.OwnerID, credit.KindPlanStep, func(ctx context.Context) error {
		generated, err := s.generateStep(ctx, strings.TrimSpace(feedback))
		if err != nil {
			return err
		}
		step = generated
		steps := append(slices.Clone(s.plan.Steps), generated)
		s.mu.Lock()
		s.plan.Steps = steps
		s.mu.Unlock()
		return nil
	})
	if err != nil && !errors.Is(err, credit.ErrDebitFailed) {
		return Step{}, err
	}

	s.persist(ctx)
	return step, err
}

func (s *Session) generateStep(ctx context.Context, feedback string) (Step, error) {
	history := make([]string, 0, len(s.plan.Steps))
	for _, step := range s.plan.Steps {
		history = append(history, step.StepTitle)
	}
	prompt, err := s.app.Services.Prompts.PlanStep(assets.PlanStepPrompt{
		Child:        s.app.Child(),
		Subject:      s.plan.Subject,
		Topic:        s.plan.Topic,
		Goal:         s.plan.Goal,
		StepNumber:   len(s.plan.Steps) + 1,
		TotalSteps:   TotalSteps,
		CardsPerStep: CardsPerStep,
		History:      history,
		Feedback:     feedback,
	})
	if err != nil {
		return Step{}, err
	}

	var response inference.PlanStepResponse
	if err := s.app.Services.Generator.GenerateStructured(ctx, inference.StructuredRequest{
		OwnerID:   s.app.OwnerID,
		Operation: inference.OperationPlanStep,
		Prompt:    prompt,
		Schema:    inference.PlanStepSchema(CardsPerStep),
	}, &response); err != nil {
		return Step{}, err
	}
	return toStep(response)
}

func toStep(response inference.PlanStepResponse) (Step, error) {
	if strings.TrimSpace(response.StepTitle) == "" {
		return Step{}, fmt.Errorf("%w: step has no title", ErrMalformedPlanStep)
	}
	if len(response.Cards) != CardsPerStep {
		return Step{}, fmt.Errorf("%w: got %d cards, want %d", ErrMalformedPlanStep, len(response.Cards), CardsPerStep)
	}
	step := Step{StepTitle: response.StepTitle, Cards: make([]Card, 0, len(response.Cards))}
	for i, card := range response.Cards {
		if strings.TrimSpace(card.LearnerActivity) == "" {
			return Step{}, fmt.Errorf("%w: card %d has no activity", ErrMalformedPlanStep, i+1)
		}
		step.Cards = append(step.Cards, Card{
			LearnerActivity: card.LearnerActivity,
			EducatorGuidance: EducatorGuidance{
				Objective:         card.EducatorGuidance.Objective,
				Tips:              card.EducatorGuidance.Tips,
				PotentialPitfalls: card.EducatorGuidance.PotentialPitfalls,
			},
		})
	}
	return step, nil
}

func (s *Session) persist(ctx context.Context) {
	data, err := json.Marshal(s.plan)
	if err != nil {
		slog.Default().Error("failed to encode learning plan", "plan_id", s.plan.ID, "error", err)
		return
	}
	id := s.app.Persist(ctx, content.Draft{
		ID:    s.plan.ID,
		Type:  content.TypeLearningPlan,
		Title: s.plan.title(),
		Data:  data,
	})
	s.mu.Lock()
	s.plan.ID = id
	s.mu.Unlock()
}
