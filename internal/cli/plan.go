package cli

import (
	"context"
	"fmt"

	"github.com/at-ishikawa/genius/internal/plan"
)

// PlanCLI walks the guardian through the learning plan step by step and
// offers the worksheet once the plan is complete
type PlanCLI struct {
	*InteractiveCLI
	session *plan.Session
	images  *ImageWriter
}

func NewPlanCLI(session *plan.Session, images *ImageWriter) *PlanCLI {
	return &PlanCLI{
		InteractiveCLI: newStdCLI(),
		session:        session,
		images:         images,
	}
}

func (r *PlanCLI) Session(ctx context.Context) error {
	current := r.session.Plan()
	if current.Complete() {
		return r.offerWorksheet(ctx)
	}

	prompt := fmt.Sprintf("שלב %d מתוך %d. משוב על השלב הקודם (w לדף עבודה, quit ליציאה): ", len(current.Steps)+1, plan.TotalSteps)
	if len(current.Steps) == 0 {
		prompt = fmt.Sprintf("שלב 1 מתוך %d. Enter ליצירה, quit ליציאה: ", plan.TotalSteps)
	}
	input, err := r.readLine(prompt)
	if err != nil {
		return err
	}
	switch {
	case isQuit(input):
		return errEnd
	case input == "w":
		return r.worksheet(ctx)
	}

	step, err := r.session.AdvanceStep(ctx, input)
	if err != nil {
		if reportErr := r.report(err); reportErr != nil {
			return reportErr
		}
		if step.StepTitle == "" {
			return nil
		}
	}
	r.printStep(len(r.session.Plan().Steps), step)
	return nil
}

func (r *PlanCLI) printStep(number int, step plan.Step) {
	fmt.Fprintln(r.stdoutWriter)
	_, _ = r.bold.Fprintf(r.stdoutWriter, "%d. %s\n", number, step.StepTitle)
	for i, card := range step.Cards {
		fmt.Fprintf(r.stdoutWriter, "  %d) %s\n", i+1, card.LearnerActivity)
		if card.EducatorGuidance.Objective != "" {
			_, _ = r.italic.Fprintf(r.stdoutWriter, "     מטרה: %s\n", card.EducatorGuidance.Objective)
		}
		if card.EducatorGuidance.Tips != "" {
			_, _ = r.italic.Fprintf(r.stdoutWriter, "     טיפ: %s\n", card.EducatorGuidance.Tips)
		}
	}
	fmt.Fprintln(r.stdoutWriter)
}

func (r *PlanCLI) offerWorksheet(ctx context.Context) error {
	_, _ = r.success.Fprintln(r.stdoutWriter, "התוכנית הושלמה!")
	input, err := r.readLine("ליצור דף עבודה מסכם? (y/n): ")
	if err != nil {
		return err
	}
	if input == "y" || input == "כן" {
		if err := r.worksheet(ctx); err != nil {
			return err
		}
	}
	return errEnd
}

func (r *PlanCLI) worksheet(ctx context.Context) error {
	worksheet, err := r.session.GenerateWorksheet(ctx)
	if err != nil {
		if reportErr := r.report(err); reportErr != nil {
			return reportErr
		}
		if worksheet == nil {
			return nil
		}
	}

	fmt.Fprintln(r.stdoutWriter)
	_, _ = r.bold.Fprintln(r.stdoutWriter, worksheet.Title)
	fmt.Fprintln(r.stdoutWriter, worksheet.Introduction)
	for i, exercise := range worksheet.Exercises {
		fmt.Fprintf(r.stdoutWriter, "%d. %s\n", i+1, exercise.Question)
	}
	_, _ = r.success.Fprintln(r.stdoutWriter, worksheet.MotivationalMessage)
	if worksheet.ImageUnavailable {
		fmt.Fprintln(r.stdoutWriter, "(דף העבודה נוצר ללא איור)")
	} else if path, err := r.images.Write(worksheet.ID, worksheet.Image); err == nil && path != "" {
		fmt.Fprintf(r.stdoutWriter, "[illustration: %s]\n", path)
	}
	return nil
}
