package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/at-ishikawa/genius/internal/workbook"
)

// WorkbookCLI generates a workbook, collects the child's answers and grades them.
// A stored workbook skips the generation.
type WorkbookCLI struct {
	*InteractiveCLI
	generator *workbook.Generator
	request   workbook.Request
	workbook  *workbook.Workbook
}

func NewWorkbookCLI(generator *workbook.Generator, request workbook.Request, stored *workbook.Workbook) *WorkbookCLI {
	r := &WorkbookCLI{
		InteractiveCLI: newStdCLI(),
		generator:      generator,
		request:        request,
		workbook:       stored,
	}
	if stored != nil {
		r.printWorkbook()
	}
	return r
}

func (r *WorkbookCLI) Session(ctx context.Context) error {
	if r.workbook == nil {
		generated, err := r.generator.Generate(ctx, r.request)
		if err != nil {
			if reportErr := r.report(err); reportErr != nil {
				return reportErr
			}
			if generated == nil {
				return errEnd
			}
		}
		r.workbook = generated
		r.printWorkbook()
	}

	input, err := r.readLine("לבדוק תשובות? (y/n): ")
	if err != nil {
		return err
	}
	if input != "y" && input != "כן" {
		return errEnd
	}

	answers := make([]string, 0, len(r.workbook.Exercises))
	for i, exercise := range r.workbook.Exercises {
		answer, err := r.readLine(fmt.Sprintf("%d. %s: ", i+1, exercise.QuestionText))
		if err != nil {
			return err
		}
		answers = append(answers, answer)
	}

	grade, err := r.generator.CheckAnswers(ctx, r.workbook, answers)
	if err != nil {
		if reportErr := r.report(err); reportErr != nil {
			return reportErr
		}
		if grade == nil {
			return errEnd
		}
	}
	printer := r.success
	if grade.Score < 60 {
		printer = r.failure
	}
	_, _ = printer.Fprintf(r.stdoutWriter, "ציון: %.0f\n", grade.Score)
	fmt.Fprintln(r.stdoutWriter, grade.Feedback)
	return errEnd
}

func (r *WorkbookCLI) printWorkbook() {
	wb := r.workbook
	fmt.Fprintln(r.stdoutWriter)
	_, _ = r.bold.Fprintln(r.stdoutWriter, wb.Title)
	if wb.Introduction != "" {
		fmt.Fprintln(r.stdoutWriter, wb.Introduction)
	}
	for i, exercise := range wb.Exercises {
		fmt.Fprintf(r.stdoutWriter, "%d. %s\n", i+1, exercise.QuestionText)
		if len(exercise.Options) > 0 {
			_, _ = r.italic.Fprintf(r.stdoutWriter, "   (%s)\n", strings.Join(exercise.Options, " / "))
		}
	}
	if wb.Conclusion != "" {
		fmt.Fprintln(r.stdoutWriter, wb.Conclusion)
	}
	fmt.Fprintln(r.stdoutWriter)
}
