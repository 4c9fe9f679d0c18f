package assets

type WorkbookPrompt struct {
	Child         Child
	Description   string
	NumExercises  int
	Subject       string
	Topic         string
	QuestionTypes []string
}

// GradedAnswer pairs a question with the expected and the submitted answer
type GradedAnswer struct {
	Question      string
	CorrectAnswer string
	Answer        string
}

type GradingPrompt struct {
	Child   Child
	Title   string
	Answers []GradedAnswer
}

func (p *Prompts) Workbook(data WorkbookPrompt) (string, error) {
	return p.render(PromptWorkbook, data)
}

func (p *Prompts) Grading(data GradingPrompt) (string, error) {
	return p.render(PromptGrading, data)
}
