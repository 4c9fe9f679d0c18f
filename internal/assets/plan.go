package assets

type PlanStepPrompt struct {
	Child        Child
	Subject      string
	Topic        string
	Goal         string
	StepNumber   int
	TotalSteps   int
	CardsPerStep int
	// History holds the titles of the steps already generated
	History  []string
	Feedback string
}

type WorksheetStep struct {
	Title      string
	Activities []string
}

type WorksheetPrompt struct {
	Child   Child
	Subject string
	Topic   string
	Goal    string
	Steps   []WorksheetStep
}

type WorksheetImagePrompt struct {
	Description string
	Subject     string
}

type TopicSuggestionsPrompt struct {
	Child   Child
	Subject string
}

func (p *Prompts) PlanStep(data PlanStepPrompt) (string, error) {
	return p.render(PromptPlanStep, data)
}

func (p *Prompts) PlanWorksheet(data WorksheetPrompt) (string, error) {
	return p.render(PromptPlanWorksheet, data)
}

func (p *Prompts) WorksheetImage(data WorksheetImagePrompt) (string, error) {
	return p.render(PromptWorksheetImage, data)
}

func (p *Prompts) TopicSuggestions(data TopicSuggestionsPrompt) (string, error) {
	return p.render(PromptTopicSuggestions, data)
}
