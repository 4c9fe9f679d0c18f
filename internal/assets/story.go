package assets

// StoryStyle is the style configuration chosen when the story starts
type StoryStyle struct {
	ArtStyle        string
	Genre           string
	Theme           string
	Length          string
	Complexity      string
	CharacterCount  int
	IncludeDialogue bool
	Educational     bool
}

// StoryLine is one rendered history line, "speaker: text"
type StoryLine struct {
	Speaker string
	Text    string
}

type StoryPrompt struct {
	Title   string
	Child   Child
	Style   StoryStyle
	History []StoryLine
}

type StoryImagePrompt struct {
	Description  string
	ArtStyle     string
	ChildName    string
	HasReference bool
}

// StoryOpening renders the prompt for the first part of a story
func (p *Prompts) StoryOpening(data StoryPrompt) (string, error) {
	return p.render(PromptStoryOpening, data)
}

func (p *Prompts) StoryContinuation(data StoryPrompt) (string, error) {
	return p.render(PromptStoryContinuation, data)
}

func (p *Prompts) StoryImage(data StoryImagePrompt) (string, error) {
	return p.render(PromptStoryImage, data)
}
