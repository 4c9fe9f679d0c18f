// Package assets renders the prompt templates sent to the generative provider.
package assets

import (
	"bytes"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed templates/*.txt.go.tmpl
var fallbackTemplates embed.FS

const templateSuffix = ".txt.go.tmpl"

type PromptName string

const (
	PromptStoryOpening      PromptName = "story-opening"
	PromptStoryContinuation PromptName = "story-continuation"
	PromptStoryImage        PromptName = "story-image"
	PromptPlanStep          PromptName = "plan-step"
	PromptPlanWorksheet     PromptName = "plan-worksheet"
	PromptWorksheetImage    PromptName = "worksheet-image"
	PromptTopicSuggestions  PromptName = "topic-suggestions"
	PromptWorkbook          PromptName = "workbook"
	PromptGrading           PromptName = "grading"
)

// Prompts renders prompt templates. A file named <prompt>.txt.go.tmpl in
// directory replaces the embedded template of the same name.
type Prompts struct {
	directory string
}

func NewPrompts(directory string) *Prompts {
	return &Prompts{directory: directory}
}

func (p *Prompts) render(name PromptName, data any) (string, error) {
	fileName := string(name) + templateSuffix
	fallback, err := fallbackTemplates.ReadFile("templates/" + fileName)
	if err != nil {
		return "", fmt.Errorf("unknown prompt template %s: %w", name, err)
	}

	templatePath := ""
	if p != nil && p.directory != "" {
		templatePath = filepath.Join(p.directory, fileName)
	}
	tmpl, err := parseTemplateWithFallback(templatePath, fileName, string(fallback))
	if err != nil {
		return "", fmt.Errorf("parseTemplateWithFallback() > %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("tmpl.Execute(%s) > %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func parseTemplateWithFallback(templatePath string, fallbackName string, fallbackTemplate string) (*template.Template, error) {
	funcMap := template.FuncMap{
		"join": strings.Join,
		"inc": func(i int) int {
			return i + 1
		},
	}

	// First, try to read from the filesystem
	if templatePath != "" {
		if _, err := os.Stat(templatePath); err == nil {
			fileName := filepath.Base(templatePath)
			tmpl, err := template.New(fileName).
				Funcs(funcMap).
				ParseFiles(templatePath)
			if err == nil {
				return tmpl, nil
			}
			slog.Default().Warn("failed to parse a templatePath",
				slog.String("templatePath", templatePath),
				slog.Any("error", err),
			)
		}
	}

	tmpl, err := template.New(fallbackName).
		Funcs(funcMap).
		Parse(fallbackTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded template: %w", err)
	}
	return tmpl, nil
}

// Child is the part of a child profile that prompts are allowed to see
type Child struct {
	Name          string
	Age           int
	Gender        string
	Interests     string
	LearningGoals string
}
