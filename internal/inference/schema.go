package inference

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
)

type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeNumber  SchemaType = "number"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
)

// Schema is the subset of JSON schema understood by every provider
type Schema struct {
	Type        SchemaType         `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	// PropertyOrdering keeps the declared field order for providers that honor it
	PropertyOrdering []string `json:"-"`
	Items            *Schema  `json:"items,omitempty"`
	Required         []string `json:"required,omitempty"`
	Enum             []string `json:"enum,omitempty"`
}

// Validate checks that data is a JSON document satisfying the schema.
// Every violation wraps ErrGenerationFormat.
func (schema *Schema) Validate(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return fmt.Errorf("%w: json.Unmarshal > %v", ErrGenerationFormat, err)
	}
	if decoder.More() {
		return fmt.Errorf("%w: trailing data after JSON document", ErrGenerationFormat)
	}
	if err := schema.validateValue("$", value); err != nil {
		return fmt.Errorf("%w: %v", ErrGenerationFormat, err)
	}
	return nil
}

func (schema *Schema) validateValue(path string, value any) error {
	if schema == nil {
		return nil
	}
	switch schema.Type {
	case TypeObject:
		object, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected object, got %s", path, describe(value))
		}
		for _, name := range schema.Required {
			if v, ok := object[name]; !ok || v == nil {
				return fmt.Errorf("%s.%s: required property is missing", path, name)
			}
		}
		for name, property := range schema.Properties {
			v, ok := object[name]
			if !ok || v == nil {
				continue
			}
			if err := property.validateValue(path+"."+name, v); err != nil {
				return err
			}
		}
	case TypeArray:
		array, ok := value.([]any)
		if !ok {
			return fmt.Errorf("%s: expected array, got %s", path, describe(value))
		}
		for i, item := range array {
			if err := schema.Items.validateValue(path+"["+strconv.Itoa(i)+"]", item); err != nil {
				return err
			}
		}
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s: expected string, got %s", path, describe(value))
		}
		if len(schema.Enum) > 0 && !slices.Contains(schema.Enum, s) {
			return fmt.Errorf("%s: %q is not one of %v", path, s, schema.Enum)
		}
	case TypeNumber:
		n, ok := value.(json.Number)
		if !ok {
			return fmt.Errorf("%s: expected number, got %s", path, describe(value))
		}
		if _, err := n.Float64(); err != nil {
			return fmt.Errorf("%s: invalid number %s", path, n)
		}
	case TypeInteger:
		n, ok := value.(json.Number)
		if !ok {
			return fmt.Errorf("%s: expected integer, got %s", path, describe(value))
		}
		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) {
			return fmt.Errorf("%s: expected integer, got %s", path, n)
		}
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%s: expected boolean, got %s", path, describe(value))
		}
	default:
		return fmt.Errorf("%s: unsupported schema type %q", path, schema.Type)
	}
	return nil
}

func describe(value any) string {
	switch value.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func object(ordering []string, properties map[string]*Schema) *Schema {
	return &Schema{
		Type:             TypeObject,
		Properties:       properties,
		PropertyOrdering: ordering,
		Required:         ordering,
	}
}

func str(description string) *Schema {
	return &Schema{Type: TypeString, Description: description}
}

func arrayOf(description string, items *Schema) *Schema {
	return &Schema{Type: TypeArray, Description: description, Items: items}
}

// StoryPartResponse is the next story segment and the illustration to draw for it
type StoryPartResponse struct {
	Text        string `json:"text"`
	ImagePrompt string `json:"imagePrompt"`
}

func StoryPartSchema() *Schema {
	return object([]string{"text", "imagePrompt"}, map[string]*Schema{
		"text":        str("The next part of the story in Hebrew"),
		"imagePrompt": str("An English description of an illustration for this part"),
	})
}

type EducatorGuidance struct {
	Objective         string `json:"objective"`
	Tips              string `json:"tips"`
	PotentialPitfalls string `json:"potential_pitfalls"`
}

type PlanCard struct {
	LearnerActivity  string           `json:"learner_activity"`
	EducatorGuidance EducatorGuidance `json:"educator_guidance"`
}

type PlanStepResponse struct {
	StepTitle string     `json:"step_title"`
	Cards     []PlanCard `json:"cards"`
}

func PlanStepSchema(cardsPerStep int) *Schema {
	guidance := object([]string{"objective", "tips", "potential_pitfalls"}, map[string]*Schema{
		"objective":          str("What the child should achieve"),
		"tips":               str("Practical tips for the parent"),
		"potential_pitfalls": str("Common difficulties and how to handle them"),
	})
	card := object([]string{"learner_activity", "educator_guidance"}, map[string]*Schema{
		"learner_activity":  str("The activity addressed to the child"),
		"educator_guidance": guidance,
	})
	return object([]string{"step_title", "cards"}, map[string]*Schema{
		"step_title": str("A short title for this learning step"),
		"cards":      arrayOf(fmt.Sprintf("Exactly %d activity cards", cardsPerStep), card),
	})
}

type WorksheetExercise struct {
	Question string `json:"question"`
}

type WorksheetResponse struct {
	Title               string              `json:"title"`
	Introduction        string              `json:"introduction"`
	Exercises           []WorksheetExercise `json:"exercises"`
	MotivationalMessage string              `json:"motivational_message"`
	ImagePrompt         string              `json:"image_prompt"`
}

func WorksheetSchema() *Schema {
	exercise := object([]string{"question"}, map[string]*Schema{
		"question": str("A single practice question"),
	})
	return object([]string{"title", "introduction", "exercises", "motivational_message", "image_prompt"}, map[string]*Schema{
		"title":                str("Worksheet title"),
		"introduction":         str("A short introduction for the child"),
		"exercises":            arrayOf("Practice questions covering the plan", exercise),
		"motivational_message": str("An encouraging closing message"),
		"image_prompt":         str("An English description of a cover illustration"),
	})
}

type WorkbookExercise struct {
	QuestionText  string   `json:"question_text"`
	QuestionType  string   `json:"question_type"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer"`
}

type WorkbookResponse struct {
	Title        string             `json:"title"`
	Introduction string             `json:"introduction"`
	Exercises    []WorkbookExercise `json:"exercises"`
	Conclusion   string             `json:"conclusion"`
}

// Question types a workbook exercise may use
var QuestionTypes = []string{"multiple_choice", "open_ended", "fill_in_blank", "true_false"}

// WorkbookSchema describes a workbook; individual exercise fields are checked by the caller.
func WorkbookSchema(numExercises int) *Schema {
	exercise := &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"question_text":  str("The question"),
			"question_type":  {Type: TypeString, Enum: QuestionTypes},
			"options":        arrayOf("Answer options for multiple choice questions", str("")),
			"correct_answer": str("The expected answer"),
		},
		PropertyOrdering: []string{"question_text", "question_type", "options", "correct_answer"},
	}
	return object([]string{"title", "introduction", "exercises", "conclusion"}, map[string]*Schema{
		"title":        str("Workbook title"),
		"introduction": str("A short introduction for the child"),
		"exercises":    arrayOf(fmt.Sprintf("Exactly %d exercises", numExercises), exercise),
		"conclusion":   str("A closing message"),
	})
}

type GradingResponse struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

func GradingSchema() *Schema {
	return object([]string{"score", "feedback"}, map[string]*Schema{
		"score":    {Type: TypeNumber, Description: "Score between 0 and 100"},
		"feedback": str("Encouraging feedback in Hebrew"),
	})
}

type TopicSuggestion struct {
	Topic       string `json:"topic"`
	Description string `json:"description"`
}

type TopicSuggestionsResponse struct {
	Topics []TopicSuggestion `json:"topics"`
}

func TopicSuggestionsSchema() *Schema {
	topic := object([]string{"topic", "description"}, map[string]*Schema{
		"topic":       str("Topic name in Hebrew"),
		"description": str("One sentence on why it suits the child"),
	})
	return object([]string{"topics"}, map[string]*Schema{
		"topics": arrayOf("Between 3 and 6 topic ideas", topic),
	})
}
