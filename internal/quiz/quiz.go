// Package quiz derives teachback check questions from a task definition.
package quiz

import (
	"fmt"
	"io"

	"github.com/dgallion1/mtlgen/internal/definition"
)

// ItemType distinguishes free-form answers from ones with an expected answer.
type ItemType string

const (
	TypeOpen        ItemType = "open"
	TypeShortAnswer ItemType = "short-answer"
)

const (
	maxStepQuestions     = 5
	maxCriteriaQuestions = 3
)

// Item is one quiz question.
type Item struct {
	ID       string   `json:"id" yaml:"id"`
	Type     ItemType `json:"type" yaml:"type"`
	Question string   `json:"question" yaml:"question"`
	Answer   string   `json:"answer,omitempty" yaml:"answer,omitempty"`
}

// Generate builds open questions for the leading steps, short-answer items
// for the leading completion criteria, and one item per troubleshooting pair.
// The result is never nil.
func Generate(def *definition.TaskDefinition) []Item {
	items := []Item{}
	if def == nil {
		return items
	}

	for i, step := range def.Steps {
		if i == maxStepQuestions {
			break
		}
		items = append(items, Item{
			ID:       fmt.Sprintf("step-%d", i+1),
			Type:     TypeOpen,
			Question: fmt.Sprintf("Explain step %d in your own words: %s", i+1, step),
		})
	}

	for i, c := range def.CompletionCriteria {
		if i == maxCriteriaQuestions {
			break
		}
		items = append(items, Item{
			ID:       fmt.Sprintf("criteria-%d", i+1),
			Type:     TypeShortAnswer,
			Question: fmt.Sprintf("How do you confirm completion criterion %d?", i+1),
			Answer:   c,
		})
	}

	for i, t := range def.Troubleshooting {
		items = append(items, Item{
			ID:       fmt.Sprintf("troubleshoot-%d", i+1),
			Type:     TypeShortAnswer,
			Question: fmt.Sprintf("What do you do when: %s?", t.Problem),
			Answer:   t.Resolution,
		})
	}
	return items
}

// Write prints items as a numbered worksheet.
func Write(w io.Writer, items []Item) error {
	for i, it := range items {
		if _, err := fmt.Fprintf(w, "%d. [%s] %s\n", i+1, it.Type, it.Question); err != nil {
			return err
		}
		if it.Answer != "" {
			if _, err := fmt.Fprintf(w, "   Answer: %s\n", it.Answer); err != nil {
				return err
			}
		}
	}
	return nil
}
