package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// EssayReferencesTitle is the synthetic trailing section holding the bibliography.
const EssayReferencesTitle = "References"

type EssayStatus string

const (
	EssayStatusOutlining EssayStatus = "outlining"
	EssayStatusWriting   EssayStatus = "writing"
	EssayStatusComplete  EssayStatus = "complete"
)

type EssayStructure string

const (
	EssayStructureClassic  EssayStructure = "classic"
	EssayStructureStandard EssayStructure = "standard"
)

var ErrEssayRegression = errors.New("essay stage cannot move backwards")

// EssayStage is the composer position: Outlining, Writing{section} or Complete.
// A section index of -1 means "between sections"; the index equal to
// len(Outline) addresses the synthetic References section.
type EssayStage struct {
	status  EssayStatus
	section int
}

func StageOutlining() EssayStage { return EssayStage{status: EssayStatusOutlining, section: -1} }

func StageWriting(section int) EssayStage {
	if section < 0 {
		section = -1
	}
	return EssayStage{status: EssayStatusWriting, section: section}
}

func StageComplete() EssayStage { return EssayStage{status: EssayStatusComplete, section: -1} }

func (s EssayStage) Status() EssayStatus {
	if s.status == "" {
		return EssayStatusOutlining
	}
	return s.status
}

// SectionIndex reports the section being written, if any.
func (s EssayStage) SectionIndex() (int, bool) {
	if s.Status() != EssayStatusWriting || s.section < 0 {
		return -1, false
	}
	return s.section, true
}

func (s EssayStage) rank() int {
	switch s.Status() {
	case EssayStatusWriting:
		return 1
	case EssayStatusComplete:
		return 2
	default:
		return 0
	}
}

type EssaySection struct {
	Title  string   `json:"title"`
	Points []string `json:"points"`
}

type Essay struct {
	Topic      string
	Structure  EssayStructure
	Outline    []EssaySection
	Content    map[string]string
	References []string
	Stage      EssayStage
}

func NewEssay(topic string, structure EssayStructure) *Essay {
	return &Essay{
		Topic:      topic,
		Structure:  structure,
		Outline:    []EssaySection{},
		Content:    map[string]string{},
		References: []string{},
		Stage:      StageOutlining(),
	}
}

// Sections lists the outline followed by the synthetic References section.
func (e *Essay) Sections() []EssaySection {
	out := make([]EssaySection, 0, len(e.Outline)+1)
	out = append(out, e.Outline...)
	return append(out, EssaySection{Title: EssayReferencesTitle, Points: []string{}})
}

// CurrentSection is the title of the section being streamed, or "".
func (e *Essay) CurrentSection() string {
	idx, ok := e.Stage.SectionIndex()
	if !ok {
		return ""
	}
	sections := e.Sections()
	if idx >= len(sections) {
		return ""
	}
	return sections[idx].Title
}

// Advance moves the essay to next, refusing any backward transition.
func (e *Essay) Advance(next EssayStage) error {
	cur := e.Stage
	if next.rank() < cur.rank() {
		return fmt.Errorf("%w: %s -> %s", ErrEssayRegression, cur.Status(), next.Status())
	}
	if next.rank() == cur.rank() && cur.Status() == EssayStatusWriting && next.section < cur.section {
		return fmt.Errorf("%w: section %d -> %d", ErrEssayRegression, cur.section, next.section)
	}
	e.Stage = next
	return nil
}

// Interrupt leaves an unfinished essay between sections once nothing is
// composing it anymore. Written content and the outline stay.
func (e *Essay) Interrupt() {
	if e.Stage.Status() == EssayStatusWriting {
		e.Stage = StageWriting(-1)
	}
}

func (e *Essay) AppendContent(section, chunk string) {
	if e.Content == nil {
		e.Content = map[string]string{}
	}
	e.Content[section] += chunk
}

func (e *Essay) Clone() *Essay {
	if e == nil {
		return nil
	}
	out := *e
	out.Outline = make([]EssaySection, len(e.Outline))
	for i, s := range e.Outline {
		out.Outline[i] = EssaySection{Title: s.Title, Points: slices.Clone(s.Points)}
	}
	out.Content = maps.Clone(e.Content)
	out.References = slices.Clone(e.References)
	return &out
}

type essayJSON struct {
	Topic          string            `json:"topic"`
	Structure      EssayStructure    `json:"structure,omitempty"`
	Outline        []EssaySection    `json:"outline"`
	Content        map[string]string `json:"content"`
	References     []string          `json:"references"`
	Status         EssayStatus       `json:"status"`
	CurrentSection string            `json:"currentSection,omitempty"`
}

func (e *Essay) MarshalJSON() ([]byte, error) {
	return json.Marshal(essayJSON{
		Topic:          e.Topic,
		Structure:      e.Structure,
		Outline:        e.Outline,
		Content:        e.Content,
		References:     e.References,
		Status:         e.Stage.Status(),
		CurrentSection: e.CurrentSection(),
	})
}

func (e *Essay) UnmarshalJSON(data []byte) error {
	var raw essayJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = Essay{
		Topic:      raw.Topic,
		Structure:  raw.Structure,
		Outline:    raw.Outline,
		Content:    raw.Content,
		References: raw.References,
	}
	if e.Outline == nil {
		e.Outline = []EssaySection{}
	}
	if e.Content == nil {
		e.Content = map[string]string{}
	}
	if e.References == nil {
		e.References = []string{}
	}

	switch raw.Status {
	case EssayStatusOutlining, "":
		e.Stage = StageOutlining()
	case EssayStatusComplete:
		e.Stage = StageComplete()
	case EssayStatusWriting:
		section := -1
		for i, s := range e.Sections() {
			if raw.CurrentSection != "" && s.Title == raw.CurrentSection {
				section = i
				break
			}
		}
		e.Stage = StageWriting(section)
	default:
		return fmt.Errorf("unknown essay status %q", raw.Status)
	}
	return nil
}
