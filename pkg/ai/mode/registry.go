// Package mode holds the static table of chat modes and selectable models,
// and builds the system instruction for a turn.
package mode

import (
	_ "embed"
	"fmt"

	"sam-chat-be/internal/entity"

	"gopkg.in/yaml.v3"
)

//go:embed modes.yaml
var embeddedModes []byte

const (
	Normal          = "normal"
	Math            = "math"
	CanvasDev       = "canvasdev"
	Essay           = "essay"
	Search          = "search"
	Maps            = "maps"
	ImageGeneration = "image_generation"
	Image           = "image"
	Document        = "document"
	Guide           = "guide"
)

type ActionType string

const (
	ActionModeChange ActionType = "mode_change"
	ActionModal      ActionType = "modal"
	ActionFileUpload ActionType = "file_upload"
	ActionCapture    ActionType = "capture"
)

type Mode struct {
	Id             string     `yaml:"id" json:"id"`
	Title          string     `yaml:"title" json:"title"`
	Description    string     `yaml:"description" json:"description"`
	ActionType     ActionType `yaml:"action_type" json:"actionType"`
	Requires       string     `yaml:"requires" json:"requires,omitempty"`
	Accept         string     `yaml:"accept" json:"accept,omitempty"`
	Capture        string     `yaml:"capture" json:"capture,omitempty"`
	Hidden         bool       `yaml:"hidden" json:"-"`
	ResetAfterSend bool       `yaml:"reset_after_send" json:"-"`
	Instruction    string     `yaml:"instruction" json:"-"`
}

// Tier selects the concrete backend model.
type Tier string

const (
	TierFast Tier = "fast"
	TierPro  Tier = "pro"
)

type Model struct {
	Id      string `yaml:"id" json:"id"`
	Name    string `yaml:"name" json:"name"`
	Tier    Tier   `yaml:"tier" json:"tier"`
	Default bool   `yaml:"default" json:"default"`
}

type table struct {
	Modes  []Mode  `yaml:"modes"`
	Models []Model `yaml:"models"`
}

type Registry struct {
	modes  []Mode
	byId   map[string]Mode
	models []Model
}

// Load parses a registry table. The table must define the normal mode and at
// least one model.
func Load(data []byte) (*Registry, error) {
	var t table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse mode table: %w", err)
	}

	r := &Registry{byId: make(map[string]Mode, len(t.Modes)), models: t.Models}
	for _, m := range t.Modes {
		if m.Id == "" {
			return nil, fmt.Errorf("mode without id")
		}
		if _, dup := r.byId[m.Id]; dup {
			return nil, fmt.Errorf("duplicate mode %q", m.Id)
		}
		r.byId[m.Id] = m
		r.modes = append(r.modes, m)
	}
	if _, ok := r.byId[Normal]; !ok {
		return nil, fmt.Errorf("mode table has no %q mode", Normal)
	}
	if len(r.models) == 0 {
		return nil, fmt.Errorf("mode table has no models")
	}
	return r, nil
}

// Default returns the registry compiled into the binary.
func Default() *Registry {
	r, err := Load(embeddedModes)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Lookup(id string) (Mode, bool) {
	m, ok := r.byId[id]
	return m, ok
}

// Modes returns the user-selectable modes in display order.
func (r *Registry) Modes() []Mode {
	out := make([]Mode, 0, len(r.modes))
	for _, m := range r.modes {
		if !m.Hidden {
			out = append(out, m)
		}
	}
	return out
}

func (r *Registry) Models() []Model {
	return append([]Model(nil), r.models...)
}

func (r *Registry) Model(id string) (Model, bool) {
	for _, m := range r.models {
		if m.Id == id {
			return m, true
		}
	}
	return Model{}, false
}

func (r *Registry) DefaultModel() Model {
	for _, m := range r.models {
		if m.Default {
			return m
		}
	}
	return r.models[0]
}

const (
	creatorClause       = " You were created by Samuel Casseres. If asked about your creator or origin, you must state this fact."
	toneDirective       = " IMPORTANT: Adopt a %s tone in your responses."
	professionDirective = " Tailor your explanations and examples to be highly relevant for a %s."
)

// GenerateSystemInstruction composes the base instruction of modeId (normal
// when unknown or empty) with the creator clause and the persona directives
// derived from settings.
func (r *Registry) GenerateSystemInstruction(modeId string, settings entity.Settings) string {
	instruction := r.byId[Normal].Instruction
	if m, ok := r.byId[modeId]; ok && m.Instruction != "" {
		instruction = m.Instruction
	}

	instruction += creatorClause

	if settings.Personality != "" && settings.Personality != entity.PersonalityDefault {
		instruction += fmt.Sprintf(toneDirective, settings.Personality)
	}
	if settings.Profession != "" {
		instruction += fmt.Sprintf(professionDirective, settings.Profession)
	}
	return instruction
}
