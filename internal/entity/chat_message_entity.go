package entity

import "slices"

type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"` // mime type
	Data string `json:"data"` // base64 data url
}

type Artifact struct {
	Id       string `json:"id"`
	Title    string `json:"title"`
	Filepath string `json:"filepath"`
	Code     string `json:"code"`
	Language string `json:"language"`
}

// MessageOption is a reply button; choosing it sends ReplyText as the next user message.
type MessageOption struct {
	Label     string `json:"label"`
	ReplyText string `json:"replyText"`
}

type ChatMessage struct {
	Id        string `json:"id"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // unix millis
	Mode      string `json:"mode,omitempty"`

	Attachment *Attachment     `json:"attachment,omitempty"`
	Artifacts  []Artifact      `json:"artifacts,omitempty"`
	Options    []MessageOption `json:"options,omitempty"`
	Citations  []ChatCitation  `json:"citations,omitempty"`
	Essay      *Essay          `json:"essayContent,omitempty"`

	// Prelude marks informational messages that are never sent back to the model.
	Prelude string `json:"prelude,omitempty"`

	// In-flight sub-state for rendering
	GeneratingArtifact bool     `json:"generatingArtifact,omitempty"`
	IsSearching        bool     `json:"isSearching,omitempty"`
	ConsoleLogs        []string `json:"consoleLogs,omitempty"`

	// Pending is true while the message is the placeholder of an unfinished turn.
	Pending bool `json:"pending,omitempty"`
}

// ClearTransient drops every in-flight flag, leaving the text as it is.
func (m *ChatMessage) ClearTransient() {
	m.Pending = false
	m.GeneratingArtifact = false
	m.IsSearching = false
}

func (m *ChatMessage) Clone() *ChatMessage {
	if m == nil {
		return nil
	}
	out := *m
	if m.Attachment != nil {
		a := *m.Attachment
		out.Attachment = &a
	}
	out.Artifacts = slices.Clone(m.Artifacts)
	out.Options = slices.Clone(m.Options)
	out.Citations = slices.Clone(m.Citations)
	out.ConsoleLogs = slices.Clone(m.ConsoleLogs)
	out.Essay = m.Essay.Clone()
	return &out
}
