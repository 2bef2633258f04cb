package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role       string // "user", "assistant"
	Content    string
	Attachment *Attachment
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// ApplyOptions folds opts over the defaults.
func ApplyOptions(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

// Grounding selects the retrieval tools the backend may use for a request.
type Grounding string

const (
	GroundingNone   Grounding = ""
	GroundingSearch Grounding = "search"
	GroundingMaps   Grounding = "maps"
)

type Location struct {
	Latitude  float64
	Longitude float64
}

type StreamRequest struct {
	Prompt            string
	SystemInstruction string
	History           []Message
	Attachment        *Attachment
	Grounding         Grounding
	Location          *Location // only used with GroundingMaps
}

type Citation struct {
	Kind  string // "web" | "place"
	URI   string
	Title string
}

type StreamResult struct {
	Text      string
	Citations []Citation
}

type ImageRequest struct {
	Prompt string
	Source *Attachment // edit this image instead of generating from scratch
}

// StreamClient defines the contract for any content-generation backend.
type StreamClient interface {
	// Stream delivers the response incrementally through onChunk, in order,
	// and returns the full text when the stream ends. It returns ctx.Err()
	// once ctx is canceled.
	Stream(ctx context.Context, req *StreamRequest, onChunk func(string), options ...Option) (*StreamResult, error)

	// GenerateImage produces one image for the prompt.
	GenerateImage(ctx context.Context, req *ImageRequest) (*Attachment, error)
}
