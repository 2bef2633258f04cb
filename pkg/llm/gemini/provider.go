package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sam-chat-be/pkg/llm"

	"google.golang.org/genai"
)

const (
	ChatMessageRoleUser  = "user"
	ChatMessageRoleModel = "model"
)

type GeminiProvider struct {
	client     *genai.Client
	modelName  string
	imageModel string
}

// Ensure GeminiProvider implements StreamClient
var _ llm.StreamClient = &GeminiProvider{}

func NewGeminiProvider(ctx context.Context, apiKey, modelName, imageModel string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiProvider{client: client, modelName: modelName, imageModel: imageModel}, nil
}

func (g *GeminiProvider) Stream(ctx context.Context, req *llm.StreamRequest, onChunk func(string), opts ...llm.Option) (*llm.StreamResult, error) {
	options := llm.ApplyOptions(llm.Options{Temperature: 0.7, Model: g.modelName}, opts...)

	contents := buildContents(req)
	cfg := buildConfig(req, options)

	var (
		full      strings.Builder
		citations []llm.Citation
		seen      = map[string]bool{}
	)
	for resp, err := range g.client.Models.GenerateContentStream(ctx, options.Model, contents, cfg) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			return nil, fmt.Errorf("gemini stream: %w", err)
		}

		if chunk := resp.Text(); chunk != "" {
			full.WriteString(chunk)
			onChunk(chunk)
		}
		for _, c := range groundingCitations(resp) {
			if !seen[c.URI] {
				seen[c.URI] = true
				citations = append(citations, c)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &llm.StreamResult{Text: full.String(), Citations: citations}, nil
}

func (g *GeminiProvider) GenerateImage(ctx context.Context, req *llm.ImageRequest) (*llm.Attachment, error) {
	parts := []*genai.Part{}
	if req.Source != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Source.Data, req.Source.MimeType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	res, err := g.client.Models.GenerateContent(ctx, g.imageModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini image: %w", err)
	}

	for _, cand := range res.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil && len(p.InlineData.Data) > 0 {
				return &llm.Attachment{
					Name:     "generated-image",
					MimeType: p.InlineData.MIMEType,
					Data:     p.InlineData.Data,
				}, nil
			}
		}
	}
	return nil, errors.New("gemini image: response contained no image")
}

func buildContents(req *llm.StreamRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		role := genai.Role(ChatMessageRoleUser)
		if m.Role == "assistant" {
			role = ChatMessageRoleModel
		}
		contents = append(contents, genai.NewContentFromParts(messageParts(m.Content, m.Attachment), role))
	}
	return append(contents, genai.NewContentFromParts(messageParts(req.Prompt, req.Attachment), genai.RoleUser))
}

func messageParts(text string, a *llm.Attachment) []*genai.Part {
	parts := []*genai.Part{}
	if a != nil {
		parts = append(parts, genai.NewPartFromBytes(a.Data, a.MimeType))
	}
	if text != "" || len(parts) == 0 {
		parts = append(parts, genai.NewPartFromText(text))
	}
	return parts
}

func buildConfig(req *llm.StreamRequest, options llm.Options) *genai.GenerateContentConfig {
	temp := float32(options.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if options.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(options.MaxTokens)
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	switch req.Grounding {
	case llm.GroundingSearch:
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	case llm.GroundingMaps:
		cfg.Tools = []*genai.Tool{{GoogleMaps: &genai.GoogleMaps{}}, {GoogleSearch: &genai.GoogleSearch{}}}
		if req.Location != nil {
			cfg.ToolConfig = &genai.ToolConfig{
				RetrievalConfig: &genai.RetrievalConfig{
					LatLng: &genai.LatLng{
						Latitude:  genai.Ptr(req.Location.Latitude),
						Longitude: genai.Ptr(req.Location.Longitude),
					},
				},
			}
		}
	}
	return cfg
}

func groundingCitations(resp *genai.GenerateContentResponse) []llm.Citation {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var out []llm.Citation
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		switch {
		case chunk.Web != nil && chunk.Web.URI != "":
			out = append(out, llm.Citation{Kind: "web", URI: chunk.Web.URI, Title: chunk.Web.Title})
		case chunk.Maps != nil && chunk.Maps.URI != "":
			out = append(out, llm.Citation{Kind: "place", URI: chunk.Maps.URI, Title: chunk.Maps.Title})
		}
	}
	return out
}
