package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"sam-chat-be/internal/constant"
	"sam-chat-be/internal/entity"
	"sam-chat-be/internal/metrics"
	"sam-chat-be/internal/pkg/logger"
	"sam-chat-be/pkg/ai/artifact"
	"sam-chat-be/pkg/ai/mode"
	"sam-chat-be/pkg/events"
	"sam-chat-be/pkg/llm"
)

var errEmptyOutline = errors.New("outline has no sections")

// IEssayService runs the essay composer: outline, then every section in
// order, then the references.
type IEssayService interface {
	Compose(ctx context.Context, scope *TurnScope, topic string, structure entity.EssayStructure) TurnOutcome
}

type essayService struct {
	client   llm.StreamClient
	registry *mode.Registry
	settings ISettingsService
	proModel string
	events   IEventPublisher
	logger   logger.ILogger
	metrics  *metrics.Metrics
}

func NewEssayService(
	client llm.StreamClient,
	registry *mode.Registry,
	settings ISettingsService,
	proModel string,
	eventPublisher IEventPublisher,
	log logger.ILogger,
	m *metrics.Metrics,
) IEssayService {
	return &essayService{
		client:   client,
		registry: registry,
		settings: settings,
		proModel: proModel,
		events:   eventPublisher,
		logger:   log,
		metrics:  m,
	}
}

type outlinePayload struct {
	Outline []entity.EssaySection `json:"outline"`
}

type referencesPayload struct {
	References []string `json:"references"`
}

func (s *essayService) Compose(ctx context.Context, scope *TurnScope, topic string, structure entity.EssayStructure) TurnOutcome {
	outcome, sections := s.compose(ctx, scope, topic, structure)
	s.metrics.EssayFinished(string(outcome))
	publishEvent(s.events, s.logger, events.NewEssayFinished(scope.ChatId, scope.MessageId, string(outcome), sections))
	return outcome
}

func (s *essayService) compose(ctx context.Context, scope *TurnScope, topic string, structure entity.EssayStructure) (TurnOutcome, int) {
	systemInstruction := s.registry.GenerateSystemInstruction(mode.Essay, s.settings.Get())

	// 1. Outline
	prompt := fmt.Sprintf(constant.EssayOutlinePrompt, topic)
	if structure == entity.EssayStructureClassic {
		prompt = fmt.Sprintf(constant.EssayClassicOutlinePrompt, topic)
	}
	prompt += "\n\n" + constant.EssayOutlineFormatInstruction

	res, err := s.client.Stream(ctx, &llm.StreamRequest{
		Prompt:            prompt,
		SystemInstruction: systemInstruction,
	}, func(string) {}, llm.WithModel(s.proModel))
	if scope.Token.IsCanceled() {
		return OutcomeAborted, 0
	}
	if err != nil {
		s.logger.Error("ESSAY", "Outline stream failed", map[string]interface{}{"chat_id": scope.ChatId, "error": err.Error()})
		return s.fail(scope, constant.ConnectionErrorText, true), 0
	}

	outline, err := parseOutline(res.Text)
	if err != nil {
		s.logger.Warn("ESSAY", "Outline could not be parsed", map[string]interface{}{"chat_id": scope.ChatId, "error": err.Error()})
		return s.fail(scope, constant.EssayErrorText, false), 0
	}
	outlineJSON, _ := json.Marshal(outline)

	if !scope.Update(func(m *entity.ChatMessage) {
		if m.Essay == nil {
			return
		}
		m.Essay.Outline = outline
		_ = m.Essay.Advance(entity.StageWriting(-1))
	}) {
		return OutcomeAborted, 0
	}

	// 2. Sections, strictly one after another
	sections := (&entity.Essay{Outline: outline}).Sections()
	for i, section := range sections {
		if scope.Token.IsCanceled() {
			return OutcomeAborted, 0
		}
		if !scope.Update(func(m *entity.ChatMessage) {
			if m.Essay != nil {
				_ = m.Essay.Advance(entity.StageWriting(i))
			}
		}) {
			return OutcomeAborted, 0
		}

		isReferences := i == len(sections)-1
		sectionPrompt := fmt.Sprintf(constant.EssaySectionPrompt, section.Title, topic, outlineJSON)
		if isReferences {
			sectionPrompt = fmt.Sprintf(constant.EssayReferencesPrompt, topic, outlineJSON) + "\n\n" + constant.EssayReferencesFormatInstruction
		}

		title := section.Title
		res, err := s.client.Stream(ctx, &llm.StreamRequest{
			Prompt:            sectionPrompt,
			SystemInstruction: systemInstruction,
		}, func(chunk string) {
			scope.Update(func(m *entity.ChatMessage) {
				if m.Essay != nil {
					m.Essay.AppendContent(title, chunk)
				}
			})
		}, llm.WithModel(scope.Model))
		if scope.Token.IsCanceled() {
			return OutcomeAborted, 0
		}
		if err != nil {
			s.logger.Error("ESSAY", "Section stream failed", map[string]interface{}{
				"chat_id": scope.ChatId,
				"section": title,
				"error":   err.Error(),
			})
			return s.fail(scope, constant.EssayErrorText, false), len(outline)
		}

		if isReferences {
			references := parseReferences(res.Text)
			if !scope.Update(func(m *entity.ChatMessage) {
				if m.Essay == nil {
					return
				}
				m.Essay.References = references
				_ = m.Essay.Advance(entity.StageComplete())
				m.ClearTransient()
			}) {
				return OutcomeAborted, 0
			}
		}
	}

	s.logger.Info("ESSAY", "Essay complete", map[string]interface{}{"chat_id": scope.ChatId, "sections": len(outline)})
	return OutcomeCompleted, len(outline)
}

// fail discards the essay and leaves text in the message.
func (s *essayService) fail(scope *TurnScope, text string, asSystem bool) TurnOutcome {
	if !scope.Update(func(m *entity.ChatMessage) {
		m.Text = text
		m.Essay = nil
		if asSystem {
			m.Author = constant.ChatMessageRoleSystem
		}
		m.ClearTransient()
	}) {
		return OutcomeAborted
	}
	return OutcomeErrored
}

func parseOutline(text string) ([]entity.EssaySection, error) {
	var payload outlinePayload
	if err := json.Unmarshal([]byte(artifact.ExtractJSON(text)), &payload); err != nil {
		return nil, err
	}

	outline := make([]entity.EssaySection, 0, len(payload.Outline))
	for _, section := range payload.Outline {
		section.Title = strings.TrimSpace(section.Title)
		if section.Title == "" {
			continue
		}
		if section.Points == nil {
			section.Points = []string{}
		}
		outline = append(outline, section)
	}
	if len(outline) == 0 {
		return nil, errEmptyOutline
	}
	return outline, nil
}

// parseReferences never fails: anything unreadable yields no references.
func parseReferences(text string) []string {
	var payload referencesPayload
	if err := json.Unmarshal([]byte(artifact.ExtractJSON(text)), &payload); err != nil || payload.References == nil {
		return []string{}
	}
	return payload.References
}

// EssayMarkdown renders a finished (or partial) essay as a markdown document.
func EssayMarkdown(essay *entity.Essay) string {
	var b strings.Builder
	fmt.Fprintf(&b, constant.EssayMarkdownHeading, essay.Topic)

	for _, section := range essay.Outline {
		b.WriteString("## " + section.Title + "\n\n")
		if content := strings.TrimSpace(essay.Content[section.Title]); content != "" {
			b.WriteString(content + "\n\n")
		}
	}

	if len(essay.References) > 0 {
		b.WriteString(constant.EssayMarkdownReferences)
		for _, ref := range essay.References {
			b.WriteString("- " + ref + "\n")
		}
	}
	return b.String()
}
