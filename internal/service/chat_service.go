package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"sam-chat-be/internal/constant"
	"sam-chat-be/internal/entity"
	"sam-chat-be/internal/metrics"
	"sam-chat-be/internal/pkg/logger"
	"sam-chat-be/internal/tracer"
	"sam-chat-be/pkg/ai/artifact"
	"sam-chat-be/pkg/ai/mode"
	"sam-chat-be/pkg/cancel"
	"sam-chat-be/pkg/events"
	"sam-chat-be/pkg/llm"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// IEventPublisher forwards lifecycle events to an external broker.
type IEventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type SendInput struct {
	Text       string
	Attachment *entity.Attachment // overrides the staged attachment
	Location   *llm.Location
}

// ModelNames maps the model tiers to backend model names.
type ModelNames struct {
	Fast string
	Pro  string
}

// IChatService runs conversation turns against the active chat. At most one
// turn is in flight; starting a new one cancels the previous.
type IChatService interface {
	Send(ctx context.Context, in SendInput) (*Turn, error)
	CancelCurrentTurn() bool
	ActivateMode(ctx context.Context, modeId string) (mode.Mode, error)
	SetModel(modelId string) error
	StageAttachment(a *entity.Attachment) error

	State() *entity.Snapshot
	Modes() []mode.Mode
	Models() []mode.Model
	EssayMarkdown(chatId, messageId string) (string, error)

	// Shutdown cancels the live turn and waits for every turn goroutine.
	Shutdown()
}

type inflightTurn struct {
	token     *cancel.Token
	chatId    string
	messageId string
}

type chatService struct {
	// mu serializes turn starts, cancellation and every commit of a running
	// turn, so no update lands after its token was canceled.
	mu       sync.Mutex
	inflight *inflightTurn
	wg       sync.WaitGroup

	coordinator *cancel.Coordinator
	sessions    ISessionService
	settings    ISettingsService
	essays      IEssayService
	registry    *mode.Registry
	client      llm.StreamClient
	models      ModelNames
	events      IEventPublisher
	metrics     *metrics.Metrics
	logger      logger.ILogger
}

func NewChatService(
	ctx context.Context,
	sessions ISessionService,
	settings ISettingsService,
	essays IEssayService,
	registry *mode.Registry,
	client llm.StreamClient,
	models ModelNames,
	eventPublisher IEventPublisher,
	m *metrics.Metrics,
	log logger.ILogger,
) IChatService {
	return &chatService{
		coordinator: cancel.NewCoordinator(ctx),
		sessions:    sessions,
		settings:    settings,
		essays:      essays,
		registry:    registry,
		client:      client,
		models:      models,
		events:      eventPublisher,
		metrics:     m,
		logger:      log,
	}
}

func (s *chatService) Send(ctx context.Context, in SendInput) (*Turn, error) {
	attachment := in.Attachment
	if attachment == nil {
		attachment = s.sessions.StagedAttachment()
	}
	if strings.TrimSpace(in.Text) == "" && attachment == nil {
		return nil, ErrEmptyPrompt
	}

	var decoded *llm.Attachment
	if attachment != nil {
		a, err := llm.ParseDataURL(attachment.Name, attachment.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAttachment, err)
		}
		decoded = a
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.sessions.ActiveChat()
	token, _ := s.coordinator.Begin()
	s.finalizeInflightLocked()
	s.sessions.TakeAttachment()

	history := buildHistory(chat.Messages)
	firstExchange := len(chat.Messages) < 2

	userId, err := s.sessions.AppendMessage(chat.Id, &entity.ChatMessage{
		Author:     constant.ChatMessageRoleUser,
		Text:       in.Text,
		Attachment: attachment,
	})
	if err != nil {
		s.coordinator.Release(token)
		return nil, err
	}
	s.sessions.PromoteChat(chat.Id)
	turn := newTurn(chat.Id, userId)

	if structure, ok := essayStructureFor(in.Text); ok {
		return s.askEssayTopicLocked(token, chat.Id, turn, structure)
	}
	if p := chat.Pending; p != nil && p.Kind == entity.PendingEssayTopic {
		return s.startEssayLocked(token, chat.Id, turn, strings.TrimSpace(in.Text), p)
	}

	modeId := s.sessions.Mode()
	placeholder := &entity.ChatMessage{
		Author:  constant.ChatMessageRoleAssistant,
		Mode:    modeId,
		Pending: true,
	}
	switch modeId {
	case mode.Search:
		placeholder.IsSearching = true
	case mode.CanvasDev:
		placeholder.GeneratingArtifact = true
	case mode.Math:
		placeholder.ConsoleLogs = []string{constant.MathConsoleStartLine}
	case mode.ImageGeneration:
		placeholder.Text = constant.ImagePendingText
	}

	messageId, err := s.sessions.AppendMessage(chat.Id, placeholder)
	if err != nil {
		s.coordinator.Release(token)
		return nil, err
	}
	turn.AssistantMessageId = messageId
	s.inflight = &inflightTurn{token: token, chatId: chat.Id, messageId: messageId}

	if m, ok := s.registry.Lookup(modeId); ok && m.ResetAfterSend {
		s.sessions.SetMode(mode.Normal)
	}

	scope := s.newScope(token, chat.Id, messageId)

	if modeId == mode.ImageGeneration {
		prompt := in.Text
		s.run(turn, scope, modeId, func(ctx context.Context) TurnOutcome {
			return s.generateImage(ctx, scope, prompt, decoded)
		})
		return turn, nil
	}

	req := &llm.StreamRequest{
		Prompt:            in.Text,
		SystemInstruction: s.registry.GenerateSystemInstruction(modeId, s.settings.Get()),
		History:           history,
		Attachment:        decoded,
	}
	switch modeId {
	case mode.Search:
		req.Grounding = llm.GroundingSearch
	case mode.Maps:
		req.Grounding = llm.GroundingMaps
		req.Location = in.Location
	}

	s.run(turn, scope, modeId, func(ctx context.Context) TurnOutcome {
		return s.stream(ctx, scope, req, modeId, firstExchange)
	})
	return turn, nil
}

// askEssayTopicLocked answers a structure choice with the scripted topic question.
func (s *chatService) askEssayTopicLocked(token *cancel.Token, chatId string, turn *Turn, structure entity.EssayStructure) (*Turn, error) {
	defer s.coordinator.Release(token)

	promptId, err := s.sessions.AppendMessage(chatId, &entity.ChatMessage{
		Author: constant.ChatMessageRoleAssistant,
		Text:   constant.EssayTopicQuestion,
	})
	if err != nil {
		return nil, err
	}
	s.sessions.SetPending(chatId, &entity.PendingInteraction{
		Kind:            entity.PendingEssayTopic,
		PromptMessageId: promptId,
		Structure:       structure,
	})

	turn.AssistantMessageId = promptId
	turn.finish(OutcomeScripted)
	s.metrics.TurnFinished(string(OutcomeScripted), mode.Essay)
	return turn, nil
}

// startEssayLocked consumes the user's text as the essay topic.
func (s *chatService) startEssayLocked(token *cancel.Token, chatId string, turn *Turn, topic string, pending *entity.PendingInteraction) (*Turn, error) {
	s.sessions.SetPending(chatId, nil)
	s.sessions.UpdateMessage(chatId, pending.PromptMessageId, func(m *entity.ChatMessage) {
		m.Text = fmt.Sprintf(constant.EssayStartedText, topic)
		m.Options = nil
	})

	structure := pending.Structure
	messageId, err := s.sessions.AppendMessage(chatId, &entity.ChatMessage{
		Author:  constant.ChatMessageRoleAssistant,
		Mode:    mode.Essay,
		Essay:   entity.NewEssay(topic, structure),
		Pending: true,
	})
	if err != nil {
		s.coordinator.Release(token)
		return nil, err
	}
	turn.AssistantMessageId = messageId
	s.inflight = &inflightTurn{token: token, chatId: chatId, messageId: messageId}

	scope := s.newScope(token, chatId, messageId)
	s.run(turn, scope, mode.Essay, func(ctx context.Context) TurnOutcome {
		return s.essays.Compose(ctx, scope, topic, structure)
	})
	return turn, nil
}

func (s *chatService) newScope(token *cancel.Token, chatId, messageId string) *TurnScope {
	return &TurnScope{
		Token:     token,
		ChatId:    chatId,
		MessageId: messageId,
		Model:     s.backendModel(s.sessions.Model()),
		update: func(fn func(*entity.ChatMessage)) bool {
			return s.commit(token, chatId, messageId, fn)
		},
	}
}

// commit applies fn to the turn's message unless the turn was canceled.
func (s *chatService) commit(token *cancel.Token, chatId, messageId string, fn func(*entity.ChatMessage)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token.IsCanceled() {
		return false
	}
	return s.sessions.UpdateMessage(chatId, messageId, fn)
}

// finalizeInflightLocked clears the in-flight flags of the message whose
// turn was just canceled. Partial text stays.
func (s *chatService) finalizeInflightLocked() {
	if s.inflight == nil {
		return
	}
	prev := s.inflight
	s.inflight = nil
	s.sessions.UpdateMessage(prev.chatId, prev.messageId, func(m *entity.ChatMessage) {
		m.ClearTransient()
	})
}

func (s *chatService) run(turn *Turn, scope *TurnScope, modeId string, work func(ctx context.Context) TurnOutcome) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		started := time.Now()
		ctx, span := tracer.Tracer().Start(scope.Token.Context(), "chat.turn", trace.WithAttributes(
			attribute.String("chat.id", scope.ChatId),
			attribute.String("chat.mode", modeId),
			attribute.String("llm.model", scope.Model),
		))
		publishEvent(s.events, s.logger, events.NewTurnStarted(scope.ChatId, scope.MessageId, modeId, scope.Model))

		outcome := work(ctx)

		s.mu.Lock()
		if s.inflight != nil && s.inflight.token == scope.Token {
			s.inflight = nil
		}
		s.mu.Unlock()
		s.coordinator.Release(scope.Token)

		span.SetAttributes(attribute.String("turn.outcome", string(outcome)))
		if outcome == OutcomeErrored {
			span.SetStatus(codes.Error, "turn failed")
		}
		span.End()

		elapsed := time.Since(started)
		s.metrics.TurnFinished(string(outcome), modeId)
		publishEvent(s.events, s.logger, events.NewTurnFinished(scope.ChatId, scope.MessageId, string(outcome), elapsed))
		s.logger.Info("CHAT", "Turn finished", map[string]interface{}{
			"chat_id":     scope.ChatId,
			"mode":        modeId,
			"outcome":     outcome,
			"duration_ms": elapsed.Milliseconds(),
		})

		turn.finish(outcome)
	}()
}

func (s *chatService) stream(ctx context.Context, scope *TurnScope, req *llm.StreamRequest, modeId string, firstExchange bool) TurnOutcome {
	res, err := s.client.Stream(ctx, req, func(chunk string) {
		if scope.Update(func(m *entity.ChatMessage) {
			m.Text += chunk
			m.IsSearching = false
		}) {
			s.metrics.ChunkApplied()
		}
	}, llm.WithModel(scope.Model))
	if scope.Token.IsCanceled() {
		return OutcomeAborted
	}
	if err != nil {
		s.logger.Error("CHAT", "Stream failed", map[string]interface{}{
			"chat_id": scope.ChatId,
			"mode":    modeId,
			"error":   err.Error(),
		})
		if !scope.Update(func(m *entity.ChatMessage) {
			m.Text = constant.ConnectionErrorText
			m.Author = constant.ChatMessageRoleSystem
			m.ClearTransient()
		}) {
			return OutcomeAborted
		}
		return OutcomeErrored
	}

	var artifacts []entity.Artifact
	if modeId == mode.CanvasDev {
		for _, a := range artifact.ExtractArtifacts(res.Text) {
			artifacts = append(artifacts, entity.Artifact{
				Id:       uuid.NewString(),
				Title:    a.Title,
				Filepath: a.Filepath,
				Code:     a.Code,
				Language: a.Language,
			})
		}
	}
	citations := toCitations(res.Citations)

	if !scope.Update(func(m *entity.ChatMessage) {
		m.Text = res.Text
		if len(artifacts) > 0 {
			m.Text = constant.ArtifactCreatedText
			m.Artifacts = artifacts
		}
		m.Citations = citations
		if modeId == mode.Math {
			m.ConsoleLogs = append(m.ConsoleLogs, constant.MathConsoleDoneLine)
		}
		m.ClearTransient()
	}) {
		return OutcomeAborted
	}

	if firstExchange {
		s.retitle(scope, req.Prompt)
	}
	return OutcomeCompleted
}

func (s *chatService) generateImage(ctx context.Context, scope *TurnScope, prompt string, source *llm.Attachment) TurnOutcome {
	img, err := s.client.GenerateImage(ctx, &llm.ImageRequest{Prompt: prompt, Source: source})
	if scope.Token.IsCanceled() {
		return OutcomeAborted
	}
	if err != nil {
		s.logger.Error("CHAT", "Image generation failed", map[string]interface{}{"chat_id": scope.ChatId, "error": err.Error()})
		if !scope.Update(func(m *entity.ChatMessage) {
			m.Text = constant.ImageErrorText
			m.Author = constant.ChatMessageRoleSystem
			m.ClearTransient()
		}) {
			return OutcomeAborted
		}
		return OutcomeErrored
	}

	text := constant.ImageGeneratedText
	if source != nil {
		text = constant.ImageEditedText
	}
	if !scope.Update(func(m *entity.ChatMessage) {
		m.Text = text
		m.Attachment = &entity.Attachment{Name: img.Name, Type: img.MimeType, Data: img.DataURL()}
		m.ClearTransient()
	}) {
		return OutcomeAborted
	}
	return OutcomeCompleted
}

// retitle names a chat after its first prompt while it still has the default title.
func (s *chatService) retitle(scope *TurnScope, prompt string) {
	title := DeriveTitle(prompt)
	if strings.TrimSpace(title) == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if scope.Token.IsCanceled() {
		return
	}
	chat, ok := s.sessions.Chat(scope.ChatId)
	if !ok || chat.Title != constant.DefaultChatTitle {
		return
	}
	s.sessions.RenameChat(scope.ChatId, title)
}

func (s *chatService) CancelCurrentTurn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.coordinator.Cancel(); !ok {
		return false
	}
	s.finalizeInflightLocked()
	s.logger.Info("CHAT", "Turn canceled by user", nil)
	return true
}

func (s *chatService) ActivateMode(ctx context.Context, modeId string) (mode.Mode, error) {
	m, ok := s.registry.Lookup(modeId)
	if !ok {
		return mode.Mode{}, ErrUnknownMode
	}
	chat := s.sessions.ActiveChat()

	switch m.ActionType {
	case mode.ActionModal:
		if m.Id != mode.Essay {
			break
		}
		promptId, err := s.sessions.AppendMessage(chat.Id, &entity.ChatMessage{
			Author: constant.ChatMessageRoleAssistant,
			Text:   constant.EssayStructureQuestion,
			Options: []entity.MessageOption{
				{Label: constant.EssayClassicLabel, ReplyText: constant.EssayClassicReply},
				{Label: constant.EssayStandardLabel, ReplyText: constant.EssayStandardReply},
			},
		})
		if err != nil {
			return mode.Mode{}, err
		}
		s.sessions.SetPending(chat.Id, &entity.PendingInteraction{
			Kind:            entity.PendingEssayStructure,
			PromptMessageId: promptId,
		})

	case mode.ActionModeChange:
		s.sessions.SetMode(m.Id)
		if m.Id == mode.CanvasDev {
			if _, err := s.sessions.AppendMessage(chat.Id, &entity.ChatMessage{
				Author:  constant.ChatMessageRoleAssistant,
				Text:    constant.CanvasDevPreludeText,
				Prelude: constant.CanvasDevPrelude,
			}); err != nil {
				return mode.Mode{}, err
			}
			if chat.Pending != nil {
				s.sessions.SetPending(chat.Id, nil)
			}
		}
	}

	s.logger.Info("CHAT", "Mode activated", map[string]interface{}{"mode": m.Id, "action": m.ActionType})
	return m, nil
}

func (s *chatService) SetModel(modelId string) error {
	if _, ok := s.registry.Model(modelId); !ok {
		return ErrUnknownModel
	}
	s.sessions.SetModel(modelId)
	return nil
}

// StageAttachment validates and stages a for the next send. nil clears it.
func (s *chatService) StageAttachment(a *entity.Attachment) error {
	if a != nil {
		if _, err := llm.ParseDataURL(a.Name, a.Data); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAttachment, err)
		}
	}
	s.sessions.StageAttachment(a)
	return nil
}

func (s *chatService) State() *entity.Snapshot {
	return &entity.Snapshot{
		Chats:        s.sessions.Chats(),
		ActiveChatId: s.sessions.ActiveChat().Id,
		InFlight:     s.coordinator.Busy(),
		Mode:         s.sessions.Mode(),
		Model:        s.sessions.Model(),
	}
}

func (s *chatService) Modes() []mode.Mode {
	return s.registry.Modes()
}

func (s *chatService) Models() []mode.Model {
	return s.registry.Models()
}

func (s *chatService) EssayMarkdown(chatId, messageId string) (string, error) {
	chat, ok := s.sessions.Chat(chatId)
	if !ok {
		return "", ErrChatNotFound
	}
	msg := chat.FindMessage(messageId)
	if msg == nil {
		return "", ErrMessageNotFound
	}
	if msg.Essay == nil {
		return "", ErrNoEssay
	}
	return EssayMarkdown(msg.Essay), nil
}

func (s *chatService) Shutdown() {
	s.CancelCurrentTurn()
	s.wg.Wait()
}

func (s *chatService) backendModel(modelId string) string {
	m, ok := s.registry.Model(modelId)
	if !ok {
		m = s.registry.DefaultModel()
	}
	if m.Tier == mode.TierPro {
		return s.models.Pro
	}
	return s.models.Fast
}

// DeriveTitle shortens a first prompt into a chat title. The prompt is kept
// as typed; only its length is capped.
func DeriveTitle(prompt string) string {
	runes := []rune(prompt)
	if len(runes) <= constant.ChatTitleMaxLength {
		return prompt
	}
	return string(runes[:constant.ChatTitleMaxLength]) + constant.ChatTitleEllipsis
}

// buildHistory keeps the user and assistant messages a backend should see.
func buildHistory(messages []*entity.ChatMessage) []llm.Message {
	history := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		if m.Prelude != "" || m.Essay != nil {
			continue
		}
		if m.Author != constant.ChatMessageRoleUser && m.Author != constant.ChatMessageRoleAssistant {
			continue
		}
		h := llm.Message{Role: m.Author, Content: m.Text}
		if m.Attachment != nil {
			if a, err := llm.ParseDataURL(m.Attachment.Name, m.Attachment.Data); err == nil {
				h.Attachment = a
			}
		}
		history = append(history, h)
	}
	return history
}

func essayStructureFor(text string) (entity.EssayStructure, bool) {
	switch text {
	case constant.EssayClassicReply:
		return entity.EssayStructureClassic, true
	case constant.EssayStandardReply:
		return entity.EssayStructureStandard, true
	default:
		return "", false
	}
}

func toCitations(in []llm.Citation) []entity.ChatCitation {
	if len(in) == 0 {
		return nil
	}
	out := make([]entity.ChatCitation, 0, len(in))
	for _, c := range in {
		kind := entity.CitationWeb
		if c.Kind == string(entity.CitationPlace) {
			kind = entity.CitationPlace
		}
		out = append(out, entity.ChatCitation{Kind: kind, URI: c.URI, Title: c.Title})
	}
	return out
}

func publishEvent(p IEventPublisher, log logger.ILogger, event events.Event) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Publish(ctx, event); err != nil {
		log.Warn("EVENTS", "Failed to publish event", map[string]interface{}{"error": err.Error()})
	}
}
