package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"sam-chat-be/internal/constant"
	"sam-chat-be/internal/entity"
	"sam-chat-be/internal/pkg/logger"
	"sam-chat-be/internal/repository/contract"
	"sam-chat-be/pkg/ai/mode"
	"sam-chat-be/pkg/events"

	"github.com/google/uuid"
)

// ISessionService owns the chat collection, the active chat and the
// per-session selections (mode, model, staged attachment). Readers always get
// deep copies.
type ISessionService interface {
	Load(ctx context.Context)

	CreateChat(makeActive bool) string
	SelectChat(id string)
	RenameChat(id, title string) bool
	DeleteChat(id string)
	PromoteChat(id string)
	SetPending(chatId string, pending *entity.PendingInteraction) bool

	AppendMessage(chatId string, msg *entity.ChatMessage) (string, error)
	UpdateMessage(chatId, messageId string, fn func(*entity.ChatMessage)) bool

	SetMode(modeId string)
	SetModel(modelId string)
	StageAttachment(a *entity.Attachment)
	TakeAttachment() *entity.Attachment

	Chat(id string) (*entity.ChatSession, bool)
	ActiveChat() *entity.ChatSession
	Chats() []*entity.ChatSession
	Mode() string
	Model() string
	StagedAttachment() *entity.Attachment
}

type SessionOptions struct {
	EphemeralOnLaunch bool
	DefaultModel      string
}

type sessionService struct {
	mu       sync.RWMutex
	chats    []*entity.ChatSession
	activeId string
	mode     string
	model    string
	staged   *entity.Attachment

	store     contract.KeyValueRepository
	publisher IPublisherService
	logger    logger.ILogger
	opts      SessionOptions
	now       func() time.Time
}

func NewSessionService(
	store contract.KeyValueRepository,
	publisher IPublisherService,
	log logger.ILogger,
	opts SessionOptions,
) ISessionService {
	s := &sessionService{
		store:     store,
		publisher: publisher,
		logger:    log,
		opts:      opts,
		mode:      mode.Normal,
		model:     opts.DefaultModel,
		now:       time.Now,
	}
	first := s.newChat(false)
	s.chats = []*entity.ChatSession{first}
	s.activeId = first.Id
	return s
}

type sessionChange struct {
	Reason string `json:"reason"`
	ChatId string `json:"chat_id,omitempty"`
}

func (s *sessionService) newChat(temporary bool) *entity.ChatSession {
	return &entity.ChatSession{
		Id:          uuid.NewString(),
		Title:       constant.DefaultChatTitle,
		Messages:    []*entity.ChatMessage{},
		IsTemporary: temporary,
		CreatedAt:   s.now(),
	}
}

func (s *sessionService) findLocked(id string) (int, *entity.ChatSession) {
	for i, c := range s.chats {
		if c.Id == id {
			return i, c
		}
	}
	return -1, nil
}

// Load restores the persisted collection. Absent, corrupt or empty data
// yields a single fresh chat.
func (s *sessionService) Load(ctx context.Context) {
	loaded := s.readChats(ctx)

	s.mu.Lock()
	var kept []*entity.ChatSession
	for _, c := range loaded {
		if c != nil && c.Id != "" && !c.IsTemporary {
			if c.Messages == nil {
				c.Messages = []*entity.ChatMessage{}
			}
			settleRestored(c)
			kept = append(kept, c)
		}
	}

	switch {
	case len(kept) == 0:
		first := s.newChat(false)
		s.chats = []*entity.ChatSession{first}
		s.activeId = first.Id
	case s.opts.EphemeralOnLaunch:
		tmp := s.newChat(true)
		s.chats = append([]*entity.ChatSession{tmp}, kept...)
		s.activeId = tmp.Id
	default:
		s.chats = kept
		s.activeId = kept[0].Id
		if saved, found, err := s.store.Get(ctx, constant.StoreKeyActiveChatID); err == nil && found {
			if _, c := s.findLocked(saved); c != nil {
				s.activeId = saved
			}
		}
	}
	s.mode = mode.Normal
	s.staged = nil
	s.persistLocked()
	s.mu.Unlock()

	s.logger.Info("SESSION", "Session loaded", map[string]interface{}{"chats": len(kept), "active_chat_id": s.activeId})
	s.notify("loaded", "")
}

// settleRestored finalizes messages whose turn died with the previous
// process: no token exists that could still complete them.
func settleRestored(c *entity.ChatSession) {
	messages := c.Messages[:0]
	for _, m := range c.Messages {
		if m == nil {
			continue
		}
		m.ClearTransient()
		if m.Essay != nil {
			m.Essay.Interrupt()
		}
		messages = append(messages, m)
	}
	c.Messages = messages
}

func (s *sessionService) readChats(ctx context.Context) []*entity.ChatSession {
	raw, found, err := s.store.Get(ctx, constant.StoreKeyChats)
	if err != nil {
		s.logger.Warn("SESSION", "Failed to read chats, starting fresh", map[string]interface{}{"error": err.Error()})
		return nil
	}
	if !found || raw == "" {
		return nil
	}
	var chats []*entity.ChatSession
	if err := json.Unmarshal([]byte(raw), &chats); err != nil {
		s.logger.Warn("SESSION", "Discarding corrupt chat collection", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return chats
}

// persistLocked writes the collection minus empty temporary chats, then the
// active id. Failures are logged and otherwise ignored.
func (s *sessionService) persistLocked() {
	ctx := context.Background()

	toSave := make([]*entity.ChatSession, 0, len(s.chats))
	for _, c := range s.chats {
		if c.IsTemporary && len(c.Messages) == 0 {
			continue
		}
		toSave = append(toSave, c)
	}

	if len(toSave) == 0 {
		if err := s.store.Remove(ctx, constant.StoreKeyChats); err != nil {
			s.logger.Warn("SESSION", "Failed to clear persisted chats", map[string]interface{}{"error": err.Error()})
		}
	} else if data, err := json.Marshal(toSave); err != nil {
		s.logger.Warn("SESSION", "Failed to encode chats", map[string]interface{}{"error": err.Error()})
	} else if err := s.store.Set(ctx, constant.StoreKeyChats, string(data)); err != nil {
		s.logger.Warn("SESSION", "Failed to persist chats", map[string]interface{}{"error": err.Error()})
	}

	if s.activeId != "" {
		if err := s.store.Set(ctx, constant.StoreKeyActiveChatID, s.activeId); err != nil {
			s.logger.Warn("SESSION", "Failed to persist active chat id", map[string]interface{}{"error": err.Error()})
		}
	}
}

// notify must be called without s.mu held.
func (s *sessionService) notify(reason, chatId string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.Background(), events.TopicSessionChanged, sessionChange{Reason: reason, ChatId: chatId}); err != nil {
		s.logger.Warn("SESSION", "Failed to publish session change", map[string]interface{}{"error": err.Error()})
	}
}

func (s *sessionService) CreateChat(makeActive bool) string {
	s.mu.Lock()
	c := s.newChat(false)
	s.chats = append([]*entity.ChatSession{c}, s.chats...)
	if makeActive {
		s.activeId = c.Id
		s.mode = mode.Normal
		s.staged = nil
	}
	s.persistLocked()
	s.mu.Unlock()

	s.notify("chat_created", c.Id)
	return c.Id
}

func (s *sessionService) SelectChat(id string) {
	s.mu.Lock()
	if _, c := s.findLocked(id); c == nil || s.activeId == id {
		s.mu.Unlock()
		return
	}
	s.activeId = id
	s.persistLocked()
	s.mu.Unlock()

	s.notify("chat_selected", id)
}

func (s *sessionService) RenameChat(id, title string) bool {
	s.mu.Lock()
	_, c := s.findLocked(id)
	if c == nil {
		s.mu.Unlock()
		return false
	}
	c.Title = title
	s.persistLocked()
	s.mu.Unlock()

	s.notify("chat_renamed", id)
	return true
}

// DeleteChat removes the chat. The collection is never left empty, and
// deleting the active chat selects the first remaining one.
func (s *sessionService) DeleteChat(id string) {
	s.mu.Lock()
	i, c := s.findLocked(id)
	if c == nil {
		s.mu.Unlock()
		return
	}
	s.chats = append(s.chats[:i:i], s.chats[i+1:]...)
	if len(s.chats) == 0 {
		s.chats = []*entity.ChatSession{s.newChat(false)}
	}
	if s.activeId == id {
		s.activeId = s.chats[0].Id
	}
	s.persistLocked()
	s.mu.Unlock()

	s.notify("chat_deleted", id)
}

// PromoteChat turns a temporary chat into a regular one.
func (s *sessionService) PromoteChat(id string) {
	s.mu.Lock()
	_, c := s.findLocked(id)
	if c == nil || !c.IsTemporary {
		s.mu.Unlock()
		return
	}
	c.IsTemporary = false
	s.persistLocked()
	s.mu.Unlock()

	s.notify("chat_promoted", id)
}

func (s *sessionService) SetPending(chatId string, pending *entity.PendingInteraction) bool {
	s.mu.Lock()
	_, c := s.findLocked(chatId)
	if c == nil {
		s.mu.Unlock()
		return false
	}
	c.Pending = pending
	s.persistLocked()
	s.mu.Unlock()

	s.notify("chat_pending", chatId)
	return true
}

func (s *sessionService) AppendMessage(chatId string, msg *entity.ChatMessage) (string, error) {
	s.mu.Lock()
	_, c := s.findLocked(chatId)
	if c == nil {
		s.mu.Unlock()
		return "", ErrChatNotFound
	}
	stored := msg.Clone()
	stored.Id = uuid.NewString()
	if stored.Timestamp == 0 {
		stored.Timestamp = s.now().UnixMilli()
	}
	c.Messages = append(c.Messages, stored)
	s.persistLocked()
	s.mu.Unlock()

	s.notify("message_appended", chatId)
	return stored.Id, nil
}

// UpdateMessage applies fn to the stored message in place. It returns false
// when the chat or message no longer exists.
func (s *sessionService) UpdateMessage(chatId, messageId string, fn func(*entity.ChatMessage)) bool {
	s.mu.Lock()
	_, c := s.findLocked(chatId)
	if c == nil {
		s.mu.Unlock()
		return false
	}
	m := c.FindMessage(messageId)
	if m == nil {
		s.mu.Unlock()
		return false
	}
	fn(m)
	s.persistLocked()
	s.mu.Unlock()

	s.notify("message_updated", chatId)
	return true
}

func (s *sessionService) SetMode(modeId string) {
	s.mu.Lock()
	changed := s.mode != modeId
	s.mode = modeId
	s.mu.Unlock()

	if changed {
		s.notify("mode_changed", "")
	}
}

func (s *sessionService) SetModel(modelId string) {
	s.mu.Lock()
	changed := s.model != modelId
	s.model = modelId
	s.mu.Unlock()

	if changed {
		s.notify("model_changed", "")
	}
}

func (s *sessionService) StageAttachment(a *entity.Attachment) {
	s.mu.Lock()
	if a != nil {
		cp := *a
		a = &cp
	}
	s.staged = a
	s.mu.Unlock()

	s.notify("attachment_staged", "")
}

func (s *sessionService) TakeAttachment() *entity.Attachment {
	s.mu.Lock()
	a := s.staged
	s.staged = nil
	s.mu.Unlock()

	if a != nil {
		s.notify("attachment_taken", "")
	}
	return a
}

func (s *sessionService) Chat(id string) (*entity.ChatSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, c := s.findLocked(id)
	if c == nil {
		return nil, false
	}
	return c.Clone(), true
}

func (s *sessionService) ActiveChat() *entity.ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, c := s.findLocked(s.activeId)
	return c.Clone()
}

func (s *sessionService) Chats() []*entity.ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*entity.ChatSession, len(s.chats))
	for i, c := range s.chats {
		out[i] = c.Clone()
	}
	return out
}

func (s *sessionService) Mode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *sessionService) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

func (s *sessionService) StagedAttachment() *entity.Attachment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.staged == nil {
		return nil
	}
	cp := *s.staged
	return &cp
}
