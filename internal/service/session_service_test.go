package service

import (
	"context"
	"encoding/json"
	"testing"

	"sam-chat-be/internal/constant"
	"sam-chat-be/internal/entity"
	"sam-chat-be/internal/pkg/logger"
	"sam-chat-be/internal/repository/contract"
	"sam-chat-be/internal/repository/memory"
	"sam-chat-be/pkg/ai/mode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(store contract.KeyValueRepository, ephemeral bool) ISessionService {
	return NewSessionService(store, nil, logger.NewNopLogger(), SessionOptions{
		EphemeralOnLaunch: ephemeral,
		DefaultModel:      "sm-i1",
	})
}

func persistedChats(t *testing.T, store contract.KeyValueRepository) []*entity.ChatSession {
	t.Helper()
	raw, found, err := store.Get(context.Background(), constant.StoreKeyChats)
	require.NoError(t, err)
	if !found {
		return nil
	}
	var chats []*entity.ChatSession
	require.NoError(t, json.Unmarshal([]byte(raw), &chats))
	return chats
}

func TestSessionService_StartsWithOneActiveChat(t *testing.T) {
	s := newTestSessions(memory.NewKeyValueRepository(), false)

	chats := s.Chats()
	require.Len(t, chats, 1)
	assert.Equal(t, chats[0].Id, s.ActiveChat().Id)
	assert.Equal(t, constant.DefaultChatTitle, chats[0].Title)
	assert.Equal(t, mode.Normal, s.Mode())
	assert.Equal(t, "sm-i1", s.Model())
}

func TestSessionService_DeleteNeverLeavesCollectionEmpty(t *testing.T) {
	s := newTestSessions(memory.NewKeyValueRepository(), false)
	only := s.ActiveChat().Id

	s.DeleteChat(only)

	chats := s.Chats()
	require.Len(t, chats, 1)
	assert.NotEqual(t, only, chats[0].Id)
	assert.Equal(t, chats[0].Id, s.ActiveChat().Id)
}

func TestSessionService_DeleteActiveSelectsFirstRemaining(t *testing.T) {
	s := newTestSessions(memory.NewKeyValueRepository(), false)
	older := s.ActiveChat().Id
	newer := s.CreateChat(true)

	s.SelectChat(older)
	s.DeleteChat(older)

	assert.Equal(t, newer, s.ActiveChat().Id)
	assert.Len(t, s.Chats(), 1)
}

func TestSessionService_CreateChatPrepends(t *testing.T) {
	s := newTestSessions(memory.NewKeyValueRepository(), false)
	first := s.ActiveChat().Id

	inactive := s.CreateChat(false)
	assert.Equal(t, first, s.ActiveChat().Id)

	chats := s.Chats()
	require.Len(t, chats, 2)
	assert.Equal(t, inactive, chats[0].Id)
}

func TestSessionService_AppendAndUpdateMessage(t *testing.T) {
	s := newTestSessions(memory.NewKeyValueRepository(), false)
	chatId := s.ActiveChat().Id

	msg := &entity.ChatMessage{Author: constant.ChatMessageRoleUser, Text: "hola"}
	id, err := s.AppendMessage(chatId, msg)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Empty(t, msg.Id, "caller's message must not be mutated")

	ok := s.UpdateMessage(chatId, id, func(m *entity.ChatMessage) { m.Text += " mundo" })
	assert.True(t, ok)

	chat, found := s.Chat(chatId)
	require.True(t, found)
	require.Len(t, chat.Messages, 1)
	assert.Equal(t, "hola mundo", chat.Messages[0].Text)
	assert.NotZero(t, chat.Messages[0].Timestamp)

	// Readers get copies.
	chat.Messages[0].Text = "changed"
	again, _ := s.Chat(chatId)
	assert.Equal(t, "hola mundo", again.Messages[0].Text)

	_, err = s.AppendMessage("missing", msg)
	assert.ErrorIs(t, err, ErrChatNotFound)
	assert.False(t, s.UpdateMessage(chatId, "missing", func(*entity.ChatMessage) {}))
}

func TestSessionService_StagedAttachmentIsTakenOnce(t *testing.T) {
	s := newTestSessions(memory.NewKeyValueRepository(), false)
	s.StageAttachment(&entity.Attachment{Name: "a.png", Type: "image/png", Data: "data:image/png;base64,AA=="})

	require.NotNil(t, s.StagedAttachment())
	assert.Equal(t, "a.png", s.TakeAttachment().Name)
	assert.Nil(t, s.TakeAttachment())
	assert.Nil(t, s.StagedAttachment())
}

func TestSessionService_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("absent data yields a fresh chat", func(t *testing.T) {
		s := newTestSessions(memory.NewKeyValueRepository(), false)
		s.Load(ctx)
		assert.Len(t, s.Chats(), 1)
	})

	t.Run("corrupt data yields a fresh chat", func(t *testing.T) {
		store := memory.NewKeyValueRepository()
		require.NoError(t, store.Set(ctx, constant.StoreKeyChats, "{not json"))

		s := newTestSessions(store, false)
		s.Load(ctx)

		chats := s.Chats()
		require.Len(t, chats, 1)
		assert.Empty(t, chats[0].Messages)
	})

	t.Run("restores collection and active chat", func(t *testing.T) {
		store := memory.NewKeyValueRepository()
		writer := newTestSessions(store, false)
		first := writer.ActiveChat().Id
		_, err := writer.AppendMessage(first, &entity.ChatMessage{Author: constant.ChatMessageRoleUser, Text: "uno"})
		require.NoError(t, err)
		second := writer.CreateChat(true)
		_, err = writer.AppendMessage(second, &entity.ChatMessage{Author: constant.ChatMessageRoleUser, Text: "dos"})
		require.NoError(t, err)
		writer.SelectChat(first)

		s := newTestSessions(store, false)
		s.Load(ctx)

		assert.Len(t, s.Chats(), 2)
		assert.Equal(t, first, s.ActiveChat().Id)
	})

	t.Run("ephemeral launch opens a temporary chat", func(t *testing.T) {
		store := memory.NewKeyValueRepository()
		writer := newTestSessions(store, false)
		kept := writer.ActiveChat().Id
		_, err := writer.AppendMessage(kept, &entity.ChatMessage{Author: constant.ChatMessageRoleUser, Text: "uno"})
		require.NoError(t, err)

		s := newTestSessions(store, true)
		s.Load(ctx)

		chats := s.Chats()
		require.Len(t, chats, 2)
		assert.True(t, chats[0].IsTemporary)
		assert.Equal(t, chats[0].Id, s.ActiveChat().Id)
		assert.Equal(t, kept, chats[1].Id)

		// Empty temporary chats are never written.
		persisted := persistedChats(t, store)
		require.Len(t, persisted, 1)
		assert.Equal(t, kept, persisted[0].Id)
	})

	t.Run("temporary chats are dropped on load", func(t *testing.T) {
		store := memory.NewKeyValueRepository()
		data, _ := json.Marshal([]*entity.ChatSession{
			{Id: "tmp", Title: "t", IsTemporary: true, Messages: []*entity.ChatMessage{{Id: "m", Text: "x"}}},
			{Id: "keep", Title: "k", Messages: []*entity.ChatMessage{}},
		})
		require.NoError(t, store.Set(ctx, constant.StoreKeyChats, string(data)))

		s := newTestSessions(store, false)
		s.Load(ctx)

		chats := s.Chats()
		require.Len(t, chats, 1)
		assert.Equal(t, "keep", chats[0].Id)
	})

	t.Run("messages of an interrupted turn are finalized", func(t *testing.T) {
		store := memory.NewKeyValueRepository()
		essay := entity.NewEssay("Tema", entity.EssayStructureClassic)
		essay.Outline = []entity.EssaySection{{Title: "Introducción", Points: []string{}}, {Title: "Conclusión", Points: []string{}}}
		require.NoError(t, essay.Advance(entity.StageWriting(1)))
		essay.AppendContent("Introducción", "Texto")

		data, _ := json.Marshal([]*entity.ChatSession{{
			Id:    "c",
			Title: "t",
			Messages: []*entity.ChatMessage{
				{Id: "u", Author: constant.ChatMessageRoleUser, Text: "busca"},
				{Id: "a", Author: constant.ChatMessageRoleAssistant, Text: "parcial", Pending: true, IsSearching: true, GeneratingArtifact: true},
				{Id: "e", Author: constant.ChatMessageRoleAssistant, Essay: essay, Pending: true},
			},
		}})
		require.NoError(t, store.Set(ctx, constant.StoreKeyChats, string(data)))

		s := newTestSessions(store, false)
		s.Load(ctx)

		chat, ok := s.Chat("c")
		require.True(t, ok)
		for _, m := range chat.Messages {
			assert.False(t, m.Pending, m.Id)
			assert.False(t, m.IsSearching, m.Id)
			assert.False(t, m.GeneratingArtifact, m.Id)
		}

		reply := chat.FindMessage("a")
		assert.Equal(t, "parcial", reply.Text)

		restored := chat.FindMessage("e").Essay
		require.NotNil(t, restored)
		assert.Equal(t, entity.EssayStatusWriting, restored.Stage.Status())
		assert.Equal(t, "", restored.CurrentSection())
		assert.Equal(t, "Texto", restored.Content["Introducción"])

		// The settled state is what gets persisted.
		persisted := persistedChats(t, store)
		require.Len(t, persisted, 1)
		for _, m := range persisted[0].Messages {
			assert.False(t, m.Pending, m.Id)
		}
	})
}

func TestSessionService_PromoteChatPersistsIt(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKeyValueRepository()
	writer := newTestSessions(store, false)
	_, err := writer.AppendMessage(writer.ActiveChat().Id, &entity.ChatMessage{Author: constant.ChatMessageRoleUser, Text: "antes"})
	require.NoError(t, err)

	s := newTestSessions(store, true)
	s.Load(ctx)
	tmp := s.ActiveChat()
	require.True(t, tmp.IsTemporary)

	_, err = s.AppendMessage(tmp.Id, &entity.ChatMessage{Author: constant.ChatMessageRoleUser, Text: "hola"})
	require.NoError(t, err)
	s.PromoteChat(tmp.Id)

	chat, _ := s.Chat(tmp.Id)
	assert.False(t, chat.IsTemporary)

	persisted := persistedChats(t, store)
	require.Len(t, persisted, 2)
	assert.Equal(t, tmp.Id, persisted[0].Id)
	assert.False(t, persisted[0].IsTemporary)
}

func TestSessionService_RenameAndPending(t *testing.T) {
	s := newTestSessions(memory.NewKeyValueRepository(), false)
	chatId := s.ActiveChat().Id

	assert.True(t, s.RenameChat(chatId, "Nuevo nombre"))
	assert.False(t, s.RenameChat("missing", "x"))

	require.True(t, s.SetPending(chatId, &entity.PendingInteraction{Kind: entity.PendingEssayTopic, PromptMessageId: "p"}))
	assert.Equal(t, entity.PendingEssayTopic, s.ActiveChat().Pending.Kind)

	s.SetPending(chatId, nil)
	chat := s.ActiveChat()
	assert.Nil(t, chat.Pending)
	assert.Equal(t, "Nuevo nombre", chat.Title)
}
