package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"sam-chat-be/internal/dto"
	"sam-chat-be/internal/entity"
	"sam-chat-be/internal/metrics"
	"sam-chat-be/internal/pkg/logger"
	"sam-chat-be/internal/pkg/serverutils"
	"sam-chat-be/internal/repository/memory"
	"sam-chat-be/internal/service"
	"sam-chat-be/pkg/ai/mode"
	"sam-chat-be/pkg/llm/llmtest"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	app      *fiber.App
	client   *llmtest.FakeClient
	sessions service.ISessionService
}

func newTestApp(t *testing.T, scripts ...llmtest.Script) *testApp {
	t.Helper()
	log := logger.NewNopLogger()
	store := memory.NewKeyValueRepository()
	registry := mode.Default()
	m := metrics.New(prometheus.NewRegistry())
	client := llmtest.NewFakeClient(scripts...)

	sessions := service.NewSessionService(store, nil, log, service.SessionOptions{DefaultModel: registry.DefaultModel().Id})
	settings := service.NewSettingsService(store, log)
	essays := service.NewEssayService(client, registry, settings, "pro", nil, log, m)
	chat := service.NewChatService(context.Background(), sessions, settings, essays, registry, client,
		service.ModelNames{Fast: "fast", Pro: "pro"}, nil, m, log)
	t.Cleanup(chat.Shutdown)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewChatController(chat, sessions, settings).RegisterRoutes(app.Group("/api"))

	return &testApp{app: app, client: client, sessions: sessions}
}

func (a *testApp) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) serverutils.BaseResponse[T] {
	t.Helper()
	var res serverutils.BaseResponse[T]
	require.NoError(t, json.Unmarshal(data, &res))
	return res
}

func TestChatController_SendAndWait(t *testing.T) {
	a := newTestApp(t, llmtest.Reply("Hola", "!"))

	code, body := a.do(t, "POST", "/api/chat/v1/messages", `{"text":"Hello","wait":true}`)
	require.Equal(t, fiber.StatusAccepted, code, string(body))

	res := decode[dto.SendMessageResponse](t, body)
	assert.True(t, res.Success)
	assert.Equal(t, "completed", res.Data.Outcome)
	assert.NotEmpty(t, res.Data.AssistantMessageId)

	code, body = a.do(t, "GET", "/api/chat/v1/state", "")
	require.Equal(t, fiber.StatusOK, code)
	state := decode[entity.Snapshot](t, body).Data
	require.Len(t, state.Chats, 1)
	assert.Equal(t, "Hello", state.Chats[0].Title)
	require.Len(t, state.Chats[0].Messages, 2)
	assert.Equal(t, "Hola!", state.Chats[0].Messages[1].Text)
}

func TestChatController_Errors(t *testing.T) {
	a := newTestApp(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
	}{
		{name: "empty prompt", method: "POST", path: "/api/chat/v1/messages", body: `{"text":"  "}`, code: 400},
		{name: "bad attachment", method: "POST", path: "/api/chat/v1/messages", body: `{"text":"x","attachment":{"name":"a","type":"image/png","data":"nope"}}`, code: 400},
		{name: "malformed body", method: "POST", path: "/api/chat/v1/messages", body: `{`, code: 400},
		{name: "unknown mode", method: "POST", path: "/api/chat/v1/modes/teleport", code: 400},
		{name: "unknown model", method: "PUT", path: "/api/chat/v1/model", body: `{"modelId":"gpt"}`, code: 400},
		{name: "missing model id", method: "PUT", path: "/api/chat/v1/model", body: `{}`, code: 400},
		{name: "rename missing chat", method: "PUT", path: "/api/chat/v1/chats/missing", body: `{"title":"x"}`, code: 404},
		{name: "select missing chat", method: "PUT", path: "/api/chat/v1/chats/missing/select", code: 404},
		{name: "bad settings", method: "PUT", path: "/api/chat/v1/settings", body: `{"theme":"blue","personality":"default"}`, code: 400},
		{name: "essay of missing chat", method: "GET", path: "/api/chat/v1/chats/missing/messages/m/essay.md", code: 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := a.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, code, string(body))
			assert.False(t, decode[any](t, body).Success)
		})
	}
}

func TestChatController_ChatLifecycle(t *testing.T) {
	a := newTestApp(t)
	first := a.sessions.ActiveChat().Id

	code, body := a.do(t, "POST", "/api/chat/v1/chats", "")
	require.Equal(t, fiber.StatusCreated, code)
	created := decode[dto.CreateChatResponse](t, body).Data.Id
	assert.Equal(t, created, a.sessions.ActiveChat().Id)

	code, _ = a.do(t, "PUT", "/api/chat/v1/chats/"+first+"/select", "")
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, first, a.sessions.ActiveChat().Id)

	code, _ = a.do(t, "PUT", "/api/chat/v1/chats/"+first, `{"title":"Viaje"}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "Viaje", a.sessions.ActiveChat().Title)

	code, _ = a.do(t, "DELETE", "/api/chat/v1/chats/"+first, "")
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, created, a.sessions.ActiveChat().Id)
}

func TestChatController_ModesModelAndSettings(t *testing.T) {
	a := newTestApp(t)

	code, body := a.do(t, "GET", "/api/chat/v1/catalog", "")
	require.Equal(t, fiber.StatusOK, code)
	catalog := decode[dto.CatalogResponse](t, body).Data
	assert.NotEmpty(t, catalog.Modes)
	assert.Len(t, catalog.Models, 2)

	code, body = a.do(t, "POST", "/api/chat/v1/modes/essay", "")
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, mode.ActionModal, decode[mode.Mode](t, body).Data.ActionType)
	assert.Len(t, a.sessions.ActiveChat().Messages, 1)

	code, _ = a.do(t, "PUT", "/api/chat/v1/model", `{"modelId":"sm-i3"}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "sm-i3", a.sessions.Model())

	code, body = a.do(t, "PUT", "/api/chat/v1/settings", `{"theme":"light","personality":"divertido","profession":"chef"}`)
	require.Equal(t, fiber.StatusOK, code, string(body))
	assert.Equal(t, entity.PersonalityDivertido, decode[entity.Settings](t, body).Data.Personality)

	code, _ = a.do(t, "PUT", "/api/chat/v1/attachment", `{"name":"a.png","type":"image/png","data":"data:image/png;base64,AQI="}`)
	require.Equal(t, fiber.StatusOK, code)
	require.NotNil(t, a.sessions.StagedAttachment())

	code, _ = a.do(t, "DELETE", "/api/chat/v1/attachment", "")
	require.Equal(t, fiber.StatusOK, code)
	assert.Nil(t, a.sessions.StagedAttachment())
}

func TestChatController_CancelWithoutTurn(t *testing.T) {
	a := newTestApp(t)

	code, body := a.do(t, "POST", "/api/chat/v1/cancel", "")
	require.Equal(t, fiber.StatusOK, code)
	assert.False(t, decode[dto.CancelTurnResponse](t, body).Data.Canceled)
}
