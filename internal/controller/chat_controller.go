package controller

import (
	"errors"
	"fmt"

	"sam-chat-be/internal/dto"
	"sam-chat-be/internal/pkg/serverutils"
	"sam-chat-be/internal/service"
	"sam-chat-be/pkg/llm"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	State(ctx *fiber.Ctx) error
	Catalog(ctx *fiber.Ctx) error
	CreateChat(ctx *fiber.Ctx) error
	SelectChat(ctx *fiber.Ctx) error
	RenameChat(ctx *fiber.Ctx) error
	DeleteChat(ctx *fiber.Ctx) error
	Send(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	ActivateMode(ctx *fiber.Ctx) error
	SetModel(ctx *fiber.Ctx) error
	StageAttachment(ctx *fiber.Ctx) error
	ClearAttachment(ctx *fiber.Ctx) error
	ExportEssay(ctx *fiber.Ctx) error
	GetSettings(ctx *fiber.Ctx) error
	UpdateSettings(ctx *fiber.Ctx) error
}

type chatController struct {
	chat     service.IChatService
	sessions service.ISessionService
	settings service.ISettingsService
}

func NewChatController(chat service.IChatService, sessions service.ISessionService, settings service.ISettingsService) IChatController {
	return &chatController{chat: chat, sessions: sessions, settings: settings}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Get("state", c.State)
	h.Get("catalog", c.Catalog)

	h.Post("chats", c.CreateChat)
	h.Put("chats/:id/select", c.SelectChat)
	h.Put("chats/:id", c.RenameChat)
	h.Delete("chats/:id", c.DeleteChat)
	h.Get("chats/:id/messages/:messageId/essay.md", c.ExportEssay)

	h.Post("messages", c.Send)
	h.Post("cancel", c.Cancel)
	h.Post("modes/:id", c.ActivateMode)
	h.Put("model", c.SetModel)
	h.Put("attachment", c.StageAttachment)
	h.Delete("attachment", c.ClearAttachment)

	h.Get("settings", c.GetSettings)
	h.Put("settings", c.UpdateSettings)
}

// httpError maps domain errors to status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, service.ErrChatNotFound),
		errors.Is(err, service.ErrMessageNotFound),
		errors.Is(err, service.ErrNoEssay):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrEmptyPrompt),
		errors.Is(err, service.ErrUnknownMode),
		errors.Is(err, service.ErrUnknownModel),
		errors.Is(err, service.ErrInvalidAttachment),
		errors.Is(err, service.ErrInvalidSettings):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return err
}

func (c *chatController) requireChat(id string) error {
	if _, ok := c.sessions.Chat(id); !ok {
		return httpError(service.ErrChatNotFound)
	}
	return nil
}

func (c *chatController) State(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get state", c.chat.State()))
}

func (c *chatController) Catalog(ctx *fiber.Ctx) error {
	res := dto.CatalogResponse{Modes: c.chat.Modes(), Models: c.chat.Models()}
	return ctx.JSON(serverutils.SuccessResponse("Success get catalog", res))
}

func (c *chatController) CreateChat(ctx *fiber.Ctx) error {
	id := c.sessions.CreateChat(true)
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create chat", dto.CreateChatResponse{Id: id}))
}

func (c *chatController) SelectChat(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	if err := c.requireChat(id); err != nil {
		return err
	}
	c.sessions.SelectChat(id)
	return ctx.JSON(serverutils.SuccessResponse[any]("Success select chat", nil))
}

func (c *chatController) RenameChat(ctx *fiber.Ctx) error {
	var req dto.RenameChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if !c.sessions.RenameChat(ctx.Params("id"), req.Title) {
		return httpError(service.ErrChatNotFound)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success rename chat", nil))
}

func (c *chatController) DeleteChat(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	if err := c.requireChat(id); err != nil {
		return err
	}
	c.sessions.DeleteChat(id)
	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete chat", nil))
}

func (c *chatController) Send(ctx *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	in := service.SendInput{Text: req.Text, Attachment: req.Attachment.ToEntity()}
	if req.Location != nil {
		in.Location = &llm.Location{Latitude: req.Location.Latitude, Longitude: req.Location.Longitude}
	}

	turn, err := c.chat.Send(ctx.UserContext(), in)
	if err != nil {
		return httpError(err)
	}

	res := dto.SendMessageResponse{
		ChatId:             turn.ChatId,
		UserMessageId:      turn.UserMessageId,
		AssistantMessageId: turn.AssistantMessageId,
		Outcome:            string(turn.Outcome()),
	}
	if req.Wait {
		outcome, err := turn.Wait(ctx.UserContext())
		if err != nil {
			return err
		}
		res.Outcome = string(outcome)
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Success send message", res))
}

func (c *chatController) Cancel(ctx *fiber.Ctx) error {
	res := dto.CancelTurnResponse{Canceled: c.chat.CancelCurrentTurn()}
	return ctx.JSON(serverutils.SuccessResponse("Success cancel turn", res))
}

func (c *chatController) ActivateMode(ctx *fiber.Ctx) error {
	m, err := c.chat.ActivateMode(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success activate mode", m))
}

func (c *chatController) SetModel(ctx *fiber.Ctx) error {
	var req dto.SetModelRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.chat.SetModel(req.ModelId); err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success set model", nil))
}

func (c *chatController) StageAttachment(ctx *fiber.Ctx) error {
	var req dto.AttachmentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.chat.StageAttachment(req.ToEntity()); err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success stage attachment", nil))
}

func (c *chatController) ClearAttachment(ctx *fiber.Ctx) error {
	if err := c.chat.StageAttachment(nil); err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success clear attachment", nil))
}

func (c *chatController) ExportEssay(ctx *fiber.Ctx) error {
	markdown, err := c.chat.EssayMarkdown(ctx.Params("id"), ctx.Params("messageId"))
	if err != nil {
		return httpError(err)
	}

	ctx.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="ensayo-%s.md"`, ctx.Params("messageId")))
	return ctx.SendString(markdown)
}

func (c *chatController) GetSettings(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get settings", c.settings.Get()))
}

func (c *chatController) UpdateSettings(ctx *fiber.Ctx) error {
	var req dto.UpdateSettingsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.settings.Update(ctx.UserContext(), req.ToEntity())
	if err != nil {
		return httpError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success update settings", res))
}
