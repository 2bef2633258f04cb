package serverutils

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Title string `json:"title" validate:"required"`
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/ok", func(c *fiber.Ctx) error {
		return c.JSON(SuccessResponse("fine", 1))
	})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "chat not found")
	})
	app.Get("/validation", func(c *fiber.Ctx) error {
		return ValidateRequest(sampleRequest{})
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	tests := []struct {
		path    string
		code    int
		message string
	}{
		{path: "/ok", code: 200, message: "fine"},
		{path: "/fiber", code: 404, message: "chat not found"},
		{path: "/validation", code: 400, message: "Title must satisfy required"},
		{path: "/plain", code: 500, message: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)

			var body BaseResponse[any]
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.message, body.Message)
			assert.Equal(t, tt.code == 200, body.Success)
		})
	}
}
