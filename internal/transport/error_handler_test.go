package transport

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorHandlerStatusMapping(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(zap.New(core)),
	})
	app.Get("/bad", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadRequest, "invalid category")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("unexpected")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/bad", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/boom", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}

	var warns, errs int
	for _, entry := range logs.All() {
		switch entry.Level {
		case zap.WarnLevel:
			warns++
		case zap.ErrorLevel:
			errs++
		}
	}
	if warns != 1 || errs != 1 {
		t.Fatalf("log levels = %d warn / %d error, want 1/1", warns, errs)
	}
}
