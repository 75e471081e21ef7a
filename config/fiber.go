package config

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
)

func GetFiberListenAddress() string {
	return fmt.Sprintf("%s:%s", GetFiberHttpHost(), GetFiberHttpPort())
}

// GetFiberConfig sizes the body limit for full timetable uploads and answers
// framework-level errors in the handlers' response shape.
func GetFiberConfig() fiber.Config {
	return fiber.Config{
		JSONEncoder:   sonic.Marshal,
		JSONDecoder:   sonic.Unmarshal,
		ServerHeader:  "SIAPGURU",
		AppName:       GetAppName(),
		BodyLimit:     GetBodyLimit(),
		ReadTimeout:   getSeconds("HTTP_READ_TIMEOUT_SECONDS", 60),
		WriteTimeout:  getSeconds("HTTP_WRITE_TIMEOUT_SECONDS", 60),
		CaseSensitive: true,
		ErrorHandler:  errorEnvelope,
	}
}

func errorEnvelope(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"message": "Request failed",
		"error":   err.Error(),
	})
}

func GetAppName() string {
	return getEnv("APP_NAME", "SIAP GURU")
}

// GetBodyLimit reads HTTP_BODY_LIMIT_MB, defaulting to 8 MB.
func GetBodyLimit() int {
	mb, err := strconv.Atoi(getEnv("HTTP_BODY_LIMIT_MB", ""))
	if err != nil || mb <= 0 {
		mb = 8
	}
	return mb * 1024 * 1024
}

func GetFiberHttpHost() string {
	return getEnv("HTTP_HOST", "0.0.0.0")
}

func GetFiberHttpPort() string {
	return getEnv("HTTP_PORT", "8000")
}
