package serverutils

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"legal-research-be/pkg/retrieval"
)

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func SuccessResponse(message string, data interface{}) Response {
	return Response{
		Success: true,
		Message: message,
		Data:    data,
	}
}

var validate = validator.New()

func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// ErrorHandlerMiddleware converts errors into consistent JSON responses.
// Pipeline degradation sentinels map to 503: the request was valid, the
// backing services were not.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := fiber.StatusInternalServerError
		message := err.Error()

		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
		case errors.Is(err, retrieval.ErrAllLanesUnavailable),
			errors.Is(err, retrieval.ErrEmbeddingUnavailable):
			code = fiber.StatusServiceUnavailable
		case isNotFound(err):
			code = fiber.StatusNotFound
		case err.Error() == "document not deletable":
			code = fiber.StatusForbidden
		}

		return ctx.Status(code).JSON(Response{
			Success: false,
			Message: message,
		})
	}
}

func isNotFound(err error) bool {
	msg := err.Error()
	return msg == "chat session not found" || msg == "document not found"
}
