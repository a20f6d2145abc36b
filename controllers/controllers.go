package controllers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"skillforge/config"
	"skillforge/utils"
)

var validate = validator.New()

// currentUserID prefers the id stored by the auth middleware and falls
// back to parsing the token directly.
func currentUserID(c *fiber.Ctx, cfg *config.Config) (uint, error) {
	if id, ok := c.Locals("userID").(uint); ok {
		return id, nil
	}
	return utils.ExtractUserIDFromToken(c, cfg)
}

// validationDetails flattens validator errors into a field -> rule map
// for the response envelope.
func validationDetails(err error) map[string]string {
	details := make(map[string]string)
	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range errs {
			details[fe.Field()] = fe.Tag()
		}
	}
	return details
}
