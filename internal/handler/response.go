package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jwalitptl/opd-queue/internal/model"
	apperrors "github.com/jwalitptl/opd-queue/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

func Respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, NewSuccessResponse(data))
}

// RespondError writes the envelope for err. AppErrors carry their own status
// and client message; anything else is a 500 with a generic message. The
// cause is attached to the context for the request logger.
func RespondError(c *gin.Context, err error) {
	_ = c.Error(err)
	if appErr, ok := apperrors.As(err); ok {
		c.AbortWithStatusJSON(appErr.HTTPStatus(), NewErrorResponse(appErr.Message))
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
}

// BindError reports a failed ShouldBind* as a 400 naming the offending
// fields.
func BindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		RespondError(c, apperrors.BadRequest(strings.Join(msgs, "; "), err))
		return
	}
	RespondError(c, apperrors.BadRequest("invalid request body", err))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "date":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", fe.Field())
	case "clock":
		return fmt.Sprintf("%s must be a time in HH:MM format", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// ParamUUID parses a path parameter, writing a 400 when it is malformed.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	return parseUUID(c, name, c.Param(name))
}

// QueryUUID parses a required query parameter, writing a 400 when it is
// missing or malformed.
func QueryUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	return parseUUID(c, name, c.Query(name))
}

func parseUUID(c *gin.Context, name, raw string) (uuid.UUID, bool) {
	if raw == "" {
		RespondError(c, apperrors.BadRequest(name+" is required", nil))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		RespondError(c, apperrors.BadRequest("invalid "+name, err))
		return uuid.Nil, false
	}
	return id, true
}

// QueryDate parses an optional date query parameter, falling back to
// fallback when absent.
func QueryDate(c *gin.Context, name string, fallback model.Date) (model.Date, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		RespondError(c, apperrors.BadRequest(err.Error(), err))
		return model.Date{}, false
	}
	return d, true
}

// Guard is the role check handlers attach to their write routes.
type Guard interface {
	RequireRole(roles ...string) gin.HandlerFunc
}
