package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Leganyst/table-booking/internal/service"
)

// envelope: общий формат ответа API.
type envelope struct {
	Success      bool     `json:"success"`
	Data         any      `json:"data,omitempty"`
	Code         string   `json:"code,omitempty"`
	Error        string   `json:"error,omitempty"`
	Alternatives []string `json:"alternatives,omitempty"`
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func fail(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, envelope{Code: code, Error: msg})
}

// writeError переводит код ошибки ядра в HTTP-статус.
func writeError(c *gin.Context, err error) {
	code := service.CodeOf(err)

	var status int
	switch code {
	case service.CodeValidation:
		status = http.StatusBadRequest
	case service.CodeNotFound:
		status = http.StatusNotFound
	case service.CodeConflict:
		status = http.StatusConflict
	case service.CodeForbidden:
		status = http.StatusForbidden
	default:
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusServiceUnavailable {
		_ = c.Error(err)
	}

	c.AbortWithStatusJSON(status, envelope{
		Code:         string(code),
		Error:        service.MessageOf(err),
		Alternatives: service.AlternativesOf(err),
	})
}
