package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the API response envelope. Failures always carry a machine-readable Code,
// the same codes signaling clients see in `error` frames.
type Body struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Codes for failures that do not come from the conference core.
const (
	CodeBadRequest   = "bad_request"
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeNotFound     = "not_found"
	CodeUnavailable  = "unavailable"
	CodeInternal     = "internal"
)

// OK sends 200 with data.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends 201 with data.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// Fail sends status with code and message.
func Fail(c *gin.Context, status int, code, err string) {
	if code == "" {
		code = defaultCode(status)
	}
	c.JSON(status, Body{Error: err, Code: code})
}

func defaultCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusServiceUnavailable:
		return CodeUnavailable
	}
	return CodeInternal
}

func BadRequest(c *gin.Context, err string)   { Fail(c, http.StatusBadRequest, CodeBadRequest, err) }
func Unauthorized(c *gin.Context, err string) { Fail(c, http.StatusUnauthorized, CodeUnauthorized, err) }
func Forbidden(c *gin.Context, err string)    { Fail(c, http.StatusForbidden, CodeForbidden, err) }
func NotFound(c *gin.Context, err string)     { Fail(c, http.StatusNotFound, CodeNotFound, err) }

// ServiceUnavailable sends 503, used when an optional backend (Postgres, S3) is not configured.
func ServiceUnavailable(c *gin.Context, err string) {
	Fail(c, http.StatusServiceUnavailable, CodeUnavailable, err)
}

// Internal sends 500. err must not leak internal details.
func Internal(c *gin.Context, err string) { Fail(c, http.StatusInternalServerError, CodeInternal, err) }
