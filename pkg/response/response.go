package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-admin-api/internal/models"
	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

// MetaRedirect is the meta key carrying the client-side redirect hint.
const MetaRedirect = "redirect"

// Envelope represents the common response contract.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// RedirectError pairs a typed error with the page the client should return to.
type RedirectError struct {
	Err      *appErrors.Error
	Location string
}

func (e *RedirectError) Error() string { return e.Err.Error() }

func (e *RedirectError) Unwrap() error { return e.Err }

// WithRedirect attaches a redirect hint to err.
func WithRedirect(err *appErrors.Error, location string) error {
	return &RedirectError{Err: err, Location: location}
}

// RedirectOf returns the redirect hint carried by err, if any.
func RedirectOf(err error) string {
	var redirect *RedirectError
	if errors.As(err, &redirect) {
		return redirect.Location
	}
	return ""
}

// JSON sends a success response with optional pagination metadata.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	noStore(c)
	envelope := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && len(meta[0]) > 0 {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}, meta ...map[string]interface{}) {
	JSON(c, http.StatusCreated, data, nil, meta...)
}

// Error sends an error response converting the error to the common structure.
// Redirect hints travel in meta so clients can keep the dashboard flow.
func Error(c *gin.Context, err error) {
	noStore(c)
	envelope := Envelope{}
	var redirect *RedirectError
	if errors.As(err, &redirect) {
		envelope.Error = redirect.Err
		envelope.Meta = map[string]interface{}{MetaRedirect: redirect.Location}
	} else {
		envelope.Error = appErrors.FromError(err)
	}
	c.JSON(envelope.Error.Status, envelope)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
