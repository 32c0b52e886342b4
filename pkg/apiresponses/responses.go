/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package apiresponses

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIError represents a standardized error response.
// This ensures consistent error message formatting across all API endpoints.
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	// Fields lists the offending input values, e.g. rejected addresses.
	Fields []string `json:"fields,omitempty"`
}

// RespondBadRequest sends a 400 Bad Request response.
// Use this for client errors like malformed JSON or invalid parameters.
func RespondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, APIError{
		Error: message,
		Code:  "BAD_REQUEST",
	})
}

// RespondBadRequestWithDetails sends a 400 Bad Request with additional details.
func RespondBadRequestWithDetails(c *gin.Context, message, details string) {
	c.JSON(http.StatusBadRequest, APIError{
		Error:   message,
		Code:    "BAD_REQUEST",
		Details: details,
	})
}

// RespondValidationError sends a 400 naming exactly the rejected values.
func RespondValidationError(c *gin.Context, message string, fields []string) {
	c.JSON(http.StatusBadRequest, APIError{
		Error:  message,
		Code:   "VALIDATION_FAILED",
		Fields: fields,
	})
}

// RespondRequestTooLarge sends a 413 when an upload exceeds limit bytes.
func RespondRequestTooLarge(c *gin.Context, limit int64) {
	c.JSON(http.StatusRequestEntityTooLarge, APIError{
		Error: fmt.Sprintf("request body exceeds %d bytes", limit),
		Code:  "REQUEST_TOO_LARGE",
	})
}

// RespondTooManyRequests sends a 429 with a Retry-After hint.
func RespondTooManyRequests(c *gin.Context, retryAfter time.Duration) {
	secs := int(retryAfter.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.Itoa(secs))
	c.JSON(http.StatusTooManyRequests, APIError{
		Error: "Rate limit exceeded, please try again later",
		Code:  "RATE_LIMITED",
	})
}

// RespondInternalError sends a 500 Internal Server Error response.
// It logs the error with full details but returns a sanitized message to the client.
func RespondInternalError(c *gin.Context, operation string, err error, log *zap.SugaredLogger) {
	if log != nil {
		log.Errorw(fmt.Sprintf("Failed to %s", operation), "error", err)
	}
	c.JSON(http.StatusInternalServerError, APIError{
		Error: fmt.Sprintf("failed to %s", operation),
		Code:  "INTERNAL_ERROR",
	})
}

// RespondInternalErrorSimple sends a 500 response with a simple message.
// Use this when you've already logged the error or don't need detailed logging.
func RespondInternalErrorSimple(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, APIError{
		Error: message,
		Code:  "INTERNAL_ERROR",
	})
}

// RespondOK sends a 200 OK response with the given data.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// RespondMultiStatus sends a 207 Multi-Status response. Used when a request
// fanned out to several operations and only some of them succeeded.
func RespondMultiStatus(c *gin.Context, data interface{}) {
	c.JSON(http.StatusMultiStatus, data)
}
