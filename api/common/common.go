// Package common holds the JSON response envelope shared by all
// handlers.
package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Status string      `json:"status"`
	Msg    string      `json:"msg,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

func respond(c *gin.Context, httpStatus int, status string, message string, data interface{}) {
	c.JSON(httpStatus, Response{
		Status: status,
		Msg:    message,
		Data:   data,
	})
}

// RespondSuccess sends a 200 response with data.
func RespondSuccess(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, "success", "", data)
}

// RespondSuccessMessage sends a 200 response with a message and data.
func RespondSuccessMessage(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusOK, "success", message, data)
}

// RespondCreated sends a 201 response with data.
func RespondCreated(c *gin.Context, data interface{}) {
	respond(c, http.StatusCreated, "success", "", data)
}

// RespondError sends an error response with a message.
func RespondError(c *gin.Context, httpStatus int, message string) {
	respond(c, httpStatus, "error", message, nil)
}
