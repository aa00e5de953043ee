package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// NotFound is the single answer for missing objects and objects hidden by an ownership filter.
func NotFound(ctx *gin.Context, code int) {
	Error(ctx, http.StatusNotFound, code, "not found")
}

// FormInvalid answers a rejected submission with the submitted form and its field errors.
func FormInvalid(ctx *gin.Context, code int, form interface{}, errs map[string]string) {
	Respond(ctx, http.StatusBadRequest, code, "invalid form", gin.H{
		"form":   form,
		"errors": errs,
	})
}

// Redirect sends a 302 to location and stops the handler chain.
func Redirect(ctx *gin.Context, location string) {
	ctx.Redirect(http.StatusFound, location)
	ctx.Abort()
}

// RecoverJSON answers a recovered panic with the 500 envelope; the panic is logged by the recovery middleware.
func RecoverJSON(ctx *gin.Context, _ any) {
	Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	ctx.Abort()
}
