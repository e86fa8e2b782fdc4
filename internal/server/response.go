package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
)

type successResponse struct {
	Success  bool     `json:"success"`
	Message  string   `json:"message,omitempty"`
	Data     any      `json:"data"`
	Warnings []string `json:"warnings,omitempty"`
}

func respond(c *gin.Context, status int, message string, data any, warnings ...string) {
	c.JSON(status, successResponse{
		Success:  true,
		Message:  message,
		Data:     data,
		Warnings: warnings,
	})
}

// sendPDF streams a rendered report as a download named after title.
func sendPDF(c *gin.Context, title string, body io.Reader) {
	filename := slug.Make(title) + ".pdf"
	c.DataFromReader(http.StatusOK, -1, "application/pdf", body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%s", filename),
	})
}
