package web

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-vhuman/pkg/document"
)

func (s *Server) handleExtract(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest("file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	doc, err := document.ExtractPDFBytes(data)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"filename": fh.Filename,
		"pages":    doc.Pages,
		"text":     doc.Text,
		"info":     doc.Info,
	})
}
