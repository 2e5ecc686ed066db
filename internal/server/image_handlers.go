package server

import (
	"io"

	"github.com/pillow12360/eureka-ssul/internal/imaging"
	"github.com/pillow12360/eureka-ssul/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ImageUploadResponse is the API response after uploading an image.
type ImageUploadResponse struct {
	URL string `json:"url"`
}

// readImage reads the multipart "image" field. ok is false when the form has no file.
func readImage(c *fiber.Ctx) (in *imaging.Input, ok bool, err error) {
	file, ferr := c.FormFile("image")
	if ferr != nil {
		return nil, false, nil
	}
	src, err := file.Open()
	if err != nil {
		return nil, true, models.NewValidationError("Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return nil, true, models.NewValidationError("Unable to read uploaded file")
	}
	return &imaging.Input{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
	}, true, nil
}

// UploadImage handles POST /api/images
func (s *Server) UploadImage(c *fiber.Ctx) error {
	in, ok, err := readImage(c)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}
	if !ok {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}

	url, err := s.services.Profiles.UploadProfileImage(c.UserContext(), *in)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ImageUploadResponse{URL: url})
}
