package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/romastokriceri/mystorage/internal/storage"
)

// UploadHandler accepts media uploads and returns the stored reference.
// Upload and attachment are independent steps: the caller attaches the
// returned URL to a box or item through a normal update call, and an
// upload that is never attached simply stays on disk.
type UploadHandler struct {
	Media storage.MediaStore
}

func NewUploadHandler(media storage.MediaStore) *UploadHandler {
	if media == nil {
		panic("nil media store passed to NewUploadHandler")
	}
	return &UploadHandler{Media: media}
}

// Upload handles POST /v1/upload with a multipart "file" part. Only the
// declared content type is checked; it must be an image type. The file
// bytes are never inspected.
func (h *UploadHandler) Upload(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file is required"})
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "only images allowed"})
	}

	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "open upload failed"})
	}
	defer func() { _ = src.Close() }()

	ref, err := h.Media.Save(c.Request().Context(), contentType, src)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store upload failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"url": ref})
}
