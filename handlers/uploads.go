package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// MaxUploadBytes caps a single uploaded image.
const MaxUploadBytes = 10 << 20

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

type uploadResponse struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Upload stores one image from the multipart "file" field.
func (h *Handler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if fh.Size > MaxUploadBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d MiB", MaxUploadBytes>>20))
	}

	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(data) > MaxUploadBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d MiB", MaxUploadBytes>>20))
	}

	// trust the bytes, not the client's declared type
	contentType := http.DetectContentType(data)
	ext, ok := imageExt[strings.SplitN(contentType, ";", 2)[0]]
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "file must be an image")
	}

	key := "uploads/" + uuid.NewString() + ext
	url, err := h.blob.Put(c.Request().Context(), key, data, contentType)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	h.log.Info("image uploaded", zap.String("key", key), zap.Int("bytes", len(data)))

	return c.JSON(http.StatusCreated, uploadResponse{URL: url, Key: key})
}
