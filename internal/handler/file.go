package handler

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/friendlyi/reservation-backend/internal/service"
)

const maxProfileImageBytes = 5 << 20 // 5 MiB

var allowedImageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// FileHandler stores profile images on local disk under UploadDir and
// records the stored file name on the member row.
type FileHandler struct {
	Members   *service.MemberService
	UploadDir string
}

func NewFileHandler(members *service.MemberService, uploadDir string) *FileHandler {
	return &FileHandler{Members: members, UploadDir: uploadDir}
}

// UploadProfileImage accepts a multipart `image` field for the
// authenticated member. Files are renamed to a uuid so uploads can
// never collide or traverse paths.
func (h *FileHandler) UploadProfileImage(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return writeError(c, http.StatusUnauthorized, "authentication required")
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return writeError(c, http.StatusBadRequest, "image file required")
	}
	if fh.Size > maxProfileImageBytes {
		return writeError(c, http.StatusBadRequest, "image must be at most 5MB")
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedImageExts[ext] {
		return writeError(c, http.StatusBadRequest, "unsupported image type")
	}

	src, err := fh.Open()
	if err != nil {
		return mapError(c, err)
	}
	defer src.Close()

	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		return mapError(c, err)
	}
	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(h.UploadDir, name))
	if err != nil {
		return mapError(c, err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return mapError(c, err)
	}

	if err := h.Members.SetProfileImage(c.Request().Context(), actor, name); err != nil {
		_ = os.Remove(filepath.Join(h.UploadDir, name))
		return mapError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"file_name": name})
}

// ServeProfileImage streams a stored profile image by file name.
func (h *FileHandler) ServeProfileImage(c echo.Context) error {
	name := c.Param("name")
	// filepath.Base strips any directory component a crafted name
	// could smuggle in.
	clean := filepath.Base(name)
	if clean != name || clean == "." || clean == string(filepath.Separator) {
		return writeError(c, http.StatusBadRequest, "invalid file name")
	}
	path := filepath.Join(h.UploadDir, clean)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return writeError(c, http.StatusNotFound, "file not found")
	}
	return c.File(path)
}
