package api

import (
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"souviens_toi/internal/domain"
	"souviens_toi/internal/download"
	"souviens_toi/internal/service"
)

func (h *Handler) ListMedia(c *gin.Context) {
	media, err := h.media.List(c.Request.Context(), c.Query("q"))
	RespondList(c, media, err)
}

// UploadMedia accepts one or more "files" parts. The optional "title" field
// applies only when a single file is sent.
func (h *Handler) UploadMedia(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		RespondError(c, fmt.Errorf("%w: no files", errBadRequest))
		return
	}

	var eventID *string
	if v := c.PostForm("event_id"); !domain.IsPlaceholderID(v) {
		eventID = &v
	}
	title := ""
	if len(headers) == 1 {
		title = c.PostForm("title")
	}

	inputs := make([]service.UploadInput, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll(inputs)
			RespondError(c, fmt.Errorf("open %s: %w", fh.Filename, err))
			return
		}
		inputs = append(inputs, service.UploadInput{
			Title:       title,
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			EventID:     eventID,
			Body:        f,
		})
	}
	defer closeAll(inputs)

	ctx := c.Request.Context()
	if len(inputs) == 1 {
		m, err := h.media.Upload(ctx, inputs[0])
		if err != nil {
			RespondError(c, err)
			return
		}
		RespondOK(c, http.StatusCreated, []domain.Media{*m})
		return
	}

	media, err := h.media.UploadBatch(ctx, inputs)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusCreated, media)
}

func closeAll(inputs []service.UploadInput) {
	for _, in := range inputs {
		if f, ok := in.Body.(multipart.File); ok {
			_ = f.Close()
		}
	}
}

func (h *Handler) DeleteMedia(c *gin.Context) {
	id := c.Param("id")
	if err := h.media.Delete(c.Request.Context(), id); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusOK, gin.H{"id": id})
}

func (h *Handler) SignedURL(c *gin.Context) {
	u, err := h.media.SignedURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, http.StatusOK, gin.H{"url": u})
}

func (h *Handler) DownloadMedia(c *gin.Context) {
	m, obj, err := h.media.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	name := download.SafeFileName(downloadName(m, contentType))
	c.DataFromReader(http.StatusOK, obj.ContentLength, contentType, obj.Body, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": name}),
		"X-Media-Size":        strconv.FormatInt(m.FileSize, 10),
	})
}

// downloadName is the media title, with an extension guessed from the
// content type when the title has none.
func downloadName(m *domain.Media, contentType string) string {
	name := m.Title
	if name == "" {
		name = m.ID
	}
	if filepath.Ext(name) != "" {
		return name
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return name + exts[0]
	}
	return name
}
