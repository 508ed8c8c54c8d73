package transport

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ds124wfegd/wallcraft/internal/entity"
	"github.com/ds124wfegd/wallcraft/internal/pkg/compositor"
	"github.com/ds124wfegd/wallcraft/internal/pkg/source"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

func (h *ImageHandler) Options(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Options())
}

func (h *ImageHandler) ListImages(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.List())
}

func (h *ImageHandler) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided"})
		return
	}

	f, err := file.Open()
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer f.Close()

	img, err := h.service.Upload(file.Filename, f)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entity.UploadResponse{
		ID:     img.ID,
		Status: "uploaded",
	})
}

func (h *ImageHandler) AddRandom(c *gin.Context) {
	var req entity.RandomImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", entity.ErrInvalidInput, err))
		return
	}

	img, err := h.service.AddRandom(req, resolutionParam(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, img)
}

func (h *ImageHandler) Generate(c *gin.Context) {
	var req entity.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", entity.ErrInvalidInput, err))
		return
	}

	img, err := h.service.Generate(req, resolutionParam(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, img)
}

func (h *ImageHandler) GetImage(c *gin.Context) {
	img, err := h.service.Get(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, img)
}

func (h *ImageHandler) DeleteImage(c *gin.Context) {
	if err := h.service.Remove(c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image deleted successfully"})
}

func (h *ImageHandler) UpdateSpec(c *gin.Context) {
	var patch entity.RenderSpecPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", entity.ErrInvalidInput, err))
		return
	}

	img, err := h.service.UpdateSpec(c.Param("id"), patch)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, img)
}

func (h *ImageHandler) Enhance(c *gin.Context) {
	img, err := h.service.Enhance(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, img)
}

// Render renders synchronously, or queues the render with ?async=true.
func (h *ImageHandler) Render(c *gin.Context) {
	var req entity.RenderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, fmt.Errorf("%w: %v", entity.ErrInvalidInput, err))
			return
		}
	}
	if req.Resolution == "" {
		req.Resolution = resolutionParam(c)
	}
	if req.Resolution != "" && !compositor.IsKnownResolution(req.Resolution) {
		abortWithError(c, fmt.Errorf("%w: resolution %q", entity.ErrInvalidInput, req.Resolution))
		return
	}

	id := c.Param("id")
	if c.Query("async") == "true" {
		if err := h.service.Enqueue(id, req.Resolution); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, entity.UploadResponse{ID: id, Status: "queued"})
		return
	}

	event, err := h.service.Render(c.Request.Context(), id, req.Resolution)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *ImageHandler) Download(c *gin.Context) {
	dl, err := h.service.Download(c.Request.Context(), c.Param("id"), resolutionParam(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer dl.Body.Close()

	if dl.Degraded {
		c.Header("X-Render-Degraded", "true")
	}
	c.DataFromReader(http.StatusOK, -1, dl.ContentType, dl.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", dl.FileName),
	})
}

func (h *ImageHandler) Source(c *gin.Context) {
	rc, err := h.service.OpenSource(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}

func (h *ImageHandler) Output(c *gin.Context) {
	rc, err := h.service.OpenOutput(c.Param("id"), c.Param("file"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, -1, compositor.ContentTypeJPEG, rc, nil)
}

func (h *ImageHandler) Placeholder(c *gin.Context) {
	if h.placeholder == nil {
		abortWithError(c, errors.New("placeholder renderer is not configured"))
		return
	}

	w, hgt, query, ok := source.ParsePlaceholderRef(c.Request.URL.RequestURI())
	if !ok {
		abortWithError(c, fmt.Errorf("%w: placeholder url", entity.ErrInvalidInput))
		return
	}

	data, err := h.placeholder.Render(w, hgt, query)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func resolutionParam(c *gin.Context) string {
	return c.Query("resolution")
}
