package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/your-org/discid/internal/matcher"
	"github.com/your-org/discid/internal/models"
	"github.com/your-org/discid/pkg/dto"
)

// DiscHandler exposes the matcher's register/confirm/cancel/find_matches
// service interface over HTTP.
type DiscHandler struct {
	matcher *matcher.Matcher
}

func NewDiscHandler(m *matcher.Matcher) *DiscHandler {
	return &DiscHandler{matcher: m}
}

func readUploadedImage(c *gin.Context) ([]byte, error) {
	file, _, err := c.Request.FormFile("image")
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// Register handles POST /v1/discs: a multipart upload with the disc's
// metadata fields plus an "image" file part. An optional disc_id form
// field attaches the image to an existing disc instead of creating one.
func (h *DiscHandler) Register(c *gin.Context) {
	imageData, err := readUploadedImage(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}

	req := matcher.RegisterRequest{
		OwnerName:    c.PostForm("owner_name"),
		OwnerContact: c.PostForm("owner_contact"),
		ModelName:    c.PostForm("model_name"),
		Color:        c.PostForm("color"),
		Notes:        c.PostForm("notes"),
		Location:     c.PostForm("location"),
		ImageData:    imageData,
	}
	if discIDStr := c.PostForm("disc_id"); discIDStr != "" {
		id, err := strconv.ParseInt(discIDStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid disc_id"})
			return
		}
		req.DiscID = &id
	}

	disc, img, err := h.matcher.Register(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.RegisterResponse{
		Disc:  dto.DiscToResponse(disc),
		Image: dto.DiscImageToResponse(img),
	})
}

func (h *DiscHandler) parseDiscID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid disc id"})
		return 0, false
	}
	return id, true
}

func (h *DiscHandler) Confirm(c *gin.Context) {
	id, ok := h.parseDiscID(c)
	if !ok {
		return
	}
	if err := h.matcher.Confirm(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "confirmed"})
}

func (h *DiscHandler) Cancel(c *gin.Context) {
	id, ok := h.parseDiscID(c)
	if !ok {
		return
	}
	if err := h.matcher.Cancel(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (h *DiscHandler) Get(c *gin.Context) {
	id, ok := h.parseDiscID(c)
	if !ok {
		return
	}
	disc, err := h.matcher.GetDisc(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.DiscToResponse(disc))
}

func (h *DiscHandler) List(c *gin.Context) {
	filter := models.DiscFilter{}
	if s := c.Query("status"); s != "" {
		filter.Status = models.DiscStatus(s)
	}
	if s := c.Query("upload_status"); s != "" {
		filter.UploadStatus = models.UploadStatus(s)
	}
	if l, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = l
	}
	if o, err := strconv.Atoi(c.Query("offset")); err == nil {
		filter.Offset = o
	}

	discs, err := h.matcher.ListDiscs(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.DiscResponse, 0, len(discs))
	for i := range discs {
		resp = append(resp, dto.DiscToResponse(&discs[i]))
	}
	c.JSON(http.StatusOK, gin.H{"discs": resp, "total": len(resp)})
}

func (h *DiscHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.parseDiscID(c)
	if !ok {
		return
	}
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.matcher.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *DiscHandler) Delete(c *gin.Context) {
	id, ok := h.parseDiscID(c)
	if !ok {
		return
	}
	if err := h.matcher.DeleteDisc(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// AddImage handles POST /v1/discs/:id/images: attach another photograph to
// an existing disc.
func (h *DiscHandler) AddImage(c *gin.Context) {
	id, ok := h.parseDiscID(c)
	if !ok {
		return
	}
	imageData, err := readUploadedImage(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}
	img, err := h.matcher.AddImageToDisc(c.Request.Context(), id, imageData)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, dto.DiscImageToResponse(img))
}

// UpdateBorder handles PUT /v1/discs/images/:imageId/border: apply a
// manual border correction and re-embed from the stored original.
func (h *DiscHandler) UpdateBorder(c *gin.Context) {
	imageID, err := strconv.ParseInt(c.Param("imageId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image id"})
		return
	}
	var req dto.UpdateBorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	img, err := h.matcher.UpdateBorder(c.Request.Context(), imageID, req.Border)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.DiscImageToResponse(img))
}

// Original handles GET /v1/discs/images/:imageId/original: stream back the
// unmodified upload behind an image row.
func (h *DiscHandler) Original(c *gin.Context) {
	h.serveImageBlob(c, func(img *models.DiscImage) string { return img.OriginalPath })
}

// Cropped handles GET /v1/discs/images/:imageId/cropped: the
// border-cropped, background-composited raster actually fed to the encoder.
func (h *DiscHandler) Cropped(c *gin.Context) {
	h.serveImageBlob(c, func(img *models.DiscImage) string { return img.CroppedPath })
}

func (h *DiscHandler) serveImageBlob(c *gin.Context, keyOf func(*models.DiscImage) string) {
	imageID, err := strconv.ParseInt(c.Param("imageId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image id"})
		return
	}

	img, err := h.matcher.GetImage(c.Request.Context(), imageID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
		return
	}

	key := keyOf(img)
	if key == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no blob stored for this image"})
		return
	}

	data, err := h.matcher.GetImageBlob(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "blob not found"})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}

// Search handles POST /v1/search: find_matches against an uploaded photo.
func (h *DiscHandler) Search(c *gin.Context) {
	imageData, err := readUploadedImage(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}

	topK := 0
	if k, err := strconv.Atoi(c.PostForm("top_k")); err == nil {
		topK = k
	}
	minSimilarity := 0.0
	if ms, err := strconv.ParseFloat(c.PostForm("min_similarity"), 64); err == nil {
		minSimilarity = ms
	}
	var statusFilter *models.DiscStatus
	if s := c.PostForm("status"); s != "" {
		st := models.DiscStatus(s)
		statusFilter = &st
	}

	matches, err := h.matcher.FindMatches(c.Request.Context(), imageData, topK, minSimilarity, statusFilter)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.MatchResponse, 0, len(matches))
	for i := range matches {
		resp = append(resp, dto.MatchToResponse(&matches[i]))
	}
	c.JSON(http.StatusOK, gin.H{"results": resp, "total": len(resp)})
}
