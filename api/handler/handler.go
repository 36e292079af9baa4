package handler

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"rescuephoto/internal/database"
	"rescuephoto/internal/imageprocessing"
)

// DefaultMaxUploadBytes is used when Handler.MaxUploadBytes is zero
const DefaultMaxUploadBytes = 10 << 20

// DefaultThreshold is used when Handler.Threshold is zero
const DefaultThreshold = 85.0

type Handler struct {
	DB             *database.ImageDatabase
	ImageDir       string
	MaxUploadBytes int64
	Threshold      float64
}

// HashResponse carries the fingerprints of an uploaded photo
type HashResponse struct {
	PHash            string `json:"phash"`
	DHash            string `json:"dhash"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
}

// RecognizeResponse reports the closest stored photo
type RecognizeResponse struct {
	Result           string                    `json:"result"`
	Similarity       float64                   `json:"similarity"`
	MatchedImage     string                    `json:"matched_image,omitempty"`
	CaseID           string                    `json:"case_id,omitempty"`
	Distances        imageprocessing.Distances `json:"distances"`
	ProcessingTimeMs int64                     `json:"processing_time_ms"`
}

// CompareResponse reports how similar two uploaded photos are
type CompareResponse struct {
	First        imageprocessing.Hashes    `json:"first"`
	Second       imageprocessing.Hashes    `json:"second"`
	Distances    imageprocessing.Distances `json:"distances"`
	Similarity   float64                   `json:"similarity"`
	Match        bool                      `json:"match"`
	ProcessingMs int64                     `json:"processing_time_ms"`
}

func (h *Handler) maxUpload() int64 {
	if h.MaxUploadBytes > 0 {
		return h.MaxUploadBytes
	}
	return DefaultMaxUploadBytes
}

// threshold reads the optional "threshold" form value, falling back to the default
func (h *Handler) threshold(c *gin.Context) float64 {
	similarityThreshold := h.Threshold
	if similarityThreshold == 0 {
		similarityThreshold = DefaultThreshold
	}
	if thresholdStr := c.DefaultPostForm("threshold", ""); thresholdStr != "" {
		parsed, err := strconv.ParseFloat(thresholdStr, 64)
		if err == nil && parsed >= 0 && parsed <= 100 {
			similarityThreshold = parsed
		}
	}
	return similarityThreshold
}

// readUpload reads a multipart file field. On failure it writes the error
// response and returns ok=false.
func (h *Handler) readUpload(c *gin.Context, field string) ([]byte, *multipart.FileHeader, bool) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("No %s file found", field)})
		return nil, nil, false
	}
	defer file.Close()

	if header.Size > h.maxUpload() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("File size exceeds %s limit",
			humanize.IBytes(uint64(h.maxUpload())))})
		return nil, nil, false
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload()+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not read file"})
		return nil, nil, false
	}
	if int64(len(data)) > h.maxUpload() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("File size exceeds %s limit",
			humanize.IBytes(uint64(h.maxUpload())))})
		return nil, nil, false
	}
	return data, header, true
}

// hashError writes the response for a failed hash computation
func hashError(c *gin.Context, err error) {
	switch {
	case imageprocessing.IsDecodeError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image format"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Request cancelled"})
	default:
		log.Printf("Error hashing image: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not process image"})
	}
}

// @Summary Hash image
// @Description Compute pHash and dHash fingerprints of an uploaded image
// @Tags Image Hashing
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Image file to hash"
// @Success 200 {object} HashResponse
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /hash [post]
func (h *Handler) HashHandler(c *gin.Context) {
	startTime := time.Now()
	data, _, ok := h.readUpload(c, "image")
	if !ok {
		return
	}

	hashes, err := h.DB.Hasher().HashBytes(c.Request.Context(), data)
	if err != nil {
		hashError(c, err)
		return
	}

	c.JSON(http.StatusOK, HashResponse{
		PHash:            hashes.PHash,
		DHash:            hashes.DHash,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
	})
}

// @Summary Recognize image
// @Description Compare uploaded image against stored case photos
// @Tags Image Recognition
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Image file to check"
// @Param threshold formData number false "Similarity threshold (0-100)"
// @Success 200 {object} RecognizeResponse
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /recognize [post]
func (h *Handler) RecognizeHandler(c *gin.Context) {
	startTime := time.Now()
	data, _, ok := h.readUpload(c, "image")
	if !ok {
		return
	}

	match, err := h.DB.FindMatch(c.Request.Context(), data, h.threshold(c))
	if err != nil {
		hashError(c, err)
		return
	}

	response := RecognizeResponse{
		Similarity:       match.Similarity,
		MatchedImage:     match.Filename,
		CaseID:           match.CaseID,
		Distances:        match.Distances,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
	}
	if match.IsMatch {
		response.Result = "OK"
	} else {
		response.Result = "NOT OK"
	}

	c.JSON(http.StatusOK, response)
}

// @Summary Compare two images
// @Description Compare two uploaded images and return their hash distances
// @Tags Image Comparison
// @Accept multipart/form-data
// @Produce json
// @Param image1 formData file true "First image to compare"
// @Param image2 formData file true "Second image to compare"
// @Param threshold formData number false "Similarity threshold (0-100)"
// @Success 200 {object} CompareResponse
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /compare [post]
func (h *Handler) CompareHandler(c *gin.Context) {
	startTime := time.Now()
	data1, _, ok := h.readUpload(c, "image1")
	if !ok {
		return
	}
	data2, _, ok := h.readUpload(c, "image2")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	first, err := h.DB.Hasher().HashBytes(ctx, data1)
	if err != nil {
		hashError(c, err)
		return
	}
	second, err := h.DB.Hasher().HashBytes(ctx, data2)
	if err != nil {
		hashError(c, err)
		return
	}

	distances, err := imageprocessing.Compare(first, second)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not compare images"})
		return
	}

	similarity := distances.Similarity()
	c.JSON(http.StatusOK, CompareResponse{
		First:        first,
		Second:       second,
		Distances:    distances,
		Similarity:   similarity,
		Match:        similarity >= h.threshold(c),
		ProcessingMs: time.Since(startTime).Milliseconds(),
	})
}

// @Summary Add new image
// @Description Add a case photo to the database unless a near-duplicate exists
// @Tags Image Database Management
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Image file to upload"
// @Param name formData string false "Custom image name"
// @Param case_id formData string false "Rescue case the photo belongs to"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /admin/add [post]
func (h *Handler) AddImageHandler(c *gin.Context) {
	data, header, ok := h.readUpload(c, "image")
	if !ok {
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !imageprocessing.IsImageFile(header.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported file format. Please upload a valid image."})
		return
	}

	filename := filepath.Base(header.Filename)
	if customName := c.PostForm("name"); customName != "" {
		filename = filepath.Base(customName) + ext
	}
	uniqueFilename := fmt.Sprintf("%d_%s", time.Now().UnixNano(), filename)

	info, err := h.DB.AddImage(c.Request.Context(), data, uniqueFilename, c.PostForm("case_id"))
	if err != nil {
		if errors.Cause(err) == database.ErrDuplicateImage {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		hashError(c, err)
		return
	}

	if h.ImageDir != "" {
		savePath := filepath.Join(h.ImageDir, uniqueFilename)
		if err := os.WriteFile(savePath, data, 0644); err != nil {
			log.Printf("Error saving image to %s: %v", savePath, err)
			if rmErr := h.DB.RemoveImage(uniqueFilename); rmErr != nil {
				log.Printf("Error rolling back %s: %v", uniqueFilename, rmErr)
			}
			if os.IsPermission(err) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Permission denied when saving image. Check container volume permissions."})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save image"})
			}
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Image added successfully",
		"filename": info.Filename,
		"case_id":  info.CaseID,
		"phash":    info.PHash,
		"dhash":    info.DHash,
	})
}

// @Summary List images
// @Description List stored case photos and their fingerprints
// @Tags Image Database Management
// @Produce json
// @Success 200 {array} database.ImageInfo
// @Router /admin/images [get]
func (h *Handler) ListImagesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.DB.ListImages())
}

// @Summary Delete image
// @Description Remove a case photo from the database and the image directory
// @Tags Image Database Management
// @Produce json
// @Param filename path string true "Stored filename"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/images/{filename} [delete]
func (h *Handler) DeleteImageHandler(c *gin.Context) {
	filename := filepath.Base(c.Param("filename"))
	if err := h.DB.RemoveImage(filename); err != nil {
		if errors.Cause(err) == database.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
			return
		}
		log.Printf("Error removing %s: %v", filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not remove image"})
		return
	}

	if h.ImageDir != "" {
		if err := os.Remove(filepath.Join(h.ImageDir, filename)); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: could not delete file %s: %v", filename, err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image removed", "filename": filename})
}

// @Summary Hello endpoint
// @Description Test connection endpoint
// @Tags Image Database Management
// @Produce json
// @Success 200 {object} map[string]string
// @Router /admin/hello [get]
func (h *Handler) Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Hello, world", "images": h.DB.Count()})
}
