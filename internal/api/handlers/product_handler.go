package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/catalog-s3/internal/domain"
	"github.com/andresuchdata/catalog-s3/internal/service"
)

type ProductHandler struct {
	catalog *service.CatalogService
}

func NewProductHandler(catalog *service.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// ListProducts returns one page of products. ?page defaults to 1.
func (h *ProductHandler) ListProducts(c *gin.Context) {
	page := parsePositiveIntWithDefault(c.Query("page"), 1)

	result, err := h.catalog.List(c.Request.Context(), page)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	product, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// CreateProduct accepts a multipart form with name, description, price and
// a required image file.
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	input, err := bindProductInput(c)
	if err != nil {
		writeError(c, err)
		return
	}

	img, closeImg, err := formImage(c)
	if err != nil {
		writeError(c, err)
		return
	}
	defer closeImg()

	product, err := h.catalog.Create(c.Request.Context(), input, img)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// UpdateProduct accepts the same form as CreateProduct; the image is optional.
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	input, err := bindProductInput(c)
	if err != nil {
		writeError(c, err)
		return
	}

	img, closeImg, err := formImage(c)
	if err != nil {
		writeError(c, err)
		return
	}
	defer closeImg()

	product, err := h.catalog.Update(c.Request.Context(), id, input, img)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	result, err := h.catalog.Delete(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func productID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return 0, false
	}
	return id, true
}

func bindProductInput(c *gin.Context) (domain.ProductInput, error) {
	input := domain.ProductInput{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
	}

	raw := strings.TrimSpace(c.PostForm("price"))
	if raw == "" {
		return input, &service.FieldError{Field: "price", Message: "is required"}
	}
	price, err := domain.ParsePrice(raw)
	if err != nil {
		return input, &service.FieldError{Field: "price", Message: err.Error()}
	}
	input.Price = price
	return input, nil
}

// formImage opens the "image" form file. A missing file yields a nil image
// so that the service decides whether one is required.
func formImage(c *gin.Context) (*service.ImageFile, func(), error) {
	header, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, &service.FieldError{Field: "image", Message: "invalid form data"}
	}

	file, err := header.Open()
	if err != nil {
		return nil, func() {}, &service.FieldError{Field: "image", Message: "cannot read file"}
	}

	return &service.ImageFile{
		Filename: header.Filename,
		Size:     header.Size,
		Content:  file,
	}, closer(file, header), nil
}

func closer(file multipart.File, header *multipart.FileHeader) func() {
	return func() {
		if err := file.Close(); err != nil {
			log.Warn().Err(err).Str("filename", header.Filename).Msg("failed to close uploaded file")
		}
	}
}

func parsePositiveIntWithDefault(value string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && v > 0 {
		return v
	}
	return fallback
}
