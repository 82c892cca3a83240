package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mkorchagin/product-catalog/internal/cache"
	"github.com/mkorchagin/product-catalog/internal/middleware"
	"github.com/mkorchagin/product-catalog/internal/models"
	"github.com/mkorchagin/product-catalog/internal/mykafka"
)

type ProductHandler struct {
	DB        *gorm.DB
	Cache     cache.Cache
	Producer  *mykafka.Producer
	ES        *elasticsearch.Client
	Index     string
	UploadDir string
}

type productInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	IsFavorite  bool    `json:"is_favorite"`
}

// bindProductForm parses the JSON-encoded "product" multipart field.
func bindProductForm(c echo.Context) (*productInput, error) {
	raw := c.FormValue("product")
	if raw == "" {
		return nil, fmt.Errorf("missing product field")
	}
	var in productInput
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, fmt.Errorf("invalid product data format")
	}
	if in.Price < 0 {
		return nil, fmt.Errorf("price cannot be negative")
	}
	return &in, nil
}

// saveImage stores an uploaded image under its original filename and
// returns the served URL. A missing image part is not an error.
// Concurrent uploads to the same filename race, last write wins.
func (h *ProductHandler) saveImage(c echo.Context) (*string, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return nil, nil
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := filepath.Base(file.Filename)
	dst, err := os.Create(filepath.Join(h.UploadDir, name))
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return nil, fmt.Errorf("write upload file: %w", err)
	}

	url := "/uploads/" + name
	return &url, nil
}

func (h *ProductHandler) invalidateCache(c echo.Context, username string) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Cache.Del(ctx, cache.ProductsKey(username)); err != nil {
		c.Logger().Errorf("cache delete error: %v", err)
	}
}

func (h *ProductHandler) publish(c echo.Context, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	key, _ := event["owner"].(string)
	if err := h.Producer.PublishEvent(ctx, "product_events", key, event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}

// indexProduct mirrors the record into the search index, best effort.
func (h *ProductHandler) indexProduct(c echo.Context, p *models.Product) {
	if h.ES == nil {
		return
	}
	body, err := json.Marshal(p)
	if err != nil {
		return
	}
	res, err := h.ES.Index(
		h.Index,
		bytes.NewReader(body),
		h.ES.Index.WithDocumentID(strconv.Itoa(p.ID)),
		h.ES.Index.WithContext(c.Request().Context()),
	)
	if err != nil {
		c.Logger().Errorf("es index error: %v", err)
		return
	}
	res.Body.Close()
}

func (h *ProductHandler) deindexProduct(c echo.Context, id int) {
	if h.ES == nil {
		return
	}
	res, err := h.ES.Delete(
		h.Index,
		strconv.Itoa(id),
		h.ES.Delete.WithContext(c.Request().Context()),
	)
	if err != nil {
		c.Logger().Errorf("es delete error: %v", err)
		return
	}
	res.Body.Close()
}

// GetProducts serves the owner's cached list verbatim when present and
// falls back to the database, repopulating the cache with a fixed TTL.
func (h *ProductHandler) GetProducts(c echo.Context) error {
	username := middleware.Username(c)
	ctx := c.Request().Context()
	key := cache.ProductsKey(username)

	data, err := h.Cache.Get(ctx, key)
	if err != nil {
		c.Logger().Errorf("cache get error: %v", err)
	}
	if data != nil {
		return c.JSONBlob(http.StatusOK, data)
	}

	var products []models.Product
	if err := h.DB.Where("owner_username = ?", username).Find(&products).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if encoded, err := json.Marshal(products); err == nil {
		if err := h.Cache.Set(ctx, key, encoded, cache.ProductsTTL); err != nil {
			c.Logger().Errorf("cache set error: %v", err)
		}
	}

	return c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	username := middleware.Username(c)

	in, err := bindProductForm(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	imageURL, err := h.saveImage(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	product := models.Product{
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		Category:      in.Category,
		IsFavorite:    in.IsFavorite,
		ImageURL:      imageURL,
		OwnerUsername: username,
	}
	if err := h.DB.Create(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.invalidateCache(c, username)
	h.indexProduct(c, &product)
	h.publish(c, map[string]interface{}{
		"type":      "product_created",
		"productID": product.ID,
		"owner":     username,
	})

	return c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	username := middleware.Username(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	if err := h.DB.Where("id = ? AND owner_username = ?", id, username).First(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Product not found")
	}

	in, err := bindProductForm(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	imageURL, err := h.saveImage(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	product.Name = in.Name
	product.Description = in.Description
	product.Price = in.Price
	product.Category = in.Category
	product.IsFavorite = in.IsFavorite
	if imageURL != nil {
		product.ImageURL = imageURL
	}

	if err := h.DB.Save(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.invalidateCache(c, username)
	h.indexProduct(c, &product)
	h.publish(c, map[string]interface{}{
		"type":      "product_updated",
		"productID": product.ID,
		"owner":     username,
	})

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) SetFavorite(c echo.Context) error {
	username := middleware.Username(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	isFavorite, err := strconv.ParseBool(c.FormValue("is_favorite"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid is_favorite value")
	}

	var product models.Product
	if err := h.DB.Where("id = ? AND owner_username = ?", id, username).First(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Product not found")
	}

	product.IsFavorite = isFavorite
	if err := h.DB.Save(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.invalidateCache(c, username)
	h.indexProduct(c, &product)
	h.publish(c, map[string]interface{}{
		"type":      "product_favorite_updated",
		"productID": product.ID,
		"owner":     username,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message":     "Favorite status updated",
		"product_id":  product.ID,
		"is_favorite": product.IsFavorite,
	})
}

// GetProduct scans the cached list first and only then hits the
// database, both paths filtered by the caller's ownership.
func (h *ProductHandler) GetProduct(c echo.Context) error {
	username := middleware.Username(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	ctx := c.Request().Context()
	if data, err := h.Cache.Get(ctx, cache.ProductsKey(username)); err == nil && data != nil {
		var cached []models.Product
		if err := json.Unmarshal(data, &cached); err == nil {
			for i := range cached {
				if cached[i].ID == id {
					return c.JSON(http.StatusOK, cached[i])
				}
			}
		}
	}

	var product models.Product
	if err := h.DB.Where("id = ? AND owner_username = ?", id, username).First(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Product not found")
	}

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	username := middleware.Username(c)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var product models.Product
	if err := h.DB.Where("id = ? AND owner_username = ?", id, username).First(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Product not found")
	}

	if err := h.DB.Delete(&product).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.invalidateCache(c, username)
	h.deindexProduct(c, product.ID)
	h.publish(c, map[string]interface{}{
		"type":      "product_deleted",
		"productID": product.ID,
		"owner":     username,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "Product deleted"})
}
