package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mkorchagin/product-catalog/internal/models"
)

var testSecret = []byte("test-secret")

func InitTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Product{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

// memCache is an in-process stand-in for the redis cache.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return val, nil
}

func (m *memCache) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = val
	return nil
}

func (m *memCache) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

// errCache simulates an unreachable cache server.
type errCache struct{}

func (errCache) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("cache down")
}

func (errCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("cache down")
}

func (errCache) Del(context.Context, ...string) error {
	return errors.New("cache down")
}

func newProductHandler(t *testing.T) (*ProductHandler, *memCache) {
	db := InitTestDB(t)
	mc := newMemCache()
	h := &ProductHandler{
		DB:        db,
		Cache:     mc,
		UploadDir: t.TempDir(),
	}
	return h, mc
}

// newOwnerContext builds an echo context with the verified username
// already set, the way RequireAuth leaves it for handlers.
func newOwnerContext(e *echo.Echo, req *http.Request, username string) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("username", username)
	return c, rec
}

func newProductForm(t *testing.T, method, target string, product interface{}, imageName string) *http.Request {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	raw, err := json.Marshal(product)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("product", string(raw)))

	if imageName != "" {
		fw, err := w.CreateFormFile("image", imageName)
		require.NoError(t, err)
		_, err = io.Copy(fw, bytes.NewReader([]byte("fake image bytes")))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func createProduct(t *testing.T, e *echo.Echo, h *ProductHandler, owner string, product map[string]interface{}) models.Product {
	req := newProductForm(t, http.MethodPost, "/products", product, "")
	c, rec := newOwnerContext(e, req, owner)
	require.NoError(t, h.CreateProduct(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	return created
}

func listProducts(t *testing.T, e *echo.Echo, h *ProductHandler, owner string) []models.Product {
	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	c, rec := newOwnerContext(e, req, owner)
	require.NoError(t, h.GetProducts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var products []models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &products))
	return products
}
