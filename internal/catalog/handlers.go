package catalog

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/solutions224/marketpay/internal/fees"
)

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Categories lists all product categories.
// GET /api/categories
func (h *Handler) Categories(c echo.Context) error {
	cats, err := h.store.Categories(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("list categories: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if cats == nil {
		cats = []Category{}
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": cats, "total": len(cats)})
}

// Products lists active products with search, filters and pagination.
// GET /api/products
func (h *Handler) Products(c echo.Context) error {
	q := Query{
		Search:   c.QueryParam("search"),
		Category: c.QueryParam("category"),
		Sort:     c.QueryParam("sort"),
		Limit:    20,
	}
	if v, ok := parseFloat(c.QueryParam("minPrice")); ok {
		q.MinPrice = &v
	}
	if v, ok := parseFloat(c.QueryParam("maxPrice")); ok {
		q.MaxPrice = &v
	}
	if v, ok := parseFloat(c.QueryParam("minRating")); ok {
		q.MinRating = &v
	}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 100 {
		q.Limit = v
	}
	page := 1
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		page = v
	}
	q.Offset = (page - 1) * q.Limit

	products, total, err := h.store.Products(c.Request().Context(), q)
	if err != nil {
		c.Logger().Errorf("list products: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if products == nil {
		products = []Product{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"products": products,
		"total":    total,
		"page":     page,
		"limit":    q.Limit,
	})
}

type CreateProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	CategoryID  string  `json:"category_id"`
}

// CreateProduct lists a new product for the authenticated vendor.
// POST /api/products
func (h *Handler) CreateProduct(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" || req.Price <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and valid price are required"})
	}
	if req.Currency == "" {
		req.Currency = "GNF"
	}
	if !fees.Supported(req.Currency) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unsupported currency"})
	}

	product, err := h.store.CreateProduct(c.Request().Context(), CreateProductParams{
		VendorID:    uid,
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
	})
	if err != nil {
		c.Logger().Errorf("create product: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"product": product})
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
