package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/bookline/backend/internal/geocode"
	"github.com/bookline/backend/internal/models"
	"github.com/bookline/backend/internal/service"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	DB        Pinger
	Search    *service.Search
	Delegator *service.Delegator
	Analytics *service.Analytics
	Geocoder  *geocode.Cache
	Validator *validator.Validate
	Logger    zerolog.Logger
	AdminKey  string
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.DB.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type SearchRequest struct {
	Latitude    *float64 `json:"latitude" validate:"required"`
	Longitude   *float64 `json:"longitude" validate:"required"`
	RadiusMiles *float64 `json:"radius_miles"`
	Category    string   `json:"category"`
	Query       string   `json:"query"`
}

type SearchResult struct {
	Slug          string                `json:"slug"`
	Name          string                `json:"name"`
	Category      string                `json:"category"`
	Address       string                `json:"address"`
	Phone         string                `json:"phone"`
	Coord         models.Coordinate     `json:"coord"`
	DistanceMiles float64               `json:"distance_miles"`
	Confidence    float64               `json:"confidence"`
	Services      []service.ServiceView `json:"services"`
}

type SearchResponse struct {
	Results    []SearchResult `json:"results"`
	TotalCount int            `json:"total_count"`
}

// @Summary Search businesses by location
// @Description Great-circle search around a coordinate, sorted by ascending distance
// @Tags search
// @Accept json
// @Produce json
// @Param request body SearchRequest true "Search parameters"
// @Success 200 {object} SearchResponse
// @Failure 422 {object} map[string]any
// @Failure 429 {object} map[string]any
// @Router /api/search-by-location [post]
func (h *Handler) SearchByLocation(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "latitude and longitude are required", err.Error())
		return
	}

	center, err := models.NewCoordinate(*req.Latitude, *req.Longitude)
	if err != nil {
		writeError(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Coordinates out of range", gin.H{
			"latitude":  *req.Latitude,
			"longitude": *req.Longitude,
		})
		return
	}

	radius := 5.0
	if req.RadiusMiles != nil {
		radius = *req.RadiusMiles
	}

	matches, err := h.Search.ByLocation(c.Request.Context(), service.SearchParams{
		Center:      center,
		RadiusMiles: radius,
		Category:    req.Category,
		Query:       req.Query,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidRadius) {
			writeError(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), gin.H{"radius_miles": radius})
			return
		}
		h.Logger.Error().Err(err).Msg("search failed")
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Search failed", nil)
		return
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, searchResult(m))
	}
	c.JSON(http.StatusOK, SearchResponse{Results: results, TotalCount: len(results)})
}

func searchResult(m service.Match) SearchResult {
	r := SearchResult{
		Slug:          m.Business.Slug,
		Name:          m.Business.Name,
		Category:      m.Business.Category,
		Address:       m.Business.Address,
		Phone:         m.Business.Phone,
		DistanceMiles: m.DistanceMiles,
		Confidence:    m.Confidence,
		Services:      serviceViews(m.Business.Services),
	}
	if m.Business.Coord != nil {
		r.Coord = *m.Business.Coord
	}
	return r
}

func serviceViews(services []models.BookableService) []service.ServiceView {
	out := make([]service.ServiceView, 0, len(services))
	for _, sv := range services {
		out = append(out, service.ServiceView{
			ID:           sv.ID,
			Name:         sv.Name,
			DurationMins: sv.DurationMins,
			PriceCents:   sv.PriceCents,
			PriceDisplay: service.FormatPrice(sv.PriceCents),
		})
	}
	return out
}

type DelegateRequest struct {
	ShopSlug        string                  `json:"shop_slug" validate:"required"`
	CustomerContext *CustomerContextRequest `json:"customer_context"`
}

type CustomerContextRequest struct {
	Intent      string            `json:"intent"`
	Latitude    *float64          `json:"latitude"`
	Longitude   *float64          `json:"longitude"`
	Preferences map[string]string `json:"preferences"`
}

type DelegateResponse struct {
	SessionID         string                `json:"session_id"`
	ShopName          string                `json:"shop_name"`
	InitialMessage    string                `json:"initial_message"`
	AvailableServices []service.ServiceView `json:"available_services"`
}

// @Summary Delegate to a business booking conversation
// @Tags delegate
// @Accept json
// @Produce json
// @Param request body DelegateRequest true "Delegation parameters"
// @Success 200 {object} DelegateResponse
// @Failure 404 {object} map[string]any
// @Failure 429 {object} map[string]any
// @Router /api/delegate [post]
func (h *Handler) Delegate(c *gin.Context) {
	var req DelegateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "shop_slug is required", err.Error())
		return
	}

	customerCtx, err := customerContext(req.CustomerContext)
	if err != nil {
		writeError(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Customer coordinates out of range", nil)
		return
	}

	res, err := h.Delegator.Delegate(c.Request.Context(), req.ShopSlug, customerCtx)
	if err != nil {
		if errors.Is(err, service.ErrShopNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", err.Error(), gin.H{"shop_slug": req.ShopSlug})
			return
		}
		h.Logger.Error().Err(err).Str("shop_slug", req.ShopSlug).Msg("delegate failed")
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Delegation failed", nil)
		return
	}

	c.JSON(http.StatusOK, DelegateResponse{
		SessionID:         res.Session.ID,
		ShopName:          res.ShopName,
		InitialMessage:    res.Greeting,
		AvailableServices: res.Services,
	})
}

// customerContext extracts only the contracted fields from the open bag;
// anything else the client sent stays out of core state.
func customerContext(req *CustomerContextRequest) (models.CustomerContext, error) {
	if req == nil {
		return models.CustomerContext{}, nil
	}
	out := models.CustomerContext{
		Intent:      req.Intent,
		Preferences: req.Preferences,
	}
	if req.Latitude != nil && req.Longitude != nil {
		coord, err := models.NewCoordinate(*req.Latitude, *req.Longitude)
		if err != nil {
			return models.CustomerContext{}, err
		}
		out.Coord = &coord
	}
	return out, nil
}

type BookingCompleteRequest struct {
	SessionID   string `json:"session_id" validate:"required"`
	ShopSlug    string `json:"shop_slug"`
	AmountCents *int   `json:"amount_cents"`
}

// BookingComplete is the booking agent's callback attributing a completed
// booking to a delegation session.
func (h *Handler) BookingComplete(c *gin.Context) {
	var req BookingCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "session_id is required", err.Error())
		return
	}

	h.Analytics.Record(models.AnalyticsEvent{
		Type:      models.EventBookingCompleted,
		SessionID: req.SessionID,
		ShopSlug:  req.ShopSlug,
	})
	c.JSON(http.StatusAccepted, gin.H{"status": "recorded"})
}

func (h *Handler) AnalyticsUsage(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	rows, err := h.Analytics.Usage(c.Request.Context(), days)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load usage summary", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows, "days": days})
}

func (h *Handler) AnalyticsLeaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	rows, err := h.Analytics.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load leaderboard", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows})
}

func (h *Handler) AnalyticsFunnel(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	rows, err := h.Analytics.Funnel(c.Request.Context(), days)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load funnel", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows, "days": days})
}

type GeocodeResolveRequest struct {
	Query string `json:"query" validate:"required"`
}

func (h *Handler) GeocodeResolve(c *gin.Context) {
	var req GeocodeResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "query is required", err.Error())
		return
	}

	coord, err := h.Geocoder.Resolve(c.Request.Context(), req.Query)
	if err != nil {
		if errors.Is(err, geocode.ErrNotFound) {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "No match for query", gin.H{"query": req.Query})
			return
		}
		h.Logger.Error().Err(err).Str("query", req.Query).Msg("geocode failed")
		writeError(c, http.StatusBadGateway, "PROVIDER_ERROR", "Geocoding provider failed", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"query": req.Query, "coord": coord})
}

func (h *Handler) GeocodeSweep(c *gin.Context) {
	deleted, err := h.Geocoder.Sweep(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Sweep failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
