// Package handlers contains the gin HTTP handlers for the article API.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"gdeltnews/internal/application/articles"
	"gdeltnews/internal/domain/article"
	"gdeltnews/internal/infrastructure/usage"
	"gdeltnews/internal/shared/errors"
	"gdeltnews/internal/shared/logger"
	"gdeltnews/internal/shared/utils"
)

// ArticleHandler handles article read requests.
type ArticleHandler struct {
	coordinator    *articles.Coordinator
	store          article.Store
	meter          *usage.Meter
	defaultCountry string
	maxDaysBack    int
	logger         logger.Interface
}

func NewArticleHandler(
	coordinator *articles.Coordinator,
	store article.Store,
	meter *usage.Meter,
	defaultCountry string,
	maxDaysBack int,
	log logger.Interface,
) *ArticleHandler {
	return &ArticleHandler{
		coordinator:    coordinator,
		store:          store,
		meter:          meter,
		defaultCountry: defaultCountry,
		maxDaysBack:    maxDaysBack,
		logger:         log,
	}
}

// articleDTO is the wire shape of one article.
type articleDTO struct {
	GKGRecordID string          `json:"gkg_record_id"`
	CountryCode string          `json:"country_code"`
	DateAdded   int64           `json:"date_added"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toDTOs(rows []article.Row) []articleDTO {
	out := make([]articleDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, articleDTO{
			GKGRecordID: r.GKGRecordID,
			CountryCode: r.CountryCode,
			DateAdded:   r.DateAdded,
			Payload:     r.Payload,
			CreatedAt:   r.CreatedAt,
		})
	}
	return out
}

// GetArticles handles GET /api/articles
func (h *ArticleHandler) GetArticles(c *gin.Context) {
	country, daysBack, err := h.parseQuery(c)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	result, err := h.coordinator.GetArticles(c.Request.Context(), country, daysBack)
	if err != nil {
		h.logger.Errorw("failed to get articles",
			"country_code", country,
			"days_back", daysBack,
			"error", err,
		)
		utils.ErrorResponseWithError(c, err)
		return
	}

	total := len(result.Rows)
	meta := utils.NewMeta(c)
	meta.CountryCode = country
	meta.DaysBack = daysBack
	meta.Total = &total
	meta.Partial = result.Partial

	utils.SuccessResponse(c, http.StatusOK, toDTOs(result.Rows), meta)
}

// GetStats handles GET /api/articles/stats
func (h *ArticleHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	storage, err := h.store.Stats(ctx)
	if err != nil {
		utils.ErrorResponseWithError(c,
			errors.NewStoreUnavailableError("failed to read storage stats", err.Error()))
		return
	}

	usageStats, err := h.meter.Snapshot(ctx)
	if err != nil {
		utils.ErrorResponseWithError(c,
			errors.NewStoreUnavailableError("failed to read usage stats", err.Error()))
		return
	}

	utils.SuccessResponse(c, http.StatusOK, gin.H{
		"storage": storage,
		"usage":   usageStats,
	}, nil)
}

func (h *ArticleHandler) parseQuery(c *gin.Context) (string, int, error) {
	country := strings.ToUpper(strings.TrimSpace(c.DefaultQuery("country_code", h.defaultCountry)))
	if len(country) != 2 || !isASCIILetters(country) {
		return "", 0, errors.NewValidationError(
			"country_code must be a two-letter country code")
	}

	raw := c.DefaultQuery("days_back", "1")
	daysBack, err := strconv.Atoi(raw)
	if err != nil {
		return "", 0, errors.NewValidationError("days_back must be an integer")
	}
	if daysBack < 1 || daysBack > h.maxDaysBack {
		return "", 0, errors.NewValidationError(
			"days_back out of range", "valid range is 1.."+strconv.Itoa(h.maxDaysBack))
	}

	return country, daysBack, nil
}

func isASCIILetters(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
