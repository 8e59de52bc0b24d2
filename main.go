package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"fx_market_engine/broker"
	"fx_market_engine/cache"
	"fx_market_engine/config"
	"fx_market_engine/fanout"
	"fx_market_engine/httpapi"
	"fx_market_engine/jobs"
	"fx_market_engine/scheduler"
	"fx_market_engine/store"
)

func main() {
	log.Println("==============================================")
	log.Println("  FX Market Engine - Starting...")
	log.Println("==============================================")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	log.Printf("loaded config: environment=%s broker_token=%s tracked_pairs=%d", cfg.BrokerEnv, cfg.MaskedToken(), len(cfg.TrackedPairs))

	st, err := store.Open(cfg)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}
	defer st.Close()

	mirror := cache.NewMongoMirror(cfg.CacheMongoURI)
	hotCache := cache.New(mirror)
	bus := cache.NewBus()

	if mirror.Configured() {
		hydrateCtx, hydrateCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := hotCache.Hydrate(hydrateCtx); err != nil {
			log.Printf("cache: hydrate from mirror failed: %v", err)
		}
		hydrateCancel()
	}

	brokerClient := broker.New(cfg)

	hourlyJob := jobs.NewHourlyJob(cfg, brokerClient, st, hotCache, bus)
	dailyJob := jobs.NewDailyCorrelationJob(cfg, st, hotCache, bus)
	jobScheduler := scheduler.New(cfg, hourlyJob, dailyJob)

	fanoutServer := fanout.New(cfg, hotCache, bus)
	fanoutServer.Start()

	if err := jobScheduler.Start(); err != nil {
		log.Fatalf("scheduler error: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	httpapi.New(st, hotCache, fanoutServer).Register(router)

	server := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%s", cfg.Port),
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	gracefulShutdown(server, jobScheduler, fanoutServer)
}

// gracefulShutdown blocks until SIGINT/SIGTERM, then stops new scheduler
// ticks, waits on any in-flight job, closes every fan-out session, and
// shuts the HTTP server down within a bounded grace window.
func gracefulShutdown(server *http.Server, jobScheduler *scheduler.Scheduler, fanoutServer *fanout.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("received signal %v, shutting down gracefully...", sig)

	jobScheduler.Stop()
	fanoutServer.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("shutdown complete")
}

// requestLogger logs slow or failed requests, skipping the noisy health
// endpoints, following the teacher's request logging middleware.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/healthz" || path == "/readyz" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		if c.Writer.Status() >= 400 || duration > time.Second {
			log.Printf("%s %s %d %v", c.Request.Method, path, c.Writer.Status(), duration)
		}
	}
}
