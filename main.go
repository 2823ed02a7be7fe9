package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"asset-cloud/internal/audit"
	"asset-cloud/internal/auth"
	inventoryapp "asset-cloud/internal/inventory/application"
	inventoryrepo "asset-cloud/internal/inventory/infrastructure/postgres"
	inventoryhttp "asset-cloud/internal/inventory/interfaces/http"
	"asset-cloud/internal/observability/metrics"
	telemetryapp "asset-cloud/internal/telemetry/application"
	telemetry "asset-cloud/internal/telemetry/domain"
	telemetryrepo "asset-cloud/internal/telemetry/infrastructure/postgres"
	telemetryhttp "asset-cloud/internal/telemetry/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	telemetryCfg, err := telemetryapp.LoadConfig()
	if err != nil {
		logger.Fatalf("telemetry config error: %v", err)
	}
	for metricType, unit := range telemetryCfg.Units {
		telemetry.RegisterUnit(metricType, unit)
	}

	siteRepo := inventoryrepo.NewSiteRepository(db)
	deviceRepo := inventoryrepo.NewDeviceRepository(db)
	readingRepo := telemetryrepo.NewReadingRepository(db)
	subscriptionRepo := telemetryrepo.NewSubscriptionRepository(db)

	siteService, err := inventoryapp.NewSiteService(siteRepo,
		inventoryapp.WithPageLimits(telemetryCfg.Pagination.DefaultLimit, telemetryCfg.Pagination.MaxLimit))
	if err != nil {
		logger.Fatalf("site service error: %v", err)
	}
	deviceService, err := inventoryapp.NewDeviceService(siteRepo, deviceRepo)
	if err != nil {
		logger.Fatalf("device service error: %v", err)
	}
	queryService, err := telemetryapp.NewQueryService(readingRepo)
	if err != nil {
		logger.Fatalf("metric query service error: %v", err)
	}
	subscriptionService, err := telemetryapp.NewSubscriptionService(subscriptionRepo, deviceService)
	if err != nil {
		logger.Fatalf("subscription service error: %v", err)
	}
	seriesService, err := telemetryapp.NewSeriesService(subscriptionService, readingRepo, telemetryCfg.Series.MaxPoints)
	if err != nil {
		logger.Fatalf("series service error: %v", err)
	}

	siteHandler, err := inventoryhttp.NewSiteHandler(siteService)
	if err != nil {
		logger.Fatalf("site handler error: %v", err)
	}
	latestMetricHandler, err := telemetryhttp.NewLatestMetricHandler(queryService)
	if err != nil {
		logger.Fatalf("latest metric handler error: %v", err)
	}
	deviceHandler, err := inventoryhttp.NewDeviceHandler(deviceService, latestMetricHandler, auditRepo)
	if err != nil {
		logger.Fatalf("device handler error: %v", err)
	}
	subscriptionHandler, err := telemetryhttp.NewSubscriptionHandler(subscriptionService, seriesService, auditRepo)
	if err != nil {
		logger.Fatalf("subscription handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/sites", siteHandler)
	mux.Handle("/sites/", siteHandler)
	mux.Handle("/devices", deviceHandler)
	mux.Handle("/devices/", deviceHandler)
	mux.Handle("/subscriptions", subscriptionHandler)
	mux.Handle("/subscriptions/", subscriptionHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL string
	HTTPAddr    string
	JWTSecret   string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL: getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:   getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		metrics.IncHTTPRequest(r.Method, strconv.Itoa(resp.status))
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
