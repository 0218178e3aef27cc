package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	apihttp "blastcharge/internal/api/http"
	"blastcharge/internal/audit"
	"blastcharge/internal/auth"
	catalog "blastcharge/internal/catalog/domain"
	catalogmemory "blastcharge/internal/catalog/infrastructure/memory"
	catalogpostgres "blastcharge/internal/catalog/infrastructure/postgres"
	cataloginterfaces "blastcharge/internal/catalog/interfaces"
	chargingapp "blastcharge/internal/charging/application"
	"blastcharge/internal/charging/application/events"
	charging "blastcharge/internal/charging/domain"
	chargingmemory "blastcharge/internal/charging/infrastructure/memory"
	chargingpostgres "blastcharge/internal/charging/infrastructure/postgres"
	charginginterfaces "blastcharge/internal/charging/interfaces"
	drillhole "blastcharge/internal/drillhole/domain"
	drillholememory "blastcharge/internal/drillhole/infrastructure/memory"
	drillholepostgres "blastcharge/internal/drillhole/infrastructure/postgres"
	drillholeinterfaces "blastcharge/internal/drillhole/interfaces"
	"blastcharge/internal/formula"
	"blastcharge/internal/observability/metrics"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		opened, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer opened.Close()
		if err := opened.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
		db = opened
	} else {
		logger.Printf("no DATABASE_URL set, using in-memory stores")
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)
	entityChecker := auth.NewEntityChecker(db)

	var productRepo catalog.Repository
	var holeRepo drillhole.Repository
	var chargingStore chargingapp.ChargingStore
	if db != nil {
		productRepo = catalogpostgres.NewProductRepository(db)
		holeRepo = drillholepostgres.NewHoleRepository(db)
		chargingStore = chargingpostgres.NewChargingStore(db)
	} else {
		productRepo = catalogmemory.NewSeededProductRepository()
		holeRepo = drillholememory.NewHoleRepository()
		chargingStore = chargingmemory.NewChargingStore()
	}

	productCatalog, err := catalog.NewCatalog(productRepo)
	if err != nil {
		logger.Fatalf("catalog error: %v", err)
	}
	eval := formula.NewEvaluator(productCatalog)

	engine, err := chargingapp.NewTemplateEngine(productCatalog, eval)
	if err != nil {
		logger.Fatalf("template engine error: %v", err)
	}

	bus := charginginterfaces.NewInMemoryEventBus()
	bus.SubscribeChargingApplied(func(ctx context.Context, event events.ChargingApplied) error {
		_ = ctx
		logger.Printf("charging applied: entity=%s hole=%s template=%s decks=%d mass=%.2fkg",
			event.EntityName, event.HoleID, event.TemplateName, event.DeckCount, event.ExplosiveMassKg)
		return nil
	})
	bus.SubscribeChargingRescaled(func(ctx context.Context, event events.ChargingRescaled) error {
		_ = ctx
		logger.Printf("charging rescaled: entity=%s hole=%s length=%t diameter=%t",
			event.EntityName, event.HoleID, event.LengthChanged, event.DiameterChanged)
		return nil
	})

	service, err := chargingapp.NewChargingService(engine, chargingStore, holeRepo, bus)
	if err != nil {
		logger.Fatalf("charging service error: %v", err)
	}

	library, err := chargingapp.LoadTemplateLibrary(cfg.TemplateLibrary)
	if err != nil {
		logger.Fatalf("template library error: %v", err)
	}
	if names := library.Names(); len(names) > 0 {
		logger.Printf("loaded %d charge templates", len(names))
	}

	chargingHandler, err := charginginterfaces.NewChargingHandler(service, library, entityChecker, auditRepo)
	if err != nil {
		logger.Fatalf("charging handler error: %v", err)
	}
	columnMissing := func(err error) bool { return errors.Is(err, charging.ErrNotFound) }
	holeHandler, err := drillholeinterfaces.NewHoleHandler(holeRepo, service, columnMissing, entityChecker, auditRepo)
	if err != nil {
		logger.Fatalf("hole handler error: %v", err)
	}
	productHandler, err := cataloginterfaces.NewProductHandler(productRepo)
	if err != nil {
		logger.Fatalf("product handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/products", productHandler)
	mux.Handle("/api/v1/holes", holeHandler)
	mux.Handle("/api/v1/holes/", holeHandler)
	mux.Handle("/api/v1/templates", chargingHandler)
	mux.Handle("/api/v1/chargings", chargingHandler)
	mux.Handle("/api/v1/chargings/", chargingHandler)
	mux.Handle("/api/v1/chargings/apply", chargingHandler)
	mux.Handle("/api/v1/stats", apihttp.NewStatsHandler(service, holeRepo))
	mux.Handle("/api/v1/exports/chargings.csv", apihttp.NewExportChargingsCSVHandler(service, holeRepo))
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
	DatabaseURL     string
	HTTPAddr        string
	TemplateLibrary string
	JWTSecret       string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:     getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:        getenvDefault("HTTP_ADDR", ":8080"),
		TemplateLibrary: getenvDefault("TEMPLATE_LIBRARY", ""),
		JWTSecret:       getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
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
