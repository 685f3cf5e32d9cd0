package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/rowlab/rowlab/internal/athletes"
	"github.com/rowlab/rowlab/internal/clubs"
	"github.com/rowlab/rowlab/internal/config"
	"github.com/rowlab/rowlab/internal/db"
	"github.com/rowlab/rowlab/internal/ergstats"
	"github.com/rowlab/rowlab/internal/middleware"
	"github.com/rowlab/rowlab/internal/misc"
	"github.com/rowlab/rowlab/internal/telemetry/metrics"
	"github.com/rowlab/rowlab/internal/telemetry/tracing"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config       *config.Config
	dbPool       *pgxpool.Pool
	redisClient  *redis.Client
	athleteCache *athletes.Cache

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": "rowlab_db"},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("rowlab", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0) // will be set to 1 when all is set and ran

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "rowlab-backend", rdb)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:       params.Config,
		dbPool:       dbPool,
		versionInfo:  params.VersionInfo,
		redisClient:  rdb,
		athleteCache: athletes.NewCache(athletes.NewRepo(dbPool)),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}

	return s, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	clubsHandler := clubs.NewHandler(clubs.NewRepo(s.dbPool))
	r.HandleFunc("/clubs", clubsHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-club")
	r.HandleFunc("/clubs", clubsHandler.HandleList).Methods("GET", "OPTIONS").Name("list-clubs")
	r.HandleFunc("/clubs/{id}", clubsHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-club")

	athletesHandler := athletes.NewHandler(athletes.NewRepo(s.dbPool), s.athleteCache)
	r.HandleFunc("/athletes", athletesHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-athlete")
	r.HandleFunc("/athletes", athletesHandler.HandleList).Methods("GET", "OPTIONS").Name("list-athletes")
	r.HandleFunc("/athletes", athletesHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-athlete")
	r.HandleFunc("/athletes/{id}", athletesHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-athlete")
	r.HandleFunc("/athletes/{id}", athletesHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-athlete")

	ergTestsRepo := ergstats.NewRepo(s.dbPool)
	submitGuard := ergstats.NewSubmitGuard(s.redisClient, ergstats.DefaultSubmitGuardWindow)
	ergTestsHandler := ergstats.NewHandler(ergTestsRepo, s.athleteCache, submitGuard, s.metricsManager)

	// erg test results come in from the boathouse, often on flaky mobile
	// connections with trigger-happy retry buttons - rate limit the ingest
	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	ingestRateLimit := middleware.RateLimit(
		reqRateLimiter,
		"erg-tests-ingest",
		s.config.ErgTestsRateLimitAllowedPerMin,
		s.metricsManager,
	)
	r.Handle("/tests", ingestRateLimit(http.HandlerFunc(ergTestsHandler.HandleAdd))).
		Methods("POST", "OPTIONS").Name("new-erg-test")
	r.Handle("/tests", ingestRateLimit(http.HandlerFunc(ergTestsHandler.HandleUpdate))).
		Methods("PUT", "OPTIONS").Name("update-erg-test")

	r.HandleFunc("/tests/{id}", ergTestsHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-erg-test")
	r.HandleFunc("/tests/{id}", ergTestsHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-erg-test")
	r.HandleFunc("/tests/list/page/{page}/size/{size}", ergTestsHandler.HandleList).Methods("GET", "OPTIONS").Name("list-erg-tests")
	r.HandleFunc("/tests/athlete/{id}/stats", ergTestsHandler.HandleAthleteStats).Methods("GET", "OPTIONS").Name("athlete-stats")
	r.HandleFunc("/tests/athlete/{id}/overview", ergTestsHandler.HandleOverview).Methods("GET", "OPTIONS").Name("athlete-overview")
	r.HandleFunc("/tests/athlete/{id}/predictions", ergTestsHandler.HandlePredictions).Methods("GET", "OPTIONS").Name("athlete-predictions")
	r.HandleFunc("/tests/athlete/{id}/zones", ergTestsHandler.HandleTrainingZones).Methods("GET", "OPTIONS").Name("athlete-zones")
	r.HandleFunc("/tests/athlete/{id}/progression", ergTestsHandler.HandleProgression).Methods("GET", "OPTIONS").Name("athlete-progression")
	r.HandleFunc("/tests/athlete/{id}/comparison", ergTestsHandler.HandleComparison).Methods("GET", "OPTIONS").Name("athlete-comparison")

	miscHandler := misc.NewHandler(s.versionInfo)
	miscHandler.SetupRoutes(r)

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.InstrumentMetricHandler(
		s.promRegistry,
		promhttp.HandlerFor(
			s.promRegistry,
			promhttp.HandlerOpts{},
		),
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
	}
	log.Warnln("metrics server shut down")
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
