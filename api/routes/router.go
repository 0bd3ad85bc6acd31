package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/palletflow/api/controllers"
	"github.com/angelmondragon/palletflow/api/middleware"
	"github.com/angelmondragon/palletflow/pkg/config"
	"github.com/angelmondragon/palletflow/pkg/db"
	"github.com/angelmondragon/palletflow/pkg/logger"
	"github.com/angelmondragon/palletflow/pkg/redis"
)

// NewRouter wires the health, metrics, pipeline and ledger history endpoints. dbP and
// redisClient may be nil when the deployment runs without them.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	runner controllers.PipelineRunner,
	history controllers.HistoryReader,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	deps := map[string]controllers.Pinger{}
	if dbP != nil {
		deps["db"] = dbP
	}
	if redisClient != nil {
		deps["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})
	r.Method(http.MethodGet, "/metrics", controllers.Metrics(gatherer))

	r.Route("/api/v1", func(r chi.Router) {
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Post("/pipeline/runs", controllers.PipelineRun(runner, logg))
		r.Post("/rebuilds", controllers.Rebuild(runner, logg))
		r.Route("/pallets/{palletID}", func(r chi.Router) {
			r.Get("/history", controllers.PalletHistory(history, logg))
			r.Post("/materialize", controllers.MaterializePallet(runner, logg))
			r.Post("/grn-status", controllers.PropagateGRNStatus(runner, logg))
		})
	})

	return r
}
