package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/molsearch/molsearch/application/search"
	"github.com/molsearch/molsearch/application/tasks"
	"github.com/molsearch/molsearch/domain/molecule"
	"github.com/molsearch/molsearch/infrastructure/config"
	"github.com/molsearch/molsearch/interfaces/http/rest/handlers"
	"github.com/molsearch/molsearch/interfaces/http/rest/middleware"
	"github.com/molsearch/molsearch/pkg/common"
	"github.com/molsearch/molsearch/pkg/observability"
)

// Router creates and configures the HTTP router
type Router struct {
	cfg      *config.Config
	store    molecule.Repository
	searcher *search.Service
	tasks    *tasks.Service
	metrics  *observability.Collector
	logger   *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	store molecule.Repository,
	searcher *search.Service,
	taskService *tasks.Service,
	metrics *observability.Collector,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:      cfg,
		store:    store,
		searcher: searcher,
		tasks:    taskService,
		metrics:  metrics,
		logger:   logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.cfg.EnableMetrics {
		router.Use(middleware.Metrics(rt.metrics))
	}

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	// Load balancer check and health
	router.Get("/", rt.serverInfo)
	router.Get("/health", rt.healthCheck)
	if rt.cfg.EnableMetrics {
		router.Handle("/metrics", rt.metrics.Handler())
	}

	// Molecule storage
	moleculeHandler := handlers.NewMoleculeHandler(rt.store, rt.metrics, rt.logger)
	router.Route("/smiles", func(r chi.Router) {
		r.Get("/", moleculeHandler.List)
		r.Post("/", moleculeHandler.Create)
		r.Get("/{id}", moleculeHandler.Get)
		r.Put("/{id}", moleculeHandler.Update)
		r.Delete("/{id}", moleculeHandler.Delete)
	})

	// Substructure search, synchronous and task-based
	searchHandler := handlers.NewSearchHandler(rt.searcher, rt.tasks, rt.logger)
	router.Get("/search/{query}", searchHandler.Search)
	router.Post("/search/{query}", searchHandler.SubmitTask)

	taskHandler := handlers.NewTaskHandler(rt.tasks)
	router.Get("/tasks/{taskID}", taskHandler.GetTask)

	// Bulk upload
	router.Post("/molecules/", moleculeHandler.Upload)

	return router
}

// serverInfo reports the configured server identity tag, used to
// confirm load-balancer distribution across web containers.
func (rt *Router) serverInfo(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"server_id": rt.cfg.ServerID})
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
