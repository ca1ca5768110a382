package http

import (
	nethttp "net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/triage-backend/internal/http/handlers"
	httpMW "github.com/yungbote/triage-backend/internal/http/middleware"
	"github.com/yungbote/triage-backend/internal/http/response"
	"github.com/yungbote/triage-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string

	HealthHandler      *httpH.HealthHandler
	ApplicationHandler *httpH.ApplicationHandler
	PipelineHandler    *httpH.PipelineHandler
	IngestionHandler   *httpH.IngestionHandler
	PotentialHandler   *httpH.PotentialHandler
	PreferenceHandler  *httpH.PreferenceHandler
	DispatchHandler    *httpH.DispatchHandler
	RealtimeHandler    *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	r.NoMethod(func(c *gin.Context) {
		response.RespondError(c, nethttp.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
	r.NoRoute(func(c *gin.Context) {
		response.RespondError(c, nethttp.StatusNotFound, "not_found", nil)
	})

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// Pipeline contracts
	if cfg.PipelineHandler != nil {
		r.POST("/deep-analysis", cfg.PipelineHandler.DeepAnalysis)
		r.POST("/process-research-paper", cfg.PipelineHandler.ProcessResearchPaper)
		r.POST("/deep-analysis-webhook", cfg.PipelineHandler.DeepAnalysisWebhook)
	}
	if cfg.IngestionHandler != nil {
		r.POST("/n8n-callback", cfg.IngestionHandler.Callback)
		r.POST("/insert-criteria-score", cfg.IngestionHandler.InsertScore)
	}

	api := r.Group("/api")
	{
		if cfg.ApplicationHandler != nil {
			api.POST("/applications", cfg.ApplicationHandler.Create)
			api.POST("/applications/upload", cfg.ApplicationHandler.Upload)
			api.GET("/applications", cfg.ApplicationHandler.List)
			api.GET("/applications/:id", cfg.ApplicationHandler.Get)
			api.GET("/applications/:id/status", cfg.ApplicationHandler.GetStatus)
			api.POST("/applications/:id/status", cfg.ApplicationHandler.SetStatus)
			api.POST("/applications/:id/deep-analysis", cfg.ApplicationHandler.StartDeepAnalysis)
			api.GET("/applications/:id/pdf-url", cfg.ApplicationHandler.PaperURL)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/events", cfg.RealtimeHandler.Stream)
			api.GET("/applications/:id/events", cfg.RealtimeHandler.ApplicationEvents)
		}

		if cfg.PotentialHandler != nil {
			api.GET("/potentials", cfg.PotentialHandler.List)
			api.POST("/potentials", cfg.PotentialHandler.Create)
			api.GET("/potentials/:id", cfg.PotentialHandler.Get)
			api.PATCH("/potentials/:id", cfg.PotentialHandler.Update)
		}

		if cfg.PreferenceHandler != nil {
			api.GET("/preferences", cfg.PreferenceHandler.List)
			api.PUT("/preferences", cfg.PreferenceHandler.Save)
			api.POST("/preferences/reset", cfg.PreferenceHandler.Reset)
		}

		if cfg.DispatchHandler != nil {
			api.GET("/dispatches", cfg.DispatchHandler.List)
			api.POST("/dispatches/:id/retry", cfg.DispatchHandler.Retry)
		}
	}

	return r
}
