package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cardline/backend/internal/config"
	"github.com/cardline/backend/internal/handler/agent"
	"github.com/cardline/backend/internal/handler/tools"
	"github.com/cardline/backend/internal/handler/voice"
	"github.com/cardline/backend/internal/handler/webhook"
	middlewarePkg "github.com/cardline/backend/internal/middleware"
	accountsService "github.com/cardline/backend/internal/service/accounts"
	resolutionService "github.com/cardline/backend/internal/service/resolution"
	speechService "github.com/cardline/backend/internal/service/speech"
	"github.com/cardline/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(conf *config.Config, resolutionSvc *resolutionService.Service, accountsSvc *accountsService.Service, speechSvc *speechService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(conf.Server.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "cardline",
		})
	})

	agentHandler := agent.New(resolutionSvc)
	toolsHandler := tools.New(accountsSvc)
	webhookHandler := webhook.New(accountsSvc)

	r.Route("/api", func(api chi.Router) {
		// Tool, agent and webhook routes share the provider secret check.
		api.Group(func(protected chi.Router) {
			protected.Use(middlewarePkg.RequireSecret(conf.Webhook.Secret))

			agentHandler.RegisterRoutes(protected)
			toolsHandler.RegisterRoutes(protected)
			webhookHandler.RegisterRoutes(protected)
		})

		// Raw speech passthrough only exists when the provider is configured.
		if speechSvc != nil {
			voiceHandler := voice.New(speechSvc)
			voiceHandler.RegisterRoutes(api)
		} else {
			api.Post("/voice/*", func(w http.ResponseWriter, _ *http.Request) {
				utils.RespondError(w, http.StatusServiceUnavailable, "speech provider not configured")
			})
		}
	})

	return r
}
