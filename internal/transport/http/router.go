package http

import (
	"net/http"
	"time"

	httpmw "github.com/virtual-dev/presence-service/internal/transport/http/middleware"
	"github.com/virtual-dev/presence-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(h *Handler, wsServer *ws.Server, corsOrigins []string, adminToken string) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	if len(corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   corsOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}))
	}

	// WS endpoint; no timeout middleware here, connections are long-lived
	r.Get("/ws", wsServer.HandleWS)

	r.Route("/api", func(api chi.Router) {
		api.Use(middlewareChi.Throttle(100))

		api.Get("/status", h.Status)
		api.Get("/chat/history", h.ChatHistory)

		api.Group(func(npc chi.Router) {
			npc.Use(middlewareChi.Timeout(2 * time.Minute))
			npc.Post("/npc/chat", h.NPCChat)
			npc.Post("/npc/chat/stream", h.NPCChatStream)
		})

		api.Group(func(admin chi.Router) {
			admin.Use(httpmw.AdminAuth(adminToken))
			admin.Use(middlewareChi.Timeout(30 * time.Second))
			admin.Get("/admin/users", h.AdminUsers)
			admin.Get("/admin/metrics", h.AdminMetrics)
			admin.Get("/admin/health", h.AdminHealth)
			admin.Post("/admin/kick", h.AdminKick)
			admin.Post("/admin/broadcast", h.AdminBroadcast)
		})
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
