package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"whatsapp-ai-cs/internal/domain/ports/repository"
	"whatsapp-ai-cs/internal/usecase"
)

// Server is the gateway process surface: the messenger webhook, the admin
// dashboard API and operational endpoints.
type Server struct {
	intake   usecase.IntakeUseCase
	history  usecase.HistoryUseCase
	queue    repository.JobQueue
	auth     *AuthManager
	apiKey   string
	mediaDir string
	log      *zerolog.Logger
}

func NewServer(
	intake usecase.IntakeUseCase,
	history usecase.HistoryUseCase,
	queue repository.JobQueue,
	auth *AuthManager,
	apiKey string,
	mediaDir string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		intake:   intake,
		history:  history,
		queue:    queue,
		auth:     auth,
		apiKey:   apiKey,
		mediaDir: mediaDir,
		log:      logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/webhook/wa-in", s.webhookHandler())

	r.Handle("/media/*", http.StripPrefix("/media/",
		http.FileServer(http.Dir(s.mediaDir))))

	r.Post("/api/admin/login", s.loginHandler())
	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/api/admin/chat-contacts", contactsHandler(s.history))
		r.Get("/api/admin/chat-history/{phone}", chatHistoryHandler(s.history))
		r.Get("/api/admin/instruction", instructionGetHandler(s.history))
		r.Put("/api/admin/instruction", instructionPutHandler(s.history))
		r.Get("/api/admin/queue", s.queueStatsHandler())
	})

	return r
}

// requireAdmin admits either a minted session or the raw API key as bearer
// token, so scripts can skip the login round trip.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("admin API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if hdr := r.Header.Get("Authorization"); hdr != "" {
			parts := strings.SplitN(hdr, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") && parts[1] == s.apiKey {
				next.ServeHTTP(w, r)
				return
			}
		}
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
