package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"whatsapp-ai-cs/internal/domain"
	"whatsapp-ai-cs/internal/usecase"
)

// webhookPayload mirrors what the messenger gateway posts. Field names are
// the gateway's, not ours.
type webhookPayload struct {
	Direction   string `json:"direction"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	PhoneNo     string `json:"phone_no"`
	Message     string `json:"message"`
	SenderName  string `json:"sender_name"`
	Media       string `json:"media"` // base64 or "none"
}

// webhookHandler accepts inbound messages. It answers 200 for everything it
// deliberately ignores; the gateway retries non-2xx responses and we never
// want an ignored event redelivered.
func (s *Server) webhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p webhookPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		job, err := s.intake.Accept(r.Context(), &usecase.InboundEvent{
			Direction:   p.Direction,
			ContactName: p.ContactName,
			Phone:       p.Phone,
			PhoneNo:     p.PhoneNo,
			Message:     p.Message,
			SenderName:  p.SenderName,
			MediaBase64: p.Media,
		})
		if errors.Is(err, domain.ErrNotListening) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("Ignored: Not Whitelisted"))
			return
		}
		if err != nil {
			s.log.Error().Err(err).Msg("webhook intake failed")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if job == nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("Ignored"))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(struct {
			Status string `json:"status"`
			JobID  string `json:"job_id"`
		}{Status: "queued", JobID: job.ID})
	}
}

// loginHandler swaps the API key for a session cookie the dashboard can use.
func (s *Server) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			APIKey string `json:"api_key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if s.apiKey == "" || req.APIKey != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		token, err := s.auth.Mint(w)
		if err != nil {
			s.log.Error().Err(err).Msg("session mint failed")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Token string `json:"token"`
		}{Token: token})
	}
}

// contactsHandler serves the dashboard sidebar: one row per contact with the
// latest message.
func contactsHandler(historyUC usecase.HistoryUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contacts, err := historyUC.Contacts(r.Context())
		if err != nil {
			http.Error(w, "Failed to list contacts", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(contacts)
	}
}

// chatHistoryHandler serves one contact's conversation, oldest first.
func chatHistoryHandler(historyUC usecase.HistoryUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phone := chi.URLParam(r, "phone")
		if phone == "" {
			http.Error(w, "Phone is required", http.StatusBadRequest)
			return
		}
		turns, err := historyUC.History(r.Context(), phone)
		if err != nil {
			http.Error(w, "Failed to get history", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(turns)
	}
}

func instructionGetHandler(historyUC usecase.HistoryUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		value, err := historyUC.Instruction(r.Context())
		if errors.Is(err, domain.ErrNotFound) {
			value = ""
		} else if err != nil {
			http.Error(w, "Failed to get instruction", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(struct {
			Instruction string `json:"instruction"`
		}{Instruction: value})
	}
}

// queueStatsHandler reports queue depth and recent dead letters so an
// operator can spot a stuck pipeline without shelling into redis.
func (s *Server) queueStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		depth, err := s.queue.Depth(r.Context())
		if err != nil {
			http.Error(w, "Failed to read queue", http.StatusInternalServerError)
			return
		}
		dead, err := s.queue.DeadLetters(r.Context(), 50)
		if err != nil {
			http.Error(w, "Failed to read dead letters", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(struct {
			Depth       int64    `json:"depth"`
			DeadLetters []string `json:"dead_letters"`
		}{Depth: depth, DeadLetters: dead})
	}
}

func instructionPutHandler(historyUC usecase.HistoryUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Instruction string `json:"instruction"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Instruction) == "" {
			http.Error(w, "Instruction must not be empty", http.StatusBadRequest)
			return
		}
		if err := historyUC.UpdateInstruction(r.Context(), req.Instruction); err != nil {
			http.Error(w, "Failed to update instruction", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
