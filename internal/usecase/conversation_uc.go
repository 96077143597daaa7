package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"whatsapp-ai-cs/internal/domain"
	"whatsapp-ai-cs/internal/domain/model"
	"whatsapp-ai-cs/internal/domain/ports/adapter"
	"whatsapp-ai-cs/internal/domain/ports/repository"
	"whatsapp-ai-cs/internal/infra/metrics"
)

// defaultInstruction is used when no instruction is configured yet.
const defaultInstruction = "Kamu adalah Kak Shofiya, customer service toko busana muslimah. " +
	"Jawab dengan ramah dan singkat dalam Bahasa Indonesia. Gunakan tools yang tersedia " +
	"untuk mengecek stok dan status pesanan sebelum menjawab pertanyaan tentang produk atau order."

// maxRoundsDefault caps tool-calling round trips per job. A model that keeps
// asking for tools gets cut off, not retried.
const maxRoundsDefault = 5

// Compile-time check
var _ ConversationUseCase = (*conversationUC)(nil)

// ConversationUseCase turns one inbound job into a reply.
type ConversationUseCase interface {
	// Respond runs the full conversation loop for a job. It returns
	// domain.ErrNoResponse when the model yields nothing deliverable
	// (callers ack the job and send nothing). Any other error is
	// transient and rides the job's retry budget.
	Respond(ctx context.Context, job *model.ChatJob) (string, error)
}

type conversationUC struct {
	history      repository.ChatLogRepository
	sysConfig    repository.SystemConfigRepository
	model        adapter.ModelAdapter
	tools        *ToolDispatcher
	log          *zerolog.Logger
	historyLimit int
	maxRounds    int
}

func NewConversationUseCase(
	history repository.ChatLogRepository,
	sysConfig repository.SystemConfigRepository,
	modelAdapter adapter.ModelAdapter,
	tools *ToolDispatcher,
	historyLimit int,
	maxRounds int,
	log *zerolog.Logger,
) *conversationUC {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	if maxRounds <= 0 {
		maxRounds = maxRoundsDefault
	}
	return &conversationUC{
		history:      history,
		sysConfig:    sysConfig,
		model:        modelAdapter,
		tools:        tools,
		log:          log,
		historyLimit: historyLimit,
		maxRounds:    maxRounds,
	}
}

func (c *conversationUC) Respond(ctx context.Context, job *model.ChatJob) (string, error) {
	if !job.Valid() {
		return "", domain.ErrInvalidJob
	}
	userText := strings.TrimSpace(job.Message)
	if userText == "" {
		// Media-only message; the model still needs something to react to.
		userText = fmt.Sprintf("[mengirim %s]", job.MediaKind)
	}

	// The user turn is appended before the model call, as the original
	// system does. The (job_id, role) dedup in the repo makes this safe
	// under redelivery.
	userTurn := &model.ChatTurn{
		JobID:      job.ID,
		Phone:      job.Phone,
		Role:       model.RoleUser,
		Message:    userText,
		SenderName: job.SenderName,
		Timestamp:  time.Now(),
	}
	if job.MediaURL != "" {
		userTurn.Media = &model.TurnMedia{Kind: job.MediaKind, URL: job.MediaURL}
	}
	if err := c.history.AppendTurn(ctx, userTurn); err != nil {
		return "", fmt.Errorf("append user turn: %w", err)
	}

	turns, err := c.history.RecentTurns(ctx, job.Phone, c.historyLimit)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}
	msgs := make([]adapter.Message, 0, len(turns))
	for _, t := range turns {
		// The just-appended user turn goes to the model as the fresh
		// message, not as history.
		if t.JobID == job.ID && t.Role == model.RoleUser {
			continue
		}
		role := model.RoleAssistant
		if t.Role == model.RoleUser {
			role = model.RoleUser
		}
		msgs = append(msgs, adapter.Message{Role: role, Content: t.Message})
	}

	instruction := c.instruction(ctx)

	start := time.Now()
	conv, turn, err := c.model.Start(ctx, instruction, msgs, userText)
	metrics.ObserveModelCall("primary", int(time.Since(start).Milliseconds()), err == nil)
	if err != nil {
		return "", fmt.Errorf("model call: %w", err)
	}

	rounds := 0
	for !turn.Final() {
		rounds++
		if rounds > c.maxRounds {
			c.log.Warn().
				Str("job_id", job.ID).
				Int("rounds", rounds-1).
				Msg("round cap reached; cutting model off")
			metrics.ObserveRounds(rounds - 1)
			if text := strings.TrimSpace(turn.Text); text != "" {
				return c.finish(ctx, job, text)
			}
			return "", domain.ErrNoResponse
		}

		// Every call in the round gets answered before the model is asked
		// to continue; partial batches would stall the protocol.
		results := make([]model.ToolResult, 0, len(turn.Calls))
		for _, call := range turn.Calls {
			c.log.Debug().
				Str("job_id", job.ID).
				Str("tool", call.Name).
				Int("round", rounds).
				Msg("executing tool call")
			results = append(results, c.tools.Invoke(ctx, call, job.Phone))
		}

		start = time.Now()
		turn, err = conv.Continue(ctx, results)
		metrics.ObserveModelCall("primary", int(time.Since(start).Milliseconds()), err == nil)
		if err != nil {
			return "", fmt.Errorf("model round %d: %w", rounds, err)
		}
	}
	metrics.ObserveRounds(rounds)

	reply := strings.TrimSpace(turn.Text)
	if reply == "" {
		c.log.Warn().Str("job_id", job.ID).Msg("model returned empty final response")
		return "", domain.ErrNoResponse
	}
	return c.finish(ctx, job, reply)
}

// finish persists the assistant turn; the reply only counts once it is in
// the log.
func (c *conversationUC) finish(ctx context.Context, job *model.ChatJob, reply string) (string, error) {
	assistantTurn := &model.ChatTurn{
		JobID:     job.ID,
		Phone:     job.Phone,
		Role:      model.RoleAssistant,
		Message:   reply,
		Timestamp: time.Now(),
	}
	if err := c.history.AppendTurn(ctx, assistantTurn); err != nil {
		return "", fmt.Errorf("append assistant turn: %w", err)
	}
	return reply, nil
}

// instruction is read from storage on every job so admin edits apply to the
// next job in every worker process. No caching.
func (c *conversationUC) instruction(ctx context.Context) string {
	value, err := c.sysConfig.GetInstruction(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			c.log.Error().Err(err).Msg("instruction read failed; using fallback")
		}
		return defaultInstruction
	}
	if strings.TrimSpace(value) == "" {
		return defaultInstruction
	}
	return value
}
