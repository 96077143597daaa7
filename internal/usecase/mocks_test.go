// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sync"
	"time"

	"whatsapp-ai-cs/internal/domain"
	"whatsapp-ai-cs/internal/domain/model"
	"whatsapp-ai-cs/internal/domain/ports/adapter"
)

// memChatLog is a small in-memory chat log used by unit tests. It enforces
// the same (job_id, role) dedup the postgres repo does.
type memChatLog struct {
	mu        sync.Mutex
	turns     []model.ChatTurn
	appendErr error // used by tests to simulate write failures
}

func newMemChatLog() *memChatLog {
	return &memChatLog{}
}

func (m *memChatLog) AppendTurn(ctx context.Context, turn *model.ChatTurn) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if turn.JobID != "" {
		for _, t := range m.turns {
			if t.JobID == turn.JobID && t.Role == turn.Role {
				return nil
			}
		}
	}
	m.turns = append(m.turns, *turn)
	return nil
}

func (m *memChatLog) RecentTurns(ctx context.Context, phone string, limit int) ([]model.ChatTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ChatTurn
	for _, t := range m.turns {
		if t.Phone == phone {
			out = append(out, t)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *memChatLog) HistoryByContact(ctx context.Context, phone string, limit int) ([]model.ChatTurn, error) {
	return m.RecentTurns(ctx, phone, limit)
}

func (m *memChatLog) ListContacts(ctx context.Context) ([]model.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]model.Contact{}
	for _, t := range m.turns {
		seen[t.Phone] = model.Contact{Phone: t.Phone, LastMessage: t.Message, LastTime: t.Timestamp}
	}
	out := make([]model.Contact, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}
	return out, nil
}

func (m *memChatLog) count(role string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.turns {
		if t.Role == role {
			n++
		}
	}
	return n
}

func (m *memChatLog) last() *model.ChatTurn {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.turns) == 0 {
		return nil
	}
	cp := m.turns[len(m.turns)-1]
	return &cp
}

// memSysConfig holds the instruction in memory.
type memSysConfig struct {
	mu    sync.Mutex
	value string
	reads int
}

func (m *memSysConfig) GetInstruction(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.value == "" {
		return "", domain.ErrNotFound
	}
	return m.value, nil
}

func (m *memSysConfig) SetInstruction(ctx context.Context, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = value
	return nil
}

// scriptedModel replays a fixed sequence of turns: the first on Start, the
// rest on each Continue. It records the tool results it was given.
type scriptedModel struct {
	turns    []*adapter.ModelTurn
	gotInstr string
	gotHist  []adapter.Message
	gotMsg   string
	results  [][]model.ToolResult
	pos      int
	err      error
}

func (s *scriptedModel) Start(ctx context.Context, instruction string, history []adapter.Message, userMessage string) (adapter.ModelConversation, *adapter.ModelTurn, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	s.gotInstr = instruction
	s.gotHist = history
	s.gotMsg = userMessage
	s.pos = 1
	return s, s.turns[0], nil
}

func (s *scriptedModel) Continue(ctx context.Context, results []model.ToolResult) (*adapter.ModelTurn, error) {
	s.results = append(s.results, results)
	if s.pos >= len(s.turns) {
		// A model that is out of script keeps asking for the same tool.
		return s.turns[len(s.turns)-1], nil
	}
	turn := s.turns[s.pos]
	s.pos++
	return turn, nil
}

// fakeERP answers from fixed fixtures.
type fakeERP struct {
	listings   []model.InventoryListing
	order      *model.OrderSummary
	validation *model.OrderValidation
	searchErr  error
	orderErr   error
	calls      []string
}

func (f *fakeERP) SearchInventory(ctx context.Context, keyword string) ([]model.InventoryListing, error) {
	f.calls = append(f.calls, "searchInventory:"+keyword)
	return f.listings, f.searchErr
}

func (f *fakeERP) FindCustomerOrder(ctx context.Context, query string) (*model.OrderSummary, error) {
	f.calls = append(f.calls, "findCustomerOrder:"+query)
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	if f.order == nil {
		return nil, domain.ErrNotFound
	}
	return f.order, nil
}

func (f *fakeERP) ValidateOrder(ctx context.Context, itemGroupID int64, quantity int) (*model.OrderValidation, error) {
	f.calls = append(f.calls, "validateOrder")
	if f.validation == nil {
		return &model.OrderValidation{Valid: true, Message: "ok"}, nil
	}
	return f.validation, nil
}

// memJobQueue records enqueued jobs; enough for intake tests.
type memJobQueue struct {
	mu       sync.Mutex
	jobs     []*model.ChatJob
	policies []model.RetryPolicy
	err      error
}

func (q *memJobQueue) Enqueue(ctx context.Context, job *model.ChatJob, policy model.RetryPolicy) error {
	if q.err != nil {
		return q.err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	q.policies = append(q.policies, policy)
	return nil
}

func (q *memJobQueue) Dequeue(ctx context.Context) (*model.ChatJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil, nil
	}
	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	j.Attempts++
	return j, nil
}

func (q *memJobQueue) ExtendLease(ctx context.Context, jobID string, d time.Duration) error {
	return nil
}
func (q *memJobQueue) Ack(ctx context.Context, jobID string) error { return nil }
func (q *memJobQueue) Fail(ctx context.Context, jobID string, reason string) (bool, error) {
	return false, nil
}
func (q *memJobQueue) ReclaimExpired(ctx context.Context, now time.Time, limit int64) (int, error) {
	return 0, nil
}
func (q *memJobQueue) PromoteScheduled(ctx context.Context, now time.Time, limit int64) (int, error) {
	return 0, nil
}
func (q *memJobQueue) DeadLetters(ctx context.Context, limit int64) ([]string, error) {
	return nil, nil
}
func (q *memJobQueue) Depth(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.jobs)), nil
}
