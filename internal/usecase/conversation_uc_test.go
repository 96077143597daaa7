// File: internal/usecase/conversation_uc_test.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"whatsapp-ai-cs/internal/config"
	"whatsapp-ai-cs/internal/domain"
	"whatsapp-ai-cs/internal/domain/model"
	"whatsapp-ai-cs/internal/domain/ports/adapter"
	"whatsapp-ai-cs/internal/infra/logging"

	"github.com/rs/zerolog"
)

func testLogger() *zerolog.Logger {
	return logging.New(config.LogConfig{Level: "error", Format: "console"}, true)
}

func testJob() *model.ChatJob {
	return &model.ChatJob{
		ID:         "01JOB",
		Phone:      "628123456789",
		Message:    "Halo, gamis Adelia ready?",
		SenderName: "Bu Rina",
		CreatedAt:  time.Now(),
	}
}

func newConvForTest(m *scriptedModel, chatLog *memChatLog, sys *memSysConfig, erp *fakeERP, maxRounds int) ConversationUseCase {
	if chatLog == nil {
		chatLog = newMemChatLog()
	}
	if sys == nil {
		sys = &memSysConfig{}
	}
	if erp == nil {
		erp = &fakeERP{}
	}
	log := testLogger()
	tools := NewToolDispatcher(erp, log)
	return NewConversationUseCase(chatLog, sys, m, tools, 10, maxRounds, log)
}

func TestRespond_DirectReply(t *testing.T) {
	ctx := context.Background()
	chatLog := newMemChatLog()
	m := &scriptedModel{turns: []*adapter.ModelTurn{
		{Text: "Halo Kak! Ada yang bisa dibantu?"},
	}}
	uc := newConvForTest(m, chatLog, nil, nil, 5)

	reply, err := uc.Respond(ctx, testJob())
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if reply != "Halo Kak! Ada yang bisa dibantu?" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if got := chatLog.count(model.RoleUser); got != 1 {
		t.Errorf("user turns = %d, want 1", got)
	}
	if got := chatLog.count(model.RoleAssistant); got != 1 {
		t.Errorf("assistant turns = %d, want 1", got)
	}
	if last := chatLog.last(); last == nil || last.Role != model.RoleAssistant || last.JobID != "01JOB" {
		t.Errorf("assistant turn not keyed to job: %+v", last)
	}
}

func TestRespond_SingleToolRound(t *testing.T) {
	ctx := context.Background()
	erp := &fakeERP{listings: []model.InventoryListing{
		{Name: "Gamis Adelia", Price: 289000, TotalStock: 12, ItemGroupID: 42},
	}}
	m := &scriptedModel{turns: []*adapter.ModelTurn{
		{Calls: []model.ToolCall{{ID: "c1", Name: "searchInventory", Args: map[string]any{"keyword": "adelia"}}}},
		{Text: "Gamis Adelia ready 12 pcs, harga 289rb ya Kak."},
	}}
	uc := newConvForTest(m, nil, nil, erp, 5)

	reply, err := uc.Respond(ctx, testJob())
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !strings.Contains(reply, "Adelia") {
		t.Errorf("reply lost tool context: %q", reply)
	}
	if len(erp.calls) != 1 || erp.calls[0] != "searchInventory:adelia" {
		t.Errorf("erp calls = %v", erp.calls)
	}
	if len(m.results) != 1 || len(m.results[0]) != 1 {
		t.Fatalf("tool results = %v", m.results)
	}
	if r := m.results[0][0]; r.ID != "c1" || r.Name != "searchInventory" {
		t.Errorf("result not matched to call: %+v", r)
	}
}

func TestRespond_AnswersFullBatch(t *testing.T) {
	ctx := context.Background()
	erp := &fakeERP{
		listings: []model.InventoryListing{{Name: "Khimar Aira", Price: 95000, TotalStock: 3}},
		order:    &model.OrderSummary{OrderNo: "SO-100", Status: "Dikirim", TrackingNo: "JNE123"},
	}
	m := &scriptedModel{turns: []*adapter.ModelTurn{
		{Calls: []model.ToolCall{
			{ID: "a", Name: "searchInventory", Args: map[string]any{"keyword": "aira"}},
			{ID: "b", Name: "findCustomerOrder", Args: map[string]any{"query": "SO-100"}},
		}},
		{Text: "Stok ada, pesanan Kakak sudah dikirim."},
	}}
	uc := newConvForTest(m, nil, nil, erp, 5)

	if _, err := uc.Respond(ctx, testJob()); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if len(m.results) != 1 {
		t.Fatalf("continue rounds = %d, want 1", len(m.results))
	}
	if len(m.results[0]) != 2 {
		t.Fatalf("batch answered partially: %d results", len(m.results[0]))
	}
	if m.results[0][0].ID != "a" || m.results[0][1].ID != "b" {
		t.Errorf("results out of order: %+v", m.results[0])
	}
}

func TestRespond_OrderLookupFallsBackToPhone(t *testing.T) {
	ctx := context.Background()
	erp := &fakeERP{order: &model.OrderSummary{OrderNo: "SO-7", Status: "Diproses"}}
	m := &scriptedModel{turns: []*adapter.ModelTurn{
		{Calls: []model.ToolCall{{ID: "c1", Name: "findCustomerOrder", Args: map[string]any{}}}},
		{Text: "Pesanan Kakak sedang diproses ya."},
	}}
	uc := newConvForTest(m, nil, nil, erp, 5)

	if _, err := uc.Respond(ctx, testJob()); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if len(erp.calls) != 1 || erp.calls[0] != "findCustomerOrder:628123456789" {
		t.Errorf("order lookup did not fall back to contact number: %v", erp.calls)
	}
}

func TestRespond_RoundCapCutsOffWithText(t *testing.T) {
	ctx := context.Background()
	// The model never stops asking for tools; the last scripted turn repeats.
	m := &scriptedModel{turns: []*adapter.ModelTurn{
		{
			Text:  "Sebentar ya Kak, saya cek dulu.",
			Calls: []model.ToolCall{{ID: "x", Name: "searchInventory", Args: map[string]any{"keyword": "gamis"}}},
		},
	}}
	uc := newConvForTest(m, nil, nil, nil, 3)

	reply, err := uc.Respond(ctx, testJob())
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if reply != "Sebentar ya Kak, saya cek dulu." {
		t.Errorf("expected partial text at cap, got %q", reply)
	}
	if len(m.results) != 3 {
		t.Errorf("continue rounds = %d, want exactly the cap", len(m.results))
	}
}

func TestRespond_RoundCapWithoutTextIsNoResponse(t *testing.T) {
	ctx := context.Background()
	m := &scriptedModel{turns: []*adapter.ModelTurn{
		{Calls: []model.ToolCall{{ID: "x", Name: "searchInventory", Args: map[string]any{"keyword": "gamis"}}}},
	}}
	uc := newConvForTest(m, nil, nil, nil, 2)

	_, err := uc.Respond(ctx, testJob())
	if !errors.Is(err, domain.ErrNoResponse) {
		t.Fatalf("err = %v, want ErrNoResponse", err)
	}
}

func TestRespond_EmptyFinalIsNoResponse(t *testing.T) {
	ctx := context.Background()
	chatLog := newMemChatLog()
	m := &scriptedModel{turns: []*adapter.ModelTurn{{Text: "   "}}}
	uc := newConvForTest(m, chatLog, nil, nil, 5)

	_, err := uc.Respond(ctx, testJob())
	if !errors.Is(err, domain.ErrNoResponse) {
		t.Fatalf("err = %v, want ErrNoResponse", err)
	}
	if got := chatLog.count(model.RoleAssistant); got != 0 {
		t.Errorf("empty reply must not be persisted, got %d assistant turns", got)
	}
}

func TestRespond_InvalidJob(t *testing.T) {
	ctx := context.Background()
	uc := newConvForTest(&scriptedModel{turns: []*adapter.ModelTurn{{Text: "x"}}}, nil, nil, nil, 5)

	_, err := uc.Respond(ctx, &model.ChatJob{ID: "01BAD", Phone: ""})
	if !errors.Is(err, domain.ErrInvalidJob) {
		t.Fatalf("err = %v, want ErrInvalidJob", err)
	}
}

func TestRespond_MediaOnlyMessage(t *testing.T) {
	ctx := context.Background()
	m := &scriptedModel{turns: []*adapter.ModelTurn{{Text: "Fotonya sudah kami terima ya Kak."}}}
	uc := newConvForTest(m, nil, nil, nil, 5)

	job := testJob()
	job.Message = ""
	job.MediaURL = "/media/wa_628_1.jpg"
	job.MediaKind = model.MediaImage

	if _, err := uc.Respond(ctx, job); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if m.gotMsg != "[mengirim image]" {
		t.Errorf("media placeholder = %q", m.gotMsg)
	}
}

func TestRespond_RedeliveryDoesNotDuplicateTurns(t *testing.T) {
	ctx := context.Background()
	chatLog := newMemChatLog()
	m := &scriptedModel{turns: []*adapter.ModelTurn{{Text: "Siap Kak!"}}}
	uc := newConvForTest(m, chatLog, nil, nil, 5)

	job := testJob()
	if _, err := uc.Respond(ctx, job); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if _, err := uc.Respond(ctx, job); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if got := chatLog.count(model.RoleUser); got != 1 {
		t.Errorf("user turns after redelivery = %d, want 1", got)
	}
	if got := chatLog.count(model.RoleAssistant); got != 1 {
		t.Errorf("assistant turns after redelivery = %d, want 1", got)
	}
}

func TestRespond_InstructionReadFreshEachJob(t *testing.T) {
	ctx := context.Background()
	sys := &memSysConfig{value: "Kamu adalah CS toko."}
	m := &scriptedModel{turns: []*adapter.ModelTurn{{Text: "Baik Kak."}}}
	uc := newConvForTest(m, nil, sys, nil, 5)

	if _, err := uc.Respond(ctx, testJob()); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if m.gotInstr != "Kamu adalah CS toko." {
		t.Errorf("instruction = %q", m.gotInstr)
	}

	if err := sys.SetInstruction(ctx, "Kamu adalah CS butik."); err != nil {
		t.Fatal(err)
	}
	job2 := testJob()
	job2.ID = "01JOB2"
	if _, err := uc.Respond(ctx, job2); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if m.gotInstr != "Kamu adalah CS butik." {
		t.Errorf("instruction not re-read: %q", m.gotInstr)
	}
	if sys.reads < 2 {
		t.Errorf("instruction reads = %d, want one per job", sys.reads)
	}
}

func TestRespond_FallbackInstructionWhenUnset(t *testing.T) {
	ctx := context.Background()
	m := &scriptedModel{turns: []*adapter.ModelTurn{{Text: "Halo!"}}}
	uc := newConvForTest(m, nil, &memSysConfig{}, nil, 5)

	if _, err := uc.Respond(ctx, testJob()); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if !strings.Contains(m.gotInstr, "Shofiya") {
		t.Errorf("fallback instruction not used: %q", m.gotInstr)
	}
}

func TestRespond_HistoryExcludesCurrentUserTurn(t *testing.T) {
	ctx := context.Background()
	chatLog := newMemChatLog()
	// Seed an earlier exchange for the same contact.
	_ = chatLog.AppendTurn(ctx, &model.ChatTurn{JobID: "OLD", Phone: "628123456789", Role: model.RoleUser, Message: "Assalamualaikum"})
	_ = chatLog.AppendTurn(ctx, &model.ChatTurn{JobID: "OLD", Phone: "628123456789", Role: model.RoleAssistant, Message: "Waalaikumsalam Kak!"})

	m := &scriptedModel{turns: []*adapter.ModelTurn{{Text: "Ready Kak."}}}
	uc := newConvForTest(m, chatLog, nil, nil, 5)

	if _, err := uc.Respond(ctx, testJob()); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if len(m.gotHist) != 2 {
		t.Fatalf("history length = %d, want 2", len(m.gotHist))
	}
	for _, h := range m.gotHist {
		if h.Content == "Halo, gamis Adelia ready?" {
			t.Errorf("current message leaked into history")
		}
	}
	if m.gotMsg != "Halo, gamis Adelia ready?" {
		t.Errorf("fresh message = %q", m.gotMsg)
	}
}
