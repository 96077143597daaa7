package usecase

import (
	"context"

	"whatsapp-ai-cs/internal/domain/model"
	"whatsapp-ai-cs/internal/domain/ports/repository"
)

// adminHistoryLimit bounds one admin chat-window fetch.
const adminHistoryLimit = 100

// Compile-time check
var _ HistoryUseCase = (*historyUC)(nil)

// HistoryUseCase backs the read-only admin dashboard.
type HistoryUseCase interface {
	Contacts(ctx context.Context) ([]model.Contact, error)
	History(ctx context.Context, phone string) ([]model.ChatTurn, error)
	Instruction(ctx context.Context) (string, error)
	UpdateInstruction(ctx context.Context, value string) error
}

type historyUC struct {
	chatLog   repository.ChatLogRepository
	sysConfig repository.SystemConfigRepository
}

func NewHistoryUseCase(chatLog repository.ChatLogRepository, sysConfig repository.SystemConfigRepository) *historyUC {
	return &historyUC{chatLog: chatLog, sysConfig: sysConfig}
}

func (h *historyUC) Contacts(ctx context.Context) ([]model.Contact, error) {
	return h.chatLog.ListContacts(ctx)
}

func (h *historyUC) History(ctx context.Context, phone string) ([]model.ChatTurn, error) {
	return h.chatLog.HistoryByContact(ctx, NormalizePhone(phone), adminHistoryLimit)
}

func (h *historyUC) Instruction(ctx context.Context) (string, error) {
	value, err := h.sysConfig.GetInstruction(ctx)
	if err != nil {
		return "", err
	}
	return value, nil
}

func (h *historyUC) UpdateInstruction(ctx context.Context, value string) error {
	return h.sysConfig.SetInstruction(ctx, value)
}
