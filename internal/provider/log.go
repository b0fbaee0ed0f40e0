package provider

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogSender stands in for the email and WhatsApp integrations until they
// exist. Every message is written to the log and reported as delivered.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) (*ProviderResponse, error) {
	id := uuid.NewString()
	s.logger.Info("notification delivered to log",
		zap.String("messageId", id),
		zap.String("requestId", msg.RequestID),
		zap.String("type", msg.Type.String()),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return &ProviderResponse{StatusCode: 200, MessageID: id}, nil
}

// LogMailer writes alert mails to the log.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendMail(ctx context.Context, to, subject, body string) error {
	m.logger.Warn("alert mail",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
