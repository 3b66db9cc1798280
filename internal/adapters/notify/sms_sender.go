package notify

import (
	"context"
	"log/slog"

	"github.com/shoplane/identity-service/internal/ports"
)

// LoggingSMSSender stands in for the SMS gateway in development and tests.
// The code itself is never logged; only delivery metadata is.
type LoggingSMSSender struct {
	logger *slog.Logger
}

func NewLoggingSMSSender(logger *slog.Logger) *LoggingSMSSender {
	return &LoggingSMSSender{logger: logger}
}

var _ ports.SMSSender = (*LoggingSMSSender)(nil)

func (s *LoggingSMSSender) SendCode(ctx context.Context, phoneNumber, code string) error {
	s.logger.InfoContext(ctx, "sms code dispatched",
		"module", "notify",
		"layer", "adapter",
		"operation", "send_sms_code",
		"outcome", "success",
		"phone", ports.MaskPhone(phoneNumber),
		"code_length", len(code),
	)
	return nil
}
