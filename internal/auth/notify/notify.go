package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes reset notifications to the log instead of sending mail.
// Used in development; production deployments plug in a real mail sender
// behind the same interface. The ticket itself is never logged.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, email, resetToken string) error {
	n.logger.InfoContext(ctx, "password reset notification",
		"email", email,
		"token_length", len(resetToken),
	)
	return nil
}
