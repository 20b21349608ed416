package breach

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Alert is the high-visibility notification emitted on breach detection.
// Delivery is fire-and-forget: the breach and its tasks are durable
// whether or not the alert lands.
type Alert struct {
	BreachID          uuid.UUID `json:"breach_id"`
	Type              Type      `json:"breach_type"`
	Severity          Severity  `json:"severity"`
	AffectedUserCount int       `json:"affected_user_count"`
	Description       string    `json:"description"`
	DetectedAt        time.Time `json:"detected_at"`
	AuthorityDeadline time.Time `json:"authority_deadline"`
}

// Notifier is the injected alert sink. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Alert(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts as structured error-level log lines. It is the
// default sink when no pager or queue is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Alert(ctx context.Context, alert Alert) error {
	n.logger.ErrorContext(ctx, "DATA BREACH DETECTED",
		"breach_id", alert.BreachID.String(),
		"breach_type", string(alert.Type),
		"severity", string(alert.Severity),
		"affected_users", alert.AffectedUserCount,
		"authority_deadline", alert.AuthorityDeadline,
		"description", alert.Description,
	)
	return nil
}
