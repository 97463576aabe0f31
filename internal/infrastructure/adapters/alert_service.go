package adapters

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
)

// AlertServiceConfig holds operator alert configuration
type AlertServiceConfig struct {
	APIKey     string
	FromEmail  string
	FromName   string
	Recipients []string
}

type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// AlertService emails operators about sagas that need a human.
// Without an API key or recipients it only logs.
type AlertService struct {
	logger *zap.Logger
	config AlertServiceConfig
	client mailSender
}

// NewAlertService creates a new alert service
func NewAlertService(logger *zap.Logger, config AlertServiceConfig) *AlertService {
	s := &AlertService{logger: logger, config: config}
	if strings.TrimSpace(config.APIKey) != "" {
		s.client = sendgrid.NewSendClient(config.APIKey)
	}
	return s
}

// Enabled reports whether alerts leave the process
func (s *AlertService) Enabled() bool {
	return s.client != nil && len(s.config.Recipients) > 0 && s.config.FromEmail != ""
}

// SagaStalled reports a saga nobody has advanced since the stale threshold.
func (s *AlertService) SagaStalled(ctx context.Context, saga *entities.BridgeSaga) error {
	subject := fmt.Sprintf("[hub_bridge] saga %s stalled at %s", saga.ID, saga.Stage)
	lines := []string{
		fmt.Sprintf("Saga: %s", saga.ID),
		fmt.Sprintf("User: %s", saga.UserID),
		fmt.Sprintf("Route: %s -> %s", saga.SourceChain, saga.DestinationChain),
		fmt.Sprintf("Amount: %s USDC", saga.Amount),
		fmt.Sprintf("Stage: %s", saga.Stage),
		fmt.Sprintf("Burn tx: %s", orNone(saga.BurnTxHash)),
		fmt.Sprintf("Mint tx: %s", orNone(saga.MintTxHash)),
		fmt.Sprintf("Last update: %s", saga.UpdatedAt.UTC().Format(time.RFC3339)),
	}
	if saga.BurnTxHash != "" {
		lines = append(lines, fmt.Sprintf("Resume with: bridgectl resume %s", saga.ID))
	}

	s.logger.Warn("Bridge saga stalled",
		zap.String("sagaID", saga.ID),
		zap.String("stage", string(saga.Stage)),
		zap.String("burnTxHash", saga.BurnTxHash))

	if !s.Enabled() {
		return nil
	}
	return s.send(ctx, subject, lines)
}

func (s *AlertService) send(ctx context.Context, subject string, lines []string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	text := strings.Join(lines, "\n")
	escaped := make([]string, len(lines))
	for i, l := range lines {
		escaped[i] = html.EscapeString(l)
	}
	htmlContent := "<p>" + strings.Join(escaped, "<br>") + "</p>"

	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(s.config.FromName, s.config.FromEmail))
	message.Subject = subject
	p := mail.NewPersonalization()
	for _, to := range s.config.Recipients {
		p.AddTos(mail.NewEmail("", to))
	}
	message.AddPersonalizations(p)
	message.AddContent(mail.NewContent("text/plain", text), mail.NewContent("text/html", htmlContent))

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		s.logger.Error("Failed to send alert", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("failed to send alert: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("Alert provider returned error",
			zap.String("subject", subject),
			zap.Int("status_code", response.StatusCode),
			zap.String("response_body", response.Body))
		return fmt.Errorf("alert provider error: status %d", response.StatusCode)
	}

	s.logger.Info("Alert sent", zap.String("subject", subject), zap.Int("recipients", len(s.config.Recipients)))
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
