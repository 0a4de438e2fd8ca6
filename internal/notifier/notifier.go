// Package notifier provides the built-in alert delivery channels.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/scarramanga/StackMotive-V12-sub006/internal/models"
)

// LogNotifier writes alerts to the service log. It is the default channel
// and never fails.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n *LogNotifier) Deliver(ctx context.Context, item *models.Alert) error {
	if n == nil || n.Logger == nil || item == nil {
		return nil
	}
	n.Logger.Info("rebalance alert",
		zap.String("alert_id", item.ID),
		zap.String("timer_id", item.TimerID),
		zap.String("strategy_id", item.StrategyID),
		zap.String("kind", string(item.Kind)),
		zap.String("reason", item.Reason),
	)
	return nil
}

// WebhookNotifier POSTs the alert envelope to a configured endpoint.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
	Logger *zap.Logger
}

func NewWebhookNotifier(url string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookNotifier{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
		Logger: logger,
	}
}

func (n *WebhookNotifier) Deliver(ctx context.Context, item *models.Alert) error {
	if n == nil || n.URL == "" || item == nil {
		return nil
	}
	body, err := json.Marshal(item)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
