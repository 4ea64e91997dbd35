// Package notify posts low-stock alerts to a Slack incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"go.uber.org/zap"
)

// maxListed caps the alert rows spelled out in one message.
const maxListed = 10

type SlackNotifier struct {
	webhookURL string
	channel    string
	client     *http.Client
	log        *zap.Logger
}

func NewSlackNotifier(webhookURL, channel string, log *zap.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.Named("notify.slack"),
	}
}

type message struct {
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text"`
}

// NotifyLowStock posts one message per date. Nothing is sent when rows is empty.
func (n *SlackNotifier) NotifyLowStock(ctx context.Context, date string, rows []domain.LowStockAlertRow) error {
	if len(rows) == 0 {
		return nil
	}

	body, err := json.Marshal(message{Channel: n.channel, Text: formatLowStock(date, rows)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("slack_api_error: status=%d", resp.StatusCode)
	}

	n.log.Info("low stock alert sent", zap.String("date", date), zap.Int("rows", len(rows)))
	return nil
}

func formatLowStock(date string, rows []domain.LowStockAlertRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Low stock %s*: %d item(s) below threshold\n", date, len(rows))
	for i, r := range rows {
		if i == maxListed {
			fmt.Fprintf(&b, "...and %d more", len(rows)-maxListed)
			break
		}
		name := r.ProductID
		if r.ProductName != nil {
			name = fmt.Sprintf("%s (%s)", *r.ProductName, r.ProductID)
		}
		fmt.Fprintf(&b, "- %s @ %s: %d on hand, restocked %s\n",
			name, r.WarehouseID, r.StockOnHand, r.LastRestockDate.Format(domain.DateLayout))
	}
	return strings.TrimRight(b.String(), "\n")
}
