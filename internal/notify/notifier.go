package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// 事件类型
const (
	EventSessionCreated   = "session.created"
	EventSessionStatus    = "session.status"
	EventSessionCheckedOut = "session.checked_out"
	EventJobCardCreated   = "job_card.created"
	EventJobCardApproved  = "job_card.approved"
	EventJobCardStatus    = "job_card.status"
	EventVehicleReady     = "vehicle.ready"
	EventLowStock         = "inventory.low_stock"
)

// Event 状态转移后发出的通知事件
type Event struct {
	Type      string    `json:"type"`
	CompanyID string    `json:"company_id"`
	EntityID  string    `json:"entity_id"`
	Number    string    `json:"number,omitempty"`
	Status    string    `json:"status,omitempty"`
	Message   string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier 通知出口。实现必须是即发即忘：
// 在事务提交之后调用，投递失败只记日志，绝不回滚业务
type Notifier interface {
	Publish(event Event)
}

// WebhookNotifier 把事件投递到外部webhook，并广播到SSE
type WebhookNotifier struct {
	url    string
	client *http.Client
	hub    *Hub
	logger *zap.Logger
}

func NewWebhookNotifier(url string, hub *Hub, logger *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
		hub:    hub,
		logger: logger,
	}
}

func (n *WebhookNotifier) Publish(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if n.hub != nil {
		payload, _ := json.Marshal(event)
		n.hub.BroadcastToCompany(event.CompanyID, SSEEvent{EventType: event.Type, Data: string(payload)})
	}

	if n.url == "" {
		return
	}
	go n.post(event)
}

func (n *WebhookNotifier) post(event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("notify: marshal event failed", zap.Error(err))
		return
	}
	resp, err := n.client.Post(n.url, "application/json", bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("notify: webhook delivery failed",
			zap.String("type", event.Type),
			zap.Error(err),
		)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.logger.Warn("notify: webhook rejected event",
			zap.String("type", event.Type),
			zap.Int("status", resp.StatusCode),
		)
	}
}

// NoopNotifier 测试用空实现
type NoopNotifier struct{}

func (NoopNotifier) Publish(Event) {}
