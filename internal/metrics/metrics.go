package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/callwatch/backend/internal/types"
)

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Event metrics
	EventsReceivedTotal   int64
	EventsProcessedTotal  int64
	EventProcessingErrors int64

	// WebSocket metrics
	WebSocketConnectionsTotal    int64
	WebSocketDisconnectionsTotal int64
	WebSocketMessagesTotal       int64
	WebSocketErrorsTotal         int64
	activeObservers              int64
	activeAgents                 int64

	// Delivery queue metrics
	QueueEnqueuedTotal  int64
	QueueDeliveredTotal int64
	QueueFailuresTotal  int64
	queueDepth          int64

	// Reminder metrics
	RemindersFiredTotal  int64
	RemindersManualTotal int64

	// Idle tracking
	IdleSessionsTotal int64

	// Broadcast metrics
	DashboardBroadcastsTotal int64

	// Agent metrics
	agentsByStatus map[types.PresenceStatus]int
	totalAgents    int

	// HTTP metrics
	httpRequestsTotal    map[string]map[int]int64 // endpoint -> status -> count
	httpRequestDurations map[string][]float64     // endpoint -> durations

	// Timing
	startTime time.Time
}

// Global metrics instance
var instance *Metrics
var once sync.Once

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			agentsByStatus:       make(map[types.PresenceStatus]int),
			httpRequestsTotal:    make(map[string]map[int]int64),
			httpRequestDurations: make(map[string][]float64),
			startTime:            time.Now(),
		}
	})
	return instance
}

// RecordEventReceived increments the events received counter
func (m *Metrics) RecordEventReceived() {
	m.mu.Lock()
	m.EventsReceivedTotal++
	m.mu.Unlock()
}

// RecordEventProcessed increments the events processed counter
func (m *Metrics) RecordEventProcessed() {
	m.mu.Lock()
	m.EventsProcessedTotal++
	m.mu.Unlock()
}

// RecordEventError increments the event processing error counter
func (m *Metrics) RecordEventError() {
	m.mu.Lock()
	m.EventProcessingErrors++
	m.mu.Unlock()
}

// RecordWebSocketConnect increments observer connection counters
func (m *Metrics) RecordWebSocketConnect() {
	m.mu.Lock()
	m.WebSocketConnectionsTotal++
	m.activeObservers++
	m.mu.Unlock()
}

// RecordWebSocketDisconnect increments observer disconnection counter
func (m *Metrics) RecordWebSocketDisconnect() {
	m.mu.Lock()
	m.WebSocketDisconnectionsTotal++
	m.activeObservers--
	m.mu.Unlock()
}

// RecordAgentConnect increments agent connection counters
func (m *Metrics) RecordAgentConnect() {
	m.mu.Lock()
	m.WebSocketConnectionsTotal++
	m.activeAgents++
	m.mu.Unlock()
}

// RecordAgentDisconnect increments agent disconnection counter
func (m *Metrics) RecordAgentDisconnect() {
	m.mu.Lock()
	m.WebSocketDisconnectionsTotal++
	m.activeAgents--
	m.mu.Unlock()
}

// RecordWebSocketMessage increments message counter
func (m *Metrics) RecordWebSocketMessage() {
	m.mu.Lock()
	m.WebSocketMessagesTotal++
	m.mu.Unlock()
}

// RecordWebSocketError increments WebSocket error counter
func (m *Metrics) RecordWebSocketError() {
	m.mu.Lock()
	m.WebSocketErrorsTotal++
	m.mu.Unlock()
}

// RecordQueueEnqueue records a queued record and the resulting depth
func (m *Metrics) RecordQueueEnqueue(depth int) {
	m.mu.Lock()
	m.QueueEnqueuedTotal++
	m.queueDepth = int64(depth)
	m.mu.Unlock()
}

// RecordQueueDelivered records a successful delivery and the resulting depth
func (m *Metrics) RecordQueueDelivered(depth int) {
	m.mu.Lock()
	m.QueueDeliveredTotal++
	m.queueDepth = int64(depth)
	m.mu.Unlock()
}

// RecordQueueFailure records a failed delivery attempt and the resulting depth
func (m *Metrics) RecordQueueFailure(depth int) {
	m.mu.Lock()
	m.QueueFailuresTotal++
	m.queueDepth = int64(depth)
	m.mu.Unlock()
}

// RecordReminderFired increments the scheduled reminder counter
func (m *Metrics) RecordReminderFired() {
	m.mu.Lock()
	m.RemindersFiredTotal++
	m.mu.Unlock()
}

// RecordManualReminder increments the manual reminder counter
func (m *Metrics) RecordManualReminder() {
	m.mu.Lock()
	m.RemindersManualTotal++
	m.mu.Unlock()
}

// RecordIdleSession increments the recorded idle session counter
func (m *Metrics) RecordIdleSession() {
	m.mu.Lock()
	m.IdleSessionsTotal++
	m.mu.Unlock()
}

// RecordDashboardBroadcast increments the dashboard broadcast counter
func (m *Metrics) RecordDashboardBroadcast() {
	m.mu.Lock()
	m.DashboardBroadcastsTotal++
	m.mu.Unlock()
}

// UpdateAgentStats updates agent distribution metrics
func (m *Metrics) UpdateAgentStats(agents []types.Agent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.agentsByStatus = make(map[types.PresenceStatus]int)
	m.totalAgents = len(agents)

	for _, agent := range agents {
		m.agentsByStatus[agent.Status]++
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(endpoint string, statusCode int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.httpRequestsTotal[endpoint] == nil {
		m.httpRequestsTotal[endpoint] = make(map[int]int64)
	}
	m.httpRequestsTotal[endpoint][statusCode]++

	// Keep last 100 durations for percentile calculation
	if len(m.httpRequestDurations[endpoint]) >= 100 {
		m.httpRequestDurations[endpoint] = m.httpRequestDurations[endpoint][1:]
	}
	m.httpRequestDurations[endpoint] = append(m.httpRequestDurations[endpoint], duration.Seconds())
}

// GetActiveObservers returns current observer WebSocket connections
func (m *Metrics) GetActiveObservers() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeObservers
}

// GetActiveAgents returns current agent WebSocket connections
func (m *Metrics) GetActiveAgents() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeAgents
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		// Helper to write metric
		write := func(name string, value interface{}, labels ...string) {
			labelStr := ""
			if len(labels) > 0 {
				labelStr = "{"
				for i := 0; i < len(labels); i += 2 {
					if i > 0 {
						labelStr += ","
					}
					labelStr += labels[i] + "=\"" + labels[i+1] + "\""
				}
				labelStr += "}"
			}

			switch v := value.(type) {
			case int:
				w.Write([]byte(name + labelStr + " " + strconv.Itoa(v) + "\n"))
			case int64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatInt(v, 10) + "\n"))
			case float64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(v, 'f', 6, 64) + "\n"))
			}
		}

		// System metrics
		write("callwatch_uptime_seconds", time.Since(m.startTime).Seconds())

		// Event metrics
		write("callwatch_events_received_total", m.EventsReceivedTotal)
		write("callwatch_events_processed_total", m.EventsProcessedTotal)
		write("callwatch_event_processing_errors_total", m.EventProcessingErrors)

		// Calculate events per second
		uptimeSeconds := time.Since(m.startTime).Seconds()
		if uptimeSeconds > 0 {
			write("callwatch_events_per_second", float64(m.EventsReceivedTotal)/uptimeSeconds)
		}

		// WebSocket metrics
		write("callwatch_websocket_connections_total", m.WebSocketConnectionsTotal)
		write("callwatch_websocket_disconnections_total", m.WebSocketDisconnectionsTotal)
		write("callwatch_websocket_active_observers", m.activeObservers)
		write("callwatch_websocket_active_agents", m.activeAgents)
		write("callwatch_websocket_messages_total", m.WebSocketMessagesTotal)
		write("callwatch_websocket_errors_total", m.WebSocketErrorsTotal)

		// Delivery queue metrics
		write("callwatch_queue_enqueued_total", m.QueueEnqueuedTotal)
		write("callwatch_queue_delivered_total", m.QueueDeliveredTotal)
		write("callwatch_queue_failures_total", m.QueueFailuresTotal)
		write("callwatch_queue_depth", m.queueDepth)

		// Reminder metrics
		write("callwatch_reminders_fired_total", m.RemindersFiredTotal)
		write("callwatch_reminders_manual_total", m.RemindersManualTotal)

		// Idle tracking
		write("callwatch_idle_sessions_total", m.IdleSessionsTotal)

		// Broadcast metrics
		write("callwatch_dashboard_broadcasts_total", m.DashboardBroadcastsTotal)

		// Agent metrics
		write("callwatch_agents_total", m.totalAgents)

		// Agents by status
		for status, count := range m.agentsByStatus {
			write("callwatch_agents_by_status", count, "status", string(status))
		}

		// HTTP metrics
		for endpoint, statusCodes := range m.httpRequestsTotal {
			for status, count := range statusCodes {
				write("callwatch_http_requests_total", count, "endpoint", endpoint, "status", strconv.Itoa(status))
			}
		}
	}
}
