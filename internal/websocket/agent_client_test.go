package websocket

import (
	"encoding/json"
	"testing"

	"github.com/callwatch/backend/internal/types"
	"github.com/rs/zerolog"
)

func readErrorReply(t *testing.T, c *AgentClient) types.ErrorMessage {
	t.Helper()
	select {
	case data := <-c.send:
		var msg types.ErrorMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("reply is not valid JSON: %v", err)
		}
		if msg.Type != "error" {
			t.Fatalf("expected type error, got %q", msg.Type)
		}
		return msg
	default:
		t.Fatal("expected an error reply on the originating connection")
		return types.ErrorMessage{}
	}
}

func pendingHubEvents(hub *AgentHub) int {
	return len(hub.online) + len(hub.offline) + len(hub.callStarted) + len(hub.callEnded)
}

func TestMalformedMessageGetsErrorReply(t *testing.T) {
	hub := NewAgentHub(&recordingProcessor{}, zerolog.Nop())
	client := newTestAgentClient(hub, "conn1")

	client.handleMessage([]byte("{not json"))

	readErrorReply(t, client)
	if n := pendingHubEvents(hub); n != 0 {
		t.Errorf("malformed message must not reach the hub, found %d events", n)
	}
}

func TestEventWithoutAgentCodeGetsErrorReply(t *testing.T) {
	events := []string{"agent_online", "agent_offline", "call_started", "call_ended"}

	for _, eventType := range events {
		t.Run(eventType, func(t *testing.T) {
			hub := NewAgentHub(&recordingProcessor{}, zerolog.Nop())
			client := newTestAgentClient(hub, "conn1")

			client.handleMessage([]byte(`{"type":"` + eventType + `"}`))

			msg := readErrorReply(t, client)
			if msg.Message != "agentCode is required" {
				t.Errorf("expected agentCode error, got %q", msg.Message)
			}
			if n := pendingHubEvents(hub); n != 0 {
				t.Errorf("rejected event must not reach the hub, found %d events", n)
			}
		})
	}
}

func TestUnknownMessageTypeGetsErrorReply(t *testing.T) {
	hub := NewAgentHub(&recordingProcessor{}, zerolog.Nop())
	client := newTestAgentClient(hub, "conn1")

	client.handleMessage([]byte(`{"type":"mystery"}`))

	msg := readErrorReply(t, client)
	if msg.Message != "unknown message type: mystery" {
		t.Errorf("unexpected error message %q", msg.Message)
	}
}

func TestValidEventReachesHubWithoutReply(t *testing.T) {
	hub := NewAgentHub(&recordingProcessor{}, zerolog.Nop())
	client := newTestAgentClient(hub, "conn1")

	client.handleMessage([]byte(`{"type":"call_started","agentCode":"A1","phoneNumber":"+15550100"}`))

	if len(hub.callStarted) != 1 {
		t.Fatalf("expected call_started queued, got %d", len(hub.callStarted))
	}
	select {
	case data := <-client.send:
		t.Errorf("unexpected reply for a valid event: %s", data)
	default:
	}
}
