package assistant

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wolfman30/health-assistant/pkg/logging"
)

// TurnEvent is one decision point in a chat turn. Every event carries the
// session key so a whole conversation can be grepped out of the log:
//
//	grep '"session_key":"user:42"' /var/log/app.log
type TurnEvent struct {
	Time       string         `json:"time"`
	Event      string         `json:"event"`
	SessionKey string         `json:"session_key"`
	Data       map[string]any `json:"data,omitempty"`
}

// EventLogger emits one JSON line per event.
type EventLogger struct {
	logger *logging.Logger
	now    func() time.Time
}

func NewEventLogger(logger *logging.Logger) *EventLogger {
	if logger == nil {
		logger = logging.Default()
	}
	return &EventLogger{logger: logger, now: time.Now}
}

func (e *EventLogger) Log(_ context.Context, event, key string, data map[string]any) {
	if e == nil || e.logger == nil {
		return
	}
	evt := TurnEvent{
		Time:       e.now().UTC().Format(time.RFC3339Nano),
		Event:      event,
		SessionKey: key,
		Data:       data,
	}
	b, _ := json.Marshal(evt)
	e.logger.Info(string(b))
}

func (e *EventLogger) TurnReceived(ctx context.Context, key, message string, hasChat bool) {
	msg := []rune(message)
	if len(msg) > 200 {
		message = string(msg[:200]) + "..."
	}
	e.Log(ctx, "turn_received", key, map[string]any{"message": message, "has_chat": hasChat})
}

func (e *EventLogger) IntentClassified(ctx context.Context, key string, intent Intent, forced bool) {
	e.Log(ctx, "intent_classified", key, map[string]any{"intent": string(intent), "forced": forced})
}

func (e *EventLogger) RouteForced(ctx context.Context, key string, phase, reason string) {
	e.Log(ctx, "route_forced", key, map[string]any{"phase": phase, "reason": reason})
}

func (e *EventLogger) FlowStarted(ctx context.Context, key, phase string) {
	e.Log(ctx, "flow_started", key, map[string]any{"phase": phase})
}

func (e *EventLogger) DraftReset(ctx context.Context, key, from, to string) {
	e.Log(ctx, "draft_reset", key, map[string]any{"from": from, "to": to})
}

func (e *EventLogger) SlotsMerged(ctx context.Context, key, phase string, fields []string, nextStep NextStep) {
	e.Log(ctx, "slots_merged", key, map[string]any{"phase": phase, "fields": fields, "next_step": string(nextStep)})
}

func (e *EventLogger) EntityResolved(ctx context.Context, key, kind, name string, matched bool) {
	e.Log(ctx, "entity_resolved", key, map[string]any{"kind": kind, "name": name, "matched": matched})
}

func (e *EventLogger) Submission(ctx context.Context, key, phase string, success, conflict bool) {
	e.Log(ctx, "submission", key, map[string]any{"phase": phase, "success": success, "conflict": conflict})
}

func (e *EventLogger) ExitConfirmed(ctx context.Context, key, phase string, rerouteIntent Intent) {
	data := map[string]any{"phase": phase}
	if rerouteIntent != IntentNone {
		data["reroute_intent"] = string(rerouteIntent)
	}
	e.Log(ctx, "exit_confirmed", key, data)
}

func (e *EventLogger) ExitDeclined(ctx context.Context, key, phase string) {
	e.Log(ctx, "exit_declined", key, map[string]any{"phase": phase})
}

func (e *EventLogger) SafetyBlocked(ctx context.Context, key string, severity Severity, categories []string) {
	e.Log(ctx, "safety_blocked", key, map[string]any{"severity": string(severity), "categories": categories})
}

func (e *EventLogger) Error(ctx context.Context, key, stage string, err error) {
	e.Log(ctx, "error", key, map[string]any{"stage": stage, "error": err.Error()})
}
