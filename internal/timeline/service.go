// Package timeline records every chat, alert, notification and tool call
// for later audit.
package timeline

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Event types.
const (
	KindChatIn    = "CHAT_IN"
	KindChatOut   = "CHAT_OUT"
	KindAlertIn   = "ALERT_IN"
	KindNotifyOut = "NOTIFY_OUT"
	KindTool      = "TOOL"
	KindRoute     = "ROUTE"
)

// TimelineEvent is one recorded interaction.
type TimelineEvent struct {
	ID        int64     `json:"id"`
	EventID   string    `json:"event_id"`
	TraceID   string    `json:"trace_id"`
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Channel   string    `json:"channel"`
	Actor     string    `json:"actor"`
	Content   string    `json:"content"`
	Metadata  string    `json:"metadata,omitempty"`
}

type TimelineService struct {
	db *sql.DB
}

func NewTimelineService(dbPath string) (*TimelineService, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open timeline db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &TimelineService{db: db}, nil
}

func (s *TimelineService) Close() error {
	return s.db.Close()
}

// AddEvent stores evt, filling in the event id and timestamp when unset.
func (s *TimelineService) AddEvent(evt *TimelineEvent) error {
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	query := `
	INSERT INTO timeline (event_id, trace_id, timestamp, event_type, channel, actor, content_text, metadata)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		evt.EventID,
		evt.TraceID,
		evt.Timestamp.UTC(),
		evt.EventType,
		evt.Channel,
		evt.Actor,
		evt.Content,
		evt.Metadata,
	)
	return err
}

// Record is AddEvent for callers that only log failures. meta is encoded
// as JSON when non-nil.
func (s *TimelineService) Record(traceID, kind, channel, actor, content string, meta map[string]any) error {
	evt := &TimelineEvent{
		TraceID:   traceID,
		EventType: kind,
		Channel:   channel,
		Actor:     actor,
		Content:   content,
	}
	if meta != nil {
		b, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		evt.Metadata = string(b)
	}
	return s.AddEvent(evt)
}

type FilterArgs struct {
	TraceID   string
	EventType string
	Limit     int
}

// GetEvents returns matching events, oldest first when filtering by trace
// and newest first otherwise.
func (s *TimelineService) GetEvents(filter FilterArgs) ([]TimelineEvent, error) {
	query := `SELECT id, event_id, trace_id, timestamp, event_type, channel, actor, content_text, metadata FROM timeline WHERE 1=1`
	args := []any{}

	if filter.TraceID != "" {
		query += " AND trace_id = ?"
		args = append(args, filter.TraceID)
	}
	if filter.EventType != "" {
		query += " AND event_type = ?"
		args = append(args, filter.EventType)
	}
	if filter.TraceID != "" {
		query += " ORDER BY timestamp ASC, id ASC"
	} else {
		query += " ORDER BY timestamp DESC, id DESC"
	}
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []TimelineEvent
	for rows.Next() {
		var e TimelineEvent
		if err := rows.Scan(&e.ID, &e.EventID, &e.TraceID, &e.Timestamp, &e.EventType, &e.Channel, &e.Actor, &e.Content, &e.Metadata); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ListByTrace returns the events of one request in order.
func (s *TimelineService) ListByTrace(traceID string) ([]TimelineEvent, error) {
	return s.GetEvents(FilterArgs{TraceID: traceID})
}

// Recent returns the latest limit events.
func (s *TimelineService) Recent(limit int) ([]TimelineEvent, error) {
	return s.GetEvents(FilterArgs{Limit: limit})
}
