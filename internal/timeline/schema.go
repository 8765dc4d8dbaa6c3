package timeline

// Schema creates the interaction audit table.
const Schema = `
CREATE TABLE IF NOT EXISTS timeline (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT UNIQUE NOT NULL,
	trace_id TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	event_type TEXT NOT NULL,
	channel TEXT NOT NULL DEFAULT '',
	actor TEXT NOT NULL DEFAULT '',
	content_text TEXT NOT NULL DEFAULT '',
	metadata TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_timeline_trace ON timeline(trace_id);
CREATE INDEX IF NOT EXISTS idx_timeline_timestamp ON timeline(timestamp);
`
