package flowdetail

// FeatureRecordType is the type tag of packet feature records.
const FeatureRecordType = "feature-of-packet"

const (
	eventTimestampKey   = "received_timestamp"
	featureTimestampKey = "packet_received_timestamp"
)

// RecordKind is the role a raw record plays in reconstruction.
type RecordKind int

const (
	OtherRecord RecordKind = iota
	EventRecord
	FeatureRecord
)

// Kind classifies r by its type tag and the timestamp field its payload
// carries.
func (r RawRecord) Kind() RecordKind {
	if r.Data.Kind != KindMap {
		return OtherRecord
	}
	if r.Type == FeatureRecordType {
		return FeatureRecord
	}
	if r.Data.Has(eventTimestampKey) {
		return EventRecord
	}
	if r.Data.Has(featureTimestampKey) {
		return FeatureRecord
	}
	return OtherRecord
}

// Timestamp returns the observation timestamp of an event or feature record.
func (r RawRecord) Timestamp() (string, bool) {
	var key string
	switch r.Kind() {
	case EventRecord:
		key = eventTimestampKey
	case FeatureRecord:
		key = featureTimestampKey
	default:
		return "", false
	}
	n, ok := r.Data.Get(key)
	if !ok {
		return "", false
	}
	return n.Text()
}

// Device returns the device_name of the record.
func (r RawRecord) Device() (string, bool) {
	n, ok := r.Data.Get("device_name")
	if !ok {
		return "", false
	}
	return n.Text()
}

// PacketID returns the packet identifier used to pair events with features.
// The identifier keeps its JSON type, so the number 7 and the string "7"
// never pair.
func (r RawRecord) PacketID() (string, bool) {
	var (
		n  Node
		ok bool
	)
	switch r.Kind() {
	case EventRecord:
		n, ok = r.Data.Get("packet_id")
	case FeatureRecord:
		n, ok = r.Data.Lookup("packet", "packet_id")
	}
	if !ok {
		return "", false
	}
	text, ok := n.Text()
	if !ok {
		return "", false
	}
	if n.IsString() {
		return "s:" + text, true
	}
	return "n:" + text, true
}

// Classification partitions a flow's records into events and features,
// each in input order.
type Classification struct {
	Events              []RawRecord
	Features            []RawRecord
	HasStructuredEvents bool
}

// Classify partitions records. Records of any other shape are ignored.
func Classify(records []RawRecord) Classification {
	var c Classification
	for _, r := range records {
		switch r.Kind() {
		case EventRecord:
			c.Events = append(c.Events, r)
		case FeatureRecord:
			c.Features = append(c.Features, r)
		}
	}
	c.HasStructuredEvents = len(c.Events) > 0
	return c
}
