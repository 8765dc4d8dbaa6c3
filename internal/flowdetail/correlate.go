package flowdetail

// ObservationKey identifies one correlation point: a device observed at a
// timestamp.
type ObservationKey struct {
	Timestamp string `json:"timestamp"`
	Device    string `json:"device"`
}

// ObservationKeys returns every distinct (timestamp, device) pair carried by
// an event or feature record, in first-seen order. The whole record list is
// scanned.
func ObservationKeys(records []RawRecord) []ObservationKey {
	seen := make(map[ObservationKey]struct{})
	keys := make([]ObservationKey, 0)
	for _, r := range records {
		ts, ok := r.Timestamp()
		if !ok {
			continue
		}
		device, _ := r.Device()
		k := ObservationKey{Timestamp: ts, Device: device}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// Correlation holds the records gathered per observation key, in key order.
type Correlation struct {
	Keys                []ObservationKey
	Events              []RawRecord
	Features            []RawRecord
	HasStructuredEvents bool
}

// Correlate classifies records and gathers, for each observation key, the
// event and feature records sharing its timestamp. The timestamp alone is
// the join attribute. A timestamp shared by several keys is joined once, at
// its first key, so no record is gathered twice. Structured mode is chosen
// from the gathered events, so an event without a usable timestamp cannot
// switch it on.
func Correlate(records []RawRecord) Correlation {
	cls := Classify(records)
	corr := Correlation{Keys: ObservationKeys(records)}
	joined := make(map[string]struct{}, len(corr.Keys))
	for _, k := range corr.Keys {
		if _, done := joined[k.Timestamp]; done {
			continue
		}
		joined[k.Timestamp] = struct{}{}
		corr.Events = appendAt(corr.Events, cls.Events, k.Timestamp)
		corr.Features = appendAt(corr.Features, cls.Features, k.Timestamp)
	}
	corr.HasStructuredEvents = len(corr.Events) > 0
	return corr
}

func appendAt(dst, src []RawRecord, ts string) []RawRecord {
	for _, r := range src {
		if t, ok := r.Timestamp(); ok && t == ts {
			dst = append(dst, r)
		}
	}
	return dst
}
