// Package flowdetail reconstructs the ordered per-hop view of one traced
// flow from the unordered diagnostic records the controller returns for it.
//
// Records are classified into events and features, correlated by
// observation timestamp, and turned into hop descriptors by one of two
// strategies: structured events when the deployment emits them, and a
// free-text fallback that reads direction and colours from the forwarding
// feature description otherwise.
package flowdetail

// Summary describes one reconstruction for logging and metrics.
type Summary struct {
	Mode       string `json:"mode"`
	Records    int    `json:"records"`
	Keys       int    `json:"keys"`
	Events     int    `json:"events"`
	Features   int    `json:"features"`
	Pairings   int    `json:"pairings"`
	Upstream   int    `json:"upstream"`
	Downstream int    `json:"downstream"`
}

// Reconstruct builds the flow detail for records. It never fails: records
// that cannot contribute a hop are skipped.
func Reconstruct(records []RawRecord) FlowDetail {
	detail, _ := ReconstructWithSummary(records)
	return detail
}

// ReconstructWithSummary is Reconstruct plus a description of the run.
func ReconstructWithSummary(records []RawRecord) (FlowDetail, Summary) {
	corr := Correlate(records)
	strat := strategyFor(corr)
	pairs := strat.pairings(corr)

	upstream := make([]HopDescriptor, 0)
	downstream := make([]HopDescriptor, 0)
	for _, p := range pairs {
		hop, ok := buildHop(p.attr, p.feature)
		if !ok {
			continue
		}
		if p.attr.direction == Upstream {
			upstream = append(upstream, hop)
		} else {
			downstream = append(downstream, hop)
		}
	}
	// Downstream hops were collected newest first.
	for i, j := 0, len(downstream)-1; i < j; i, j = i+1, j-1 {
		downstream[i], downstream[j] = downstream[j], downstream[i]
	}

	return FlowDetail{Upstream: upstream, Downstream: downstream}, Summary{
		Mode:       strat.mode(),
		Records:    len(records),
		Keys:       len(corr.Keys),
		Events:     len(corr.Events),
		Features:   len(corr.Features),
		Pairings:   len(pairs),
		Upstream:   len(upstream),
		Downstream: len(downstream),
	}
}

// Empty reports whether the flow detail has no hops in either direction.
func (d FlowDetail) Empty() bool {
	return len(d.Upstream) == 0 && len(d.Downstream) == 0
}
