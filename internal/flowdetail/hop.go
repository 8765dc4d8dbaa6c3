package flowdetail

// Direction is the traffic direction of a hop relative to the flow source.
type Direction string

const (
	Upstream   Direction = "upstream"
	Downstream Direction = "downstream"
)

const (
	ingressReport  = "Ingress Report"
	transmitReport = "Transmit Report"

	invalidColor    = "INVALID"
	serviceLANColor = "Service LAN"
	noColor         = "N/A"
)

// HopDescriptor is the reconstructed view of one device traversed by a flow.
type HopDescriptor struct {
	Hop                string   `json:"hop"`
	Event              string   `json:"event"`
	LocalColor         string   `json:"local_color"`
	RemoteColor        string   `json:"remote_color"`
	IngressInterface   *string  `json:"ingress_interface,omitempty"`
	EgressInterface    *string  `json:"egress_interface,omitempty"`
	IngressFeatures    []string `json:"ingress_features"`
	EgressFeatures     []string `json:"egress_features"`
	ForwardingDecision string   `json:"forwarding_decision"`
}

// FlowDetail is the per-direction hop sequence of one flow.
type FlowDetail struct {
	Upstream   []HopDescriptor `json:"upstream"`
	Downstream []HopDescriptor `json:"downstream"`
}

// attribution is what a strategy resolves for a hop before the packet
// detail of the matched feature record is filled in.
type attribution struct {
	device      string
	event       string
	direction   Direction
	localColor  string
	remoteColor string
}

// normalizeColors maps the INVALID/INVALID pair reported for service-side
// hops onto the LAN label for the given direction.
func normalizeColors(dir Direction, local, remote string) (string, string) {
	if local != invalidColor || remote != invalidColor {
		return local, remote
	}
	switch dir {
	case Upstream:
		return serviceLANColor, noColor
	case Downstream:
		return noColor, serviceLANColor
	}
	return local, remote
}

// buildHop combines an attribution with the packet detail of feature.
// It reports false when the feature lacks its forwarding decision.
func buildHop(a attribution, feature RawRecord) (HopDescriptor, bool) {
	packet, ok := feature.Data.Get("packet")
	if !ok || packet.Kind != KindMap {
		return HopDescriptor{}, false
	}
	decisionNode, ok := packet.Get("packet_fwd_decision")
	if !ok {
		return HopDescriptor{}, false
	}
	decision, ok := detailText(decisionNode)
	if !ok {
		return HopDescriptor{}, false
	}

	fia := fiaContainer(packet)
	ingress, _ := fia.Get("ingress_fia")
	egress, _ := fia.Get("egress_fia")

	local, remote := normalizeColors(a.direction, a.localColor, a.remoteColor)
	return HopDescriptor{
		Hop:                a.device,
		Event:              a.event,
		LocalColor:         local,
		RemoteColor:        remote,
		IngressInterface:   featureDetail(ingress, ingressReport),
		EgressInterface:    featureDetail(egress, transmitReport),
		IngressFeatures:    featureNames(ingress),
		EgressFeatures:     featureNames(egress),
		ForwardingDecision: decision,
	}, true
}

// fiaContainer returns the object holding the feature invocation lists:
// the nested packet object when present, otherwise packet itself.
func fiaContainer(packet Node) Node {
	if inner, ok := packet.Get("packet"); ok && inner.Kind == KindMap {
		return inner
	}
	return packet
}

func featureNames(fia Node) []string {
	names := make([]string, 0, len(fia.Items))
	if fia.Kind != KindList {
		return names
	}
	for _, entry := range fia.Items {
		n, ok := entry.Get("feature_name")
		if !ok {
			continue
		}
		if name, ok := n.Text(); ok {
			names = append(names, name)
		}
	}
	return names
}

func featureDetail(fia Node, name string) *string {
	if fia.Kind != KindList {
		return nil
	}
	for _, entry := range fia.Items {
		n, ok := entry.Get("feature_name")
		if !ok {
			continue
		}
		if s, _ := n.Text(); s != name {
			continue
		}
		d, ok := entry.Get("feature_detail")
		if !ok {
			return nil
		}
		text, ok := detailText(d)
		if !ok {
			return nil
		}
		return &text
	}
	return nil
}

// detailText returns the text of a leaf, or compact JSON for containers.
func detailText(n Node) (string, bool) {
	if n.Kind == KindLeaf {
		return n.Text()
	}
	return n.JSON(), true
}
