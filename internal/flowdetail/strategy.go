package flowdetail

// pairing is one hop contribution: who and where, plus the feature record
// carrying its packet detail.
type pairing struct {
	attr    attribution
	feature RawRecord
}

// strategy resolves hop attributions from correlated records.
type strategy interface {
	mode() string
	pairings(c Correlation) []pairing
}

func strategyFor(c Correlation) strategy {
	if c.HasStructuredEvents {
		return structuredStrategy{}
	}
	return textStrategy{}
}

// structuredStrategy takes direction and colours from event records.
// Events are scanned newest first and every feature sharing the event's
// packet id yields a hop.
type structuredStrategy struct{}

func (structuredStrategy) mode() string { return "structured" }

func (structuredStrategy) pairings(c Correlation) []pairing {
	var out []pairing
	for i := len(c.Events) - 1; i >= 0; i-- {
		ev := c.Events[i]
		attr, ok := eventAttribution(ev)
		if !ok {
			continue
		}
		pid, ok := ev.PacketID()
		if !ok {
			continue
		}
		for _, f := range c.Features {
			if fid, ok := f.PacketID(); ok && fid == pid {
				out = append(out, pairing{attr: attr, feature: f})
			}
		}
	}
	return out
}

func eventAttribution(ev RawRecord) (attribution, bool) {
	fields := [...]string{"device_name", "event_name", "event_direction", "local_color", "remote_color"}
	var vals [len(fields)]string
	for i, f := range fields {
		n, ok := ev.Data.Get(f)
		if !ok {
			return attribution{}, false
		}
		if vals[i], ok = n.Text(); !ok {
			return attribution{}, false
		}
	}
	return attribution{
		device:      vals[0],
		event:       vals[1],
		direction:   Direction(vals[2]),
		localColor:  vals[3],
		remoteColor: vals[4],
	}, true
}

// textStrategy recovers direction and colours from the free-text detail of
// the SDWAN Forwarding feature entry.
type textStrategy struct{}

func (textStrategy) mode() string { return "text" }

func (textStrategy) pairings(c Correlation) []pairing {
	var out []pairing
	for _, f := range c.Features {
		if attr, ok := textAttribution(f); ok {
			out = append(out, pairing{attr: attr, feature: f})
		}
	}
	return out
}

func textAttribution(f RawRecord) (attribution, bool) {
	device, ok := f.Device()
	if !ok {
		return attribution{}, false
	}
	packet, ok := f.Data.Get("packet")
	if !ok {
		return attribution{}, false
	}
	text, ok := forwardingText(fiaContainer(packet))
	if !ok {
		return attribution{}, false
	}
	dir, ok := parseDirection(text)
	if !ok {
		return attribution{}, false
	}
	event := ""
	if n, ok := packet.Get("event_name"); ok {
		event, _ = n.Text()
	}
	return attribution{
		device:      device,
		event:       event,
		direction:   dir,
		localColor:  parseColor(localColorPattern, text),
		remoteColor: parseColor(remoteColorPattern, text),
	}, true
}

// forwardingText locates the SDWAN Forwarding entry and returns the
// feature_detail of the container holding it.
func forwardingText(root Node) (string, bool) {
	path, ok := FindPath(root, SDWANForwardingFeature)
	if !ok {
		return "", false
	}
	entry, ok := root.At(path.Parent())
	if !ok {
		return "", false
	}
	d, ok := entry.Get("feature_detail")
	if !ok {
		return "", false
	}
	return detailText(d)
}
