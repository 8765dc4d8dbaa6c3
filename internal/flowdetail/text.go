package flowdetail

import "regexp"

// SDWANForwardingFeature names the feature entry whose detail carries the
// direction and colour text on deployments without structured events.
const SDWANForwardingFeature = "SDWAN Forwarding"

const colorNotFound = "not found"

var (
	upstreamPattern    = regexp.MustCompile(`(?i)dir\s*:\s*Upstream`)
	downstreamPattern  = regexp.MustCompile(`(?i)dir\s*:\s*Downstream`)
	localColorPattern  = regexp.MustCompile(`(?i)Local\s+Color\s*:\s*([\w-]+)`)
	remoteColorPattern = regexp.MustCompile(`(?i)Remote\s+Color\s*:\s*([\w-]+)`)
)

// parseDirection finds the dir: token in a forwarding description.
// Upstream wins when both appear.
func parseDirection(text string) (Direction, bool) {
	if upstreamPattern.MatchString(text) {
		return Upstream, true
	}
	if downstreamPattern.MatchString(text) {
		return Downstream, true
	}
	return "", false
}

func parseColor(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return colorNotFound
}
