package downloadcfg

import (
    "regexp"
    "strings"
)

// Defaults used when configuration leaves the policy empty.
const (
    // DefaultFormat prefers a combined mp4 stream, then any single stream,
    // then best audio merged with best video.
    DefaultFormat    = "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/b/bestaudio+bv*"
    DefaultContainer = "mp4"
    // OutputTemplate names the result after the video title, capped at 200 bytes.
    OutputTemplate = "%(title).200B.%(ext)s"
)

// DefaultHosts is the source allow-list.
var DefaultHosts = []string{"youtube.com", "youtu.be"}

// FormatPolicy carries the engine-agnostic preference for what to fetch.
// The engine may substitute an available alternative.
type FormatPolicy struct {
    Format    string
    Container string
}

// NewFormatPolicy fills empty values with defaults.
func NewFormatPolicy(format, container string) FormatPolicy {
    p := FormatPolicy{Format: strings.TrimSpace(format), Container: strings.TrimPrefix(strings.TrimSpace(container), ".")}
    if p.Format == "" {
        p.Format = DefaultFormat
    }
    if p.Container == "" {
        p.Container = DefaultContainer
    }
    return p
}

// Ext returns the container as a file extension, e.g. ".mp4".
func (p FormatPolicy) Ext() string { return "." + p.Container }

// HostPattern matches accepted source URLs: optional scheme, optional
// "www.", one of the hosts, then a non-empty path. Matching is
// case-insensitive and anchored at the start only.
type HostPattern struct {
    re *regexp.Regexp
}

// NewHostPattern compiles a pattern for hosts, falling back to DefaultHosts.
func NewHostPattern(hosts []string) *HostPattern {
    quoted := make([]string, 0, len(hosts))
    for _, h := range hosts {
        h = strings.ToLower(strings.TrimSpace(h))
        if h == "" {
            continue
        }
        quoted = append(quoted, regexp.QuoteMeta(h))
    }
    if len(quoted) == 0 {
        for _, h := range DefaultHosts {
            quoted = append(quoted, regexp.QuoteMeta(h))
        }
    }
    re := regexp.MustCompile(`(?i)^(https?://)?(www\.)?(` + strings.Join(quoted, "|") + `)/.+`)
    return &HostPattern{re: re}
}

func (p *HostPattern) Match(rawURL string) bool {
    return p.re.MatchString(rawURL)
}
