package mail

import (
	netmail "net/mail"
	"regexp"
	"strings"
)

// Trailer is one git-style trailer line, e.g.
// "Signed-off-by: Sam Author <sam@example.org>".
type Trailer struct {
	Name  string
	Value string
	Email string // extracted address, when the value carries one
}

// knownTrailers gates which keys count as trailers, lowercase for matching.
// Arbitrary "Key: value" prose lines must not qualify.
var knownTrailers = map[string]bool{
	"signed-off-by":   true,
	"acked-by":        true,
	"reviewed-by":     true,
	"tested-by":       true,
	"reported-by":     true,
	"suggested-by":    true,
	"co-developed-by": true,
	"co-authored-by":  true,
	"cc":              true,
	"fixes":           true,
	"link":            true,
	"closes":          true,
	"buglink":         true,
	"change-id":       true,
	"depends-on":      true,
}

var (
	reTrailerLine = regexp.MustCompile(`^\s*([A-Za-z][\w-]+)\s*:\s+(\S.*)$`)
	reEmailAddr   = regexp.MustCompile(`\S+@\S+\.\S+`)
)

// ParseTrailer parses one line. It returns the zero Trailer and false when
// the line is not a recognized trailer.
func ParseTrailer(line string) (Trailer, bool) {
	m := reTrailerLine.FindStringSubmatch(line)
	if m == nil {
		return Trailer{}, false
	}
	if !knownTrailers[strings.ToLower(m[1])] {
		return Trailer{}, false
	}

	t := Trailer{Name: m[1], Value: strings.TrimSpace(m[2])}
	if addr, err := netmail.ParseAddress(t.Value); err == nil {
		t.Email = addr.Address
	} else if found := reEmailAddr.FindString(t.Value); found != "" {
		t.Email = strings.Trim(found, "<>")
	}
	return t, true
}

// IsTrailerLine reports whether line is a recognized trailer without
// building the parsed form.
func IsTrailerLine(line string) bool {
	_, ok := ParseTrailer(line)
	return ok
}

// ParseTrailers collects every recognized trailer in text, in order.
func ParseTrailers(text string) []Trailer {
	var trailers []Trailer
	for _, line := range strings.Split(text, "\n") {
		if t, ok := ParseTrailer(line); ok {
			trailers = append(trailers, t)
		}
	}
	return trailers
}

// String renders the trailer back into its canonical line form.
func (t Trailer) String() string {
	return t.Name + ": " + t.Value
}
