package mail

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Subject is a subject line parsed against the [PATCH ...] convention of
// patch-based mailing lists.
type Subject struct {
	Clean    string   // subject text after all prefixes
	Prefixes []string // bracket tokens that are not flags, e.g. "PATCH", "net-next"
	Num      int      // position in the series, e.g. 2 in [PATCH 2/5]
	Total    int      // series size, e.g. 5 in [PATCH 2/5]; 0 when absent
	Revision int      // v-number; 1 when unmarked
	IsReply  bool
	IsRFC    bool
	IsResend bool
}

var (
	reReply        = regexp.MustCompile(`(?i)^(re|aw|fwd?)\s*:\s*`)
	reGenericReply = regexp.MustCompile(`(?i)^\w{2,3}:\s*\[`)
	reBracket      = regexp.MustCompile(`^\s*\[([^\]]*)\]\s*`)
	reCounter      = regexp.MustCompile(`^(\d{1,4})/(\d{1,4})$`)
	reRevision     = regexp.MustCompile(`(?i)^v(\d+)$`)
	rePatchRev     = regexp.MustCompile(`(?i)^patch(v\d+)$`)
)

// ParseSubject splits a subject line into its series markers and the plain
// subject text. It understands shapes like
//
//	[PATCH v3 2/5] index: fix rebuild on empty subjects
//	Re: [PATCH 1/3] some fix
//	[RFC PATCH] an idea
func ParseSubject(subject string) Subject {
	s := strings.Join(strings.Fields(subject), " ")
	parsed := Subject{Revision: 1}

	if reReply.MatchString(s) {
		parsed.IsReply = true
		s = strings.TrimSpace(reReply.ReplaceAllString(s, ""))
	} else if reGenericReply.MatchString(s) {
		parsed.IsReply = true
		s = s[strings.Index(s, "["):]
	}

	for {
		loc := reBracket.FindStringSubmatchIndex(s)
		if loc == nil || loc[0] != 0 {
			break
		}
		content := s[loc[2]:loc[3]]
		s = s[loc[1]:]

		for _, token := range strings.Fields(content) {
			switch {
			case reCounter.MatchString(token):
				m := reCounter.FindStringSubmatch(token)
				parsed.Num, _ = strconv.Atoi(m[1])
				parsed.Total, _ = strconv.Atoi(m[2])
			case reRevision.MatchString(token):
				m := reRevision.FindStringSubmatch(token)
				parsed.Revision, _ = strconv.Atoi(m[1])
			case rePatchRev.MatchString(token):
				m := rePatchRev.FindStringSubmatch(token)
				parsed.Revision, _ = strconv.Atoi(strings.TrimPrefix(strings.ToLower(m[1]), "v"))
				parsed.Prefixes = append(parsed.Prefixes, "PATCH")
			case strings.EqualFold(token, "RFC"):
				parsed.IsRFC = true
			case strings.EqualFold(token, "RESEND"):
				parsed.IsResend = true
			default:
				parsed.Prefixes = append(parsed.Prefixes, token)
			}
		}
	}

	parsed.Clean = strings.TrimSpace(s)
	return parsed
}

// IsPatch reports whether the subject carried a PATCH prefix.
func (s Subject) IsPatch() bool {
	for _, p := range s.Prefixes {
		if strings.EqualFold(p, "PATCH") {
			return true
		}
	}
	return false
}

// IsCover reports whether this is a series cover letter (patch 0/N).
func (s Subject) IsCover() bool {
	return s.Num == 0 && s.Total > 0
}

// SeriesLabel is a short display form of the series markers, e.g. "v3 2/5".
// Unversioned single patches yield "".
func (s Subject) SeriesLabel() string {
	var parts []string
	if s.Revision > 1 {
		parts = append(parts, fmt.Sprintf("v%d", s.Revision))
	}
	if s.Total > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d", s.Num, s.Total))
	}
	return strings.Join(parts, " ")
}

// NormalizeSubject reduces a subject line to the key used to group loose
// replies into threads: reply and bracket prefixes stripped, whitespace
// collapsed, case folded.
func NormalizeSubject(subject string) string {
	s := strings.Join(strings.Fields(subject), " ")
	for {
		switch {
		case reReply.MatchString(s):
			s = strings.TrimSpace(reReply.ReplaceAllString(s, ""))
		case reBracket.MatchString(s):
			s = strings.TrimSpace(reBracket.ReplaceAllString(s, ""))
		default:
			return strings.ToLower(s)
		}
	}
}
