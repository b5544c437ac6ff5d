package session

import (
	"net/url"
	"strings"

	"github.com/sxk/signal-link/internal/util"
)

// InviteURL builds the link a partner opens to join code.
func InviteURL(origin, code string) string {
	origin = strings.TrimRight(origin, "/")
	return origin + "/?session=" + url.QueryEscape(code)
}

// ParseInvite extracts a session code from either invitation shape:
// <origin>/?session=<code> or <origin>/entry/<code>. A bare code is accepted too.
func ParseInvite(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	var code string
	switch {
	case parsed.Query().Get("session") != "":
		code = parsed.Query().Get("session")
	case strings.Contains(parsed.Path, "/entry/"):
		code = parsed.Path[strings.LastIndex(parsed.Path, "/entry/")+len("/entry/"):]
		code = strings.Trim(code, "/")
	case parsed.Scheme == "" && parsed.Host == "" && !strings.Contains(raw, "/"):
		code = raw
	default:
		return "", false
	}

	code = util.NormalizeSessionCode(code)
	if !util.IsValidSessionCode(code) {
		return "", false
	}
	return code, true
}
