package audit

import (
	"strings"

	"github.com/mssola/useragent"
)

// DeviceLabel renders a short human label such as "Firefox on Linux" from a
// User-Agent header. Returns "" for an empty header.
func DeviceLabel(ua string) string {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return ""
	}
	parsed := useragent.New(ua)
	if parsed.Bot() {
		name, _ := parsed.Browser()
		if name == "" {
			return "bot"
		}
		return "bot: " + name
	}

	browser, _ := parsed.Browser()
	os := parsed.OSInfo().Name
	switch {
	case browser != "" && os != "":
		label := browser + " on " + os
		if parsed.Mobile() {
			label += " (mobile)"
		}
		return label
	case browser != "":
		return browser
	case os != "":
		return os
	}
	return "unknown"
}
