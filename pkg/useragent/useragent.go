package useragent

import (
	"net/http"
	"strings"
)

// Device categories.
const (
	DeviceBot     = "bot"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
	DeviceTV      = "tv"
	DeviceConsole = "console"
	DeviceUnknown = "unknown"
)

// Visitor is the classification of a User-Agent string.
type Visitor struct {
	Device string
	// Bot is the crawler name when Device is DeviceBot.
	Bot string
}

// IsBot reports whether the visitor is an automated client.
func (v Visitor) IsBot() bool { return v.Device == DeviceBot }

// Classify inspects a raw User-Agent header value.
func Classify(ua string) Visitor {
	lower := strings.ToLower(strings.TrimSpace(ua))
	device := parseDevice(lower)
	v := Visitor{Device: device}
	if device == DeviceBot {
		v.Bot = botName(ua, lower)
	}
	return v
}

// IsBot reports whether ua belongs to a crawler, preview fetcher or monitor.
func IsBot(ua string) bool {
	return Classify(ua).IsBot()
}

// IsBotRequest is IsBot applied to the request's User-Agent header.
// It fits abtest.WithSkipper.
func IsBotRequest(r *http.Request) bool {
	return IsBot(r.UserAgent())
}
