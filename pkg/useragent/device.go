package useragent

import "strings"

type keywordSet []string

func (k keywordSet) containedIn(s string) bool {
	for _, word := range k {
		if strings.Contains(s, word) {
			return true
		}
	}
	return false
}

var (
	botKeywords     = keywordSet{"bot", "spider", "crawler", "archiver", "ping", "lighthouse", "slurp", "daum", "sogou", "yeti", "facebook", "twitter", "slack", "linkedin", "whatsapp", "telegram", "discord", "camo asset", "generator", "monitor", "analyzer", "validator", "fetcher", "scraper", "check", "headless"}
	tvKeywords      = keywordSet{"smarttv", "appletv", "googletv", "android tv", "webos", "tizen", " tv"}
	consoleKeywords = keywordSet{"playstation", "xbox", "nintendo", "wiiu"}
	tabletKeywords  = keywordSet{"tablet", "kindle", "silk"}
	mobileKeywords  = keywordSet{"mobile", "iphone", "android", "windows phone", "iemobile", "blackberry", "nokia"}
	desktopKeywords = keywordSet{"windows", "macintosh", "mac os x", "linux", "x11", "ubuntu", "fedora", "debian", "cros"}
)

// parseDevice expects a lowercased User-Agent. Apple devices are matched
// before bot keywords since their tokens are unambiguous.
func parseDevice(ua string) string {
	switch {
	case ua == "":
		return DeviceUnknown
	case strings.Contains(ua, "ipad"):
		return DeviceTablet
	case strings.Contains(ua, "iphone"):
		return DeviceMobile
	case botKeywords.containedIn(ua):
		return DeviceBot
	case strings.Contains(ua, "android") && !strings.Contains(ua, "tv"):
		// Android tablets omit the "mobile" token.
		if strings.Contains(ua, "mobile") {
			return DeviceMobile
		}
		return DeviceTablet
	case tvKeywords.containedIn(ua):
		return DeviceTV
	case consoleKeywords.containedIn(ua):
		return DeviceConsole
	case tabletKeywords.containedIn(ua):
		return DeviceTablet
	case mobileKeywords.containedIn(ua):
		return DeviceMobile
	case strings.Contains(ua, "windows") && strings.Contains(ua, "touch"):
		return DeviceTablet
	case desktopKeywords.containedIn(ua):
		return DeviceDesktop
	default:
		return DeviceUnknown
	}
}
