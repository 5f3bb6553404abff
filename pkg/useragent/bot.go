package useragent

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const unknownBot = "Unknown Bot"

// knownBots is checked in order; the first matching token names the bot.
var knownBots = []struct{ token, name string }{
	{"googlebot", "Googlebot"},
	{"adsbot", "AdsBot"},
	{"bingbot", "Bingbot"},
	{"yandexbot", "Yandexbot"},
	{"baiduspider", "Baiduspider"},
	{"duckduckbot", "DuckDuckBot"},
	{"twitterbot", "Twitterbot"},
	{"facebookexternalhit", "Facebook"},
	{"linkedinbot", "LinkedInBot"},
	{"slackbot", "Slackbot"},
	{"telegrambot", "TelegramBot"},
	{"whatsapp", "WhatsApp"},
	{"discordbot", "Discordbot"},
	{"headlesschrome", "HeadlessChrome"},
}

var botNamePattern = regexp.MustCompile(`(?i)([a-z0-9_-]+(?:bot|spider|crawler))`)

func botName(ua, lower string) string {
	for _, b := range knownBots {
		if strings.Contains(lower, b.token) {
			return b.name
		}
	}
	if m := botNamePattern.FindStringSubmatch(ua); len(m) > 1 {
		return cases.Title(language.English).String(strings.ToLower(m[1]))
	}
	return unknownBot
}
