// Package analytics records first-party page views for visitors who accepted
// analytics cookies, and crawler hits separately. IP addresses are never
// stored in the clear.
package analytics

import (
	"regexp"
	"strings"
	"time"
)

// Visit is one page view by a consenting visitor.
type Visit struct {
	VisitorID string
	SessionID string
	IPHash    string
	Browser   string
	OS        string
	Device    string
	Path      string
	Referrer  string
	Timestamp time.Time
}

// BotVisit is one crawler hit.
type BotVisit struct {
	BotName   string
	IPHash    string
	UserAgent string
	Path      string
	Timestamp time.Time
}

// Stats is the visitor summary for a period.
type Stats struct {
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	UniqueVisitors int             `json:"unique_visitors"`
	TotalViews     int             `json:"total_views"`
	TopPages       []PageStat      `json:"top_pages"`
	Browsers       []DimensionStat `json:"browsers"`
	Devices        []DimensionStat `json:"devices"`
	Referrers      []DimensionStat `json:"referrers"`
	Daily          []DailyView     `json:"daily"`
	BotVisits      int             `json:"bot_visits"`
	TopBots        []DimensionStat `json:"top_bots"`
}

// PageStat counts views of one path.
type PageStat struct {
	Path  string `json:"path"`
	Views int    `json:"views"`
}

// DimensionStat counts views for one value of a dimension.
type DimensionStat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DailyView counts views on one day (YYYY-MM-DD).
type DailyView struct {
	Date  string `json:"date"`
	Views int    `json:"views"`
}

type uaRule struct {
	needles []string
	name    string
}

// Order matters: Edge and Opera carry "chrome", Chrome carries "safari",
// Android carries "linux", iPad carries "mobile".
var (
	browserRules = []uaRule{
		{[]string{"firefox", "fxios"}, "Firefox"},
		{[]string{"opr/", "opera"}, "Opera"},
		{[]string{"edg"}, "Edge"},
		{[]string{"chrome", "crios"}, "Chrome"},
		{[]string{"safari"}, "Safari"},
	}
	osRules = []uaRule{
		{[]string{"windows"}, "Windows"},
		{[]string{"android"}, "Android"},
		{[]string{"iphone", "ipad"}, "iOS"},
		{[]string{"macintosh", "mac os"}, "macOS"},
		{[]string{"linux"}, "Linux"},
	}
	deviceRules = []uaRule{
		{[]string{"tablet", "ipad"}, "Tablet"},
		{[]string{"mobile"}, "Mobile"},
	}
	botRules = []uaRule{
		{[]string{"googlebot"}, "Googlebot"},
		{[]string{"bingbot"}, "Bingbot"},
		{[]string{"yandex"}, "Yandex"},
		{[]string{"baidu"}, "Baidu"},
		{[]string{"duckduckbot"}, "DuckDuckBot"},
		{[]string{"facebookexternalhit"}, "Facebook"},
		{[]string{"twitterbot"}, "Twitterbot"},
		{[]string{"linkedinbot"}, "LinkedIn"},
		{[]string{"ahrefsbot"}, "Ahrefs"},
		{[]string{"semrushbot"}, "SEMrush"},
		{[]string{"gptbot"}, "GPTBot"},
		{[]string{"slurp"}, "Yahoo Slurp"},
		{[]string{"bot", "crawl", "spider", "scrape"}, "Other Bot"},
	}
)

func match(ua string, rules []uaRule, fallback string) string {
	for _, r := range rules {
		for _, n := range r.needles {
			if strings.Contains(ua, n) {
				return r.name
			}
		}
	}
	return fallback
}

// ParseUserAgent classifies a User-Agent header.
func ParseUserAgent(ua string) (browser, os, device string) {
	ua = strings.ToLower(ua)
	return match(ua, browserRules, "Other"), match(ua, osRules, "Other"), match(ua, deviceRules, "Desktop")
}

// BotName returns the crawler name, or "" when ua is not a crawler.
func BotName(ua string) string {
	return match(strings.ToLower(ua), botRules, "")
}

var (
	referrerHost  = regexp.MustCompile(`^https?://(?:www\.)?([^/:?#]+)`)
	searchEngines = map[string]string{
		"google.":     "Google",
		"bing.":       "Bing",
		"duckduckgo.": "DuckDuckGo",
		"yahoo.":      "Yahoo",
	}
)

// CleanReferrer reduces a referrer to a source name. Same-site navigation
// returns "".
func CleanReferrer(ref, ownHost string) string {
	if ref == "" {
		return "Direct"
	}
	m := referrerHost.FindStringSubmatch(strings.ToLower(ref))
	if len(m) < 2 {
		return "Other"
	}
	host := m[1]
	own, _, _ := strings.Cut(strings.ToLower(ownHost), ":")
	if own != "" && strings.TrimPrefix(own, "www.") == host {
		return ""
	}
	for needle, name := range searchEngines {
		if strings.Contains(host, needle) {
			return name
		}
	}
	return host
}
