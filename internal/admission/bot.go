package admission

import "strings"

type signature struct {
	name    string
	pattern string
}

var defaultBotSignatures = []signature{
	{"curl", "curl/"},
	{"wget", "wget"},
	{"python-requests", "python-requests"},
	{"python-urllib", "python-urllib"},
	{"aiohttp", "aiohttp"},
	{"go-http-client", "go-http-client"},
	{"apache-httpclient", "apache-httpclient"},
	{"okhttp", "okhttp"},
	{"libwww-perl", "libwww-perl"},
	{"scrapy", "scrapy"},
	{"headless-chrome", "headlesschrome"},
	{"phantomjs", "phantomjs"},
	{"selenium", "selenium"},
	{"puppeteer", "puppeteer"},
	{"sqlmap", "sqlmap"},
	{"nikto", "nikto"},
	{"nmap", "nmap"},
	{"masscan", "masscan"},
	{"zgrab", "zgrab"},
	{"nuclei", "nuclei"},
	{"crawler", "crawler"},
	{"spider", "spider"},
	{"bot", "bot"},
}

// SearchEngineCategory, listed among the allowed names, exempts the
// crawlers below without exempting the generic "bot" signature.
const SearchEngineCategory = "search-engine"

var searchEngineCrawlers = []string{
	"googlebot",
	"bingbot",
	"duckduckbot",
	"yandexbot",
	"baiduspider",
	"applebot",
	"slurp",
}

// BotDetector flags automated clients by User-Agent.
type BotDetector struct {
	signatures   []signature
	allowCrawler bool
}

// NewBotDetector builds a detector from the default signatures minus the
// names listed in allowed.
func NewBotDetector(allowed []string) *BotDetector {
	skip := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		skip[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}

	sigs := make([]signature, 0, len(defaultBotSignatures))
	for _, sig := range defaultBotSignatures {
		if _, ok := skip[sig.name]; ok {
			continue
		}
		sigs = append(sigs, sig)
	}
	_, crawlers := skip[SearchEngineCategory]
	return &BotDetector{signatures: sigs, allowCrawler: crawlers}
}

// Detect returns the matching signature name. A missing User-Agent is
// always treated as automated.
func (d *BotDetector) Detect(userAgent string) (string, bool) {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	if ua == "" {
		return "empty-user-agent", true
	}
	if d.allowCrawler && isSearchEngine(ua) {
		return "", false
	}
	for _, sig := range d.signatures {
		if strings.Contains(ua, sig.pattern) {
			return sig.name, true
		}
	}
	return "", false
}

func isSearchEngine(ua string) bool {
	for _, token := range searchEngineCrawlers {
		if strings.Contains(ua, token) {
			return true
		}
	}
	return false
}
