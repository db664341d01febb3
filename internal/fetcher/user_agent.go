package fetcher

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

type UserAgentType string

const (
	UserAgentAuto    UserAgentType = "auto"
	UserAgentChrome  UserAgentType = "chrome"
	UserAgentFirefox UserAgentType = "firefox"
	UserAgentSafari  UserAgentType = "safari"
	UserAgentEdge    UserAgentType = "edge"
)

var userAgents = map[UserAgentType][]string{
	UserAgentChrome: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	},
	UserAgentFirefox: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14.1; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14.0; rv:120.0) Gecko/20100101 Firefox/120.0",
	},
	UserAgentSafari: {
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_1_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_1_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_1_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (iPad; CPU OS 17_1_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
	},
	UserAgentEdge: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36 Edg/119.0.0.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
	},
}

type UserAgentSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewUserAgentSelector() *UserAgentSelector {
	return &UserAgentSelector{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GetUserAgent picks a user agent for a browser family ("auto", "chrome",
// "firefox", "safari", "edge"). Any other value is used verbatim.
func (uas *UserAgentSelector) GetUserAgent(uaType string) string {
	trimmed := strings.TrimSpace(uaType)
	kind := UserAgentType(strings.ToLower(trimmed))

	switch kind {
	case "", UserAgentAuto:
		return uas.getRandomFromAll()
	case UserAgentChrome, UserAgentFirefox, UserAgentSafari, UserAgentEdge:
		return uas.getRandomFromType(kind)
	}
	return trimmed
}

// Families lists the named browser families, sorted.
func Families() []UserAgentType {
	return []UserAgentType{UserAgentChrome, UserAgentEdge, UserAgentFirefox, UserAgentSafari}
}

func (uas *UserAgentSelector) getRandomFromAll() string {
	var all []string
	for _, family := range Families() {
		all = append(all, userAgents[family]...)
	}
	return all[uas.intn(len(all))]
}

// getRandomFromType falls back to every family when uaType has no agents.
func (uas *UserAgentSelector) getRandomFromType(uaType UserAgentType) string {
	agents := userAgents[uaType]
	if len(agents) == 0 {
		return uas.getRandomFromAll()
	}
	return agents[uas.intn(len(agents))]
}

// rand.Rand is not safe for concurrent use.
func (uas *UserAgentSelector) intn(n int) int {
	uas.mu.Lock()
	defer uas.mu.Unlock()
	return uas.rng.Intn(n)
}
