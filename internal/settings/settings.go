// Package settings reads and writes the user preferences that gate automatic
// analysis.
package settings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
)

// Recognized keys.
const (
	KeyAutoAnalyze        = "autoAnalyze"
	KeySensitivity        = "sensitivity"
	KeyWhitelistedDomains = "whitelistedDomains"
	KeyBlacklistedDomains = "blacklistedDomains"
)

// Keys lists every recognized key in a stable order.
var Keys = []string{KeyAutoAnalyze, KeySensitivity, KeyWhitelistedDomains, KeyBlacklistedDomains}

type Sensitivity string

const (
	SensitivityLow      Sensitivity = "low"
	SensitivityModerate Sensitivity = "moderate"
	SensitivityHigh     Sensitivity = "high"
)

func (s Sensitivity) Valid() bool {
	switch s {
	case SensitivityLow, SensitivityModerate, SensitivityHigh:
		return true
	}
	return false
}

type Settings struct {
	AutoAnalyze        bool        `mapstructure:"autoAnalyze" json:"autoAnalyze" yaml:"autoAnalyze"`
	Sensitivity        Sensitivity `mapstructure:"sensitivity" json:"sensitivity" yaml:"sensitivity"`
	WhitelistedDomains []string    `mapstructure:"whitelistedDomains" json:"whitelistedDomains" yaml:"whitelistedDomains"`
	BlacklistedDomains []string    `mapstructure:"blacklistedDomains" json:"blacklistedDomains" yaml:"blacklistedDomains"`
}

func Defaults() Settings {
	return Settings{
		AutoAnalyze:        true,
		Sensitivity:        SensitivityModerate,
		WhitelistedDomains: []string{},
		BlacklistedDomains: []string{},
	}
}

// Values converts s to the key-value form accepted by Store.Set.
func (s Settings) Values() map[string]any {
	return map[string]any{
		KeyAutoAnalyze:        s.AutoAnalyze,
		KeySensitivity:        string(s.Sensitivity),
		KeyWhitelistedDomains: s.WhitelistedDomains,
		KeyBlacklistedDomains: s.BlacklistedDomains,
	}
}

// Whitelisted reports whether host is covered by the whitelist.
func (s Settings) Whitelisted(host string) bool { return domainListed(host, s.WhitelistedDomains) }

// Blacklisted reports whether host is covered by the blacklist.
func (s Settings) Blacklisted(host string) bool { return domainListed(host, s.BlacklistedDomains) }

func domainListed(host string, domains []string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return false
	}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "."))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Store is the external key-value settings backend.
type Store interface {
	Get(ctx context.Context, keys []string) (map[string]any, error)
	Set(ctx context.Context, values map[string]any) error
}

// Decode merges values over the defaults. Missing keys keep their default.
func Decode(values map[string]any) (Settings, error) {
	s := Defaults()
	clean := make(map[string]any, len(values))
	for k, v := range values {
		if v != nil {
			clean[k] = v
		}
	}
	if err := mapstructure.WeakDecode(clean, &s); err != nil {
		return Defaults(), fmt.Errorf("decoding settings: %w", err)
	}
	if !s.Sensitivity.Valid() {
		s.Sensitivity = SensitivityModerate
	}
	if s.WhitelistedDomains == nil {
		s.WhitelistedDomains = []string{}
	}
	if s.BlacklistedDomains == nil {
		s.BlacklistedDomains = []string{}
	}
	return s, nil
}

// Loader fetches settings from a Store with linear backoff: attempt n waits
// n × BaseDelay before attempt n+1.
type Loader struct {
	Store     Store
	Attempts  int
	BaseDelay time.Duration

	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewLoader(store Store, attempts int, baseDelay time.Duration, logger zerolog.Logger) *Loader {
	if attempts <= 0 {
		attempts = 3
	}
	return &Loader{
		Store:     store,
		Attempts:  attempts,
		BaseDelay: baseDelay,
		logger:    logger,
		sleep:     sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Load returns the stored settings, retrying failed reads.
func (l *Loader) Load(ctx context.Context) (Settings, error) {
	var lastErr error
	for attempt := 1; attempt <= l.Attempts; attempt++ {
		values, err := l.Store.Get(ctx, Keys)
		if err == nil {
			return Decode(values)
		}
		lastErr = err
		if attempt == l.Attempts {
			break
		}
		delay := time.Duration(attempt) * l.BaseDelay
		l.logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("settings read failed")
		if err := l.sleep(ctx, delay); err != nil {
			return Defaults(), err
		}
	}
	return Defaults(), fmt.Errorf("loading settings after %d attempts: %w", l.Attempts, lastErr)
}

// Save writes every field of s to the store.
func (l *Loader) Save(ctx context.Context, s Settings) error {
	return l.Store.Set(ctx, s.Values())
}
