// Package selectors provides the detection pattern and strategy tables used
// for challenge classification, challenge solving, and consent dismissal.
// Tables are loaded from an embedded YAML file and can be overridden at
// runtime from an external file (see Manager).
package selectors

import (
	"embed"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//go:embed selectors.yaml
var defaultSelectorsFS embed.FS

// Strategy is one candidate locate rule: a selector plus the location mode it
// must be resolved in. Chains of strategies are evaluated in order,
// first-match-wins, so order encodes confidence (site-specific entries before
// generic class-substring entries).
type Strategy struct {
	Matcher string `yaml:"matcher"`
	// Mode is one of "direct" (default), "iframe", or "shadow-probe".
	Mode string `yaml:"mode,omitempty"`
}

// Selectors contains every pattern table the engine consults.
type Selectors struct {
	// Title fingerprints.
	ChallengeTitles []string `yaml:"challenge_titles"`
	BlockedTitles   []string `yaml:"blocked_titles"`

	// DOM markers that indicate a challenge interstitial is in progress.
	ChallengeMarkers []string `yaml:"challenge_markers"`

	// CAPTCHA frames.
	RecaptchaFrame  string `yaml:"recaptcha_frame"`
	RecaptchaAnchor string `yaml:"recaptcha_anchor"`
	HcaptchaFrame   string `yaml:"hcaptcha_frame"`

	// Managed challenge (Cloudflare-style interstitial) fingerprints.
	ChallengeHost    string   `yaml:"challenge_host"`
	ChallengeFrame   string   `yaml:"challenge_frame"`
	WidgetFrameBySrc string   `yaml:"widget_frame_by_src"`
	WidgetFrameByID  string   `yaml:"widget_frame_by_id"`
	ChallengeScript  string   `yaml:"challenge_script"`
	WidgetMarkers    string   `yaml:"widget_markers"`
	ResponseInput    string   `yaml:"response_input"`
	RayIDText        string   `yaml:"ray_id_text"`
	VerifyText       string   `yaml:"verify_text"`
	LegacyLabelInput string   `yaml:"legacy_label_input"`
	VerifyLabelTexts []string `yaml:"verify_label_texts"`

	// Interactive challenge element chains.
	CheckboxChain     []Strategy `yaml:"checkbox_chain"`
	HumanVerifyChain  []Strategy `yaml:"human_verify_chain"`
	PressHoldChain    []Strategy `yaml:"press_hold_chain"`
	SliderTrackChain  []Strategy `yaml:"slider_track_chain"`
	SliderHandleChain []Strategy `yaml:"slider_handle_chain"`
	PuzzleHandleChain []Strategy `yaml:"puzzle_handle_chain"`
	PuzzleText        string     `yaml:"puzzle_text"`

	// Cookie consent.
	CookieKeywords    []string   `yaml:"cookie_keywords"`
	CookieContainers  []string   `yaml:"cookie_containers"`
	CookieAcceptChain []Strategy `yaml:"cookie_accept_chain"`
	CookieAcceptTexts []string   `yaml:"cookie_accept_texts"`
	CookieDenyTexts   []string   `yaml:"cookie_deny_texts"`

	// Generic modal/popup dismissal.
	ModalContainers []string   `yaml:"modal_containers"`
	ModalCloseChain []Strategy `yaml:"modal_close_chain"`
}

var (
	instance *Selectors
	once     sync.Once
)

// Get returns the embedded default Selectors instance.
func Get() *Selectors {
	once.Do(func() {
		s, err := load()
		if err != nil {
			log.Error().Err(err).Msg("Failed to load embedded selectors, using compiled fallback")
			s = fallbackSelectors()
		}
		instance = s
	})
	return instance
}

// load reads the pattern tables from the embedded YAML file.
func load() (*Selectors, error) {
	data, err := defaultSelectorsFS.ReadFile("selectors.yaml")
	if err != nil {
		return nil, err
	}

	var s Selectors
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}

	log.Debug().
		Int("challenge_titles", len(s.ChallengeTitles)).
		Int("checkbox_strategies", len(s.CheckboxChain)).
		Int("cookie_accept_strategies", len(s.CookieAcceptChain)).
		Msg("Selector tables loaded")

	return &s, nil
}

// fallbackSelectors returns a minimal hardcoded table set. Only used if the
// embedded YAML fails to parse, which would indicate a build problem.
func fallbackSelectors() *Selectors {
	return &Selectors{
		ChallengeTitles:  []string{"just a moment", "attention required", "one more step", "checking your browser", "please wait", "verify", "security check", "challenge"},
		BlockedTitles:    []string{"access denied", "blocked", "forbidden"},
		ChallengeHost:    "challenges.cloudflare.com",
		ChallengeFrame:   "iframe[src*='challenges.cloudflare.com']",
		WidgetFrameBySrc: "iframe[src*='challenges.cloudflare.com'][src*='turnstile']",
		WidgetFrameByID:  "iframe[id^='cf-chl-widget']",
		ChallengeScript:  "script[src*='challenge-platform']",
		RecaptchaFrame:   "iframe[src*='recaptcha']",
		HcaptchaFrame:    "iframe[src*='hcaptcha']",
		RayIDText:        "Ray ID",
		VerifyText:       "Verify you are human",
		PuzzleText:       "Slide to complete",
		CheckboxChain: []Strategy{
			{Matcher: "input[type='checkbox'][name*='robot'], input[type='checkbox'][id*='robot'], input[type='checkbox'][name*='human'], input[type='checkbox'][id*='human']"},
		},
	}
}
