package policy

import (
	"fmt"
	"os"
	"strings"

	"github.com/groupmod/groupmod/domains"
	"github.com/groupmod/groupmod/games/truthordare"
	"github.com/groupmod/groupmod/games/wordgame"
	"github.com/groupmod/groupmod/ranking"

	"gopkg.in/yaml.v3"
)

const (
	DefaultWelcome = "Welcome {name} (@{username}) to {chat}!"
	DefaultGoodbye = "Goodbye {name}, thanks for stopping by {chat}!"
)

// Initial policy, as read from a YAML file. Everything here can later be changed at runtime by admin commands except the
// ranking settings, decks and media.
type Config struct {
	Features    map[string]bool  `yaml:"features"`
	Links       LinkConfig       `yaml:"links"`
	BannedWords []string         `yaml:"banned_words"`
	Welcome     string           `yaml:"welcome"`
	Goodbye     string           `yaml:"goodbye"`
	Responses   []ResponseConfig `yaml:"responses"`

	Ranking     ranking.Settings `yaml:"ranking"`
	TruthOrDare truthordare.Deck `yaml:"truth_or_dare"`
	Words       wordgame.Bank    `yaml:"words"`
	HintBudget  int              `yaml:"hint_budget"`
	Media       Media            `yaml:"media"`
}

type LinkConfig struct {
	Mode            string   `yaml:"mode"`
	Allowed         []string `yaml:"allowed"`
	Blocked         []string `yaml:"blocked"`
	BlockShorteners bool     `yaml:"block_shorteners"`
	BlockObfuscated bool     `yaml:"block_obfuscated"`
	AllowSubdomains bool     `yaml:"allow_subdomains"`
}

type ResponseConfig struct {
	Pattern string   `yaml:"pattern"`
	Replies []string `yaml:"replies"`
}

func DefaultConfig() Config {
	features := make(map[string]bool, len(Features))
	for _, f := range Features {
		features[f] = true
	}
	return Config{
		Features: features,
		Links: LinkConfig{
			Mode:            string(domains.ModeWhitelist),
			Allowed:         []string{"youtube.com", "telegram.org"},
			Blocked:         []string{"download.com", "malware.site"},
			BlockShorteners: true,
			BlockObfuscated: true,
			AllowSubdomains: false,
		},
		BannedWords: []string{"badword1", "badword2"},
		Welcome:     DefaultWelcome,
		Goodbye:     DefaultGoodbye,
		Ranking:     ranking.DefaultSettings(),
		TruthOrDare: truthordare.DefaultDeck(),
		Words:       wordgame.DefaultBank(),
		HintBudget:  wordgame.DefaultHintBudget,
		Media:       DefaultMedia(),
	}
}

// Reads a YAML policy file on top of DefaultConfig. Environment variables in the file are expanded first.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading policy file: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(data))))
}

func Parse(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing policy file: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Links.Mode == "" {
		c.Links.Mode = def.Links.Mode
	}
	if c.Welcome == "" {
		c.Welcome = def.Welcome
	}
	if c.Goodbye == "" {
		c.Goodbye = def.Goodbye
	}
	if c.Ranking.XPPerLevel == 0 {
		c.Ranking.XPPerLevel = def.Ranking.XPPerLevel
	}
	if c.HintBudget <= 0 {
		c.HintBudget = def.HintBudget
	}
	if len(c.Words) == 0 {
		c.Words = def.Words
	}
}

func (c *Config) Validate() error {
	for name := range c.Features {
		if !isKnown(name) {
			return fmt.Errorf("%w: %s", ErrUnknownFeature, name)
		}
	}
	if _, err := domains.ParseMode(c.Links.Mode); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidMode, c.Links.Mode)
	}
	for i, w := range c.Words {
		if strings.TrimSpace(w.Word) == "" {
			return fmt.Errorf("%w: words[%d]", ErrEmptyWord, i)
		}
	}
	return nil
}
