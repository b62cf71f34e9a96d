package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultBaseDir is the configuration directory under the user's home.
	DefaultBaseDir = ".voxbridge"
	// DefaultConfigFile is the configuration filename.
	DefaultConfigFile = "config.yaml"
)

// Config is the on-disk CLI configuration: named contexts plus the one
// currently in use, kubectl style.
type Config struct {
	// CurrentContext is the name of the active context.
	CurrentContext string `yaml:"current_context,omitempty"`

	// Contexts maps context name to its settings.
	Contexts map[string]*Context `yaml:"contexts,omitempty"`

	configPath string
}

// Context is one named deployment: credentials for all three upstream
// services plus relay tuning.
type Context struct {
	Name string `yaml:"name"`

	// Twilio holds telephony credentials.
	Twilio *TwilioCredentials `yaml:"twilio,omitempty"`

	// OpenAI holds realtime API credentials and model selection.
	OpenAI *OpenAICredentials `yaml:"openai,omitempty"`

	// ElevenLabs holds synthesis credentials for the TTS backend.
	ElevenLabs *ElevenLabsCredentials `yaml:"elevenlabs,omitempty"`

	// Relay tunes the conversation.
	Relay *RelaySettings `yaml:"relay,omitempty"`

	// Server configures the HTTP/WebSocket listener.
	Server *ServerSettings `yaml:"server,omitempty"`
}

// TwilioCredentials authenticates against the Twilio REST API.
type TwilioCredentials struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number,omitempty"`
}

// OpenAICredentials authenticates against the realtime API.
type OpenAICredentials struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model,omitempty"`
	Voice  string `yaml:"voice,omitempty"`
}

// ElevenLabsCredentials authenticates against the synthesis API.
type ElevenLabsCredentials struct {
	APIKey  string `yaml:"api_key"`
	VoiceID string `yaml:"voice_id,omitempty"`
}

// RelaySettings tunes per-call behavior.
type RelaySettings struct {
	// Backend selects the uplink: "openai" (speech to speech) or
	// "elevenlabs" (text mode with external synthesis).
	Backend string `yaml:"backend,omitempty"`
	// Instructions is the AI's system prompt.
	Instructions string `yaml:"instructions,omitempty"`
	// Greeting makes the AI speak first when set.
	Greeting string `yaml:"greeting,omitempty"`
	// LocalVAD enables the relay's own caller speech detector.
	LocalVAD bool `yaml:"local_vad,omitempty"`
	// VADThreshold is the local detector's linear RMS threshold.
	VADThreshold float64 `yaml:"vad_threshold,omitempty"`
	// RecordDir enables transcript persistence when set.
	RecordDir string `yaml:"record_dir,omitempty"`
}

// ServerSettings configures the relay server.
type ServerSettings struct {
	// Listen is the bind address, e.g. ":8080".
	Listen string `yaml:"listen,omitempty"`
	// PublicHost is the externally reachable hostname Twilio connects to.
	PublicHost string `yaml:"public_host,omitempty"`
}

// LoadConfig loads or creates the configuration in the default location.
func LoadConfig() (*Config, error) {
	return LoadConfigWithPath("")
}

// LoadConfigWithPath loads configuration from a custom path. An empty path
// selects ~/.voxbridge/config.yaml.
func LoadConfigWithPath(customPath string) (*Config, error) {
	configPath := customPath
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cli: locate home directory: %w", err)
		}
		configPath = filepath.Join(home, DefaultBaseDir, DefaultConfigFile)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return nil, fmt.Errorf("cli: create config directory: %w", err)
	}

	cfg := &Config{
		Contexts:   make(map[string]*Context),
		configPath: configPath,
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Save()
		}
		return nil, fmt.Errorf("cli: read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cli: parse config: %w", err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	cfg.configPath = configPath
	return cfg, nil
}

// Save writes the configuration to disk. Credentials live here, so the
// file is not group or world readable.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("cli: marshal config: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0600); err != nil {
		return fmt.Errorf("cli: write config: %w", err)
	}
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.configPath
}

// SetContext adds or replaces a context.
func (c *Config) SetContext(name string, ctx *Context) error {
	ctx.Name = name
	c.Contexts[name] = ctx
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
	return c.Save()
}

// DeleteContext removes a context.
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("cli: context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext switches the active context.
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("cli: context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

// ResolveContext returns the named context, or the active one when name is
// empty.
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name == "" {
		name = c.CurrentContext
	}
	if name == "" {
		return nil, fmt.Errorf("cli: no current context set; run `voxbridge config set-context` first")
	}
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("cli: context %q not found", name)
	}
	return ctx, nil
}

// ListContexts returns all context names, sorted.
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MaskSecret masks a credential for display, keeping a recognizable head
// and tail.
func MaskSecret(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
