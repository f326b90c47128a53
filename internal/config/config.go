package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Default configuration values
const (
	DefaultBusURL   = "ws://localhost:8080/ws"
	DefaultBusAddr  = ":8080"
	DefaultChannel  = "drawing"
	DefaultSTUN     = "stun:stun.l.google.com:19302"
	DefaultTURN     = "" // Optional, empty by default
	DefaultTURNUser = ""
	DefaultTURNPass = ""
	DefaultCodec    = CodecJSON

	DefaultHandshakeTimeout = 5 * time.Second
	DefaultReadyInterval    = 1 * time.Second
)

// Instruction codecs understood by the draw relay.
const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

var (
	ErrInvalidCodec   = errors.New("invalid codec")
	ErrInvalidTimeout = errors.New("invalid timeout")
	ErrRelayNeedsTURN = errors.New("cannot force relay mode without TURN server configured")
)

// Config holds application configuration
type Config struct {
	// BusURL is the websocket endpoint of the signaling bus
	BusURL string

	// Channel is the bus channel both participants join
	Channel string

	// BusAddr is the listen address of the bus server
	BusAddr string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool

	// Codec selects the drawing instruction wire format
	Codec string

	// Handshake timers
	OfferTimeout       time.Duration
	ConfirmTimeout     time.Duration
	AcknowledgeTimeout time.Duration
	ReadyInterval      time.Duration
}

// Options for loading config with CLI flag overrides
type Options struct {
	ConfigFile string

	BusURL     string
	Channel    string
	BusAddr    string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
	Codec      string

	// Timeout overrides all three handshake timers when non-zero
	Timeout       time.Duration
	ReadyInterval time.Duration
}

// fileConfig mirrors the TOML config file.
type fileConfig struct {
	BusURL             string `toml:"bus_url"`
	Channel            string `toml:"channel"`
	BusAddr            string `toml:"bus_addr"`
	STUNServer         string `toml:"stun_server"`
	TURNServer         string `toml:"turn_server"`
	TURNUser           string `toml:"turn_username"`
	TURNPass           string `toml:"turn_password"`
	ForceRelay         bool   `toml:"force_relay"`
	Codec              string `toml:"codec"`
	OfferTimeout       string `toml:"offer_timeout"`
	ConfirmTimeout     string `toml:"confirm_timeout"`
	AcknowledgeTimeout string `toml:"acknowledge_timeout"`
	ReadyInterval      string `toml:"ready_interval"`
}

// Default returns a Config populated with the hardcoded defaults.
func Default() *Config {
	return &Config{
		BusURL:             DefaultBusURL,
		Channel:            DefaultChannel,
		BusAddr:            DefaultBusAddr,
		STUNServer:         DefaultSTUN,
		TURNServer:         DefaultTURN,
		TURNUser:           DefaultTURNUser,
		TURNPass:           DefaultTURNPass,
		Codec:              DefaultCodec,
		OfferTimeout:       DefaultHandshakeTimeout,
		ConfirmTimeout:     DefaultHandshakeTimeout,
		AcknowledgeTimeout: DefaultHandshakeTimeout,
		ReadyInterval:      DefaultReadyInterval,
	}
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. TOML config file (Options.ConfigFile)
// 4. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	cfg := Default()

	if opts.ConfigFile != "" {
		if err := cfg.applyFile(opts.ConfigFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.applyOptions(opts)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config file: %w", err)
	}

	setString := func(key, value string, dst *string) {
		if meta.IsDefined(key) && strings.TrimSpace(value) != "" {
			*dst = strings.TrimSpace(value)
		}
	}
	setString("bus_url", raw.BusURL, &c.BusURL)
	setString("channel", raw.Channel, &c.Channel)
	setString("bus_addr", raw.BusAddr, &c.BusAddr)
	setString("stun_server", raw.STUNServer, &c.STUNServer)
	setString("turn_server", raw.TURNServer, &c.TURNServer)
	setString("turn_username", raw.TURNUser, &c.TURNUser)
	setString("turn_password", raw.TURNPass, &c.TURNPass)
	setString("codec", raw.Codec, &c.Codec)

	if meta.IsDefined("force_relay") {
		c.ForceRelay = raw.ForceRelay
	}

	durations := []struct {
		key   string
		value string
		dst   *time.Duration
	}{
		{"offer_timeout", raw.OfferTimeout, &c.OfferTimeout},
		{"confirm_timeout", raw.ConfirmTimeout, &c.ConfirmTimeout},
		{"acknowledge_timeout", raw.AcknowledgeTimeout, &c.AcknowledgeTimeout},
		{"ready_interval", raw.ReadyInterval, &c.ReadyInterval},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.value))
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

func (c *Config) applyEnv() error {
	envString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envString("BUS_URL", &c.BusURL)
	envString("CHANNEL", &c.Channel)
	envString("BUS_ADDR", &c.BusAddr)
	envString("STUN_SERVER", &c.STUNServer)
	envString("TURN_SERVER", &c.TURNServer)
	envString("TURN_USERNAME", &c.TURNUser)
	envString("TURN_PASSWORD", &c.TURNPass)
	envString("CODEC", &c.Codec)

	if v := os.Getenv("FORCE_RELAY"); v == "1" || strings.EqualFold(v, "true") {
		c.ForceRelay = true
	}

	if v := os.Getenv("HANDSHAKE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse HANDSHAKE_TIMEOUT: %w", err)
		}
		c.setHandshakeTimeout(d)
	}
	return nil
}

func (c *Config) applyOptions(opts Options) {
	override := func(value string, dst *string) {
		if value != "" {
			*dst = value
		}
	}
	override(opts.BusURL, &c.BusURL)
	override(opts.Channel, &c.Channel)
	override(opts.BusAddr, &c.BusAddr)
	override(opts.STUNServer, &c.STUNServer)
	override(opts.TURNServer, &c.TURNServer)
	override(opts.TURNUser, &c.TURNUser)
	override(opts.TURNPass, &c.TURNPass)
	override(opts.Codec, &c.Codec)

	if opts.ForceRelay {
		c.ForceRelay = true
	}
	if opts.Timeout != 0 {
		c.setHandshakeTimeout(opts.Timeout)
	}
	if opts.ReadyInterval != 0 {
		c.ReadyInterval = opts.ReadyInterval
	}
}

func (c *Config) setHandshakeTimeout(d time.Duration) {
	c.OfferTimeout = d
	c.ConfirmTimeout = d
	c.AcknowledgeTimeout = d
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Codec {
	case CodecJSON, CodecMsgpack:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCodec, c.Codec)
	}

	for name, d := range map[string]time.Duration{
		"offer":       c.OfferTimeout,
		"confirm":     c.ConfirmTimeout,
		"acknowledge": c.AcknowledgeTimeout,
		"ready":       c.ReadyInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidTimeout, name, d)
		}
	}

	if c.ForceRelay && c.GetTURNServers() == nil {
		return ErrRelayNeedsTURN
	}
	return nil
}

// WebSocketURL returns the bus endpoint with the channel query parameter set.
func (c *Config) WebSocketURL() (string, error) {
	u, err := url.Parse(c.BusURL)
	if err != nil {
		return "", fmt.Errorf("invalid bus URL: %w", err)
	}
	q := u.Query()
	q.Set("channel", c.Channel)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	host := strings.TrimPrefix(c.TURNServer, "turn:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
