// Package cpconfig loads the YAML configuration shared by the cp-agent and
// cp-acceptor demo binaries.
package cpconfig

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes one CP endpoint: where to dial (or listen), which
// identifiers to present during the ET handshake, and the framing limits to
// apply to the socket.
type Config struct {
	Server struct {
		Address    string `yaml:"address"`
		Port       int    `yaml:"port"`
		ServerName string `yaml:"server_name"`
	} `yaml:"server"`

	Identity struct {
		CID    string `yaml:"cid"`
		Unk0   string `yaml:"unk0"`
		AID    string `yaml:"aid"`
		BootID string `yaml:"bootid"`
		PT     string `yaml:"pt"`
	} `yaml:"identity"`

	Framing struct {
		MaxFrameLength int `yaml:"max_frame_length"`
	} `yaml:"framing"`

	// Listen configures cp-acceptor's TLS server socket; unused by cp-agent.
	Listen struct {
		Address  string `yaml:"address"`
		CertFile string `yaml:"cert_file"`
		KeyFile  string `yaml:"key_file"`
	} `yaml:"listen"`

	DialTimeout time.Duration `yaml:"dial_timeout"`
	Fwmark      uint32        `yaml:"fwmark"` // 0 = disabled
}

const (
	defaultPort           = 443
	defaultMaxFrameLength = 32 * 1024 * 1024
	defaultDialTimeout    = 30 * time.Second

	// All-zero fields used when the config gives no value. These differ
	// from the non-zero et.DefaultUnk0Hex / et.DefaultBootIDHex constants.
	zeroHex16 = "00000000000000000000000000000000"
	zeroHex8  = "0000000000000000"
)

// Load reads and parses the YAML file at path, backfilling any zero-valued
// field with its default.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.ServerName == "" {
		c.Server.ServerName = c.Server.Address
	}
	if c.Listen.Address == "" {
		c.Listen.Address = ":8443"
	}
	if c.Identity.Unk0 == "" {
		c.Identity.Unk0 = zeroHex16
	}
	if c.Identity.BootID == "" {
		c.Identity.BootID = zeroHex16
	}
	if c.Identity.PT == "" {
		c.Identity.PT = zeroHex8
	}
	if c.Framing.MaxFrameLength == 0 {
		c.Framing.MaxFrameLength = defaultMaxFrameLength
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaultDialTimeout
	}

	return &c, nil
}

// CIDBytes decodes Identity.CID into a 16-byte customer identifier.
func (c *Config) CIDBytes() ([16]byte, error) { return decode16(c.Identity.CID) }

// Unk0Bytes decodes Identity.Unk0 into its 16-byte field.
func (c *Config) Unk0Bytes() ([16]byte, error) { return decode16(c.Identity.Unk0) }

// AIDBytes decodes Identity.AID into a 16-byte agent identifier.
func (c *Config) AIDBytes() ([16]byte, error) { return decode16(c.Identity.AID) }

// BootIDBytes decodes Identity.BootID into its 16-byte field.
func (c *Config) BootIDBytes() ([16]byte, error) { return decode16(c.Identity.BootID) }

// PTBytes decodes Identity.PT into its 8-byte field.
func (c *Config) PTBytes() ([8]byte, error) { return decode8(c.Identity.PT) }

func decode16(s string) ([16]byte, error) {
	var out [16]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("decode hex %q: %w", s, err)
	}
	if len(b) != 16 {
		return out, fmt.Errorf("hex field %q decodes to %d bytes, want 16", s, len(b))
	}
	copy(out[:], b)
	return out, nil
}

func decode8(s string) ([8]byte, error) {
	var out [8]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("decode hex %q: %w", s, err)
	}
	if len(b) != 8 {
		return out, fmt.Errorf("hex field %q decodes to %d bytes, want 8", s, len(b))
	}
	copy(out[:], b)
	return out, nil
}
