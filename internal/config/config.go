package config

// Replay profile loading and validation

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tturner/udpreplay/internal/endpoint"
	"github.com/tturner/udpreplay/internal/errors"
	"github.com/tturner/udpreplay/internal/replay"
)

// DefaultSpeed replays with the capture's own timing.
const DefaultSpeed = 1.0

// ReplayConfig is a replay profile. Every field may also be given as a flag.
type ReplayConfig struct {
	Pcap             string        `yaml:"pcap"`
	OldDest          string        `yaml:"old_dest"`
	NewSource        string        `yaml:"new_src"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout,omitempty"` // Go duration, e.g. "30s"
	Speed            float64       `yaml:"speed"`
	Limit            int           `yaml:"limit,omitempty"`
	ContinueOnError  bool          `yaml:"continue_on_error,omitempty"`
	ReuseAddr        bool          `yaml:"reuse_addr,omitempty"`
}

// Overrides carries flag values. Nil fields were not set on the command line.
type Overrides struct {
	Pcap             *string
	OldDest          *string
	NewSource        *string
	HandshakeTimeout *time.Duration
	Speed            *float64
	Limit            *int
	ContinueOnError  *bool
	ReuseAddr        *bool
}

// Default returns a profile with defaults applied and no endpoints.
func Default() *ReplayConfig {
	return &ReplayConfig{Speed: DefaultSpeed}
}

// LoadFile reads a YAML profile. Keys absent from the file keep their defaults.
func LoadFile(path string) (*ReplayConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapConfigError(
				errors.Newf(errors.KindConfig, "load profile", "config file not found: %s", path),
				path,
			)
		}
		return nil, errors.WrapConfigError(
			errors.New(errors.KindConfig, "read config file", err),
			path,
		)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.WrapConfigError(err, path)
	}
	return cfg, nil
}

// Parse decodes a YAML profile. Unknown keys are rejected.
func Parse(data []byte) (*ReplayConfig, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.New(errors.KindConfig, "parse YAML", err)
	}
	return cfg, nil
}

// Apply overlays flag values on top of the profile.
func (c *ReplayConfig) Apply(o Overrides) {
	if o.Pcap != nil {
		c.Pcap = *o.Pcap
	}
	if o.OldDest != nil {
		c.OldDest = *o.OldDest
	}
	if o.NewSource != nil {
		c.NewSource = *o.NewSource
	}
	if o.HandshakeTimeout != nil {
		c.HandshakeTimeout = *o.HandshakeTimeout
	}
	if o.Speed != nil {
		c.Speed = *o.Speed
	}
	if o.Limit != nil {
		c.Limit = *o.Limit
	}
	if o.ContinueOnError != nil {
		c.ContinueOnError = *o.ContinueOnError
	}
	if o.ReuseAddr != nil {
		c.ReuseAddr = *o.ReuseAddr
	}
}

// Validate checks required keys and numeric ranges. Endpoint syntax is
// checked by Resolve.
func (c *ReplayConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Pcap) == "" {
		missing = append(missing, "pcap")
	}
	if strings.TrimSpace(c.OldDest) == "" {
		missing = append(missing, "old_dest")
	}
	if strings.TrimSpace(c.NewSource) == "" {
		missing = append(missing, "new_src")
	}
	if len(missing) > 0 {
		return errors.Newf(errors.KindConfig, "validate", "required setting(s) missing: %s", strings.Join(missing, ", "))
	}
	if c.Speed < 0 {
		return errors.Newf(errors.KindConfig, "validate", "speed must be >= 0 (got %g)", c.Speed)
	}
	if c.Limit < 0 {
		return errors.Newf(errors.KindConfig, "validate", "limit must be >= 0 (got %d)", c.Limit)
	}
	if c.HandshakeTimeout < 0 {
		return errors.Newf(errors.KindConfig, "validate", "handshake_timeout must be >= 0 (got %s)", c.HandshakeTimeout)
	}
	return nil
}

// Resolve validates the profile and parses its endpoints. A nil resolver
// accepts IP literals only.
func (c *ReplayConfig) Resolve(ctx context.Context, r endpoint.Resolver) (replay.Options, error) {
	if err := c.Validate(); err != nil {
		return replay.Options{}, err
	}
	oldDest, err := endpoint.ParseWithResolver(ctx, c.OldDest, r)
	if err != nil {
		return replay.Options{}, fmt.Errorf("old destination: %w", err)
	}
	newSrc, err := endpoint.ParseWithResolver(ctx, c.NewSource, r)
	if err != nil {
		return replay.Options{}, fmt.Errorf("new source: %w", err)
	}
	return replay.Options{
		PcapPath:         c.Pcap,
		OldDest:          oldDest,
		NewSource:        newSrc,
		HandshakeTimeout: c.HandshakeTimeout,
		Speed:            c.Speed,
		Limit:            c.Limit,
		ContinueOnError:  c.ContinueOnError,
		ReuseAddr:        c.ReuseAddr,
	}, nil
}
