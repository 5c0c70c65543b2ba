package config

import (
	"fmt"
	"time"

	"github.com/muurk/espcfg/internal/device"
	"github.com/muurk/espcfg/internal/poll"
)

// CurrentVersion is the only config schema version understood.
const CurrentVersion = 1

// Config represents the entire user configuration file.
type Config struct {
	Version      int                  `yaml:"version"`
	Device       DeviceSettings       `yaml:"device"`
	Verification VerificationSettings `yaml:"verification"`
}

// DeviceSettings locates the device in both addressing phases.
type DeviceSettings struct {
	AccessPointAddress string        `yaml:"access_point_address"` // Address while the device hosts its hotspot
	StationAddress     string        `yaml:"station_address"`      // Address once it joined the user's network
	RequestTimeout     time.Duration `yaml:"request_timeout"`      // Per-request timeout
}

// VerificationSettings bounds the polls that confirm a submission.
type VerificationSettings struct {
	Attempts     int           `yaml:"attempts"`
	Delay        time.Duration `yaml:"delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Backoff      bool          `yaml:"backoff"`
	Timeout      time.Duration `yaml:"timeout"`
	InitialDelay time.Duration `yaml:"initial_delay"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	p := poll.DefaultOptions()
	return &Config{
		Version: CurrentVersion,
		Device: DeviceSettings{
			AccessPointAddress: device.DefaultAccessPointAddress,
			StationAddress:     device.DefaultStationAddress,
			RequestTimeout:     device.DefaultTimeout,
		},
		Verification: VerificationSettings{
			Attempts:     p.Attempts,
			Delay:        p.Delay,
			MaxDelay:     p.MaxDelay,
			Backoff:      p.Backoff,
			Timeout:      p.Timeout,
			InitialDelay: p.InitialDelay,
		},
	}
}

// Validate checks the configuration for values the client cannot work with.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}
	if c.Device.AccessPointAddress == "" {
		return fmt.Errorf("device.access_point_address must be set")
	}
	if c.Device.StationAddress == "" {
		return fmt.Errorf("device.station_address must be set")
	}
	if c.Device.RequestTimeout <= 0 {
		return fmt.Errorf("device.request_timeout must be positive, got %v", c.Device.RequestTimeout)
	}

	v := c.Verification
	if v.Attempts < 1 {
		return fmt.Errorf("verification.attempts must be at least 1, got %d", v.Attempts)
	}
	if v.Delay < 0 || v.MaxDelay < 0 || v.Timeout < 0 || v.InitialDelay < 0 {
		return fmt.Errorf("verification durations must not be negative")
	}
	if v.Backoff && v.MaxDelay > 0 && v.MaxDelay < v.Delay {
		return fmt.Errorf("verification.max_delay (%v) is shorter than verification.delay (%v)", v.MaxDelay, v.Delay)
	}
	return nil
}

// AccessPointAddress returns the normalized access-point address.
func (c *Config) AccessPointAddress() device.Address {
	return device.NormalizeAddress(c.Device.AccessPointAddress)
}

// StationAddress returns the normalized station address.
func (c *Config) StationAddress() device.Address {
	return device.NormalizeAddress(c.Device.StationAddress)
}

// PollOptions converts the verification settings for the poll package.
func (c *Config) PollOptions() poll.Options {
	v := c.Verification
	return poll.Options{
		Attempts:     v.Attempts,
		InitialDelay: v.InitialDelay,
		Delay:        v.Delay,
		MaxDelay:     v.MaxDelay,
		Backoff:      v.Backoff,
		Timeout:      v.Timeout,
	}
}
