// Package config loads merchant settings from NAGAD_* environment variables
// (or any other viper source) and turns them into client options.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/sumup/nagad"
)

// EnvPrefix is prepended to every key when reading the environment.
const EnvPrefix = "NAGAD"

// Config mirrors the NAGAD_* variables.
type Config struct {
	Mode            string        `mapstructure:"mode"`
	MerchantID      string        `mapstructure:"merchant_id"`
	PublicKey       string        `mapstructure:"pg_public_key"`
	PrivateKey      string        `mapstructure:"merchant_private_key"`
	MerchantNumber  string        `mapstructure:"merchant_number"`
	Tokenization    bool          `mapstructure:"tokenization"`
	SSLVerify       bool          `mapstructure:"ssl_verify"`
	SymmetricKeyHex string        `mapstructure:"merchant_hex"`
	IVHex           string        `mapstructure:"merchant_iv"`
	BaseURL         string        `mapstructure:"base_url"`
	ClientIP        string        `mapstructure:"client_ip"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

var keys = []string{
	"mode",
	"merchant_id",
	"pg_public_key",
	"merchant_private_key",
	"merchant_number",
	"tokenization",
	"ssl_verify",
	"merchant_hex",
	"merchant_iv",
	"base_url",
	"client_ip",
	"timeout",
}

// Load binds the NAGAD_* variables on v and decodes them. A nil v uses a
// fresh viper instance.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetEnvPrefix(EnvPrefix)
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", key, err)
		}
	}
	v.SetDefault("mode", string(nagad.Sandbox))
	v.SetDefault("ssl_verify", true)
	v.SetDefault("timeout", nagad.DefaultTimeout)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	switch nagad.Mode(cfg.Mode) {
	case nagad.Sandbox, nagad.Production:
	default:
		return nil, fmt.Errorf("config: mode must be %q or %q, got %q", nagad.Sandbox, nagad.Production, cfg.Mode)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("config: timeout must be positive, got %s", cfg.Timeout)
	}
	return &cfg, nil
}

// Profile returns the merchant profile described by the configuration.
func (c Config) Profile() nagad.MerchantProfile {
	return nagad.MerchantProfile{
		MerchantID:      c.MerchantID,
		PublicKey:       c.PublicKey,
		PrivateKey:      c.PrivateKey,
		SymmetricKeyHex: c.SymmetricKeyHex,
		IVHex:           c.IVHex,
		AccountNumber:   c.MerchantNumber,
	}
}

// Options returns the client options described by the configuration.
func (c Config) Options() []nagad.Option {
	opts := []nagad.Option{
		nagad.WithMode(nagad.Mode(c.Mode)),
		nagad.WithInsecureSkipVerify(!c.SSLVerify),
	}
	if c.Timeout > 0 {
		opts = append(opts, nagad.WithTimeout(c.Timeout))
	}
	if c.BaseURL != "" {
		opts = append(opts, nagad.WithBaseURL(c.BaseURL))
	}
	if c.ClientIP != "" {
		opts = append(opts, nagad.WithClientIP(c.ClientIP))
	}
	return opts
}

// DefaultVariant is authorize when tokenization is enabled, regular otherwise.
func (c Config) DefaultVariant() nagad.Variant {
	if c.Tokenization {
		return nagad.VariantAuthorize
	}
	return nagad.VariantRegular
}
