package nagad

import (
	"time"

	"github.com/go-logr/logr"
)

// Mode selects the gateway environment.
type Mode string

const (
	Sandbox    Mode = "sandbox"
	Production Mode = "production"
)

const (
	SandboxHost    = "http://sandbox.mynagad.com:10080/remote-payment-gateway-1.0/"
	ProductionHost = "http://api.nagad.com/remote-payment-gateway-1.0/"
)

// DefaultTimeout bounds every gateway call when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// DefaultClientIP is sent in X-KM-IP-V4 when neither the context nor
// [WithClientIP] supplies the end user's address.
const DefaultClientIP = "127.0.0.1"

// Host returns the gateway base URL for the mode. Unknown modes map to sandbox.
func (m Mode) Host() string {
	if m == Production {
		return ProductionHost
	}
	return SandboxHost
}

// bangladeshTime is the zone the gateway expects datetime fields in.
var bangladeshTime = time.FixedZone("BDT", 6*60*60)

type config struct {
	mode                   Mode
	baseURL                string
	transport              Transport
	timeout                time.Duration
	insecureSkipVerify     bool
	clientIP               string
	logger                 logr.Logger
	clock                  func() time.Time
	location               *time.Location
	verifyGatewaySignature bool
}

func defaultConfig() config {
	return config{
		mode:     Sandbox,
		timeout:  DefaultTimeout,
		clientIP: DefaultClientIP,
		logger:   logr.Discard(),
		clock:    time.Now,
		location: bangladeshTime,
	}
}

// Option customizes the client behavior.
type Option func(*config)

// WithMode selects the sandbox or production host.
func WithMode(mode Mode) Option {
	return func(cfg *config) {
		cfg.mode = mode
	}
}

// WithBaseURL overrides the gateway host, e.g. for a proxy or a test server.
// It takes precedence over [WithMode].
func WithBaseURL(baseURL string) Option {
	return func(cfg *config) {
		cfg.baseURL = baseURL
	}
}

// WithTransport replaces the default resty based transport. Timeout and TLS
// options are ignored when a custom transport is supplied.
func WithTransport(transport Transport) Option {
	return func(cfg *config) {
		cfg.transport = transport
	}
}

// WithTimeout sets the per-request timeout of the default transport.
func WithTimeout(timeout time.Duration) Option {
	if timeout <= 0 {
		panic("nagad: timeout must be positive")
	}
	return func(cfg *config) {
		cfg.timeout = timeout
	}
}

// WithInsecureSkipVerify disables TLS certificate verification in the default
// transport. Only meant for sandbox setups with broken certificates.
func WithInsecureSkipVerify(skip bool) Option {
	return func(cfg *config) {
		cfg.insecureSkipVerify = skip
	}
}

// WithClientIP sets the fallback value of the X-KM-IP-V4 header.
func WithClientIP(ip string) Option {
	return func(cfg *config) {
		cfg.clientIP = ip
	}
}

// WithLogger sets the logger for flow diagnostics. Key material, tokens and
// decrypted payloads are never logged.
func WithLogger(logger logr.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithLocation sets the zone used for datetime fields and generated order ids.
func WithLocation(loc *time.Location) Option {
	return func(cfg *config) {
		if loc != nil {
			cfg.location = loc
		}
	}
}

// WithGatewaySignatureVerification verifies the gateway's signature over the
// decrypted initialize reply using the profile's gateway public key.
func WithGatewaySignatureVerification() Option {
	return func(cfg *config) {
		cfg.verifyGatewaySignature = true
	}
}

// withClock provides deterministic time in tests.
func withClock(fn func() time.Time) Option {
	return func(cfg *config) {
		cfg.clock = fn
	}
}
