package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/party/src/common"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the device's
	// private key
	DefaultKeyfile = "priv_key"

	// DefaultBadgerFile is the default name of the folder containing the Badger
	// databases
	DefaultBadgerFile = "badger_db"

	// DefaultCertFile is the default name of the file containing the TLS
	// certificate of the WAMP server.
	DefaultCertFile = "cert.pem"

	// DefaultCertKeyFile is the default name of the file containing the TLS
	// key of the WAMP server.
	DefaultCertKeyFile = "key.pem"
)

// Default configuration values.
const (
	DefaultLogLevel             = "debug"
	DefaultServiceAddr          = "127.0.0.1:8000"
	DefaultCacheSize            = 5000
	DefaultStore                = false
	DefaultInvitationExpiration = 15 * time.Minute
	DefaultAuthWindow           = 24 * time.Hour
	DefaultRateLimit            = 5.0
	DefaultRateBurst            = 10
	DefaultWAMPAddr             = "ws://127.0.0.1:2443"
	DefaultWAMPRealm            = "party"
	DefaultWAMPSkipVerify       = false
	DefaultTimeout              = 10 * time.Second
)

// Config contains all the configuration properties of a party node.
type Config struct {
	// DataDir is the top-level directory containing configuration and data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogDir, when set, receives a copy of the info and debug logs in
	// info.log and debug.log.
	LogDir string `mapstructure:"log-dir"`

	// Moniker is the display name of the identity of this node.
	Moniker string `mapstructure:"moniker"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the HTTP service.
	ServiceAddr string `mapstructure:"service-listen"`

	// Store activates persistant storage of keys and of the party feed.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// CacheSize is the max number of items in in-memory caches.
	CacheSize int `mapstructure:"cache-size"`

	// InvitationExpiration is the lifetime of the invitations issued by the
	// node.
	InvitationExpiration time.Duration `mapstructure:"invitation-expiration"`

	// AuthWindow is how far from now the creation time of credentials may
	// be.
	AuthWindow time.Duration `mapstructure:"auth-window"`

	// RateLimit is the number of greeting commands per second accepted from
	// one peer, with bursts of RateBurst. Zero disables the limit.
	RateLimit float64 `mapstructure:"rate-limit"`
	RateBurst int     `mapstructure:"rate-burst"`

	// WAMPListen, when set, is the address:port of a WAMP router run by the
	// node. It uses TLS if cert.pem and key.pem are found in the datadir.
	WAMPListen string `mapstructure:"wamp-listen"`

	// WAMPAddr is the URL (ws:// or wss://) of the WAMP router through which
	// greeting commands travel.
	WAMPAddr string `mapstructure:"wamp-addr"`

	// WAMPRealm is an administrative domain within the WAMP router. Calls
	// are only routed within a Realm.
	WAMPRealm string `mapstructure:"wamp-realm"`

	// WAMPSkipVerify controls whether the client verifies the router's
	// certificate chain and host name. This should be used only for testing.
	WAMPSkipVerify bool `mapstructure:"wamp-skip-verify"`

	// Timeout bounds the round trip of a greeting command.
	Timeout time.Duration `mapstructure:"timeout"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:              DefaultDataDir(),
		LogLevel:             DefaultLogLevel,
		ServiceAddr:          DefaultServiceAddr,
		Store:                DefaultStore,
		DatabaseDir:          DefaultDatabaseDir(),
		CacheSize:            DefaultCacheSize,
		InvitationExpiration: DefaultInvitationExpiration,
		AuthWindow:           DefaultAuthWindow,
		RateLimit:            DefaultRateLimit,
		RateBurst:            DefaultRateBurst,
		WAMPAddr:             DefaultWAMPAddr,
		WAMPRealm:            DefaultWAMPRealm,
		WAMPSkipVerify:       DefaultWAMPSkipVerify,
		Timeout:              DefaultTimeout,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB) *Config {
	config := NewDefaultConfig()
	config.DataDir = t.TempDir()
	config.DatabaseDir = filepath.Join(config.DataDir, DefaultBadgerFile)
	config.NoService = true
	config.logger = common.NewTestLogger(t)
	return config
}

// SetDataDir sets the top-level directory, and updates the database directory
// if it is currently set to the default value. If the database directory is
// not currently the default, it means the user has explicitely set it to
// something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Keyfile returns the full path of the file containing the private key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// CertFile returns the full path of the file containing the WAMP server TLS
// certificate.
func (c *Config) CertFile() string {
	return filepath.Join(c.DataDir, DefaultCertFile)
}

// CertKeyFile returns the full path of the file containing the WAMP server TLS
// key.
func (c *Config) CertKeyFile() string {
	return filepath.Join(c.DataDir, DefaultCertKeyFile)
}

// KeyringDir returns the directory of the keyring database.
func (c *Config) KeyringDir() string {
	return filepath.Join(c.DatabaseDir, "keyring")
}

// FeedDir returns the directory of the feed database.
func (c *Config) FeedDir() string {
	return filepath.Join(c.DatabaseDir, "feed")
}

// Logger returns a formatted logrus Entry, with prefix set to "party".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
		if c.LogDir != "" {
			addFileHook(c.logger, c.LogDir)
		}
	}
	return c.logger.WithField("prefix", "party")
}

// addFileHook mirrors info and debug logs into files of dir.
func addFileHook(logger *logrus.Logger, dir string) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		logger.WithError(err).Info("Failed to create log directory, using default stderr")
		return
	}

	pathMap := lfshook.PathMap{
		logrus.InfoLevel:  filepath.Join(dir, "info.log"),
		logrus.DebugLevel: filepath.Join(dir, "debug.log"),
	}

	logger.Hooks.Add(lfshook.NewHook(
		pathMap,
		&logrus.TextFormatter{},
	))
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level config
// based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Party")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Party")
		} else {
			return filepath.Join(home, ".party")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
