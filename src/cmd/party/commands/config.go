package commands

import (
	"github.com/mosaicnetworks/party/src/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//CLIConfig contains configuration for the party commands
type CLIConfig struct {
	Party config.Config `mapstructure:",squash"`

	// Invites is the number of interactive invitations issued when the node
	// starts.
	Invites int `mapstructure:"invites"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values. Unlike library
//users, the CLI persists keys and feeds by default because every command runs
//in its own process.
func NewDefaultCLIConfig() *CLIConfig {
	c := &CLIConfig{
		Party:   *config.NewDefaultConfig(),
		Invites: 0,
	}
	c.Party.Store = true
	return c
}

//AddBaseFlags adds the flags shared by all commands that open a node
func AddBaseFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.Party.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Party.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-dir", _config.Party.LogDir, "Directory receiving info.log and debug.log")
	cmd.Flags().String("moniker", _config.Party.Moniker, "Optional display name of the identity")

	// Store
	cmd.Flags().Bool("store", _config.Party.Store, "Use badgerDB instead of in-mem DB")
	cmd.Flags().String("db", _config.Party.DatabaseDir, "Database directory")
	cmd.Flags().Int("cache-size", _config.Party.CacheSize, "Number of items in LRU caches")
}

//AddWAMPFlags adds the flags used to reach the WAMP router
func AddWAMPFlags(cmd *cobra.Command) {
	cmd.Flags().String("wamp-addr", _config.Party.WAMPAddr, "URL of the WAMP router (ws:// or wss://)")
	cmd.Flags().String("wamp-realm", _config.Party.WAMPRealm, "WAMP realm")
	cmd.Flags().Bool("wamp-skip-verify", _config.Party.WAMPSkipVerify, "Do not verify the router certificate")
	cmd.Flags().DurationP("timeout", "t", _config.Party.Timeout, "Greeting command timeout")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.Party.SetDataDir(_config.Party.DataDir)

	logFields := logrus.Fields{
		"party.DataDir":              _config.Party.DataDir,
		"party.LogLevel":             _config.Party.LogLevel,
		"party.LogDir":               _config.Party.LogDir,
		"party.Moniker":              _config.Party.Moniker,
		"party.NoService":            _config.Party.NoService,
		"party.ServiceAddr":          _config.Party.ServiceAddr,
		"party.Store":                _config.Party.Store,
		"party.CacheSize":            _config.Party.CacheSize,
		"party.InvitationExpiration": _config.Party.InvitationExpiration,
		"party.AuthWindow":           _config.Party.AuthWindow,
		"party.RateLimit":            _config.Party.RateLimit,
		"party.RateBurst":            _config.Party.RateBurst,
		"party.WAMPListen":           _config.Party.WAMPListen,
		"party.WAMPAddr":             _config.Party.WAMPAddr,
		"party.WAMPRealm":            _config.Party.WAMPRealm,
		"party.Timeout":              _config.Party.Timeout,
		"Invites":                    _config.Invites,
	}

	if _config.Party.Store {
		logFields["party.DatabaseDir"] = _config.Party.DatabaseDir
	}

	_config.Party.Logger().WithFields(logFields).Debug("Config")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/party.toml (.json, .yaml also work)
	viper.SetConfigName("party")               // name of config file (without extension)
	viper.AddConfigPath(_config.Party.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Party.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Party.Logger().Debugf("No config file found in: %s", _config.Party.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
