package mobile

import (
	"time"

	"github.com/mosaicnetworks/party/src/config"
)

// MobileConfig is the subset of the node configuration settable from the
// mobile application. Durations are in milliseconds.
type MobileConfig struct {
	WAMPAddr             string //URL of the WAMP router
	WAMPRealm            string //WAMP realm
	Timeout              int    //greeting command timeout in milliseconds
	InvitationExpiration int    //lifetime of invitations in milliseconds
	CacheSize            int    //Number of items in LRU cache
	Store                bool   //persist keys and feed in badger
	Moniker              string //display name of the identity
	LogLevel             string //debug, info, warn, error, fatal, panic
}

func NewMobileConfig(wampAddr string,
	wampRealm string,
	timeout int,
	invitationExpiration int,
	cacheSize int,
	store bool,
	moniker string,
	logLevel string) *MobileConfig {

	return &MobileConfig{
		WAMPAddr:             wampAddr,
		WAMPRealm:            wampRealm,
		Timeout:              timeout,
		InvitationExpiration: invitationExpiration,
		CacheSize:            cacheSize,
		Store:                store,
		Moniker:              moniker,
		LogLevel:             logLevel,
	}
}

func DefaultMobileConfig() *MobileConfig {
	return &MobileConfig{
		WAMPAddr:             config.DefaultWAMPAddr,
		WAMPRealm:            config.DefaultWAMPRealm,
		Timeout:              int(config.DefaultTimeout / time.Millisecond),
		InvitationExpiration: int(config.DefaultInvitationExpiration / time.Millisecond),
		CacheSize:            config.DefaultCacheSize,
		Store:                true,
		Moniker:              "",
		LogLevel:             "info",
	}
}

func (c *MobileConfig) toPartyConfig(dataDir string) *config.Config {
	conf := config.NewDefaultConfig()
	conf.SetDataDir(dataDir)
	conf.NoService = true

	conf.WAMPAddr = c.WAMPAddr
	conf.WAMPRealm = c.WAMPRealm
	conf.Timeout = time.Duration(c.Timeout) * time.Millisecond
	conf.InvitationExpiration = time.Duration(c.InvitationExpiration) * time.Millisecond
	conf.CacheSize = c.CacheSize
	conf.Store = c.Store
	conf.Moniker = c.Moniker
	conf.LogLevel = c.LogLevel

	return conf
}
