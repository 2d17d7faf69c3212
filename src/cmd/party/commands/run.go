package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//NewRunCmd returns the command that starts a party node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runParty,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runParty(cmd *cobra.Command, args []string) error {
	logger := _config.Party.Logger()

	n, err := openNode()
	if err != nil {
		return err
	}

	for i := 0; i < _config.Invites; i++ {
		desc, pin, err := n.Invite()
		if err != nil {
			n.Shutdown()
			return err
		}
		code, err := desc.Encode()
		if err != nil {
			n.Shutdown()
			return err
		}
		logger.WithFields(logrus.Fields{
			"invitation": code,
			"pin":        string(pin),
		}).Info("Invitation")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Stopping")
		n.Shutdown()
	}()

	err = n.Run()
	n.Shutdown()
	return err
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {
	AddBaseFlags(cmd)
	AddWAMPFlags(cmd)

	// Greeting
	cmd.Flags().String("wamp-listen", _config.Party.WAMPListen, "Listen IP:Port for an embedded WAMP router")
	cmd.Flags().Duration("invitation-expiration", _config.Party.InvitationExpiration, "Lifetime of invitations")
	cmd.Flags().Int("invites", _config.Invites, "Number of interactive invitations to issue at startup")
	cmd.Flags().Float64("rate-limit", _config.Party.RateLimit, "Greeting commands per second accepted from one peer")
	cmd.Flags().Int("rate-burst", _config.Party.RateBurst, "Burst of greeting commands accepted from one peer")

	// Authentication
	cmd.Flags().Duration("auth-window", _config.Party.AuthWindow, "Max distance between now and the creation time of credentials")

	// Service
	cmd.Flags().Bool("no-service", _config.Party.NoService, "Disable HTTP service")
	cmd.Flags().StringP("service-listen", "s", _config.Party.ServiceAddr, "Listen IP:Port for HTTP service")
}
