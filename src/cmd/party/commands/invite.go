package commands

import (
	"fmt"

	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/spf13/cobra"
)

//NewInviteCmd returns the command that invites an identity key into the party.
//The invitation is written to the feed and redeemed with join while a member
//node is running.
func NewInviteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "invite [identity key]",
		Short:   "Invite an identity into the party",
		Args:    cobra.ExactArgs(1),
		PreRunE: loadConfig,
		RunE:    inviteMember,
	}
	AddBaseFlags(cmd)
	return cmd
}

func inviteMember(cmd *cobra.Command, args []string) error {
	var invitee keys.PublicKey
	if err := invitee.UnmarshalText([]byte(args[0])); err != nil {
		return fmt.Errorf("Invalid identity key: %v", err)
	}

	n, err := openNode()
	if err != nil {
		return err
	}
	defer n.Shutdown()

	desc, err := n.InviteMember(invitee)
	if err != nil {
		return err
	}

	code, err := desc.Encode()
	if err != nil {
		return err
	}

	fmt.Println(code)
	return nil
}
