package commands

import (
	"context"
	"fmt"

	"github.com/mosaicnetworks/party/src/greet"
	"github.com/spf13/cobra"
)

var pin string

//NewJoinCmd returns the command that redeems an invitation through the WAMP
//router
func NewJoinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "join [invitation]",
		Short:   "Join a party with an invitation",
		Args:    cobra.ExactArgs(1),
		PreRunE: loadConfig,
		RunE:    join,
	}
	AddBaseFlags(cmd)
	AddWAMPFlags(cmd)
	cmd.Flags().StringVar(&pin, "pin", "", "PIN of an interactive invitation")
	return cmd
}

func join(cmd *cobra.Command, args []string) error {
	desc, err := greet.DecodeInvitationDescriptor(args[0])
	if err != nil {
		return err
	}
	if desc.Type == greet.Interactive && pin == "" {
		return fmt.Errorf("Interactive invitations require --pin")
	}

	n, err := openNode()
	if err != nil {
		return err
	}
	defer n.Shutdown()

	dial, closeFn, err := n.WAMPDialer()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := n.Join(context.Background(), desc, []byte(pin), dial); err != nil {
		return err
	}

	fmt.Printf("Joined party: %s\n", n.PartyKey().Hex())
	return nil
}
