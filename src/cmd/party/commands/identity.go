package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

//NewIdentityCmd returns the command that prints the identity key of the node,
//creating it if needed. The key is what members pass to invite.
func NewIdentityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "identity",
		Short:   "Show the identity key of this node",
		PreRunE: loadConfig,
		RunE:    showIdentity,
	}
	AddBaseFlags(cmd)
	return cmd
}

func showIdentity(cmd *cobra.Command, args []string) error {
	n, err := openNode()
	if err != nil {
		return err
	}
	defer n.Shutdown()

	identity, err := n.Identity()
	if err != nil {
		return err
	}

	fmt.Println(identity.Hex())
	return nil
}
