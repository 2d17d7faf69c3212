package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

//NewCreateCmd returns the command that creates a new party whose only member
//is the identity of this node
func NewCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a new party",
		PreRunE: loadConfig,
		RunE:    createParty,
	}
	AddBaseFlags(cmd)
	return cmd
}

func createParty(cmd *cobra.Command, args []string) error {
	n, err := openNode()
	if err != nil {
		return err
	}
	defer n.Shutdown()

	if err := n.CreateParty(); err != nil {
		return err
	}

	fmt.Printf("Party created: %s\n", n.PartyKey().Hex())
	return nil
}
