package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for party
var RootCmd = &cobra.Command{
	Use:              "party",
	Short:            "decentralized party credentials",
	TraverseChildren: true,
}
