package main

import (
	"fmt"
	"os"

	cmd "github.com/mosaicnetworks/party/src/cmd/party/commands"
)

func main() {
	rootCmd := cmd.RootCmd

	rootCmd.AddCommand(
		cmd.VersionCmd,
		cmd.NewKeygenCmd(),
		cmd.NewIdentityCmd(),
		cmd.NewCreateCmd(),
		cmd.NewInviteCmd(),
		cmd.NewJoinCmd(),
		cmd.NewRunCmd(),
	)

	//Do not print usage when error occurs
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
