package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gravilo/gravilo/cmd/gravilo/internal/bridgecmd"
	"github.com/gravilo/gravilo/cmd/gravilo/internal/clonecmd"
	"github.com/gravilo/gravilo/cmd/gravilo/internal/indexcmd"
)

func NewGraviloCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gravilo",
		Short: "Discord to n8n bridge bot",
		Example: `  gravilo bridge
  gravilo index
  gravilo clone 123456789 987654321`,
	}

	cmd.AddCommand(
		bridgecmd.NewBridgeCommand(),
		indexcmd.NewIndexCommand(),
		clonecmd.NewCloneCommand(),
	)

	return cmd
}

func main() {
	cmd := NewGraviloCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
