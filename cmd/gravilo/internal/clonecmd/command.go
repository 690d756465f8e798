package clonecmd

import (
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gravilo/gravilo/pkg/clone"
	"github.com/gravilo/gravilo/pkg/config"
	"github.com/gravilo/gravilo/pkg/discord"
)

func NewCloneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clone <source-guild-id> <target-guild-id>",
		Short: "Clone roles, categories, and channels between servers",
		Long: `Clone copies all roles, categories, and channels (including
permission overwrites) from the source server to the target server.
The bot must be a member of both servers with administrator permissions.
Existing roles and channels in the target are deleted first.`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return cloneCmd(args[0], args[1])
		},
	}

	return cmd
}

func cloneCmd(sourceArg, targetArg string) error {
	sourceID, err := parseGuildID(sourceArg)
	if err != nil {
		return err
	}
	targetID, err := parseGuildID(targetArg)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	token, err := cfg.BotCredential()
	if err != nil {
		return err
	}

	bot, err := discord.NewBot(token)
	if err != nil {
		return err
	}

	summary, err := clone.NewCloner(bot).Run(sourceID, targetID)
	if err != nil {
		return err
	}

	log.Infof("summary: %d roles, %d categories, %d channels",
		summary.Roles, summary.Categories, summary.Channels)
	return nil
}

func parseGuildID(arg string) (string, error) {
	if _, err := strconv.ParseUint(arg, 10, 64); err != nil {
		return "", fmt.Errorf("guild IDs must be integers, got %q", arg)
	}
	return arg, nil
}
