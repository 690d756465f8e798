package indexcmd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gravilo/gravilo/pkg/config"
	"github.com/gravilo/gravilo/pkg/discord"
	"github.com/gravilo/gravilo/pkg/indexer"
)

func NewIndexCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index recent channel history into n8n, then exit",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return indexCmd(debug)
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func indexCmd(debug bool) error {
	if debug {
		log.SetLevel(log.DebugLevel)
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
	if err := bot.Login(); err != nil {
		return err
	}

	ix := indexer.New(bot, cfg.IngestURL, cfg.IndexDays)
	return ix.Run(context.Background())
}
