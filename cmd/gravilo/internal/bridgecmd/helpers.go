package bridgecmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/gravilo/gravilo/pkg/bridge"
	"github.com/gravilo/gravilo/pkg/config"
	"github.com/gravilo/gravilo/pkg/discord"
	"github.com/gravilo/gravilo/pkg/guildsync"
	"github.com/gravilo/gravilo/pkg/health"
)

func bridgeCmd(debug bool) error {
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

	if cfg.WebhookURL == "" {
		log.Warn("N8N_WEBHOOK_URL is not set; messages will not be forwarded")
	}

	bot, err := discord.NewBot(token)
	if err != nil {
		return err
	}

	if err := bot.Login(); err != nil {
		return err
	}

	policy, err := bridge.PolicyByName(cfg.FilterPolicy, bot.SelfID())
	if err != nil {
		return err
	}
	log.Infof("filter policy: %s", policy.Name())

	syncer := guildsync.NewSyncer(cfg.GuildSyncURL, cfg.GuildRemoveURL, cfg.UsageURL, cfg.SyncSecret)
	br := bridge.New(cfg.WebhookURL, policy, bot, syncer)

	bot.AttachBridge(br)
	bot.AttachSyncer(syncer)

	if err := bot.Open(); err != nil {
		return err
	}
	defer bot.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bot.Backfill(ctx)

	var healthServer *health.Server
	if cfg.HealthAddr != "" {
		healthServer = health.NewServer(cfg.HealthAddr)
		go func() {
			if err := healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("health server error: %v", err)
			}
		}()
		log.Infof("health endpoints available at http://%s/health", cfg.HealthAddr)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down")
	if healthServer != nil {
		_ = healthServer.Stop(context.Background())
	}
	return nil
}
