package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravilo/gravilo/pkg/bridge"
	"github.com/gravilo/gravilo/pkg/config"
	"github.com/gravilo/gravilo/pkg/guildsync"
)

// The full relay path wired the way the bridge command wires it:
// configuration read from the environment, a policy resolved from it, and
// a Bridge whose usage counter is the real Syncer talking to a backend
// stub. Only the Discord session is faked.

type capturingSender struct {
	mu   sync.Mutex
	sent []sentMessage
}

type sentMessage struct {
	channelID string
	content   string
}

func (s *capturingSender) SendMessage(channelID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{channelID: channelID, content: content})
	return nil
}

func (s *capturingSender) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

type backendStub struct {
	mu     sync.Mutex
	bodies []map[string]any
}

func (b *backendStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		b.mu.Lock()
		b.bodies = append(b.bodies, body)
		b.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func (b *backendStub) waitForBodies(t *testing.T, n int) []map[string]any {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		b.mu.Lock()
		count := len(b.bodies)
		b.mu.Unlock()
		if count >= n {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	require.Len(t, b.bodies, n)
	return append([]map[string]any(nil), b.bodies...)
}

func TestBridgeFlow_GuildMessage(t *testing.T) {
	var gotPayload map[string]any
	n8n := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &gotPayload))
		_, _ = w.Write([]byte("  You asked: hello  \n"))
	}))
	defer n8n.Close()

	usage := &backendStub{}
	usageSrv := httptest.NewServer(usage.handler())
	defer usageSrv.Close()

	t.Setenv("N8N_WEBHOOK_URL", n8n.URL)
	t.Setenv("SERVER_USAGE_INCREMENT_URL", usageSrv.URL)
	t.Setenv("DISCORD_BOT_SYNC_SECRET", "e2e-secret")
	t.Setenv("BRIDGE_FILTER_POLICY", "always")

	cfg, err := config.Load()
	require.NoError(t, err)

	policy, err := bridge.PolicyByName(cfg.FilterPolicy, "self-1")
	require.NoError(t, err)

	syncer := guildsync.NewSyncer(cfg.GuildSyncURL, cfg.GuildRemoveURL, cfg.UsageURL, cfg.SyncSecret)
	sender := &capturingSender{}
	b := bridge.New(cfg.WebhookURL, policy, sender, syncer)

	b.HandleMessage(context.Background(), bridge.InboundEvent{
		AuthorID:    "user-9",
		AuthorName:  "rose",
		Content:     "hello",
		ChannelID:   "chan-5",
		ChannelName: "general",
		GuildID:     "guild-3",
	})

	assert.Equal(t, "hello", gotPayload["content"])
	assert.Equal(t, "rose", gotPayload["author"])
	assert.Equal(t, "user-9", gotPayload["author_id"])
	assert.Equal(t, "chan-5", gotPayload["channel_id"])
	assert.Equal(t, "general", gotPayload["channel_name"])
	assert.Equal(t, "guild-3", gotPayload["server_id"])

	sent := sender.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "chan-5", sent[0].channelID)
	assert.Equal(t, "You asked: hello", sent[0].content)

	bodies := usage.waitForBodies(t, 1)
	assert.Equal(t, "guild-3", bodies[0]["discord_guild_id"])
	assert.Equal(t, float64(1), bodies[0]["messages"])
}

func TestBridgeFlow_DirectMessageSkipsMetering(t *testing.T) {
	var gotPayload map[string]any
	n8n := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &gotPayload))
		_, _ = w.Write([]byte("hi"))
	}))
	defer n8n.Close()

	usage := &backendStub{}
	usageSrv := httptest.NewServer(usage.handler())
	defer usageSrv.Close()

	t.Setenv("N8N_WEBHOOK_URL", n8n.URL)
	t.Setenv("SERVER_USAGE_INCREMENT_URL", usageSrv.URL)
	t.Setenv("DISCORD_BOT_SYNC_SECRET", "e2e-secret")

	cfg, err := config.Load()
	require.NoError(t, err)

	policy, err := bridge.PolicyByName(cfg.FilterPolicy, "self-1")
	require.NoError(t, err)

	syncer := guildsync.NewSyncer(cfg.GuildSyncURL, cfg.GuildRemoveURL, cfg.UsageURL, cfg.SyncSecret)
	sender := &capturingSender{}
	b := bridge.New(cfg.WebhookURL, policy, sender, syncer)

	b.HandleMessage(context.Background(), bridge.InboundEvent{
		AuthorID:    "user-9",
		AuthorName:  "rose",
		Content:     "psst",
		ChannelID:   "dm-1",
		ChannelName: "DM",
		DM:          true,
	})

	// server_id must be an explicit null for direct messages.
	val, present := gotPayload["server_id"]
	assert.True(t, present)
	assert.Nil(t, val)

	require.Len(t, sender.messages(), 1)

	time.Sleep(100 * time.Millisecond)
	usage.mu.Lock()
	defer usage.mu.Unlock()
	assert.Empty(t, usage.bodies)
}

func TestGuildLifecycleFlow(t *testing.T) {
	sync := &backendStub{}
	syncSrv := httptest.NewServer(sync.handler())
	defer syncSrv.Close()

	remove := &backendStub{}
	removeSrv := httptest.NewServer(remove.handler())
	defer removeSrv.Close()

	t.Setenv("DISCORD_GUILD_SYNC_URL", syncSrv.URL)
	t.Setenv("DISCORD_GUILD_REMOVE_URL", removeSrv.URL)
	t.Setenv("DISCORD_BOT_SYNC_SECRET", "e2e-secret")

	cfg, err := config.Load()
	require.NoError(t, err)

	syncer := guildsync.NewSyncer(cfg.GuildSyncURL, cfg.GuildRemoveURL, cfg.UsageURL, cfg.SyncSecret)

	syncer.Sync(context.Background(), guildsync.GuildInfo{
		ID:      "guild-10",
		Name:    "Rose Garden",
		OwnerID: "owner-1",
		IconURL: "https://cdn.example.com/icons/guild-10.png",
	})

	bodies := sync.waitForBodies(t, 1)
	assert.Equal(t, "guild-10", bodies[0]["discord_guild_id"])
	assert.Equal(t, "owner-1", bodies[0]["discord_owner_id"])
	assert.Equal(t, "Rose Garden", bodies[0]["name"])
	assert.Equal(t, "https://cdn.example.com/icons/guild-10.png", bodies[0]["icon_url"])
	assert.Equal(t, float64(3000), bodies[0]["message_limit"])

	syncer.Remove(context.Background(), "guild-10")

	removed := remove.waitForBodies(t, 1)
	assert.Equal(t, "guild-10", removed[0]["discord_guild_id"])
}
