// Package bot wires chartkeeper to Discord: slash commands, embeds, and the
// direct-message capability the deadline reconciler sends through.
package bot

import (
	"fmt"
	"log"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/yuduki/chartkeeper/internal/notify"
	"github.com/yuduki/chartkeeper/internal/registry"
)

// Bot owns the Discord session and the command handlers.
type Bot struct {
	session    *discordgo.Session
	guildIDs   []string
	fetcher    notify.Fetcher
	registry   *registry.Registry
	reconciler *notify.Reconciler
}

// New creates the bot. The session is not opened yet; call Open.
func New(token string, guildIDs []int64, fetcher notify.Fetcher, reg *registry.Registry) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	ids := make([]string, 0, len(guildIDs))
	for _, id := range guildIDs {
		ids = append(ids, strconv.FormatInt(id, 10))
	}

	return &Bot{
		session:  session,
		guildIDs: ids,
		fetcher:  fetcher,
		registry: reg,
	}, nil
}

// WithReconciler attaches the reconciler used by the /deadline command.
func (b *Bot) WithReconciler(r *notify.Reconciler) {
	b.reconciler = r
}

// Open connects the gateway and registers the slash commands per guild.
// Registration failures are logged, not fatal: a guild the bot was kicked
// from should not keep the rest of the bot down.
func (b *Bot) Open() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onInteraction)
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	return nil
}

// Close shuts the gateway connection down.
func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Printf("[Bot] Logged in as %s#%s", r.User.Username, r.User.Discriminator)

	synced := 0
	for _, guildID := range b.guildIDs {
		if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, guildID, commandDefinitions()); err != nil {
			log.Printf("[Bot] Failed to sync commands for guild %s: %v", guildID, err)
			continue
		}
		synced++
	}
	log.Printf("[Bot] Synced commands to %d/%d guilds", synced, len(b.guildIDs))
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "ping":
		b.handlePing(s, i)
	case "get":
		b.handleGet(s, i)
	case "search":
		b.handleSearch(s, i)
	case "list":
		b.handleList(s, i)
	case "listadd":
		b.handleListAdd(s, i)
	case "listopt":
		b.handleListOpt(s, i)
	case "deadline":
		b.handleDeadline(s, i)
	}
}

// IsMember reports whether the user currently belongs to at least one of the
// configured guilds. The state cache is consulted first; a cache miss falls
// back to the REST API.
func (b *Bot) IsMember(userID int64) bool {
	uid := strconv.FormatInt(userID, 10)
	for _, guildID := range b.guildIDs {
		if _, err := b.session.State.Member(guildID, uid); err == nil {
			return true
		}
		if m, err := b.session.GuildMember(guildID, uid); err == nil && m != nil {
			return true
		}
	}
	return false
}

// SendDM delivers a direct message to the user.
func (b *Bot) SendDM(userID int64, content string) error {
	uid := strconv.FormatInt(userID, 10)
	ch, err := b.session.UserChannelCreate(uid)
	if err != nil {
		return fmt.Errorf("open DM channel for %s: %w", uid, err)
	}
	if _, err := b.session.ChannelMessageSend(ch.ID, content); err != nil {
		return fmt.Errorf("send DM to %s: %w", uid, err)
	}
	return nil
}

func (b *Bot) sendDMEmbed(userID string, embed *discordgo.MessageEmbed) error {
	ch, err := b.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("open DM channel for %s: %w", userID, err)
	}
	if _, err := b.session.ChannelMessageSendEmbed(ch.ID, embed); err != nil {
		return fmt.Errorf("send DM to %s: %w", userID, err)
	}
	return nil
}

// interactionUser returns the invoking user for both guild and DM contexts.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}
