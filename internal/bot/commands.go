package bot

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/yuduki/chartkeeper/internal/notify"
	"github.com/yuduki/chartkeeper/internal/sheet"
)

// commandDefinitions builds the slash commands registered per guild.
func commandDefinitions() []*discordgo.ApplicationCommand {
	statusChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(sheet.StatusList))
	for _, s := range sheet.StatusList {
		statusChoices = append(statusChoices, &discordgo.ApplicationCommandOptionChoice{
			Name:  s,
			Value: s,
		})
	}

	actionChoices := []*discordgo.ApplicationCommandOptionChoice{
		{Name: "追加", Value: "add"},
		{Name: "削除", Value: "remove"},
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "ping",
			Description: "Botの動作確認",
		},
		{
			Name:        "get",
			Description: "ステータスで曲を絞り込んで表示",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "status", Description: "ステータス", Choices: statusChoices},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "count", Description: "件数"},
				{Type: discordgo.ApplicationCommandOptionBoolean, Name: "include_unassigned", Description: "未割当を含める"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "charter", Description: "難易度に含まれる文字列"},
			},
		},
		{
			Name:        "search",
			Description: "曲名・作曲者・担当でキーワード検索",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "keyword", Description: "検索キーワード", Required: true},
			},
		},
		{
			Name:        "list",
			Description: "登録済みCharter一覧を表示",
		},
		{
			Name:        "listadd",
			Description: "Charter名義を登録",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "名義", Required: true},
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "ユーザー", Required: true},
			},
		},
		{
			Name:        "listopt",
			Description: "Charter名義を追加・削除",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "action", Description: "操作", Required: true, Choices: actionChoices},
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "ユーザー", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "new_name", Description: "名義", Required: true},
			},
		},
		{
			Name:        "deadline",
			Description: "自分の作業中・優先作業タスクをDMで確認",
		},
	}
}

// Empty-result replies. /get and /search word this differently.
const (
	msgNoMatchesGet    = "該当する曲が見つかりませんでした"
	msgNoMatchesSearch = "🔍 該当する曲はありません"
)

type optionMap map[string]*discordgo.ApplicationCommandInteractionDataOption

func options(i *discordgo.InteractionCreate) optionMap {
	opts := i.ApplicationCommandData().Options
	m := make(optionMap, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

func (b *Bot) handlePing(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.respondText(s, i, "🏓 Pong! Bot is working!", false)
}

func (b *Bot) handleGet(s *discordgo.Session, i *discordgo.InteractionCreate) {
	// slow path (network fetch); defer to beat the 3s interaction window
	b.deferReply(s, i, false)

	opts := options(i)
	status := sheet.StatusInProgress
	if o, ok := opts["status"]; ok {
		status = o.StringValue()
	}
	count := 10
	if o, ok := opts["count"]; ok {
		count = int(o.IntValue())
	}
	includeUnassigned := false
	if o, ok := opts["include_unassigned"]; ok {
		includeUnassigned = o.BoolValue()
	}
	charter := ""
	if o, ok := opts["charter"]; ok {
		charter = o.StringValue()
	}

	rows, err := b.fetcher.Fetch(context.Background())
	if err != nil {
		b.followupText(s, i, "❌ APIへのアクセスに失敗しました", true)
		return
	}

	rows = filterForGet(rows, status, includeUnassigned, charter, count)
	if len(rows) == 0 {
		b.followupText(s, i, msgNoMatchesGet, false)
		return
	}
	b.followupEmbed(s, i, taskListEmbed(rows))
}

func (b *Bot) handleSearch(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.deferReply(s, i, false)

	keyword := options(i)["keyword"].StringValue()

	rows, err := b.fetcher.Fetch(context.Background())
	if err != nil {
		b.followupText(s, i, "❌ APIへのアクセスに失敗しました", true)
		return
	}

	rows = searchRows(rows, keyword, 10)
	if len(rows) == 0 {
		b.followupText(s, i, msgNoMatchesSearch, false)
		return
	}
	b.followupEmbed(s, i, taskListEmbed(rows))
}

func (b *Bot) handleList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	aliases := b.registry.All()
	if len(aliases) == 0 {
		b.respondText(s, i, "📭 登録なし", false)
		return
	}
	b.respondEmbed(s, i, charterListEmbed(aliases))
}

func (b *Bot) handleListAdd(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := options(i)
	name := opts["name"].StringValue()
	user := opts["user"].UserValue(s)

	userID, err := strconv.ParseInt(user.ID, 10, 64)
	if err != nil {
		b.respondText(s, i, "❌ ユーザーを解決できませんでした", true)
		return
	}

	if err := b.registry.Add(name, userID); err != nil {
		log.Printf("[Bot] Failed to save registry: %v", err)
		b.respondText(s, i, "❌ 保存に失敗しました", true)
		return
	}
	b.respondText(s, i, "✅ 追加しました", false)
}

func (b *Bot) handleListOpt(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := options(i)
	action := opts["action"].StringValue()
	name := opts["new_name"].StringValue()
	user := opts["user"].UserValue(s)

	userID, err := strconv.ParseInt(user.ID, 10, 64)
	if err != nil {
		b.respondText(s, i, "❌ ユーザーを解決できませんでした", true)
		return
	}

	if action == "add" {
		if err := b.registry.Add(name, userID); err != nil {
			log.Printf("[Bot] Failed to save registry: %v", err)
			b.respondText(s, i, "❌ 保存に失敗しました", true)
			return
		}
		b.respondText(s, i, "✅ 名義を追加しました", false)
		return
	}

	removed, err := b.registry.Remove(name, userID)
	if err != nil {
		log.Printf("[Bot] Failed to save registry: %v", err)
		b.respondText(s, i, "❌ 保存に失敗しました", true)
		return
	}
	if !removed {
		b.respondText(s, i, "❌ 紐づいていません", false)
		return
	}
	b.respondText(s, i, "🗑️ 削除しました", false)
}

func (b *Bot) handleDeadline(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.deferReply(s, i, true)

	user := interactionUser(i)
	userID, err := strconv.ParseInt(user.ID, 10, 64)
	if err != nil {
		b.followupText(s, i, "❌ ユーザーを解決できませんでした", true)
		return
	}

	reports, err := b.reconciler.RunForUser(context.Background(), userID)
	switch {
	case errors.Is(err, notify.ErrNoAliases):
		b.followupText(s, i, "❌ あなたの名義が /list に登録されていません", true)
		return
	case err != nil:
		b.followupText(s, i, "❌ APIへのアクセスに失敗しました", true)
		return
	}

	if len(reports) == 0 {
		b.followupText(s, i, "📭 現在、担当中のタスクはありません", true)
		return
	}

	if err := b.sendDMEmbed(user.ID, deadlineEmbed(reports)); err != nil {
		log.Printf("[Bot] Failed to DM deadline report to %s: %v", user.ID, err)
		b.followupText(s, i, "❌ DMを送信できませんでした。DM受信設定を確認してください", true)
		return
	}
	b.followupText(s, i, "📬 DMに担当中タスクを送信しました", true)
}

func (b *Bot) respondText(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}); err != nil {
		log.Printf("[Bot] Failed to respond to interaction: %v", err)
	}
}

func (b *Bot) respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	}); err != nil {
		log.Printf("[Bot] Failed to respond to interaction: %v", err)
	}
}

func (b *Bot) deferReply(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	}); err != nil {
		log.Printf("[Bot] Failed to defer interaction: %v", err)
	}
}

func (b *Bot) followupText(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	params := &discordgo.WebhookParams{Content: content}
	if ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	if _, err := s.FollowupMessageCreate(i.Interaction, true, params); err != nil {
		log.Printf("[Bot] Failed to send followup: %v", err)
	}
}

func (b *Bot) followupEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	}); err != nil {
		log.Printf("[Bot] Failed to send followup: %v", err)
	}
}
