package bot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/yuduki/chartkeeper/internal/notify"
	"github.com/yuduki/chartkeeper/internal/sheet"
)

const (
	colorTaskList    = 0x5865F2
	colorCharterList = 0x57F287
	colorDeadline    = 0xFEE75C
)

// filterForGet applies the /get filters: valid rows with the selected status,
// optionally dropping 未割当, optionally requiring a charter substring in a
// difficulty slot, then the last count rows (the sheet appends newest last).
func filterForGet(rows []sheet.Row, status string, includeUnassigned bool, charter string, count int) []sheet.Row {
	var out []sheet.Row
	for _, r := range rows {
		if !r.Valid() || string(r.Status) != status {
			continue
		}
		if !includeUnassigned && string(r.Status) == sheet.StatusUnassigned {
			continue
		}
		if charter != "" && !r.SlotsContain(charter) {
			continue
		}
		out = append(out, r)
	}
	if count > 0 && len(out) > count {
		out = out[len(out)-count:]
	}
	return out
}

// searchRows returns up to limit valid rows whose title, composer, or any
// difficulty slot contains the keyword.
func searchRows(rows []sheet.Row, keyword string, limit int) []sheet.Row {
	var out []sheet.Row
	for _, r := range rows {
		if !r.Valid() {
			continue
		}
		if !strings.Contains(string(r.Title), keyword) &&
			!strings.Contains(string(r.Composer), keyword) &&
			!r.SlotsContain(keyword) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// taskListEmbed renders rows as the shared 曲一覧 embed.
func taskListEmbed(rows []sheet.Row) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(rows))
	for _, r := range rows {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("%s %s / %s", sheet.StatusEmoji(string(r.Status)), r.Title, r.Composer),
			Value: fmt.Sprintf("**Sp**:%s\n**Sm**:%s\n**Am**:%s\n**Wt**:%s",
				r.SlotOrDash(0), r.SlotOrDash(1), r.SlotOrDash(2), r.SlotOrDash(3)),
		})
	}
	return &discordgo.MessageEmbed{
		Title:  "🎵 曲一覧",
		Color:  colorTaskList,
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{Text: "凡例:" + sheet.StatusLegend()},
	}
}

// charterListEmbed renders the alias registry grouped by user.
func charterListEmbed(aliases map[string][]int64) *discordgo.MessageEmbed {
	byUser := make(map[int64][]string)
	for name, ids := range aliases {
		for _, id := range ids {
			byUser[id] = append(byUser[id], name)
		}
	}

	userIDs := make([]int64, 0, len(byUser))
	for id := range byUser {
		userIDs = append(userIDs, id)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })

	fields := make([]*discordgo.MessageEmbedField, 0, len(userIDs))
	for _, id := range userIDs {
		names := byUser[id]
		sort.Strings(names)
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "​",
			Value: fmt.Sprintf("<@%d>\n%s", id, strings.Join(names, " / ")),
		})
	}
	return &discordgo.MessageEmbed{
		Title:  "📋 Charter一覧",
		Color:  colorCharterList,
		Fields: fields,
	}
}

// deadlineEmbed renders a user's in-progress assignments with Discord
// relative timestamps.
func deadlineEmbed(reports []notify.Report) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(reports))
	for _, rep := range reports {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: rep.Title,
			Value: fmt.Sprintf("**担当難易度**:%s\n**納期**:<t:%d:R>",
				strings.Join(rep.Slots, " / "), rep.Target.Unix()),
		})
	}
	return &discordgo.MessageEmbed{
		Title:  "⏰ 担当中のタスク",
		Color:  colorDeadline,
		Fields: fields,
	}
}
