package bot

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/yuduki/chartkeeper/internal/notify"
	"github.com/yuduki/chartkeeper/internal/sheet"
)

func makeRows() []sheet.Row {
	return []sheet.Row{
		{Title: "曲A", Composer: "c1", Status: sheet.StatusInProgress, Sp: "veal"},
		{Title: "曲B", Composer: "c2", Status: sheet.StatusInProgress, Am: "momo"},
		{Title: "曲C", Composer: "c3", Status: sheet.StatusDone},
		{Title: "", Composer: "c4", Status: sheet.StatusInProgress}, // invalid: no title
		{Title: "曲D", Composer: "c5", Status: sheet.StatusUnassigned},
	}
}

func TestFilterForGet(t *testing.T) {
	rows := makeRows()

	got := filterForGet(rows, sheet.StatusInProgress, false, "", 10)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	// charter substring narrows within the status
	got = filterForGet(rows, sheet.StatusInProgress, false, "veal", 10)
	if len(got) != 1 || got[0].Title != "曲A" {
		t.Fatalf("charter filter = %+v, want just 曲A", got)
	}

	// 未割当 is only visible when explicitly included
	got = filterForGet(rows, sheet.StatusUnassigned, false, "", 10)
	if len(got) != 0 {
		t.Fatalf("len = %d, want 0 without include_unassigned", len(got))
	}
	got = filterForGet(rows, sheet.StatusUnassigned, true, "", 10)
	if len(got) != 1 || got[0].Title != "曲D" {
		t.Fatalf("len = %d, want 曲D with include_unassigned", len(got))
	}
}

func TestFilterForGet_KeepsLastCount(t *testing.T) {
	var rows []sheet.Row
	for n := 1; n <= 5; n++ {
		rows = append(rows, sheet.Row{
			Title:    sheet.FlexString(fmt.Sprintf("曲%d", n)),
			Composer: "c",
			Status:   sheet.StatusInProgress,
		})
	}

	got := filterForGet(rows, sheet.StatusInProgress, false, "", 2)
	if len(got) != 2 || got[0].Title != "曲4" || got[1].Title != "曲5" {
		t.Fatalf("got %+v, want the last two rows", got)
	}
}

func TestSearchRows(t *testing.T) {
	rows := makeRows()

	if got := searchRows(rows, "momo", 10); len(got) != 1 || got[0].Title != "曲B" {
		t.Fatalf("slot search = %+v, want 曲B", got)
	}
	if got := searchRows(rows, "曲C", 10); len(got) != 1 {
		t.Fatalf("title search = %+v, want 曲C", got)
	}
	if got := searchRows(rows, "c5", 10); len(got) != 1 || got[0].Title != "曲D" {
		t.Fatalf("composer search = %+v, want 曲D", got)
	}
	if got := searchRows(rows, "nothing", 10); len(got) != 0 {
		t.Fatalf("absent keyword matched %d rows", len(got))
	}

	// limit caps the result
	if got := searchRows(rows, "曲", 2); len(got) != 2 {
		t.Fatalf("limited search = %d rows, want 2", len(got))
	}
}

func TestTaskListEmbed(t *testing.T) {
	rows := []sheet.Row{{
		Title:    "星の歌",
		Composer: "composer-a",
		Status:   sheet.StatusInProgress,
		Sp:       "veal",
	}}

	embed := taskListEmbed(rows)
	if embed.Title != "🎵 曲一覧" {
		t.Fatalf("Title = %q", embed.Title)
	}
	if len(embed.Fields) != 1 {
		t.Fatalf("Fields = %d, want 1", len(embed.Fields))
	}
	if !strings.Contains(embed.Fields[0].Name, "星の歌 / composer-a") {
		t.Fatalf("field name = %q", embed.Fields[0].Name)
	}
	if !strings.Contains(embed.Fields[0].Value, "**Sp**:veal") || !strings.Contains(embed.Fields[0].Value, "**Wt**:-") {
		t.Fatalf("field value = %q", embed.Fields[0].Value)
	}
	if embed.Footer == nil || !strings.HasPrefix(embed.Footer.Text, "凡例:") {
		t.Fatal("embed should carry the status legend footer")
	}
}

func TestCharterListEmbed(t *testing.T) {
	embed := charterListEmbed(map[string][]int64{
		"veal": {111},
		"momo": {111, 222},
	})

	if len(embed.Fields) != 2 {
		t.Fatalf("Fields = %d, want one per user", len(embed.Fields))
	}
	// users sorted by ID, aliases sorted per user
	if !strings.Contains(embed.Fields[0].Value, "<@111>") || !strings.Contains(embed.Fields[0].Value, "momo / veal") {
		t.Fatalf("first field = %q", embed.Fields[0].Value)
	}
	if !strings.Contains(embed.Fields[1].Value, "<@222>") {
		t.Fatalf("second field = %q", embed.Fields[1].Value)
	}
}

func TestDeadlineEmbed(t *testing.T) {
	target := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)
	embed := deadlineEmbed([]notify.Report{{
		Title:  "星の歌",
		Slots:  []string{"Sp", "Wt"},
		Target: target,
	}})

	if embed.Title != "⏰ 担当中のタスク" {
		t.Fatalf("Title = %q", embed.Title)
	}
	want := fmt.Sprintf("<t:%d:R>", target.Unix())
	if !strings.Contains(embed.Fields[0].Value, want) {
		t.Fatalf("field value = %q, want relative timestamp %s", embed.Fields[0].Value, want)
	}
	if !strings.Contains(embed.Fields[0].Value, "Sp / Wt") {
		t.Fatalf("field value = %q, want joined slots", embed.Fields[0].Value)
	}
}
