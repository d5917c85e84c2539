package sheet

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Task statuses as they appear in the spreadsheet's status column.
const (
	StatusUnassigned      = "未割当"
	StatusInProgress      = "作業中"
	StatusPriority        = "優先作業"
	StatusSecondary       = "準作業"
	StatusAdjusting       = "調整中"
	StatusAwaitingRelease = "配信待ち"
	StatusDone            = "完了"
	StatusLimited         = "期間限定"
)

// StatusList is the full set of statuses, in display order.
var StatusList = []string{
	StatusUnassigned, StatusInProgress, StatusPriority, StatusSecondary,
	StatusAdjusting, StatusAwaitingRelease, StatusDone, StatusLimited,
}

var statusEmoji = map[string]string{
	StatusUnassigned:      "⬜",
	StatusInProgress:      "🟨",
	StatusPriority:        "🔴",
	StatusSecondary:       "🟦",
	StatusAdjusting:       "🟪",
	StatusAwaitingRelease: "🟩",
	StatusDone:            "✅",
	StatusLimited:         "⏳",
}

var statusLegend = buildLegend()

func buildLegend() string {
	parts := make([]string, 0, len(StatusList))
	for _, s := range StatusList {
		parts = append(parts, statusEmoji[s]+" "+s)
	}
	return strings.Join(parts, " ")
}

// StatusEmoji returns the emoji for a status, or "❓" for unknown values.
func StatusEmoji(status string) string {
	if e, ok := statusEmoji[status]; ok {
		return e
	}
	return "❓"
}

// StatusLegend returns the emoji legend line used in embed footers.
func StatusLegend() string {
	return statusLegend
}

// ApplyEmojiOverrides merges community-specific emoji into the status map.
// Called once at startup before any command handler runs.
func ApplyEmojiOverrides(overrides map[string]string) {
	for status, emoji := range overrides {
		statusEmoji[status] = emoji
	}
	statusLegend = buildLegend()
}

// InProgress reports whether a status counts as actively assigned work,
// which is what deadline reminders are scoped to.
func InProgress(status string) bool {
	return status == StatusInProgress || status == StatusPriority
}

// SlotNames are the four difficulty columns of the sheet, in column order.
var SlotNames = [4]string{"Sp", "Sm", "Am", "Wt"}

// FlexString decodes a sheet cell that may arrive as a JSON string, number,
// bool, or null. The spreadsheet webapp does not guarantee cell types.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(strconv.FormatFloat(n, 'f', -1, 64))
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = FlexString(strconv.FormatBool(b))
		return nil
	}
	// null or any other shape: treat as empty
	*f = ""
	return nil
}

// Row is a single task row fetched from the sheet. Rows are read-only
// snapshots; nothing in this process ever writes them back.
type Row struct {
	Title    FlexString `json:"曲名"`
	Composer FlexString `json:"作曲者"`
	Status   FlexString `json:"ステータス"`
	Target   FlexString `json:"本収録日"`
	Sp       FlexString `json:"Sp"`
	Sm       FlexString `json:"Sm"`
	Am       FlexString `json:"Am"`
	Wt       FlexString `json:"Wt"`
}

// Valid reports whether the row carries the minimum fields commands display.
func (r Row) Valid() bool {
	return r.Title != "" && r.Composer != ""
}

// Slot returns the text of the i-th difficulty slot (see SlotNames).
func (r Row) Slot(i int) string {
	switch i {
	case 0:
		return string(r.Sp)
	case 1:
		return string(r.Sm)
	case 2:
		return string(r.Am)
	case 3:
		return string(r.Wt)
	}
	return ""
}

// SlotOrDash returns the slot text, or "-" when the cell is empty.
func (r Row) SlotOrDash(i int) string {
	if s := r.Slot(i); s != "" {
		return s
	}
	return "-"
}

// TargetDate parses the target-date cell (YYYY/MM/DD). The second return is
// false for empty, unparsable, or epoch-adjacent dates: the sheet renders
// blank date cells as dates near 1970, which are not real deadlines.
func (r Row) TargetDate() (time.Time, bool) {
	s := strings.TrimSpace(string(r.Target))
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006/01/02", s)
	if err != nil {
		return time.Time{}, false
	}
	if t.Year() < 1971 {
		return time.Time{}, false
	}
	return t, true
}

// SlotsContain reports whether any difficulty slot contains the substring.
func (r Row) SlotsContain(substr string) bool {
	for i := range SlotNames {
		if strings.Contains(r.Slot(i), substr) {
			return true
		}
	}
	return false
}

// MatchedSlots returns the names of slots whose text contains any of the
// given alias names. Matching is substring containment, exactly as the
// community uses it: short aliases can match inside longer unrelated text,
// and that behavior is relied upon (e.g. "veal" matches "veal-chart").
func (r Row) MatchedSlots(aliases []string) []string {
	var matched []string
	for i, name := range SlotNames {
		cell := r.Slot(i)
		for _, alias := range aliases {
			if alias != "" && strings.Contains(cell, alias) {
				matched = append(matched, name)
				break
			}
		}
	}
	return matched
}
