// Package notify implements the deadline reconciler: it joins the fetched
// task rows against the alias registry and the notification ledger and DMs
// each assigned charter as a deadline milestone comes due.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/yuduki/chartkeeper/internal/ledger"
	"github.com/yuduki/chartkeeper/internal/registry"
	"github.com/yuduki/chartkeeper/internal/runlog"
	"github.com/yuduki/chartkeeper/internal/sheet"
)

// ErrNoAliases is returned by RunForUser when the requesting user has no
// registered pen names.
var ErrNoAliases = errors.New("no aliases registered")

// Fetcher retrieves the current task rows. *sheet.Client satisfies this;
// tests substitute fakes.
type Fetcher interface {
	Fetch(ctx context.Context) ([]sheet.Row, error)
}

// Messenger is the chat-platform capability the reconciler needs: checking
// that a user still belongs to one of the configured servers, and delivering
// a direct message.
type Messenger interface {
	IsMember(userID int64) bool
	SendDM(userID int64, content string) error
}

// Milestone is one reminder lead time. A notification key embeds the tag, so
// the two milestones of a task dedupe independently.
type Milestone struct {
	Days int
	Tag  string
}

// DefaultMilestones are the three-week and two-week reminders.
var DefaultMilestones = []Milestone{
	{Days: 21, Tag: "week3"},
	{Days: 14, Tag: "week2"},
}

// Reconciler runs the deadline check, either on its fixed schedule over all
// registered charters or on demand for a single user.
type Reconciler struct {
	fetcher    Fetcher
	registry   *registry.Registry
	ledger     *ledger.Ledger
	messenger  Messenger
	passes     *runlog.Store
	milestones []Milestone
	now        func() time.Time
	inflight   chan struct{}
}

// New creates a reconciler with the default milestones and the real clock.
func New(f Fetcher, reg *registry.Registry, led *ledger.Ledger, m Messenger, passes *runlog.Store) *Reconciler {
	return &Reconciler{
		fetcher:    f,
		registry:   reg,
		ledger:     led,
		messenger:  m,
		passes:     passes,
		milestones: DefaultMilestones,
		now:        time.Now,
		inflight:   make(chan struct{}, 1),
	}
}

// WithMilestones overrides the reminder lead times.
func (r *Reconciler) WithMilestones(ms []Milestone) {
	if len(ms) > 0 {
		r.milestones = ms
	}
}

// WithClock overrides the clock used to compute "today". Tests pin it.
func (r *Reconciler) WithClock(now func() time.Time) {
	r.now = now
}

// Start launches the recurring check: one pass immediately, then one per
// interval until the context is cancelled.
func (r *Reconciler) Start(ctx context.Context, interval time.Duration) {
	go func() {
		r.RunPass(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.RunPass(ctx)
			}
		}
	}()
}

// RunPass executes one full reconciliation pass over all registered
// charters. If a previous pass is still running the call is skipped: passes
// are idempotent per day, so the next tick loses nothing.
func (r *Reconciler) RunPass(ctx context.Context) {
	select {
	case r.inflight <- struct{}{}:
	default:
		log.Printf("[Reconciler] Previous pass still running, skipping")
		return
	}
	defer func() { <-r.inflight }()

	id := r.passes.Begin("pass-" + r.now().UTC().Format("20060102-150405"))

	rows, err := r.fetcher.Fetch(ctx)
	if err != nil {
		// Fetch failure is never "zero tasks due". Abandon the pass.
		log.Printf("[Reconciler] Sheet fetch failed, aborting pass: %v", err)
		r.passes.AddLog(id, "error", fmt.Sprintf("sheet fetch failed: %v", err))
		r.passes.Finish(id, runlog.StatusFailed, 0, 0, 0)
		return
	}

	today := dateOnly(r.now().UTC())
	aliases := r.registry.All()
	fired, sent := 0, 0

	for _, row := range rows {
		if !sheet.InProgress(strings.TrimSpace(string(row.Status))) {
			continue
		}
		target, ok := row.TargetDate()
		if !ok {
			continue
		}

		recipients := matchRecipients(row, aliases)
		if len(recipients) == 0 {
			continue
		}

		title := titleOf(row)
		dateStr := strings.TrimSpace(string(row.Target))

		for _, m := range r.milestones {
			// Exact day match only. A pass missed on the milestone day
			// means that milestone is never sent retroactively.
			if !today.Equal(dateOnly(target).AddDate(0, 0, -m.Days)) {
				continue
			}
			key := ledger.Key(title, dateStr, m.Tag)
			if r.ledger.HasSent(key) {
				continue
			}

			for _, userID := range sortedIDs(recipients) {
				if !r.messenger.IsMember(userID) {
					r.passes.AddLog(id, "info", fmt.Sprintf("user %d left all servers, skipping", userID))
					continue
				}
				msg := FormatReminder(m.Days, title, recipients[userID], dateStr)
				if err := r.messenger.SendDM(userID, msg); err != nil {
					log.Printf("[Reconciler] Failed to DM %d: %v", userID, err)
					r.passes.AddLog(id, "error", fmt.Sprintf("DM to %d failed: %v", userID, err))
					continue
				}
				r.passes.AddLog(id, "success", fmt.Sprintf("DM sent to %d for %s (%s)", userID, title, m.Tag))
				sent++
			}

			// At most once per milestone: failed or skipped recipients are
			// not retried on a later pass.
			r.ledger.MarkSent(key, today)
			fired++
		}
	}

	if err := r.ledger.Save(); err != nil {
		log.Printf("[Reconciler] Failed to save ledger: %v", err)
		r.passes.AddLog(id, "error", fmt.Sprintf("ledger save failed: %v", err))
	}
	r.passes.Finish(id, runlog.StatusCompleted, len(rows), fired, sent)
	log.Printf("[Reconciler] Pass done: %d rows, %d milestones fired, %d DMs sent", len(rows), fired, sent)
}

// Report is one task a user is currently assigned to, for the on-demand
// /deadline check.
type Report struct {
	Title   string
	Slots   []string
	Target  time.Time
	DateStr string
}

// RunForUser fetches the rows and returns the requesting user's in-progress
// assignments. It never touches the ledger: every invocation reports afresh.
func (r *Reconciler) RunForUser(ctx context.Context, userID int64) ([]Report, error) {
	aliases := r.registry.AliasesFor(userID)
	if len(aliases) == 0 {
		return nil, ErrNoAliases
	}

	rows, err := r.fetcher.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch sheet: %w", err)
	}

	var reports []Report
	for _, row := range rows {
		if !sheet.InProgress(strings.TrimSpace(string(row.Status))) {
			continue
		}
		target, ok := row.TargetDate()
		if !ok {
			continue
		}
		slots := row.MatchedSlots(aliases)
		if len(slots) == 0 {
			continue
		}
		reports = append(reports, Report{
			Title:   titleOf(row),
			Slots:   slots,
			Target:  target,
			DateStr: strings.TrimSpace(string(row.Target)),
		})
	}
	return reports, nil
}

// FormatReminder renders the deadline DM body.
func FormatReminder(days int, title string, slots []string, dateStr string) string {
	return fmt.Sprintf("⏰ 納期通知 (%d日前)\n%s\n担当:%s\n納期:%s",
		days, title, strings.Join(slots, " / "), dateStr)
}

// matchRecipients finds every registered alias occurring as a substring of a
// difficulty slot and unions the owning users into user → matched slots.
// Slot names keep column order; a slot matching several aliases of the same
// user is listed once.
func matchRecipients(row sheet.Row, aliases map[string][]int64) map[int64][]string {
	marked := make(map[int64]map[string]bool)
	for i, slotName := range sheet.SlotNames {
		cell := strings.TrimSpace(row.Slot(i))
		if cell == "" {
			continue
		}
		for name, ids := range aliases {
			if name == "" || !strings.Contains(cell, name) {
				continue
			}
			for _, userID := range ids {
				if marked[userID] == nil {
					marked[userID] = make(map[string]bool)
				}
				marked[userID][slotName] = true
			}
		}
	}

	out := make(map[int64][]string, len(marked))
	for userID, slots := range marked {
		for _, slotName := range sheet.SlotNames {
			if slots[slotName] {
				out[userID] = append(out[userID], slotName)
			}
		}
	}
	return out
}

func sortedIDs(m map[int64][]string) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func titleOf(row sheet.Row) string {
	if row.Title == "" {
		return "不明"
	}
	return string(row.Title)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
