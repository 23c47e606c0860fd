package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"cruisesync/internal/ingest"
	"cruisesync/internal/pipeline"
	"cruisesync/internal/reconcile"
	"cruisesync/internal/session"
	"cruisesync/pkg/models"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func statusText(s session.Status) string {
	switch {
	case s == session.StatusError:
		return red(string(s))
	case s == session.StatusComplete, s == session.StatusAwaitingConfirmation:
		return green(string(s))
	case s.Active():
		return yellow(string(s))
	}
	return string(s)
}

func levelText(l session.Level) string {
	switch l {
	case session.LevelError:
		return red("ERROR")
	case session.LevelWarn:
		return yellow("WARN ")
	case session.LevelDebug:
		return faint("DEBUG")
	}
	return "INFO "
}

// renderSnapshot prints the session status block and its last logs lines.
func renderSnapshot(w io.Writer, s session.Snapshot, logs int) {
	fmt.Fprintf(w, "%s %s  %s\n", bold("session"), s.ID, statusText(s.Status))
	if s.Step > 0 {
		fmt.Fprintf(w, "  step %d (%s)", s.Step, s.StepLabel)
		if s.Progress.Total > 0 {
			fmt.Fprintf(w, "  %d/%d %s", s.Progress.Current, s.Progress.Total, s.Progress.Label)
		}
		fmt.Fprintln(w)
	}
	if len(s.Buffered) > 0 {
		fmt.Fprintf(w, "  buffered: %d offers, %d bookings, %d loyalty programs\n",
			s.Buffered[models.RecordOffers], s.Buffered[models.RecordBookings], s.Buffered[models.RecordLoyalty])
	}
	if s.Counts != (ingest.Counts{}) {
		c := s.Counts
		fmt.Fprintf(w, "  found: %d offers, %d sailings, %d upcoming cruises, %d holds, %d programs\n",
			c.Offers, c.Sailings, c.Upcoming, c.Holds, c.Programs)
	}
	if s.Bounces > 0 {
		fmt.Fprintf(w, "  bounces: %d\n", s.Bounces)
	}
	if s.LastError != "" {
		fmt.Fprintf(w, "  %s %s\n", red("last error:"), s.LastError)
	}
	if s.LastSync != nil {
		fmt.Fprintf(w, "  last sync: %s\n", s.LastSync.Local().Format(time.RFC1123))
	}

	entries := s.Logs
	if logs >= 0 && len(entries) > logs {
		entries = entries[len(entries)-logs:]
	}
	for _, e := range entries {
		renderLog(w, e)
	}
}

func renderLog(w io.Writer, e session.LogEntry) {
	step := "  "
	if e.Step > 0 {
		step = strconv.Itoa(e.Step) + " "
	}
	fmt.Fprintf(w, "%s %s %s%s\n", faint(e.Time.Local().Format("15:04:05")), levelText(e.Level), step, e.Message)
}

// renderPreview prints what a confirmed commit would write.
func renderPreview(w io.Writer, p *pipeline.Prepared) {
	fmt.Fprintf(w, "%s prepared %s\n\n", bold("preview"), p.PreparedAt.Local().Format(time.RFC1123))

	table := tablewriter.NewWriter(w)
	table.Header("Kind", "New", "Updated", "Unchanged", "Repaired", "Still invalid")
	for _, k := range models.Kinds {
		c := p.Summary[k]
		r := p.Repair[k]
		_ = table.Append([]string{
			string(k),
			green(strconv.Itoa(c.New)),
			yellow(strconv.Itoa(c.Updated)),
			strconv.Itoa(c.Unchanged),
			strconv.Itoa(r.Actions),
			strconv.Itoa(r.Improved + r.Unrepaired),
		})
	}
	_ = table.Render()

	renderUpdates(w, "offers", p.Preview.Offers.Updated)
	renderUpdates(w, "cruises", p.Preview.Cruises.Updated)
	renderUpdates(w, "booked cruises", p.Preview.BookedCruises.Updated)
	renderLoyalty(w, p.Preview.Loyalty)

	q := p.Quality
	fmt.Fprintf(w, "\nquality %.0f/100 over %d cruises (completeness %.0f, accuracy %.0f, consistency %.0f, timeliness %.0f)\n",
		q.Overall, q.Records, q.Completeness, q.Accuracy, q.Consistency, q.Timeliness)
	if n := len(p.Issues); n > 0 {
		fmt.Fprintf(w, "%s records still carry validation issues\n", yellow(strconv.Itoa(n)))
	}
	for _, kind := range []models.RecordKind{models.RecordOffers, models.RecordBookings, models.RecordLoyalty} {
		if n := p.Skipped[kind]; n > 0 {
			fmt.Fprintf(w, "%s malformed %s records skipped\n", yellow(strconv.Itoa(n)), kind)
		}
	}
}

func renderUpdates[T any](w io.Writer, label string, updates []reconcile.Update[T]) {
	if len(updates) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s %s\n", bold("updated"), label)
	table := tablewriter.NewWriter(w)
	table.Header("Key", "Field", "From", "To")
	for _, u := range updates {
		for _, ch := range u.Changes {
			_ = table.Append([]string{u.Key, ch.Field, fmt.Sprint(valueOrDash(ch.From)), fmt.Sprint(ch.To)})
		}
	}
	_ = table.Render()
}

func renderLoyalty(w io.Writer, l reconcile.LoyaltyPreview) {
	if !l.Captured {
		fmt.Fprintf(w, "\n%s\n", yellow("no loyalty status captured"))
		return
	}
	source := l.Source
	if l.Authoritative {
		source += ", authoritative"
	}
	fmt.Fprintf(w, "\n%s (%s)\n", bold("loyalty"), source)
	table := tablewriter.NewWriter(w)
	table.Header("Program", "Was", "Now", "Applied")
	for _, d := range l.Deltas {
		was := "-"
		if d.Previous != nil {
			was = fmt.Sprintf("%s %d", d.Previous.Tier, d.Previous.Points)
		}
		now := fmt.Sprintf("%s %d", d.Current.Tier, d.Current.Points)
		if d.Changed {
			now = yellow(now)
		}
		_ = table.Append([]string{d.Program, was, now, strconv.FormatBool(d.Applied)})
	}
	_ = table.Render()
}

func valueOrDash(v any) any {
	if v == nil {
		return "-"
	}
	return v
}
