// Package reminder implements the daily deadline-countdown message: its
// rendering, the quote sources, the scheduled and recovery send paths, and
// the sent-today ledger.
package reminder

import (
	"fmt"
	"strings"
	"time"
)

// Signature is the fixed leading line of every reminder message. The
// history-scanning ledger recognises previously sent reminders by this
// substring, so changing it orphans reminders already in the channel.
const Signature = "Hey Gents, here's the deadline:"

// Deadline is a single tracked deadline.
type Deadline struct {
	// Name is the deadline's display name.
	Name string

	// Date is the deadline date. Only the calendar date matters; the time
	// of day is ignored.
	Date time.Time
}

// DaysUntil returns the whole-day difference between the deadline and today.
// Positive means the deadline is in the future.
func (d Deadline) DaysUntil(today time.Time) int {
	a := time.Date(d.Date.Year(), d.Date.Month(), d.Date.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(a.Sub(b).Hours() / 24)
}

// CountdownLine renders the deadline's one-line status for today.
func (d Deadline) CountdownLine(today time.Time) string {
	switch days := d.DaysUntil(today); {
	case days > 0:
		return fmt.Sprintf("%s: %d days remaining", d.Name, days)
	case days == 0:
		return fmt.Sprintf("%s: Today is the day!", d.Name)
	default:
		return fmt.Sprintf("%s: Deadline passed!", d.Name)
	}
}

// ComposeMessage renders the full reminder message for today: the signature
// header, one countdown line per deadline, and the motivational quote.
func ComposeMessage(today time.Time, deadlines []Deadline, quote string) string {
	lines := make([]string, 0, len(deadlines)+2)
	lines = append(lines, Signature+"\n")
	for _, d := range deadlines {
		lines = append(lines, d.CountdownLine(today))
	}
	lines = append(lines, "\n"+quote)
	return strings.Join(lines, "\n")
}
