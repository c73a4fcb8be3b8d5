// Package sim implements the simulation clock, stepper, event log, and
// websocket broadcaster (spec.md §4.3, §6). The stepper is grounded on
// cargo's Simulator::step (include/libcargo/functions.h); the broadcaster is
// ported from dispatch.Hub (internal/dispatch/hub.go), generalized from
// per-ride rooms to one simulation-wide room.
package sim

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// tailSize bounds how many recent lines EventLog keeps in memory for the
// control-plane API's /api/events/tail endpoint.
const tailSize = 500

// EventLog writes the whitespace-delimited, tagged event lines spec.md §6
// defines for the .dat output: one line per route commit, position sample,
// match/unmatch, pickup, dropoff, arrival, or timeout. It also keeps the
// last tailSize lines in memory so the control-plane API can serve a recent
// tail without re-reading the output file.
type EventLog struct {
	mu   sync.Mutex
	w    io.Writer
	tail []string
}

func NewEventLog(w io.Writer) *EventLog {
	return &EventLog{w: w}
}

func (l *EventLog) writeLine(fields ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprint(&b, f)
	}
	line := b.String()
	io.WriteString(l.w, line+"\n")

	l.tail = append(l.tail, line)
	if len(l.tail) > tailSize {
		l.tail = l.tail[len(l.tail)-tailSize:]
	}
}

// Tail returns up to n of the most recently written lines.
func (l *EventLog) Tail(n int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > len(l.tail) {
		n = len(l.tail)
	}
	out := make([]string, n)
	copy(out, l.tail[len(l.tail)-n:])
	return out
}

// Route logs a newly committed route: "<t> R <vid> <node> <node> ...".
func (l *EventLog) Route(t, vehlID int, nodes []int) {
	fields := make([]any, 0, len(nodes)+3)
	fields = append(fields, t, "R", vehlID)
	for _, n := range nodes {
		fields = append(fields, n)
	}
	l.writeLine(fields...)
}

// Positions logs every active vehicle's current node at tick t:
// "<t> V <vid> <node> [<vid> <node> ...]".
func (l *EventLog) Positions(t int, vehlIDs, nodes []int) {
	fields := make([]any, 0, 2*len(vehlIDs)+2)
	fields = append(fields, t, "V")
	for i := range vehlIDs {
		fields = append(fields, vehlIDs[i], nodes[i])
	}
	l.writeLine(fields...)
}

// Match logs a committed match/unmatch: added ids positive, removed ids
// negated, "<t> M <vid> [<cid>|-<cid> ...]".
func (l *EventLog) Match(t, vehlID int, added, removed []int) {
	fields := []any{t, "M", vehlID}
	for _, c := range added {
		fields = append(fields, c)
	}
	for _, c := range removed {
		fields = append(fields, -c)
	}
	l.writeLine(fields...)
}

// Pickup logs "<t> P <cid> ...".
func (l *EventLog) Pickup(t int, custIDs ...int) {
	l.writeTagged(t, "P", custIDs)
}

// Dropoff logs "<t> D <cid> ...".
func (l *EventLog) Dropoff(t int, custIDs ...int) {
	l.writeTagged(t, "D", custIDs)
}

// Arrival logs "<t> A <vid> ...".
func (l *EventLog) Arrival(t int, vehlIDs ...int) {
	l.writeTagged(t, "A", vehlIDs)
}

// Timeout logs "<t> T <cid> ...".
func (l *EventLog) Timeout(t int, custIDs ...int) {
	l.writeTagged(t, "T", custIDs)
}

func (l *EventLog) writeTagged(t int, tag string, ids []int) {
	if len(ids) == 0 {
		return
	}
	fields := make([]any, 0, len(ids)+2)
	fields = append(fields, t, tag)
	for _, id := range ids {
		fields = append(fields, id)
	}
	l.writeLine(fields...)
}
