// Package quota caps the number of generated replies per calendar day.
package quota

import (
	"sync"
	"time"
)

// dayLayout identifies a calendar day in the clinic's timezone. A plain
// date-string comparison is all the reset rule needs.
const dayLayout = "2006-01-02"

// Guard is a process-wide reply counter with a calendar-day reset. The
// counter deliberately crosses conversation boundaries; a multi-worker
// deployment would need an external atomic counter instead.
type Guard struct {
	mu    sync.Mutex
	limit int
	count int
	day   string
	loc   *time.Location
	now   func() time.Time
}

// New creates a Guard allowing limit replies per day in loc. A nil location
// falls back to time.Local.
func New(limit int, loc *time.Location) *Guard {
	if loc == nil {
		loc = time.Local
	}
	g := &Guard{limit: limit, loc: loc, now: time.Now}
	g.day = g.today()
	return g
}

// Allow reports whether another reply may be generated today. The day
// comparison runs first, so a counter left at the ceiling on day D resets
// before the ceiling check on day D+1.
func (g *Guard) Allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetIfNewDay()
	return g.count < g.limit
}

// Record counts one generated reply.
func (g *Guard) Record() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetIfNewDay()
	g.count++
}

// Used returns today's reply count.
func (g *Guard) Used() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetIfNewDay()
	return g.count
}

func (g *Guard) resetIfNewDay() {
	if today := g.today(); today != g.day {
		g.count = 0
		g.day = today
	}
}

func (g *Guard) today() string {
	return g.now().In(g.loc).Format(dayLayout)
}
