package tiles

import (
	"fmt"
	"log"
	"time"
)

// logLimiter stops a run of near-identical warnings (one per tile, say)
// from flooding the log. Messages are grouped by their format string:
// the first of each group within the interval is printed, the rest are
// counted, and Flush reports how many were dropped.
type logLimiter struct {
	interval   time.Duration
	nowFunc    func() time.Time
	last       map[string]time.Time
	suppressed map[string]int
}

func newLogLimiter() *logLimiter {
	return &logLimiter{
		interval:   time.Minute,
		nowFunc:    time.Now,
		last:       map[string]time.Time{},
		suppressed: map[string]int{},
	}
}

func (l *logLimiter) Printf(format string, v ...interface{}) {
	now := l.nowFunc()
	if prev, seen := l.last[format]; seen && now.Sub(prev) < l.interval {
		l.suppressed[format]++
		return
	}

	log.Print(fmt.Sprintf(format, v...))
	l.last[format] = now
}

// Flush logs a summary line for each group that had messages dropped, and
// resets the counts.
func (l *logLimiter) Flush() {
	for format, n := range l.suppressed {
		if n > 0 {
			log.Printf("(%d more like %q suppressed)", n, format)
		}
	}
	l.suppressed = map[string]int{}
}
