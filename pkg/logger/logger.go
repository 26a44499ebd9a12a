// Package logger collapses bursts of identical log lines. Crawl passes emit
// the same "duplicate skipped" message dozens of times per page; collapsing
// them keeps run logs readable.
package logger

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var dedup = &deduplicator{
	out:        logrus.StandardLogger(),
	flushDelay: 2 * time.Second,
}

type deduplicator struct {
	mu         sync.Mutex
	out        *logrus.Logger
	lastMsg    string
	count      int
	flushDelay time.Duration
	timer      *time.Timer
}

func (d *deduplicator) flush() {
	if d.count == 0 {
		return
	}
	if d.count == 1 {
		d.out.Info(d.lastMsg)
	} else {
		d.out.WithField("repeats", d.count).Info(d.lastMsg)
	}
	d.count = 0
	d.lastMsg = ""
}

func (d *deduplicator) scheduleFlush() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.flushDelay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.flush()
	})
}

// Dedup logs at info level, merging consecutive identical messages into one
// line with a repeat count once the burst goes quiet.
func Dedup(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	dedup.mu.Lock()
	defer dedup.mu.Unlock()

	if msg == dedup.lastMsg {
		dedup.count++
		dedup.scheduleFlush()
		return
	}

	dedup.flush()
	dedup.lastMsg = msg
	dedup.count = 1
	dedup.scheduleFlush()
}
