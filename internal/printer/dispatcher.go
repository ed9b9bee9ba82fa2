// Package printer schedules receipt/ticket printing against a
// best-effort print surface. One job slot, debounced: the latest
// scheduled job wins and exactly one print runs per armed timer.
package printer

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Job is one print request. Payload carries the rendered receipt or
// ticket content as JSON.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Printer is the print surface. Implementations are synchronous and
// best-effort; errors are logged by the dispatcher and never
// propagated to callers.
type Printer interface {
	Print(job Job) error
}

// LogPrinter writes jobs to the process log. Default surface when no
// physical printer is configured.
type LogPrinter struct{}

func (LogPrinter) Print(job Job) error {
	log.Printf("print %s: %s", job.Type, job.Payload)
	return nil
}

// Dispatcher holds at most one pending job. Schedule replaces any
// job still waiting for its debounce window, so a burst of reprint
// clicks produces a single print of the last requested receipt.
type Dispatcher struct {
	printer  Printer
	debounce time.Duration

	mu      sync.Mutex
	pending *Job
	timer   *time.Timer
}

// NewDispatcher creates a Dispatcher. The debounce window lets the
// receipt layout settle before the print surface is invoked; tests
// pass a short window.
func NewDispatcher(p Printer, debounce time.Duration) *Dispatcher {
	return &Dispatcher{printer: p, debounce: debounce}
}

// Schedule queues the job and arms the debounce timer, cancelling any
// previously armed timer. The execution callback runs at most once per
// armed timer; print failures are logged and swallowed, and the slot
// is cleared either way so a stuck print surface cannot block the next
// job.
func (d *Dispatcher) Schedule(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = &job
	d.timer = time.AfterFunc(d.debounce, d.fire)
}

func (d *Dispatcher) fire() {
	d.mu.Lock()
	job := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	if job == nil {
		// Timer raced with a Schedule that already replaced us.
		return
	}

	if err := d.printer.Print(*job); err != nil {
		log.Printf("ERROR: print %s failed: %v", job.Type, err)
	}
}

// Pending reports whether a job is waiting for its debounce window.
func (d *Dispatcher) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}
