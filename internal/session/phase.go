package session

import (
	"sync"
	"time"
)

// PhaseReading is shown while the upload is being read and encoded.
const PhaseReading = "Reading document..."

// AnalysisPhases are cycled while the model call is outstanding. They are
// cosmetic and say nothing about how far the request has progressed.
var AnalysisPhases = []string{
	"Neural Deep-Scan Logic...",
	"Evaluating industry relevance...",
	"Checking ATS scoring factors...",
	"Generating insights...",
	"Finalizing analysis report...",
}

const defaultPhaseInterval = 2500 * time.Millisecond

// PhaseReporter emits one phase label per tick until the list runs out or Stop is called.
type PhaseReporter struct {
	interval time.Duration
	phases   []string
	set      func(string)

	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	started bool
	mu      sync.Mutex
}

func NewPhaseReporter(interval time.Duration, phases []string, set func(string)) *PhaseReporter {
	if interval <= 0 {
		interval = defaultPhaseInterval
	}
	return &PhaseReporter{
		interval: interval,
		phases:   phases,
		set:      set,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins ticking. Calling Start twice is a no-op.
func (p *PhaseReporter) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	go p.loop()
}

func (p *PhaseReporter) loop() {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	next := 0
	for next < len(p.phases) {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			select {
			case <-p.stop:
				return
			default:
			}
			p.set(p.phases[next])
			next++
		}
	}
}

// Stop halts the reporter and waits for the ticking goroutine to exit.
// No label is emitted after Stop returns.
func (p *PhaseReporter) Stop() {
	p.once.Do(func() { close(p.stop) })
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if started {
		<-p.done
	}
}
