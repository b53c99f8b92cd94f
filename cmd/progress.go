package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// progressPrinter redraws a single status line while scripts or targets settle.
type progressPrinter struct {
	out      io.Writer
	name     string
	mu       sync.Mutex
	total    int
	ok       int
	fail     int
	duration time.Duration
	updates  chan struct{}
	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
}

func newProgressPrinter(out io.Writer, total int, name string) *progressPrinter {
	return &progressPrinter{
		out:     out,
		total:   total,
		name:    name,
		updates: make(chan struct{}, 1),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
}

func (p *progressPrinter) Start() {
	go p.loop()
}

// SetTotal updates the expected count once it is known.
func (p *progressPrinter) SetTotal(total int) {
	p.mu.Lock()
	p.total = total
	p.mu.Unlock()
	p.notify()
}

func (p *progressPrinter) Increment(success bool, duration time.Duration) {
	p.mu.Lock()
	if success {
		p.ok++
	} else {
		p.fail++
	}
	p.duration += duration
	p.mu.Unlock()
	p.notify()
}

func (p *progressPrinter) notify() {
	select {
	case p.updates <- struct{}{}:
	default:
	}
}

func (p *progressPrinter) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		<-p.exited
		fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", 80))
		p.print()
		fmt.Fprintln(p.out)
	})
}

func (p *progressPrinter) loop() {
	defer close(p.exited)
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-p.updates:
			p.print()
		case <-ticker.C:
			p.print()
		case <-p.done:
			return
		}
	}
}

func (p *progressPrinter) line() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	completed := p.ok + p.fail
	total := p.total
	if completed > total {
		total = completed
	}

	percent := 100.0
	if total > 0 {
		percent = float64(completed) / float64(total) * 100
	}
	line := fmt.Sprintf("[%s] Progress: %d/%d (%.1f%%) OK:%d Fail:%d",
		p.name, completed, total, percent, p.ok, p.fail)
	if p.duration > 0 && completed > 0 {
		avg := p.duration.Seconds() / float64(completed)
		line += fmt.Sprintf(" Avg:%.2fs", avg)
	}
	return line
}

func (p *progressPrinter) print() {
	fmt.Fprintf(p.out, "\r%s", p.line())
}
