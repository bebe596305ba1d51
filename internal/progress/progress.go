// Package progress reports pipeline steps as they start and finish.
package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/Vitruves/abtest-report/internal/logger"
	"github.com/Vitruves/abtest-report/internal/utils"
)

const barWidth = 20

type Progress struct {
	total     int
	current   int
	startTime time.Time
	stepStart time.Time
	step      string
	now       func() time.Time
}

func New(total int) *Progress {
	return NewWithClock(total, time.Now)
}

// NewWithClock is New with an injectable clock for tests.
func NewWithClock(total int, now func() time.Time) *Progress {
	start := now()
	return &Progress{
		total:     total,
		startTime: start,
		stepStart: start,
		now:       now,
	}
}

// Step closes the running step, if any, and starts the next one.
func (p *Progress) Step(name string) {
	p.finishStep()

	p.current++
	p.step = name
	p.stepStart = p.now()
	logger.Progress("%s", p.Line())
}

// Line renders the current position as "[i/n] |bar| name".
func (p *Progress) Line() string {
	filled := 0
	if p.total > 0 {
		filled = barWidth * p.current / p.total
	}
	if filled > barWidth {
		filled = barWidth
	}

	return fmt.Sprintf("[%d/%d] |%s%s| %s",
		p.current, p.total,
		strings.Repeat("█", filled),
		strings.Repeat("░", barWidth-filled),
		p.step)
}

func (p *Progress) Current() int {
	return p.current
}

// Stop closes the last step and logs the total elapsed time.
func (p *Progress) Stop() time.Duration {
	p.finishStep()
	p.step = ""

	elapsed := p.now().Sub(p.startTime)
	logger.Success("Completed %d of %d steps in %s", p.current, p.total, utils.FormatDuration(elapsed))
	return elapsed
}

func (p *Progress) finishStep() {
	if p.step == "" {
		return
	}
	logger.Debug("%s took %s", p.step, utils.FormatDuration(p.now().Sub(p.stepStart)))
}
