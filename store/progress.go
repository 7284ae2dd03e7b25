package store

import "log"

// progressReporter logs insert/back-fill progress: a line every N rows via
// the stdlib logger, N coming from config.StoreConfig.ProgressLogEvery;
// 0 disables it entirely. An exhausted plan never prints anything.
type progressReporter struct {
	desc  string
	every int
	count int
}

func newProgressReporter(desc string, every int) *progressReporter {
	return &progressReporter{desc: desc, every: every}
}

// update advances the counter by n rows, logging whenever the running count
// crosses a multiple of every.
func (p *progressReporter) update(n int) {
	if p.every <= 0 {
		p.count += n
		return
	}
	before := p.count
	p.count += n
	if before/p.every != p.count/p.every {
		log.Printf("store: %s: %d rows", p.desc, p.count)
	}
}

// close emits a final summary line, once, if progress logging is enabled
// and any rows were ever reported.
func (p *progressReporter) close() {
	if p.every > 0 && p.count > 0 {
		log.Printf("store: %s: %d rows total", p.desc, p.count)
	}
}
