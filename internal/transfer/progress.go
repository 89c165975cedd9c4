package transfer

// Progress turns byte counts into whole percentages for one transfer. It only
// reports when the percentage changes, never goes backwards, and holds at 99
// until Complete so that 100 means the file-end marker was sent or handled.
type Progress struct {
	total  int64
	last   int
	report func(percent int)
}

func NewProgress(total int64, report func(percent int)) *Progress {
	return &Progress{total: total, last: -1, report: report}
}

// Start reports 0%.
func (p *Progress) Start() {
	p.emit(0)
}

// Update reports floor(current/total*100), capped at 99.
func (p *Progress) Update(current int64) {
	p.emit(min(Percent(current, p.total), 99))
}

// Complete reports 100%.
func (p *Progress) Complete() {
	p.emit(100)
}

// Last is the last reported percentage, or -1 before Start.
func (p *Progress) Last() int {
	return p.last
}

func (p *Progress) emit(percent int) {
	if percent <= p.last {
		return
	}
	p.last = percent
	if p.report != nil {
		p.report(percent)
	}
}

// Percent is floor(current/total*100). A zero total counts as complete.
func Percent(current, total int64) int {
	if total <= 0 {
		return 100
	}
	if current <= 0 {
		return 0
	}
	if current >= total {
		return 100
	}
	// current < total keeps current*100 well inside int64 for any real file.
	return int(current * 100 / total)
}
