package transfer

// ProgressFunc receives download progress as a whole percentage,
// rounded down to a multiple of ten.
type ProgressFunc func(percent int)

// progressWriter counts bytes and reports each new decile once.
type progressWriter struct {
	total   int64
	written int64
	last    int
	fn      ProgressFunc
}

func newProgressWriter(total int64, fn ProgressFunc) *progressWriter {
	return &progressWriter{total: total, fn: fn}
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))

	if p.fn == nil || p.total <= 0 {
		return len(b), nil
	}

	percent := int(p.written * 100 / p.total)
	if percent > 100 {
		percent = 100
	}
	if decile := percent / 10 * 10; decile > p.last {
		p.last = decile
		p.fn(decile)
	}

	return len(b), nil
}
