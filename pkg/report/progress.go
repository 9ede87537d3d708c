package report

import (
	"io"

	"github.com/cheggaaa/pb/v3"
)

const progressTemplate = `{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }}`

// Progress counts finished language tasks of one batch.
type Progress struct {
	bar *pb.ProgressBar
}

// NewProgress starts a bar over total tasks labelled with provider.
func NewProgress(w io.Writer, provider string, total int) *Progress {
	bar := pb.New(total).
		SetTemplateString(progressTemplate).
		SetWriter(w).
		SetMaxWidth(80).
		Set("prefix", provider+" ")
	bar.Start()
	return &Progress{bar: bar}
}

// Observe advances the bar. It matches stats.Config.Progress and is safe for
// concurrent use.
func (p *Progress) Observe(language string, err error) {
	p.bar.Increment()
}

// Done reports how many tasks finished.
func (p *Progress) Done() int64 {
	return p.bar.Current()
}

// Finish draws the final state and stops refreshing.
func (p *Progress) Finish() {
	p.bar.Finish()
}
