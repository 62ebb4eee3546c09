package progress

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var spinner = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Progress renders one byte-counting bar per named transfer (an archive
// being extracted, a mirror upload).
type Progress struct {
	mu        sync.Mutex
	opts      []mpb.ContainerOption
	container *mpb.Progress
	bars      map[string]*bar
}

type bar struct {
	*mpb.Bar
	started time.Time
}

// WithOutput sets the output for the progress container.
func WithOutput(w io.Writer) func() mpb.ContainerOption {
	return func() mpb.ContainerOption {
		return mpb.WithOutput(w)
	}
}

// WithRefreshRate sets the refresh rate for the progress container.
func WithRefreshRate(refreshRate time.Duration) func() mpb.ContainerOption {
	return func() mpb.ContainerOption {
		return mpb.WithRefreshRate(refreshRate)
	}
}

// NewProgress creates a new progress container.
func NewProgress(opts ...func() mpb.ContainerOption) *Progress {
	containerOpts := DefaultContainerOptions()
	for _, opt := range opts {
		containerOpts = append(containerOpts, opt())
	}
	return &Progress{
		opts:      containerOpts,
		container: mpb.New(containerOpts...),
		bars:      make(map[string]*bar),
	}
}

// DefaultContainerOptions returns the default container options for the progress container.
func DefaultContainerOptions() []mpb.ContainerOption {
	return []mpb.ContainerOption{
		mpb.WithOutput(os.Stderr),
		mpb.WithRefreshRate(150 * time.Millisecond),
	}
}

// DefaultBarOptions returns the default bar options for the progress container.
func DefaultBarOptions(description string) []mpb.BarOption {
	return []mpb.BarOption{
		mpb.BarRemoveOnComplete(),
		mpb.PrependDecorators(
			decor.Spinner(spinner, decor.WCSyncSpaceR),
			decor.Name(description, decor.WCSyncSpaceR),
			decor.CountersKibiByte("%.2f/%.2f", decor.WCSyncSpace),
			decor.Percentage(decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.EwmaSpeed(decor.SizeB1024(0), "%.2f", 30, decor.WCSyncSpace),
			decor.EwmaETA(decor.ET_STYLE_GO, 30, decor.WCSyncSpace),
		),
	}
}

// Start adds a bar of size bytes under name.
func (p *Progress) Start(name string, size int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if old, ok := p.bars[name]; ok {
		old.Abort(true)
	}
	p.bars[name] = &bar{
		Bar:     p.container.AddBar(size, DefaultBarOptions(name)...),
		started: time.Now(),
	}
}

// Add advances the bar for name by n bytes.
func (p *Progress) Add(name string, n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.bars[name]; ok {
		b.EwmaIncrInt64(n, time.Since(b.started))
		b.started = time.Now()
	}
}

// Done finishes the bar for name. Incomplete bars are aborted.
func (p *Progress) Done(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.bars[name]; ok {
		if !b.Completed() {
			b.Abort(true)
		}
		delete(p.bars, name)
	}
}

// Wait flushes all bars and resets the container for reuse.
func (p *Progress) Wait() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, b := range p.bars {
		b.Abort(true)
	}
	p.container.Wait()
	p.bars = make(map[string]*bar)
	p.container = mpb.New(p.opts...)
}
