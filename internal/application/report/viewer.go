package report

import (
	"fmt"
	"time"

	"github.com/penwyp/go-logviewer/internal/core/executor"
	"github.com/penwyp/go-logviewer/internal/core/model"
	"github.com/penwyp/go-logviewer/internal/util"
)

// Viewer loads events off the main loop and hands results back to it.
type Viewer struct {
	source *Source
	loop   *executor.MainLoop
	pool   *executor.WorkerPool
}

func NewViewer(source *Source, loop *executor.MainLoop, pool *executor.WorkerPool) *Viewer {
	return &Viewer{source: source, loop: loop, pool: pool}
}

// Open loads ev on a worker and calls deliver on the main loop. If the loop
// has stopped by then the result is dropped.
func (v *Viewer) Open(ev model.Event, deliver func(*model.DisplayModel, error)) {
	v.pool.Submit(func() {
		start := time.Now()
		m, err := v.source.Load(ev)
		util.LogDebug(fmt.Sprintf("Loaded %s event in %v", ev.Action(), time.Since(start)))

		if !v.loop.Post(func() { deliver(m, err) }) {
			util.LogDebug("Main loop stopped, dropping loaded event")
		}
	})
}
