// Package runner feeds captured or live event streams into the
// correlation engine.
package runner

import (
	"fmt"

	"github.com/sweeney/callwatch/internal/ami"
	"github.com/sweeney/callwatch/internal/callstate"
)

// FileRunner replays captured event logs. Every Run gets a fresh
// engine, so one runner can replay any number of files back to back
// without state bleeding between them.
type FileRunner struct {
	reporter callstate.Reporter
	opts     []callstate.Option
}

// NewFileRunner creates a replay runner reporting to r. Engine options
// are applied to each engine a Run creates.
func NewFileRunner(r callstate.Reporter, opts ...callstate.Option) *FileRunner {
	return &FileRunner{reporter: r, opts: opts}
}

// Run replays the JSON event log at path through a fresh engine.
func (fr *FileRunner) Run(path string) error {
	events, err := ami.ReadLogFile(path)
	if err != nil {
		return fmt.Errorf("replaying %s: %w", path, err)
	}
	fr.RunEvents(events)
	return nil
}

// RunEvents replays an already parsed event sequence through a fresh
// engine.
func (fr *FileRunner) RunEvents(events []ami.Event) {
	engine := callstate.NewEngine(fr.reporter, fr.opts...)
	for _, evt := range events {
		engine.HandleEvent(evt)
	}
}
