// Package workflow runs the update, check, backup and network operations and
// reports their progress as a stream of events.
package workflow

import (
	"time"

	"github.com/adamancini/betterfox-updater/internal/types"
)

// Kind identifies the payload of an Event.
type Kind string

const (
	KindLog      Kind = "log"
	KindStatus   Kind = "status"
	KindProgress Kind = "progress"
	KindBusy     Kind = "busy"
)

// Event is one notification from a running operation.
type Event struct {
	RunID   string       `json:"run_id"`
	Kind    Kind         `json:"kind"`
	Time    time.Time    `json:"time"`
	Message string       `json:"message,omitempty"`
	Status  types.Status `json:"status,omitempty"`
	Phase   types.Phase  `json:"phase,omitempty"`
	Bytes   int64        `json:"bytes,omitempty"`
	Total   int64        `json:"total,omitempty"`
	Busy    bool         `json:"busy,omitempty"`
}

// Reporter receives the notifications of a running operation.
type Reporter interface {
	Log(line string)
	Status(s types.Status, p types.Phase)
	Progress(chunk, total int64)
}

// Log line markers.
const (
	MarkErr  = "[err] "
	MarkOK   = "[ok] "
	MarkWarn = "[warn] "
	MarkSkip = "[!] "
)

type nopReporter struct{}

func (nopReporter) Log(string)                       {}
func (nopReporter) Status(types.Status, types.Phase) {}
func (nopReporter) Progress(int64, int64)            {}

// Discard is a Reporter that drops everything.
var Discard Reporter = nopReporter{}

// channelReporter turns Reporter calls into events on a channel.
type channelReporter struct {
	runID string
	ch    chan<- Event
	now   func() time.Time
}

func (r *channelReporter) send(e Event) {
	e.RunID = r.runID
	e.Time = r.now()
	r.ch <- e
}

func (r *channelReporter) Log(line string) {
	r.send(Event{Kind: KindLog, Message: line})
}

func (r *channelReporter) Status(s types.Status, p types.Phase) {
	r.send(Event{Kind: KindStatus, Status: s, Phase: p})
}

func (r *channelReporter) Progress(chunk, total int64) {
	r.send(Event{Kind: KindProgress, Bytes: chunk, Total: total})
}

func (r *channelReporter) busy(b bool) {
	r.send(Event{Kind: KindBusy, Busy: b})
}
