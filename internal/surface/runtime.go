package surface

import (
	"context"
	"log"
	"time"

	"focus/backend/internal/model"
	"focus/backend/internal/syncchan"
	"focus/backend/internal/timer"
)

const publishTimeout = 2 * time.Second

type commandKind int

const (
	cmdTogglePause commandKind = iota
	cmdComplete
	cmdSnapshot
)

type command struct {
	kind  commandKind
	reply chan commandReply
}

type commandReply struct {
	ok       bool
	paused   bool
	snapshot *model.TimerSnapshot
}

// runtime is the mirrored countdown of a single surface. It owns its session
// and tick sources exclusively; the main view learns about it only through
// messages on the bus.
type runtime struct {
	id        string
	title     string
	mode      Mode
	session   *timer.Session
	presenter Presenter
	bus       syncchan.Bus
	ticker    timer.Ticker
	status    timer.Ticker
	syncEvery int
	now       func() time.Time

	commands    chan command
	done        chan struct{}
	sinceSync   int
	statusLabel string
}

func (r *runtime) taskID() string {
	return r.session.TaskID()
}

func (r *runtime) run() {
	defer close(r.done)
	defer r.status.Stop()
	defer r.ticker.Stop()

	r.refreshStatus()
	r.render()

	for {
		select {
		case <-r.ticker.C():
			if r.onTick() {
				return
			}
		case <-r.status.C():
			r.refreshStatus()
			r.render()
		case cmd := <-r.commands:
			if r.handle(cmd) {
				return
			}
		case <-r.presenter.Closed():
			r.flush()
			return
		}
	}
}

func (r *runtime) onTick() bool {
	result := r.session.Tick()
	if result.Completed {
		actual, _ := r.session.ActualTime()
		r.finish(actual)
		return true
	}
	if !result.Advanced {
		return false
	}

	r.sinceSync++
	if r.sinceSync >= r.syncEvery {
		r.sinceSync = 0
		r.publish(syncchan.StateChange(r.taskID(), r.session.Remaining(), r.session.Paused()))
	}
	r.render()
	return false
}

func (r *runtime) handle(cmd command) bool {
	reply := commandReply{}
	stop := false

	switch cmd.kind {
	case cmdTogglePause:
		reply.paused, reply.ok = r.session.TogglePause(r.now())
		if reply.ok {
			r.sinceSync = 0
			r.publish(syncchan.StateChange(r.taskID(), r.session.Remaining(), reply.paused))
			r.refreshStatus()
			r.render()
		}
	case cmdComplete:
		var actual int
		actual, reply.ok = r.session.Complete()
		if reply.ok {
			r.finish(actual)
			stop = true
		}
	case cmdSnapshot:
		reply.ok = true
		reply.paused = r.session.Paused()
		reply.snapshot = r.session.Snapshot()
	}

	if cmd.reply != nil {
		cmd.reply <- reply
	}
	return stop
}

// finish announces completion exactly once and takes the surface down.
func (r *runtime) finish(actual int) {
	r.publish(syncchan.Completion(r.taskID(), actual))
	r.render()
	r.presenter.Close()
}

// flush reports the latest state of an interrupted countdown so the main
// view can resume from it.
func (r *runtime) flush() {
	if r.session.Snapshot() == nil {
		return
	}
	r.publish(syncchan.StateChange(r.taskID(), r.session.Remaining(), r.session.Paused()))
}

func (r *runtime) publish(msg syncchan.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := r.bus.Publish(ctx, msg.From(r.id)); err != nil {
		log.Printf("surface %s: failed to publish %s: %v", r.id, msg.Type, err)
	}
}

func (r *runtime) refreshStatus() {
	switch r.session.Status() {
	case timer.StatusPaused:
		r.statusLabel = "Paused"
	case timer.StatusCompleted:
		r.statusLabel = "Done"
	default:
		ends := r.now().Add(time.Duration(r.session.Remaining()) * time.Second)
		r.statusLabel = "Ends at " + ends.Format("15:04")
	}
}

func (r *runtime) render() {
	r.presenter.Render(Frame{
		SurfaceID:     r.id,
		TaskID:        r.taskID(),
		Title:         r.title,
		Mode:          r.mode,
		RemainingTime: r.session.Remaining(),
		Display:       timer.FormatClock(r.session.Remaining()),
		Progress:      r.session.Progress(),
		LowTime:       r.session.LowTime(),
		Paused:        r.session.Paused(),
		Status:        r.statusLabel,
		Completed:     r.session.Status() == timer.StatusCompleted,
	})
}

// send delivers a command and waits for its reply. It fails once the runtime
// has exited.
func (r *runtime) send(kind commandKind) (commandReply, error) {
	cmd := command{kind: kind, reply: make(chan commandReply, 1)}
	select {
	case r.commands <- cmd:
	case <-r.done:
		return commandReply{}, ErrSurfaceClosed
	}
	return <-cmd.reply, nil
}

func (r *runtime) alive() bool {
	select {
	case <-r.done:
		return false
	case <-r.presenter.Closed():
		return false
	default:
		return true
	}
}

// stop closes the presenter and waits for the runtime to wind down.
func (r *runtime) stop() {
	r.presenter.Close()
	<-r.done
}
