package actors

import (
	stdctx "context"
	"math/rand"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"

	"bird-board/internal/models"
)

// SubmissionsAgent polls for new submissions on a slow cadence and rechecks
// the live set for removals. The comments agent preempts it whenever a
// comment arrives for a submission it has not seen yet.
type SubmissionsAgent struct {
	deps        *Deps
	registryPID *actor.PID

	bookmark string
	cancel   scheduler.CancelFunc
}

func NewSubmissionsAgent(deps *Deps, registryPID *actor.PID) actor.Actor {
	return &SubmissionsAgent{deps: deps, registryPID: registryPID}
}

func (a *SubmissionsAgent) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *StartAgentMsg:
		a.bookmark = msg.Bookmark
		a.deps.Log.Info("submissions agent started", "bookmark", a.bookmark)
		a.rearm(context)

	case *actor.Stopping:
		if a.cancel != nil {
			a.cancel()
			a.cancel = nil
		}

	case *FetchNowMsg:
		if a.cancel != nil {
			a.cancel()
		}
		a.fetchPass(context)
		a.rearm(context)

	case *fetchTickMsg:
		a.fetchPass(context)
		a.rearm(context)
	}
}

func (a *SubmissionsAgent) rearm(context actor.Context) {
	delay := jitter(a.deps.SubmissionInterval, rand.Float64())
	a.cancel = scheduler.NewTimerScheduler(context).SendOnce(delay, context.Self(), &fetchTickMsg{})
}

func (a *SubmissionsAgent) fetchPass(context actor.Context) {
	start := time.Now()
	defer func() {
		a.deps.Metrics.AddOperationLatency("submissions_fetch", time.Since(start))
	}()

	// Shelf recheck first: candidate ids are snapshotted before fetching so
	// a submission registered mid-pass is never judged on stale info.
	candidates := a.deps.Live.ActiveIDs()

	cursor := a.bookmark
	for {
		page, err := a.deps.Reader.SubmissionsAfter(stdctx.Background(), cursor, a.deps.PageSize)
		if err != nil {
			a.deps.Log.Warn("submission fetch failed", "cursor", cursor, "error", err)
			a.deps.Metrics.IncrementErrors()
			return
		}
		for _, sub := range page {
			context.Send(a.registryPID, &RegisterSubmissionMsg{Sub: sub})
		}
		if len(page) > 0 {
			cursor = page[len(page)-1].ID
		}
		if len(page) < a.deps.PageSize {
			break
		}
	}
	a.bookmark = cursor

	a.recheck(context, candidates)
}

// recheck re-fetches the live submissions by id and shelves any that have
// been removed or deleted since they were registered.
func (a *SubmissionsAgent) recheck(context actor.Context, ids []int64) {
	for len(ids) > 0 {
		n := a.deps.PageSize
		if n > len(ids) {
			n = len(ids)
		}
		chunk := ids[:n]
		ids = ids[n:]

		base36 := make([]string, len(chunk))
		for i, id := range chunk {
			base36[i] = models.Base36ID(id)
		}
		subs, err := a.deps.Reader.SubmissionsByID(stdctx.Background(), base36)
		if err != nil {
			a.deps.Log.Warn("shelf recheck fetch failed", "count", len(chunk), "error", err)
			a.deps.Metrics.IncrementErrors()
			return
		}
		for _, sub := range subs {
			if sub.Gone() {
				context.Send(a.registryPID, &ShelveSubmissionMsg{ID: sub.NumID})
			} else {
				// Refresh score and comment count while we have them.
				context.Send(a.registryPID, &RegisterSubmissionMsg{Sub: sub})
			}
		}
	}
}
