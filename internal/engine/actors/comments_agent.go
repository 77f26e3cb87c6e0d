package actors

import (
	stdctx "context"
	"math/rand"
	"strings"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"

	"bird-board/internal/models"
)

const routeTimeout = 5 * time.Second

// CommentsAgent polls the comment stream forward from a bookmark and routes
// every comment through the registry. The bookmark only advances after a
// pass completes without a fetch error, so a failed page is re-read next
// tick instead of skipped.
type CommentsAgent struct {
	deps           *Deps
	registryPID    *actor.PID
	publisherPID   *actor.PID
	submissionsPID *actor.PID

	bookmark string
	cancel   scheduler.CancelFunc
}

func NewCommentsAgent(deps *Deps, registryPID, publisherPID, submissionsPID *actor.PID) actor.Actor {
	return &CommentsAgent{
		deps:           deps,
		registryPID:    registryPID,
		publisherPID:   publisherPID,
		submissionsPID: submissionsPID,
	}
}

func (a *CommentsAgent) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *StartAgentMsg:
		a.bookmark = msg.Bookmark
		a.deps.Log.Info("comments agent started", "bookmark", a.bookmark)
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

func (a *CommentsAgent) rearm(context actor.Context) {
	delay := jitter(a.deps.CommentInterval, rand.Float64())
	a.cancel = scheduler.NewTimerScheduler(context).SendOnce(delay, context.Self(), &fetchTickMsg{})
}

func (a *CommentsAgent) fetchPass(context actor.Context) {
	start := time.Now()
	defer func() {
		a.deps.Metrics.AddOperationLatency("comments_fetch", time.Since(start))
	}()
	cursor := a.bookmark
	preempted := false

	for {
		page, err := a.deps.Reader.CommentsAfter(stdctx.Background(), cursor, a.deps.PageSize)
		if err != nil {
			// Next tick retries from the committed bookmark.
			a.deps.Log.Warn("comment fetch failed", "cursor", cursor, "error", err)
			a.deps.Metrics.IncrementErrors()
			return
		}
		for _, c := range page {
			if strings.EqualFold(c.Author, a.deps.BotUser) {
				context.Send(a.publisherPID, &OwnCommentMsg{Comment: c})
				continue
			}
			outcome, err := a.routeComment(context, c)
			if err != nil {
				a.deps.Log.Warn("comment routing timed out", "comment", c.ID, "error", err)
				return
			}
			if outcome == RouteDeliveredNew && !preempted {
				// A comment on a submission we have not fetched yet:
				// pull the submissions agent forward once per pass.
				context.Send(a.submissionsPID, &FetchNowMsg{})
				preempted = true
			}
		}
		if len(page) > 0 {
			cursor = page[len(page)-1].ID
		}
		if len(page) < a.deps.PageSize {
			break
		}
	}
	a.bookmark = cursor
}

func (a *CommentsAgent) routeComment(context actor.Context, c models.Comment) (RouteOutcome, error) {
	res, err := context.RequestFuture(a.registryPID, &RouteCommentMsg{Comment: c}, routeTimeout).Result()
	if err != nil {
		return RouteIgnoredStale, err
	}
	return res.(RouteOutcome), nil
}
