package actors

import (
	stdctx "context"
	"math/rand"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
)

// publishedAnswer is what the bot believes it has standing on the forum for
// one submission.
type publishedAnswer struct {
	commentID string
	taxa      []string
	reviewers []string
	createdAt int64
}

// PublisherActor is the single writer to the forum. It holds one pending
// answer per submission (latest consensus wins), drains one write per tick
// with a minimum spacing between writes, and drops writes that would leave
// the published comment unchanged.
type PublisherActor struct {
	deps *Deps

	queue     map[int64]*QueueAnswerMsg
	order     []int64
	deletions []string
	records   map[int64]*publishedAnswer

	lastWrite time.Time
	armed     bool
	cancel    scheduler.CancelFunc
}

func NewPublisherActor(deps *Deps) actor.Actor {
	return &PublisherActor{
		deps:    deps,
		queue:   make(map[int64]*QueueAnswerMsg),
		records: make(map[int64]*publishedAnswer),
	}
}

func (a *PublisherActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		a.deps.Log.Info("publisher actor started", "spacing", a.deps.WriteSpacing)

	case *actor.Stopping:
		if a.cancel != nil {
			a.cancel()
			a.cancel = nil
		}

	case *QueueAnswerMsg:
		a.enqueue(msg)
		a.armDrain(context)

	case *OwnCommentMsg:
		a.reconcileOwn(msg)
		a.armDrain(context)

	case *SubmissionShelvedMsg:
		a.dropQueued(msg.SubNumID)
		if rec, ok := a.records[msg.SubNumID]; ok {
			a.deletions = append(a.deletions, rec.commentID)
			delete(a.records, msg.SubNumID)
		}
		a.armDrain(context)

	case *SubmissionExpiredMsg:
		// Out of scope, not removed: the published comment stays up.
		a.dropQueued(msg.SubNumID)
		delete(a.records, msg.SubNumID)

	case *drainMsg:
		a.armed = false
		a.drainOne(context)
		a.armDrain(context)

	case *GetPublisherStatsMsg:
		context.Respond(&PublisherStats{
			PendingAnswers:   len(a.queue),
			PendingDeletions: len(a.deletions),
			PublishedRecords: len(a.records),
		})
	}
}

func (a *PublisherActor) enqueue(msg *QueueAnswerMsg) {
	if rec, ok := a.records[msg.SubNumID]; ok {
		if _, pending := a.queue[msg.SubNumID]; !pending &&
			stringsEqual(rec.taxa, msg.Taxa) && stringsEqual(rec.reviewers, msg.Reviewers) {
			return // already published exactly this
		}
	}
	if _, ok := a.queue[msg.SubNumID]; !ok {
		a.order = append(a.order, msg.SubNumID)
	}
	a.queue[msg.SubNumID] = msg
}

// reconcileOwn folds a bot-authored comment seen in the fetch stream back
// into the records. When two comments exist for one submission the older
// one wins and the newer one is queued for deletion.
func (a *PublisherActor) reconcileOwn(msg *OwnCommentMsg) {
	numID := msg.Comment.SubmissionNumID()
	taxa, reviewers := ParseAnswerBody(msg.Comment.Body)

	rec, ok := a.records[numID]
	if !ok {
		a.records[numID] = &publishedAnswer{
			commentID: msg.Comment.ID,
			taxa:      taxa,
			reviewers: reviewers,
			createdAt: msg.Comment.CreatedAt,
		}
		return
	}
	if rec.commentID == msg.Comment.ID {
		rec.taxa = taxa
		rec.reviewers = reviewers
		rec.createdAt = msg.Comment.CreatedAt
		return
	}
	if msg.Comment.CreatedAt >= rec.createdAt {
		a.deps.Log.Warn("duplicate published comment, deleting newer",
			"submission", msg.Comment.SubmissionID, "comment", msg.Comment.ID)
		a.deletions = append(a.deletions, msg.Comment.ID)
		return
	}
	a.deps.Log.Warn("duplicate published comment, adopting older",
		"submission", msg.Comment.SubmissionID, "comment", msg.Comment.ID)
	a.deletions = append(a.deletions, rec.commentID)
	a.records[numID] = &publishedAnswer{
		commentID: msg.Comment.ID,
		taxa:      taxa,
		reviewers: reviewers,
		createdAt: msg.Comment.CreatedAt,
	}
}

// drainOne performs at most one forum write. No-op queue entries are
// skipped without consuming the write budget.
func (a *PublisherActor) drainOne(context actor.Context) {
	if len(a.deletions) > 0 {
		id := a.deletions[0]
		if err := a.deps.Writer.DeleteComment(stdctx.Background(), id); err != nil {
			a.deps.Log.Warn("comment deletion failed", "comment", id, "error", err)
			a.deps.Metrics.IncrementErrors()
		}
		// Dropped either way: a failed delete of a possibly-gone comment
		// is not worth wedging the queue over.
		a.deletions = a.deletions[1:]
		a.lastWrite = time.Now()
		return
	}

	for len(a.order) > 0 {
		numID := a.order[0]
		a.order = a.order[1:]
		msg, ok := a.queue[numID]
		if !ok {
			continue
		}
		delete(a.queue, numID)
		if a.publish(msg) {
			a.lastWrite = time.Now()
			return
		}
	}
}

// publish writes one answer and reports whether a forum write happened.
func (a *PublisherActor) publish(msg *QueueAnswerMsg) bool {
	rec, exists := a.records[msg.SubNumID]

	if len(msg.Taxa) == 0 {
		if !exists {
			return false
		}
		a.deletions = append(a.deletions, rec.commentID)
		delete(a.records, msg.SubNumID)
		return false
	}
	if exists && stringsEqual(rec.taxa, msg.Taxa) && stringsEqual(rec.reviewers, msg.Reviewers) {
		return false
	}

	body := RenderAnswerBody(msg.Taxa, msg.Reviewers, a.deps.Tax)
	start := time.Now()

	if exists {
		if err := a.deps.Writer.EditComment(stdctx.Background(), rec.commentID, body); err != nil {
			a.deps.Log.Warn("comment edit failed", "comment", rec.commentID, "error", err)
			a.deps.Metrics.IncrementErrors()
			a.requeue(msg)
			return true
		}
		rec.taxa = msg.Taxa
		rec.reviewers = msg.Reviewers
	} else {
		commentID, err := a.deps.Writer.CreateComment(stdctx.Background(), msg.SubmissionID, body)
		if err != nil {
			a.deps.Log.Warn("comment creation failed", "submission", msg.SubmissionID, "error", err)
			a.deps.Metrics.IncrementErrors()
			a.requeue(msg)
			return true
		}
		a.records[msg.SubNumID] = &publishedAnswer{
			commentID: commentID,
			taxa:      msg.Taxa,
			reviewers: msg.Reviewers,
			createdAt: time.Now().Unix(),
		}
	}
	a.deps.Metrics.AddOperationLatency("publish_write", time.Since(start))
	return true
}

// requeue puts a failed write back unless a newer answer arrived while the
// write was in flight.
func (a *PublisherActor) requeue(msg *QueueAnswerMsg) {
	if _, ok := a.queue[msg.SubNumID]; ok {
		return
	}
	a.queue[msg.SubNumID] = msg
	a.order = append(a.order, msg.SubNumID)
}

func (a *PublisherActor) dropQueued(numID int64) {
	delete(a.queue, numID)
}

func (a *PublisherActor) armDrain(context actor.Context) {
	if a.armed || (len(a.queue) == 0 && len(a.deletions) == 0) {
		return
	}
	delay := drainDelay(time.Since(a.lastWrite), a.deps.WriteSpacing, rand.Float64())
	a.armed = true
	a.cancel = scheduler.NewTimerScheduler(context).SendOnce(delay, context.Self(), &drainMsg{})
}

// drainDelay computes the wait before the next drain tick. The write spacing
// is a floor, so jitter only ever stretches it; once the spacing is already
// satisfied the queue drains on the next beat.
func drainDelay(sinceLast, spacing time.Duration, f float64) time.Duration {
	if sinceLast >= spacing {
		return 20 * time.Millisecond
	}
	return spacing - sinceLast + time.Duration(f*0.1*float64(spacing))
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
