package actors

import (
	stdctx "context"
	"math/rand"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"

	"bird-board/internal/claims"
	"bird-board/internal/consensus"
	"bird-board/internal/hints"
	"bird-board/internal/models"
	"bird-board/internal/vault"
)

const (
	maxHintRetries    = 3
	hintRetryBackoff  = time.Minute
	removedAuthorName = "[deleted]"
)

// SubmissionActor is the processing context that owns one live submission's
// consensus. Comments are applied strictly in creation order; nothing else
// may touch the answer, so the state needs no locking.
type SubmissionActor struct {
	deps         *Deps
	numID        int64
	publisherPID *actor.PID

	sub     models.Submission
	answer  *consensus.Answer
	motions []models.Motion // append-only, for replay and inspection

	pending  []models.Comment
	inflight *purifyState

	retryCancel scheduler.CancelFunc
}

// purifyState tracks the comment currently being resolved hint by hint.
type purifyState struct {
	comment models.Comment
	extract models.Extract
	retries int
}

func NewSubmissionActor(deps *Deps, numID int64, publisherPID *actor.PID) actor.Actor {
	return &SubmissionActor{
		deps:         deps,
		numID:        numID,
		publisherPID: publisherPID,
		answer:       consensus.NewAnswer(),
	}
}

func (a *SubmissionActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		a.deps.Log.Debug("submission actor started", "id", a.numID)

	case *actor.Stopping:
		a.cancelRetry()

	case *SetInfoMsg:
		a.handleSetInfo(context, msg)

	case *AddCommentsMsg:
		a.pending = append(a.pending, msg.Comments...)
		if a.inflight == nil {
			context.Send(context.Self(), &processNextMsg{})
		}

	case *processNextMsg:
		if a.inflight == nil && len(a.pending) > 0 {
			a.startNext(context)
		}

	case *hintRetryMsg:
		a.retryCancel = nil
		if a.inflight != nil {
			a.purify(context)
		}
	}
}

func (a *SubmissionActor) handleSetInfo(context actor.Context, msg *SetInfoMsg) {
	a.sub = msg.Sub
	context.Send(context.Parent(), &StatusUpdateMsg{
		ID:        a.numID,
		Sub:       a.sub,
		Taxa:      a.answer.Taxa(),
		Reviewers: a.answer.Reviewers(),
	})
}

func (a *SubmissionActor) startNext(context actor.Context) {
	comment := a.pending[0]
	a.pending = a.pending[1:]

	if claims.IsRemoval(comment.Body) && a.deps.Roster.IsReviewer(comment.Author) {
		a.deps.Log.Info("authorized removal comment", "submission", a.numID, "by", comment.Author)
		context.Send(context.Parent(), &ShelveSubmissionMsg{ID: a.numID})
		return
	}
	if comment.SubmissionAuthor == removedAuthorName {
		context.Send(context.Parent(), &ShelveSubmissionMsg{ID: a.numID})
		return
	}

	start := time.Now()
	extract := a.deps.Extractor.Extract(comment)
	a.deps.Metrics.AddOperationLatency("extract_comment", time.Since(start))

	if extract.IsEmpty() {
		a.next(context)
		return
	}
	a.inflight = &purifyState{comment: comment, extract: capHints(extract)}
	a.purify(context)
}

// purify drives the bounded hint loop. External lookup failures back off for
// about a minute; after the retry limit the remaining hints are abandoned and
// whatever was purified so far is committed.
func (a *SubmissionActor) purify(context actor.Context) {
	for !a.inflight.extract.Resolved() {
		ex, err := a.deps.Resolver.PurifyOne(stdctx.Background(), a.inflight.extract)
		if err != nil {
			a.inflight.retries++
			if a.inflight.retries > maxHintRetries {
				a.deps.Log.Warn("abandoning unresolved hints",
					"submission", a.numID, "comment", a.inflight.comment.ID,
					"remaining", a.inflight.extract.HintCount(), "err", err)
				break
			}
			a.scheduleRetry(context)
			return
		}
		a.inflight.extract = ex
	}
	a.commit(context)
}

func (a *SubmissionActor) commit(context actor.Context) {
	motion := a.inflight.extract.Motion
	a.inflight = nil

	significant := false
	switch m := motion.(type) {
	case models.Review:
		significant = a.answer.ReviewSignificant(m)
	case models.Suggestion:
		significant = a.answer.SuggestionSignificant(m)
	}

	if !motion.Empty() || significant {
		a.answer.Apply(motion)
		a.motions = append(a.motions, motion)
	}
	if significant {
		a.emitStatus(context)
	}
	a.next(context)
}

func (a *SubmissionActor) emitStatus(context actor.Context) {
	taxa := a.answer.Taxa()
	reviewers := a.answer.Reviewers()

	context.Send(context.Parent(), &StatusUpdateMsg{
		ID: a.numID, Sub: a.sub, Taxa: taxa, Reviewers: reviewers,
	})

	if len(taxa) > 0 {
		context.Send(a.publisherPID, &QueueAnswerMsg{
			SubNumID:     a.numID,
			SubmissionID: models.Base36ID(a.numID),
			Taxa:         taxa,
			Reviewers:    reviewers,
		})
	}

	// Fire-and-forget mirror write; the guarded vault never lets a store
	// failure propagate.
	ordinals := make([]int, 0, len(taxa))
	for _, code := range taxa {
		if ord := a.deps.Tax.Ordinal(code); ord >= 0 {
			ordinals = append(ordinals, ord)
		}
	}
	store, id := a.deps.Vault, a.numID
	go func() {
		if len(ordinals) == 0 {
			_ = store.DeleteObservations(stdctx.Background(), id)
			return
		}
		_ = store.AssignObservations(stdctx.Background(), id, ordinals)
	}()
}

func (a *SubmissionActor) next(context actor.Context) {
	if len(a.pending) > 0 {
		context.Send(context.Self(), &processNextMsg{})
	}
}

func (a *SubmissionActor) scheduleRetry(context actor.Context) {
	a.cancelRetry()
	delay := jitter(hintRetryBackoff, rand.Float64())
	a.retryCancel = scheduler.NewTimerScheduler(context).SendOnce(delay, context.Self(), &hintRetryMsg{})
	a.deps.Log.Debug("hint lookup failed, backing off",
		"submission", a.numID, "delay", delay)
}

func (a *SubmissionActor) cancelRetry() {
	if a.retryCancel != nil {
		a.retryCancel()
		a.retryCancel = nil
	}
}

// capHints enforces the per-comment hint budget, plain hints first.
func capHints(ex models.Extract) models.Extract {
	budget := hints.MaxHintsPerComment
	if len(ex.Hints) > budget {
		ex.Hints = ex.Hints[:budget]
	}
	budget -= len(ex.Hints)
	if len(ex.VagueHints) > budget {
		ex.VagueHints = ex.VagueHints[:budget]
	}
	return ex
}

// vaultStatus classifies a consensus for the mirrored status column.
func vaultStatus(taxa, reviewers []string) string {
	switch {
	case len(reviewers) > 0:
		return vault.StatusReviewed
	case len(taxa) > 0:
		return vault.StatusSuggested
	default:
		return vault.StatusUnanswered
	}
}
