package actors

import (
	stdctx "context"
	"math/rand"
	"sort"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"

	"bird-board/internal/models"
	"bird-board/internal/vault"
)

const expireCheckInterval = 5 * time.Minute

// RegistryActor owns the live submission set and every per-submission actor.
// All check-then-act routing decisions happen inside its single-threaded
// mailbox, so a comment can never race a shelve or an expiry.
type RegistryActor struct {
	deps         *Deps
	publisherPID *actor.PID

	children map[int64]*actor.PID
	statuses map[int64]*StatusUpdateMsg

	expireCancel scheduler.CancelFunc
}

func NewRegistryActor(deps *Deps, publisherPID *actor.PID) actor.Actor {
	return &RegistryActor{
		deps:         deps,
		publisherPID: publisherPID,
		children:     make(map[int64]*actor.PID),
		statuses:     make(map[int64]*StatusUpdateMsg),
	}
}

func (a *RegistryActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		a.deps.Log.Info("registry actor started")
		a.armExpireTimer(context)

	case *actor.Stopping:
		if a.expireCancel != nil {
			a.expireCancel()
			a.expireCancel = nil
		}

	case *SeedSubmissionMsg:
		a.handleSeed(context, msg)

	case *RegisterSubmissionMsg:
		a.handleRegister(context, msg)

	case *RouteCommentMsg:
		context.Respond(a.route(context, msg.Comment))

	case *ShelveSubmissionMsg:
		a.handleShelve(context, msg.ID)

	case *ExpireTickMsg:
		a.handleExpire(context)
		a.armExpireTimer(context)

	case *StatusUpdateMsg:
		a.handleStatus(msg)

	case *GetIDSetsMsg:
		context.Respond(a.idSets())

	case *GetUnansweredMsg:
		context.Respond(a.unansweredRows())

	case *GetCountsMsg:
		active, shelved := a.deps.Live.Counts()
		context.Respond(&RegistryCounts{Active: active, Shelved: shelved})
	}
}

func (a *RegistryActor) handleSeed(context actor.Context, msg *SeedSubmissionMsg) {
	remaining := msg.Sub.CommentCount - len(msg.Comments)
	if remaining < 0 {
		remaining = 0
	}
	if !a.deps.Live.PutActive(msg.Sub, remaining) {
		return
	}
	pid := a.ensureChild(context, msg.Sub.NumID)
	context.Send(pid, &SetInfoMsg{Sub: msg.Sub})
	if len(msg.Comments) > 0 {
		context.Send(pid, &AddCommentsMsg{Comments: msg.Comments})
	}
}

func (a *RegistryActor) handleRegister(context actor.Context, msg *RegisterSubmissionMsg) {
	if a.deps.Live.IsShelved(msg.Sub.NumID) {
		return
	}
	if msg.Sub.Gone() {
		// Arrived already removed; shelve directly if we were tracking it.
		a.handleShelve(context, msg.Sub.NumID)
		return
	}
	a.deps.Live.PutActive(msg.Sub, 0)
	pid := a.ensureChild(context, msg.Sub.NumID)
	context.Send(pid, &SetInfoMsg{Sub: msg.Sub})
}

// route decides what happens to one fetched comment. Unknown submissions
// that are plausibly new get a provisional registration so their comments
// are not lost while the submissions agent catches up.
func (a *RegistryActor) route(context actor.Context, c models.Comment) RouteOutcome {
	numID := c.SubmissionNumID()

	if a.deps.Live.IsShelved(numID) {
		return RouteIgnoredShelved
	}
	if pid, ok := a.children[numID]; ok {
		a.deps.Live.DecrementRemaining(numID)
		context.Send(pid, &AddCommentsMsg{Comments: []models.Comment{c}})
		return RouteDelivered
	}

	earliest, any := a.deps.Live.Earliest()
	if any && numID < earliest {
		a.deps.Log.Warn("comment older than every live submission, possible coverage gap",
			"comment", c.ID, "submission", c.SubmissionID)
		return RouteIgnoredStale
	}

	// Provably newer than the oldest known submission (or newer than all of
	// them, or the registry is empty): register provisionally and let the
	// preempted submissions agent fill in the info.
	provisional := models.Submission{
		ID:        c.SubmissionID,
		NumID:     numID,
		CreatedAt: c.CreatedAt,
	}
	a.deps.Live.PutActive(provisional, 0)
	pid := a.ensureChild(context, numID)
	context.Send(pid, &AddCommentsMsg{Comments: []models.Comment{c}})
	return RouteDeliveredNew
}

func (a *RegistryActor) handleShelve(context actor.Context, id int64) {
	if !a.deps.Live.Shelve(id) {
		return
	}
	a.deps.Log.Info("submission shelved", "id", id)
	a.stopChild(context, id)
	delete(a.statuses, id)
	context.Send(a.publisherPID, &SubmissionShelvedMsg{SubNumID: id})

	// The mirror drops removed submissions; the cascade clears observations.
	store := a.deps.Vault
	go func() {
		_ = store.DeleteSubmissions(stdctx.Background(), []int64{id})
	}()
}

func (a *RegistryActor) handleExpire(context actor.Context) {
	cutoff := time.Now().Add(-a.deps.Lookback).Unix()
	dropped := a.deps.Live.Expire(cutoff)
	for _, id := range dropped {
		a.stopChild(context, id)
		delete(a.statuses, id)
		// Aged out of scope, not out of existence: publisher state is
		// dropped but the published comment stays up.
		context.Send(a.publisherPID, &SubmissionExpiredMsg{SubNumID: id})
	}
	if len(dropped) > 0 {
		a.deps.Log.Info("expired submissions", "count", len(dropped))
	}
}

func (a *RegistryActor) handleStatus(msg *StatusUpdateMsg) {
	a.statuses[msg.ID] = msg
	a.deps.broadcast(msg)

	if msg.Sub.ID == "" {
		return // provisional, no info to mirror yet
	}
	row := vault.SubmissionRow{
		ID:           msg.ID,
		Location:     msg.Sub.Flair,
		UploadDate:   time.Unix(msg.Sub.CreatedAt, 0).UTC(),
		Karma:        msg.Sub.Score,
		CommentCount: msg.Sub.CommentCount,
		Title:        msg.Sub.Title,
		Status:       vaultStatus(msg.Taxa, msg.Reviewers),
	}
	store := a.deps.Vault
	go func() {
		_ = store.UpsertSubmissions(stdctx.Background(), []vault.SubmissionRow{row})
	}()
}

func (a *RegistryActor) idSets() *IDSets {
	sets := &IDSets{}
	for id, st := range a.statuses {
		if len(st.Taxa) == 0 {
			sets.Unanswered = append(sets.Unanswered, id)
		} else {
			sets.Answered = append(sets.Answered, id)
		}
		if len(st.Reviewers) == 0 {
			sets.Unreviewed = append(sets.Unreviewed, id)
		} else {
			sets.Reviewed = append(sets.Reviewed, id)
		}
	}
	for _, s := range [][]int64{sets.Unanswered, sets.Unreviewed, sets.Answered, sets.Reviewed} {
		sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
	}
	return sets
}

func (a *RegistryActor) unansweredRows() []UnansweredRow {
	var rows []UnansweredRow
	for _, st := range a.statuses {
		if len(st.Taxa) > 0 || st.Sub.ID == "" {
			continue
		}
		rows = append(rows, UnansweredRow{
			ID:        st.Sub.ID,
			Title:     st.Sub.Title,
			Flair:     st.Sub.Flair,
			Thumbnail: st.Sub.Thumbnail,
			CreatedAt: st.Sub.CreatedAt,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt > rows[j].CreatedAt })
	return rows
}

func (a *RegistryActor) ensureChild(context actor.Context, numID int64) *actor.PID {
	if pid, ok := a.children[numID]; ok {
		return pid
	}
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewSubmissionActor(a.deps, numID, a.publisherPID)
	})
	pid := context.Spawn(props)
	a.children[numID] = pid
	return pid
}

func (a *RegistryActor) stopChild(context actor.Context, numID int64) {
	if pid, ok := a.children[numID]; ok {
		context.Stop(pid)
		delete(a.children, numID)
	}
}

func (a *RegistryActor) armExpireTimer(context actor.Context) {
	if a.expireCancel != nil {
		a.expireCancel()
	}
	delay := jitter(expireCheckInterval, rand.Float64())
	a.expireCancel = scheduler.NewTimerScheduler(context).SendOnce(delay, context.Self(), &ExpireTickMsg{})
}
