// Package engine wires the actor pipeline together: the registry and its
// per-submission actors, the publisher, the two fetch agents, and the cold
// start coalesce that seeds them.
package engine

import (
	"context"

	"github.com/asynkron/protoactor-go/actor"

	"bird-board/internal/engine/actors"
)

type Engine struct {
	system *actor.ActorSystem
	deps   *actors.Deps

	publisherPID   *actor.PID
	registryPID    *actor.PID
	submissionsPID *actor.PID
	commentsPID    *actor.PID
}

func NewEngine(system *actor.ActorSystem, deps *actors.Deps) *Engine {
	e := &Engine{system: system, deps: deps}
	root := system.Root

	e.publisherPID = root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewPublisherActor(deps)
	}))
	e.registryPID = root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewRegistryActor(deps, e.publisherPID)
	}))
	e.submissionsPID = root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewSubmissionsAgent(deps, e.registryPID)
	}))
	e.commentsPID = root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return actors.NewCommentsAgent(deps, e.registryPID, e.publisherPID, e.submissionsPID)
	}))
	return e
}

// Bootstrap runs the coalesce backfill, seeds the registry and publisher
// from its result, and starts the fetch agents at the recovered bookmarks.
func (e *Engine) Bootstrap(ctx context.Context) error {
	co := &Coalescer{
		Log:      e.deps.Log,
		Reader:   e.deps.Reader,
		Roster:   e.deps.Roster,
		BotUser:  e.deps.BotUser,
		Lookback: e.deps.Lookback,
		PageSize: e.deps.PageSize,
	}
	res, err := co.Run(ctx)
	if err != nil {
		return err
	}

	if len(res.Shelved) > 0 {
		ids := make([]int64, 0, len(res.Shelved))
		for _, sub := range res.Shelved {
			e.deps.Live.PutActive(sub, 0)
			e.deps.Live.Shelve(sub.NumID)
			ids = append(ids, sub.NumID)
		}
		if err := e.deps.Vault.DeleteSubmissions(ctx, ids); err != nil {
			e.deps.Log.Warn("vault cleanup of shelved submissions failed", "error", err)
		}
	}

	root := e.system.Root
	for _, batch := range res.Batches {
		root.Send(e.registryPID, &actors.SeedSubmissionMsg{Sub: batch.Sub, Comments: batch.Comments})
	}
	for _, c := range res.OwnComments {
		root.Send(e.publisherPID, &actors.OwnCommentMsg{Comment: c})
	}

	root.Send(e.commentsPID, &actors.StartAgentMsg{Bookmark: res.Bookmark})
	root.Send(e.submissionsPID, &actors.StartAgentMsg{Bookmark: res.SubmissionBookmark})
	return nil
}

// Preempt pulls both fetch agents forward immediately.
func (e *Engine) Preempt() {
	e.system.Root.Send(e.commentsPID, &actors.FetchNowMsg{})
	e.system.Root.Send(e.submissionsPID, &actors.FetchNowMsg{})
}

func (e *Engine) System() *actor.ActorSystem { return e.system }
func (e *Engine) RegistryPID() *actor.PID    { return e.registryPID }
func (e *Engine) PublisherPID() *actor.PID   { return e.publisherPID }
