package actors

import (
	"strings"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"

	"bird-board/internal/models"
)

func spawnRegistry(system *actor.ActorSystem, deps *Deps, publisherPID *actor.PID) *actor.PID {
	return system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewRegistryActor(deps, publisherPID)
	}))
}

func routeOutcome(t *testing.T, system *actor.ActorSystem, pid *actor.PID, c models.Comment) RouteOutcome {
	t.Helper()
	res, err := system.Root.RequestFuture(pid, &RouteCommentMsg{Comment: c}, time.Second).Result()
	assert.NoError(t, err)
	return res.(RouteOutcome)
}

func liveSub(numID int64, createdAt int64) models.Submission {
	return models.Submission{
		ID:        models.Base36ID(numID),
		NumID:     numID,
		Title:     "What bird is this?",
		Author:    "op",
		Flair:     "Ohio",
		CreatedAt: createdAt,
	}
}

func liveComment(id string, subNumID int64, author, body string, createdAt int64) models.Comment {
	return models.Comment{
		ID:               id,
		CreatedAt:        createdAt,
		SubmissionID:     models.Base36ID(subNumID),
		Author:           author,
		Body:             body,
		SubmissionAuthor: "op",
	}
}

func TestRegistrySeedPublishesConsensus(t *testing.T) {
	w := &fakeForumWriter{}
	deps := newTestDeps(t, w)
	system := actor.NewActorSystem()
	pubPID := spawnPublisher(system, deps)
	regPID := spawnRegistry(system, deps, pubPID)

	now := time.Now().Unix()
	sub := liveSub(100, now)
	sub.CommentCount = 1
	system.Root.Send(regPID, &SeedSubmissionMsg{
		Sub: sub,
		Comments: []models.Comment{
			liveComment("c1", 100, "alice", "Looks like a +Blue Jay+ to me", now),
		},
	})

	// The claim flows through extraction, consensus, and the publisher.
	assert.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return len(w.creates) == 1 && strings.Contains(w.creates[0], "ebird.org/species/blujay")
	}, 3*time.Second, 10*time.Millisecond)

	res, err := system.Root.RequestFuture(regPID, &GetIDSetsMsg{}, time.Second).Result()
	assert.NoError(t, err)
	sets := res.(*IDSets)
	assert.Equal(t, []int64{100}, sets.Answered)
	assert.Equal(t, []int64{100}, sets.Unreviewed)
	assert.Empty(t, sets.Unanswered)
	assert.Empty(t, sets.Reviewed)

	res, err = system.Root.RequestFuture(regPID, &GetCountsMsg{}, time.Second).Result()
	assert.NoError(t, err)
	counts := res.(*RegistryCounts)
	assert.Equal(t, 1, counts.Active)
	assert.Equal(t, 0, counts.Shelved)
}

func TestRegistryRoutesComments(t *testing.T) {
	w := &fakeForumWriter{}
	deps := newTestDeps(t, w)
	system := actor.NewActorSystem()
	pubPID := spawnPublisher(system, deps)
	regPID := spawnRegistry(system, deps, pubPID)

	now := time.Now().Unix()
	system.Root.Send(regPID, &SeedSubmissionMsg{Sub: liveSub(100, now)})

	// Known submission: delivered to its actor.
	out := routeOutcome(t, system, regPID, liveComment("c1", 100, "alice", "pretty!", now))
	assert.Equal(t, RouteDelivered, out)

	// Unknown but newer: provisional registration, agent preempt requested.
	out = routeOutcome(t, system, regPID, liveComment("c2", 200, "bob", "nice shot", now))
	assert.Equal(t, RouteDeliveredNew, out)
	assert.Contains(t, deps.Live.ActiveIDs(), int64(200))

	// Older than everything live: a coverage gap, dropped with a warning.
	out = routeOutcome(t, system, regPID, liveComment("c3", 50, "carol", "old thread", now))
	assert.Equal(t, RouteIgnoredStale, out)

	// Shelved submissions swallow their trailing comments silently.
	system.Root.Send(regPID, &ShelveSubmissionMsg{ID: 100})
	out = routeOutcome(t, system, regPID, liveComment("c4", 100, "dave", "late reply", now))
	assert.Equal(t, RouteIgnoredShelved, out)
	assert.True(t, deps.Live.IsShelved(100))

	res, err := system.Root.RequestFuture(regPID, &GetCountsMsg{}, time.Second).Result()
	assert.NoError(t, err)
	counts := res.(*RegistryCounts)
	assert.Equal(t, 1, counts.Active)
	assert.Equal(t, 1, counts.Shelved)
}

func TestRegistryReviewerRemovalShelves(t *testing.T) {
	w := &fakeForumWriter{}
	deps := newTestDeps(t, w)
	system := actor.NewActorSystem()
	pubPID := spawnPublisher(system, deps)
	regPID := spawnRegistry(system, deps, pubPID)

	now := time.Now().Unix()
	system.Root.Send(regPID, &SeedSubmissionMsg{Sub: liveSub(100, now)})
	out := routeOutcome(t, system, regPID, liveComment("c1", 100, "revkim", "!remove", now))
	assert.Equal(t, RouteDelivered, out)

	assert.Eventually(t, func() bool {
		return deps.Live.IsShelved(100)
	}, 2*time.Second, 10*time.Millisecond)

	// A removed-author registration shelves the same way.
	system.Root.Send(regPID, &SeedSubmissionMsg{Sub: liveSub(300, now)})
	gone := liveSub(300, now)
	gone.Removed = true
	system.Root.Send(regPID, &RegisterSubmissionMsg{Sub: gone})
	assert.Eventually(t, func() bool {
		return deps.Live.IsShelved(300)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRegistryUnansweredListing(t *testing.T) {
	w := &fakeForumWriter{}
	deps := newTestDeps(t, w)
	system := actor.NewActorSystem()
	pubPID := spawnPublisher(system, deps)
	regPID := spawnRegistry(system, deps, pubPID)

	now := time.Now().Unix()
	answered := liveSub(100, now-100)
	answered.CommentCount = 1
	system.Root.Send(regPID, &SeedSubmissionMsg{
		Sub:      answered,
		Comments: []models.Comment{liveComment("c1", 100, "alice", "+Blue Jay+", now-50)},
	})

	open := liveSub(200, now)
	open.Title = "Mystery warbler"
	system.Root.Send(regPID, &RegisterSubmissionMsg{Sub: open})

	assert.Eventually(t, func() bool {
		res, err := system.Root.RequestFuture(regPID, &GetUnansweredMsg{}, time.Second).Result()
		if err != nil {
			return false
		}
		rows := res.([]UnansweredRow)
		return len(rows) == 1 && rows[0].Title == "Mystery warbler" &&
			rows[0].ID == models.Base36ID(200)
	}, 3*time.Second, 10*time.Millisecond)
}
