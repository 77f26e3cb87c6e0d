package actors

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"

	"bird-board/internal/claims"
	"bird-board/internal/hints"
	"bird-board/internal/models"
	"bird-board/internal/registry"
	"bird-board/internal/taxonomy"
	"bird-board/internal/utils"
	"bird-board/internal/vault"
)

// fakeForumWriter records every write the publisher performs.
type fakeForumWriter struct {
	mu          sync.Mutex
	creates     []string // bodies, in order
	createTimes []time.Time
	edits       []string
	deletes     []string
	nextID      int
}

func (f *fakeForumWriter) CreateComment(_ stdctx.Context, submissionID, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, body)
	f.createTimes = append(f.createTimes, time.Now())
	f.nextID++
	return fmt.Sprintf("pub%d", f.nextID), nil
}

func (f *fakeForumWriter) EditComment(_ stdctx.Context, commentID, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, body)
	return nil
}

func (f *fakeForumWriter) DeleteComment(_ stdctx.Context, commentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, commentID)
	return nil
}

func (f *fakeForumWriter) counts() (creates, edits, deletes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates), len(f.edits), len(f.deletes)
}

func (f *fakeForumWriter) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deletes...)
}

// nullSearcher has no external knowledge; only the local index resolves.
type nullSearcher struct{}

func (nullSearcher) SearchScoped(stdctx.Context, taxonomy.Category, string) (string, error) {
	return "", nil
}
func (nullSearcher) SearchAny(stdctx.Context, string) (string, error) { return "", nil }

func newTestDeps(t *testing.T, w *fakeForumWriter) *Deps {
	t.Helper()
	tax, err := taxonomy.LoadFile("")
	assert.NoError(t, err)
	log := slog.Default()
	roster := claims.NewRoster([]string{"revkim"}, nil)
	return &Deps{
		Log:                log,
		Metrics:            utils.NewMetricsCollector(),
		Live:               registry.NewLiveRegistry(),
		Writer:             w,
		Vault:              vault.NewDryVault(log),
		Tax:                tax,
		Extractor:          claims.NewExtractor(tax, roster),
		Roster:             roster,
		Resolver:           hints.NewResolver(tax, hints.NewHintCache(), nullSearcher{}, log),
		BotUser:            "birdbot",
		Lookback:           time.Hour,
		PageSize:           100,
		CommentInterval:    time.Hour,
		SubmissionInterval: time.Hour,
		WriteSpacing:       30 * time.Millisecond,
	}
}

func spawnPublisher(system *actor.ActorSystem, deps *Deps) *actor.PID {
	return system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewPublisherActor(deps)
	}))
}

func publisherStats(t *testing.T, system *actor.ActorSystem, pid *actor.PID) *PublisherStats {
	t.Helper()
	res, err := system.Root.RequestFuture(pid, &GetPublisherStatsMsg{}, time.Second).Result()
	assert.NoError(t, err)
	return res.(*PublisherStats)
}

func TestPublisherCreatesOncePerConsensus(t *testing.T) {
	w := &fakeForumWriter{}
	deps := newTestDeps(t, w)
	system := actor.NewActorSystem()
	pid := spawnPublisher(system, deps)

	msg := &QueueAnswerMsg{SubNumID: 1, SubmissionID: "1", Taxa: []string{"blujay"}}
	system.Root.Send(pid, msg)

	assert.Eventually(t, func() bool {
		c, _, _ := w.counts()
		return c == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Queuing the identical consensus again never reaches the forum.
	system.Root.Send(pid, msg)
	time.Sleep(200 * time.Millisecond)
	c, e, _ := w.counts()
	assert.Equal(t, 1, c)
	assert.Equal(t, 0, e)
	assert.Equal(t, 0, publisherStats(t, system, pid).PendingAnswers)

	// A changed consensus edits the existing comment instead of creating.
	system.Root.Send(pid, &QueueAnswerMsg{SubNumID: 1, SubmissionID: "1", Taxa: []string{"blujay", "rethaw"}})
	assert.Eventually(t, func() bool {
		_, e, _ := w.counts()
		return e == 1
	}, 2*time.Second, 10*time.Millisecond)
	c, _, _ = w.counts()
	assert.Equal(t, 1, c)
}

func TestDrainDelayNeverUndershootsSpacing(t *testing.T) {
	spacing := 10 * time.Second

	// Right after a write, the delay is at least the full spacing no matter
	// what the jitter draw is.
	assert.Equal(t, spacing, drainDelay(0, spacing, 0.0))
	assert.GreaterOrEqual(t, drainDelay(0, spacing, 0.5), spacing)
	assert.LessOrEqual(t, drainDelay(0, spacing, 0.999), spacing+spacing/10)

	// Partway through the spacing only the remainder is waited, stretched
	// by jitter, never shrunk.
	assert.Equal(t, 6*time.Second, drainDelay(4*time.Second, spacing, 0.0))
	assert.GreaterOrEqual(t, drainDelay(4*time.Second, spacing, 0.3), 6*time.Second)

	// Spacing already satisfied: drain on the next beat.
	assert.Equal(t, 20*time.Millisecond, drainDelay(spacing, spacing, 0.5))
	assert.Equal(t, 20*time.Millisecond, drainDelay(time.Hour, spacing, 0.0))
}

func TestPublisherSpacesConsecutiveWrites(t *testing.T) {
	w := &fakeForumWriter{}
	deps := newTestDeps(t, w)
	deps.WriteSpacing = 250 * time.Millisecond
	system := actor.NewActorSystem()
	pid := spawnPublisher(system, deps)

	system.Root.Send(pid, &QueueAnswerMsg{SubNumID: 1, SubmissionID: "1", Taxa: []string{"blujay"}})
	system.Root.Send(pid, &QueueAnswerMsg{SubNumID: 2, SubmissionID: "2", Taxa: []string{"norcar"}})

	assert.Eventually(t, func() bool {
		c, _, _ := w.counts()
		return c == 2
	}, 3*time.Second, 10*time.Millisecond)

	w.mu.Lock()
	gap := w.createTimes[1].Sub(w.createTimes[0])
	w.mu.Unlock()
	assert.GreaterOrEqual(t, gap, deps.WriteSpacing)
}

func TestPublisherAdoptsOwnComment(t *testing.T) {
	w := &fakeForumWriter{}
	deps := newTestDeps(t, w)
	system := actor.NewActorSystem()
	pid := spawnPublisher(system, deps)

	body := RenderAnswerBody([]string{"blujay"}, []string{"revkim"}, deps.Tax)
	system.Root.Send(pid, &OwnCommentMsg{Comment: models.Comment{
		ID: "pub_a", SubmissionID: "1", CreatedAt: 100, Author: "birdbot", Body: body,
	}})

	// The same consensus arriving later is recognized as already published.
	system.Root.Send(pid, &QueueAnswerMsg{
		SubNumID: 1, SubmissionID: "1",
		Taxa: []string{"blujay"}, Reviewers: []string{"revkim"},
	})
	time.Sleep(300 * time.Millisecond)
	c, e, d := w.counts()
	assert.Equal(t, 0, c+e+d)
	assert.Equal(t, 1, publisherStats(t, system, pid).PublishedRecords)
}

func TestPublisherDeletesNewerDuplicate(t *testing.T) {
	w := &fakeForumWriter{}
	deps := newTestDeps(t, w)
	system := actor.NewActorSystem()
	pid := spawnPublisher(system, deps)

	body := RenderAnswerBody([]string{"blujay"}, nil, deps.Tax)
	system.Root.Send(pid, &OwnCommentMsg{Comment: models.Comment{
		ID: "pub_old", SubmissionID: "1", CreatedAt: 100, Author: "birdbot", Body: body,
	}})
	system.Root.Send(pid, &OwnCommentMsg{Comment: models.Comment{
		ID: "pub_new", SubmissionID: "1", CreatedAt: 200, Author: "birdbot", Body: body,
	}})

	assert.Eventually(t, func() bool {
		_, _, d := w.counts()
		return d == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"pub_new"}, w.deletedIDs())
	assert.Equal(t, 1, publisherStats(t, system, pid).PublishedRecords)
}

func TestPublisherShelveDeletesExpireKeeps(t *testing.T) {
	w := &fakeForumWriter{}
	deps := newTestDeps(t, w)
	system := actor.NewActorSystem()
	pid := spawnPublisher(system, deps)

	body := RenderAnswerBody([]string{"blujay"}, nil, deps.Tax)
	system.Root.Send(pid, &OwnCommentMsg{Comment: models.Comment{
		ID: "pub_1", SubmissionID: "1", CreatedAt: 100, Author: "birdbot", Body: body,
	}})
	system.Root.Send(pid, &OwnCommentMsg{Comment: models.Comment{
		ID: "pub_2", SubmissionID: "2", CreatedAt: 100, Author: "birdbot", Body: body,
	}})

	// Expired submissions keep their published comment.
	system.Root.Send(pid, &SubmissionExpiredMsg{SubNumID: 2})
	// Shelved submissions get theirs deleted.
	system.Root.Send(pid, &SubmissionShelvedMsg{SubNumID: 1})

	assert.Eventually(t, func() bool {
		_, _, d := w.counts()
		return d == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"pub_1"}, w.deletedIDs())
	assert.Equal(t, 0, publisherStats(t, system, pid).PublishedRecords)
}

func TestRenderParseRoundTrip(t *testing.T) {
	tax, err := taxonomy.LoadFile("")
	assert.NoError(t, err)

	body := RenderAnswerBody([]string{"blujay", "rethaw"}, []string{"revkim", "revpat"}, tax)
	assert.Contains(t, body, "[Blue Jay](https://ebird.org/species/blujay)")
	assert.Contains(t, body, "[Red-tailed Hawk](https://ebird.org/species/rethaw)")
	assert.Contains(t, body, "u/revkim")

	taxa, reviewers := ParseAnswerBody(body)
	assert.Equal(t, []string{"blujay", "rethaw"}, taxa)
	assert.Equal(t, []string{"revkim", "revpat"}, reviewers)

	taxa, reviewers = ParseAnswerBody("no links here")
	assert.Empty(t, taxa)
	assert.Empty(t, reviewers)

	// Unknown codes render as the code itself but still round-trip.
	body = RenderAnswerBody([]string{"zz123"}, nil, tax)
	assert.True(t, strings.Contains(body, "[zz123](https://ebird.org/species/zz123)"))
}
