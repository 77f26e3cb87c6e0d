package actors

import (
	"time"

	"bird-board/internal/models"
)

// Message types for the registry actor
type (
	// RegisterSubmissionMsg puts a submission in the live set (unless
	// shelved) and delivers its info to the per-submission actor, spawning
	// one if needed.
	RegisterSubmissionMsg struct {
		Sub models.Submission
	}

	// SeedSubmissionMsg is the coalesce variant: info plus the ordered
	// backfill comment batch, delivered before the agents start.
	SeedSubmissionMsg struct {
		Sub      models.Submission
		Comments []models.Comment
	}

	// RouteCommentMsg asks the registry to route one fetched comment.
	// The registry responds with a RouteOutcome.
	RouteCommentMsg struct {
		Comment models.Comment
	}

	// ShelveSubmissionMsg moves a submission out of the active set while
	// keeping it recognizable for trailing comments.
	ShelveSubmissionMsg struct {
		ID int64
	}

	// ExpireTickMsg prompts the registry to drop everything that has aged
	// out of the lookback window.
	ExpireTickMsg struct{}

	// StatusUpdateMsg is a submission actor reporting its merged info and
	// current consensus.
	StatusUpdateMsg struct {
		ID        int64
		Sub       models.Submission
		Taxa      []string
		Reviewers []string
	}

	// GetIDSetsMsg asks for the read-only consensus id sets.
	GetIDSetsMsg struct{}

	// IDSets is the response: every live submission bucketed by consensus
	// progress.
	IDSets struct {
		Unanswered []int64
		Unreviewed []int64
		Answered   []int64
		Reviewed   []int64
	}

	// GetUnansweredMsg asks for the unanswered listing rows, newest first.
	GetUnansweredMsg struct{}

	// UnansweredRow feeds the HTML listing.
	UnansweredRow struct {
		ID        string
		Title     string
		Flair     string
		Thumbnail string
		CreatedAt int64
	}

	GetCountsMsg struct{}

	// RegistryCounts is the health-surface response.
	RegistryCounts struct {
		Active  int
		Shelved int
	}
)

// RouteOutcome says what the registry did with a routed comment.
type RouteOutcome int

const (
	// RouteDelivered: the comment went to an existing submission actor.
	RouteDelivered RouteOutcome = iota
	// RouteDeliveredNew: delivered to a provisionally registered submission;
	// the submissions agent should be preempted to fetch its info.
	RouteDeliveredNew
	// RouteIgnoredShelved: the submission is shelved; drop silently.
	RouteIgnoredShelved
	// RouteIgnoredStale: older than every known submission, a potential
	// coverage gap; logged, not fatal.
	RouteIgnoredStale
)

// Message types for submission actors
type (
	SetInfoMsg struct {
		Sub models.Submission
	}

	AddCommentsMsg struct {
		Comments []models.Comment
	}

	processNextMsg struct{}

	hintRetryMsg struct{}
)

// Message types for the publisher actor
type (
	// QueueAnswerMsg queues a consensus for publication (create or edit).
	QueueAnswerMsg struct {
		SubNumID     int64
		SubmissionID string
		Taxa         []string
		Reviewers    []string
	}

	// OwnCommentMsg is a comment authored by the publishing identity,
	// observed in the normal fetch stream; the publisher reconciles it
	// against its own records.
	OwnCommentMsg struct {
		Comment models.Comment
	}

	// SubmissionShelvedMsg drops pending work and deletes the published
	// comment, if any.
	SubmissionShelvedMsg struct {
		SubNumID int64
	}

	// SubmissionExpiredMsg drops queue and record state without deleting
	// the comment; the submission aged out of scope, not out of existence.
	SubmissionExpiredMsg struct {
		SubNumID int64
	}

	drainMsg struct{}

	// GetPublisherStatsMsg reports queue depth for the health surface.
	GetPublisherStatsMsg struct{}

	PublisherStats struct {
		PendingAnswers   int
		PendingDeletions int
		PublishedRecords int
	}
)

// Message types for the fetch agents
type (
	// StartAgentMsg arms an agent's timer with its initial bookmark.
	StartAgentMsg struct {
		Bookmark string
	}

	// FetchNowMsg preempts the agent's schedule immediately.
	FetchNowMsg struct{}

	fetchTickMsg struct{}
)

// jitter spreads a fixed delay by ±10% so pollers drift apart.
func jitter(d time.Duration, f float64) time.Duration {
	spread := float64(d) * 0.1
	return d + time.Duration((f*2-1)*spread)
}
