package actors

import (
	"log/slog"
	"time"

	"bird-board/internal/claims"
	"bird-board/internal/forum"
	"bird-board/internal/hints"
	"bird-board/internal/registry"
	"bird-board/internal/taxonomy"
	"bird-board/internal/utils"
	"bird-board/internal/vault"
)

// StatusBroadcaster pushes consensus status updates to any listening UI.
type StatusBroadcaster interface {
	Broadcast(v any)
}

// Deps bundles the collaborators every actor draws from. Constructed once at
// startup and shared; nothing here is actor-owned mutable state.
type Deps struct {
	Log     *slog.Logger
	Metrics *utils.MetricsCollector

	Live      *registry.LiveRegistry
	Reader    forum.Reader
	Writer    forum.Writer
	Vault     vault.Adapter
	Tax       *taxonomy.Index
	Extractor *claims.Extractor
	Roster    *claims.Roster
	Resolver  *hints.Resolver
	Hub       StatusBroadcaster

	BotUser  string
	Lookback time.Duration
	PageSize int

	CommentInterval    time.Duration
	SubmissionInterval time.Duration
	WriteSpacing       time.Duration
}

// broadcast is nil-safe; tests usually run without a hub.
func (d *Deps) broadcast(v any) {
	if d.Hub != nil {
		d.Hub.Broadcast(v)
	}
}
