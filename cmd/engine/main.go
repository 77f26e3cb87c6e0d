package main

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	gws "github.com/gorilla/websocket"

	"bird-board/internal/claims"
	"bird-board/internal/config"
	"bird-board/internal/engine"
	"bird-board/internal/engine/actors"
	"bird-board/internal/forum"
	"bird-board/internal/hints"
	"bird-board/internal/logging"
	"bird-board/internal/middleware"
	"bird-board/internal/registry"
	"bird-board/internal/taxoapi"
	"bird-board/internal/taxonomy"
	"bird-board/internal/utils"
	"bird-board/internal/vault"
	"bird-board/internal/websocket"
)

const requestTimeout = 5 * time.Second

// Server holds all dependencies
type Server struct {
	system    *actor.ActorSystem
	context   *actor.RootContext
	engine    *engine.Engine
	metrics   *utils.MetricsCollector
	hub       *websocket.Hub
	cfg       *config.Config
	store     vault.Adapter
	live      *registry.LiveRegistry
	hintCache *hints.HintCache
	startedAt time.Time
}

var upgrader = gws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.Setup(cfg.LogLevel)

	tax, err := taxonomy.LoadFile(cfg.Taxonomy.TablePath)
	if err != nil {
		log.Error("taxonomy load failed", "error", err)
		os.Exit(1)
	}
	log.Info("taxonomy loaded", "entries", tax.Len())

	// The vault is best-effort: without a database the engine still runs,
	// logging the SQL it would have executed.
	var store vault.Adapter
	if cfg.Vault.URI != "" {
		pg, err := vault.NewPostgresVault(cfg.Vault.URI, log)
		if err != nil {
			log.Warn("vault unavailable, continuing dry", "error", err)
			store = vault.NewGuarded(nil, log)
		} else {
			store = vault.NewGuarded(pg, log)
		}
	} else {
		store = vault.NewGuarded(nil, log)
	}

	metrics := utils.NewMetricsCollector()
	client := forum.NewClient(cfg.Forum, log)
	roster := claims.NewRoster(cfg.Reviewers, cfg.NonParticipants)
	extractor := claims.NewExtractor(tax, roster)
	api := taxoapi.NewClient(cfg.Taxonomy.APIBase, cfg.Taxonomy.APIKey, log)
	hintCache := hints.NewHintCache()
	resolver := hints.NewResolver(tax, hintCache, api, log)
	live := registry.NewLiveRegistry()
	hub := websocket.NewHub(log)
	go hub.Run()

	deps := &actors.Deps{
		Log:                log,
		Metrics:            metrics,
		Live:               live,
		Reader:             client,
		Writer:             client,
		Vault:              store,
		Tax:                tax,
		Extractor:          extractor,
		Roster:             roster,
		Resolver:           resolver,
		Hub:                hub,
		BotUser:            client.Username(),
		Lookback:           cfg.Pipeline.Lookback,
		PageSize:           cfg.Pipeline.PageSize,
		CommentInterval:    cfg.Pipeline.CommentInterval,
		SubmissionInterval: cfg.Pipeline.SubmissionInterval,
		WriteSpacing:       cfg.Forum.WriteSpacing,
	}

	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, deps)

	server := &Server{
		system:    system,
		context:   system.Root,
		engine:    eng,
		metrics:   metrics,
		hub:       hub,
		cfg:       cfg,
		store:     store,
		live:      live,
		hintCache: hintCache,
		startedAt: time.Now(),
	}

	// Backfill runs in the background so the health surface is reachable
	// while the window rebuilds.
	go func() {
		if err := eng.Bootstrap(context.Background()); err != nil {
			log.Error("bootstrap failed", "error", err)
			os.Exit(1)
		}
		log.Info("bootstrap complete")
	}()

	cors := middleware.DefaultCORSConfig(nil)
	http.HandleFunc("/health", middleware.ApplyCORS(server.handleHealth, cors))
	http.HandleFunc("/unanswered", middleware.ApplyCORS(server.handleUnanswered, cors))
	http.HandleFunc("/ws/status", server.handleStatusStream)
	http.HandleFunc("/agents/preempt", middleware.RequireAdmin(server.handlePreempt, cfg.Server.AdminJWTSecret))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("starting server", "addr", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncrementRequests()

	countsRes, err := s.context.RequestFuture(s.engine.RegistryPID(), &actors.GetCountsMsg{}, requestTimeout).Result()
	if err != nil {
		http.Error(w, "Failed to get registry counts", http.StatusInternalServerError)
		return
	}
	statsRes, err := s.context.RequestFuture(s.engine.PublisherPID(), &actors.GetPublisherStatsMsg{}, requestTimeout).Result()
	if err != nil {
		http.Error(w, "Failed to get publisher stats", http.StatusInternalServerError)
		return
	}

	response := map[string]any{
		"registry":      countsRes.(*actors.RegistryCounts),
		"publisher":     statsRes.(*actors.PublisherStats),
		"hintCacheSize": s.hintCache.Len(),
		"uptimeSeconds": int64(time.Since(s.startedAt).Seconds()),
	}
	if s.cfg.Server.MetricsEnabled {
		response["metrics"] = s.metrics.Snapshot()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

var unansweredTmpl = template.Must(template.New("unanswered").Parse(`<!DOCTYPE html>
<html>
<head><title>Unanswered submissions</title></head>
<body>
<h1>Unanswered submissions</h1>
<ul>
{{range .}}<li><a href="https://redd.it/{{.ID}}">{{.Title}}</a>{{if .Flair}} <em>({{.Flair}})</em>{{end}}</li>
{{end}}</ul>
</body>
</html>
`))

func (s *Server) handleUnanswered(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncrementRequests()

	res, err := s.context.RequestFuture(s.engine.RegistryPID(), &actors.GetUnansweredMsg{}, requestTimeout).Result()
	if err != nil {
		http.Error(w, "Failed to get unanswered listing", http.StatusInternalServerError)
		return
	}
	rows := res.([]actors.UnansweredRow)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := unansweredTmpl.Execute(w, rows); err != nil {
		s.metrics.IncrementErrors()
	}
}

func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &websocket.Client{
		Hub:  s.hub,
		Conn: conn,
		Send: make(chan []byte, 32),
		Log:  slog.Default(),
	}
	s.hub.Register <- client
	go client.WritePump()
	go client.ReadPump()
}

func (s *Server) handlePreempt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.engine.Preempt()
	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintln(w, "fetch agents preempted")
}
