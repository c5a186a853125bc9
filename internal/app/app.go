package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sharetube/synctube/internal/api"
	"github.com/sharetube/synctube/internal/player"
	"github.com/sharetube/synctube/internal/player/sim"
	"github.com/sharetube/synctube/internal/protocol"
	journal "github.com/sharetube/synctube/internal/repository/redis"
	"github.com/sharetube/synctube/internal/session"
	"github.com/sharetube/synctube/internal/status"
	"github.com/sharetube/synctube/internal/transport"
	"github.com/sharetube/synctube/pkg/ctxlogger"
	"github.com/sharetube/synctube/pkg/redisclient"
	"github.com/sharetube/synctube/pkg/ytvideodata"
)

type AppConfig struct {
	ServerURL      string        `json:"server_url"`
	RoomID         string        `json:"room_id"`
	CreateRoom     bool          `json:"create_room"`
	DisplayName    string        `json:"display_name"`
	StatusHost     string        `json:"status_host"`
	StatusPort     int           `json:"status_port"`
	LogLevel       string        `json:"log_level"`
	LogBackend     string        `json:"log_backend"`
	ReconnectDelay time.Duration `json:"reconnect_delay"`
	ReportInterval time.Duration `json:"report_interval"`
	LoadTimeout    time.Duration `json:"load_timeout"`
	DriftThreshold float64       `json:"drift_threshold"`
	RedisHost      string        `json:"redis_host"`
	RedisPort      int           `json:"redis_port"`
	RedisPassword  string        `json:"-"`
	JournalTTL     time.Duration `json:"journal_ttl"`
}

func (cfg *AppConfig) Validate() error {
	if err := protocol.Validate(protocol.Join{DisplayName: cfg.DisplayName}); err != nil {
		return fmt.Errorf("display name must be 1 to %d characters", protocol.MaxDisplayNameLength)
	}
	u, err := url.Parse(cfg.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server url must be an absolute http(s) url")
	}
	if cfg.RoomID == "" && !cfg.CreateRoom {
		return errors.New("room id is required unless a room is created")
	}
	if cfg.StatusPort < 0 || cfg.StatusPort > 65535 {
		return fmt.Errorf("status port must be between 0 and 65535")
	}
	if cfg.LogBackend != logBackendStd && cfg.LogBackend != logBackendZap {
		return fmt.Errorf("log backend must be %q or %q", logBackendStd, logBackendZap)
	}
	if cfg.ReconnectDelay <= 0 || cfg.ReportInterval <= 0 || cfg.LoadTimeout <= 0 {
		return errors.New("reconnect delay, report interval and load timeout must be positive")
	}
	if cfg.DriftThreshold <= 0 {
		return errors.New("drift threshold must be greater than 0")
	}
	if cfg.RedisHost != "" && (cfg.RedisPort < 1 || cfg.RedisPort > 65535) {
		return fmt.Errorf("redis port must be between 1 and 65535")
	}
	return nil
}

// Run joins the room as a headless participant and serves the status surface
// until ctx is done or a termination signal arrives.
func Run(ctx context.Context, cfg *AppConfig) error {
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sig)
	go func() {
		select {
		case <-sig:
			cancel()
		case <-ctx.Done():
		}
	}()

	apiClient, err := api.New(cfg.ServerURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create api client: %w", err)
	}

	roomID, err := resolveRoom(ctx, apiClient, cfg)
	if err != nil {
		return err
	}
	ctx = ctxlogger.AppendCtx(ctx, slog.String("room_id", roomID))

	sessionID := uuid.NewString()
	var observer session.Observer
	if cfg.RedisHost != "" {
		rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis client: %w", err)
		}
		defer rc.Close()

		repo, err := journal.NewRepo(ctx, rc, &journal.Config{TTL: cfg.JournalTTL}, logger)
		if err != nil {
			return fmt.Errorf("failed to create journal: %w", err)
		}
		j := journal.NewJournal(repo, sessionID, cfg.DisplayName, logger)
		go j.Run(ctx)
		observer = j
	}

	iframeAPI := &sim.IFrameAPI{
		LoadDelay:       100 * time.Millisecond,
		ReadyDelay:      50 * time.Millisecond,
		DefaultDuration: 600,
	}
	library := player.NewLibrary(iframeAPI.Load)
	mediaElement := sim.NewMediaElement(600)
	defer mediaElement.Close()

	playerCfg := player.DefaultConfig()
	playerCfg.DriftThreshold = cfg.DriftThreshold
	playerCfg.LoadTimeout = cfg.LoadTimeout

	sess := session.New(&session.Params{
		ID: sessionID,
		Config: session.Config{
			ReportInterval: cfg.ReportInterval,
			Transport: transport.Config{
				URL:            apiClient.WSURL(roomID),
				ReconnectDelay: cfg.ReconnectDelay,
			},
			Player: playerCfg,
		},
		Dialer: transport.NewWSDialer(10*time.Second, nil),
		Backends: func(sink player.EventSink) []player.Backend {
			return []player.Backend{
				player.NewEmbedded(library, iframeAPI, sink),
				player.NewDirect(mediaElement, sink, logger),
			}
		},
		Observer: observer,
		Metadata: ytvideodata.DefaultClient,
		Logger:   logger,
	})

	sessionDone := make(chan error, 1)
	go func() {
		sessionDone <- sess.Run(ctx)
	}()
	go logNotices(ctx, logger, sess.Notices())

	if err := sess.Join(ctx, cfg.DisplayName); err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.StatusHost, cfg.StatusPort),
		Handler: status.NewServer(sess, logger).GetMux(),
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "starting status server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		cancel()
		<-sessionDone
		return fmt.Errorf("status server failed: %w", err)
	}

	// graceful shutdown
	shutdownCtx, c := context.WithTimeout(context.Background(), 30*time.Second)
	defer c()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WarnContext(shutdownCtx, "failed to shut down status server", "error", err)
	}

	select {
	case <-sessionDone:
	case <-shutdownCtx.Done():
		return errors.New("graceful shutdown timed out")
	}

	return nil
}

func resolveRoom(ctx context.Context, c *api.Client, cfg *AppConfig) (string, error) {
	if cfg.CreateRoom {
		roomID, err := c.CreateRoom(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to create room: %w", err)
		}
		return roomID, nil
	}

	if _, err := c.CheckRoom(ctx, cfg.RoomID); err != nil {
		return "", fmt.Errorf("failed to check room %s: %w", cfg.RoomID, err)
	}

	return cfg.RoomID, nil
}

func logNotices(ctx context.Context, logger *slog.Logger, notices <-chan session.Notice) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-notices:
			logger.WarnContext(ctx, "room notice", "code", n.Code, "message", n.Message)
		}
	}
}
