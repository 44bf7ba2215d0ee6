package website

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/opsportal/portal/src/attachments"
	"github.com/opsportal/portal/src/auth"
	"github.com/opsportal/portal/src/config"
	"github.com/opsportal/portal/src/db"
	"github.com/opsportal/portal/src/jobs"
	"github.com/opsportal/portal/src/logging"
	"github.com/opsportal/portal/src/objectstore"
	"github.com/opsportal/portal/src/oops"
	"github.com/opsportal/portal/src/portalurl"
	"github.com/opsportal/portal/src/ratelimit"
	"github.com/spf13/cobra"
)

var configPath string

var WebsiteCommand = &cobra.Command{
	Use:   "portal",
	Short: "Run the ops portal chat service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return oops.New(err, "failed to load config")
		}
		config.Config = cfg
		logging.Init(cfg.LogLevel, cfg.LogFormat)
		portalurl.SetGlobalBaseUrl(cfg.BaseUrl)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logging.LogPanics(nil)
		return serve(cmd.Context())
	},
}

func init() {
	WebsiteCommand.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (default ./portal.toml if present)")
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logging.Info().Str("env", string(config.Config.Env)).Msg("Starting the portal")

	if config.Config.Auth.JWTSecret == "" {
		return oops.New(nil, "auth.jwt_secret must be set")
	}

	conn := db.NewConnPool()
	defer conn.Close()
	if err := db.WaitForConnection(ctx, conn, 10); err != nil {
		return err
	}

	store, err := objectstore.New(config.Config.ObjectStore)
	if err != nil {
		return oops.New(err, "failed to set up object store")
	}

	var limiter *ratelimit.Limiter
	if config.Config.RateLimit.Requests > 0 {
		rdb := ratelimit.NewRedisClient(config.Config.Redis)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			// The limiter fails open, so a missing Redis only costs us limiting.
			logging.Warn().Err(err).Str("addr", config.Config.Redis.Addr).Msg("Redis is not reachable; rate limits will not be enforced until it is")
		}
		limiter = ratelimit.NewLimiter(rdb, config.Config.RateLimit.Requests, config.Config.RateLimit.Window)
	}

	var wg sync.WaitGroup

	// Start background jobs
	wg.Add(1)
	backgroundJobs := jobs.Jobs{
		MonitorPoolStats(conn, 15*time.Second),
	}

	// Create HTTP server
	wg.Add(1)
	server := http.Server{
		Addr: config.Config.Addr,
		Handler: NewWebsiteRoutes(Deps{
			Conn:         conn,
			Authenticate: TokenAuthenticator(auth.NewTokenVerifier(config.Config.Auth.JWTSecret), config.Config.Auth.CookieName),
			Store:        store,
			Gateway: &attachments.Gateway{
				Lookup: attachments.DBLookup{Conn: conn},
				Store:  store,
			},
			Limiter: limiter,
		}),
	}
	go func() {
		logging.Info().Str("addr", config.Config.Addr).Msg("Serving the portal")
		serverErr := server.ListenAndServe()
		if !errors.Is(serverErr, http.ErrServerClosed) {
			logging.Error().Err(serverErr).Msg("Server shut down unexpectedly")
		}
		// The wg.Done() happens in the shutdown logic below.
	}()

	// Metrics and pprof. We don't bother to gracefully shut this down.
	go func() {
		logging.Info().Str("addr", config.Config.PrivateAddr).Msg("Serving metrics")
		err := http.ListenAndServe(config.Config.PrivateAddr, NewPrivateMux())
		logging.Error().Err(err).Msg("Private server shut down")
	}()

	// Wait for a signal in the background and trigger graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals // First signal (start shutdown)
		logging.Info().Msg("Shutting down the portal")

		const timeout = 10 * time.Second

		go func() {
			logging.Info().Msg("Shutting down background jobs...")
			unfinished := backgroundJobs.CancelAndWait(timeout)
			if len(unfinished) == 0 {
				logging.Info().Msg("Background jobs closed gracefully")
			} else {
				logging.Warn().Strs("Unfinished", unfinished).Msg("Background jobs did not finish by the deadline")
			}
			wg.Done()
		}()

		// Gracefully shut down the HTTP server
		go func() {
			timeoutCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			err := server.Shutdown(timeoutCtx)
			if err != nil {
				logging.Warn().Err(err).Msg("Server did not shut down gracefully")
			}
			wg.Done()
		}()

		<-signals // Second signal (force quit)
		logging.Warn().Strs("Unfinished background jobs", backgroundJobs.ListUnfinished()).Msg("Forcibly killed the portal")
		os.Exit(1)
	}()

	// Wait for all of the above to finish, then exit
	wg.Wait()
	return nil
}
