package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cruisesync/internal/api"
	"cruisesync/internal/auth"
	"cruisesync/internal/bridge"
	"cruisesync/internal/feed"
	"cruisesync/internal/grpcserver"
	"cruisesync/internal/orchestrator"
	"cruisesync/internal/pipeline"
	"cruisesync/internal/store"
	"cruisesync/pkg/database"
	"cruisesync/pkg/utils"
)

func newServeCmd(a *app) *cobra.Command {
	var httpAddr, feedAddr, grpcAddr, driver string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the orchestrator with its HTTP, feed and gRPC endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("http") {
				cfg.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("feed") {
				cfg.FeedAddr = feedAddr
			}
			if cmd.Flags().Changed("grpc") {
				cfg.GRPCAddr = grpcAddr
			}
			if cmd.Flags().Changed("db") {
				cfg.DB.Driver = driver
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			return serve(cmd.Context(), cfg, a.logger)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "HTTP listen address")
	cmd.Flags().StringVar(&feedAddr, "feed", "", "TCP observer feed listen address")
	cmd.Flags().StringVar(&grpcAddr, "grpc", "", "gRPC health listen address")
	cmd.Flags().StringVar(&driver, "db", "", "store driver: sqlite or postgres")
	return cmd
}

func serve(ctx context.Context, cfg utils.Config, logger *zap.Logger) error {
	st, err := openStore(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer st.Close()

	hub := feed.NewHub(logger)
	health := grpcserver.NewServer(logger)
	orch := orchestrator.New(orchestratorConfig(cfg.Session), nil, pipeline.New(st, logger), st,
		orchestrator.Publishers{hub, health}, logger)
	link := bridge.NewLink(orch.Deliver, logger, cfg.Session.AckTimeout)
	orch.SetNavigator(link)

	tokens := tokenService(cfg.Auth)
	router := api.NewRouter(api.Deps{
		Sessions:  orch,
		Store:     st,
		Tokens:    tokens,
		Login:     auth.NewHandler(cfg.Auth.Operators, tokens),
		Extractor: link,
		Hub:       hub,
		Logger:    logger,
	})
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return orch.Run(ctx) })
	g.Go(func() error { return hub.Run(ctx) })
	g.Go(func() error { return feed.NewServer(cfg.FeedAddr, hub, logger).Run(ctx) })
	g.Go(func() error { return health.Run(ctx, cfg.GRPCAddr) })
	g.Go(func() error {
		logger.Info("serve: http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("serve: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("serve: stopped", zap.Error(err))
	return err
}

func openStore(ctx context.Context, cfg utils.DBConfig) (store.Store, error) {
	if cfg.Driver == "postgres" {
		pg, err := store.OpenPostgres(ctx, cfg.DSN, cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}

	dbCfg := database.DefaultConfig()
	if cfg.Path != "" {
		dbCfg.Path = cfg.Path
	}
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, err
	}
	return store.NewSQLite(db), nil
}

func orchestratorConfig(s utils.SessionConfig) orchestrator.Config {
	c := orchestrator.DefaultConfig()
	c.StallTimeout = s.StallTimeout
	c.HardTimeout = s.HardTimeout
	c.AuthTimeout = s.AuthTimeout
	c.MaxBounces = s.MaxBounces
	c.AuthRetries = s.AuthRetries
	c.LogTail = s.LogTail
	for step, target := range s.Targets {
		c.Targets[step] = target
	}
	return c
}

func tokenService(c utils.AuthConfig) auth.TokenService {
	return auth.TokenService{Secret: []byte(c.JWTSecret), Issuer: c.JWTIssuer, Duration: c.JWTDuration}
}
