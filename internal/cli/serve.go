package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Leganyst/table-booking/internal/config"
	"github.com/Leganyst/table-booking/internal/events"
	"github.com/Leganyst/table-booking/internal/model"
	"github.com/Leganyst/table-booking/internal/obs"
	"github.com/Leganyst/table-booking/internal/repository"
	"github.com/Leganyst/table-booking/internal/service"
	grpcapi "github.com/Leganyst/table-booking/internal/transport/grpcapi"
	httpapi "github.com/Leganyst/table-booking/internal/transport/httpapi"
)

const shutdownTimeout = 10 * time.Second

func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, newLogger(os.Stdout, cfg))
		},
	}
}

func serve(ctx context.Context, cfg *config.App, log *slog.Logger) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.OTLPEndpoint, cfg.Env)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	gdb, closeDB, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := model.AutoMigrate(gdb); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	availability, closeCache := openCache(ctx, cfg, log)
	defer closeCache()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitURL != "" {
		p, err := events.NewAMQPPublisher(cfg.RabbitURL, cfg.BookingExchange)
		if err != nil {
			return fmt.Errorf("init publisher: %w", err)
		}
		defer p.Close()
		publisher = p
	}

	ledger := service.NewLedger(
		repository.NewGormRestaurantRepository(gdb),
		repository.NewGormBookingRepository(gdb),
		service.Options{
			StepMinutes:     cfg.SlotStepMinutes,
			MaxAlternatives: cfg.MaxAlternatives,
			Cache:           availability,
			Publisher:       publisher,
			Logger:          log,
		},
	)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	secret := []byte(cfg.JWTSecret)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(ledger, secret, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	grpcSrv := grpcapi.NewServer(ledger, secret, log)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPCAddr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("grpc server listening", slog.String("addr", cfg.GRPCAddr))
		if err := grpcSrv.Serve(lis); err != nil {
			return fmt.Errorf("grpc serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcSrv.GracefulStop()
		return httpSrv.Shutdown(sctx)
	})

	return g.Wait()
}
