package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"carehub/internal/audit"
	"carehub/internal/identity/lockout"
	identitymodels "carehub/internal/identity/models"
	identitysvc "carehub/internal/identity/service"
	sessionstore "carehub/internal/identity/store/session"
	userstore "carehub/internal/identity/store/user"
	"carehub/internal/notify"
	"carehub/internal/platform/config"
	"carehub/internal/platform/db"
	"carehub/internal/platform/httpserver"
	"carehub/internal/platform/logger"
	"carehub/internal/platform/metrics"
	redisclient "carehub/internal/platform/redis"
	"carehub/internal/policy"
	"carehub/internal/provider"
	"carehub/internal/registration"
	"carehub/internal/storage"
	"carehub/internal/token"
	httptransport "carehub/internal/transport/http"
)

const (
	auditBuffer  = 256
	notifyBuffer = 64
)

// main wires configuration, stores, services and the HTTP router, then runs
// the server until a termination signal. Every backend is optional: without
// Postgres, Redis or object storage configured the process runs entirely on
// in-memory implementations, which is the dev and test mode.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	checks := map[string]httptransport.Health{}

	var gdb *gorm.DB
	if cfg.DB.Host != "" {
		var err error
		gdb, err = db.Open(cfg.DB)
		if err != nil {
			return err
		}
		if err := gdb.AutoMigrate(
			&identitymodels.Identity{},
			&provider.Profile{},
			&provider.Document{},
			&provider.Service{},
			&provider.ScheduleEntry{},
			&audit.Event{},
		); err != nil {
			return err
		}
		checks["database"] = dbHealth{gdb}
		log.Info("postgres connected", "host", cfg.DB.Host, "database", cfg.DB.Name)
	} else {
		log.Warn("no database configured, using in-memory stores")
	}

	rdb, err := redisclient.New(cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		checks["redis"] = redisHealth{rdb}
		log.Info("redis connected")
	} else {
		log.Warn("no redis configured, sessions held in memory")
	}

	var users identitysvc.UserStore
	var profiles registration.ProfileStore
	var auditStore audit.Store
	var profileAdmin httptransport.ProfileAdmin
	var emailLookup policy.EmailLookup
	var businessLookup policy.BusinessEmailLookup
	if gdb != nil {
		ustore := userstore.NewGorm(gdb)
		pstore := provider.NewGorm(gdb)
		users, emailLookup = ustore, ustore
		profiles, profileAdmin, businessLookup = pstore, pstore, pstore
		auditStore = audit.NewGormStore(gdb)
	} else {
		ustore := userstore.New()
		pstore := provider.NewInMemory()
		users, emailLookup = ustore, ustore
		profiles, profileAdmin, businessLookup = pstore, pstore, pstore
		auditStore = audit.NewInMemoryStore()
	}

	var sessions identitysvc.SessionStore
	if rdb != nil {
		sessions = sessionstore.NewRedis(rdb.Client)
	} else {
		sessions = sessionstore.New()
	}

	var objects storage.Gateway
	if cfg.Storage.Endpoint != "" {
		gw, err := storage.NewMinio(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		objects = gw
		log.Info("object storage connected", "endpoint", cfg.Storage.Endpoint, "bucket", cfg.Storage.Bucket)
	} else {
		objects = storage.NewInMemory()
		log.Warn("no object storage configured, blobs held in memory")
	}

	recorder := audit.NewRecorder(auditStore, log, auditBuffer)
	dispatcher := notify.NewDispatcher(notify.NewLogSender(log), log, notifyBuffer)
	go recorder.Run(ctx)
	go dispatcher.Run(ctx)

	pol := policy.New(cfg.AllowedEmailDomains, emailLookup, businessLookup)
	tokens := token.NewService(cfg.JWTSigningKey, "carehub")

	identities := identitysvc.New(users, sessions, pol, tokens, m, recorder, dispatcher, log,
		identitysvc.Config{
			SessionTTL:               cfg.SessionTTL,
			PasswordMinLength:        cfg.PasswordMinLength,
			PasswordMaxLength:        cfg.PasswordMaxLength,
			EmailVerificationEnabled: cfg.EmailVerificationEnabled,
		},
		identitysvc.WithLockout(lockout.New(lockout.DefaultConfig())))

	saga := registration.New(identities, profiles, objects, pol, m, recorder, log,
		registration.Config{
			Bucket:            cfg.Storage.Bucket,
			PasswordMinLength: cfg.PasswordMinLength,
			PasswordMaxLength: cfg.PasswordMaxLength,
		})

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Auth:      httptransport.NewAuthHandler(saga, identities, log),
		Admin:     httptransport.NewAdminHandler(identities, profileAdmin, log),
		Validator: httptransport.SessionValidator{Identities: identities},
		Logger:    log,
		Checks:    checks,
	})

	srv := httpserver.New(cfg.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		stop()
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	// The background workers drain their queues once the signal context ends.
	recorder.Wait()
	dispatcher.Wait()
	return nil
}

type dbHealth struct{ db *gorm.DB }

func (h dbHealth) Healthy() bool {
	sqlDB, err := h.db.DB()
	return err == nil && sqlDB.Ping() == nil
}

type redisHealth struct{ client *redisclient.Client }

func (h redisHealth) Healthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return h.client.Health(ctx) == nil
}
