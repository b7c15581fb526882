package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/warp/leave-ledger/api"
	"github.com/warp/leave-ledger/config"
	"github.com/warp/leave-ledger/events"
	"github.com/warp/leave-ledger/events/kafka"
	"github.com/warp/leave-ledger/leave"
	"github.com/warp/leave-ledger/logger"
	"github.com/warp/leave-ledger/provision"
	"github.com/warp/leave-ledger/store/memory"
	"github.com/warp/leave-ledger/store/postgres"
	"github.com/warp/leave-ledger/store/sqlite"
)

// ledgerBackend is everything a storage driver provides.
type ledgerBackend interface {
	leave.LedgerStore
	provision.Provisioner
	api.EmployeeLister
	io.Closer
}

// app is the wired object graph shared by every command.
type app struct {
	cfg         *config.Config
	log         logger.Logger
	store       ledgerBackend
	publisher   events.Publisher
	redeliverer *events.Redeliverer // nil when events are disabled
	validator   *leave.Validator
	closers     []io.Closer
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return newAppFromConfig(ctx, cfg)
}

func newAppFromConfig(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg: cfg,
		log: logger.NewLogger(cfg.Log.Level),
	}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store)

	a.publisher = events.Nop{}
	if len(cfg.Events.Brokers) > 0 {
		p := kafka.NewPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		a.closers = append(a.closers, p)

		a.redeliverer = events.NewRedeliverer(p, a.log)
		a.redeliverer.Interval = cfg.Events.RetryInterval
		a.redeliverer.Timeout = cfg.Storage.Timeout
		a.publisher = a.redeliverer
	}

	loc, err := cfg.Location()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.validator = leave.NewValidator(a.store, leave.Options{
		Policy:         leave.Policy{RejectRepeatedDates: cfg.Leave.RejectRepeatedDates},
		StorageTimeout: cfg.Storage.Timeout,
		Location:       loc,
		Publisher:      a.publisher,
		Logger:         a.log,
	})
	return a, nil
}

func openStore(ctx context.Context, cfg config.Storage) (ledgerBackend, error) {
	switch cfg.Driver {
	case "sqlite":
		s, err := sqlite.New(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite store: %w", err)
		}
		return s, nil
	case "postgres":
		ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		s, err := postgres.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		return s, nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	if a.redeliverer != nil {
		// One last attempt for events queued during a short-lived command.
		a.redeliverer.RunNow(context.Background())
		a.redeliverer.Stop()
	}

	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
