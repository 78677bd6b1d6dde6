package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

// ClusterConfig describes both targets.  An empty Replica.Host means the
// primary also serves reads.
type ClusterConfig struct {
	Primary Target
	Replica Target
	Pool    Pool
}

// RetryPolicy bounds the startup wait.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// StartupError is returned when the cluster never became ready.
type StartupError struct {
	Attempts int
	Last     error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("database not ready after %d attempt(s): %v", e.Attempts, e.Last)
}

func (e *StartupError) Unwrap() error { return e.Last }

// PrepareFunc runs on the primary once it answers, before the replica is
// checked.  Migrate is the usual choice.
type PrepareFunc func(ctx context.Context, primary *sql.DB) error

type opener func(Target, Pool) (*sql.DB, error)

const replicaCheck = "SELECT 1 FROM Rooms LIMIT 1"

// Connect opens both pools and waits until the primary answers, prepare
// succeeds and the replica can see the schema.  Transient failures are
// retried per policy; anything else aborts immediately.
func Connect(ctx context.Context, cfg ClusterConfig, policy RetryPolicy, prepare PrepareFunc, log *logrus.Logger) (*Cluster, error) {
	return connect(ctx, cfg, policy, prepare, log, Open)
}

func connect(ctx context.Context, cfg ClusterConfig, policy RetryPolicy, prepare PrepareFunc, log *logrus.Logger, open opener) (*Cluster, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		cl, err := tryConnect(ctx, cfg, prepare, log, open)
		if err == nil {
			log.WithField("attempt", attempt).Info("database cluster ready")
			return cl, nil
		}
		last = err
		if !errors.Is(err, ErrStorageUnavailable) {
			return nil, &StartupError{Attempts: attempt, Last: err}
		}
		log.WithFields(logrus.Fields{
			"attempt":  attempt,
			"attempts": attempts,
			"error":    err.Error(),
		}).Warn("database not ready, retrying")
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, &StartupError{Attempts: attempt, Last: ctx.Err()}
		case <-time.After(policy.Backoff):
		}
	}
	return nil, &StartupError{Attempts: attempts, Last: last}
}

func tryConnect(ctx context.Context, cfg ClusterConfig, prepare PrepareFunc, log *logrus.Logger, open opener) (cl *Cluster, err error) {
	primary, err := open(cfg.Primary, cfg.Pool)
	if err != nil {
		return nil, err
	}
	replica := primary
	if cfg.Replica.Host != "" {
		if replica, err = open(cfg.Replica, cfg.Pool); err != nil {
			primary.Close()
			return nil, err
		}
	}
	defer func() {
		if err != nil {
			primary.Close()
			if replica != primary {
				replica.Close()
			}
		}
	}()

	if err := primary.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("primary: %w", classify(err))
	}
	if prepare != nil {
		if err := prepare(ctx, primary); err != nil {
			return nil, fmt.Errorf("prepare: %w", classify(err))
		}
	}
	if err := replica.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("replica: %w", classify(err))
	}
	var one int
	if err := replica.QueryRowContext(ctx, replicaCheck).Scan(&one); err != nil && !errors.Is(err, sql.ErrNoRows) {
		// The replica has not replayed the schema yet.
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == errNoSuchTable {
			return nil, fmt.Errorf("replica: %w", unavailable(err))
		}
		return nil, fmt.Errorf("replica: %w", classify(err))
	}
	return NewCluster(primary, replica, log), nil
}
