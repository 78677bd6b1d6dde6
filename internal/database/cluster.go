package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// Querier is the read surface shared by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WriteResult reports the outcome of a single statement on the primary.
type WriteResult struct {
	InsertedID   uint64
	AffectedRows int64
}

// Cluster routes reads to the replica and writes to the primary.  Reads
// may lag the primary by the replication delay; anything that has to see
// the latest committed state must go through Tx.
type Cluster struct {
	primary *sql.DB
	replica *sql.DB
	breaker *gobreaker.CircuitBreaker
	log     *logrus.Logger
}

// NewCluster wraps already opened pools.  When replica is nil all reads
// are served by the primary.
func NewCluster(primary, replica *sql.DB, log *logrus.Logger) *Cluster {
	if replica == nil {
		replica = primary
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := &Cluster{primary: primary, replica: replica, log: log}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mysql-replica",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Only connectivity failures count against the replica.
		IsSuccessful: func(err error) bool {
			return err == nil || lockContention(err) || !errors.Is(classify(err), ErrStorageUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})
	return c
}

// Primary exposes the write pool for migrations and health checks.
func (c *Cluster) Primary() *sql.DB { return c.primary }

// Replica exposes the read pool.
func (c *Cluster) Replica() *sql.DB { return c.replica }

// Read runs fn against the replica.  Errors returned by fn are
// classified; sql.ErrNoRows passes through untouched.
func (c *Cluster) Read(ctx context.Context, fn func(q Querier) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, fn(c.replica)
	})
	return classify(err)
}

// Write executes a single statement on the primary.
func (c *Cluster) Write(ctx context.Context, query string, args ...any) (WriteResult, error) {
	res, err := c.primary.ExecContext(ctx, query, args...)
	if err != nil {
		return WriteResult{}, classify(err)
	}
	var out WriteResult
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		out.InsertedID = uint64(id)
	}
	if n, err := res.RowsAffected(); err == nil {
		out.AffectedRows = n
	}
	return out, nil
}

// Tx runs fn inside a primary transaction.  The transaction commits only
// when fn returns nil; any error or panic rolls it back.  InnoDB rolls a
// deadlock victim back in full, so fn is run once more in a fresh
// transaction before the error is returned.  fn must therefore not keep
// state across calls other than what it assigns.
func (c *Cluster) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	err := c.tx(ctx, fn)
	if isDeadlock(err) && ctx.Err() == nil {
		c.log.WithError(err).Warn("transaction deadlocked, retrying once")
		err = c.tx(ctx, fn)
	}
	return err
}

func (c *Cluster) tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.primary.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return classify(err)
	}
	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	committed = true
	return nil
}

// Ping checks both targets.
func (c *Cluster) Ping(ctx context.Context) error {
	if err := c.primary.PingContext(ctx); err != nil {
		return classify(err)
	}
	if c.replica != c.primary {
		if err := c.replica.PingContext(ctx); err != nil {
			return classify(err)
		}
	}
	return nil
}

// Close releases both pools.
func (c *Cluster) Close() error {
	var errs []error
	if err := c.primary.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.replica != c.primary {
		if err := c.replica.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
