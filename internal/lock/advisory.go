// Package lock provides database advisory locks that keep two fdscan runs from
// scanning the same table at once.
package lock

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/dbsmedya/fdscan/internal/logger"
	"github.com/dbsmedya/fdscan/internal/sqlutil"
)

// ErrLockTimeout is returned when lock acquisition times out because
// another instance is holding the lock.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Common timeout values for lock acquisition (in seconds).
const (
	// TimeoutImmediate returns immediately if lock cannot be acquired.
	TimeoutImmediate = 0

	// TimeoutShort is suitable for fast-failing duplicate run detection.
	TimeoutShort = 1

	TimeoutMedium = 10
	TimeoutLong   = 60

	// TimeoutInfinite waits until the lock is acquired or ctx ends.
	TimeoutInfinite = -1
)

// maxLockNameLength is the MySQL limit on GET_LOCK names.
const maxLockNameLength = 64

const defaultPollInterval = 250 * time.Millisecond

// AdvisoryLock is a session-level named lock.
//
// MySQL uses GET_LOCK/RELEASE_LOCK. PostgreSQL uses pg_try_advisory_lock on
// hashtext(name) and polls until the timeout, since the blocking variant has no
// timeout argument. Both are tied to a session, so the lock pins one pooled
// connection from acquire to release.
type AdvisoryLock struct {
	db           *sql.DB
	dialect      sqlutil.Dialect
	lockName     string
	conn         *sql.Conn
	logger       *logger.Logger
	pollInterval time.Duration
}

// NewAdvisoryLock creates a new advisory lock with the given name.
// The lock is not acquired until AcquireLock is called.
func NewAdvisoryLock(db *sql.DB, dialect sqlutil.Dialect, lockName string, log *logger.Logger) *AdvisoryLock {
	if log == nil {
		log = logger.NewNop()
	}
	return &AdvisoryLock{
		db:           db,
		dialect:      dialect,
		lockName:     lockName,
		logger:       log,
		pollInterval: defaultPollInterval,
	}
}

// AcquireLock attempts to acquire the lock, waiting up to timeoutSeconds.
// Returns true if the lock was acquired, false if timeout was reached.
// Returns an error if the database query fails.
func (a *AdvisoryLock) AcquireLock(ctx context.Context, timeoutSeconds int) (bool, error) {
	if a.conn != nil {
		return true, nil
	}

	conn, err := a.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to reserve connection for lock %q: %w", a.lockName, err)
	}

	var acquired bool
	if a.dialect == sqlutil.Postgres {
		acquired, err = a.acquirePostgres(ctx, conn, timeoutSeconds)
	} else {
		acquired, err = a.acquireMySQL(ctx, conn, timeoutSeconds)
	}
	if err != nil || !acquired {
		conn.Close()
		return false, err
	}

	a.conn = conn
	a.logger.Debugf("Acquired advisory lock %q", a.lockName)
	return true, nil
}

// acquireMySQL interprets GET_LOCK: 1 obtained, 0 timed out, NULL error.
func (a *AdvisoryLock) acquireMySQL(ctx context.Context, conn *sql.Conn, timeoutSeconds int) (bool, error) {
	var result sql.NullInt64
	err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", a.lockName, timeoutSeconds).Scan(&result)
	if err != nil {
		return false, fmt.Errorf("failed to execute GET_LOCK: %w", err)
	}
	if !result.Valid {
		return false, fmt.Errorf("GET_LOCK returned NULL for lock %q (possible database error)", a.lockName)
	}

	switch result.Int64 {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected GET_LOCK return value: %d", result.Int64)
	}
}

func (a *AdvisoryLock) acquirePostgres(ctx context.Context, conn *sql.Conn, timeoutSeconds int) (bool, error) {
	var deadline time.Time
	if timeoutSeconds > 0 {
		deadline = time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	}

	for {
		var ok bool
		err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock(hashtext($1))", a.lockName).Scan(&ok)
		if err != nil {
			return false, fmt.Errorf("failed to execute pg_try_advisory_lock: %w", err)
		}
		if ok {
			return true, nil
		}
		if timeoutSeconds == TimeoutImmediate || (!deadline.IsZero() && time.Now().After(deadline)) {
			return false, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(a.pollInterval):
		}
	}
}

// ReleaseLock releases the lock and returns its connection to the pool.
// Returns true if the database confirmed the release, false if the lock was not held.
func (a *AdvisoryLock) ReleaseLock(ctx context.Context) (bool, error) {
	if a.conn == nil {
		return false, nil
	}
	conn := a.conn
	a.conn = nil

	var released bool
	var err error
	if a.dialect == sqlutil.Postgres {
		err = conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock(hashtext($1))", a.lockName).Scan(&released)
		if err != nil {
			err = fmt.Errorf("failed to execute pg_advisory_unlock: %w", err)
		}
	} else {
		var result sql.NullInt64
		err = conn.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", a.lockName).Scan(&result)
		switch {
		case err != nil:
			err = fmt.Errorf("failed to execute RELEASE_LOCK: %w", err)
		case !result.Valid:
			err = fmt.Errorf("RELEASE_LOCK returned NULL for lock %q (lock did not exist)", a.lockName)
		default:
			released = result.Int64 == 1
		}
	}

	if err != nil {
		// A session that may still hold the lock must not go back to the pool.
		_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		conn.Close()
		return false, err
	}

	conn.Close()
	a.logger.Debugf("Released advisory lock %q", a.lockName)
	return released, nil
}

// IsHeld returns true if this lock is currently held by this instance.
func (a *AdvisoryLock) IsHeld() bool {
	return a.conn != nil
}

// LockName returns the name of the advisory lock.
func (a *AdvisoryLock) LockName() string {
	return a.lockName
}

// TryAcquire attempts to acquire the lock without waiting.
func (a *AdvisoryLock) TryAcquire(ctx context.Context) (bool, error) {
	return a.AcquireLock(ctx, TimeoutImmediate)
}

// AcquireOrFail acquires the lock with TimeoutShort, returning ErrLockTimeout if
// another instance holds it.
func (a *AdvisoryLock) AcquireOrFail(ctx context.Context) error {
	acquired, err := a.AcquireLock(ctx, TimeoutShort)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another instance", ErrLockTimeout, a.lockName)
	}
	return nil
}

// GenerateTableLockName creates the lock name for scanning schema.table, in the
// form "fdscan:table:{schema}.{table}". Characters outside [A-Za-z0-9_.-] become
// underscores. Names over 64 bytes are shortened and suffixed with a hash of the
// full name so distinct tables keep distinct locks.
func GenerateTableLockName(schema, table string) string {
	sanitize := func(s string) string {
		return strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
				return r
			}
			return '_'
		}, s)
	}

	name := fmt.Sprintf("fdscan:table:%s.%s", sanitize(schema), sanitize(table))
	if len(name) <= maxLockNameLength {
		return name
	}

	h := fnv.New64a()
	h.Write([]byte(schema))
	h.Write([]byte{0})
	h.Write([]byte(table))
	suffix := fmt.Sprintf("~%016x", h.Sum64())
	return name[:maxLockNameLength-len(suffix)] + suffix
}

// NewTableLock creates the advisory lock guarding discovery on schema.table.
func NewTableLock(db *sql.DB, dialect sqlutil.Dialect, schema, table string, log *logger.Logger) *AdvisoryLock {
	return NewAdvisoryLock(db, dialect, GenerateTableLockName(schema, table), log)
}

// IsTableLocked reports whether another instance is scanning schema.table by
// trying its lock without waiting. The answer can change right after it returns.
func IsTableLocked(ctx context.Context, db *sql.DB, dialect sqlutil.Dialect, schema, table string) (bool, error) {
	lock := NewTableLock(db, dialect, schema, table, nil)

	acquired, err := lock.TryAcquire(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check lock on %s.%s: %w", schema, table, err)
	}
	if acquired {
		if _, err := lock.ReleaseLock(ctx); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// WithLock runs fn while holding the lock and releases it afterwards, even if
// fn panics.
func (a *AdvisoryLock) WithLock(ctx context.Context, timeoutSeconds int, fn func() error) error {
	acquired, err := a.AcquireLock(ctx, timeoutSeconds)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another instance", ErrLockTimeout, a.lockName)
	}

	defer func() {
		// ctx may already be cancelled here.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, releaseErr := a.ReleaseLock(releaseCtx); releaseErr != nil {
			a.logger.Warnf("Failed to release advisory lock %q: %v", a.lockName, releaseErr)
		}
	}()

	return fn()
}

// WithTableLock runs fn while holding the lock for schema.table, failing fast
// with ErrLockTimeout when another run holds it.
func WithTableLock(ctx context.Context, db *sql.DB, dialect sqlutil.Dialect, schema, table string, log *logger.Logger, fn func() error) error {
	return NewTableLock(db, dialect, schema, table, log).WithLock(ctx, TimeoutShort, fn)
}
