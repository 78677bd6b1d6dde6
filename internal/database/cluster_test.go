package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newMockCluster(t *testing.T) (*Cluster, sqlmock.Sqlmock, sqlmock.Sqlmock) {
	t.Helper()
	primary, pm, err := sqlmock.New()
	require.NoError(t, err)
	replica, rm, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		primary.Close()
		replica.Close()
	})
	return NewCluster(primary, replica, quietLogger()), pm, rm
}

func TestClassify(t *testing.T) {
	dup := classify(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '101'"})
	assert.True(t, errors.Is(dup, ErrConstraintViolation))
	ce, ok := IsConstraint(dup)
	require.True(t, ok)
	assert.True(t, ce.Duplicate())

	fk := classify(&mysql.MySQLError{Number: 1452})
	ce, ok = IsConstraint(fk)
	require.True(t, ok)
	assert.True(t, ce.ForeignKey())

	assert.True(t, errors.Is(classify(&mysql.MySQLError{Number: 3819}), ErrConstraintViolation))
	assert.True(t, errors.Is(classify(&mysql.MySQLError{Number: 1040}), ErrStorageUnavailable))
	assert.True(t, errors.Is(classify(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"}), ErrStorageUnavailable))
	assert.True(t, errors.Is(classify(&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}), ErrStorageUnavailable))
	assert.True(t, errors.Is(classify(driver.ErrBadConn), ErrStorageUnavailable))
	assert.True(t, errors.Is(classify(&net.OpError{Op: "dial", Err: errors.New("refused")}), ErrStorageUnavailable))

	// Unclassified errors keep their identity.
	assert.Equal(t, sql.ErrNoRows, classify(sql.ErrNoRows))
	assert.Equal(t, context.Canceled, classify(context.Canceled))
	syntax := &mysql.MySQLError{Number: 1064}
	assert.Equal(t, syntax, classify(syntax))
	assert.NoError(t, classify(nil))

	// The original driver error is still reachable.
	wrapped := classify(driver.ErrBadConn)
	assert.True(t, errors.Is(wrapped, driver.ErrBadConn))
}

func TestReadUsesReplica(t *testing.T) {
	cl, pm, rm := newMockCluster(t)
	rm.ExpectQuery("SELECT name FROM RoomTypes").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Standard"))

	var name string
	err := cl.Read(context.Background(), func(q Querier) error {
		return q.QueryRowContext(context.Background(), "SELECT name FROM RoomTypes WHERE id = ?", 1).Scan(&name)
	})
	require.NoError(t, err)
	assert.Equal(t, "Standard", name)
	assert.NoError(t, rm.ExpectationsWereMet())
	assert.NoError(t, pm.ExpectationsWereMet())
}

func TestReadBreakerOpensOnRepeatedOutages(t *testing.T) {
	cl, _, _ := newMockCluster(t)
	calls := 0
	outage := func(Querier) error {
		calls++
		return driver.ErrBadConn
	}
	for i := 0; i < 5; i++ {
		err := cl.Read(context.Background(), outage)
		assert.True(t, errors.Is(err, ErrStorageUnavailable))
	}
	require.Equal(t, 5, calls)

	err := cl.Read(context.Background(), outage)
	assert.True(t, errors.Is(err, ErrStorageUnavailable))
	assert.Equal(t, 5, calls, "open breaker must not reach the replica")
}

func TestReadBreakerIgnoresNoRows(t *testing.T) {
	cl, _, _ := newMockCluster(t)
	for i := 0; i < 10; i++ {
		err := cl.Read(context.Background(), func(Querier) error { return sql.ErrNoRows })
		assert.Equal(t, sql.ErrNoRows, err)
	}
}

func TestReadBreakerIgnoresLockContention(t *testing.T) {
	cl, _, _ := newMockCluster(t)
	calls := 0
	for i := 0; i < 10; i++ {
		err := cl.Read(context.Background(), func(Querier) error {
			calls++
			return &mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}
		})
		assert.True(t, errors.Is(err, ErrStorageUnavailable))
	}
	assert.Equal(t, 10, calls, "lock waits must not open the breaker")
}

func TestWrite(t *testing.T) {
	cl, pm, _ := newMockCluster(t)
	pm.ExpectExec("INSERT INTO Rooms").
		WithArgs("401", 2).
		WillReturnResult(sqlmock.NewResult(7, 1))

	res, err := cl.Write(context.Background(), "INSERT INTO Rooms (room_number, room_type_id) VALUES (?, ?)", "401", 2)
	require.NoError(t, err)
	assert.Equal(t, WriteResult{InsertedID: 7, AffectedRows: 1}, res)

	pm.ExpectExec("INSERT INTO Rooms").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	_, err = cl.Write(context.Background(), "INSERT INTO Rooms (room_number, room_type_id) VALUES (?, ?)", "401", 2)
	assert.True(t, errors.Is(err, ErrConstraintViolation))
	assert.NoError(t, pm.ExpectationsWereMet())
}

func TestTxCommitsOnSuccess(t *testing.T) {
	cl, pm, _ := newMockCluster(t)
	pm.ExpectBegin()
	pm.ExpectExec("UPDATE Rooms").WillReturnResult(sqlmock.NewResult(0, 1))
	pm.ExpectCommit()

	err := cl.Tx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(context.Background(), "UPDATE Rooms SET status = 'Occupied' WHERE id = ?", 1)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, pm.ExpectationsWereMet())
}

func TestTxRollsBackOnError(t *testing.T) {
	cl, pm, _ := newMockCluster(t)
	pm.ExpectBegin()
	pm.ExpectRollback()

	boom := errors.New("boom")
	err := cl.Tx(context.Background(), func(*sql.Tx) error { return boom })
	assert.Equal(t, boom, err)
	assert.NoError(t, pm.ExpectationsWereMet())
}

func TestTxRollsBackOnPanic(t *testing.T) {
	cl, pm, _ := newMockCluster(t)
	pm.ExpectBegin()
	pm.ExpectRollback()

	assert.Panics(t, func() {
		_ = cl.Tx(context.Background(), func(*sql.Tx) error { panic("boom") })
	})
	assert.NoError(t, pm.ExpectationsWereMet())
}

func TestTxBeginFailureIsUnavailable(t *testing.T) {
	cl, pm, _ := newMockCluster(t)
	pm.ExpectBegin().WillReturnError(&mysql.MySQLError{Number: 1040, Message: "Too many connections"})

	err := cl.Tx(context.Background(), func(*sql.Tx) error { return nil })
	assert.True(t, errors.Is(err, ErrStorageUnavailable))
}

func TestTxRetriesDeadlockOnce(t *testing.T) {
	cl, pm, _ := newMockCluster(t)
	deadlock := &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
	pm.ExpectBegin()
	pm.ExpectExec("UPDATE Rooms").WillReturnError(deadlock)
	pm.ExpectRollback()
	pm.ExpectBegin()
	pm.ExpectExec("UPDATE Rooms").WillReturnResult(sqlmock.NewResult(0, 1))
	pm.ExpectCommit()

	runs := 0
	err := cl.Tx(context.Background(), func(tx *sql.Tx) error {
		runs++
		_, err := tx.ExecContext(context.Background(), "UPDATE Rooms SET status = 'Occupied' WHERE id = ?", 1)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, runs)
	assert.NoError(t, pm.ExpectationsWereMet())
}

func TestTxRepeatedDeadlockIsUnavailable(t *testing.T) {
	cl, pm, _ := newMockCluster(t)
	deadlock := &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
	for i := 0; i < 2; i++ {
		pm.ExpectBegin()
		pm.ExpectExec("UPDATE Rooms").WillReturnError(deadlock)
		pm.ExpectRollback()
	}

	err := cl.Tx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(context.Background(), "UPDATE Rooms SET status = 'Occupied' WHERE id = ?", 1)
		return err
	})
	assert.True(t, errors.Is(err, ErrStorageUnavailable))
	assert.NoError(t, pm.ExpectationsWereMet())
}

func TestTxLockWaitTimeoutIsNotRetried(t *testing.T) {
	cl, pm, _ := newMockCluster(t)
	pm.ExpectBegin()
	pm.ExpectExec("UPDATE Rooms").WillReturnError(&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"})
	pm.ExpectRollback()

	runs := 0
	err := cl.Tx(context.Background(), func(tx *sql.Tx) error {
		runs++
		_, err := tx.ExecContext(context.Background(), "UPDATE Rooms SET status = 'Occupied' WHERE id = ?", 1)
		return err
	})
	assert.True(t, errors.Is(err, ErrStorageUnavailable))
	assert.Equal(t, 1, runs)
	assert.NoError(t, pm.ExpectationsWereMet())
}
