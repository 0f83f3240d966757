// Package repository implements the MySQL data access of the booking
// service.  Transactional access used by the booking services goes
// through Store (see store.go); the remaining repositories serve the
// auth, browsing and admin endpoints directly on *sql.DB.
//
// Driver errors are translated into the store sentinels so that callers
// never depend on MySQL error numbers.
package repository

import (
    "database/sql"
    stderrors "errors"

    "github.com/go-sql-driver/mysql"
    "github.com/pkg/errors"

    "github.com/iliyamo/event-seat-booking/internal/store"
)

// MySQL server error numbers the repositories react to.
const (
    errDupEntry        = 1062
    errLockWaitTimeout = 1205
    errLockDeadlock    = 1213
)

// ErrEmailExists is returned when registering an email that is already
// taken.
var ErrEmailExists = stderrors.New("email already exists")

// translate maps driver errors onto store sentinels and annotates
// everything else with op.
func translate(err error, op string) error {
    if err == nil {
        return nil
    }
    if stderrors.Is(err, sql.ErrNoRows) {
        return store.ErrNotFound
    }
    var me *mysql.MySQLError
    if stderrors.As(err, &me) {
        switch me.Number {
        case errDupEntry:
            return errors.Wrap(store.ErrDuplicate, op)
        case errLockWaitTimeout, errLockDeadlock:
            return errors.Wrap(store.ErrLockContention, op)
        }
    }
    return errors.Wrap(err, op)
}
