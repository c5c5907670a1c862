package clientsvc

import (
	"fmt"

	"github.com/dgraph-io/badger"
	"go.uber.org/zap"
)

// OpenDB opens the badger database backing the client registry.
func OpenDB(dir string, log *zap.Logger) (*badger.DB, error) {
	dbOptions := badger.DefaultOptions(dir)
	dbOptions.Logger = &badgerLogger{l: log.Named("badger")}
	db, err := badger.Open(dbOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return db, nil
}

type badgerLogger struct {
	l *zap.Logger
}

func (l badgerLogger) Errorf(msg string, args ...any) {
	l.l.Error(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Warningf(msg string, args ...any) {
	l.l.Warn(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Infof(msg string, args ...any) {
	l.l.Info(fmt.Sprintf(msg, args...))
}

func (l badgerLogger) Debugf(msg string, args ...any) {
	l.l.Debug(fmt.Sprintf(msg, args...))
}
