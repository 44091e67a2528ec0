package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mrlokans/session-auth/internal/logutil"
)

const slowQueryThreshold = 200 * time.Millisecond

// queryLogger sends gorm's log output through zerolog. Missing rows and
// unique violations are expected outcomes and are not logged as errors.
type queryLogger struct {
	level gormlogger.LogLevel
}

func newQueryLogger() gormlogger.Interface {
	return &queryLogger{level: gormlogger.Warn}
}

func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &queryLogger{level: level}
}

func (l *queryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		l.logger(ctx).Info().Msg(fmt.Sprintf(msg, data...))
	}
}

func (l *queryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.logger(ctx).Warn().Msg(fmt.Sprintf(msg, data...))
	}
}

func (l *queryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		l.logger(ctx).Error().Msg(fmt.Sprintf(msg, data...))
	}
}

func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && l.level >= gormlogger.Error && !isExpectedError(err):
		sql, rows := fc()
		log := l.logger(ctx)
		log.Error().Err(err).Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("Query failed")
	case elapsed > slowQueryThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		log := l.logger(ctx)
		log.Warn().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("Slow query")
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		log := l.logger(ctx)
		log.Debug().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("Query")
	}
}

func (l *queryLogger) logger(ctx context.Context) *zerolog.Logger {
	log := logutil.GetOrDefault(ctx).With().Str("component", "gorm").Logger()
	return &log
}

func isExpectedError(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
