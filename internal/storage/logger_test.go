package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fyrsmithlabs/newsletter/internal/tracing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

func TestQueryLogger_AttributesToCurrentSpan(t *testing.T) {
	d, rec := tracing.NewTestDispatch()
	unit := tracing.NewUnit()
	ctx := tracing.ContextWithUnit(tracing.ContextWithDispatch(context.Background(), d), unit)

	span := tracing.OpenSpan(ctx, "Saving new subscriber details in the database")
	l := newQueryLogger()
	stmt := func() (string, int64) { return `INSERT INTO "subscriptions" ...`, 1 }

	span.InScope(unit, func() {
		l.Trace(ctx, time.Now(), stmt, nil)
		l.Trace(ctx, time.Now(), stmt, errors.New("duplicate key"))
		l.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	})
	span.Close()

	events := rec.EventsFor(span.ID())
	require.Len(t, events, 3)

	assert.Equal(t, "Statement executed", events[0].Message)
	assert.Equal(t, tracing.TraceLevel, events[0].Level)
	assert.Equal(t, int64(1), events[0].FieldMap()["db.rows_affected"])

	assert.Equal(t, "Statement failed", events[1].Message)
	assert.Equal(t, zap.WarnLevel, events[1].Level)
	assert.Equal(t, "duplicate key", events[1].FieldMap()["error"])

	assert.Equal(t, "Slow statement", events[2].Message)
}

func TestQueryLogger_LogMode(t *testing.T) {
	d, rec := tracing.NewTestDispatch()
	ctx := tracing.ContextWithDispatch(context.Background(), d)
	stmt := func() (string, int64) { return "SELECT 1", 1 }

	base := newQueryLogger()
	silent := base.LogMode(gormlogger.Silent)
	silent.Trace(ctx, time.Now(), stmt, errors.New("boom"))
	silent.Error(ctx, "failed %d", 1)
	assert.Empty(t, rec.Events())

	warn := base.LogMode(gormlogger.Warn)
	warn.Trace(ctx, time.Now(), stmt, nil)
	warn.Info(ctx, "hidden")
	warn.Warn(ctx, "shown %s", "here")
	events := rec.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "shown here", events[0].Message)

	base.Info(ctx, "still info")
	assert.Len(t, rec.Events(), 2, "LogMode returns a copy")
}
