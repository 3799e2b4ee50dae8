package alert

import (
	"context"
	"fmt"
	"testing"

	"health-reminders/internal/common/logger"
	"health-reminders/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogAlerter_LevelsFollowSeverity(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	a := NewLogAlerter(logger.NewZapAdapter(zap.New(core)))

	ctx := context.Background()
	a.Alert(ctx, "user-1", models.SeverityInfo, "Time to take Aspirin (100mg)")
	a.Alert(ctx, "user-1", models.SeverityWarning, "Aspirin will expire in 3 days")
	a.Alert(ctx, "user-1", models.SeverityError, "Aspirin has expired!")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "Aspirin has expired!", entries[2].Message)
	assert.Equal(t, "user-1", entries[2].ContextMap()["userId"])
	assert.Equal(t, "alert", entries[2].ContextMap()["component"])
}

func TestMulti_FansOut(t *testing.T) {
	first, second := &Recorder{}, &Recorder{}
	Multi{first, second}.Alert(context.Background(), "user-1", models.SeverityInfo, "Time for Lunch: Salad")

	assert.Len(t, first.Entries(), 1)
	assert.Len(t, second.Entries(), 1)
	assert.Equal(t, "Time for Lunch: Salad", second.Entries()[0].Message)
}

func TestRecorder_Limit(t *testing.T) {
	r := &Recorder{Limit: 2}
	for i := 0; i < 5; i++ {
		r.Alert(context.Background(), "user-1", models.SeverityInfo, fmt.Sprintf("alert %d", i))
	}
	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "alert 3", entries[0].Message)
	assert.Equal(t, "alert 4", entries[1].Message)

	r.Reset()
	assert.Empty(t, r.Entries())
}
