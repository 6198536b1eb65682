package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medshare/moderation/pkg/config"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(&config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	shutdown()
}

func TestStartSpan_WithoutProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test.span")
	require.NotNil(t, span)
	assert.NotNil(t, ctx)
	span.End()
}

func TestRecordAction_NoPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordAction(context.Background(), "remove", "soft_deleted")
		RecordAction(context.Background(), "remove", "forbidden")
	})
}
