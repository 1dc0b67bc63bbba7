package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupNoopWhenDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Endpoint: "http://localhost:4318"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupNoopWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, shutdown(ctx))
}

func TestSetupCreatesProvider(t *testing.T) {
	// non-routable address, nothing is exported before shutdown
	shutdown, err := Setup(context.Background(), Config{
		Enabled:     true,
		Endpoint:    "http://192.0.2.1:4318",
		ServiceName: "studio-test",
		SampleRatio: 0.5,
	})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
