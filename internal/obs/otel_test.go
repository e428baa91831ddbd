package obs

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupOTel_Disabled(t *testing.T) {
	o, err := SetupOTel(context.Background(), &OTELConfig{Enable: false})
	require.NoError(t, err)
	assert.Nil(t, o.TracerProvider)
	require.NoError(t, o.Shutdown(context.Background()))

	fields := otel.GetTextMapPropagator().Fields()
	assert.Contains(t, fields, "traceparent")
}

func TestSetupOTel_EmptyEndpoint(t *testing.T) {
	_, err := SetupOTel(context.Background(), &OTELConfig{Enable: true})
	require.Error(t, err)
}

func TestSampler(t *testing.T) {
	assert.True(t, strings.Contains(sampler(1).Description(), "AlwaysOnSampler"))
	assert.True(t, strings.Contains(sampler(0).Description(), "AlwaysOffSampler"))
	assert.True(t, strings.Contains(sampler(0.25).Description(), "TraceIDRatioBased"))
}
