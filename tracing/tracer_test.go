package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(Options{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_ExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var out bytes.Buffer
	shutdown, err := Init(Options{ServiceName: "storefront-test", Enabled: true, Out: &out})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "vault.Store")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, out.String(), "vault.Store")
	assert.Contains(t, out.String(), "storefront-test")
}
