package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_NoDSNIsNoop(t *testing.T) {
	flush, err := Init(Config{})
	require.NoError(t, err)
	require.NotNil(t, flush)
	flush()
}

func TestInit_BadDSNDegrades(t *testing.T) {
	flush, err := Init(Config{DSN: "not a dsn"})
	require.NoError(t, err)
	flush()
}

func TestCaptureWithoutClient(t *testing.T) {
	assert.NotPanics(t, func() {
		CaptureError(context.Background(), errors.New("boom"))
		CaptureError(context.Background(), nil)
		AddBreadcrumb(context.Background(), "upload", "parsed")
	})
}
