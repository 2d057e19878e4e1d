package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/robalobadob/snaildle/internal/telemetry"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := telemetry.Setup(context.Background(), "test-service", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown should not error: %v", err)
	}
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address so nothing is exported.
	shutdown, err := telemetry.Setup(context.Background(), "test-service", "http://192.0.2.1:4318")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestEndRecordsError(t *testing.T) {
	_, span := telemetry.Tracer("test").Start(context.Background(), "op")
	telemetry.End(span, errors.New("boom"))
	_, span = telemetry.Tracer("test").Start(context.Background(), "op")
	telemetry.End(span, nil)
}
