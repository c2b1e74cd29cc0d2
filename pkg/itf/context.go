// Package itf carries shared test fixtures: a fluent builder for request
// contexts preloaded with the composables services read at runtime.
package itf

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/planventa/planventa/pkg/composables"
	"github.com/planventa/planventa/pkg/eventbus"
)

// TestContext provides a fluent API for building test contexts
type TestContext struct {
	ctx    context.Context
	tenant *composables.Tenant
	actor  uuid.UUID
	logger *logrus.Logger
}

// NewTestContext creates a new TestContext builder
func NewTestContext() *TestContext {
	return &TestContext{
		ctx: context.Background(),
	}
}

// WithTenant sets the tenant for the test context
func (tc *TestContext) WithTenant(id uuid.UUID) *TestContext {
	tc.tenant = &composables.Tenant{
		ID:     id,
		Name:   "Test Tenant " + id.String()[:8],
		Domain: id.String()[:8] + ".test.com",
	}
	return tc
}

// WithActor sets the acting user for the test context
func (tc *TestContext) WithActor(id uuid.UUID) *TestContext {
	tc.actor = id
	return tc
}

// WithLogger overrides the context logger
func (tc *TestContext) WithLogger(logger *logrus.Logger) *TestContext {
	tc.logger = logger
	return tc
}

// Build assembles the context with all composables set
func (tc *TestContext) Build() context.Context {
	ctx := tc.ctx
	if tc.tenant != nil {
		ctx = composables.WithTenantID(ctx, tc.tenant.ID)
	}
	if tc.actor != uuid.Nil {
		ctx = composables.WithActorID(ctx, tc.actor)
	}
	logger := tc.logger
	if logger == nil {
		logger = QuietLogger()
	}
	ctx = composables.WithLogger(ctx, logrus.NewEntry(logger))
	ctx = composables.WithParams(ctx, DefaultParams())
	return ctx
}

// Tenant returns the tenant configured on the builder, if any.
func (tc *TestContext) Tenant() *composables.Tenant {
	return tc.tenant
}

func DefaultParams() *composables.Params {
	return &composables.Params{
		IP:        "127.0.0.1",
		UserAgent: "planventa-tests",
	}
}

// QuietLogger returns a logger that only surfaces panics. Tests that assert
// on log output should build their own logger with a buffer.
func QuietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// TestLogger returns a logger that forwards output to the test log.
func TestLogger(tb testing.TB) *logrus.Logger {
	tb.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	logger.SetOutput(testWriter{tb: tb})
	return logger
}

// TestEventBus returns an event publisher logging through the test log.
func TestEventBus(tb testing.TB) eventbus.EventBus {
	tb.Helper()
	return eventbus.NewEventPublisher(TestLogger(tb))
}

type testWriter struct {
	tb testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.tb.Log(string(p))
	return len(p), nil
}
