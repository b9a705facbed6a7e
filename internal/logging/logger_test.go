package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestFromContextFallback(t *testing.T) {
	t.Parallel()

	logger := FromContext(context.Background())
	if logger == nil {
		t.Fatal("logger cannot be nil")
	}
}

func TestWithLogger(t *testing.T) {
	t.Parallel()

	want := zap.NewNop().Sugar()
	ctx := WithLogger(context.Background(), want)
	if got := FromContext(ctx); got != want {
		t.Errorf("expected %#v got %#v", want, got)
	}
}
