package logger

import (
	"context"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		value string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := parseLevel(tt.value); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestContextRoundTrip(t *testing.T) {
	base := NewNop()

	ctx := NewContext(context.Background(), base)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("FromContext() did not find the stored logger")
	}
	if got != base {
		t.Error("FromContext() returned a different logger")
	}

	if _, ok := FromContext(context.Background()); ok {
		t.Error("FromContext() found a logger in an empty context")
	}
}
