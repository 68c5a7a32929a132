package obs

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestTimeLogsThroughContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	ctx := logger.WithContext(context.Background())

	done := Time(ctx, "store.FindPackage")
	err := errors.New("boom")
	done(&err)

	out := buf.String()
	if !strings.Contains(out, `"op":"store.FindPackage"`) {
		t.Fatalf("missing op field in %q", out)
	}
	if !strings.Contains(out, `"error":"boom"`) {
		t.Fatalf("missing error field in %q", out)
	}
}

func TestRequestID(t *testing.T) {
	ctx := context.WithValue(context.Background(), RequestIDKey, "abc")
	if got := RequestID(ctx); got != "abc" {
		t.Fatalf("RequestID = %q, want %q", got, "abc")
	}
	if got := RequestID(context.Background()); got != "" {
		t.Fatalf("RequestID on empty ctx = %q, want empty", got)
	}
}
