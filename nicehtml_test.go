package nicehtml

import (
	"context"
	"errors"
	"testing"
)

func TestOrigin_String(t *testing.T) {
	tests := []struct {
		o    Origin
		want string
	}{
		{OriginInline, "inline"},
		{OriginRemote, "remote"},
		{Origin(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.o.String(); got != tt.want {
			t.Errorf("Origin(%d).String() = %q, want %q", tt.o, got, tt.want)
		}
	}
}

func TestResult(t *testing.T) {
	if r := Resolved(""); !r.OK() {
		t.Error("empty content is a successful resolution")
	}
	if r := Failed(errors.New("boom")); r.OK() {
		t.Error("failed result reported OK")
	}
}

func TestLoaderFunc(t *testing.T) {
	want := errors.New("no engine")
	var l Loader = LoaderFunc(func(context.Context) (Engine, error) {
		return nil, want
	})
	if _, err := l.Load(context.Background()); err != want {
		t.Errorf("Load() error = %v, want %v", err, want)
	}
}
