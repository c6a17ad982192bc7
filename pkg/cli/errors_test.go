package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"mercator-hq/archivist/pkg/lifecycle"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"unknown", errors.New("boom"), ExitUnknown},
		{"configuration", lifecycle.NewConfigurationError("mode", "bad"), ExitConfiguration},
		{"authentication", lifecycle.NewAuthenticationError("svc@REALM", errors.New("kinit")), ExitAuthentication},
		{"query", lifecycle.NewQueryError("http://solr", errors.New("500")), ExitQuery},
		{"upload", lifecycle.NewUploadError("hdfs", "a.tar.gz", errors.New("put")), ExitUpload},
		{"purge", lifecycle.NewPurgeError("logs", "*:*", errors.New("status 1")), ExitPurge},
		{"wrapped upload", fmt.Errorf("batch 3: %w", lifecycle.NewUploadError("s3", "a", errors.New("x"))), ExitUpload},
		{"cancelled", fmt.Errorf("query: %w", context.Canceled), ExitInterrupted},
		{"command error", NewCommandError("archive", lifecycle.NewPurgeError("logs", "q", nil)), ExitPurge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestCommandError(t *testing.T) {
	underlying := errors.New("underlying error")
	err := NewCommandError("archive", underlying)

	if got, want := err.Error(), "archive failed: underlying error"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, underlying) {
		t.Error("errors.Is() should see through CommandError")
	}
}
