package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain", boom, KindUnknown},
		{"canceled", fmt.Errorf("batch 3: %w", context.Canceled), KindInterrupted},
		{"configuration", NewConfigurationError("end", "bad"), KindConfiguration},
		{"query", NewQueryError("http://solr/select", boom), KindQuery},
		{"upload", fmt.Errorf("batch: %w", NewUploadError("s3", "a.json", boom)), KindUpload},
		{"purge", NewPurgeError("logs", "*:*", boom), KindPurge},
		{"auth inside upload", NewUploadError("hdfs", "a.json", NewAuthenticationError("p", boom)), KindAuthentication},
		{"canceled inside query", NewQueryError("u", context.Canceled), KindInterrupted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
