package purge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mercator-hq/archivist/pkg/ledger"
	"mercator-hq/archivist/pkg/lifecycle"
	"mercator-hq/archivist/pkg/solr"
	"mercator-hq/archivist/pkg/solr/solrtest"
)

func newPurger(t *testing.T, srv *solrtest.Server) *Purger {
	t.Helper()
	return New(solr.NewClient(srv.URL, solr.NewHTTPTransport(solr.HTTPConfig{}, nil), nil), nil)
}

func TestRangeQuery(t *testing.T) {
	spec := ledger.DeleteSpec{FilterField: "logtime", IDField: "id", PrevLotEndValue: "2024", PrevLotEndID: "c"}
	want := `logtime:[* TO "2024"} OR (logtime:"2024" AND id:[* TO "c"])`
	if got := RangeQuery(spec); got != want {
		t.Errorf("RangeQuery() = %s, want %s", got, want)
	}

	spec.AdditionalFilter = "type:audit"
	want = `(type:audit) AND (` + want + `)`
	if got := RangeQuery(spec); got != want {
		t.Errorf("RangeQuery() = %s, want %s", got, want)
	}
}

// TestPurgeRange_TiedValues checks that only the tied records up to the
// cursor id are deleted.
func TestPurgeRange_TiedValues(t *testing.T) {
	srv := solrtest.NewServer(t)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		srv.Add("logs", solrtest.Doc("id", id, "ts", "2024-01-01"))
	}
	srv.Add("logs", solrtest.Doc("id", "z", "ts", "2023-12-31"))
	srv.Add("logs", solrtest.Doc("id", "0", "ts", "2024-01-02"))

	p := newPurger(t, srv)
	spec := p.Spec(Scope{Collection: "logs", FilterField: "ts", IDField: "id"},
		lifecycle.Cursor{Value: "2024-01-01", ID: "c"})

	if err := p.PurgeRange(context.Background(), spec); err != nil {
		t.Fatalf("PurgeRange() failed: %v", err)
	}

	got := strings.Join(srv.IDs("logs"), ",")
	if got != "d,e,0" {
		t.Errorf("remaining = %s, want d,e,0", got)
	}
}

func TestPurgeRange_AdditionalFilter(t *testing.T) {
	srv := solrtest.NewServer(t)
	srv.Add("logs",
		solrtest.Doc("id", "a", "ts", "1", "type", "audit"),
		solrtest.Doc("id", "b", "ts", "1", "type", "service"),
	)

	p := newPurger(t, srv)
	spec := p.Spec(Scope{Collection: "logs", FilterField: "ts", IDField: "id", AdditionalFilter: "type:audit"},
		lifecycle.Cursor{Value: "9", ID: "z"})
	if err := p.PurgeRange(context.Background(), spec); err != nil {
		t.Fatalf("PurgeRange() failed: %v", err)
	}
	if got := strings.Join(srv.IDs("logs"), ","); got != "b" {
		t.Errorf("remaining = %s, want b", got)
	}
}

func TestPurgeBefore(t *testing.T) {
	srv := solrtest.NewServer(t)
	srv.Add("logs",
		solrtest.Doc("id", "a", "ts", "2024-01-01"),
		solrtest.Doc("id", "b", "ts", "2024-01-02"),
		solrtest.Doc("id", "c", "ts", "2024-01-03"),
	)

	p := newPurger(t, srv)
	if err := p.PurgeBefore(context.Background(), Scope{Collection: "logs", FilterField: "ts", IDField: "id"}, "2024-01-02"); err != nil {
		t.Fatalf("PurgeBefore() failed: %v", err)
	}
	if got := strings.Join(srv.IDs("logs"), ","); got != "c" {
		t.Errorf("remaining = %s, want c", got)
	}
}

func TestPurge_FailureStatus(t *testing.T) {
	srv := solrtest.NewServer(t)
	srv.Add("logs", solrtest.Doc("id", "a", "ts", "1"))
	srv.FailNext("delete", solrtest.Failure{Status: 500, Message: "collection is read-only"})

	p := newPurger(t, srv)
	spec := p.Spec(Scope{Collection: "logs", FilterField: "ts", IDField: "id"}, lifecycle.Cursor{Value: "1", ID: "a"})
	err := p.PurgeRange(context.Background(), spec)

	var purgeErr *lifecycle.PurgeError
	if !errors.As(err, &purgeErr) {
		t.Fatalf("PurgeRange() error = %v, want *PurgeError", err)
	}
	if purgeErr.Collection != "logs" || !strings.Contains(purgeErr.Query, `ts:"1"`) {
		t.Errorf("PurgeError = %+v", purgeErr)
	}
	if len(srv.IDs("logs")) != 1 {
		t.Error("document should still exist")
	}
}

func TestSpec_Command(t *testing.T) {
	srv := solrtest.NewServer(t)
	p := newPurger(t, srv)
	spec := p.Spec(Scope{Collection: "logs", FilterField: "ts", IDField: "id"}, lifecycle.Cursor{Value: "1", ID: "a"})

	if !strings.HasPrefix(spec.Command, "POST "+srv.URL+"/logs/update?commit=true") {
		t.Errorf("Command = %s", spec.Command)
	}
	if spec.PrevLotEndValue != "1" || spec.PrevLotEndID != "a" {
		t.Errorf("spec = %+v", spec)
	}
}
