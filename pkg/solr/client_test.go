package solr_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"mercator-hq/archivist/pkg/gateway"
	"mercator-hq/archivist/pkg/gateway/gatewaytest"
	"mercator-hq/archivist/pkg/solr"
	"mercator-hq/archivist/pkg/solr/solrtest"
)

func newClient(t *testing.T, srv *solrtest.Server) *solr.Client {
	t.Helper()
	return solr.NewClient(srv.URL+"/", solr.NewHTTPTransport(solr.HTTPConfig{}, nil), nil)
}

func TestSelectURL(t *testing.T) {
	c := solr.NewClient("http://solr:8983/solr/", nil, nil)
	got := c.SelectURL("audit_logs", solr.Query{
		FilterQueries: []string{`logtime:[* TO "2024"]`, `id:"a"`},
		Sort:          "logtime asc,id asc",
		Rows:          1000,
	})

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("url.Parse() failed: %v", err)
	}
	if u.Path != "/solr/audit_logs/select" {
		t.Errorf("path = %q", u.Path)
	}
	params := u.Query()
	if params.Get("q") != "*:*" {
		t.Errorf("q = %q, want *:*", params.Get("q"))
	}
	if len(params["fq"]) != 2 {
		t.Errorf("fq = %v, want 2 filters", params["fq"])
	}
	if params.Get("rows") != "1000" || params.Get("wt") != "json" {
		t.Errorf("rows/wt = %q/%q", params.Get("rows"), params.Get("wt"))
	}
}

func TestUpdateURL(t *testing.T) {
	c := solr.NewClient("http://solr:8983/solr", nil, nil)
	want := "http://solr:8983/solr/hadoop_logs/update/json/docs?commit=true&wt=json"
	if got := c.UpdateURL("hadoop_logs", "/json/docs"); got != want {
		t.Errorf("UpdateURL() = %q, want %q", got, want)
	}
}

func TestSelect(t *testing.T) {
	srv := solrtest.NewServer(t)
	srv.Add("logs",
		solrtest.Doc("id", "b", "ts", "2"),
		solrtest.Doc("id", "a", "ts", "1"),
		solrtest.Doc("id", "c", "ts", "3"),
	)

	res, err := newClient(t, srv).Select(context.Background(), "logs", solr.Query{
		FilterQueries: []string{`ts:[* TO "2"]`},
		Sort:          "ts asc,id asc",
		Rows:          10,
	})
	if err != nil {
		t.Fatalf("Select() failed: %v", err)
	}
	if res.NumFound != 2 || len(res.Docs) != 2 {
		t.Fatalf("got %d/%d docs, want 2", res.NumFound, len(res.Docs))
	}
	if id, _ := res.Docs[0].Get("id"); id.String() != "a" {
		t.Errorf("first doc = %s, want a", id)
	}
}

func TestSelect_StatusInBody(t *testing.T) {
	srv := solrtest.NewServer(t)
	srv.FailNext("select", solrtest.Failure{Status: 500, Message: "undefined field logtime"})

	_, err := newClient(t, srv).Select(context.Background(), "logs", solr.Query{})

	var respErr *solr.ResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("Select() error = %v, want *ResponseError", err)
	}
	if respErr.Status != 500 || respErr.Message != "undefined field logtime" {
		t.Errorf("ResponseError = %+v", respErr)
	}
}

func TestSelect_Unparseable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	c := solr.NewClient(server.URL, solr.NewHTTPTransport(solr.HTTPConfig{}, nil), nil)
	_, err := c.Select(context.Background(), "logs", solr.Query{})

	var respErr *solr.ResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("Select() error = %v, want *ResponseError", err)
	}
	if respErr.HTTPStatus != http.StatusBadGateway {
		t.Errorf("HTTPStatus = %d", respErr.HTTPStatus)
	}
	if !strings.Contains(err.Error(), "bad gateway") {
		t.Errorf("error should include the body: %v", err)
	}
}

func TestDeleteByQuery(t *testing.T) {
	srv := solrtest.NewServer(t)
	srv.Add("logs", solrtest.Doc("id", "a", "ts", "1"), solrtest.Doc("id", "b", "ts", "5"))

	if err := newClient(t, srv).DeleteByQuery(context.Background(), "logs", `ts:[* TO "3"]`); err != nil {
		t.Fatalf("DeleteByQuery() failed: %v", err)
	}
	if ids := srv.IDs("logs"); len(ids) != 1 || ids[0] != "b" {
		t.Errorf("remaining ids = %v, want [b]", ids)
	}
}

func TestPostDocuments(t *testing.T) {
	srv := solrtest.NewServer(t)
	body := "{\"id\":\"a\",\"n\":1}\n{\"id\":\"b\",\"n\":2}\n"

	if err := newClient(t, srv).PostDocuments(context.Background(), "archive", strings.NewReader(body)); err != nil {
		t.Fatalf("PostDocuments() failed: %v", err)
	}
	if ids := srv.IDs("archive"); len(ids) != 2 {
		t.Errorf("ids = %v, want 2 docs", ids)
	}

	// Reposting overwrites by unique key.
	if err := newClient(t, srv).PostDocuments(context.Background(), "archive", strings.NewReader(body)); err != nil {
		t.Fatalf("PostDocuments() failed: %v", err)
	}
	if ids := srv.IDs("archive"); len(ids) != 2 {
		t.Errorf("ids after repost = %v, want 2 docs", ids)
	}
}

func TestDeleteBody(t *testing.T) {
	body, err := solr.DeleteBody(`ts:[* TO "a<b"} AND x:"&"`)
	if err != nil {
		t.Fatalf("DeleteBody() failed: %v", err)
	}
	want := `<delete><query>ts:[* TO &#34;a&lt;b&#34;} AND x:&#34;&amp;&#34;</query></delete>`
	if string(body) != want {
		t.Errorf("DeleteBody() = %s, want %s", body, want)
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", `"plain"`},
		{`say "hi"`, `"say \"hi\""`},
		{`c:\tmp`, `"c:\\tmp"`},
	}
	for _, tt := range tests {
		if got := solr.Quote(tt.in); got != tt.want {
			t.Errorf("Quote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestCurlTransport(t *testing.T) {
	runner := gatewaytest.NewRunner(func(argv []string) gatewaytest.Response {
		if argv[0] == "curl" {
			return gatewaytest.Response{Stdout: `{"responseHeader":{"status":0}}`}
		}
		return gatewaytest.Response{}
	})
	auth := &gateway.Kinit{Runner: runner, Keytab: "/etc/solr.keytab", Principal: "solr@R"}
	c := solr.NewClient("https://solr:8886/solr", solr.NewCurlTransport(runner, auth, nil), nil)

	if err := c.DeleteByQuery(context.Background(), "logs", "*:*"); err != nil {
		t.Fatalf("DeleteByQuery() failed: %v", err)
	}

	calls := runner.Calls()
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want kinit + curl", len(calls))
	}
	if calls[0].Argv[0] != "kinit" {
		t.Errorf("first call = %s, want kinit", calls[0].Line())
	}
	curl := calls[1]
	want := "curl -sS -k --negotiate -u : -X POST -H Content-Type: text/xml --data-binary @- https://solr:8886/solr/logs/update?commit=true&wt=json"
	if curl.Line() != want {
		t.Errorf("curl = %s\nwant %s", curl.Line(), want)
	}
	if curl.Stdin != "<delete><query>*:*</query></delete>" {
		t.Errorf("stdin = %q", curl.Stdin)
	}
}

func TestCurlTransport_AuthFailure(t *testing.T) {
	runner := gatewaytest.NewRunner(func(argv []string) gatewaytest.Response {
		return gatewaytest.Response{ExitCode: 1, Stderr: "kinit failed"}
	})
	auth := &gateway.Kinit{Runner: runner, Keytab: "/k", Principal: "p"}
	c := solr.NewClient("https://solr", solr.NewCurlTransport(runner, auth, nil), nil)

	_, err := c.Select(context.Background(), "logs", solr.Query{})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(runner.CallsContaining("curl")) != 0 {
		t.Error("curl must not run when kinit fails")
	}
}

func TestHTTPTransport_ContentType(t *testing.T) {
	var gotType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		_, _ = w.Write([]byte(`{"responseHeader":{"status":0}}`))
	}))
	defer server.Close()

	c := solr.NewClient(server.URL, solr.NewHTTPTransport(solr.HTTPConfig{}, nil), nil)
	if err := c.PostDocuments(context.Background(), "c", strings.NewReader(`{"id":"x"}`)); err != nil {
		t.Fatalf("PostDocuments() failed: %v", err)
	}
	if gotType != "application/json" || gotBody != `{"id":"x"}` {
		t.Errorf("got %q %q", gotType, gotBody)
	}
}

func TestCurlTransport_Command_Headers(t *testing.T) {
	tr := solr.NewCurlTransport(nil, nil, nil)
	cmd := tr.Command(solr.Request{
		URL:    "https://solr/logs/select",
		Header: map[string]string{"traceparent": "00-abc-def-01", "X-Run": "r1"},
	})
	want := "-sS -k --negotiate -u : -H X-Run: r1 -H traceparent: 00-abc-def-01 https://solr/logs/select"
	if got := strings.Join(cmd.Args, " "); got != want {
		t.Errorf("args = %s\nwant %s", got, want)
	}
}
