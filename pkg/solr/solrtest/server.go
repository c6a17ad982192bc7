// Package solrtest runs an in-memory Solr stand-in for tests. It understands
// select with q / fq / sort / rows, XML delete-by-query and JSON document
// posts, which is the whole surface the archiver uses.
package solrtest

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"mercator-hq/archivist/pkg/record"
)

// Failure is an injected error reply.
type Failure struct {
	// Status is written to responseHeader.status.
	Status int

	// HTTPStatus defaults to 200, the way Solr reports many errors.
	HTTPStatus int

	Message string
}

// Server is an in-memory Solr.
type Server struct {
	*httptest.Server

	// UniqueKey is the field posted documents are deduplicated on.
	UniqueKey string

	mu          sync.Mutex
	collections map[string][]record.Record
	selects     []string
	deletes     []string
	fail        map[string][]Failure
}

// NewServer starts a server that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		UniqueKey:   "id",
		collections: make(map[string][]record.Record),
		fail:        make(map[string][]Failure),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Add appends documents to a collection.
func (s *Server) Add(collection string, docs ...record.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = append(s.collections[collection], docs...)
}

// Docs returns a copy of a collection's documents.
func (s *Server) Docs(collection string) []record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]record.Record, len(s.collections[collection]))
	copy(out, s.collections[collection])
	return out
}

// IDs returns the id field of a collection's documents in storage order.
func (s *Server) IDs(collection string) []string {
	var ids []string
	for _, d := range s.Docs(collection) {
		v, _ := d.Get(s.UniqueKey)
		ids = append(ids, v.String())
	}
	return ids
}

// Selects returns the raw query strings of select requests received so far.
func (s *Server) Selects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.selects...)
}

// Deletes returns the delete queries received so far.
func (s *Server) Deletes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletes...)
}

// FailNext makes the next request whose handler is op ("select", "delete"
// or "docs") fail with f. Calls queue up.
func (s *Server) FailNext(op string, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = append(s.fail[op], f)
}

func (s *Server) takeFailure(op string) (Failure, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.fail[op]
	if len(q) == 0 {
		return Failure{}, false
	}
	s.fail[op] = q[1:]
	return q[0], true
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 2 {
		http.NotFound(w, r)
		return
	}
	collection := parts[0]
	op := strings.Join(parts[1:], "/")

	var kind string
	switch op {
	case "select":
		kind = "select"
	case "update":
		kind = "delete"
	case "update/json/docs":
		kind = "docs"
	default:
		http.NotFound(w, r)
		return
	}

	if f, ok := s.takeFailure(kind); ok {
		writeFailure(w, f)
		return
	}

	var err error
	switch kind {
	case "select":
		err = s.handleSelect(w, r, collection)
	case "delete":
		err = s.handleDelete(w, r, collection)
	case "docs":
		err = s.handleDocs(w, r, collection)
	}
	if err != nil {
		writeFailure(w, Failure{Status: 400, HTTPStatus: http.StatusBadRequest, Message: err.Error()})
	}
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request, collection string) error {
	params := r.URL.Query()
	s.mu.Lock()
	s.selects = append(s.selects, r.URL.RawQuery)
	s.mu.Unlock()

	var filters []matcher
	for _, q := range append([]string{params.Get("q")}, params["fq"]...) {
		if q == "" {
			continue
		}
		m, err := parseQuery(q)
		if err != nil {
			return err
		}
		filters = append(filters, m)
	}

	var hits []record.Record
	for _, doc := range s.Docs(collection) {
		ok := true
		for _, m := range filters {
			if !m(doc) {
				ok = false
				break
			}
		}
		if ok {
			hits = append(hits, doc)
		}
	}

	if err := sortDocs(hits, params.Get("sort")); err != nil {
		return err
	}

	numFound := len(hits)
	rows := 10
	if v := params.Get("rows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid rows %q", v)
		}
		rows = n
	}
	if len(hits) > rows {
		hits = hits[:rows]
	}
	if hits == nil {
		hits = []record.Record{}
	}

	return writeJSON(w, map[string]any{
		"responseHeader": map[string]any{"status": 0, "QTime": 1},
		"response":       map[string]any{"numFound": numFound, "start": 0, "docs": hits},
	})
}

func sortDocs(docs []record.Record, spec string) error {
	if spec == "" {
		return nil
	}
	type key struct {
		field string
		desc  bool
	}
	var keys []key
	for _, part := range strings.Split(spec, ",") {
		fields := strings.Fields(part)
		if len(fields) != 2 || (fields[1] != "asc" && fields[1] != "desc") {
			return fmt.Errorf("invalid sort %q", spec)
		}
		keys = append(keys, key{field: fields[0], desc: fields[1] == "desc"})
	}

	sort.SliceStable(docs, func(i, j int) bool {
		for _, k := range keys {
			a, _ := docs[i].Get(k.field)
			b, _ := docs[j].Get(k.field)
			c := strings.Compare(a.String(), b.String())
			if c == 0 {
				continue
			}
			if k.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return nil
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, collection string) error {
	var cmd struct {
		XMLName xml.Name `xml:"delete"`
		Query   string   `xml:"query"`
	}
	if err := xml.NewDecoder(r.Body).Decode(&cmd); err != nil {
		return fmt.Errorf("invalid delete body: %w", err)
	}
	m, err := parseQuery(cmd.Query)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.deletes = append(s.deletes, cmd.Query)
	var kept []record.Record
	for _, doc := range s.collections[collection] {
		if !m(doc) {
			kept = append(kept, doc)
		}
	}
	s.collections[collection] = kept
	s.mu.Unlock()

	return writeJSON(w, map[string]any{
		"responseHeader": map[string]any{"status": 0, "QTime": 1},
	})
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request, collection string) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	docs, err := decodeDocs(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	for _, doc := range docs {
		s.collections[collection] = upsert(s.collections[collection], doc, s.UniqueKey)
	}
	s.mu.Unlock()

	return writeJSON(w, map[string]any{
		"responseHeader": map[string]any{"status": 0, "QTime": 1},
	})
}

// decodeDocs accepts a JSON array or a stream of objects.
func decodeDocs(data []byte) ([]record.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var docs []record.Record
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, fmt.Errorf("invalid document array: %w", err)
		}
		return docs, nil
	}

	var docs []record.Record
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	for dec.More() {
		var doc record.Record
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("invalid document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func upsert(docs []record.Record, doc record.Record, key string) []record.Record {
	id, ok := doc.Get(key)
	if ok {
		for i, existing := range docs {
			if v, found := existing.Get(key); found && v.String() == id.String() {
				docs[i] = doc
				return docs
			}
		}
	}
	return append(docs, doc)
}

func writeFailure(w http.ResponseWriter, f Failure) {
	status := f.HTTPStatus
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"responseHeader": map[string]any{"status": f.Status, "QTime": 0},
		"error":          map[string]any{"msg": f.Message, "code": f.Status},
	})
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// Doc builds a record from alternating field names and string values.
func Doc(kv ...string) record.Record {
	fields := make([]record.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, record.Field{Name: kv[i], Value: record.String(kv[i+1])})
	}
	return record.New(fields...)
}
