package solr

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"mercator-hq/archivist/pkg/record"
)

// Query is a select request.
type Query struct {
	// Q is the main query. Empty means *:*.
	Q string

	// FilterQueries are sent as repeated fq parameters.
	FilterQueries []string

	Sort string
	Rows int
}

// SelectResult is the decoded response of a select request.
type SelectResult struct {
	NumFound int64
	Docs     []record.Record
}

// ResponseError reports a Solr reply that signalled failure.
type ResponseError struct {
	URL        string
	HTTPStatus int
	Status     int
	Message    string
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	msg := fmt.Sprintf("solr returned status %d", e.Status)
	if e.Status == 0 && e.HTTPStatus != 0 {
		msg = fmt.Sprintf("solr returned HTTP %d", e.HTTPStatus)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

type envelope struct {
	ResponseHeader struct {
		Status int `json:"status"`
		QTime  int `json:"QTime"`
	} `json:"responseHeader"`
	Error *struct {
		Msg  string `json:"msg"`
		Code int    `json:"code"`
	} `json:"error"`
	Response *struct {
		NumFound int64           `json:"numFound"`
		Docs     []record.Record `json:"docs"`
	} `json:"response"`
}

// Client is a Solr client bound to one base URL.
type Client struct {
	baseURL   string
	transport Transport
	logger    *slog.Logger
}

// NewClient creates a client for the Solr instance at baseURL
// (e.g. http://host:8983/solr).
func NewClient(baseURL string, transport Transport, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		transport: transport,
		logger:    logger.With("component", "solr"),
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SelectURL returns the URL of a select request.
func (c *Client) SelectURL(collection string, q Query) string {
	params := url.Values{}
	query := q.Q
	if query == "" {
		query = "*:*"
	}
	params.Set("q", query)
	for _, fq := range q.FilterQueries {
		params.Add("fq", fq)
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	if q.Rows > 0 {
		params.Set("rows", strconv.Itoa(q.Rows))
	}
	params.Set("wt", "json")

	return fmt.Sprintf("%s/%s/select?%s", c.baseURL, url.PathEscape(collection), params.Encode())
}

// UpdateURL returns the commit-on-write update URL of a collection. Path is
// appended to /update, e.g. "/json/docs".
func (c *Client) UpdateURL(collection, path string) string {
	return fmt.Sprintf("%s/%s/update%s?commit=true&wt=json", c.baseURL, url.PathEscape(collection), path)
}

// Select runs a select query.
func (c *Client) Select(ctx context.Context, collection string, q Query) (*SelectResult, error) {
	u := c.SelectURL(collection, q)
	env, err := c.do(ctx, Request{Method: http.MethodGet, URL: u})
	if err != nil {
		return nil, err
	}
	if env.Response == nil {
		return nil, &ResponseError{URL: u, Message: "response has no documents section"}
	}
	return &SelectResult{NumFound: env.Response.NumFound, Docs: env.Response.Docs}, nil
}

// DeleteByQuery deletes every document matching query and commits.
func (c *Client) DeleteByQuery(ctx context.Context, collection, query string) error {
	body, err := DeleteBody(query)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, Request{
		Method:      http.MethodPost,
		URL:         c.UpdateURL(collection, ""),
		ContentType: "text/xml",
		Body:        bytes.NewReader(body),
	})
	return err
}

// PostDocuments posts JSON documents (one object per line, or an array) to
// the collection and commits.
func (c *Client) PostDocuments(ctx context.Context, collection string, docs io.Reader) error {
	_, err := c.do(ctx, Request{
		Method:      http.MethodPost,
		URL:         c.UpdateURL(collection, "/json/docs"),
		ContentType: "application/json",
		Body:        docs,
	})
	return err
}

func (c *Client) do(ctx context.Context, req Request) (*envelope, error) {
	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, &ResponseError{
			URL:        req.URL,
			HTTPStatus: resp.StatusCode,
			Message:    "unparseable response: " + snippet(resp.Body),
		}
	}

	status := env.ResponseHeader.Status
	if status == 0 && env.Error != nil {
		status = env.Error.Code
	}
	if status != 0 || resp.StatusCode >= http.StatusBadRequest {
		rerr := &ResponseError{URL: req.URL, HTTPStatus: resp.StatusCode, Status: status}
		if env.Error != nil {
			rerr.Message = env.Error.Msg
		}
		return nil, rerr
	}

	c.logger.Debug("solr request completed", "url", req.URL, "qtime_ms", env.ResponseHeader.QTime)
	return &env, nil
}

func snippet(b []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

type deleteCommand struct {
	XMLName xml.Name `xml:"delete"`
	Query   string   `xml:"query"`
}

// DeleteBody renders the XML delete-by-query body.
func DeleteBody(query string) ([]byte, error) {
	return xml.Marshal(deleteCommand{Query: query})
}

// Quote renders v as a quoted query term.
func Quote(v string) string {
	var b strings.Builder
	b.Grow(len(v) + 2)
	b.WriteByte('"')
	for _, r := range v {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}
