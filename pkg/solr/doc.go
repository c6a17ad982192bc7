// Package solr is a small client for the parts of the Solr HTTP API the
// archiver needs: paged select queries, delete-by-query and posting JSON
// documents into a collection.
//
// Requests go through a Transport. HTTPTransport uses net/http directly;
// CurlTransport shells out to curl with SPNEGO negotiation for clusters
// secured with kerberos, acquiring a ticket through a gateway.Authenticator
// before every call.
//
// Solr reports many failures with HTTP 200 and a non-zero
// responseHeader.status, so every response body is inspected and such
// replies are returned as *ResponseError.
package solr
