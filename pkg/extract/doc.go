// Package extract pulls one batch of documents at a time out of the index,
// ordered by (boundary field, id field), and streams them into a working
// file.
//
// Paging uses a tie-breaking cursor rather than offsets: after the first page
// every query carries the filter
//
//	(boundary:"v" AND id:{"i" TO *]) OR boundary:{"v" TO "cutoff"]
//
// where (v, i) is the last record written. Records sharing a boundary value
// are therefore never skipped or duplicated across pages or batches, even
// when documents are deleted between queries.
package extract
