// Package reader pulls records one at a time out of files and streams.
//
// A Cursor detects the record length from the first record, or from
// every record when asked, skips blocks that are not data records, and
// follows envelope containers that wrap runs of records between
// fixed-size headers and checksums.
package reader
