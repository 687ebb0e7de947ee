// Package core loads the catalog feed and holds the current record set.
//
// It is independent of the HTTP layer and can be driven by web handlers, the
// background scheduler, or tests with a fake [Fetcher].
//
// # Loading
//
// [Service.Refresh] runs one fetch at a time:
//
//  1. [HTTPFetcher] GETs the feed and rejects non-2xx and non-CSV responses
//  2. [ReadBody] enforces the size limit, counts bytes and repairs UTF-8
//  3. feed.BuildRecords turns the text into records
//  4. The new [Snapshot] replaces the old one and subscribers are notified
//
// A failed attempt leaves a failed snapshot with no records. There is no
// partial display.
//
// # Error Handling
//
// [Classify] sorts failures into network, empty table, header not found and
// unknown. [MapError] turns them into user messages with support codes
// (NET, FEED, CTX, ERR000).
package core
