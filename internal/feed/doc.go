// Package feed fetches auction snapshot dumps from the upstream market API.
//
// Each realm exposes a small descriptor listing the latest dump file and its
// last-modified timestamp; the dump itself is a separate, much larger
// download. A Redis-backed Guard remembers the last timestamp handled per
// realm so unchanged dumps are never re-downloaded.
package feed
