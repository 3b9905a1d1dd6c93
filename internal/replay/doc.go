// Package replay remembers recent replies by request id so a retried request
// is answered without running through the router a second time.
package replay
