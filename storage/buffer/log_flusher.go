package buffer

import "github.com/HayatoShiba/ppcc/storage/page"

// LogFlusher makes log records durable up to the lsn.
// buffer manager calls this before writing out the page modified with the log record (write-ahead logging).
// see https://www.postgresql.org/docs/current/wal-intro.html
type LogFlusher interface {
	Flush(lsn page.LSN) error
}

// NopLogFlusher does nothing. this is used when log manager is not wired.
type NopLogFlusher struct{}

// Flush does nothing
func (NopLogFlusher) Flush(page.LSN) error {
	return nil
}
