package adapter

import (
	"strings"
	"time"
)

// BackoffMilliseconds is the quartic retry delay: 1000 * n^4. This is
// not exponential backoff; at the default cap of 24 attempts the last
// retry (after attempt 23) waits 1000 * 23^4 ms, about 3.2 days, and
// the 23 retry delays add up to roughly 16.6 days.
func BackoffMilliseconds(attempt int) int64 {
	n := int64(attempt)
	return 1000 * n * n * n * n
}

// FormatError renders an error for persistence in JobRecord.LastError:
// the error's message followed by its stack trace (if the error carries
// one), joined with a newline.
func FormatError(err error) string {
	type stackTracer interface {
		Stack() string
	}

	var b strings.Builder
	b.WriteString(err.Error())

	if st, ok := err.(stackTracer); ok && st.Stack() != "" {
		b.WriteString("\n")
		b.WriteString(st.Stack())
	}

	return b.String()
}

func backoffDuration(attempt int) time.Duration {
	return time.Duration(BackoffMilliseconds(attempt)) * time.Millisecond
}
