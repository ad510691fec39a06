package ui

import "sync/atomic"

type Stats struct {
	TotalChapters atomic.Int64
	TotalPages    atomic.Int64
	TotalOutputs  atomic.Int64
	TotalBytes    atomic.Int64
	FailedSeries  atomic.Int64
}
