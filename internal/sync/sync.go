//go:build !demreader_deadlock

// Package sync switches the locks used by batch aggregation to go-deadlock when
// built with the demreader_deadlock tag.
package sync

import "sync"

type (
	Mutex     = sync.Mutex
	RWMutex   = sync.RWMutex
	WaitGroup = sync.WaitGroup
	Once      = sync.Once
)
