//go:build demreader_deadlock

package sync

import (
	"github.com/sasha-s/go-deadlock"
)

type (
	Mutex     = deadlock.Mutex
	RWMutex   = deadlock.RWMutex
	WaitGroup = deadlock.WaitGroup
	Once      = deadlock.Once
)
