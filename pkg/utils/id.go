package utils

import (
	"fmt"
	"sync/atomic"
	"time"
)

// idSeq reduces collisions when multiple ids are generated within the same
// nanosecond.
var idSeq uint64

// GenPostID returns a unique, time-ordered post id.
func GenPostID() string {
	n := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&idSeq, 1)
	return fmt.Sprintf("post-%d-%d", n, s)
}
