package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/surftree/pkg/scene"
)

// EvalTimeout is the hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// ErrSuperseded is returned when a newer evaluation started before this
// one finished.
var ErrSuperseded = errors.New("engine: evaluation superseded by newer request")

type evalResult struct {
	scene  *scene.Scene
	errors []EvalError
	err    error
}

// waitWithTimeout waits for the result on ch. A result whose generation
// is no longer current is discarded. On timeout the goroutine keeps
// running and its result is dropped when it arrives.
func waitWithTimeout(ch <-chan evalResult, gen uint64, mu *sync.Mutex, current *uint64) (*scene.Scene, []EvalError, error) {
	timer := time.NewTimer(EvalTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		latest := *current
		mu.Unlock()
		if gen != latest {
			return nil, nil, ErrSuperseded
		}
		return res.scene, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("engine: evaluation timed out after %s", EvalTimeout)
	}
}
