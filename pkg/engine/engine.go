// Package engine evaluates scene scripts. It wraps zygomys in a sandboxed
// environment whose builtins construct surfaces, trim curves, loops and
// faces, and collects them into a scene.Scene.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/chazu/surftree/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError is a non-fatal error in user code, such as a parse error or a
// builtin rejecting its arguments.
type EvalError struct {
	Line    int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine runs scene scripts. It is safe for concurrent use; every call to
// Evaluate gets a fresh sandbox, so equal sources give equal scenes.
type Engine struct {
	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate runs source and returns the scene it built.
//
//   - On success: scene, nil, nil.
//   - On a parse or runtime error in the script: nil, eval errors, nil.
//   - On timeout or panic: nil, nil, error.
func (e *Engine) Evaluate(source string) (*scene.Scene, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("engine: panic during evaluation: %v", r)}
			}
		}()
		sc, evalErrs, err := evaluate(source)
		ch <- evalResult{scene: sc, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation)
}

func evaluate(source string) (*scene.Scene, []EvalError, error) {
	sc := scene.New()
	if strings.TrimSpace(source) == "" {
		return sc, nil, nil
	}

	// The sandbox keeps scripts away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, sc)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	return sc, nil, nil
}

// zygomys reports positions as "Error on line N: ..." or "line N: ...".
var linePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*`),
	regexp.MustCompile(`(?i)^line (\d+):\s*`),
}

// parseZygomysError turns an interpreter error into an EvalError, lifting
// the line number out of the message when there is one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range linePatterns {
		loc := re.FindStringSubmatchIndex(msg)
		if loc == nil {
			continue
		}
		line, _ := strconv.Atoi(msg[loc[2]:loc[3]])
		rest := strings.TrimSpace(msg[:loc[0]] + msg[loc[1]:])
		return []EvalError{{Line: line, Message: rest}}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
