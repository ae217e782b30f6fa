package agent

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// defaultLoopWindow is the number of recent actions inspected for a
// repeating pattern.
const defaultLoopWindow = 6

// actionSignature computes a deterministic signature for one action
// (tool name plus a hash of its arguments).
func actionSignature(a Action) string {
	// json.Marshal sorts map keys, so equal argument maps hash equally.
	encoded, err := json.Marshal(a.Args)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%v", a.Args))
	}
	h := sha256.Sum256(encoded)
	return fmt.Sprintf("%s:%x", a.Tool, h[:8])
}

// loopTracker records executed action signatures and flags repetition.
type loopTracker struct {
	sigs   []string
	window int
}

func newLoopTracker(window int) *loopTracker {
	if window <= 0 {
		window = defaultLoopWindow
	}
	return &loopTracker{window: window}
}

// record adds the signatures of one dispatched batch.
func (t *loopTracker) record(actions []Action) {
	for _, a := range actions {
		t.sigs = append(t.sigs, actionSignature(a))
	}
	if len(t.sigs) > t.window {
		t.sigs = t.sigs[len(t.sigs)-t.window:]
	}
}

// looping reports whether the last window actions follow a repeating
// pattern of length 1, 2, or 3.
func (t *loopTracker) looping() bool {
	if len(t.sigs) < t.window {
		return false
	}
	sigs := t.sigs[len(t.sigs)-t.window:]

	for patternLen := 1; patternLen <= 3; patternLen++ {
		if t.window%patternLen != 0 {
			continue
		}
		pattern := sigs[:patternLen]
		allMatch := true
		for i := patternLen; i < t.window && allMatch; i += patternLen {
			for j := 0; j < patternLen; j++ {
				if sigs[i+j] != pattern[j] {
					allMatch = false
					break
				}
			}
		}
		if allMatch {
			return true
		}
	}
	return false
}
