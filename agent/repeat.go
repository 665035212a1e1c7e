package agent

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// invocationSignature computes a deterministic signature for an invocation
// (name plus a hash of its parameters), used for repeat detection.
func invocationSignature(inv *Invocation) string {
	keys := make([]string, 0, len(inv.Params))
	for k := range inv.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(inv.Params[k])
		sb.WriteByte('\n')
	}
	h := sha256.Sum256([]byte(sb.String()))
	return fmt.Sprintf("%s:%x", inv.Name, h[:8])
}

// DetectRepeat reports whether the last window signatures form a repeating
// cycle of length 1, 2, or 3. A repeating cycle means the model is stuck
// re-issuing the same calls; the driver injects a corrective message
// rather than failing the task.
func DetectRepeat(signatures []string, window int) bool {
	if window <= 0 || len(signatures) < window {
		return false
	}
	recent := signatures[len(signatures)-window:]

	for cycleLen := 1; cycleLen <= 3; cycleLen++ {
		if window%cycleLen != 0 {
			continue
		}
		cycle := recent[:cycleLen]
		match := true
		for i := cycleLen; i < window && match; i += cycleLen {
			for j := 0; j < cycleLen; j++ {
				if recent[i+j] != cycle[j] {
					match = false
					break
				}
			}
		}
		if match {
			return true
		}
	}
	return false
}
