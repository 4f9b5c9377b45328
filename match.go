package realtime

import "strings"

// Matches reports whether a subscription pattern matches an event name.
// Both are sequences of segments separated by '.'. A '*' segment matches
// exactly one event segment; a '**' segment matches any number of segments,
// including zero. '**' may appear anywhere in the pattern.
//
// Matches is pure and deterministic. Worst case is exponential for
// pathological multi-'**' patterns; real patterns carry at most a couple of
// wildcard segments.
func Matches(pattern, eventName string) bool {
	return matchSegments(strings.Split(pattern, "."), strings.Split(eventName, "."), 0, 0)
}

func matchSegments(pattern, event []string, i, j int) bool {
	for i < len(pattern) && j < len(event) {
		switch pattern[i] {
		case "**":
			if i == len(pattern)-1 {
				return true
			}
			// Try every possible consumption count for the remainder.
			for k := j; k <= len(event); k++ {
				if matchSegments(pattern, event, i+1, k) {
					return true
				}
			}
			return false
		case "*", event[j]:
			i++
			j++
		default:
			return false
		}
	}
	// Trailing '**' segments legally match zero remaining segments.
	for i < len(pattern) && pattern[i] == "**" {
		i++
	}
	return i == len(pattern) && j == len(event)
}
