package events

import "strings"

// MatchTopic matches a dot-separated topic against a pattern.
// Supports "*" as a single-segment wildcard, ">" as a multi-segment suffix
// wildcard (NATS-style), and a trailing "*" inside a segment as a prefix
// match ("event-*" matches "event-created").
func MatchTopic(pattern, topic string) bool {
	if pattern == topic {
		return true
	}

	patParts := strings.Split(pattern, ".")
	topParts := strings.Split(topic, ".")

	for i, pp := range patParts {
		if pp == ">" {
			// ">" matches one or more remaining segments.
			return i < len(topParts)
		}
		if i >= len(topParts) {
			return false
		}
		if !matchSegment(pp, topParts[i]) {
			return false
		}
	}

	return len(patParts) == len(topParts)
}

func matchSegment(pattern, seg string) bool {
	if pattern == "*" || pattern == seg {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(seg, prefix)
	}
	return false
}

// ParseTopics splits a comma-separated topic filter, dropping blanks.
func ParseTopics(q string) []string {
	var topics []string
	for _, t := range strings.Split(q, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}
