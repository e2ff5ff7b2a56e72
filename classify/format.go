// Package classify implements the classification pipeline (C8): format
// detection, content classification, confidence fusion, scenario routing,
// and a result cache backed by package cache. There is no direct teacher
// analogue (RuleGo does not classify payloads before routing them); this
// package follows spec.md §4.8 directly while reusing the teacher's
// priority-sorted capability-set idiom from engine/registry.go (components
// indexed and iterated in registration order) for FormatDetector dispatch.
package classify

import (
	"bytes"
	"sort"
	"strings"
)

// FormatDetection is one detector's verdict on a payload.
type FormatDetection struct {
	Format     string
	Confidence float64
	Method     string
	Details    string
}

// FormatDetector inspects raw content (and an optional file name) and
// reports its best guess at the payload's format.
type FormatDetector interface {
	// Priority orders detector evaluation; lower runs first. Ties keep
	// registration order, mirroring the teacher's stable-iteration registry.
	Priority() int
	Detect(content []byte, fileName string) FormatDetection
}

// ExtensionDetector classifies by the file name's extension.
type ExtensionDetector struct{ priority int }

func NewExtensionDetector(priority int) ExtensionDetector { return ExtensionDetector{priority: priority} }

func (d ExtensionDetector) Priority() int { return d.priority }

func (d ExtensionDetector) Detect(_ []byte, fileName string) FormatDetection {
	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".json"):
		return FormatDetection{Format: "JSON", Confidence: 0.9, Method: "extension", Details: ".json suffix"}
	case strings.HasSuffix(lower, ".xml"):
		return FormatDetection{Format: "XML", Confidence: 0.9, Method: "extension", Details: ".xml suffix"}
	case strings.HasSuffix(lower, ".csv"):
		return FormatDetection{Format: "CSV", Confidence: 0.9, Method: "extension", Details: ".csv suffix"}
	default:
		return FormatDetection{Format: "UNKNOWN", Confidence: 0, Method: "extension"}
	}
}

// ContentSniffDetector classifies by inspecting the payload's leading
// characters and structure: balanced braces for JSON, an angle-bracket
// root for XML, comma/newline structure for CSV.
type ContentSniffDetector struct{ priority int }

func NewContentSniffDetector(priority int) ContentSniffDetector {
	return ContentSniffDetector{priority: priority}
}

func (d ContentSniffDetector) Priority() int { return d.priority }

func (d ContentSniffDetector) Detect(content []byte, _ string) FormatDetection {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return FormatDetection{Format: "UNKNOWN", Confidence: 0, Method: "content-sniff"}
	}

	if (trimmed[0] == '{' || trimmed[0] == '[') && bracesBalanced(trimmed) {
		return FormatDetection{Format: "JSON", Confidence: 0.85, Method: "content-sniff", Details: "balanced braces"}
	}
	if trimmed[0] == '<' && bytes.HasSuffix(trimmed, []byte(">")) {
		return FormatDetection{Format: "XML", Confidence: 0.8, Method: "content-sniff", Details: "angle-bracket root"}
	}
	if looksLikeCSV(trimmed) {
		return FormatDetection{Format: "CSV", Confidence: 0.7, Method: "content-sniff", Details: "comma/newline structure"}
	}
	return FormatDetection{Format: "UNKNOWN", Confidence: 0, Method: "content-sniff"}
}

func bracesBalanced(content []byte) bool {
	depth := 0
	inString := false
	escaped := false
	for _, b := range content {
		switch {
		case escaped:
			escaped = false
		case inString && b == '\\':
			escaped = true
		case b == '"':
			inString = !inString
		case inString:
			// inside a string literal, braces don't count
		case b == '{' || b == '[':
			depth++
		case b == '}' || b == ']':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

func looksLikeCSV(content []byte) bool {
	lines := bytes.Split(content, []byte("\n"))
	if len(lines) < 2 {
		return false
	}
	first := bytes.Count(lines[0], []byte(","))
	if first == 0 {
		return false
	}
	for _, line := range lines[1 : min(len(lines), 4)] {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if bytes.Count(line, []byte(",")) != first {
			return false
		}
	}
	return true
}

// DetectFormat runs every detector in priority order and returns the
// highest-confidence verdict. An empty detector set, or one where every
// detector returns zero confidence, yields format UNKNOWN at confidence 0,
// per spec.md §4.8 step 1.
func DetectFormat(detectors []FormatDetector, content []byte, fileName string) FormatDetection {
	ordered := append([]FormatDetector(nil), detectors...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority() < ordered[j].Priority() })

	best := FormatDetection{Format: "UNKNOWN", Confidence: 0, Method: "none"}
	for _, d := range ordered {
		verdict := d.Detect(content, fileName)
		if verdict.Confidence > best.Confidence {
			best = verdict
		}
	}
	return best
}
