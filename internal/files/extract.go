package files

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// maxCSVPreviewRows bounds how much of a CSV file gets rendered into the
// injected context; beyond this the extractor summarizes instead.
const maxCSVPreviewRows = 20

// Extract renders an artifact's raw bytes as plain text suitable for
// injection into a chat request's context, dispatching on media type.
// Unsupported types get a placeholder note rather than an error, so one
// unreadable file never blocks the others referenced on the same request.
func Extract(mediaType string, data []byte) string {
	switch {
	case mediaType == "text/plain" || mediaType == "text/markdown":
		return string(data)
	case mediaType == "text/csv":
		return extractCSV(data)
	case mediaType == "application/json":
		return extractJSON(data)
	case mediaType == "text/html" || mediaType == "application/xml" || mediaType == "text/xml":
		return extractMarkup(data)
	default:
		return fmt.Sprintf("[unsupported file type %q; %d bytes not extracted]", mediaType, len(data))
	}
}

func extractCSV(data []byte) string {
	r := csv.NewReader(bytes.NewReader(data))
	var rows [][]string
	total := 0
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		total++
		if len(rows) <= maxCSVPreviewRows {
			rows = append(rows, record)
		}
	}
	if len(rows) == 0 {
		return "[empty csv file]"
	}

	var b strings.Builder
	header := rows[0]
	b.WriteString(strings.Join(header, ","))
	b.WriteString("\n")
	body := rows[1:]
	if len(body) > maxCSVPreviewRows {
		body = body[:maxCSVPreviewRows]
	}
	for _, row := range body {
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}
	if total-1 > maxCSVPreviewRows {
		fmt.Fprintf(&b, "... (%d more rows truncated)\n", total-1-maxCSVPreviewRows)
	}
	return b.String()
}

func extractJSON(data []byte) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		return fmt.Sprintf("[invalid json: %v]", err)
	}

	var top map[string]json.RawMessage
	summary := ""
	if err := json.Unmarshal(data, &top); err == nil {
		names := make([]string, 0, len(top))
		for k := range top {
			names = append(names, k)
		}
		sort.Strings(names)

		keys := make([]string, 0, len(names))
		for _, k := range names {
			keys = append(keys, fmt.Sprintf("%s: %s", k, jsonValueKind(top[k])))
		}
		summary = fmt.Sprintf("top-level keys: %s\n\n", strings.Join(keys, ", "))
	}
	return summary + pretty.String()
}

func jsonValueKind(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0:
		return "unknown"
	case trimmed[0] == '{':
		return "object"
	case trimmed[0] == '[':
		return "array"
	case trimmed[0] == '"':
		return "string"
	case bytes.Equal(trimmed, []byte("true")) || bytes.Equal(trimmed, []byte("false")):
		return "boolean"
	case bytes.Equal(trimmed, []byte("null")):
		return "null"
	default:
		return "number"
	}
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func extractMarkup(data []byte) string {
	text := tagPattern.ReplaceAllString(string(data), " ")
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "[no extractable text content]"
	}
	return text
}
