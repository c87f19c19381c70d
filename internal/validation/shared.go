package validation

import (
	"fmt"
	"sort"
	"strings"
)

// Error collects field-level validation failures keyed by the JSON field name.
type Error struct {
	Fields map[string]string
}

// Error joins the field messages in field order so the text is stable.
func (e *Error) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, field := range fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(msgs, "; ")
}
