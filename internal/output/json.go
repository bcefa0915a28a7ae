// internal/output/json.go
package output

import "encoding/json"

// JSONFormatter outputs a Report as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSONFormatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format marshals the Report as indented JSON.
func (f *JSONFormatter) Format(report *Report) ([]byte, error) {
	r := *report
	r.DurationMs = r.Duration.Milliseconds()
	out, err := json.MarshalIndent(&r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}
