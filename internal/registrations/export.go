package registrations

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/brightpath-foundation/backend/internal/models"
)

// emptyCell marks a response the visitor never gave (hidden or optional
// fields). Distinct from an empty string the visitor typed.
const emptyCell = "—"

// WriteCSV streams an event's submissions as CSV. One column per field
// definition, in form order (step, then intra-step order), header cells are
// the field labels; responses keyed by deleted fields are omitted. Checkbox
// values render as Yes/No, files as their original filename.
func WriteCSV(w io.Writer, fields []models.FieldDefinition, subs []models.Submission) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(fields))
	for _, f := range fields {
		header = append(header, f.Label)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, sub := range subs {
		row := make([]string, 0, len(header))
		for _, f := range fields {
			raw, ok := sub.Responses[f.ID.String()]
			if !ok || raw == nil {
				row = append(row, emptyCell)
				continue
			}
			row = append(row, renderCell(f, raw))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func renderCell(f models.FieldDefinition, raw any) string {
	switch f.Type {
	case models.FieldCheckbox:
		if isTruthy(raw) {
			return "Yes"
		}
		return "No"
	case models.FieldFile:
		return fileName(raw)
	}

	switch v := raw.(type) {
	case string:
		if v == "" {
			return emptyCell
		}
		return v
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case []any:
		out := ""
		for i, item := range v {
			if i > 0 {
				out += "; "
			}
			out += fmt.Sprint(item)
		}
		return out
	}
	return fmt.Sprint(raw)
}

func isTruthy(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}

// fileName digs the original filename out of a stored file value, which
// arrives either as the typed struct or as the decoded JSON map.
func fileName(raw any) string {
	switch v := raw.(type) {
	case models.FileValue:
		if v.Name != "" {
			return v.Name
		}
	case *models.FileValue:
		if v != nil && v.Name != "" {
			return v.Name
		}
	case map[string]any:
		if name, ok := v["name"].(string); ok && name != "" {
			return name
		}
	}
	return emptyCell
}
