// Package export writes the seed catalog to CSV.
package export

import (
	"encoding/csv"
	"io"
	"time"

	"github.com/seedkeeper/seedkeeper/pkg/merge"
	"github.com/seedkeeper/seedkeeper/pkg/schema"
	"github.com/seedkeeper/seedkeeper/pkg/storage"
)

const timeLayout = "2006-01-02 15:04:05"

// Header returns the CSV header for reg: the record id, one column per field
// label, the timestamps and the derived source domain.
func Header(reg *schema.Registry) []string {
	fields := reg.Fields()
	header := make([]string, 0, len(fields)+4)
	header = append(header, "ID")
	for _, f := range fields {
		header = append(header, f.Label)
	}
	return append(header, "Created", "Updated", "Source Domain")
}

// Row renders one seed in Header order.
func Row(reg *schema.Registry, s storage.Seed) []string {
	fields := reg.Fields()
	row := make([]string, 0, len(fields)+4)
	row = append(row, s.UID)
	for _, f := range fields {
		row = append(row, cell(f, s.Value(f.Key)))
	}

	domain, _ := SourceDomain(merge.FormatValue(s.Value("source_url")))
	return append(row, formatTime(s.CreatedAt), formatTime(s.UpdatedAt), domain)
}

// WriteCSV writes the header and every seed to w.
func WriteCSV(w io.Writer, reg *schema.Registry, seeds []storage.Seed) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(reg)); err != nil {
		return err
	}
	for _, s := range seeds {
		if err := cw.Write(Row(reg, s)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cell(f schema.FieldSpec, v any) string {
	if v == nil {
		if f.Kind == schema.KindBoolean {
			return "No"
		}
		return ""
	}
	if f.Kind == schema.KindBoolean {
		if s, ok := v.(string); ok {
			switch s {
			case "1", "true", "yes", "Yes":
				return "Yes"
			}
			return "No"
		}
	}
	return merge.FormatValue(v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}
