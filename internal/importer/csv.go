// Package importer loads contact records from user-supplied CSV files. The
// parser streams rows through a channel so arbitrarily large uploads never
// sit fully in memory.
package importer

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune // default ','
	LazyQuotes bool
}

// StreamCSV reads CSV rows into a channel. The caller must consume the row
// channel; errors arrive on the error channel. Both channels close when
// parsing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}
			for i, field := range record {
				record[i] = strings.TrimSpace(field)
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// headerAliases maps recognized CSV column names (lowercased) onto record
// fields. Unknown columns are ignored.
var headerAliases = map[string]string{
	"full_name":       "full_name",
	"name":            "full_name",
	"full name":       "full_name",
	"role":            "role",
	"title":           "role",
	"job title":       "role",
	"company":         "company",
	"organisation":    "company",
	"organization":    "company",
	"work_email":      "work_email",
	"email":           "work_email",
	"work email":      "work_email",
	"personal_emails": "personal_emails",
	"personal email":  "personal_emails",
	"phone":           "phone_numbers",
	"phone_numbers":   "phone_numbers",
	"phone number":    "phone_numbers",
	"country":         "country",
}

// Result is the outcome of one CSV import.
type Result struct {
	Contacts []model.ContactRecord
	Skipped  []model.ItemFailure
}

// ParseContacts streams r and maps each row to a contact record using the
// header row. Rows without a usable name are skipped with a reason; rows with
// an invalid email keep the record but drop the email.
func ParseContacts(ctx context.Context, r io.Reader, opts CSVOptions) (*Result, error) {
	rowCh, errCh := StreamCSV(ctx, r, opts)

	var fieldByCol []string
	res := &Result{}
	rowNum := 0
	for row := range rowCh {
		rowNum++
		if fieldByCol == nil {
			fieldByCol = mapHeader(row)
			continue
		}

		contact, reason := rowToContact(row, fieldByCol)
		if reason != "" {
			res.Skipped = append(res.Skipped, model.ItemFailure{
				Item:   "row " + strconv.Itoa(rowNum),
				Reason: reason,
			})
			continue
		}
		res.Contacts = append(res.Contacts, contact)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	if fieldByCol == nil {
		return nil, eris.New("importer: csv has no header row")
	}

	res.Contacts = model.MergeContacts(nil, res.Contacts)
	zap.L().Info("csv import parsed",
		zap.Int("contacts", len(res.Contacts)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

func mapHeader(header []string) []string {
	fields := make([]string, len(header))
	for i, col := range header {
		fields[i] = headerAliases[strings.ToLower(strings.TrimSpace(col))]
	}
	return fields
}

func rowToContact(row []string, fieldByCol []string) (model.ContactRecord, string) {
	c := model.ContactRecord{Source: model.SourceCSVUpload}
	for i, val := range row {
		if i >= len(fieldByCol) || val == "" {
			continue
		}
		switch fieldByCol[i] {
		case "full_name":
			c.FullName = val
		case "role":
			c.Role = val
		case "company":
			c.Company = val
		case "work_email":
			c.WorkEmail = strings.ToLower(val)
		case "personal_emails":
			c.PersonalEmails = append(c.PersonalEmails, splitMulti(val)...)
		case "phone_numbers":
			c.PhoneNumbers = append(c.PhoneNumbers, splitMulti(val)...)
		case "country":
			c.Country = val
		}
	}

	if c.FullName == "" {
		return model.ContactRecord{}, "missing name"
	}
	if c.WorkEmail != "" && !model.ValidEmail(c.WorkEmail) {
		c.WorkEmail = ""
	}
	return c.EnsureID(), ""
}

// splitMulti splits multi-value cells on ';' or ','.
func splitMulti(val string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(val, func(r rune) bool { return r == ';' || r == ',' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
