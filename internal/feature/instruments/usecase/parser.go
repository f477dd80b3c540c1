package usecase

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"universe_backend/internal/feature/instruments/domain"
	"universe_backend/internal/feature/instruments/domain/entity"
)

// Accepted column aliases, compared after lower-casing and trimming the header.
var (
	nameAliases       = []string{"name", "instrument", "instrument name", "company"}
	identifierAliases = []string{"isin", "identifier", "symbol", "code"}
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseFormat converts a user supplied format name into an entity.Format.
func ParseFormat(s string) (entity.Format, error) {
	switch f := entity.Format(strings.ToLower(strings.TrimSpace(s))); f {
	case entity.FormatAuto, entity.FormatCSV, entity.FormatJSON, entity.FormatText:
		return f, nil
	case "txt":
		return entity.FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", domain.ErrMalformedInput, s)
	}
}

// FormatFromFilename guesses the import format from a file extension.
// Unknown extensions fall back to content detection.
func FormatFromFilename(name string) entity.Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return entity.FormatCSV
	case ".json":
		return entity.FormatJSON
	case ".txt":
		return entity.FormatText
	default:
		return entity.FormatAuto
	}
}

// Parse decodes a raw snapshot and normalizes it into parsed rows.
// Decoding failures are reported as domain.ErrMalformedInput.
func Parse(r io.Reader, format entity.Format) ([]entity.ParsedRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: input is not valid UTF-8", domain.ErrMalformedInput)
	}

	if format == entity.FormatAuto {
		format = detectFormat(data)
	}

	var table []map[string]string
	switch format {
	case entity.FormatCSV:
		table, err = decodeCSV(data)
	case entity.FormatJSON:
		table, err = decodeJSON(data)
	case entity.FormatText:
		table = decodeText(data)
	default:
		err = fmt.Errorf("%w: unknown format %q", domain.ErrMalformedInput, format)
	}
	if err != nil {
		return nil, err
	}
	return ParseTable(table), nil
}

// ParseTable maps decoded rows onto ParsedRow values, one per input row and in
// input order. Column names are matched case-insensitively against the
// accepted aliases; a row without any matching column yields an empty field.
func ParseTable(table []map[string]string) []entity.ParsedRow {
	rows := make([]entity.ParsedRow, 0, len(table))
	for _, raw := range table {
		cols := normalizeColumns(raw)
		rows = append(rows, entity.ParsedRow{
			Name:       cleanName(pick(cols, nameAliases)),
			Identifier: strings.ToUpper(strings.TrimSpace(pick(cols, identifierAliases))),
		})
	}
	return rows
}

// LooksLikeISIN reports whether s has the shape of an ISIN:
// twelve characters, a two-letter country prefix and an alphanumeric rest.
func LooksLikeISIN(s string) bool {
	if len(s) != 12 {
		return false
	}
	for i, r := range s {
		if i < 2 && !isASCIILetter(r) {
			return false
		}
		if !isASCIILetter(r) && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func isASCIILetter(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}

func detectFormat(data []byte) entity.Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return entity.FormatJSON
	}
	return entity.FormatCSV
}

func decodeCSV(data []byte) ([]map[string]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true
	r.Comma = detectDelimiter(data)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header row", domain.ErrMalformedInput)
	}

	header := records[0]
	table := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			row[col] = rec[i]
		}
		table = append(table, row)
	}
	return table, nil
}

// detectDelimiter switches to ';' for exports whose header uses it exclusively.
func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.IndexByte(line, ';') >= 0 && bytes.IndexByte(line, ',') < 0 {
		return ';'
	}
	return ','
}

func decodeJSON(data []byte) ([]map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var objs []map[string]any
	if err := dec.Decode(&objs); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedInput, err)
	}

	table := make([]map[string]string, 0, len(objs))
	for i, obj := range objs {
		if obj == nil {
			return nil, fmt.Errorf("%w: element %d is not an object", domain.ErrMalformedInput, i)
		}
		row := make(map[string]string, len(obj))
		for k, v := range obj {
			row[k] = jsonScalar(v)
		}
		table = append(table, row)
	}
	return table, nil
}

func jsonScalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

// decodeText reads a universe listing as published by the broker: one
// "ISIN Name..." entry per line, with headers and page noise in between.
func decodeText(data []byte) []map[string]string {
	var table []map[string]string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "ISIN") || strings.Contains(line, "TRADING UNIVERSE") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || !LooksLikeISIN(fields[0]) {
			continue
		}
		table = append(table, map[string]string{
			"isin": fields[0],
			"name": strings.Join(fields[1:], " "),
		})
	}
	return table
}

// normalizeColumns lower-cases and trims column names. When two columns
// collapse onto the same name the first non-empty value in key order wins.
func normalizeColumns(raw map[string]string) map[string]string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := make(map[string]string, len(raw))
	for _, k := range keys {
		nk := strings.ToLower(strings.TrimSpace(k))
		v := strings.TrimSpace(raw[k])
		if existing, ok := cols[nk]; ok && existing != "" {
			continue
		}
		cols[nk] = v
	}
	return cols
}

func pick(cols map[string]string, aliases []string) string {
	for _, a := range aliases {
		if v := cols[a]; v != "" {
			return v
		}
	}
	return ""
}

func cleanName(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
