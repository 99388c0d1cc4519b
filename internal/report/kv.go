package report

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/shinji-kodama/cacti-sweep/internal/model"
)

// NameColumn is the first column of an exported key/value table.
const NameColumn = "name"

// ParseKV reads "key value" lines. The key is the first whitespace-delimited
// field and the value is the trimmed remainder, possibly empty. Blank lines
// are skipped and a repeated key keeps its last value.
func ParseKV(text string) map[string]string {
	values := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		key, value := line, ""
		if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
			key, value = line[:i], strings.TrimSpace(line[i:])
		}
		values[key] = value
	}
	return values
}

// ExportKV flattens every key/value file of dir into a table.
//
// Files are taken in name order, optionally filtered by extension. The
// header is NameColumn followed by the sorted keys of the first file; every
// row starts with the file's base name without extension and holds "" for
// header keys the file lacks. Keys that are not in the header are dropped.
// An empty directory yields a header-only table.
func ExportKV(dir, ext string) (*Table, error) {
	paths, err := listFiles(dir, ext)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitIOError,
			fmt.Sprintf("failed to read directory %s", dir), err)
	}

	t := &Table{Header: []string{NameColumn}}
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitIOError,
				fmt.Sprintf("failed to read %s", path), err)
		}
		values := ParseKV(decode(data))

		if i == 0 {
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			t.Header = append(t.Header, keys...)
		}

		row := make([]string, len(t.Header))
		row[0] = stem(path)
		for j, key := range t.Header[1:] {
			row[j+1] = values[key]
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
