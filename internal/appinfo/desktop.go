// Package appinfo resolves application names and icons from desktop entries.
package appinfo

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrNotApplication = errors.New("not an application")

// Entry is the part of a desktop entry the dock cares about.
type Entry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	Exec      string `json:"exec"`
	WMClass   string `json:"wm_class"`
	NoDisplay bool   `json:"no_display"`
}

// Parse reads the [Desktop Entry] group of a desktop entry file. Localized keys
// are ignored.
func Parse(r io.Reader) (Entry, error) {
	var (
		entry   Entry
		kind    string
		inGroup bool
		seen    bool
	)

	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			if !strings.HasSuffix(line, "]") {
				return Entry{}, fmt.Errorf("line %d: malformed group header", n)
			}
			inGroup = line == "[Desktop Entry]"
			seen = seen || inGroup
			continue
		}
		if !inGroup {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return Entry{}, fmt.Errorf("line %d: missing '='", n)
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		switch key {
		case "Type":
			kind = value
		case "Name":
			entry.Name = unescape(value)
		case "Icon":
			entry.Icon = value
		case "Exec":
			entry.Exec = stripFieldCodes(unescape(value))
		case "StartupWMClass":
			entry.WMClass = value
		case "NoDisplay", "Hidden":
			entry.NoDisplay = entry.NoDisplay || value == "true"
		}
	}
	if err := scanner.Err(); err != nil {
		return Entry{}, err
	}

	if !seen {
		return Entry{}, fmt.Errorf("missing [Desktop Entry] group")
	}
	if kind != "Application" {
		return Entry{}, fmt.Errorf("%w: type %q", ErrNotApplication, kind)
	}
	return entry, nil
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return strings.NewReplacer(`\s`, " ", `\n`, "\n", `\t`, "\t", `\r`, "\r", `\\`, `\`).Replace(s)
}

// stripFieldCodes removes %f style placeholders from an Exec value.
func stripFieldCodes(exec string) string {
	var b strings.Builder
	fields := strings.Fields(exec)
	for _, field := range fields {
		if len(field) == 2 && field[0] == '%' && field[1] != '%' {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.ReplaceAll(field, "%%", "%"))
	}
	return b.String()
}
