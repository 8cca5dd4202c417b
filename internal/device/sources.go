// Package device – source list parsing.
package device

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultPort is the conventional device communication port.
	DefaultPort = 4370
	// DefaultCredential is the device comm key used when none is configured.
	DefaultCredential = 0
)

// ParseSources reads a newline-delimited source list in the form
// "address[,port[,credential]]". Blank lines and lines starting with '#' are
// ignored. A malformed entry is skipped and reported as an error without
// affecting the remaining entries.
func ParseSources(text string) ([]Source, []error) {
	var (
		sources []Source
		errs    []error
	)
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		src, err := parseSourceLine(line)
		if err != nil {
			errs = append(errs, fmt.Errorf("source list line %d: %w", i+1, err))
			continue
		}
		sources = append(sources, src)
	}
	return sources, errs
}

func parseSourceLine(line string) (Source, error) {
	parts := strings.Split(line, ",")
	src := Source{
		Address:    strings.TrimSpace(parts[0]),
		Port:       DefaultPort,
		Credential: DefaultCredential,
	}
	if src.Address == "" {
		return Source{}, fmt.Errorf("missing address in %q", line)
	}
	if len(parts) >= 2 {
		if p := strings.TrimSpace(parts[1]); p != "" {
			port, err := strconv.Atoi(p)
			if err != nil || port <= 0 || port > 65535 {
				return Source{}, fmt.Errorf("invalid port %q", p)
			}
			src.Port = port
		}
	}
	if len(parts) >= 3 {
		if c := strings.TrimSpace(parts[2]); c != "" {
			cred, err := strconv.Atoi(c)
			if err != nil {
				return Source{}, fmt.Errorf("invalid credential %q", c)
			}
			src.Credential = cred
		}
	}
	if len(parts) > 3 {
		return Source{}, fmt.Errorf("too many fields in %q", line)
	}
	return src, nil
}
