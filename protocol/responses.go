package protocol

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
)

// ContainsError reports whether a command response signals failure.
func ContainsError(response []byte) bool {
	return bytes.Contains(response, []byte(ErrorMarker))
}

// ParseListResponse parses the output of the "list" command.
//
// Each file is reported on its own line as two whitespace-separated fields:
//
//	<size>  <name>
//
// Lines that do not have that shape (the echoed command, blank lines, the
// prompt) are skipped. A response containing ErrorMarker yields no entries.
func ParseListResponse(response []byte) []FileEntry {
	if ContainsError(response) {
		return nil
	}

	var entries []FileEntry
	scanner := bufio.NewScanner(bytes.NewReader(response))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasSuffix(line, Prompt) {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}

		size, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil || size < 0 {
			continue
		}

		entries = append(entries, FileEntry{Name: fields[1], Size: size})
	}

	return entries
}

// FormatListResponse renders entries the way the bootloader prints them.
func FormatListResponse(entries []FileEntry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(strconv.FormatInt(e.Size, 10))
		b.WriteString("  ")
		b.WriteString(e.Name)
		b.WriteString("\r\n")
	}
	return b.String()
}

// ParseApplyOutcome scans accumulated bootloader output for the result of
// applying an upgrade. done is false while neither marker has been seen.
//
// Matching is a plain substring search, so unrelated output containing a
// marker is taken as the outcome.
func ParseApplyOutcome(output []byte) (done, ok bool) {
	if bytes.Contains(output, []byte(ApplySucceededMarker)) {
		return true, true
	}
	if bytes.Contains(output, []byte(ApplyFailedMarker)) {
		return true, false
	}
	return false, false
}

// TrimResponse strips the trailing prompt and surrounding whitespace.
func TrimResponse(response []byte) string {
	s := strings.TrimSuffix(string(response), Prompt)
	return strings.TrimSpace(s)
}
