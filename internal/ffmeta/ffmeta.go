// Package ffmeta serializes chapter markers into ffmpeg's FFMETADATA1
// control-file format, the input for the stream-copy remux pass.
//
// Serialization is pure and deterministic: the same marker sequence
// always produces byte-identical text.
package ffmeta

import (
	"strconv"
	"strings"

	"github.com/chaptifyapp/chaptify/internal/timecode"
)

// Header is the mandatory first line of an ffmetadata file.
const Header = ";FFMETADATA1\n"

const chapterSection = "[CHAPTER]"

// escaper handles the ffmetadata special characters. Values containing
// '=', ';', '#', '\' or newline must be escaped or ffmpeg misparses the
// section.
var escaper = strings.NewReplacer(
	`\`, `\\`,
	`=`, `\=`,
	`;`, `\;`,
	`#`, `\#`,
	"\n", `\`+"\n",
)

// EscapeValue escapes a tag value for use in an ffmetadata file.
func EscapeValue(s string) string {
	return escaper.Replace(s)
}

// Chapters renders the [CHAPTER] sections for the marker sequence.
// Timestamps use a fixed 1/1000 timebase (milliseconds).
func Chapters(markers []timecode.Marker) string {
	var b strings.Builder
	for _, m := range markers {
		b.WriteString("\n")
		b.WriteString(chapterSection)
		b.WriteString("\nTIMEBASE=1/1000\nSTART=")
		b.WriteString(strconv.FormatInt(m.StartMs, 10))
		b.WriteString("\nEND=")
		b.WriteString(strconv.FormatInt(m.EndMs, 10))
		b.WriteString("\ntitle=")
		b.WriteString(EscapeValue(m.Title))
		b.WriteString("\n")
	}
	return b.String()
}

// StripChapters removes every chapter section from dumped metadata,
// keeping the global tag header intact. Used when replacing an existing
// chapter table.
func StripChapters(metadata string) string {
	head, _, found := strings.Cut(metadata, chapterSection)
	if !found {
		return metadata
	}
	return head
}

// Merge combines existing dumped metadata with a fresh chapter table.
// Existing chapter sections are dropped; global tags survive the remux.
func Merge(existing string, markers []timecode.Marker) string {
	head := strings.TrimRight(StripChapters(existing), "\n")
	if head == "" {
		head = strings.TrimRight(Header, "\n")
	}
	return head + "\n" + Chapters(markers)
}

// File renders a complete standalone metadata file with nothing but the
// chapter table, for the dry-run output path.
func File(markers []timecode.Marker) string {
	return strings.TrimRight(Header, "\n") + "\n" + Chapters(markers)
}
