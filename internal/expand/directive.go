// SPDX-License-Identifier: MPL-2.0

package expand

import (
	"regexp"
	"strings"
)

// includePattern matches a quoted include directive anchored at a line start,
// where a line starts after either CR or LF. The directive itself is group 1.
// The leading \s* may run across preceding blank lines, and the rest of the
// directive's line belongs to the match up to, not including, the CR or LF.
var includePattern = regexp.MustCompile(`(?:\A|[\r\n])(\s*#include\s*"([^"]+)"[^\r\n]*)`)

// lineBreaks strips CR and LF from a matched directive before it is commented out.
var lineBreaks = strings.NewReplacer("\r", "", "\n", "")

type (
	// Directive is a quoted include directive found in a source text.
	Directive struct {
		// Start and End delimit the matched text as byte offsets into the source.
		Start, End int
		// Text is the full matched text, including any trailing content on the line.
		Text string
		// Path is the quoted include path, exactly as written.
		Path string
	}

	// Edit replaces the byte range [Start, End) of a source text.
	Edit struct {
		Start, End  int
		Replacement string
	}
)

// Scan returns the quoted include directives of src in document order.
func Scan(src string) []Directive {
	matches := includePattern.FindAllStringSubmatchIndex(src, -1)
	if len(matches) == 0 {
		return nil
	}

	directives := make([]Directive, 0, len(matches))
	for _, m := range matches {
		directives = append(directives, Directive{
			Start: m[2],
			End:   m[3],
			Text:  src[m[2]:m[3]],
			Path:  src[m[4]:m[5]],
		})
	}
	return directives
}

// CommentLine returns the directive rewritten as a single "// " comment line,
// without a trailing newline.
func (d Directive) CommentLine() string {
	return "// " + lineBreaks.Replace(d.Text)
}

// ApplyEdits applies edits to src in one pass. Edits must be sorted by Start
// and must not overlap; Scan produces directives that satisfy both.
func ApplyEdits(src string, edits []Edit) string {
	if len(edits) == 0 {
		return src
	}

	var out strings.Builder
	out.Grow(len(src))

	pos := 0
	for _, e := range edits {
		out.WriteString(src[pos:e.Start])
		out.WriteString(e.Replacement)
		pos = e.End
	}
	out.WriteString(src[pos:])

	return out.String()
}
