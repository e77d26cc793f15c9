// Package transcript renders a recorded transcript to the exported document
// and parses such documents back.
package transcript

import (
	"bufio"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/meeting-transcriber/model"
)

// Title is the first line of every exported document.
const Title = "# Meeting Transcript"

// ContentType of the exported document.
const ContentType = "text/markdown"

// Filename returns the download name for a transcript exported at now. The
// date is the UTC calendar date.
func Filename(now time.Time) string {
	return fmt.Sprintf("meeting-transcript-%s.md", now.UTC().Format("2006-01-02"))
}

// Render produces the exported document. now supplies the header date.
func Render(f Formatter, now time.Time, entries model.Transcript) string {
	var b strings.Builder
	b.WriteString(Title + "\n\n")
	fmt.Fprintf(&b, "Date: %s\n\n", f.Date(now))
	for _, e := range entries {
		fmt.Fprintf(&b, "[%s] %s:\n%s\n\n", f.Clock(e.Timestamp), e.Speaker, e.Text)
	}
	return b.String()
}

// ParsedEntry is an entry recovered from a document. Time carries the
// document date combined with the entry's clock time, at the precision the
// locale renders.
type ParsedEntry struct {
	Time    time.Time
	Speaker string
	Text    string
}

// Document is a parsed export.
type Document struct {
	Date    time.Time
	Entries []ParsedEntry
}

var entryHeader = regexp.MustCompile(`^\[([^\]]+)\] (.+):$`)

// Parse reads a document produced by Render with the same formatter.
func Parse(f Formatter, doc string) (Document, error) {
	var out Document
	sc := bufio.NewScanner(strings.NewReader(doc))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !sc.Scan() || strings.TrimSpace(sc.Text()) != Title {
		return out, errors.New("transcript: missing title")
	}

	var (
		cur     *ParsedEntry
		body    []string
		lineNum = 1
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = strings.Join(body, "\n")
		out.Entries = append(out.Entries, *cur)
		cur, body = nil, nil
	}

	for sc.Scan() {
		lineNum++
		line := sc.Text()
		switch {
		case cur == nil && strings.HasPrefix(line, "Date: "):
			d, err := time.ParseInLocation(f.DateLayout, strings.TrimPrefix(line, "Date: "), f.location())
			if err != nil {
				return out, errors.Wrapf(err, "transcript: line %d: bad date", lineNum)
			}
			out.Date = d
		case cur == nil && entryHeader.MatchString(line):
			m := entryHeader.FindStringSubmatch(line)
			clock, err := time.ParseInLocation(f.TimeLayout, m[1], f.location())
			if err != nil {
				return out, errors.Wrapf(err, "transcript: line %d: bad time", lineNum)
			}
			cur = &ParsedEntry{Time: onDate(out.Date, clock), Speaker: m[2]}
		case cur != nil && line == "":
			flush()
		case cur != nil:
			body = append(body, line)
		case strings.TrimSpace(line) == "":
		default:
			return out, errors.Errorf("transcript: line %d: unexpected %q", lineNum, line)
		}
	}
	if err := sc.Err(); err != nil {
		return out, errors.Wrap(err, "transcript: read")
	}
	flush()
	return out, nil
}

func onDate(date, clock time.Time) time.Time {
	if date.IsZero() {
		return clock
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, clock.Location())
}
