package transcript

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsingh-rishi/meeting-transcriber/model"
)

func TestFilename(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC.
	loc := time.FixedZone("EST", -5*3600)
	now := time.Date(2024, 3, 1, 23, 30, 0, 0, loc)
	assert.Equal(t, "meeting-transcript-2024-03-02.md", Filename(now))
}

func TestRender(t *testing.T) {
	f := NewFormatter("en-US", time.UTC)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := model.Transcript{
		{Timestamp: now, Speaker: "Speaker 1", Text: "hello world"},
		{Timestamp: now.Add(65 * time.Second), Speaker: "Speaker 1", Text: "second"},
	}

	got := Render(f, now, entries)
	want := "# Meeting Transcript\n\n" +
		"Date: 3/1/2024\n\n" +
		"[10:00:00 AM] Speaker 1:\nhello world\n\n" +
		"[10:01:05 AM] Speaker 1:\nsecond\n\n"
	assert.Equal(t, want, got)
}

func TestRender_Empty(t *testing.T) {
	f := NewFormatter("en-US", time.UTC)
	got := Render(f, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), nil)
	assert.Equal(t, "# Meeting Transcript\n\nDate: 3/1/2024\n\n", got)
}

func TestNewFormatter_Locales(t *testing.T) {
	ts := time.Date(2024, 3, 1, 14, 5, 9, 0, time.UTC)
	tests := []struct {
		locale    string
		wantDate  string
		wantClock string
	}{
		{"en-US", "3/1/2024", "2:05:09 PM"},
		{"en-GB", "01/03/2024", "14:05:09"},
		{"de-DE", "1.3.2024", "14:05:09"},
		{"fr", "01/03/2024", "14:05:09"},
		{"ja-JP", "2024/3/1", "14:05:09"},
		{"not a locale", "3/1/2024", "2:05:09 PM"},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			f := NewFormatter(tt.locale, time.UTC)
			assert.Equal(t, tt.wantDate, f.Date(ts))
			assert.Equal(t, tt.wantClock, f.Clock(ts))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)
	entries := model.Transcript{
		{Timestamp: base, Speaker: "Speaker 1", Text: "good morning"},
		{Timestamp: base.Add(2 * time.Second), Speaker: "Speaker 1", Text: "agenda: budget, hiring"},
		{Timestamp: base.Add(3 * time.Minute), Speaker: "Speaker 1", Text: "[laughs] ok: next"},
	}

	for _, locale := range []string{"en-US", "en-GB", "de", "ja"} {
		t.Run(locale, func(t *testing.T) {
			f := NewFormatter(locale, time.UTC)
			doc, err := Parse(f, Render(f, base, entries))
			require.NoError(t, err)
			require.Len(t, doc.Entries, len(entries))
			assert.True(t, doc.Date.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))

			for i, e := range entries {
				got := doc.Entries[i]
				assert.Equal(t, e.Speaker, got.Speaker)
				assert.Equal(t, e.Text, got.Text)
				assert.True(t, e.Timestamp.Truncate(time.Second).Equal(got.Time),
					"entry %d: got %s want %s", i, got.Time, e.Timestamp)
			}
		})
	}
}

func TestParse_MultiLineText(t *testing.T) {
	f := NewFormatter("en-GB", time.UTC)
	doc := strings.Join([]string{
		"# Meeting Transcript",
		"",
		"Date: 01/03/2024",
		"",
		"[09:00:00] Speaker 1:",
		"first line",
		"second line",
		"",
	}, "\n")

	got, err := Parse(f, doc)
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "first line\nsecond line", got.Entries[0].Text)
}

func TestParse_Errors(t *testing.T) {
	f := NewFormatter("en-US", time.UTC)
	tests := map[string]string{
		"missing title": "Date: 3/1/2024\n",
		"bad date":      "# Meeting Transcript\n\nDate: yesterday\n",
		"bad time":      "# Meeting Transcript\n\n[noon] Speaker 1:\nhi\n",
		"stray text":    "# Meeting Transcript\n\nhello\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(f, doc)
			assert.Error(t, err)
		})
	}
}
