package pofile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePO = `# Translator note.
msgid ""
msgstr ""
"Project-Id-Version: demo 1.0\n"
"Language: en\n"
"Content-Type: text/plain; charset=UTF-8\n"
"Plural-Forms: nplurals=2; plural=(n != 1);\n"

#: src/main.c:42
msgid "Hello"
msgstr "Bonjour"

msgctxt "menu"
msgid "Open"
msgstr ""

msgid "One file"
msgid_plural "%d files"
msgstr[0] ""
msgstr[1] ""

#~ msgid "Old entry"
#~ msgstr "Ancienne"
`

func TestParse_Basics(t *testing.T) {
	doc, err := Parse(strings.NewReader(samplePO))
	require.NoError(t, err)
	require.Len(t, doc.Entries, 4)

	assert.Equal(t, "en", doc.HeaderField("Language"))
	assert.Equal(t, "demo 1.0", doc.HeaderField("Project-Id-Version"))
	assert.Equal(t, 2, doc.Nplurals())

	hello := doc.Entries[0]
	assert.Equal(t, "Hello", hello.MsgID)
	assert.Equal(t, "Bonjour", hello.MsgStr)
	assert.Equal(t, []string{"src/main.c:42"}, hello.References)
	assert.True(t, hello.IsTranslated())

	open := doc.Entries[1]
	assert.Equal(t, "menu", open.MsgCtxt)
	assert.Equal(t, "menu\x04Open", open.Key())
	assert.False(t, open.IsTranslated())

	plural := doc.Entries[2]
	assert.Equal(t, "%d files", plural.MsgIDPlural)
	assert.Len(t, plural.MsgStrPlural, 2)
	assert.False(t, plural.IsTranslated())

	assert.True(t, doc.Entries[3].Obsolete)
}

func TestParse_MultilineStrings(t *testing.T) {
	src := `msgid ""
msgstr ""
"Language: de\n"

msgid ""
"first line\n"
"second line"
msgstr ""
"erste Zeile\n"
"zweite Zeile"
`
	doc, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, doc.Entries, 1)
	assert.Equal(t, "first line\nsecond line", doc.Entries[0].MsgID)
	assert.Equal(t, "erste Zeile\nzweite Zeile", doc.Entries[0].MsgStr)
}

func TestWrite_RoundTrip(t *testing.T) {
	doc, err := Parse(strings.NewReader(samplePO))
	require.NoError(t, err)

	doc.Entries[1].MsgStr = "Ouvrir"
	doc.Entries[2].MsgStrPlural[0] = "Un fichier"
	doc.Entries[2].MsgStrPlural[1] = "%d fichiers"

	var buf bytes.Buffer
	require.NoError(t, doc.Write(&buf))

	again, err := Parse(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, again.Entries, len(doc.Entries))

	for i, want := range doc.Entries {
		got := again.Entries[i]
		assert.Equal(t, want.MsgID, got.MsgID, "entry %d", i)
		assert.Equal(t, want.MsgCtxt, got.MsgCtxt, "entry %d", i)
		assert.Equal(t, want.MsgStr, got.MsgStr, "entry %d", i)
		assert.Equal(t, want.Obsolete, got.Obsolete, "entry %d", i)
	}
	assert.Equal(t, "Un fichier", again.Entries[2].MsgStrPlural[0])
	assert.Equal(t, "%d fichiers", again.Entries[2].MsgStrPlural[1])
}

func TestSetHeaderField(t *testing.T) {
	doc, err := Parse(strings.NewReader(samplePO))
	require.NoError(t, err)

	doc.SetHeaderField("Language", "fa")
	assert.Equal(t, "fa", doc.HeaderField("Language"))

	doc.SetHeaderField("X-Generator", "po-translator")
	assert.Equal(t, "po-translator", doc.HeaderField("X-Generator"))
	// existing fields survive the insert
	assert.Equal(t, "demo 1.0", doc.HeaderField("Project-Id-Version"))
}

func TestStats(t *testing.T) {
	doc, err := Parse(strings.NewReader(samplePO))
	require.NoError(t, err)

	total, translated, untranslated := doc.Stats()
	assert.Equal(t, 3, total) // obsolete entry excluded
	assert.Equal(t, 1, translated)
	assert.Equal(t, 2, untranslated)
}

func TestQuoteUnquote_Escapes(t *testing.T) {
	value := "tab\there \"quoted\" back\\slash"
	assert.Equal(t, value, unquote(quote(value)))
}

func TestParse_TrailingCommentBlockKeepsHeader(t *testing.T) {
	src := `msgid ""
msgstr ""
"Language: en\n"
"Content-Type: text/plain; charset=UTF-8\n"

msgid "Hello"
msgstr "Bonjour"

# Stray trailing note with no message.
# Second line of the note.
`
	doc, err := Parse(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, "en", doc.HeaderField("Language"))
	assert.Equal(t, "text/plain; charset=UTF-8", doc.HeaderField("Content-Type"))
	require.Len(t, doc.Entries, 1)

	var buf bytes.Buffer
	require.NoError(t, doc.Write(&buf))
	assert.Contains(t, buf.String(), "Language: en")
}
