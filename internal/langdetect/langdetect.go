// Package langdetect resolves the source language of a PO catalog from its
// header metadata, falling back to content-based detection.
package langdetect

import (
	"sort"
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"

	"github.com/BemoBit/po-translator/internal/pofile"
)

// Names maps supported language codes to display names.
var Names = map[string]string{
	"en": "English",
	"fa": "Persian/Farsi",
	"ar": "Arabic",
	"zh": "Chinese",
	"fr": "French",
	"de": "German",
	"hi": "Hindi",
	"id": "Indonesian",
	"it": "Italian",
	"ja": "Japanese",
	"ko": "Korean",
	"pt": "Portuguese",
	"ru": "Russian",
	"es": "Spanish",
	"tr": "Turkish",
}

// Name returns the display name for a language code, or the code itself
// when unknown.
func Name(code string) string {
	if name, ok := Names[code]; ok {
		return name
	}
	return code
}

// List returns the known language codes sorted alphabetically.
func List() []string {
	codes := make([]string, 0, len(Names))
	for code := range Names {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// minSampleLen filters out short msgids that confuse content detection.
const minSampleLen = 10

// maxSamples bounds how many entries content detection inspects.
const maxSamples = 10

// FromDocument resolves the source language of a catalog. Header metadata
// wins over content detection. Returns "" when nothing can be resolved.
func FromDocument(doc *pofile.Document) string {
	if doc == nil {
		return ""
	}

	if code := fromHeader(doc); code != "" {
		return code
	}

	return fromContent(doc)
}

func fromHeader(doc *pofile.Document) string {
	if lang := doc.HeaderField("Language"); lang != "" {
		code := strings.ToLower(strings.SplitN(lang, "_", 2)[0])
		if _, ok := Names[code]; ok {
			return code
		}
		if _, err := language.Parse(code); err == nil {
			return code
		}
	}

	if team := strings.ToLower(doc.HeaderField("Language-Team")); team != "" {
		for code, name := range Names {
			if strings.Contains(team, strings.ToLower(name)) {
				return code
			}
		}
	}

	return ""
}

// fromContent runs whatlanggo over a bounded sample of msgids and takes a
// majority vote.
func fromContent(doc *pofile.Document) string {
	votes := make(map[string]int)
	sampled := 0

	for _, entry := range doc.Entries {
		if sampled >= maxSamples {
			break
		}
		if entry.Obsolete || len(entry.MsgID) < minSampleLen {
			continue
		}
		sampled++

		info := whatlanggo.Detect(entry.MsgID)
		code := info.Lang.Iso6391()
		if code == "" || !info.IsReliable() {
			continue
		}
		votes[code]++
	}

	var topCode string
	var topCount int
	for code, count := range votes {
		if count > topCount {
			topCode = code
			topCount = count
		}
	}
	return topCode
}
