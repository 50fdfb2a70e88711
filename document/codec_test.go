package document_test

import (
	"strings"
	"testing"

	"github.com/alwitt/karte/document"
	"github.com/alwitt/karte/models"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestEncodeDocumentLayout(t *testing.T) {
	assert := assert.New(t)

	encoded, err := document.Encode(models.ClinicalNote{
		PatientName:  "Taro Yamada",
		PatientID:    "p-001",
		VisitDate:    "2024-05-01",
		Prescription: "Drug A three times a day",
		Subjective:   "headache since yesterday",
		Objective:    "temperature 37.8",
		Assessment:   "common cold",
		Plan:         "rest and fluids",
	})
	assert.Nil(err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "encoded_note", encoded)
}

func TestEncodeDecodeJapaneseNote(t *testing.T) {
	assert := assert.New(t)

	note := models.ClinicalNote{
		PatientName:  "山田太郎",
		PatientID:    "p-001",
		VisitDate:    "2024-05-01",
		Prescription: "薬A 1日3回",
		Subjective:   "主観s",
		Objective:    "客観o",
		Assessment:   "評価a",
		Plan:         "計画p",
	}

	encoded, err := document.Encode(note)
	assert.Nil(err)
	// Unicode is written as-is
	assert.Contains(string(encoded), "patient_name: 山田太郎\n")
	assert.True(strings.HasPrefix(string(encoded), "---\n"))

	parsed, err := document.Decode(encoded)
	assert.Nil(err)
	assert.Equal(note, parsed.Note)
	assert.Empty(parsed.Missing)
	assert.Equal(document.LayoutInline, parsed.Layout)
	assert.Contains(parsed.Body, "# 記録本文")
	assert.Contains(parsed.Body, "- S: 主観s\n")
	assert.Contains(parsed.Body, "- P: 計画p\n")
}

func TestDecodeValuesLookingLikeDelimiters(t *testing.T) {
	assert := assert.New(t)

	note := models.ClinicalNote{
		PatientName:  "---",
		PatientID:    "p_002",
		VisitDate:    "2024-05-02",
		Prescription: "first line\n---\nafter the marker",
		Subjective:   "---\n---",
		Objective:    "...\n---\n",
		Assessment:   "- S: not a bullet\n# not a heading",
		Plan:         "",
	}

	encoded, err := document.Encode(note)
	assert.Nil(err)

	parsed, err := document.Decode(encoded)
	assert.Nil(err)
	assert.Equal(note, parsed.Note)
	assert.Empty(parsed.Missing)
}

func TestEncodeDecodeWhitespaceShapedValues(t *testing.T) {
	assert := assert.New(t)

	values := []string{
		"\tx\ny",
		"\nx",
		"\n",
		"\n---\n",
		"\t---\n---",
		"x\n\n",
		"x\n\n\n",
		"  indented first\nsecond",
		"first\n  indented second",
		"trailing space \nnext",
		"a\n   \nb",
		"\t",
		" ",
		" padded ",
		"tab\tinside\nsecond",
		"crlf\r\nline",
		"全角\u3000スペース\n次の行",
		"line\u2028separator",
		"\ufeffbom",
	}

	for _, value := range values {
		note := models.ClinicalNote{
			PatientName:  "山田太郎",
			PatientID:    "p-001",
			VisitDate:    "2024-05-01",
			Prescription: value,
			Subjective:   value,
			Objective:    "o",
			Assessment:   value,
			Plan:         "p",
		}

		encoded, err := document.Encode(note)
		assert.Nil(err, "%q", value)

		parsed, err := document.Decode(encoded)
		assert.Nil(err, "%q", value)
		assert.Equal(note, parsed.Note, "%q", value)
		assert.Empty(parsed.Missing, "%q", value)
	}
}

func TestEncodeMultiLineValueAsLiteralBlock(t *testing.T) {
	assert := assert.New(t)

	encoded, err := document.Encode(models.ClinicalNote{
		PatientName:  "山田太郎",
		PatientID:    "p-001",
		VisitDate:    "2024-05-01",
		Prescription: "薬A 1日3回\n薬B 就寝前",
		Subjective:   "s",
		Objective:    "o",
		Assessment:   "a",
		Plan:         "p",
	})
	assert.Nil(err)
	assert.Contains(string(encoded), "prescription: |-\n    薬A 1日3回\n    薬B 就寝前\n")
}

// noteValueGenerator multi-line values mixing Japanese, ASCII, YAML-significant lines,
// and whitespace at the edges of lines and values
func noteValueGenerator() *rapid.Generator[string] {
	line := rapid.OneOf(
		rapid.StringMatching(`[A-Za-z0-9ぁ-んァ-ン一-龥、。：:#!?\-]{1,20}`),
		rapid.StringMatching(`[ \t]{0,3}[A-Za-z0-9一-龥 \t]{0,10}[ \t]{0,3}`),
		rapid.SampledFrom([]string{
			"---", "...", "- S: fake", "null", "yes", "~", "# heading", "2024-05-01", "'quoted'",
			"", " ", "\t", "\t---", " ---", "|", ">", "\"", "\u3000",
		}),
	)
	return rapid.Custom(func(t *rapid.T) string {
		lines := rapid.SliceOfN(line, 0, 5).Draw(t, "lines")
		value := strings.Join(lines, "\n")
		if rapid.Bool().Draw(t, "leading_newline") {
			value = "\n" + value
		}
		if rapid.Bool().Draw(t, "trailing_newline") {
			value += "\n"
		}
		return value
	})
}

func TestEncodeDecodeRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		note := models.ClinicalNote{
			PatientName:  noteValueGenerator().Draw(t, "patient_name"),
			PatientID:    rapid.StringMatching(`[A-Za-z0-9_-]{0,12}`).Draw(t, "patient_id"),
			VisitDate:    noteValueGenerator().Draw(t, "visit_date"),
			Prescription: noteValueGenerator().Draw(t, "prescription"),
			Subjective:   noteValueGenerator().Draw(t, "S"),
			Objective:    noteValueGenerator().Draw(t, "O"),
			Assessment:   noteValueGenerator().Draw(t, "A"),
			Plan:         noteValueGenerator().Draw(t, "P"),
		}

		encoded, err := document.Encode(note)
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}
		parsed, err := document.Decode(encoded)
		if err != nil {
			t.Fatalf("decode failed: %v\n%s", err, encoded)
		}
		if parsed.Note != note {
			t.Fatalf("round trip mismatch\nwant %#v\ngot  %#v\n%s", note, parsed.Note, encoded)
		}
		if len(parsed.Missing) != 0 {
			t.Fatalf("unexpected missing keys %v", parsed.Missing)
		}
	})
}

func TestDecodeLegacyTemplateDocument(t *testing.T) {
	assert := assert.New(t)

	legacy := strings.Join([]string{
		"---",
		"patient_name: 山田花子",
		"patient_id: 12345",
		"visit_date: 2024-04-01",
		"prescription: 薬B 1日2回",
		"S: ''",
		"O: 客観",
		"A: 評価",
		"P: 計画",
		"---",
		"",
		"# 記録本文",
		"",
		"- S:",
		"- O:",
		"- A:",
		"- P:",
		"",
	}, "\n")

	parsed, err := document.Decode([]byte(legacy))
	assert.Nil(err)
	assert.Equal(models.ClinicalNote{
		PatientName:  "山田花子",
		PatientID:    "12345",
		VisitDate:    "2024-04-01",
		Prescription: "薬B 1日2回",
		Subjective:   "",
		Objective:    "客観",
		Assessment:   "評価",
		Plan:         "計画",
	}, parsed.Note)
	assert.Empty(parsed.Missing)
	assert.Equal(document.LayoutTemplate, parsed.Layout)
	assert.Equal("\n# 記録本文\n\n- S:\n- O:\n- A:\n- P:\n", parsed.Body)
}

func TestDecodeInlineBulletsFillAbsentKeys(t *testing.T) {
	assert := assert.New(t)

	content := strings.Join([]string{
		"---",
		"patient_name: Hanako",
		"patient_id: p-9",
		"visit_date: \"2024-04-02\"",
		"S: from metadata",
		"---",
		"",
		"# 記録本文",
		"",
		"- S: from body",
		"- O: line one",
		"line two",
		"- A: assessed",
		"- P:",
		"",
	}, "\n")

	parsed, err := document.Decode([]byte(content))
	assert.Nil(err)
	// The metadata block wins when the key is present
	assert.Equal("from metadata", parsed.Note.Subjective)
	assert.Equal("line one\nline two", parsed.Note.Objective)
	assert.Equal("assessed", parsed.Note.Assessment)
	assert.Equal("", parsed.Note.Plan)
	assert.Equal([]string{"prescription", "P"}, parsed.Missing)
	assert.Equal(document.LayoutInline, parsed.Layout)
}

func TestDecodeLineEndingsAndBOM(t *testing.T) {
	assert := assert.New(t)

	// CRLF line endings
	{
		parsed, err := document.Decode(
			[]byte("---\r\npatient_id: crlf-1\r\n---\r\n\r\nbody\r\n"),
		)
		assert.Nil(err)
		assert.Equal("crlf-1", parsed.Note.PatientID)
		assert.Equal("\r\nbody\r\n", parsed.Body)
		assert.Equal(document.LayoutFreeform, parsed.Layout)
	}

	// Byte order mark
	{
		parsed, err := document.Decode([]byte("\xEF\xBB\xBF---\npatient_id: bom-1\n---\n"))
		assert.Nil(err)
		assert.Equal("bom-1", parsed.Note.PatientID)
		assert.Equal("", parsed.Body)
	}
}

func TestDecodeParseFailures(t *testing.T) {
	assert := assert.New(t)

	cases := map[string]string{
		"empty":              "",
		"no start marker":    "patient_id: p-1\n---\nbody\n",
		"marker not at head": "\n---\npatient_id: p-1\n---\n",
		"only start marker":  "---",
		"no end marker":      "---\npatient_id: p-1\nbody\n",
		"indented end":       "---\npatient_id: p-1\n ---\n",
		"invalid yaml":       "---\npatient_id: [unclosed\n---\nbody\n",
		"not a mapping":      "---\njust some text\n---\nbody\n",
	}

	for name, content := range cases {
		_, err := document.Decode([]byte(content))
		assert.Error(err, name)
		assert.True(document.IsParseFailure(err), name)
	}
}
