package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestParseReplyStructured(t *testing.T) {
	res := ParseReply(`{"patientName":"  Jane   Doe ","dateOfBirth":"01/15/1985","allText":"Name: Jane Doe\nDOB: 01/15/1985"}`)
	require.True(t, res.Structured)
	assert.Equal(t, "Name: Jane Doe\nDOB: 01/15/1985", res.Text)
	require.NotNil(t, res.Patient.Name)
	assert.Equal(t, "Jane Doe", *res.Patient.Name)
	require.NotNil(t, res.Patient.DateOfBirth)
	assert.Equal(t, "1985-01-15", *res.Patient.DateOfBirth)
}

func TestParseReplyStripsFences(t *testing.T) {
	res := ParseReply("```json\n{\"patientName\":null,\"dateOfBirth\":null,\"allText\":\"hello\"}\n```")
	require.True(t, res.Structured)
	assert.Equal(t, "hello", res.Text)
	assert.Nil(t, res.Patient.Name)
	assert.Nil(t, res.Patient.DateOfBirth)
}

func TestParseReplyNullWords(t *testing.T) {
	res := ParseReply(`{"patientName":"null","dateOfBirth":"N/A","allText":"x"}`)
	require.True(t, res.Structured)
	assert.Nil(t, res.Patient.Name)
	assert.Nil(t, res.Patient.DateOfBirth)
}

func TestParseReplyEmptyAllTextKeepsRaw(t *testing.T) {
	raw := `{"patientName":"Bob","dateOfBirth":null,"allText":""}`
	res := ParseReply(raw)
	require.True(t, res.Structured)
	assert.Equal(t, raw, res.Text)
	require.NotNil(t, res.Patient.Name)
	assert.Equal(t, "Bob", *res.Patient.Name)
}

func TestParseReplyUnparseable(t *testing.T) {
	res := ParseReply("  Sorry, here is the text: Invoice 42  ")
	assert.False(t, res.Structured)
	assert.Equal(t, "Sorry, here is the text: Invoice 42", res.Text)
	assert.Nil(t, res.Patient.Name)
	assert.Nil(t, res.Patient.DateOfBirth)
}

func TestParseReplySchemaMismatch(t *testing.T) {
	// valid JSON, wrong shape
	res := ParseReply(`{"name":"Jane","allText":42}`)
	assert.False(t, res.Structured)
	assert.Equal(t, `{"name":"Jane","allText":42}`, res.Text)
	assert.Nil(t, res.Patient.Name)
}

func TestNormalizeDate(t *testing.T) {
	cases := []struct {
		in   *string
		want *string
	}{
		{nil, nil},
		{strp(""), nil},
		{strp("null"), nil},
		{strp("1985-01-15"), strp("1985-01-15")},
		{strp("01/15/1985"), strp("1985-01-15")},
		{strp("1/5/1985"), strp("1985-01-05")},
		{strp("15/01/1985"), strp("1985-01-15")},
		{strp("15.01.1985"), strp("1985-01-15")},
		{strp("1985/01/15"), strp("1985-01-15")},
		{strp("January 15, 1985"), strp("1985-01-15")},
		{strp("15 January 1985"), strp("1985-01-15")},
		{strp("Jan 15, 1985"), strp("1985-01-15")},
		{strp("  01-15-1985 "), strp("1985-01-15")},
		{strp("yesterday"), nil},
		{strp("2999-01-01"), nil},
	}
	for _, c := range cases {
		got := NormalizeDate(c.in)
		if c.want == nil {
			assert.Nil(t, got, "input %v", c.in)
			continue
		}
		require.NotNil(t, got, "input %q", *c.in)
		assert.Equal(t, *c.want, *got)
	}
}
