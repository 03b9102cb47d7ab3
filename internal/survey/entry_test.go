package survey

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryMarshalIncludesEveryCanonicalKey(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Entry{})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, len(CanonicalKeys))
	for _, key := range CanonicalKeys {
		value, ok := decoded[key]
		require.Truef(t, ok, "missing key %q", key)
		assert.Equal(t, "", value)
	}
}

func TestEntryMarshalKeepsKeyOrderAndHTML(t *testing.T) {
	t.Parallel()

	e := Entry{Program: "Computer Science", Comments: "<b>great</b> & fun"}
	e.Set(KeyLLMProgram, "CS")

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	require.NoError(t, enc.Encode(e))
	data := strings.TrimSpace(buf.String())

	assert.Contains(t, data, `"comments":"<b>great</b> & fun"`)
	assert.Regexp(t, `^\{"program":"Computer Science","university":""`, data)
	assert.Regexp(t, `"Degree":"","llm-generated-program":"CS"\}$`, data)
}

func TestEntryUnmarshalCoercesNullsAndPreservesExtra(t *testing.T) {
	t.Parallel()

	payload := `{"program":"Physics","GPA":null,"GRE":320,"llm-generated-university":"MIT"}`
	var e Entry
	require.NoError(t, json.Unmarshal([]byte(payload), &e))

	assert.Equal(t, "Physics", e.Program)
	assert.Equal(t, "", e.GPA)
	assert.Equal(t, "320", e.GRE)
	assert.Equal(t, "MIT", e.Get(KeyLLMUniversity))

	roundTrip, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Contains(t, string(roundTrip), `"llm-generated-university":"MIT"`)
}

func TestEntryUnmarshalRejectsNonObject(t *testing.T) {
	t.Parallel()

	var e Entry
	require.Error(t, json.Unmarshal([]byte(`["nope"]`), &e))
}

func TestDatasetKnownURLsSkipsEmpty(t *testing.T) {
	t.Parallel()

	d := Dataset{{URL: "https://x/result/1"}, {URL: ""}, {URL: "https://x/result/2"}}
	known := d.KnownURLs()

	assert.Len(t, known, 2)
	assert.True(t, known.Contains("https://x/result/1"))
	assert.False(t, known.Contains(""))
}

func TestMergeAppendsWithoutReordering(t *testing.T) {
	t.Parallel()

	existing := Dataset{{URL: "a"}, {URL: "b"}}
	fresh := Dataset{{URL: "b"}, {URL: "c"}}

	merged := Merge(existing, fresh)
	require.Len(t, merged, 4)
	assert.Equal(t, []string{"a", "b", "b", "c"}, []string{merged[0].URL, merged[1].URL, merged[2].URL, merged[3].URL})
	assert.Len(t, existing, 2)
}
