package question

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeBank(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_ValidBank(t *testing.T) {
	path := writeBank(t, `[
		{"id":"q1","text":"first?","answer_data":[
			{"char":"a","choices":["a","b","c"]},
			{"char":"b","choices":["b","x","y"]}
		]},
		{"id":"q2","text":"second?","answer_data":[
			{"char":"z","choices":["z","q"]}
		]}
	]`)

	qs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, qs, 2)
	require.Equal(t, "q1", qs[0].ID)
	require.Equal(t, "ab", qs[0].Answer())
	require.Equal(t, []string{"z", "q"}, qs[1].Units[0].Choices)
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name     string
		path     func(t *testing.T) string
		contains string
	}{
		{
			name:     "missing file",
			path:     func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") },
			contains: "read question bank",
		},
		{
			name:     "malformed json",
			path:     func(t *testing.T) string { return writeBank(t, `{"not":"an array"`) },
			contains: "parse question bank",
		},
		{
			name:     "empty bank",
			path:     func(t *testing.T) string { return writeBank(t, `[]`) },
			contains: "empty",
		},
		{
			name:     "question without units",
			path:     func(t *testing.T) string { return writeBank(t, `[{"id":"q1","text":"?","answer_data":[]}]`) },
			contains: "no answer units",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(tc.path(t))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestAnswerUnit_Matches(t *testing.T) {
	u := AnswerUnit{Fragment: "Café"}

	require.True(t, u.Matches("Café"))
	require.True(t, u.Matches("  café "))
	require.True(t, u.Matches("CAFE")) // combining marks stripped
	require.False(t, u.Matches("cafu"))
	require.False(t, u.Matches(""))
}

func TestShuffleOrder_IsPermutation(t *testing.T) {
	order := ShuffleOrder(50)
	require.Len(t, order, 50)

	sorted := append([]int(nil), order...)
	sort.Ints(sorted)
	for i, v := range sorted {
		require.Equal(t, i, v)
	}
}
