package catalog

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_Scenario(t *testing.T) {
	text := Text("-- Query 1\nSELECT 1;\n-- Query 2\nSELECT 2;")

	got, ok := Extract(text, "1")
	require.True(t, ok)
	assert.Equal(t, "SELECT 1;", got)

	got, ok = Extract(text, "2")
	require.True(t, ok)
	assert.Equal(t, "SELECT 2;", got)

	_, ok = Extract(text, "3")
	assert.False(t, ok)
}

func TestExtract_ConsecutiveMarkers(t *testing.T) {
	for k := 1; k <= 7; k++ {
		var b strings.Builder
		for id := 1; id <= k; id++ {
			fmt.Fprintf(&b, "-- Query %d\n  SELECT *\n  FROM t%d;\n\n", id, id)
		}
		text := Text(b.String())

		for id := 1; id <= k; id++ {
			got, ok := Extract(text, QueryID(fmt.Sprint(id)))
			require.True(t, ok, "k=%d id=%d", k, id)
			assert.Equal(t, fmt.Sprintf("SELECT *\n  FROM t%d;", id), got)
		}
		_, ok := Extract(text, QueryID(fmt.Sprint(k+1)))
		assert.False(t, ok)
		_, ok = Extract(text, "0")
		assert.False(t, ok)
	}
}

func TestExtract_NearMissMarker(t *testing.T) {
	text := Text("--Query 1\nSELECT 1;\n--  Query 2\nSELECT 2;")

	_, ok := Extract(text, "1")
	assert.False(t, ok)
	_, ok = Extract(text, "2")
	assert.False(t, ok)
}

func TestExtract_DuplicateMarkerFirstWins(t *testing.T) {
	text := Text("-- Query 1\nSELECT 'a';\n-- Query 1\nSELECT 'b';")

	got, ok := Extract(text, "1")
	require.True(t, ok)
	assert.Equal(t, "SELECT 'a';", got)
}

func TestExtract_TitleStaysInSource(t *testing.T) {
	text := Text("-- Query 4: Employees per department\nSELECT d.name, count(*)\nFROM emp e JOIN dept d USING (dept_id)\nGROUP BY d.name;\n")

	got, ok := Extract(text, "4")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(got, ": Employees per department\nSELECT"))
}

func TestExtract_Idempotent(t *testing.T) {
	text := Text("-- Query 1\nSELECT 1;\n-- Query 2\nSELECT 2;")
	before := string(text)

	first, ok1 := Extract(text, "2")
	second, ok2 := Extract(text, "2")

	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)
	assert.Equal(t, before, string(text))
}

func TestLookup_StripsComments(t *testing.T) {
	text := Text("-- Query 1: Titles\n-- lists every title\nSELECT title\n  -- inline note\nFROM books;\n-- Query 2\nSELECT 2;")

	got, ok := Lookup(text, "1")
	require.True(t, ok)
	assert.Equal(t, "SELECT title\nFROM books;", got)

	_, ok = Lookup(text, "9")
	assert.False(t, ok)
}

func TestLabel(t *testing.T) {
	long := strings.Repeat("x", 150)
	text := Text("-- Query 1\nSELECT a,\n b FROM t;\n-- Query 2\n" + long)

	assert.Equal(t, "SELECT a,...", Label(text, "1"))
	assert.Equal(t, strings.Repeat("x", 100)+"...", Label(text, "2"))
	assert.Equal(t, "...", Label(text, "3"))
}

func TestCatalog(t *testing.T) {
	var c Catalog
	assert.False(t, c.Loaded())
	_, ok := c.Extract("1")
	assert.False(t, ok)

	c.Replace("-- Query 1\nSELECT 1;")
	assert.True(t, c.Loaded())
	got, ok := c.Extract("1")
	require.True(t, ok)
	assert.Equal(t, "SELECT 1;", got)
	assert.Equal(t, "SELECT 1;...", c.Label("1"))

	c.Replace("-- Query 2\nSELECT 2;")
	_, ok = c.Extract("1")
	assert.False(t, ok)
	assert.Equal(t, Text("-- Query 2\nSELECT 2;"), c.Text())
}
