package fixture

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableShape(t *testing.T) {
	table, err := Table()
	require.NoError(t, err)
	require.Equal(t, []string{ExampleName}, table.Names())
	require.NoError(t, table.Validate())

	c := table[ExampleName]
	require.Equal(t, ExampleCode, c.Code)
	require.Equal(t, ExampleSource, c.Info.Source)
	require.Equal(t, "Solidity", c.Info.Language)
	require.Equal(t, "0", c.Info.LanguageVersion)
	require.Equal(t, "0.1.1-054b3c3c", c.Info.CompilerVersion)
	require.Equal(t, map[string]interface{}{"methods": map[string]interface{}{}}, c.Info.DeveloperDoc)
	require.Equal(t, map[string]interface{}{"methods": map[string]interface{}{}}, c.Info.UserDoc)
}

func TestRoundTrip(t *testing.T) {
	table := MustTable()
	out, err := table.MarshalIndent("", "    ")
	require.NoError(t, err)
	if want := bytes.TrimSpace(JSON()); !bytes.Equal(out, want) {
		t.Fatalf("round trip mismatch:\n--- got\n%s\n--- want\n%s", out, want)
	}
	require.Contains(t, string(out), `"code": "`+ExampleCode+`"`)
}

func TestTablesAreIndependent(t *testing.T) {
	a, b := MustTable(), MustTable()
	a[ExampleName].Code = "0x00"
	require.Equal(t, ExampleCode, b[ExampleName].Code)
	require.Equal(t, ExampleCode, MustTable()[ExampleName].Code)
}
