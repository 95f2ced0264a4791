package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const punches = `Name,Date/Time,Status
Alice,04/03/2024 08:30:00,C/In
Alice,04/03/2024 17:45:00,C/Out
Alice,05/03/2024 09:00:00,C/In
Alice,05/03/2024 17:00:00,C/Out
Bob,04/03/2024 08:30:00,C/In
Bob,04/03/2024 17:45:00,C/Out
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writePunches(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "march.csv")
	require.NoError(t, os.WriteFile(path, []byte(punches), 0o644))
	return path
}

func TestAnalyzeCommand(t *testing.T) {
	in := writePunches(t)
	outPath := filepath.Join(t.TempDir(), "report.xlsx")

	out, err := run(t, "analyze", in, "--out", outPath,
		"--holiday", "2024-03-05", "--rest-days", "Bob=1", "--leave", "Alice:sick:2024-03-05:2024-03-05")
	require.NoError(t, err)
	assert.Contains(t, out, "Period [2024-03-04, 2024-03-05], 2 employees, 4 rows")
	assert.Contains(t, out, "Workbook written to "+outPath)

	f, err := excelize.OpenFile(outPath)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Leave Register")
}

func TestAnalyzeCommand_Errors(t *testing.T) {
	in := writePunches(t)

	_, err := run(t, "analyze", in, "--rest-days", "Bob")
	assert.Error(t, err)

	_, err = run(t, "analyze", in, "--month", "13", "--year", "2024")
	assert.Error(t, err)

	_, err = run(t, "analyze", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestEmployeesCommand(t *testing.T) {
	out, err := run(t, "employees", writePunches(t))
	require.NoError(t, err)
	assert.Equal(t, "Alice\nBob\n", out)
}

func TestRestDaysCommand(t *testing.T) {
	out, err := run(t, "restdays", writePunches(t))
	require.NoError(t, err)
	assert.Contains(t, out, "EMPLOYEE")
	assert.Contains(t, out, "Alice")
}
