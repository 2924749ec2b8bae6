package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance/internal/auth"
	"finance/internal/core"
	"finance/internal/storage"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedDB(t *testing.T) (string, core.Account) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	repo, err := storage.NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	defer repo.Close()
	acc, err := repo.CreateAccount(context.Background(), "alice", "Checking")
	require.NoError(t, err)
	return dbPath, acc
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestMigrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "fresh", "cli.db")

	out, err := runCLI(t, "migrate", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 2 (dirty: false)")
}

func TestImportCSV(t *testing.T) {
	dbPath, acc := seedDB(t)
	file := writeFile(t, "bank.csv", "Date,Description,Amount\n"+
		"2024-03-01 09:00:00,Grocer,-12.50\n"+
		"2024-03-02 10:00:00,Employer,2500\n")

	out, err := runCLI(t, "import", "--db", dbPath,
		"--user", "alice", "--account", acc.ID,
		"--file", file, "--map", "0=date,1=payee,2=amount")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 transactions")

	out, err = runCLI(t, "summary", "--db", dbPath, "--user", "alice", "--from", "2024-03-01", "--to", "2024-03-02")
	require.NoError(t, err)
	var got struct {
		IncomeAmount   core.Money `json:"incomeAmount"`
		ExpensesAmount core.Money `json:"expensesAmount"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, core.Money(2500000), got.IncomeAmount)
	assert.Equal(t, core.Money(-12500), got.ExpensesAmount)
}

func TestImportListsInvalidRows(t *testing.T) {
	dbPath, acc := seedDB(t)
	file := writeFile(t, "bank.csv", "Date,Description,Amount\n"+
		"2024-03-01 09:00:00,Grocer,twelve\n"+
		"yesterday,Employer,2500\n")

	out, err := runCLI(t, "import", "--db", dbPath,
		"--user", "alice", "--account", acc.ID,
		"--file", file, "--map", "0=date,1=payee,2=amount")
	require.Error(t, err)
	assert.Contains(t, out, "2 invalid rows")
}

func TestImportRequiresMapForCSV(t *testing.T) {
	dbPath, acc := seedDB(t)
	file := writeFile(t, "bank.csv", "Date,Description,Amount\n")

	_, err := runCLI(t, "import", "--db", dbPath, "--user", "alice", "--account", acc.ID, "--file", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--map is required")
}

func TestSummaryRejectsBadDate(t *testing.T) {
	dbPath, _ := seedDB(t)

	_, err := runCLI(t, "summary", "--db", dbPath, "--user", "alice", "--from", "03/01/2024")
	require.Error(t, err)
}

func TestTokenIsAcceptedByProvider(t *testing.T) {
	const secret = "0123456789abcdef0123"
	t.Setenv("AUTH_JWT_SECRET", secret)
	dbPath := filepath.Join(t.TempDir(), "cli.db")

	out, err := runCLI(t, "token", "--db", dbPath, "--user", "alice", "--ttl", "1h")
	require.NoError(t, err)

	p, err := auth.NewJWTProvider(secret, "")
	require.NoError(t, err)
	sub, err := p.Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
}

func TestTokenRequiresSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	_, err := runCLI(t, "token", "--db", filepath.Join(t.TempDir(), "cli.db"), "--user", "alice")
	assert.ErrorContains(t, err, "AUTH_JWT_SECRET")
}
