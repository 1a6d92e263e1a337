package hivecli

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/deixis/clicheck/internal/fixture"
	"github.com/deixis/clicheck/internal/report"
	"github.com/deixis/clicheck/internal/runner"
	"github.com/deixis/clicheck/internal/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The tests below run the real hive binary and are skipped when it is not
// on PATH. They share one metastore and must not run in parallel.

const testDB = "odpi_runtime_hive"

func newClient(t *testing.T) (*Client, string) {
	t.Helper()
	if _, err := exec.LookPath(Binary); err != nil {
		t.Skip("hive is not in the current path")
	}
	dir := t.TempDir()
	c := New(&runner.Runner{Dir: dir, Timeout: 10 * time.Minute})
	require.True(t, c.Available(context.Background()), "which hive failed")
	t.Cleanup(func() {
		_, _ = c.Exec(context.Background(), "-e", "DROP DATABASE "+testDB)
	})
	return c, dir
}

func mustExec(t *testing.T, c *Client, args ...string) *runner.Result {
	t.Helper()
	res, err := c.Exec(context.Background(), args...)
	require.NoError(t, err, "hive %s", strings.Join(args, " "))
	return res
}

func TestHelp(t *testing.T) {
	c, _ := newClient(t)

	assert.Equal(t, 2, mustExec(t, c, "-H").ExitCode, "Error in executing 'hive -H'")
	assert.Equal(t, 0, mustExec(t, c, "--help").ExitCode, "Error in executing 'hive --help'")
	assert.Equal(t, 1, mustExec(t, c, "-U").ExitCode, "Unrecognized option should exit 1.")
}

func TestSQLFromCmdLine(t *testing.T) {
	c, _ := newClient(t)

	res := mustExec(t, c, "-e", "SHOW DATABASES")
	require.Equal(t, 0, res.ExitCode, "SHOW DATABASES command failed to execute.")
	if strings.Contains(res.Stdout, testDB) {
		mustExec(t, c, "-e", "DROP DATABASE "+testDB)
	}
	res = mustExec(t, c, "-e", "CREATE DATABASE "+testDB)
	assert.Equal(t, 0, res.ExitCode, "Could not create database %s.", testDB)
	mustExec(t, c, "-e", "DROP DATABASE "+testDB)
}

func TestSQLFromFiles(t *testing.T) {
	c, dir := newClient(t)
	require.NoError(t, fixture.WriteAll(dir, map[string]string{
		"hive-f1.sql": "SHOW DATABASES;\n",
		"hive-f2.sql": "CREATE DATABASE odpi_runtime_hive;\n",
		"hive-f3.sql": "DROP DATABASE odpi_runtime_hive;\nCREATE DATABASE odpi_runtime_hive;\n",
		"hive-f4.sql": "DROP DATABASE odpi_runtime_hive;\n",
	}))

	res := mustExec(t, c, "-f", "hive-f1.sql")
	require.Equal(t, 0, res.ExitCode, "SHOW DATABASES command failed to execute.")
	create := "hive-f2.sql"
	if strings.Contains(res.Stdout, testDB) {
		create = "hive-f3.sql"
	}
	assert.Equal(t, 0, mustExec(t, c, "-f", create).ExitCode, "Could not create database %s.", testDB)
	mustExec(t, c, "-f", "hive-f4.sql")
}

func TestSilent(t *testing.T) {
	c, _ := newClient(t)

	for _, flag := range []string{"-S", "--silent"} {
		res := mustExec(t, c, "-e", "SHOW DATABASES", flag)
		assert.NotContains(t, res.Stdout, "Time taken:", "%s option did not work.", flag)
	}
}

func TestVerbose(t *testing.T) {
	c, _ := newClient(t)

	for _, flag := range []string{"-v", "--verbose"} {
		res := mustExec(t, c, "-e", "SHOW DATABASES", flag)
		assert.Contains(t, res.Stdout, "SHOW DATABASES", "%s option did not work.", flag)
	}
}

func TestInitialization(t *testing.T) {
	c, dir := newClient(t)
	require.NoError(t, fixture.WriteAll(dir, map[string]string{
		"hive-init1.sql": "CREATE DATABASE odpi_runtime_hive;\n",
		"hive-init2.sql": "DROP DATABASE odpi_runtime_hive;\nCREATE DATABASE odpi_runtime_hive;\n",
	}))

	res := mustExec(t, c, "-e", "SHOW DATABASES")
	require.Equal(t, 0, res.ExitCode, "SHOW DATABASES command failed to execute.")
	initFile := "hive-init1.sql"
	if strings.Contains(res.Stdout, testDB) {
		initFile = "hive-init2.sql"
	}
	res = mustExec(t, c, "-i", initFile, "-e", "SHOW DATABASES")
	assert.Equal(t, 0, res.ExitCode, "Could not create database %s using the init -i option.", testDB)
	assert.Contains(t, res.Stdout, testDB, "Could not create database %s using the init -i option.", testDB)
	mustExec(t, c, "-e", "DROP DATABASE "+testDB)
}

func TestDatabase(t *testing.T) {
	c, _ := newClient(t)

	mustExec(t, c, "-e", "CREATE DATABASE if not exists "+testDB)

	res := mustExec(t, c, "--database", testDB+"_1234", "-e", "CREATE TABLE odpi ( MYID INT );")
	assert.Equal(t, 88, res.ExitCode, "Non-existent database returned with wrong exit code")

	res = mustExec(t, c, "--database", testDB, "-e", "CREATE TABLE odpi ( MYID INT );")
	assert.Equal(t, 0, res.ExitCode, "Failed to create table using --database argument.")

	res = mustExec(t, c, "--database", testDB, "-e", "DESCRIBE odpi")
	assert.Contains(t, res.Stdout, "myid", "Failed to get expected column after creating odpi table using --database argument.")

	res = mustExec(t, c, "--database", testDB, "-e", "DROP TABLE odpi")
	assert.Equal(t, 0, res.ExitCode, "Failed to drop table using --database argument.")

	mustExec(t, c, "-e", "DROP DATABASE "+testDB)
}

func TestHiveConf(t *testing.T) {
	c, _ := newClient(t)

	res := mustExec(t, c, "--hiveconf", "hive.root.logger=INFO,console", "-e", "SHOW DATABASES")
	assert.Contains(t, res.Output(), "ObjectStore, initialize called",
		"The --hiveconf option did not work in setting hive.root.logger=INFO,console.")
}

func TestVariableSubstitution(t *testing.T) {
	c, dir := newClient(t)
	require.NoError(t, fixture.WriteAll(dir, map[string]string{
		"hive-define.sql": "show ${A};\nquit;\n",
	}))

	mustExec(t, c, "-e", "CREATE DATABASE if not exists "+testDB)
	res := mustExec(t, c, "-d", "A=DATABASES", "-f", "hive-define.sql")
	assert.Equal(t, 0, res.ExitCode, "The hive -d A=DATABASES option did not work.")
	assert.Contains(t, res.Stdout, testDB, "The hive -d A=DATABASES option did not work.")
	mustExec(t, c, "-e", "DROP DATABASE "+testDB)
}

func TestHiveVar(t *testing.T) {
	c, dir := newClient(t)
	require.NoError(t, fixture.WriteAll(dir, map[string]string{
		"hive-var.sql":     "show ${A};\nquit;\n",
		"hiveconf-var.sql": "show ${hiveconf:A};\nquit;\n",
	}))

	mustExec(t, c, "-e", "CREATE DATABASE if not exists "+testDB)

	res := mustExec(t, c, "--hivevar", "A=DATABASES", "-f", "hive-var.sql")
	assert.Equal(t, 0, res.ExitCode, "The hive --hivevar A=DATABASES option did not work.")
	assert.Contains(t, res.Stdout, testDB, "The hive --hivevar A=DATABASES option did not work.")

	res = mustExec(t, c, "--hiveconf", "A=DATABASES", "-f", "hiveconf-var.sql")
	assert.Equal(t, 0, res.ExitCode, "The hive --hiveconf A=DATABASES option did not work.")
	assert.Contains(t, res.Stdout, testDB, "The hive --hiveconf A=DATABASES option did not work.")

	mustExec(t, c, "-e", "DROP DATABASE "+testDB)
}

// TestSuite runs the declarative form of the tests above.
func TestSuite(t *testing.T) {
	if _, err := exec.LookPath(Binary); err != nil {
		t.Skip("hive is not in the current path")
	}
	s, err := suite.Load("testdata/hive.yaml")
	require.NoError(t, err)

	e := &suite.Engine{Runner: &runner.Runner{Dir: t.TempDir()}}
	res, err := e.Run(context.Background(), s, nil)
	require.NoError(t, err)

	for _, c := range res.RunResult.Cases {
		assert.Equal(t, report.Pass, c.Status, "case %s: %s", c.Name, c.Message)
	}
}
