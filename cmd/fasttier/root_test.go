package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/pattyshack/fasttier/analyzer/tiering"
	"github.com/pattyshack/fasttier/logger"
)

const librarySource = `declare func @malloc(%size)
declare func @free(%ptr)
`

const kernelSource = `define func @kernel() {
  %buf = call @malloc(8192)
  %i = 0
:loop
  %p = offset %buf, %i
  store %p, %i
  %v = load %p
  %i = add %i, 1
  jlt :loop, %i, 100
  call @free(%buf)
  ret %v
}
`

func writeSource(t *testing.T, dir string, name string, content string) string {
	t.Helper()

	fileName := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(fileName, []byte(content), 0644))
	return fileName
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	output, _, err := runCommandWithStderr(t, args...)
	return output, err
}

func runCommandWithStderr(
	t *testing.T,
	args ...string,
) (
	string,
	string,
	error,
) {
	t.Helper()
	defer logger.Init(logger.Options{})

	// reset flags shared across invocations
	verbose = false
	jsonOut = false
	configPath = ""
	rewriteOutput = ""

	output := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	rootCmd.SetOut(output)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return output.String(), stderr.String(), err
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	lib := writeSource(t, dir, "lib.ir", librarySource)
	kernel := writeSource(t, dir, "kernel.ir", kernelSource)

	output, err := runCommand(t, "analyze", lib, kernel)
	require.NoError(t, err)
	require.Contains(t, output, "@kernel")
	require.Contains(t, output, "260.80")
	require.Contains(t, output, "selected 1 of 1 sites")
}

func TestAnalyzeCommandJSON(t *testing.T) {
	dir := t.TempDir()
	lib := writeSource(t, dir, "lib.ir", librarySource)
	kernel := writeSource(t, dir, "kernel.ir", kernelSource)
	config := writeSource(t, dir, "tiering.yaml", "threshold: 1000\n")

	output, err := runCommand(t, "analyze", "--json", "--config", config, lib, kernel)
	require.NoError(t, err)

	report := tiering.Report{}
	require.NoError(t, json.Unmarshal([]byte(output), &report))
	require.Len(t, report.Sites, 1)
	require.Equal(t, tiering.BelowThreshold, report.Sites[0].Decision)
	require.Equal(t, uint64(8192), report.Sites[0].Size)
	require.False(t, report.Modified)
}

func TestRewriteCommand(t *testing.T) {
	dir := t.TempDir()
	lib := writeSource(t, dir, "lib.ir", librarySource)
	kernel := writeSource(t, dir, "kernel.ir", kernelSource)
	outFile := filepath.Join(dir, "out.ir")

	output, err := runCommand(t, "rewrite", lib, kernel)
	require.NoError(t, err)
	require.Contains(t, output, "%buf = call @hbm_malloc(8192)")
	require.Contains(t, output, "call @hbm_free(%buf)")

	_, err = runCommand(t, "rewrite", "-o", outFile, lib, kernel)
	require.NoError(t, err)

	content, err := os.ReadFile(outFile)
	require.NoError(t, err)
	require.Equal(t, output, string(content))
}

func TestCommandReportsDiagnostics(t *testing.T) {
	dir := t.TempDir()
	kernel := writeSource(t, dir, "kernel.ir", kernelSource)

	// @malloc and @free are not declared
	_, err := runCommand(t, "analyze", kernel)
	require.Error(t, err)
	require.Contains(t, err.Error(), "malloc")

	output, err := runCommand(t, "tree", kernel)
	require.Error(t, err)
	require.Contains(t, output, "Entry 0:")
}

func TestTokensCommand(t *testing.T) {
	dir := t.TempDir()
	lib := writeSource(t, dir, "lib.ir", librarySource)

	output, err := runCommand(t, "tokens", lib)
	require.NoError(t, err)
	require.Contains(t, output, "IDENTIFIER(\"declare\")")
}

func TestMissingFile(t *testing.T) {
	_, err := runCommand(t, "analyze", filepath.Join(t.TempDir(), "missing.ir"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadProgramSkipsReadsAfterCancel(t *testing.T) {
	dir := t.TempDir()
	lib := writeSource(t, dir, "lib.ir", librarySource)
	kernel := writeSource(t, dir, "kernel.ir", kernelSource)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loadProgram(ctx, []string{lib, kernel})
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoadProgramReportsMissingFile(t *testing.T) {
	dir := t.TempDir()
	lib := writeSource(t, dir, "lib.ir", librarySource)

	_, err := loadProgram(
		context.Background(),
		[]string{lib, filepath.Join(dir, "missing.ir"), lib})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestVerboseRewriteLogsOutput(t *testing.T) {
	dir := t.TempDir()
	lib := writeSource(t, dir, "lib.ir", librarySource)
	kernel := writeSource(t, dir, "kernel.ir", kernelSource)
	outFile := filepath.Join(dir, "out.ir")

	_, stderr, err := runCommandWithStderr(
		t,
		"--verbose", "rewrite", "-o", outFile, lib, kernel)
	require.NoError(t, err)
	require.Contains(t, stderr, "msg=\"tiering pass complete\"")
	require.Contains(t, stderr, "msg=\"wrote rewritten program\"")
	require.Contains(t, stderr, "modified=true")
}
