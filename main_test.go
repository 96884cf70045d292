package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"YieldCurvePCA/src/config"
	"YieldCurvePCA/src/storage"
)

const pipelineFixture = "date,1Y,5Y,10Y\n" +
	"2024-01-04,0.05,0.21,0.61\n" +
	"2024-01-05,0.10,0.27,0.66\n" +
	"2024-01-09,0.03,0.18,0.58\n" +
	"2024-01-10,0.12,0.30,0.70\n"

func TestRunPipelineRotatesLog(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "curve.csv")
	if err := os.WriteFile(input, []byte(pipelineFixture), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	// a log already over the configured limit must rotate before the run logs
	logPath := filepath.Join(dir, "run.log")
	seed := strings.Repeat("x", 256)
	if err := os.WriteFile(logPath, []byte(seed), 0644); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	logger, err := storage.NewLogger(logPath)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Close()

	cfg := config.Default()
	cfg.DataDir = dir
	cfg.Input.Encoding = "utf-8"
	cfg.LogName = logPath
	cfg.LogMaxSize = "1"

	savePath := filepath.Join(dir, "curve.png")
	if err := runPipeline(cfg, logger, input, savePath, ""); err != nil {
		t.Fatalf("runPipeline: %v", err)
	}

	rotated, err := filepath.Glob(logPath + ".*")
	if err != nil || len(rotated) != 1 {
		t.Fatalf("rotated logs next to %s = %v, want one", logPath, rotated)
	}
	old, err := os.ReadFile(rotated[0])
	if err != nil {
		t.Fatalf("read rotated log: %v", err)
	}
	if string(old) != seed {
		t.Errorf("rotated log does not hold the pre-rotation content")
	}
	fresh, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("fresh log missing after rotation: %v", err)
	}
	if !strings.Contains(string(fresh), "analyzing "+input) {
		t.Errorf("run entries missing from the fresh log:\n%s", fresh)
	}
	if strings.Contains(string(fresh), seed) {
		t.Errorf("fresh log still holds the pre-rotation content")
	}

	info, err := os.Stat(savePath)
	if err != nil {
		t.Fatalf("chart not written: %v", err)
	}
	if info.Size() == 0 {
		t.Errorf("chart file is empty")
	}
}

func TestRunPipelineKeepsLogUnderLimit(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "curve.csv")
	if err := os.WriteFile(input, []byte(pipelineFixture), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	logPath := filepath.Join(dir, "run.log")
	logger, err := storage.NewLogger(logPath)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer logger.Close()

	cfg := config.Default()
	cfg.DataDir = dir
	cfg.Input.Encoding = "utf-8"
	cfg.LogName = logPath

	if err := runPipeline(cfg, logger, input, filepath.Join(dir, "curve.png"), ""); err != nil {
		t.Fatalf("runPipeline: %v", err)
	}

	if rotated, _ := filepath.Glob(logPath + ".*"); len(rotated) != 0 {
		t.Errorf("log under the default limit rotated: %v", rotated)
	}
}
