package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_DefaultLevel(t *testing.T) {
	logger, closer, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer.Close()
	if logger.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %s; want info", logger.GetLevel())
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, _, err := New(Options{Level: "loud"}); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "awsmcp.log")
	logger, closer, err := New(Options{Level: "debug", File: path, JSON: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.WithField("operation", "cost_analysis").Debug("recorded")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"operation":"cost_analysis"`) {
		t.Errorf("log file = %s; want JSON entry with operation field", data)
	}
}
