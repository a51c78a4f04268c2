package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/embano1/healthscribe-demo/internal/types"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvBucket, EnvRegion, EnvRoleARN, EnvListen} {
		t.Setenv(k, "")
	}
}

func tempFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew(t *testing.T) {
	clearEnv(t)
	transcript := tempFile(t, "transcript.json")
	audio := tempFile(t, "visit.mp3")

	tests := []struct {
		name    string
		args    []string
		env     map[string]string
		wantErr string
		check   func(t *testing.T, cfg *types.AppConfig)
	}{
		{
			name:    "no input",
			args:    []string{},
			wantErr: ErrNoInput.Error(),
		},
		{
			name: "local transcript needs no bucket",
			args: []string{"-t", transcript, "-small-talk", "-insights", "RxNorm"},
			check: func(t *testing.T, cfg *types.AppConfig) {
				if cfg.Region != "us-east-1" {
					t.Errorf("expected default region, got %q", cfg.Region)
				}
				if !cfg.SkipSmallTalk || cfg.SkipSilence {
					t.Errorf("unexpected skip flags %v %v", cfg.SkipSmallTalk, cfg.SkipSilence)
				}
				if cfg.Ontology != types.OntologyRxNorm {
					t.Errorf("unexpected ontology %q", cfg.Ontology)
				}
			},
		},
		{
			name:    "job requires bucket",
			args:    []string{"-j", "visit"},
			wantErr: "bucket name is required",
		},
		{
			name: "bucket and listen address from environment",
			args: []string{"-j", "visit"},
			env:  map[string]string{EnvBucket: "scribe-output", EnvListen: "localhost:8080", EnvRegion: "eu-west-1"},
			check: func(t *testing.T, cfg *types.AppConfig) {
				if cfg.BucketName != "scribe-output" || cfg.ListenAddr != "localhost:8080" || cfg.Region != "eu-west-1" {
					t.Errorf("environment defaults not applied: %+v", cfg)
				}
			},
		},
		{
			name:    "upload requires role",
			args:    []string{"-f", audio, "-b", "scribe-output"},
			wantErr: "RoleARN",
		},
		{
			name: "upload with role",
			args: []string{"-f", audio, "-b", "scribe-output", "-role", "arn:aws:iam::123456789012:role/scribe", "-speakers", "4"},
			check: func(t *testing.T, cfg *types.AppConfig) {
				if cfg.MaxSpeakers != 4 || cfg.InputFilePath != audio {
					t.Errorf("unexpected config %+v", cfg)
				}
			},
		},
		{
			name:    "missing input file",
			args:    []string{"-t", filepath.Join(t.TempDir(), "nope.json")},
			wantErr: "TranscriptPath",
		},
		{
			name:    "unknown ontology",
			args:    []string{"-t", transcript, "-insights", "loinc"},
			wantErr: "Ontology",
		},
		{
			name:    "invalid listen address",
			args:    []string{"-t", transcript, "-serve", "nowhere"},
			wantErr: "ListenAddr",
		},
		{
			name:    "invalid bucket",
			args:    []string{"-j", "visit", "-b", "Bad_Bucket"},
			wantErr: "invalid bucket name",
		},
		{
			name:    "too few speakers",
			args:    []string{"-t", transcript, "-speakers", "1"},
			wantErr: "MaxSpeakers",
		},
		{
			name:    "summary without transcript",
			args:    []string{"-j", "visit", "-b", "scribe-output", "-s", transcript},
			wantErr: "-s requires -t",
		},
		{
			name:    "file and job",
			args:    []string{"-j", "visit", "-f", audio, "-b", "scribe-output", "-role", "arn"},
			wantErr: "mutually exclusive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := New(tt.args)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestNewNoInputSentinel(t *testing.T) {
	clearEnv(t)
	if _, err := New(nil); !errors.Is(err, ErrNoInput) {
		t.Errorf("expected ErrNoInput, got %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger("debug", true)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	if log.GetLevel() != logrus.DebugLevel {
		t.Errorf("unexpected level %v", log.GetLevel())
	}
	if _, ok := log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("expected JSON formatter, got %T", log.Formatter)
	}
	if _, err := NewLogger("loud", false); err == nil {
		t.Error("expected error for unknown level")
	}
}
