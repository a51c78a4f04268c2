package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/embano1/healthscribe-demo/internal/types"
)

// build info set by goreleaser
var (
	Version = "unknown"
	Commit  = "unknown"
)

// environment variables providing flag defaults
const (
	EnvBucket  = "HEALTHSCRIBE_BUCKET"
	EnvRegion  = "AWS_REGION"
	EnvRoleARN = "HEALTHSCRIBE_ROLE_ARN"
	EnvListen  = "HEALTHSCRIBE_LISTEN"
)

// ErrNoInput is returned when none of -f, -j or -t selects a conversation.
var ErrNoInput = errors.New("one of -f, -j or -t is required")

var validate = validator.New()

// New parses flags and performs initial validation.
func New(args []string) (*types.AppConfig, error) {
	// a missing .env file is fine
	_ = godotenv.Load()

	fs := flag.NewFlagSet("healthscribe-demo", flag.ContinueOnError)

	jobName := fs.String("j", "", "Name of an existing HealthScribe job to load")
	inputFilePath := fs.String("f", "", "Path to an audio file to upload and start a HealthScribe job with")
	bucketName := fs.String("b", os.Getenv(EnvBucket), "S3 bucket for uploads and job output")
	region := fs.String("r", envOr(EnvRegion, "us-east-1"), "AWS region")
	roleARN := fs.String("role", os.Getenv(EnvRoleARN), "Data access role ARN used by HealthScribe")
	transcriptPath := fs.String("t", "", "Path to a local transcript.json")
	summaryPath := fs.String("s", "", "Path to a local summary.json")
	audioPath := fs.String("a", "", "Path to a local MP3 used for waveform peaks and silence detection")
	outputFilePath := fs.String("o", "", "Path to output text file (default: stdout)")
	listenAddr := fs.String("serve", os.Getenv(EnvListen), "Serve the conversation over HTTP on this address, e.g. localhost:8080")
	ontology := fs.String("insights", "", "Infer medical entities per summary section (entities|icd10cm|rxnorm|snomedct)")
	skipSmallTalk := fs.Bool("small-talk", false, "Skip small talk during playback")
	skipSilence := fs.Bool("silence", false, "Skip silence during playback")
	maxSpeakers := fs.Int("speakers", 2, "Maximum number of speakers for diarization")
	logLevel := fs.String("log-level", "info", "Log level (trace|debug|info|warn|error)")
	logJSON := fs.Bool("log-json", false, "Log in JSON format")
	version := fs.Bool("v", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	if *version {
		PrintVersion()
	}

	// fail fast
	if *inputFilePath == "" && *jobName == "" && *transcriptPath == "" {
		fs.Usage()
		return nil, ErrNoInput
	}

	cfg := &types.AppConfig{
		JobName:        *jobName,
		InputFilePath:  *inputFilePath,
		TranscriptPath: *transcriptPath,
		SummaryPath:    *summaryPath,
		AudioPath:      *audioPath,
		OutputFilePath: *outputFilePath,
		BucketName:     *bucketName,
		Region:         *region,
		RoleARN:        *roleARN,
		MaxSpeakers:    *maxSpeakers,
		Ontology:       types.Ontology(strings.ToLower(*ontology)),
		SkipSmallTalk:  *skipSmallTalk,
		SkipSilence:    *skipSilence,
		ListenAddr:     *listenAddr,
		LogLevel:       strings.ToLower(*logLevel),
		LogJSON:        *logJSON,
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags of cfg and the rules spanning several fields.
func Validate(cfg *types.AppConfig) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("invalid configuration:\n%s", strings.Join(FormatValidationErrors(verrs), "\n"))
		}
		return fmt.Errorf("validating configuration: %w", err)
	}

	// local transcripts don't need S3
	if cfg.TranscriptPath == "" {
		if cfg.BucketName == "" {
			return fmt.Errorf("bucket name is required with -f or -j (flag -b or %s)", EnvBucket)
		}
		isValid, err := validateBucketName(cfg.BucketName)
		if err != nil {
			return fmt.Errorf("invalid bucket name %q: %w", cfg.BucketName, err)
		}
		if !isValid {
			return fmt.Errorf("invalid bucket name %q", cfg.BucketName)
		}
	}
	if cfg.InputFilePath != "" && cfg.JobName != "" {
		return errors.New("-f and -j are mutually exclusive")
	}
	if cfg.SummaryPath != "" && cfg.TranscriptPath == "" {
		return errors.New("-s requires -t")
	}
	return nil
}

// FormatValidationErrors returns one line per failed field.
func FormatValidationErrors(errs validator.ValidationErrors) []string {
	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		line := fmt.Sprintf("field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		if e.Param() != "" {
			line = fmt.Sprintf("%s (param: %s)", line, e.Param())
		}
		lines = append(lines, line)
	}
	return lines
}

// PrintVersion prints version information and exits
func PrintVersion() {
	fmt.Printf("Version: %s\n", Version)
	if len(Commit) >= 7 {
		fmt.Printf("Commit: %s\n", Commit[:7])
	} else {
		fmt.Printf("Commit: %s\n", Commit)
	}
	os.Exit(0)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// validateBucketName validates an S3 bucket name
func validateBucketName(bucket string) (bool, error) {
	re, err := regexp.Compile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)
	if err != nil {
		return false, fmt.Errorf("compile regex: %w", err)
	}
	return re.MatchString(bucket), nil
}
