package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/comprehendmedical"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	transcribetypes "github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/sirupsen/logrus"

	"github.com/embano1/healthscribe-demo/internal/api"
	"github.com/embano1/healthscribe-demo/internal/audio"
	awsclient "github.com/embano1/healthscribe-demo/internal/aws"
	"github.com/embano1/healthscribe-demo/internal/config"
	"github.com/embano1/healthscribe-demo/internal/conversation"
	"github.com/embano1/healthscribe-demo/internal/formatting"
	"github.com/embano1/healthscribe-demo/internal/notify"
	"github.com/embano1/healthscribe-demo/internal/types"
)

const jobTimeout = 30 * time.Minute

func main() {
	cfg, err := config.New(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := config.NewLogger(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Create a cancellable context that listens for OS interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("Failed")
	}
}

func run(ctx context.Context, cfg *types.AppConfig, log *logrus.Logger) error {
	notifier := notify.NewLogNotifier(log)

	var awsCfg aws.Config
	if cfg.TranscriptPath == "" || cfg.Ontology != "" {
		var err error
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return fmt.Errorf("unable to load AWS SDK config: %w", err)
		}
	}
	settings := awsclient.NewConfig(awsclient.Settings{Region: cfg.Region})

	opts := conversation.ServiceOptions{Notifier: notifier, Ontology: cfg.Ontology}
	if cfg.Ontology != "" {
		opts.Inferer = awsclient.NewMedicalService(comprehendmedical.NewFromConfig(awsCfg))
	}

	var (
		svc     *conversation.Service
		jobName = cfg.JobName
	)
	if cfg.TranscriptPath != "" {
		v, err := loadLocal(ctx, cfg, opts)
		if err != nil {
			return err
		}
		svc = conversation.NewService(opts)
		svc.Add(v)
		jobName = v.JobName
	} else {
		s3Svc := awsclient.NewS3Service(s3.NewFromConfig(awsCfg), settings)
		scribe := awsclient.NewScribeService(transcribe.NewFromConfig(awsCfg), settings, log)

		if cfg.InputFilePath != "" {
			name, err := startJob(ctx, cfg, s3Svc, scribe, log)
			if err != nil {
				return err
			}
			jobName = name
		}

		opts.Store = s3Svc
		opts.Signer = s3Svc
		opts.Resolver = jobResolver(scribe, cfg.BucketName)
		svc = conversation.NewService(opts)
	}

	v, err := svc.Conversation(ctx, jobName)
	if err != nil {
		return fmt.Errorf("loading conversation %s: %w", jobName, err)
	}
	if v.UnresolvedSpans > 0 {
		log.WithField("spans", v.UnresolvedSpans).Warn("Some insight spans could not be located")
	}

	if cfg.AudioPath != "" {
		peaks, duration, err := audio.PeaksFromFile(cfg.AudioPath, audio.DefaultPeakCount)
		if err != nil {
			return fmt.Errorf("computing waveform peaks: %w", err)
		}
		v.SetPeaks(peaks, duration)
		log.WithFields(logrus.Fields{
			"duration": duration,
			"silences": len(v.Silence),
		}).Info("Computed waveform peaks")
	}

	if cfg.ListenAddr != "" {
		return serve(ctx, cfg, svc, log)
	}

	out := formatting.FormatConversation(v)
	if cfg.OutputFilePath == "" {
		_, err := io.WriteString(os.Stdout, out)
		return err
	}
	if err := os.WriteFile(cfg.OutputFilePath, []byte(out), 0o644); err != nil {
		return fmt.Errorf("failed to write conversation to file: %w", err)
	}
	log.Infof("Conversation saved to %q", cfg.OutputFilePath)
	return nil
}

// loadLocal builds the view of a transcript and summary on disk.
func loadLocal(ctx context.Context, cfg *types.AppConfig, opts conversation.ServiceOptions) (*conversation.View, error) {
	jobName := cfg.JobName
	if jobName == "" {
		jobName = strings.TrimSuffix(filepath.Base(cfg.TranscriptPath), filepath.Ext(cfg.TranscriptPath))
	}
	src := conversation.Source{
		JobName:       jobName,
		TranscriptKey: cfg.TranscriptPath,
		SummaryKey:    cfg.SummaryPath,
	}

	p, err := conversation.NewLoader(conversation.FileStore{}, opts.Notifier).Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("loading local conversation: %w", err)
	}
	v := conversation.Build(p, opts.Notifier)
	if opts.Inferer != nil {
		v.Entities = conversation.InferSections(ctx, opts.Inferer, v.Sections, opts.Ontology, opts.Notifier)
	}
	return v, nil
}

// startJob uploads the input file unless it is already in the bucket and runs a
// HealthScribe job over it. Both are named after the file's content hash, so re-running
// with the same file reuses them.
func startJob(ctx context.Context, cfg *types.AppConfig, s3Svc *awsclient.S3Service, scribe *awsclient.ScribeService, log logrus.FieldLogger) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	fileHash, err := hashFile(cfg.InputFilePath)
	if err != nil {
		return "", err
	}
	s3Key := awsclient.MediaKey(fileHash, cfg.InputFilePath)
	jobName := fmt.Sprintf("healthscribe-%s", fileHash)

	log.WithFields(logrus.Fields{"key": s3Key, "job": jobName}).Info("Using S3 key and job name")

	if err := s3Svc.HeadBucket(ctx, cfg.BucketName); err != nil {
		return "", fmt.Errorf("bucket %s is not accessible: %w", cfg.BucketName, err)
	}

	exists, err := s3Svc.CheckObjectExists(ctx, cfg.BucketName, s3Key)
	if err != nil {
		return "", fmt.Errorf("failed to check S3 object existence: %w", err)
	}
	if exists {
		log.Info("File already exists in S3; skipping upload")
	} else {
		log.Info("Uploading file to S3")
		if err := s3Svc.UploadFile(ctx, cfg.BucketName, s3Key, cfg.InputFilePath); err != nil {
			return "", fmt.Errorf("failed to upload file to S3: %w", err)
		}
		log.Info("Upload completed")
	}

	_, err = scribe.EnsureJob(ctx, awsclient.JobRequest{
		JobName:     jobName,
		Bucket:      cfg.BucketName,
		MediaKey:    s3Key,
		RoleARN:     cfg.RoleARN,
		MaxSpeakers: cfg.MaxSpeakers,
	})
	if err != nil {
		return "", fmt.Errorf("error ensuring medical scribe job: %w", err)
	}
	return jobName, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("failed to compute file hash: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16], nil // using first 16 hex digits
}

// jobResolver locates a completed job's documents and audio from its HealthScribe record.
// Outputs outside bucket fall back to the default layout.
func jobResolver(scribe *awsclient.ScribeService, bucket string) conversation.Resolver {
	return conversation.ResolverFunc(func(ctx context.Context, jobName string) (conversation.Source, error) {
		src := conversation.JobSource(bucket, jobName)

		job, err := scribe.GetJob(ctx, jobName)
		if err != nil {
			return src, err
		}
		if job == nil {
			return src, conversation.ErrNotFound
		}
		if job.Status != string(transcribetypes.MedicalScribeJobStatusCompleted) {
			return src, fmt.Errorf("job %s is %s", jobName, job.Status)
		}

		if b, key, err := awsclient.ParseObjectURI(job.TranscriptURI); err == nil && b == bucket {
			src.TranscriptKey = key
		}
		if b, key, err := awsclient.ParseObjectURI(job.SummaryURI); err == nil && b == bucket {
			src.SummaryKey = key
		}
		if b, key, err := awsclient.ParseObjectURI(job.MediaURI); err == nil && b == bucket {
			src.AudioKey = key
		}
		return src, nil
	})
}

func serve(ctx context.Context, cfg *types.AppConfig, provider api.ConversationProvider, log *logrus.Logger) error {
	router := api.NewRouter(provider, log, api.Options{
		SkipSmallTalk: cfg.SkipSmallTalk,
		SkipSilence:   cfg.SkipSilence,
	})
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("Serving conversations")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	log.Info("Server stopped")
	return nil
}
