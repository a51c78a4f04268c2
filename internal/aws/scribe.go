package aws

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/sirupsen/logrus"
)

// ErrJobFailed is returned when HealthScribe reports a job as failed.
var ErrJobFailed = errors.New("medical scribe job failed")

// ScribeAPI is the subset of the Transcribe client used by ScribeService.
type ScribeAPI interface {
	StartMedicalScribeJob(ctx context.Context, params *transcribe.StartMedicalScribeJobInput, optFns ...func(*transcribe.Options)) (*transcribe.StartMedicalScribeJobOutput, error)
	GetMedicalScribeJob(ctx context.Context, params *transcribe.GetMedicalScribeJobInput, optFns ...func(*transcribe.Options)) (*transcribe.GetMedicalScribeJobOutput, error)
}

// JobRequest describes a HealthScribe job to start.
type JobRequest struct {
	JobName     string
	Bucket      string
	MediaKey    string
	RoleARN     string
	MaxSpeakers int
}

// JobOutput locates the documents a completed job produced.
type JobOutput struct {
	JobName       string
	Status        string
	MediaURI      string
	TranscriptURI string
	SummaryURI    string
}

// ScribeService handles HealthScribe operations
type ScribeService struct {
	client ScribeAPI
	cfg    *Config
	log    logrus.FieldLogger
}

// NewScribeService creates a new HealthScribe service
func NewScribeService(client ScribeAPI, cfg *Config, log logrus.FieldLogger) *ScribeService {
	return &ScribeService{client: client, cfg: cfg, log: log}
}

// EnsureJob starts the job unless one with the same name exists, then waits until it
// completes.
func (s *ScribeService) EnsureJob(ctx context.Context, req JobRequest) (*JobOutput, error) {
	log := s.log.WithField("job", req.JobName)

	job, err := s.GetJob(ctx, req.JobName)
	if err != nil {
		return nil, fmt.Errorf("checking medical scribe job status: %w", err)
	}
	if job != nil {
		log.WithField("status", job.Status).Info("Medical scribe job already exists")
	} else {
		log.Info("Starting medical scribe job")
		if err := s.startJob(ctx, req); err != nil {
			return nil, fmt.Errorf("start medical scribe job: %w", err)
		}
	}
	return s.WaitForJob(ctx, req.JobName)
}

// WaitForJob polls the job until it completes or fails.
func (s *ScribeService) WaitForJob(ctx context.Context, jobName string) (*JobOutput, error) {
	log := s.log.WithField("job", jobName)
	ticker := time.NewTicker(s.cfg.Get().PollInterval)
	defer ticker.Stop()

	for {
		job, err := s.GetJob(ctx, jobName)
		if err != nil {
			return nil, fmt.Errorf("retrieving medical scribe job status: %w", err)
		}
		if job == nil {
			return nil, fmt.Errorf("medical scribe job %q not found", jobName)
		}
		log.WithField("status", job.Status).Debug("Job status")
		switch types.MedicalScribeJobStatus(job.Status) {
		case types.MedicalScribeJobStatusCompleted:
			log.Info("Medical scribe job completed")
			return job, nil
		case types.MedicalScribeJobStatusFailed:
			return nil, fmt.Errorf("%w: %s", ErrJobFailed, jobName)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// GetJob returns the job's status and outputs, or nil if no such job exists.
func (s *ScribeService) GetJob(ctx context.Context, jobName string) (*JobOutput, error) {
	out, err := s.client.GetMedicalScribeJob(ctx, &transcribe.GetMedicalScribeJobInput{
		MedicalScribeJobName: &jobName,
	}, s.withRegion)
	if err != nil {
		if isNotFoundError(err) || strings.Contains(err.Error(), "The requested job couldn't be found") {
			return nil, nil
		}
		return nil, err
	}

	job := out.MedicalScribeJob
	if job == nil {
		return nil, nil
	}
	res := &JobOutput{
		JobName: jobName,
		Status:  string(job.MedicalScribeJobStatus),
	}
	if job.Media != nil {
		res.MediaURI = aws.ToString(job.Media.MediaFileUri)
	}
	if job.MedicalScribeOutput != nil {
		res.TranscriptURI = aws.ToString(job.MedicalScribeOutput.TranscriptFileUri)
		res.SummaryURI = aws.ToString(job.MedicalScribeOutput.ClinicalDocumentUri)
	}
	if job.MedicalScribeJobStatus == types.MedicalScribeJobStatusFailed && job.FailureReason != nil {
		s.log.WithField("job", jobName).Warnf("Job failed: %s", *job.FailureReason)
	}
	return res, nil
}

// startJob starts a medical scribe job using the provided S3 file.
func (s *ScribeService) startJob(ctx context.Context, req JobRequest) error {
	mediaURI := fmt.Sprintf("s3://%s/%s", req.Bucket, req.MediaKey)
	maxSpeakers := int32(req.MaxSpeakers)
	input := &transcribe.StartMedicalScribeJobInput{
		MedicalScribeJobName: &req.JobName,
		Media: &types.Media{
			MediaFileUri: &mediaURI,
		},
		OutputBucketName:  &req.Bucket,
		DataAccessRoleArn: &req.RoleARN,
		Settings: &types.MedicalScribeSettings{
			ShowSpeakerLabels: aws.Bool(true),
			MaxSpeakerLabels:  &maxSpeakers,
		},
	}
	_, err := s.client.StartMedicalScribeJob(ctx, input, s.withRegion)
	return err
}

// withRegion routes a call to the configured region, if one is set.
func (s *ScribeService) withRegion(o *transcribe.Options) {
	if r := s.cfg.Get().Region; r != "" {
		o.Region = r
	}
}

// MediaKey returns the upload key for an audio file, scoped by a content hash so that
// re-running with the same file reuses the upload and the job.
func MediaKey(fileHash, filePath string) string {
	return fmt.Sprintf("uploads/%s_%s", fileHash, filepath.Base(filePath))
}
