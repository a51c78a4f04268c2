package aws

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/comprehendmedical"
	cmtypes "github.com/aws/aws-sdk-go-v2/service/comprehendmedical/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/sirupsen/logrus"

	appTypes "github.com/embano1/healthscribe-demo/internal/types"
)

type fakeS3 struct {
	objects map[string]string
	puts    []string
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, *in.Key)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[*in.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

type fakePresigner struct {
	expires time.Duration
}

func (f *fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	opts := s3.PresignOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://example.com/" + *in.Bucket + "/" + *in.Key}, nil
}

func TestS3Service(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{objects: map[string]string{"job/transcript.json": `{"Conversation":{}}`}}
	presigner := &fakePresigner{}
	cfg := NewConfig(Settings{Region: "us-east-1"})
	svc := &S3Service{client: client, presigner: presigner, cfg: cfg}

	exists, err := svc.CheckObjectExists(ctx, "bucket", "job/transcript.json")
	if err != nil || !exists {
		t.Errorf("expected object to exist, got %v %v", exists, err)
	}
	exists, err = svc.CheckObjectExists(ctx, "bucket", "missing")
	if err != nil || exists {
		t.Errorf("expected missing object, got %v %v", exists, err)
	}

	raw, err := svc.GetObject(ctx, "bucket", "job/transcript.json")
	if err != nil || string(raw) != `{"Conversation":{}}` {
		t.Errorf("unexpected object %q %v", raw, err)
	}
	if _, err := svc.GetObject(ctx, "bucket", "missing"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}

	cfg.Update(func(s *Settings) { s.PresignExpiry = time.Hour })
	url, err := svc.PresignGetURL(ctx, "bucket", "audio.mp3")
	if err != nil || url != "https://example.com/bucket/audio.mp3" {
		t.Errorf("unexpected presigned URL %q %v", url, err)
	}
	if presigner.expires != time.Hour {
		t.Errorf("expected updated expiry, got %v", presigner.expires)
	}
}

func TestParseObjectURI(t *testing.T) {
	tests := []struct {
		uri         string
		bucket, key string
		wantErr     bool
	}{
		{uri: "s3://bucket/job/transcript.json", bucket: "bucket", key: "job/transcript.json"},
		{uri: "https://s3.us-east-1.amazonaws.com/bucket/job/summary.json", bucket: "bucket", key: "job/summary.json"},
		{uri: "https://bucket.s3.us-west-2.amazonaws.com/uploads/a.mp3", bucket: "bucket", key: "uploads/a.mp3"},
		{uri: "https://example.com/file", wantErr: true},
		{uri: "s3://bucket", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, key, err := ParseObjectURI(tt.uri)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %s %s", bucket, key)
				}
				return
			}
			if err != nil || bucket != tt.bucket || key != tt.key {
				t.Errorf("expected %s %s, got %s %s (%v)", tt.bucket, tt.key, bucket, key, err)
			}
		})
	}
}

type fakeScribe struct {
	statuses []types.MedicalScribeJobStatus
	started  *transcribe.StartMedicalScribeJobInput
	calls    int
	region   string
}

func (f *fakeScribe) StartMedicalScribeJob(_ context.Context, in *transcribe.StartMedicalScribeJobInput, optFns ...func(*transcribe.Options)) (*transcribe.StartMedicalScribeJobOutput, error) {
	var o transcribe.Options
	for _, fn := range optFns {
		fn(&o)
	}
	f.region = o.Region
	f.started = in
	return &transcribe.StartMedicalScribeJobOutput{}, nil
}

func (f *fakeScribe) GetMedicalScribeJob(_ context.Context, in *transcribe.GetMedicalScribeJobInput, _ ...func(*transcribe.Options)) (*transcribe.GetMedicalScribeJobOutput, error) {
	if f.started == nil {
		return nil, &types.BadRequestException{Message: aws.String("The requested job couldn't be found. Check the job name and try again.")}
	}
	status := f.statuses[len(f.statuses)-1]
	if f.calls < len(f.statuses) {
		status = f.statuses[f.calls]
	}
	f.calls++
	return &transcribe.GetMedicalScribeJobOutput{MedicalScribeJob: &types.MedicalScribeJob{
		MedicalScribeJobName:   in.MedicalScribeJobName,
		MedicalScribeJobStatus: status,
		MedicalScribeOutput: &types.MedicalScribeOutput{
			TranscriptFileUri:   aws.String("https://s3.us-east-1.amazonaws.com/bucket/visit/transcript.json"),
			ClinicalDocumentUri: aws.String("https://s3.us-east-1.amazonaws.com/bucket/visit/summary.json"),
		},
	}}, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestScribeServiceEnsureJob(t *testing.T) {
	client := &fakeScribe{statuses: []types.MedicalScribeJobStatus{
		types.MedicalScribeJobStatusInProgress,
		types.MedicalScribeJobStatusCompleted,
	}}
	svc := NewScribeService(client, NewConfig(Settings{Region: "eu-west-1", PollInterval: time.Millisecond}), quietLogger())

	out, err := svc.EnsureJob(context.Background(), JobRequest{
		JobName:     "visit",
		Bucket:      "bucket",
		MediaKey:    "uploads/abc_visit.mp3",
		RoleARN:     "arn:aws:iam::123456789012:role/scribe",
		MaxSpeakers: 3,
	})
	if err != nil {
		t.Fatalf("EnsureJob failed: %v", err)
	}
	if client.started == nil || aws.ToString(client.started.Media.MediaFileUri) != "s3://bucket/uploads/abc_visit.mp3" {
		t.Fatalf("job not started with expected media")
	}
	if client.region != "eu-west-1" {
		t.Errorf("expected job started in eu-west-1, got %q", client.region)
	}
	if got := aws.ToInt32(client.started.Settings.MaxSpeakerLabels); got != 3 {
		t.Errorf("expected 3 max speakers, got %d", got)
	}
	if out.Status != string(types.MedicalScribeJobStatusCompleted) {
		t.Errorf("unexpected status %s", out.Status)
	}
	if out.SummaryURI == "" || out.TranscriptURI == "" {
		t.Errorf("missing output URIs: %+v", out)
	}
}

func TestScribeServiceJobFailed(t *testing.T) {
	client := &fakeScribe{
		statuses: []types.MedicalScribeJobStatus{types.MedicalScribeJobStatusFailed},
		started:  &transcribe.StartMedicalScribeJobInput{},
	}
	svc := NewScribeService(client, NewConfig(Settings{PollInterval: time.Millisecond}), quietLogger())

	_, err := svc.EnsureJob(context.Background(), JobRequest{JobName: "visit"})
	if !errors.Is(err, ErrJobFailed) {
		t.Errorf("expected ErrJobFailed, got %v", err)
	}
}

type fakeMedical struct {
	MedicalAPI
	calls []string
}

func (f *fakeMedical) InferRxNorm(_ context.Context, in *comprehendmedical.InferRxNormInput, _ ...func(*comprehendmedical.Options)) (*comprehendmedical.InferRxNormOutput, error) {
	f.calls = append(f.calls, "rxnorm:"+*in.Text)
	return &comprehendmedical.InferRxNormOutput{Entities: []cmtypes.RxNormEntity{{
		Text:     aws.String("ibuprofen"),
		Category: cmtypes.RxNormEntityCategoryMedication,
		Type:     cmtypes.RxNormEntityTypeGenericName,
		Score:    aws.Float32(0.5),
		RxNormConcepts: []cmtypes.RxNormConcept{{
			Code:        aws.String("5640"),
			Description: aws.String("ibuprofen"),
			Score:       aws.Float32(0.25),
		}},
	}}}, nil
}

func (f *fakeMedical) DetectEntitiesV2(_ context.Context, in *comprehendmedical.DetectEntitiesV2Input, _ ...func(*comprehendmedical.Options)) (*comprehendmedical.DetectEntitiesV2Output, error) {
	f.calls = append(f.calls, "entities:"+*in.Text)
	return nil, errors.New("throttled")
}

func TestMedicalServiceInfer(t *testing.T) {
	client := &fakeMedical{}
	svc := NewMedicalService(client)

	entities, err := svc.Infer(context.Background(), "Take ibuprofen", appTypes.OntologyRxNorm)
	if err != nil {
		t.Fatalf("Infer failed: %v", err)
	}
	if len(entities) != 1 {
		t.Fatalf("expected one entity, got %d", len(entities))
	}
	e := entities[0]
	if e.Text != "ibuprofen" || e.Category != "MEDICATION" || e.Score != 0.5 {
		t.Errorf("unexpected entity %+v", e)
	}
	if len(e.Concepts) != 1 || e.Concepts[0].Code != "5640" || e.Concepts[0].Score != 0.25 {
		t.Errorf("unexpected concepts %+v", e.Concepts)
	}

	if _, err := svc.Infer(context.Background(), "x", appTypes.OntologyEntities); err == nil {
		t.Error("expected error from detect entities")
	}
	if _, err := svc.Infer(context.Background(), "x", "bogus"); err == nil {
		t.Error("expected error for unsupported ontology")
	}
	if len(client.calls) != 2 {
		t.Errorf("unexpected calls %v", client.calls)
	}
}

func TestMediaKey(t *testing.T) {
	if got := MediaKey("abc123", "/tmp/rec/visit.mp3"); got != "uploads/abc123_visit.mp3" {
		t.Errorf("unexpected key %q", got)
	}
}
