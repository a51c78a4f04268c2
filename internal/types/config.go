package types

// AppConfig holds the command-line parameters.
type AppConfig struct {
	JobName        string `validate:"omitempty,max=200"`
	InputFilePath  string `validate:"omitempty,file"`
	TranscriptPath string `validate:"omitempty,file"`
	SummaryPath    string `validate:"omitempty,file"`
	AudioPath      string `validate:"omitempty,file"`
	OutputFilePath string
	BucketName     string   `validate:"omitempty,min=3,max=63"`
	Region         string   `validate:"required"`
	RoleARN        string   `validate:"required_with=InputFilePath"`
	MaxSpeakers    int      `validate:"gte=2,lte=10"`
	Ontology       Ontology `validate:"omitempty,oneof=entities icd10cm rxnorm snomedct"`
	SkipSmallTalk  bool
	SkipSilence    bool
	ListenAddr     string `validate:"omitempty,hostname_port"`
	LogLevel       string `validate:"oneof=trace debug info warn error"`
	LogJSON        bool
}
