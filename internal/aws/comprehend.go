package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/comprehendmedical"
	cmtypes "github.com/aws/aws-sdk-go-v2/service/comprehendmedical/types"

	appTypes "github.com/embano1/healthscribe-demo/internal/types"
)

// MedicalAPI is the subset of the Comprehend Medical client used by MedicalService.
type MedicalAPI interface {
	DetectEntitiesV2(ctx context.Context, params *comprehendmedical.DetectEntitiesV2Input, optFns ...func(*comprehendmedical.Options)) (*comprehendmedical.DetectEntitiesV2Output, error)
	InferICD10CM(ctx context.Context, params *comprehendmedical.InferICD10CMInput, optFns ...func(*comprehendmedical.Options)) (*comprehendmedical.InferICD10CMOutput, error)
	InferRxNorm(ctx context.Context, params *comprehendmedical.InferRxNormInput, optFns ...func(*comprehendmedical.Options)) (*comprehendmedical.InferRxNormOutput, error)
	InferSNOMEDCT(ctx context.Context, params *comprehendmedical.InferSNOMEDCTInput, optFns ...func(*comprehendmedical.Options)) (*comprehendmedical.InferSNOMEDCTOutput, error)
}

// MedicalService extracts medical entities with Comprehend Medical.
type MedicalService struct {
	client MedicalAPI
}

// NewMedicalService creates a new Comprehend Medical service
func NewMedicalService(client MedicalAPI) *MedicalService {
	return &MedicalService{client: client}
}

// Infer runs the inference selected by ontology over text.
func (m *MedicalService) Infer(ctx context.Context, text string, ontology appTypes.Ontology) ([]appTypes.Entity, error) {
	switch ontology {
	case appTypes.OntologyICD10CM:
		out, err := m.client.InferICD10CM(ctx, &comprehendmedical.InferICD10CMInput{Text: &text})
		if err != nil {
			return nil, fmt.Errorf("infer ICD-10-CM: %w", err)
		}
		return fromICD10CM(out.Entities), nil
	case appTypes.OntologyRxNorm:
		out, err := m.client.InferRxNorm(ctx, &comprehendmedical.InferRxNormInput{Text: &text})
		if err != nil {
			return nil, fmt.Errorf("infer RxNorm: %w", err)
		}
		return fromRxNorm(out.Entities), nil
	case appTypes.OntologySNOMEDCT:
		out, err := m.client.InferSNOMEDCT(ctx, &comprehendmedical.InferSNOMEDCTInput{Text: &text})
		if err != nil {
			return nil, fmt.Errorf("infer SNOMED CT: %w", err)
		}
		return fromSNOMEDCT(out.Entities), nil
	case appTypes.OntologyEntities, "":
		out, err := m.client.DetectEntitiesV2(ctx, &comprehendmedical.DetectEntitiesV2Input{Text: &text})
		if err != nil {
			return nil, fmt.Errorf("detect entities: %w", err)
		}
		return fromEntities(out.Entities), nil
	default:
		return nil, fmt.Errorf("unsupported ontology %q", ontology)
	}
}

func score(v *float32) float64 {
	return float64(aws.ToFloat32(v))
}

func fromEntities(in []cmtypes.Entity) []appTypes.Entity {
	out := make([]appTypes.Entity, 0, len(in))
	for _, e := range in {
		ent := appTypes.Entity{
			Text:     aws.ToString(e.Text),
			Category: string(e.Category),
			Type:     string(e.Type),
			Score:    score(e.Score),
		}
		for _, a := range e.Attributes {
			ent.Attributes = append(ent.Attributes, appTypes.EntityAttribute{
				Type:  string(a.Type),
				Text:  aws.ToString(a.Text),
				Score: score(a.Score),
			})
		}
		out = append(out, ent)
	}
	return out
}

func fromICD10CM(in []cmtypes.ICD10CMEntity) []appTypes.Entity {
	out := make([]appTypes.Entity, 0, len(in))
	for _, e := range in {
		ent := appTypes.Entity{
			Text:     aws.ToString(e.Text),
			Category: string(e.Category),
			Type:     string(e.Type),
			Score:    score(e.Score),
		}
		for _, a := range e.Attributes {
			ent.Attributes = append(ent.Attributes, appTypes.EntityAttribute{
				Type:  string(a.Type),
				Text:  aws.ToString(a.Text),
				Score: score(a.Score),
			})
		}
		for _, c := range e.ICD10CMConcepts {
			ent.Concepts = append(ent.Concepts, appTypes.Concept{
				Code:        aws.ToString(c.Code),
				Description: aws.ToString(c.Description),
				Score:       score(c.Score),
			})
		}
		out = append(out, ent)
	}
	return out
}

func fromRxNorm(in []cmtypes.RxNormEntity) []appTypes.Entity {
	out := make([]appTypes.Entity, 0, len(in))
	for _, e := range in {
		ent := appTypes.Entity{
			Text:     aws.ToString(e.Text),
			Category: string(e.Category),
			Type:     string(e.Type),
			Score:    score(e.Score),
		}
		for _, a := range e.Attributes {
			ent.Attributes = append(ent.Attributes, appTypes.EntityAttribute{
				Type:  string(a.Type),
				Text:  aws.ToString(a.Text),
				Score: score(a.Score),
			})
		}
		for _, c := range e.RxNormConcepts {
			ent.Concepts = append(ent.Concepts, appTypes.Concept{
				Code:        aws.ToString(c.Code),
				Description: aws.ToString(c.Description),
				Score:       score(c.Score),
			})
		}
		out = append(out, ent)
	}
	return out
}

func fromSNOMEDCT(in []cmtypes.SNOMEDCTEntity) []appTypes.Entity {
	out := make([]appTypes.Entity, 0, len(in))
	for _, e := range in {
		ent := appTypes.Entity{
			Text:     aws.ToString(e.Text),
			Category: string(e.Category),
			Type:     string(e.Type),
			Score:    score(e.Score),
		}
		for _, a := range e.Attributes {
			ent.Attributes = append(ent.Attributes, appTypes.EntityAttribute{
				Type:  string(a.Type),
				Text:  aws.ToString(a.Text),
				Score: score(a.Score),
			})
		}
		for _, c := range e.SNOMEDCTConcepts {
			ent.Concepts = append(ent.Concepts, appTypes.Concept{
				Code:        aws.ToString(c.Code),
				Description: aws.ToString(c.Description),
				Score:       score(c.Score),
			})
		}
		out = append(out, ent)
	}
	return out
}
