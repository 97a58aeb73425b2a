/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
)

// RekognitionAPI is the subset of the Rekognition client used here.
type RekognitionAPI interface {
	DetectModerationLabels(ctx context.Context, params *rekognition.DetectModerationLabelsInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectModerationLabelsOutput, error)
}

// minConfidence is low enough that the UNLIKELY band is observable.
const minConfidence float32 = 20

// labelCategories maps moderation label names, at any taxonomy level, onto
// categories. Labels not listed here are ignored.
var labelCategories = map[string]Category{
	"Explicit Nudity":          Adult,
	"Explicit":                 Adult,
	"Sexual Activity":          Adult,
	"Explicit Sexual Activity": Adult,

	"Violence":            Violence,
	"Graphic Violence":    Violence,
	"Visually Disturbing": Violence,

	"Suggestive":            Racy,
	"Non-Explicit Nudity":   Racy,
	"Swimwear or Underwear": Racy,

	"Non-Explicit Nudity of Intimate parts and Kissing": Racy,
}

// Rekognition classifies images stored in S3 with DetectModerationLabels.
type Rekognition struct {
	client RekognitionAPI
}

// NewRekognitionClient creates a Rekognition client from a shared AWS configuration.
func NewRekognitionClient(cfg aws.Config, optFns ...func(*rekognition.Options)) *rekognition.Client {
	return rekognition.NewFromConfig(cfg, optFns...)
}

// NewRekognition returns a Backend backed by client.
func NewRekognition(client RekognitionAPI) *Rekognition {
	return &Rekognition{client: client}
}

// Classify implements Backend. A successful call scores every known
// category; categories without a matching label are VeryUnlikely.
func (r *Rekognition) Classify(ctx context.Context, ref ImageRef) (Scores, error) {
	if ref.Bucket == "" || ref.Key == "" {
		return nil, errors.New("image reference needs bucket and key")
	}

	out, err := r.client.DetectModerationLabels(ctx, &rekognition.DetectModerationLabelsInput{
		Image: &types.Image{
			S3Object: &types.S3Object{
				Bucket: aws.String(ref.Bucket),
				Name:   aws.String(ref.Key),
			},
		},
		MinConfidence: aws.Float32(minConfidence),
	})
	if err != nil {
		return nil, fmt.Errorf("DetectModerationLabels: %w", err)
	}
	if out == nil {
		return nil, errors.New("DetectModerationLabels returned no output")
	}

	return scoreLabels(out.ModerationLabels)
}

func scoreLabels(labels []types.ModerationLabel) (Scores, error) {
	scores := Scores{
		Adult:    VeryUnlikely,
		Violence: VeryUnlikely,
		Racy:     VeryUnlikely,
	}

	for _, label := range labels {
		if label.Confidence == nil {
			return nil, fmt.Errorf("label %q has no confidence", aws.ToString(label.Name))
		}

		category, ok := labelCategories[aws.ToString(label.Name)]
		if !ok {
			category, ok = labelCategories[aws.ToString(label.ParentName)]
		}
		if !ok {
			continue
		}

		if l := FromConfidence(*label.Confidence); l > scores[category] {
			scores[category] = l
		}
	}
	return scores, nil
}
