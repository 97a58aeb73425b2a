/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package classifier

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	cgerrors "github.com/suparena/contentguard/errors"
	"github.com/suparena/contentguard/event"
	"github.com/suparena/contentguard/verdict"
)

var image = event.StorageEvent{Bucket: "b", Name: "discussionsMedia/u1/x.png", ContentType: "image/png"}

// countingBackend returns fixed scores and counts calls.
type countingBackend struct {
	scores Scores
	err    error
	delay  time.Duration
	calls  atomic.Int32
	last   ImageRef
}

func (b *countingBackend) Classify(ctx context.Context, ref ImageRef) (Scores, error) {
	b.calls.Add(1)
	b.last = ref
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return b.scores, b.err
}

func TestLikelihoodOrder(t *testing.T) {
	order := []Likelihood{Unknown, VeryUnlikely, Unlikely, Possible, Likely, VeryLikely}
	for i := 1; i < len(order); i++ {
		assert.Less(t, order[i-1].Rank(), order[i].Rank())
		assert.True(t, order[i].AtLeast(order[i-1]))
		assert.False(t, order[i-1].AtLeast(order[i]))
	}
}

func TestParseLikelihood(t *testing.T) {
	tests := []struct {
		in   string
		want Likelihood
	}{
		{"UNKNOWN", Unknown},
		{"VERY_UNLIKELY", VeryUnlikely},
		{"unlikely", Unlikely},
		{" Possible ", Possible},
		{"LIKELY", Likely},
		{"very-likely", VeryLikely},
		{"Very Likely", VeryLikely},
	}
	for _, tt := range tests {
		got, err := ParseLikelihood(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLikelihood("SOMEWHAT")
	assert.True(t, cgerrors.IsValidationError(err))
}

func TestLikelihoodText(t *testing.T) {
	b, err := Possible.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "POSSIBLE", string(b))

	var l Likelihood
	require.NoError(t, l.UnmarshalText([]byte("very_likely")))
	assert.Equal(t, VeryLikely, l)

	assert.Error(t, l.UnmarshalText([]byte("nope")))
	assert.Equal(t, "UNKNOWN", Likelihood(42).String())
}

func TestFromConfidence(t *testing.T) {
	tests := []struct {
		conf float32
		want Likelihood
	}{
		{99.5, VeryLikely},
		{90, VeryLikely},
		{89.9, Likely},
		{70, Likely},
		{50, Possible},
		{25, Unlikely},
		{24.9, VeryUnlikely},
		{0, VeryUnlikely},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FromConfidence(tt.conf), "%v", tt.conf)
	}
}

func TestPolicy(t *testing.T) {
	p := DefaultPolicy()
	require.NoError(t, p.Validate())

	tests := []struct {
		name      string
		scores    Scores
		outcome   verdict.Outcome
		triggered []Category
	}{
		{
			name:    "all very unlikely",
			scores:  Scores{Adult: VeryUnlikely, Violence: VeryUnlikely, Racy: VeryUnlikely},
			outcome: verdict.Safe,
		},
		{
			name:    "possible is below LIKELY",
			scores:  Scores{Adult: Possible, Violence: Possible, Racy: Possible},
			outcome: verdict.Safe,
		},
		{
			name:      "racy exactly at threshold",
			scores:    Scores{Adult: VeryUnlikely, Violence: VeryUnlikely, Racy: Likely},
			outcome:   verdict.Unsafe,
			triggered: []Category{Racy},
		},
		{
			name:      "several categories",
			scores:    Scores{Adult: VeryLikely, Violence: Likely, Racy: Unlikely},
			outcome:   verdict.Unsafe,
			triggered: []Category{Adult, Violence},
		},
		{
			name:    "empty scores trigger nothing",
			scores:  Scores{},
			outcome: verdict.Safe,
		},
		{
			name:    "unmonitored category is ignored",
			scores:  Scores{"medical": VeryLikely},
			outcome: verdict.Safe,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.outcome, p.Evaluate(tt.scores))
			assert.Equal(t, tt.triggered, p.Triggered(tt.scores))
		})
	}
}

func TestPolicyMissing(t *testing.T) {
	p := DefaultPolicy()

	assert.Empty(t, p.Missing(Scores{Adult: VeryUnlikely, Violence: VeryUnlikely, Racy: VeryUnlikely, "medical": Likely}))
	assert.Equal(t, []Category{Violence}, p.Missing(Scores{Adult: VeryUnlikely, Racy: Unknown}))
	assert.Equal(t, DefaultCategories, p.Missing(nil))
}

func TestScored(t *testing.T) {
	assert.True(t, Scored(Racy))
	assert.False(t, Scored("medical"))
}

func TestPolicyValidate(t *testing.T) {
	assert.Error(t, Policy{Threshold: Unknown, Categories: DefaultCategories}.Validate())
	assert.Error(t, Policy{Threshold: Likely}.Validate())
	assert.NoError(t, Policy{Threshold: Possible, Categories: []Category{Adult}}.Validate())
}

func TestParseCategories(t *testing.T) {
	got, err := ParseCategories(" Adult, violence,,racy,adult ")
	require.NoError(t, err)
	assert.Equal(t, []Category{Adult, Violence, Racy}, got)

	_, err = ParseCategories(" , ")
	assert.Error(t, err)
}

func TestAdapterVerdicts(t *testing.T) {
	safe := &countingBackend{scores: Scores{Adult: VeryUnlikely, Violence: VeryUnlikely, Racy: VeryUnlikely}}
	res := NewAdapter(safe).Classify(context.Background(), image)
	assert.Equal(t, verdict.Safe, res.Outcome)
	assert.NoError(t, res.Err)
	assert.Equal(t, ImageRef{Bucket: "b", Key: "discussionsMedia/u1/x.png"}, safe.last)

	unsafe := &countingBackend{scores: Scores{Adult: Unlikely, Violence: VeryUnlikely, Racy: Likely}}
	res = NewAdapter(unsafe).Classify(context.Background(), image)
	assert.Equal(t, verdict.Unsafe, res.Outcome)
	assert.Equal(t, []Category{Racy}, res.Triggered)
}

func TestAdapterCustomThreshold(t *testing.T) {
	backend := &countingBackend{scores: Scores{Adult: Possible}}
	a := NewAdapter(backend, WithPolicy(Policy{Threshold: Possible, Categories: []Category{Adult}}))

	assert.Equal(t, verdict.Unsafe, a.Classify(context.Background(), image).Outcome)
}

func TestAdapterVideoSkipsBackend(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	backend := &countingBackend{scores: Scores{Adult: VeryLikely}}
	a := NewAdapter(backend, WithLogger(zap.New(core)))

	res := a.Classify(context.Background(), event.StorageEvent{Bucket: "b", Name: "discussionsMedia/x.mp4", ContentType: "video/mp4"})

	assert.Equal(t, verdict.Safe, res.Outcome)
	assert.Equal(t, int32(0), backend.calls.Load())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zap.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, "discussionsMedia/x.mp4", logs.All()[0].ContextMap()["path"])
}

func TestAdapterErrors(t *testing.T) {
	t.Run("backend failure", func(t *testing.T) {
		backend := &countingBackend{err: errors.New("quota exceeded")}
		res := NewAdapter(backend).Classify(context.Background(), image)

		assert.Equal(t, verdict.Error, res.Outcome)
		assert.True(t, cgerrors.IsClassification(res.Err))
		assert.Equal(t, "classifier call failed", res.Reason)
	})

	t.Run("timeout", func(t *testing.T) {
		backend := &countingBackend{scores: Scores{}, delay: time.Second}
		res := NewAdapter(backend, WithTimeout(10*time.Millisecond)).Classify(context.Background(), image)

		assert.Equal(t, verdict.Error, res.Outcome)
		assert.True(t, errors.Is(res.Err, context.DeadlineExceeded))
		assert.Equal(t, "classifier timeout", res.Reason)
	})

	t.Run("empty response", func(t *testing.T) {
		backend := &countingBackend{}
		res := NewAdapter(backend).Classify(context.Background(), image)

		assert.Equal(t, verdict.Error, res.Outcome)
		assert.Error(t, res.Err)
	})

	t.Run("missing category", func(t *testing.T) {
		for _, scores := range []Scores{{}, {Adult: VeryUnlikely, Violence: VeryUnlikely}} {
			backend := &countingBackend{scores: scores}
			res := NewAdapter(backend).Classify(context.Background(), image)

			assert.Equal(t, verdict.Error, res.Outcome)
			assert.Equal(t, "classifier call failed", res.Reason)
			assert.True(t, cgerrors.IsClassification(res.Err))
		}
	})

	t.Run("non image", func(t *testing.T) {
		backend := &countingBackend{scores: Scores{}}
		res := NewAdapter(backend).Classify(context.Background(), event.StorageEvent{Bucket: "b", Name: "n", ContentType: "text/plain"})

		assert.Equal(t, verdict.Error, res.Outcome)
		assert.Equal(t, int32(0), backend.calls.Load())
	})
}

type fakeRekognition struct {
	out *rekognition.DetectModerationLabelsOutput
	err error
	in  *rekognition.DetectModerationLabelsInput
}

func (f *fakeRekognition) DetectModerationLabels(ctx context.Context, in *rekognition.DetectModerationLabelsInput, _ ...func(*rekognition.Options)) (*rekognition.DetectModerationLabelsOutput, error) {
	f.in = in
	return f.out, f.err
}

func label(name, parent string, conf float32) types.ModerationLabel {
	l := types.ModerationLabel{Name: aws.String(name), Confidence: aws.Float32(conf)}
	if parent != "" {
		l.ParentName = aws.String(parent)
	}
	return l
}

func TestRekognitionScores(t *testing.T) {
	api := &fakeRekognition{out: &rekognition.DetectModerationLabelsOutput{
		ModerationLabels: []types.ModerationLabel{
			label("Suggestive", "", 72),
			label("Female Swimwear Or Underwear", "Suggestive", 95),
			label("Violence", "", 30),
			label("Drugs", "", 99),
		},
	}}

	scores, err := NewRekognition(api).Classify(context.Background(), ImageRef{Bucket: "b", Key: "discussionsMedia/x.png"})
	require.NoError(t, err)

	assert.Equal(t, Scores{Adult: VeryUnlikely, Violence: Unlikely, Racy: VeryLikely}, scores)
	assert.Equal(t, "b", aws.ToString(api.in.Image.S3Object.Bucket))
	assert.Equal(t, "discussionsMedia/x.png", aws.ToString(api.in.Image.S3Object.Name))
	assert.Nil(t, api.in.Image.Bytes)
}

func TestRekognitionNoLabelsIsSafe(t *testing.T) {
	api := &fakeRekognition{out: &rekognition.DetectModerationLabelsOutput{}}
	a := NewAdapter(NewRekognition(api))

	assert.Equal(t, verdict.Safe, a.Classify(context.Background(), image).Outcome)
}

func TestRekognitionFailures(t *testing.T) {
	ref := ImageRef{Bucket: "b", Key: "k"}

	_, err := NewRekognition(&fakeRekognition{err: &types.ThrottlingException{Message: aws.String("slow")}}).Classify(context.Background(), ref)
	var te *types.ThrottlingException
	assert.ErrorAs(t, err, &te)

	_, err = NewRekognition(&fakeRekognition{}).Classify(context.Background(), ref)
	assert.Error(t, err)

	bad := &fakeRekognition{out: &rekognition.DetectModerationLabelsOutput{
		ModerationLabels: []types.ModerationLabel{{Name: aws.String("Violence")}},
	}}
	_, err = NewRekognition(bad).Classify(context.Background(), ref)
	assert.Error(t, err)

	_, err = NewRekognition(&fakeRekognition{}).Classify(context.Background(), ImageRef{Bucket: "b"})
	assert.Error(t, err)
}
