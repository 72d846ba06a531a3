package ocr

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Method records which backend produced a recognition result.
type Method string

const (
	MethodRemote Method = "remote"
	MethodLocal  Method = "local"
)

// Remote backends in this domain do not expose calibrated confidence; a fixed
// high value reflects their empirically higher precision over the local pass.
const remoteConfidence = 92.0

// Result is the combined recognition output for one image.
type Result struct {
	Text       string
	Confidence float64 // [0,100]
	Method     Method
}

// LocalBackend runs recognition on one preprocessed variant and reports a
// confidence in [0,100].
type LocalBackend interface {
	Recognize(png []byte, lang string) (string, float64, error)
}

// Recognizer selects and combines recognition backends for one image.
// Remote is optional; Local defaults to the shared Tesseract handle; Lang
// configures the local pass.
type Recognizer struct {
	Remote RemoteBackend
	Local  LocalBackend
	Lang   string
}

// Recognize prefers the remote backend, falling back to the local backend run
// across every preprocessed variant. Variant texts are concatenated one per
// line in strategy order so downstream extraction sees every field any
// strategy surfaced; the maximum per-variant confidence is retained.
//
// Empty text with confidence 0 is a valid result (nothing recognizable), not
// an error. ErrImageProcessing / ErrRecognition signal unusable input or a
// fully failed backend set.
func (r *Recognizer) Recognize(ctx context.Context, raw []byte) (Result, error) {
	if r.Remote != nil {
		text, err := r.Remote.Recognize(ctx, raw)
		if err == nil && strings.TrimSpace(text) != "" {
			return Result{Text: text, Confidence: remoteConfidence, Method: MethodRemote}, nil
		}
		if err != nil {
			log.Printf("remote ocr unavailable, falling back to local: %v", err)
		}
	}

	variants, err := GenerateVariants(raw)
	if err != nil {
		return Result{}, err
	}

	local := r.Local
	if local == nil {
		local = tesseractLocal{}
	}
	var texts []string
	var maxConf float64
	errors := 0
	for _, v := range variants {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrRecognition, err)
		}
		text, conf, err := local.Recognize(v.PNG, r.Lang)
		if err != nil {
			log.Printf("local ocr variant %s failed: %v", v.Strategy, err)
			errors++
			continue
		}
		if strings.TrimSpace(text) != "" {
			texts = append(texts, text)
		}
		if conf > maxConf {
			maxConf = conf
		}
	}
	if errors == len(variants) {
		return Result{}, ErrRecognition
	}
	if len(texts) == 0 {
		// No evidence found; downstream treats this as an absent candidate.
		return Result{Text: "", Confidence: 0, Method: MethodLocal}, nil
	}
	return Result{Text: strings.Join(texts, "\n"), Confidence: maxConf, Method: MethodLocal}, nil
}
