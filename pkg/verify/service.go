package verify

import (
	"context"
	"log"
	"time"

	"vgate/pkg/guard"
	"vgate/pkg/ocr"
)

// Fetcher retrieves attachment bytes for URL-based evidence.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// ImageRecognizer turns raw image bytes into recognized text.
type ImageRecognizer interface {
	Recognize(ctx context.Context, raw []byte) (ocr.Result, error)
}

// Service runs the full verification attempt: anti-abuse gate, evidence
// acquisition, extraction and decision. Side effects beyond its own state
// (role grants, audit rows, notifications) belong to the caller.
type Service struct {
	Extractor      *Extractor
	Recognizer     ImageRecognizer
	Fetcher        Fetcher
	Guard          *guard.Store
	AttemptTimeout time.Duration
}

// VerifyImageURL fetches evidence from a URL and judges it.
func (s *Service) VerifyImageURL(ctx context.Context, actorID, url string) (Verdict, error) {
	if err := s.gate(actorID); err != nil {
		return Verdict{}, err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	raw, _, err := s.Fetcher.Fetch(ctx, url)
	if err != nil {
		s.Guard.RecordResult(false)
		return Verdict{}, err
	}
	return s.runImage(ctx, actorID, raw)
}

// VerifyImageBytes judges already-validated uploaded bytes.
func (s *Service) VerifyImageBytes(ctx context.Context, actorID string, raw []byte) (Verdict, error) {
	if err := s.gate(actorID); err != nil {
		return Verdict{}, err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.runImage(ctx, actorID, raw)
}

// VerifyParty judges a structured third-party bot message. The caller must
// have checked the author identity already.
func (s *Service) VerifyParty(ctx context.Context, actorID string, msg PartyMessage) (Verdict, error) {
	if err := s.gate(actorID); err != nil {
		return Verdict{}, err
	}
	cand := s.Extractor.ParseParty(msg)
	return s.finish(actorID, cand), nil
}

func (s *Service) runImage(ctx context.Context, actorID string, raw []byte) (Verdict, error) {
	res, err := s.Recognizer.Recognize(ctx, raw)
	if err != nil {
		s.Guard.RecordResult(false)
		return Verdict{}, err
	}
	cand := s.Extractor.Extract(res.Text)
	cand.Confidence = res.Confidence
	log.Printf("verify actor=%s method=%s conf=%.1f text=%q", actorID, res.Method, res.Confidence, ocr.Snippet(res.Text, 160))
	return s.finish(actorID, cand), nil
}

// gate applies the anti-abuse checks before any processing work. Gate
// rejections are expected outcomes with their own errors, never conflated
// with verdict reasons.
func (s *Service) gate(actorID string) error {
	if s.Guard.IsVerified(actorID) {
		return ErrAlreadyVerified
	}
	if ok, wait := s.Guard.TryAcquire(actorID); !ok {
		return &CooldownError{RetryAfter: wait}
	}
	return nil
}

func (s *Service) finish(actorID string, cand Candidate) Verdict {
	v := Decide(cand, s.Extractor.RequiredTag, s.Extractor.RequiredLevel)
	s.Guard.RecordResult(v.Passed)
	if v.Passed {
		s.Guard.MarkVerified(actorID)
	}
	return v
}

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.AttemptTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.AttemptTimeout)
}
