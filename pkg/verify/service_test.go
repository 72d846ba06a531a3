package verify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"vgate/pkg/guard"
	"vgate/pkg/ocr"
)

type fakeRecognizer struct {
	text  string
	err   error
	calls int32
}

func (f *fakeRecognizer) Recognize(ctx context.Context, raw []byte) (ocr.Result, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return ocr.Result{}, f.err
	}
	return ocr.Result{Text: f.text, Confidence: 90, Method: ocr.MethodLocal}, nil
}

func testService(rec ImageRecognizer, window time.Duration) *Service {
	return &Service{
		Extractor:  NewExtractor("kain", 260, 100, 300, []string{"warrior"}),
		Recognizer: rec,
		Guard:      guard.New(window),
	}
}

func TestVerifyImagePass(t *testing.T) {
	rec := &fakeRecognizer{text: "lv.264 kain"}
	s := testService(rec, time.Minute)
	v, err := s.VerifyImageBytes(context.Background(), "actor1", []byte("png"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Passed || v.Reason != ReasonOK {
		t.Fatalf("expected pass got %+v", v)
	}
	if v.Candidate.Confidence != 90 {
		t.Fatalf("expected recognizer confidence carried, got %v", v.Candidate.Confidence)
	}
	if !s.Guard.IsVerified("actor1") {
		t.Fatal("expected actor marked verified")
	}
}

func TestVerifyImageEmptyTextFails(t *testing.T) {
	rec := &fakeRecognizer{text: ""}
	s := testService(rec, time.Minute)
	v, err := s.VerifyImageBytes(context.Background(), "actor1", []byte("png"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Passed || v.Reason != ReasonNoTag {
		t.Fatalf("expected NO_TAG got %+v", v)
	}
}

func TestAlreadyVerified(t *testing.T) {
	rec := &fakeRecognizer{text: "lv.264 kain"}
	s := testService(rec, 0) // no cooldown so the second call reaches the cache check
	if _, err := s.VerifyImageBytes(context.Background(), "actor1", nil); err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	_, err := s.VerifyImageBytes(context.Background(), "actor1", nil)
	if !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified got %v", err)
	}
	if n := atomic.LoadInt32(&rec.calls); n != 1 {
		t.Fatalf("expected 1 recognizer call got %d", n)
	}
}

func TestCooldownRejectsSecondAttempt(t *testing.T) {
	rec := &fakeRecognizer{text: "level 100 kain"}
	s := testService(rec, time.Minute)
	if _, err := s.VerifyImageBytes(context.Background(), "actor1", nil); err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	_, err := s.VerifyImageBytes(context.Background(), "actor1", nil)
	var ce *CooldownError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CooldownError got %v", err)
	}
	if ce.RetryAfter <= 0 {
		t.Fatalf("expected positive retry-after got %v", ce.RetryAfter)
	}
}

func TestCooldownMutualExclusion(t *testing.T) {
	rec := &fakeRecognizer{text: "level 100 kain"}
	s := testService(rec, time.Minute)
	const n = 8
	var wg sync.WaitGroup
	var rejected int32
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.VerifyImageBytes(context.Background(), "actor1", nil)
			var ce *CooldownError
			if errors.As(err, &ce) {
				atomic.AddInt32(&rejected, 1)
			}
		}()
	}
	wg.Wait()
	if got := atomic.LoadInt32(&rejected); got != n-1 {
		t.Fatalf("expected %d cooldown rejections got %d", n-1, got)
	}
	if got := atomic.LoadInt32(&rec.calls); got != 1 {
		t.Fatalf("expected 1 recognizer call got %d", got)
	}
}

func TestRecognizerErrorCountsFailure(t *testing.T) {
	rec := &fakeRecognizer{err: ocr.ErrRecognition}
	s := testService(rec, time.Minute)
	_, err := s.VerifyImageBytes(context.Background(), "actor1", nil)
	if !errors.Is(err, ocr.ErrRecognition) {
		t.Fatalf("expected recognition error got %v", err)
	}
	st := s.Guard.Snapshot()
	if st.Attempts != 1 || st.Failures != 1 {
		t.Fatalf("expected attempt and failure counted got %+v", st)
	}
}

func TestVerifyParty(t *testing.T) {
	s := testService(&fakeRecognizer{}, time.Minute)
	msg := PartyMessage{
		Fields: []PartyField{
			{Name: "Class", Value: "Kain"},
			{Name: "Level", Value: "Lv. 264"},
		},
	}
	v, err := s.VerifyParty(context.Background(), "actor1", msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Passed {
		t.Fatalf("expected pass got %+v", v)
	}
	if v.Candidate.Source != SourcePartyText {
		t.Fatalf("expected party source got %q", v.Candidate.Source)
	}
}
