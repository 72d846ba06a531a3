package ocr

import (
	"errors"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// The Tesseract client is expensive to construct, so one long-lived handle is
// shared across all requests. gosseract clients are not safe for concurrent
// use; localMu serializes calls.
var (
	localOnce sync.Once
	localMu   sync.Mutex
	localCl   *gosseract.Client
	localErr  error
)

const localCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz.,:()/|!- "

// localClient returns the shared client. The language is applied on first use
// only; later callers passing a different lang get the already-built client.
func localClient(lang string) (*gosseract.Client, error) {
	localOnce.Do(func() {
		cl := gosseract.NewClient()
		if lang == "" {
			lang = "eng"
		}
		if err := cl.SetLanguage(lang); err != nil {
			localErr = err
			cl.Close()
			return
		}
		_ = cl.SetWhitelist(localCharset)
		localCl = cl
	})
	return localCl, localErr
}

// localRecognize runs the shared Tesseract handle on one PNG-encoded variant
// and returns text plus a proxy confidence in [0,100].
func localRecognize(png []byte, lang string) (string, float64, error) {
	cl, err := localClient(lang)
	if err != nil {
		return "", 0, err
	}
	localMu.Lock()
	defer localMu.Unlock()
	if err := cl.SetImageFromBytes(png); err != nil {
		return "", 0, err
	}
	text, err := cl.Text()
	if err != nil {
		return "", 0, err
	}
	text = normalizeText(text)
	return text, proxyConfidence(text), nil
}

// tesseractLocal adapts the shared client to the LocalBackend interface.
type tesseractLocal struct{}

func (tesseractLocal) Recognize(png []byte, lang string) (string, float64, error) {
	return localRecognize(png, lang)
}

// ShutdownLocal releases the shared Tesseract handle. Safe to call once at
// process exit; recognition must not be used afterwards.
func ShutdownLocal() {
	localMu.Lock()
	defer localMu.Unlock()
	if localCl != nil {
		_ = localCl.Close()
		localCl = nil
		localErr = errors.New("tesseract client closed")
	}
}

// proxyConfidence estimates recognition quality from alphanumeric density.
// Tesseract's per-call confidence is not exposed through the text API, so a
// density proxy stands in.
func proxyConfidence(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	alnum := 0
	for _, r := range trimmed {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			alnum++
		}
	}
	conf := 100 * float64(alnum) / float64(len(trimmed))
	if conf > 90 {
		conf = 90
	}
	return conf
}
