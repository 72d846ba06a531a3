// Batch verifier: scans a directory of screenshots, runs the recognition and
// extraction pipeline on each and writes Attempt audit rows keyed by file
// name. With -watch it keeps processing files as they appear.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"vgate/models"
	"vgate/pkg/ocr"
	"vgate/pkg/verify"
)

var (
	db      *gorm.DB
	verbose bool
	ext     *verify.Extractor
	rec     *ocr.Recognizer
)

func mustInitDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatalf("DB_DSN must be set in environment to run this tool")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return gdb
}

func main() {
	dirFlag := flag.String("dir", "screens", "directory to scan for screenshots")
	tag := flag.String("tag", "kain", "required class tag")
	level := flag.Int("level", 260, "required level")
	dryRun := flag.Bool("dry-run", false, "skip DB writes; just print verdicts")
	watch := flag.Bool("watch", false, "watch directory for new files")
	workers := flag.Int("workers", 0, "worker pool size (default NumCPU)")
	flag.BoolVar(&verbose, "verbose", false, "verbose per-file logging")
	flag.Parse()

	ext = verify.NewExtractor(*tag, *level, 100, 300, nil)
	rec = &ocr.Recognizer{Lang: "eng"}
	defer ocr.ShutdownLocal()

	if !*dryRun {
		db = mustInitDBFromEnv()
	}

	files := listImageFiles(*dirFlag)
	log.Printf("Scanning %d files (workers=%d)", len(files), effectiveWorkers(*workers))
	runWorkerPool(*dirFlag, *dryRun, files, effectiveWorkers(*workers))

	if *watch {
		if err := watchDirectory(*dirFlag, *dryRun, effectiveWorkers(*workers)); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

func listImageFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func isSupportedExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return true
	}
	return false
}

func watchDirectory(dir string, dryRun bool, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("Watching %s (debounced) ...", dir)

	fileCh := make(chan string, 256)
	go func() {
		// simple debounce map of pending files
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					close(fileCh)
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create {
					name := filepath.Base(ev.Name)
					if !isSupportedExt(name) {
						continue
					}
					pending[name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // stable
						fileCh <- name
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					close(fileCh)
					return
				}
				log.Printf("watch error: %v", err)
			}
		}
	}()

	go runWorkerPool(dir, dryRun, nil, workers, fileCh)
	// block forever (Ctrl+C to exit)
	select {}
}

// worker pool orchestrator
func runWorkerPool(dir string, dryRun bool, initial []string, workers int, extraCh ...<-chan string) {
	fileCh := make(chan string, 1024)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range fileCh {
				processSingleFile(dir, name, dryRun)
			}
		}()
	}
	go func() {
		for _, f := range initial {
			fileCh <- f
		}
		for _, ch := range extraCh {
			go func(c <-chan string) {
				for n := range c {
					fileCh <- n
				}
			}(ch)
		}
		if len(extraCh) == 0 {
			close(fileCh)
		}
	}()
	if len(extraCh) == 0 {
		wg.Wait()
	}
}

// processSingleFile runs recognition + extraction + decision for one file.
func processSingleFile(dir, name string, dryRun bool) {
	raw, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		log.Printf("read %s: %v", name, err)
		return
	}
	res, err := rec.Recognize(context.Background(), raw)
	if err != nil {
		log.Printf("recognize %s: %v", name, err)
		return
	}
	cand := ext.Extract(res.Text)
	cand.Confidence = res.Confidence
	v := verify.Decide(cand, ext.RequiredTag, ext.RequiredLevel)
	logV("FILE %s method=%s conf=%.1f tag=%q level=%v", name, res.Method, res.Confidence, cand.Tag, cand.Level)
	log.Printf("VERDICT %s passed=%v reason=%s %s", name, v.Passed, v.Reason, v.Message)

	if dryRun {
		return
	}
	att := models.Attempt{
		ActorID:    name,
		Source:     string(cand.Source),
		Passed:     v.Passed,
		Reason:     string(v.Reason),
		Tag:        cand.Tag,
		Level:      cand.Level,
		Confidence: cand.Confidence,
		Snippet:    ocr.Snippet(res.Text, 250),
	}
	if err := db.Create(&att).Error; err != nil {
		log.Printf("ERROR create attempt %s: %v", name, err)
	}
}
