package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"vgate/pkg/ocr"
	"vgate/pkg/verify"
)

// Runs the pipeline stage by stage on one file: per-variant text, combined
// recognition result, extracted candidate and the verdict it would produce.
func main() {
	f := flag.String("file", "", "image file to OCR")
	tag := flag.String("tag", "kain", "required class tag")
	level := flag.Int("level", 260, "required level")
	flag.Parse()
	if *f == "" {
		log.Fatalf("-file required")
	}
	raw, err := os.ReadFile(*f)
	if err != nil {
		log.Fatalf("read: %v", err)
	}
	defer ocr.ShutdownLocal()

	variants, err := ocr.GenerateVariants(raw)
	if err != nil {
		log.Fatalf("variants: %v", err)
	}
	fmt.Printf("variants=%d\n", len(variants))
	for _, v := range variants {
		fmt.Printf("  %-18s %d bytes\n", v.Strategy, len(v.PNG))
	}

	rec := &ocr.Recognizer{Lang: "eng"}
	res, err := rec.Recognize(context.Background(), raw)
	if err != nil {
		log.Fatalf("recognize: %v", err)
	}
	fmt.Printf("method=%s conf=%.1f text=%q\n", res.Method, res.Confidence, ocr.Snippet(res.Text, 400))

	ext := verify.NewExtractor(*tag, *level, 100, 300, nil)
	cand := ext.Extract(res.Text)
	cand.Confidence = res.Confidence
	v := verify.Decide(cand, ext.RequiredTag, ext.RequiredLevel)
	lvl := "none"
	if cand.Level != nil {
		lvl = fmt.Sprint(*cand.Level)
	}
	fmt.Printf("tag=%q level=%s -> passed=%v reason=%s %s\n", cand.Tag, lvl, v.Passed, v.Reason, v.Message)
}
