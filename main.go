package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"vgate/pkg/fetch"
	"vgate/pkg/guard"
	"vgate/pkg/ocr"
	"vgate/pkg/verify"
)

var jwtSecret []byte // loaded from env JWT_SECRET (fallback to dev default)

var (
	cfg Config
	gd  *guard.Store
	svc *verify.Service
	fc  *fetch.Client
)

func main() {
	// Auto-load ./.env if present (no external dependency) before reading vars
	loadDotEnv()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-insecure-secret-change" // development fallback
	}
	jwtSecret = []byte(secret)

	cfg = loadConfig()

	// Support a lightweight migrate command: `./vgate migrate`
	// It runs AutoMigrate and seeding then exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB()
		fmt.Println("migration and seeding completed")
		return
	}

	initDB()

	gd = guard.New(cfg.Cooldown)
	stopSweep := gd.StartSweeper(cfg.SweepInterval)
	defer stopSweep()
	loadVerifiedCache(gd)

	fc = fetch.New(cfg.FetchTimeout, cfg.MaxUploadBytes, cfg.AllowedTypes)

	rec := &ocr.Recognizer{Lang: cfg.OCRLang}
	if cfg.RemoteOCRURL != "" && cfg.RemoteOCRKey != "" {
		rec.Remote = ocr.NewRemoteClient(cfg.RemoteOCRURL, cfg.RemoteOCRKey, cfg.FetchTimeout)
	}
	defer ocr.ShutdownLocal()

	svc = &verify.Service{
		Extractor:      verify.NewExtractor(cfg.RequiredTag, cfg.RequiredLevel, cfg.MinLevel, cfg.MaxLevel, cfg.KnownTags),
		Recognizer:     rec,
		Fetcher:        fc,
		Guard:          gd,
		AttemptTimeout: cfg.AttemptTimeout,
	}

	r := gin.Default()

	setupRoutes(r)

	r.Run(cfg.ListenAddr)
}

// loadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func loadDotEnv() {
	path := ".env"
	if _, err := os.Stat(path); err != nil {
		return // no .env file
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// split on first '='
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.TrimSpace(line[eq+1:])
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
