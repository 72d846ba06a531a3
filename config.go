package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is read once at startup and immutable afterwards.
type Config struct {
	ListenAddr string

	RequiredTag   string
	RequiredLevel int
	MinLevel      int
	MaxLevel      int
	KnownTags     []string

	Cooldown      time.Duration
	SweepInterval time.Duration

	MaxUploadBytes int64
	AllowedTypes   []string
	FetchTimeout   time.Duration
	AttemptTimeout time.Duration

	RemoteOCRURL string
	RemoteOCRKey string
	OCRLang      string

	PartyBotID string
}

// Alternative class names the extractor can report for a wrong-class verdict.
var defaultKnownTags = []string{
	"warrior", "mage", "bowman", "thief", "pirate",
	"aran", "evan", "mercedes", "phantom", "luminous", "shade",
	"adele", "ark", "cadena", "hoyoung", "illium", "khali", "lara", "kain",
}

func loadConfig() Config {
	return Config{
		ListenAddr:     envStr("LISTEN_ADDR", ":8081"),
		RequiredTag:    envStr("VERIFY_TAG", "kain"),
		RequiredLevel:  envInt("VERIFY_LEVEL", 260),
		MinLevel:       envInt("VERIFY_LEVEL_MIN", 100),
		MaxLevel:       envInt("VERIFY_LEVEL_MAX", 300),
		KnownTags:      envList("VERIFY_KNOWN_TAGS", defaultKnownTags),
		Cooldown:       envSeconds("VERIFY_COOLDOWN_SECONDS", 60),
		SweepInterval:  envSeconds("VERIFY_SWEEP_SECONDS", 300),
		MaxUploadBytes: int64(envInt("MAX_UPLOAD_MB", 8)) * 1024 * 1024,
		AllowedTypes:   envList("ALLOWED_IMAGE_TYPES", []string{"image/png", "image/jpeg", "image/webp", "image/gif"}),
		FetchTimeout:   envSeconds("FETCH_TIMEOUT_SECONDS", 10),
		AttemptTimeout: envSeconds("ATTEMPT_TIMEOUT_SECONDS", 30),
		RemoteOCRURL:   os.Getenv("OCR_REMOTE_URL"),
		RemoteOCRKey:   os.Getenv("OCR_REMOTE_KEY"),
		OCRLang:        envStr("OCR_LANG", "eng"),
		PartyBotID:     os.Getenv("PARTY_BOT_ID"),
	}
}

func envStr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func envSeconds(key string, def int) time.Duration {
	return time.Duration(envInt(key, def)) * time.Second
}

func envList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
