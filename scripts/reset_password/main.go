// Operator tool: resets an account password directly against the database,
// for when the admin account itself is locked out. With -revoke it also
// drops the account's verification rows so the gate can be re-run.
//
// The running server caches verified members in memory; after -revoke,
// either restart it or call the admin revoke endpoint so the cache agrees.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Local copies of the columns this tool touches; the canonical models live
// in the models package, which would drag the whole server config in here.
type User struct {
	ID             uint
	Username       string
	HashedPassword []byte
}

type Verification struct {
	ID     uint
	UserID uint
}

func main() {
	username := flag.String("username", "", "account to reset")
	password := flag.String("password", "", "new plaintext password (min 6 chars)")
	revoke := flag.Bool("revoke", false, "also revoke the account's verification")
	flag.Parse()
	if *username == "" || *password == "" {
		log.Fatal("-username and -password are required")
	}
	if len(*password) < 6 {
		log.Fatal("password too short (min 6)")
	}

	loadDotEnv()
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in env")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	var user User
	if err := db.Where("username = ?", *username).First(&user).Error; err != nil {
		log.Fatalf("account %q not found: %v", *username, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("bcrypt: %v", err)
	}
	if err := db.Model(&user).Update("hashed_password", hash).Error; err != nil {
		log.Fatalf("password update failed: %v", err)
	}
	fmt.Printf("password reset for account %s (id=%d)\n", user.Username, user.ID)

	if *revoke {
		res := db.Where("user_id = ?", user.ID).Delete(&Verification{})
		if res.Error != nil {
			log.Fatalf("revoke failed: %v", res.Error)
		}
		fmt.Printf("revoked %d verification row(s); restart the server or use the admin revoke endpoint to clear its cache\n", res.RowsAffected)
	}
}

// Minimal .env loader, same non-destructive rules as the server's.
func loadDotEnv() {
	path := ".env"
	if _, err := os.Stat(path); err != nil {
		return
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
		if eq := strings.IndexByte(line, '='); eq > 0 {
			k := strings.TrimSpace(line[:eq])
			v := strings.TrimSpace(line[eq+1:])
			if _, exists := os.LookupEnv(k); !exists {
				_ = os.Setenv(k, v)
			}
		}
	}
}
