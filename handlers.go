package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"vgate/models"
	"vgate/pkg/fetch"
	"vgate/pkg/ocr"
	"vgate/pkg/verify"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func setupRoutes(r *gin.Engine) {
	r.POST("/register", registerHandler)
	r.POST("/login", loginHandler)
	r.POST("/refresh", refreshHandler)
	r.POST("/revoke_refresh", revokeRefreshHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.POST("/verify", verifyHandler)
	authGroup.POST("/verify/party", verifyPartyHandler)
	authGroup.GET("/attempts", listAttemptsHandler)
	authGroup.GET("/stats", statsHandler)
	authGroup.DELETE("/verifications/:username", revokeVerificationHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)
		c.Set("username", username)
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

func meHandler(c *gin.Context) {
	usernameVal, _ := c.Get("username")
	if usernameVal == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "context missing username"})
		return
	}
	username := usernameVal.(string)
	c.JSON(http.StatusOK, gin.H{"username": username, "verified": gd.IsVerified(username)})
}

// getUserFromContext fetches the currently authenticated user using the username set by jwtAuthMiddleware
func getUserFromContext(c *gin.Context) (*models.User, bool) {
	unameVal, _ := c.Get("username")
	if unameVal == nil {
		return nil, false
	}
	uname := unameVal.(string)
	var user models.User
	if err := db.Where("username = ?", uname).First(&user).Error; err != nil {
		return nil, false
	}
	return &user, true
}

// verifyHandler runs one verification attempt for the authenticated user.
// Evidence is either a multipart image upload or a JSON body with image_url.
func verifyHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	if file, err := c.FormFile("file"); err == nil {
		// Validation happens before any processing work.
		if file.Size > cfg.MaxUploadBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
			return
		}
		if err := fc.CheckType(file.Header.Get("Content-Type")); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
			return
		}
		f, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file unreadable"})
			return
		}
		defer f.Close()
		raw, err := io.ReadAll(io.LimitReader(f, cfg.MaxUploadBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file unreadable"})
			return
		}
		v, err := svc.VerifyImageBytes(c.Request.Context(), user.Username, raw)
		respondVerdict(c, user, v, err)
		return
	}

	var req struct {
		ImageURL string `json:"image_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file or image_url required"})
		return
	}
	v, err := svc.VerifyImageURL(c.Request.Context(), user.Username, req.ImageURL)
	respondVerdict(c, user, v, err)
}

// verifyPartyHandler judges a relayed third-party bot message. Only messages
// authored by the configured bot identity are eligible.
func verifyPartyHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var msg verify.PartyMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if cfg.PartyBotID == "" || msg.AuthorID != cfg.PartyBotID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message not from the trusted lookup bot"})
		return
	}
	v, err := svc.VerifyParty(c.Request.Context(), user.Username, msg)
	respondVerdict(c, user, v, err)
}

// respondVerdict maps gate rejections and processing failures to stable
// responses and persists the audit row. Gate rejections are expected outcomes
// and are never recorded as attempts.
func respondVerdict(c *gin.Context, user *models.User, v verify.Verdict, err error) {
	if err != nil {
		var cd *verify.CooldownError
		switch {
		case errors.As(err, &cd):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "on cooldown", "retry_after_seconds": int(cd.RetryAfter.Seconds()) + 1})
		case errors.Is(err, verify.ErrAlreadyVerified):
			c.JSON(http.StatusConflict, gin.H{"error": "already verified"})
		case errors.Is(err, fetch.ErrValidation):
			persistFailedAttempt(user, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "attachment rejected"})
		case errors.Is(err, fetch.ErrFetch):
			persistFailedAttempt(user, err)
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not fetch image"})
		case errors.Is(err, ocr.ErrImageProcessing), errors.Is(err, ocr.ErrRecognition):
			persistFailedAttempt(user, err)
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not process image"})
		default:
			persistFailedAttempt(user, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		}
		return
	}

	uid := user.ID
	att := models.Attempt{
		ActorID:    user.Username,
		UserID:     &uid,
		Source:     string(v.Candidate.Source),
		Passed:     v.Passed,
		Reason:     string(v.Reason),
		Tag:        v.Candidate.Tag,
		Level:      v.Candidate.Level,
		Confidence: v.Candidate.Confidence,
		Snippet:    ocr.Snippet(v.Candidate.RawText, 250),
	}
	if err := db.Create(&att).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "audit write failed"})
		return
	}
	if v.Passed {
		ver := models.Verification{UserID: user.ID, Tag: v.Candidate.Tag, Level: *v.Candidate.Level}
		if err := db.Where("user_id = ?", user.ID).FirstOrCreate(&ver).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "verification record failed"})
			return
		}
	}
	c.JSON(http.StatusOK, v)
}

func persistFailedAttempt(user *models.User, cause error) {
	uid := user.ID
	att := models.Attempt{
		ActorID: user.Username,
		UserID:  &uid,
		Source:  string(verify.SourceImageOCR),
		Reason:  "ERROR",
		Snippet: ocr.Snippet(cause.Error(), 250),
	}
	if err := db.Create(&att).Error; err != nil {
		// audit only; the user already gets an error response
		return
	}
}

// listAttemptsHandler lists recent attempts for the authenticated user (admin sees all)
func listAttemptsHandler(c *gin.Context) {
	role, _ := c.Get("role")
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var items []models.Attempt
	q := db.Model(&models.Attempt{})
	if role != "administrator" {
		q = q.Where("actor_id = ?", user.Username)
	}
	if err := q.Order("id desc").Limit(200).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// statsHandler returns the in-memory guard counters plus durable totals.
func statsHandler(c *gin.Context) {
	role, _ := c.Get("role")
	if role != "administrator" {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	var verified int64
	db.Model(&models.Verification{}).Count(&verified)
	var attempts int64
	db.Model(&models.Attempt{}).Count(&attempts)
	c.JSON(http.StatusOK, gin.H{
		"guard":            gd.Snapshot(),
		"verified_total":   verified,
		"attempts_total":   attempts,
		"required_tag":     cfg.RequiredTag,
		"required_level":   cfg.RequiredLevel,
		"cooldown_seconds": int(cfg.Cooldown.Seconds()),
	})
}

// revokeVerificationHandler removes a user's verification (admin only) and
// clears the in-memory fast path so they can attempt again.
func revokeVerificationHandler(c *gin.Context) {
	role, _ := c.Get("role")
	if role != "administrator" {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	username := c.Param("username")
	var target models.User
	if err := db.Where("username = ?", username).First(&target).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err := db.Where("user_id = ?", target.ID).Delete(&models.Verification{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "revoke failed"})
		return
	}
	gd.Revoke(username)
	c.JSON(http.StatusOK, gin.H{"message": "verification revoked"})
}

func registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := RegisterUser(req.Username, req.Password); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	// Generate JWT token. Resolve role name from RoleID (we only store role_id).
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	refreshToken, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken})
}

// createAndStoreRefreshToken generates a random refresh token, stores its hash with expiry and returns the raw token string
func createAndStoreRefreshToken(userID uint) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	rt := models.RefreshToken{UserID: userID, TokenHash: th, ExpiresAt: time.Now().Add(30 * 24 * time.Hour)}
	if err := db.Create(&rt).Error; err != nil {
		return "", err
	}
	return token, nil
}

// helper to find refresh token record by raw token string
func findRefreshTokenByRaw(token string) (*models.RefreshToken, error) {
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	var rt models.RefreshToken
	if err := db.Where("token_hash = ?", th).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	var user models.User
	if err := db.First(&user, rt.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(15 * time.Minute).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	// rotate refresh token: revoke existing and create new one
	db.Model(&models.RefreshToken{}).Where("id = ?", rt.ID).Update("revoked", true)
	newRT, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

// revokeRefreshHandler revokes a given refresh token (useful on logout)
func revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	rt.Revoked = true
	if err := db.Save(rt).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}
