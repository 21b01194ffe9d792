package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/taskflow/backend/internal/config"
	"github.com/taskflow/backend/internal/models"
	"github.com/taskflow/backend/internal/utils"
	"github.com/taskflow/backend/pkg/response"
	"gorm.io/gorm"
)

const (
	AuthTypeLocal = "local"
	AuthTypeLDAP  = "ldap"
)

var errInvalidLogin = response.NewUnauthorized("invalid username or password")

type AuthService struct {
	db        *gorm.DB
	ldapBase  config.LDAPConfig
	jwtConfig *config.JWTConfig
	configSvc *SystemConfigService
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig, ldapCfg *config.LDAPConfig) *AuthService {
	s := &AuthService{
		db:        db,
		jwtConfig: jwtCfg,
		configSvc: NewSystemConfigService(db),
	}
	if ldapCfg != nil {
		s.ldapBase = *ldapCfg
	}
	return s
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=100"`
	Password string `json:"password" binding:"required,min=8"`
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	AuthType string `json:"auth_type"` // local, ldap
}

// TokenPair is an access token plus its rotating refresh token.
type TokenPair struct {
	AccessToken     string    `json:"access_token"`
	AccessExpireAt  time.Time `json:"access_expire_at"`
	RefreshToken    string    `json:"refresh_token"`
	RefreshExpireAt time.Time `json:"refresh_expire_at"`
}

type LoginResult struct {
	TokenPair
	User *models.User `json:"user"`
}

// Register creates an unverified local member. An admin verifies the account
// before it receives scheduled report emails.
func (s *AuthService) Register(req *RegisterRequest) (*models.User, error) {
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			return nil, response.NewBadRequest("unknown timezone: " + req.Timezone)
		}
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, response.NewConflict("username already taken")
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:   req.Username,
		Password:   hashed,
		Email:      strings.TrimSpace(req.Email),
		Name:       req.Name,
		Role:       models.RoleMember,
		AuthType:   AuthTypeLocal,
		IsActive:   true,
		IsVerified: false,
		Timezone:   req.Timezone,
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, err
	}
	LogInfo("auth", "register", "user registered: "+user.Username, &user.ID, "", "", nil)
	return user, nil
}

// Login authenticates a user and issues a token pair.
func (s *AuthService) Login(req *LoginRequest, clientIP, userAgent string) (*LoginResult, error) {
	var (
		user *models.User
		err  error
	)

	switch req.AuthType {
	case "", AuthTypeLocal:
		user, err = s.localAuth(req.Username, req.Password)
	case AuthTypeLDAP:
		user, err = s.ldapAuth(req.Username, req.Password)
	default:
		return nil, response.NewBadRequest("invalid auth type")
	}
	if err != nil {
		return nil, err
	}

	pair, err := s.issueTokens(s.db, user, clientIP, userAgent)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLogin = &now
	s.db.Model(user).Update("last_login", now)

	return &LoginResult{TokenPair: *pair, User: user}, nil
}

// Refresh rotates a refresh token: the presented token is revoked and linked
// to its replacement in the same transaction.
func (s *AuthService) Refresh(refreshToken, clientIP, userAgent string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, response.NewBadRequest("refresh token required")
	}

	var stored models.RefreshToken
	if err := s.db.Where("token_hash = ?", hashRefreshToken(refreshToken)).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthorized("invalid refresh token")
		}
		return nil, err
	}
	if !stored.Usable(time.Now()) {
		return nil, response.NewUnauthorized("refresh token expired or revoked")
	}

	var user models.User
	if err := s.db.First(&user, stored.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthorized("user not found")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, response.NewForbidden("user is disabled")
	}

	var pair *TokenPair
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		pair, err = s.issueTokens(tx, &user, clientIP, userAgent)
		if err != nil {
			return err
		}
		var replacement models.RefreshToken
		if err := tx.Where("token_hash = ?", hashRefreshToken(pair.RefreshToken)).First(&replacement).Error; err != nil {
			return err
		}
		return tx.Model(&stored).Updates(map[string]interface{}{
			"revoked_at":           time.Now(),
			"replaced_by_token_id": replacement.ID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *AuthService) RevokeRefreshToken(refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.db.Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", hashRefreshToken(refreshToken)).
		Update("revoked_at", time.Now()).Error
}

func (s *AuthService) issueTokens(db *gorm.DB, user *models.User, clientIP, userAgent string) (*TokenPair, error) {
	accessHours := s.jwtConfig.ExpireHour
	if accessHours <= 0 {
		accessHours = 24
	}
	refreshHours := s.jwtConfig.RefreshExpireHour
	if refreshHours <= 0 {
		refreshHours = 720
	}

	access, err := utils.GenerateToken(user.ID, user.Username, user.Role, accessHours)
	if err != nil {
		return nil, err
	}
	refresh, refreshHash, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record := models.RefreshToken{
		UserID:      user.ID,
		TokenHash:   refreshHash,
		ExpiresAt:   now.Add(time.Duration(refreshHours) * time.Hour),
		CreatedByIP: clientIP,
		UserAgent:   userAgent,
	}
	if err := db.Create(&record).Error; err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:     access,
		AccessExpireAt:  now.Add(time.Duration(accessHours) * time.Hour),
		RefreshToken:    refresh,
		RefreshExpireAt: record.ExpiresAt,
	}, nil
}

func generateRefreshToken() (token string, tokenHash string, err error) {
	randomBytes := make([]byte, 32)
	if _, err = rand.Read(randomBytes); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(randomBytes)
	return token, hashRefreshToken(token), nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *AuthService) localAuth(username, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ? AND auth_type = ?", username, AuthTypeLocal).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidLogin
		}
		return nil, err
	}
	if !utils.CheckPassword(password, user.Password) {
		return nil, errInvalidLogin
	}
	if !user.IsActive {
		return nil, response.NewForbidden("user is disabled")
	}
	return &user, nil
}

// ldapAuth finds or creates the local shadow row for a directory user.
// Directory accounts count as verified.
func (s *AuthService) ldapAuth(username, password string) (*models.User, error) {
	cfg := s.configSvc.LDAPConfig(s.ldapBase)
	ldapUser, err := NewLDAPService(&cfg).Authenticate(username, password)
	if err != nil {
		switch {
		case errors.Is(err, ErrLDAPDisabled):
			return nil, response.NewBadRequest(err.Error())
		case errors.Is(err, ErrLDAPInvalidCreds), errors.Is(err, ErrLDAPUserNotFound):
			return nil, errInvalidLogin
		}
		return nil, err
	}

	var user models.User
	err = s.db.Where("username = ? AND auth_type = ?", ldapUser.Username, AuthTypeLDAP).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			Username:   ldapUser.Username,
			Email:      ldapUser.Email,
			Name:       ldapUser.Name,
			Role:       models.RoleMember,
			AuthType:   AuthTypeLDAP,
			IsActive:   true,
			IsVerified: true,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, response.NewForbidden("user is disabled")
	}

	user.Email = ldapUser.Email
	user.Name = ldapUser.Name
	s.db.Model(&user).Updates(map[string]interface{}{"email": user.Email, "name": user.Name})
	return &user, nil
}

func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

// CreateAdminIfNotExists seeds a verified admin/admin account on an empty install.
func (s *AuthService) CreateAdminIfNotExists() error {
	var count int64
	if err := s.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := utils.HashPassword("admin")
	if err != nil {
		return err
	}
	return s.db.Create(&models.User{
		Username:   "admin",
		Password:   hashed,
		Name:       "Administrator",
		Role:       models.RoleAdmin,
		AuthType:   AuthTypeLocal,
		IsActive:   true,
		IsVerified: true,
	}).Error
}

func (s *AuthService) IsLDAPEnabled() bool {
	return s.configSvc.LDAPConfig(s.ldapBase).Enabled
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

func (s *AuthService) ChangePassword(userID uint, req *ChangePasswordRequest) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}
	if user.AuthType != AuthTypeLocal {
		return response.NewBadRequest("LDAP users cannot change password here")
	}
	if !utils.CheckPassword(req.OldPassword, user.Password) {
		return response.NewBadRequest("incorrect old password")
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.db.Model(user).Update("password", hashed).Error
}
