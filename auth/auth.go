// Package auth 提供註冊、登入與 token 驗證。使用者只存在記憶體中。
package auth

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/zintix-labs/megaodds/errs"
	"github.com/zintix-labs/megaodds/profile"
	"golang.org/x/crypto/bcrypt"
)

const (
	// TokenTTL access token 有效期
	TokenTTL = 24 * time.Hour
	// MinPasswordLen 密碼最短長度
	MinPasswordLen = 6
)

// SeedBalance 新註冊使用者的初始餘額
var SeedBalance = decimal.NewFromInt(162500)

var emailRe = regexp.MustCompile(`\S+@\S+\.\S+`)

// ValidateCredentials 檢查登入表單
func ValidateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		return errs.NewWarn("email is required")
	case !emailRe.MatchString(email):
		return errs.NewWarn("email is invalid")
	case password == "":
		return errs.NewWarn("password is required")
	case len(password) < MinPasswordLen:
		return errs.Warnf("password must be at least %d characters", MinPasswordLen)
	}
	return nil
}

// Claims access token 內容；Subject 為使用者 ID
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Token 登入結果
type Token struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        profile.User `json:"user"`
}

type account struct {
	user profile.User
	hash []byte
}

type Service struct {
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time

	mu      sync.RWMutex
	byEmail map[string]*account
	byID    map[int64]*account
	nextID  int64
}

type Option func(*Service)

// WithCost 設定 bcrypt cost，測試可用 bcrypt.MinCost
func WithCost(cost int) Option { return func(s *Service) { s.cost = cost } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewService(secret string, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, errs.NewFatal("jwt secret required")
	}
	s := &Service{
		secret:  []byte(secret),
		ttl:     TokenTTL,
		cost:    bcrypt.DefaultCost,
		now:     time.Now,
		byEmail: make(map[string]*account),
		byID:    make(map[int64]*account),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func normEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register 建立使用者，初始餘額為 SeedBalance
func (s *Service) Register(email, password string) (profile.User, error) {
	if err := ValidateCredentials(email, password); err != nil {
		return profile.User{}, err
	}
	email = normEmail(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return profile.User{}, errs.Wrap(err, "hash password")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return profile.User{}, errs.NewWarn("email already registered")
	}
	s.nextID++
	acc := &account{
		user: profile.User{ID: s.nextID, Email: email, Balance: SeedBalance},
		hash: hash,
	}
	s.byEmail[email] = acc
	s.byID[acc.user.ID] = acc
	return acc.user, nil
}

// Login 驗證密碼並簽發 HS256 access token
func (s *Service) Login(email, password string) (Token, error) {
	s.mu.RLock()
	acc, ok := s.byEmail[normEmail(email)]
	s.mu.RUnlock()
	if !ok {
		return Token{}, errs.ErrUnauthorized.With("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return Token{}, errs.ErrUnauthorized.With("invalid credentials")
	}

	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		Email: acc.user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(acc.user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, errs.Wrap(err, "sign token")
	}
	u := acc.user
	u.Token = signed
	return Token{AccessToken: signed, ExpiresAt: exp, User: u}, nil
}

// Verify 驗證 token 並回傳對應的使用者
func (s *Service) Verify(token string) (profile.User, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected token signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return profile.User{}, errs.WrapAs(errs.ErrUnauthorized, err, "invalid token")
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return profile.User{}, errs.ErrUnauthorized.With("invalid token subject")
	}

	s.mu.RLock()
	acc, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return profile.User{}, errs.ErrUnauthorized.With("user not found")
	}
	u := acc.user
	u.Token = token
	return u, nil
}
