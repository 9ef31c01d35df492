package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"passagens/internal/cache"
	"passagens/internal/domain"
	"passagens/internal/domain/models"
	"passagens/internal/integrations/mailer"
	"passagens/internal/metrics"
	"passagens/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultCodeTTL     = 10 * time.Minute
	defaultTokenTTL    = 7 * 24 * time.Hour
	defaultMaxAttempts = 5
)

// AuthService identifies travellers with a one-time code sent by e-mail and
// issues a signed token once the code is verified.
type AuthService struct {
	OTPs        cache.OTPStoreInterface
	Mailer      mailer.Sender
	JWTSecret   []byte
	CodeTTL     time.Duration
	TokenTTL    time.Duration
	MaxAttempts int
	// DevMode returns the code in the response instead of relying on e-mail.
	DevMode   bool
	RequestID string
	Now       func() time.Time
}

// Claims is the token payload.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// CodeRequest is the outcome of RequestCode.
type CodeRequest struct {
	OK      bool   `json:"ok"`
	Reason  string `json:"reason,omitempty"`
	DevCode string `json:"devCode,omitempty"`
}

// Verification is the outcome of VerifyCode.
type Verification struct {
	OK       bool             `json:"ok"`
	Reason   string           `json:"reason,omitempty"`
	Token    string           `json:"token,omitempty"`
	Identity *models.Identity `json:"identity,omitempty"`
}

// RequestCode issues a new code for email, replacing any previous one.
func (s AuthService) RequestCode(ctx context.Context, email string) (CodeRequest, error) {
	email, ok := normalizeAddress(email)
	if !ok {
		return CodeRequest{OK: false, Reason: "e-mail inválido"}, nil
	}

	code, err := generateCode()
	if err != nil {
		return CodeRequest{}, domain.InternalError{Msg: "falha ao gerar código", Err: err}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return CodeRequest{}, domain.InternalError{Msg: "falha ao gerar código", Err: err}
	}

	entry := cache.OTPEntry{Hash: string(hash), CreatedAt: s.now()}
	if err := s.OTPs.Save(ctx, email, entry, s.codeTTL()); err != nil {
		utils.LogError(s.RequestID, "auth", "otp_save", err)
		return CodeRequest{}, domain.InternalError{Msg: "falha ao registrar código", Err: err}
	}

	if s.Mailer != nil {
		body := fmt.Sprintf("Seu código de acesso é %s. Ele expira em %d minutos.", code, int(s.codeTTL().Minutes()))
		if err := s.Mailer.Send(ctx, email, "Código de acesso", body); err != nil {
			utils.LogError(s.RequestID, "auth", "otp_send", err)
			if !s.DevMode {
				return CodeRequest{OK: false, Reason: "não foi possível enviar o e-mail"}, nil
			}
		}
	}

	metrics.OTPRequests.WithLabelValues("sent").Inc()
	utils.LogEvent(s.RequestID, "auth", "otp_request", "código enviado para "+email)

	res := CodeRequest{OK: true}
	if s.DevMode {
		res.DevCode = code
	}
	return res, nil
}

// VerifyCode checks code for email. A wrong, expired or exhausted code
// yields OK false with a reason; only infrastructure failures are errors.
// When bind is set it runs with the verified identity before the code is
// consumed. If bind fails its error is returned and the code stays valid.
func (s AuthService) VerifyCode(ctx context.Context, email, code, name string, bind func(models.Identity) error) (Verification, error) {
	email, ok := normalizeAddress(email)
	if !ok {
		return Verification{OK: false, Reason: "e-mail inválido"}, nil
	}

	entry, err := s.OTPs.Get(ctx, email)
	if err != nil {
		return Verification{}, domain.InternalError{Msg: "falha ao ler código", Err: err}
	}
	if entry == nil || s.now().Sub(entry.CreatedAt) > s.codeTTL() {
		metrics.OTPRequests.WithLabelValues("rejected").Inc()
		return Verification{OK: false, Reason: "código expirado ou inexistente"}, nil
	}

	attempts, err := s.OTPs.IncrementAttempts(ctx, email, s.codeTTL())
	if err != nil {
		return Verification{}, domain.InternalError{Msg: "falha ao registrar tentativa", Err: err}
	}
	if attempts > s.maxAttempts() {
		if err := s.OTPs.Delete(ctx, email); err != nil {
			utils.LogError(s.RequestID, "auth", "otp_delete", err)
		}
		metrics.OTPRequests.WithLabelValues("rejected").Inc()
		return Verification{OK: false, Reason: "tentativas esgotadas, solicite um novo código"}, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(entry.Hash), []byte(strings.TrimSpace(code))); err != nil {
		metrics.OTPRequests.WithLabelValues("rejected").Inc()
		utils.LogEvent(s.RequestID, "auth", "otp_verify", "código incorreto para "+email)
		return Verification{OK: false, Reason: "código incorreto"}, nil
	}

	identity := models.Identity{Email: email, Name: utils.NormalizeSpace(name)}
	token, err := s.IssueToken(identity)
	if err != nil {
		return Verification{}, err
	}
	if bind != nil {
		if err := bind(identity); err != nil {
			utils.LogError(s.RequestID, "auth", "otp_bind", err)
			return Verification{}, err
		}
	}

	if err := s.OTPs.Delete(ctx, email); err != nil {
		utils.LogError(s.RequestID, "auth", "otp_delete", err)
	}

	metrics.OTPRequests.WithLabelValues("verified").Inc()
	utils.LogEvent(s.RequestID, "auth", "otp_verify", "identificado "+email)
	return Verification{OK: true, Token: token, Identity: &identity}, nil
}

// IssueToken signs a token for identity.
func (s AuthService) IssueToken(identity models.Identity) (string, error) {
	if len(s.JWTSecret) == 0 {
		return "", domain.InternalError{Msg: "segredo JWT não configurado"}
	}
	now := s.now()
	claims := Claims{
		Email: identity.Email,
		Name:  identity.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL())),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.JWTSecret)
	if err != nil {
		return "", domain.InternalError{Msg: "falha ao assinar token", Err: err}
	}
	return signed, nil
}

// ParseToken validates a bearer token and returns the identity it carries.
func (s AuthService) ParseToken(raw string) (*models.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.JWTSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, domain.DomainError{Code: "not_authenticated", Err: errors.Join(domain.ErrNotAuthenticated, err)}
	}
	if claims.Email == "" {
		return nil, domain.DomainError{Code: "not_authenticated", Err: domain.ErrNotAuthenticated}
	}
	return &models.Identity{Email: claims.Email, Name: claims.Name}, nil
}

func (s AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s AuthService) codeTTL() time.Duration {
	if s.CodeTTL > 0 {
		return s.CodeTTL
	}
	return defaultCodeTTL
}

func (s AuthService) tokenTTL() time.Duration {
	if s.TokenTTL > 0 {
		return s.TokenTTL
	}
	return defaultTokenTTL
}

func (s AuthService) maxAttempts() int {
	if s.MaxAttempts > 0 {
		return s.MaxAttempts
	}
	return defaultMaxAttempts
}

// generateCode returns a random six digit code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("crypto rand failed: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func normalizeAddress(raw string) (string, bool) {
	email := utils.NormalizeEmail(raw)
	if email == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}
