package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidSigningMethod = errors.New("unexpected signing method")
	ErrInvalidToken         = errors.New("invalid token")
	ErrEmptySecret          = errors.New("signing secret is empty")
)

// TransactionClaims is the body of a transaction token: the record a verified
// transaction carries to whatever system settles it.
type TransactionClaims struct {
	jwt.RegisteredClaims
	OrganizationID uuid.UUID `json:"org"`
	RequesterID    uuid.UUID `json:"req"`
	Cost           float64   `json:"cost"`
	Category       string    `json:"cat"`
	Approved       bool      `json:"approved"`
}

type TokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
	now    func() time.Time
}

func NewTokenService(secret string, expiry time.Duration, issuer string) (*TokenService, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &TokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// TransactionInput is what the caller knows about a verified transaction.
type TransactionInput struct {
	OrganizationID uuid.UUID
	RequesterID    uuid.UUID
	Cost           float64
	Category       string
	Approved       bool
}

// IssueTransactionToken signs the decision with HS256. The jti is random per call.
func (s *TokenService) IssueTransactionToken(in TransactionInput) (string, error) {
	now := s.now()

	claims := TransactionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   in.RequesterID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		OrganizationID: in.OrganizationID,
		RequesterID:    in.RequesterID,
		Cost:           in.Cost,
		Category:       in.Category,
		Approved:       in.Approved,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *TokenService) ParseTransactionToken(tokenString string) (*TransactionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TransactionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSigningMethod
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*TransactionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
