package receipt

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"

	"cajadual/backend/internal/domain"
)

var ErrInvalidToken = errors.New("invalid receipt token")

const issuer = "cajadual"

type receiptClaims struct {
	jwtlib.RegisteredClaims
	TotalUSD   string `json:"total_usd"`
	TotalLocal string `json:"total_local"`
	RateUsed   string `json:"rate_used"`
}

// Signer issues HS256 tokens that bind a receipt to the recorded totals of
// its sale, so a printed receipt can be checked against the sales log.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: func() time.Time { return time.Now().UTC() }}
}

func (s *Signer) Sign(sale domain.Sale) (string, error) {
	claims := receiptClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:  sale.ID,
			IssuedAt: jwtlib.NewNumericDate(s.now()),
			Issuer:   issuer,
		},
		TotalUSD:   sale.TotalUSD.String(),
		TotalLocal: sale.TotalLocal.String(),
		RateUsed:   sale.RateUsed.String(),
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Signer) Verify(tokenStr string) (domain.ReceiptClaims, error) {
	claims := &receiptClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer(issuer))
	if err != nil || !token.Valid {
		return domain.ReceiptClaims{}, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.ReceiptClaims{}, fmt.Errorf("%w: missing sale id", ErrInvalidToken)
	}
	out := domain.ReceiptClaims{SaleID: sub}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	for _, field := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{claims.TotalUSD, &out.TotalUSD},
		{claims.TotalLocal, &out.TotalLocal},
		{claims.RateUsed, &out.RateUsed},
	} {
		v, err := decimal.NewFromString(field.raw)
		if err != nil {
			return domain.ReceiptClaims{}, fmt.Errorf("%w: malformed amount", ErrInvalidToken)
		}
		*field.dst = v
	}
	return out, nil
}
