// Package identity implements spec.md §4.5's discovery pipeline:
// multi-issuer JWT verification (external RS256 via JWKS, plus an
// internal HS-512 issuer), x5c leaf handling, and email-claim
// extraction.
package identity

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/golang-jwt/jwt/v5"
	"github.com/opsmycelium/gateway/internal/merr"
)

// X5CVerificationMode controls how an X.509 leaf carried in a JWK's
// x5c chain is trusted (SPEC_FULL.md redesign: made configurable
// rather than hardcoded).
type X5CVerificationMode string

const (
	// X5CLeafSelfSigned accepts the leaf certificate's own public key
	// without chain validation -- appropriate for issuers whose JWKS
	// endpoint is itself reached over a trusted TLS connection.
	X5CLeafSelfSigned X5CVerificationMode = "leaf_self"
	// X5CChainToConfiguredRoot validates the leaf against a configured
	// root CA pool before trusting its public key.
	X5CChainToConfiguredRoot X5CVerificationMode = "chain_to_configured_root"
)

// Issuer is one configured external identity provider (spec.md §4.5).
type Issuer struct {
	IssuerURL           string
	JWKSURI             string
	Audience            string
	X5CVerificationMode X5CVerificationMode
	RootCAs             *x509.CertPool // only consulted in X5CChainToConfiguredRoot mode
}

// InternalIssuer is the Mycelium-issued HS-512 issuer (spec.md §4.5:
// "Internal (Mycelium-issued) JWTs use HS-512 with a configured
// secret").
type InternalIssuer struct {
	IssuerURL string
	Audience  string
	Secret    string
}

// Verifier resolves a Bearer token against configured issuers and
// extracts the caller's email.
type Verifier struct {
	issuers  map[string]Issuer
	internal InternalIssuer
	jwks     *JWKSCache
}

func NewVerifier(issuers []Issuer, internal InternalIssuer, jwks *JWKSCache) *Verifier {
	byURL := make(map[string]Issuer, len(issuers))
	for _, iss := range issuers {
		byURL[iss.IssuerURL] = iss
	}
	return &Verifier{issuers: byURL, internal: internal, jwks: jwks}
}

// Result is what a successful verification yields: the caller's email
// and the issuer that vouched for it.
type Result struct {
	Email      string
	IssuerURL  string
	IsInternal bool
}

// Verify implements spec.md §4.5 steps 2-6 against an already-extracted
// bearer token string.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (Result, error) {
	unverified, _, err := jwt.NewParser().ParseUnverified(rawToken, jwt.MapClaims{})
	if err != nil {
		return Result{}, merr.ErrTokenVerification.Wrap(err)
	}

	claimedIssuer, _ := unverified.Claims.(jwt.MapClaims)["iss"].(string)

	if claimedIssuer == v.internal.IssuerURL {
		return v.verifyInternal(rawToken)
	}

	issuer, ok := v.issuers[claimedIssuer]
	if !ok {
		return Result{}, merr.ErrUnknownIssuer
	}
	return v.verifyExternal(ctx, rawToken, issuer)
}

func (v *Verifier) verifyInternal(rawToken string) (Result, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(v.internal.Secret), nil
	}, jwt.WithValidMethods([]string{"HS512"}), jwt.WithAudience(v.internal.Audience))
	if err != nil {
		return Result{}, merr.ErrTokenVerification.Wrap(err)
	}

	email, err := extractEmail(claims)
	if err != nil {
		return Result{}, err
	}
	return Result{Email: email, IssuerURL: v.internal.IssuerURL, IsInternal: true}, nil
}

func (v *Verifier) verifyExternal(ctx context.Context, rawToken string, issuer Issuer) (Result, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		jwk, err := v.jwks.Key(ctx, issuer.JWKSURI, kid)
		if err != nil {
			return nil, merr.ErrJWKSUnavailable.Wrap(err)
		}
		return publicKeyFromJWK(jwk, issuer)
	}, jwt.WithAudience(issuer.Audience))
	if err != nil {
		if merrE, ok := merr.As(err); ok {
			return Result{}, merrE
		}
		return Result{}, merr.ErrTokenVerification.Wrap(err)
	}

	email, err := extractEmail(claims)
	if err != nil {
		return Result{}, err
	}
	return Result{Email: email, IssuerURL: issuer.IssuerURL}, nil
}

// publicKeyFromJWK builds the RSA public key either from the X.509 leaf
// in x5c (per the issuer's configured verification mode) or directly
// from (n, e), matching spec.md §4.5 step 4.
func publicKeyFromJWK(jwk JWK, issuer Issuer) (*rsa.PublicKey, error) {
	if len(jwk.X5C) > 0 {
		return publicKeyFromX5C(jwk.X5C[0], issuer)
	}
	return publicKeyFromModulusExponent(jwk.N, jwk.E)
}

func publicKeyFromX5C(certB64 string, issuer Issuer) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(certB64)
	if err != nil {
		return nil, fmt.Errorf("decoding x5c entry: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parsing x5c leaf: %w", err)
	}

	if issuer.X5CVerificationMode == X5CChainToConfiguredRoot {
		opts := x509.VerifyOptions{Roots: issuer.RootCAs}
		if _, err := cert.Verify(opts); err != nil {
			return nil, fmt.Errorf("x5c leaf does not chain to configured root: %w", err)
		}
	}
	// X5CLeafSelfSigned (the default): trust the leaf's own key without
	// chain validation. The leaf was retrieved from a JWKS endpoint
	// reached over TLS, which already authenticates the issuer.

	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("x5c leaf does not carry an RSA public key")
	}
	return pub, nil
}

func publicKeyFromModulusExponent(nB64, eB64 string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nB64)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eB64)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

// extractEmail implements spec.md §4.5 step 6: upn, then email.
func extractEmail(claims jwt.MapClaims) (string, error) {
	if upn, ok := claims["upn"].(string); ok && upn != "" {
		return upn, nil
	}
	if email, ok := claims["email"].(string); ok && email != "" {
		return email, nil
	}
	return "", merr.ErrMissingEmailClaim
}
