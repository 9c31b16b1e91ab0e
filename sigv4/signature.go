// Package sigv4 presigns and verifies AWS Signature V4 query-string URLs.
// The local filesystem object store uses it to hand out upload and
// download URLs that the server itself later checks.
package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	SignatureAlgorithm = "AWS4-HMAC-SHA256"
	MaxExpiresSeconds  = 604800 // 7 days
	DateTimeFormat     = "20060102T150405Z"
	DateFormat         = "20060102"
)

// ErrInvalidSignature is returned for every verification failure.
var ErrInvalidSignature = errors.New("invalid signature")

// SecretStore resolves an access key to its secret key.
type SecretStore interface {
	Lookup(accessKey string) (string, error)
}

// Verifier verifies AWS Signature V4 presigned URLs.
type Verifier struct {
	Region  string
	Service string
	Store   SecretStore
	Now     func() time.Time
}

// NewVerifier creates a new signature verifier.
//
// Parameters:
//   - region: AWS region (e.g., "us-east-1")
//   - service: AWS service name (e.g., "s3")
//   - store: Secret store used to resolve access keys
func NewVerifier(region, service string, store SecretStore) *Verifier {
	return &Verifier{
		Region:  region,
		Service: service,
		Store:   store,
		Now:     time.Now,
	}
}

// Verify verifies an AWS Signature V4 presigned URL.
//
// Required query parameters:
//   - X-Amz-Algorithm: Must be "AWS4-HMAC-SHA256"
//   - X-Amz-Credential: Format "access_key/date/region/service/aws4_request"
//   - X-Amz-Date: ISO8601 timestamp (YYYYMMDDTHHMMSSZ)
//   - X-Amz-Expires: Validity duration in seconds (1-604800)
//   - X-Amz-SignedHeaders: Semicolon-separated list of signed headers
//   - X-Amz-Signature: Hex-encoded HMAC-SHA256 signature
//
// The function performs the following validations:
//  1. Presence of all required parameters
//  2. Correct algorithm (AWS4-HMAC-SHA256)
//  3. Valid timestamp format
//  4. Expiration within allowed range (1 second to 7 days)
//  5. Request not expired (current time before timestamp + expires)
//  6. Credential format and component matching (date, region, service)
//  7. Access key exists (via the secret store)
//  8. Signature matches calculated signature
//
// Every failure wraps ErrInvalidSignature.
func (v *Verifier) Verify(method, path string, query url.Values, headers http.Header) error {
	params, err := v.extractParams(query)
	if err != nil {
		return err
	}

	if err := v.validateParams(params); err != nil {
		return err
	}

	secretKey, err := v.Store.Lookup(params.accessKey)
	if err != nil {
		return fmt.Errorf("invalid access key: %w", ErrInvalidSignature)
	}

	expectedSignature := calculateSignature(
		secretKey,
		method,
		path,
		query,
		headers,
		params.requestTime,
		params.dateStamp,
		params.region,
		params.service,
		params.signedHeaders,
	)

	if !hmac.Equal([]byte(expectedSignature), []byte(params.signature)) {
		return fmt.Errorf("signature mismatch: %w", ErrInvalidSignature)
	}

	return nil
}

type signatureParams struct {
	algorithm     string
	accessKey     string
	dateStamp     string
	region        string
	service       string
	requestTime   time.Time
	expires       int
	signedHeaders string
	signature     string
}

func (v *Verifier) extractParams(query url.Values) (*signatureParams, error) {
	amzAlgorithm := query.Get("X-Amz-Algorithm")
	amzCredential := query.Get("X-Amz-Credential")
	amzDate := query.Get("X-Amz-Date")
	amzExpires := query.Get("X-Amz-Expires")
	amzSignedHeaders := query.Get("X-Amz-SignedHeaders")
	amzSignature := query.Get("X-Amz-Signature")

	if amzAlgorithm == "" || amzCredential == "" || amzDate == "" ||
		amzExpires == "" || amzSignedHeaders == "" || amzSignature == "" {
		return nil, fmt.Errorf("missing required signature parameters: %w", ErrInvalidSignature)
	}

	requestTime, err := time.Parse(DateTimeFormat, amzDate)
	if err != nil {
		return nil, fmt.Errorf("invalid X-Amz-Date format: %w", ErrInvalidSignature)
	}

	expires, err := strconv.Atoi(amzExpires)
	if err != nil || expires <= 0 || expires > MaxExpiresSeconds {
		return nil, fmt.Errorf("invalid X-Amz-Expires: must be between 1 and %d: %w", MaxExpiresSeconds, ErrInvalidSignature)
	}

	credParts := strings.Split(amzCredential, "/")
	if len(credParts) != 5 {
		return nil, fmt.Errorf("invalid X-Amz-Credential format: %w", ErrInvalidSignature)
	}

	if credParts[4] != "aws4_request" {
		return nil, fmt.Errorf("invalid credential terminator: expected aws4_request: %w", ErrInvalidSignature)
	}

	return &signatureParams{
		algorithm:     amzAlgorithm,
		accessKey:     credParts[0],
		dateStamp:     credParts[1],
		region:        credParts[2],
		service:       credParts[3],
		requestTime:   requestTime,
		expires:       expires,
		signedHeaders: amzSignedHeaders,
		signature:     amzSignature,
	}, nil
}

func (v *Verifier) validateParams(params *signatureParams) error {
	if params.algorithm != SignatureAlgorithm {
		return fmt.Errorf("invalid algorithm: expected %s, got %s: %w", SignatureAlgorithm, params.algorithm, ErrInvalidSignature)
	}

	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	if now().After(params.requestTime.Add(time.Duration(params.expires) * time.Second)) {
		return fmt.Errorf("signature expired: %w", ErrInvalidSignature)
	}

	expectedDate := params.requestTime.Format(DateFormat)
	if params.dateStamp != expectedDate {
		return fmt.Errorf("credential date mismatch: %w", ErrInvalidSignature)
	}

	if params.region != v.Region {
		return fmt.Errorf("region mismatch: expected %s, got %s: %w", v.Region, params.region, ErrInvalidSignature)
	}

	if params.service != v.Service {
		return fmt.Errorf("service mismatch: expected %s, got %s: %w", v.Service, params.service, ErrInvalidSignature)
	}

	return nil
}

// Presigner produces presigned URLs that Verifier accepts.
type Presigner struct {
	Region    string
	Service   string
	AccessKey string
	SecretKey string
	Now       func() time.Time
}

// NewPresigner creates a presigner for one access key pair.
func NewPresigner(region, service, accessKey, secretKey string) *Presigner {
	return &Presigner{
		Region:    region,
		Service:   service,
		AccessKey: accessKey,
		SecretKey: secretKey,
		Now:       time.Now,
	}
}

// Presign signs method on target for ttl. The host is always signed; any
// extra headers are signed too and must be sent unchanged by the caller.
func (p *Presigner) Presign(method string, target *url.URL, ttl time.Duration, headers http.Header) (string, error) {
	expires := int(ttl / time.Second)
	if expires <= 0 || expires > MaxExpiresSeconds {
		return "", fmt.Errorf("presign: ttl must be between 1s and %ds", MaxExpiresSeconds)
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	requestTime := now().UTC()
	dateStamp := requestTime.Format(DateFormat)

	signed := http.Header{}
	for name, values := range headers {
		signed[http.CanonicalHeaderKey(name)] = values
	}
	signed.Set("Host", target.Host)

	names := make([]string, 0, len(signed))
	for name := range signed {
		names = append(names, strings.ToLower(name))
	}
	sort.Strings(names)
	signedHeaders := strings.Join(names, ";")

	query := target.Query()
	query.Set("X-Amz-Algorithm", SignatureAlgorithm)
	query.Set("X-Amz-Credential", fmt.Sprintf("%s/%s/%s/%s/aws4_request", p.AccessKey, dateStamp, p.Region, p.Service))
	query.Set("X-Amz-Date", requestTime.Format(DateTimeFormat))
	query.Set("X-Amz-Expires", strconv.Itoa(expires))
	query.Set("X-Amz-SignedHeaders", signedHeaders)

	signature := calculateSignature(
		p.SecretKey,
		method,
		target.Path,
		query,
		signed,
		requestTime,
		dateStamp,
		p.Region,
		p.Service,
		signedHeaders,
	)
	query.Set("X-Amz-Signature", signature)

	out := *target
	out.RawQuery = query.Encode()
	return out.String(), nil
}

func calculateSignature(
	secretKey, method, path string,
	query url.Values,
	headers http.Header,
	requestTime time.Time,
	dateStamp, region, service, signedHeaders string,
) string {
	canonicalRequest := buildCanonicalRequest(method, path, query, headers, signedHeaders)

	credentialScope := fmt.Sprintf("%s/%s/%s/aws4_request", dateStamp, region, service)
	stringToSign := buildStringToSign(requestTime, credentialScope, canonicalRequest)

	signingKey := deriveSigningKey(secretKey, dateStamp, region, service)

	signature := hmacSHA256(signingKey, []byte(stringToSign))
	return hex.EncodeToString(signature)
}

func buildCanonicalRequest(method, path string, query url.Values, headers http.Header, signedHeaders string) string {
	canonicalQuery := buildCanonicalQueryString(query)
	canonicalHeaders := buildCanonicalHeaders(headers, signedHeaders)
	payloadHash := "UNSIGNED-PAYLOAD"

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s\n%s",
		method,
		path,
		canonicalQuery,
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	)
}

// buildCanonicalHeaders builds the canonical headers string from the signed headers list.
// Headers are sorted alphabetically and formatted as "name:value\n".
func buildCanonicalHeaders(headers http.Header, signedHeaders string) string {
	headerNames := strings.Split(signedHeaders, ";")
	sort.Strings(headerNames)

	var result strings.Builder
	for _, name := range headerNames {
		value := strings.TrimSpace(headers.Get(name))
		result.WriteString(name)
		result.WriteString(":")
		result.WriteString(value)
		result.WriteString("\n")
	}
	return result.String()
}

func buildCanonicalQueryString(query url.Values) string {
	params := url.Values{}
	for k, v := range query {
		if k != "X-Amz-Signature" {
			params[k] = v
		}
	}
	return params.Encode()
}

func buildStringToSign(requestTime time.Time, credentialScope, canonicalRequest string) string {
	hashedCanonicalRequest := sha256Hash(canonicalRequest)
	return fmt.Sprintf("%s\n%s\n%s\n%s",
		SignatureAlgorithm,
		requestTime.Format(DateTimeFormat),
		credentialScope,
		hashedCanonicalRequest,
	)
}

func deriveSigningKey(secretKey, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	kSigning := hmacSHA256(kService, []byte("aws4_request"))
	return kSigning
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func sha256Hash(data string) string {
	h := sha256.New()
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
