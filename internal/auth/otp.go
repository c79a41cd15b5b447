package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// ErrOTPMismatch signals a wrong or already-consumed code.
var ErrOTPMismatch = errors.New("otp mismatch")

// OTPStore keeps bcrypt-hashed one-time codes in redis, keyed by email, with
// a TTL. Verification consumes the challenge.
type OTPStore struct {
	client *redis.Client
	ttl    time.Duration
	cost   int
}

// NewOTPStore builds the store.
func NewOTPStore(client *redis.Client, ttlMinutes, bcryptCost int) *OTPStore {
	if ttlMinutes <= 0 {
		ttlMinutes = 10
	}
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &OTPStore{
		client: client,
		ttl:    time.Duration(ttlMinutes) * time.Minute,
		cost:   bcryptCost,
	}
}

// Issue generates a six-digit code, stores its hash and returns the plaintext
// for delivery.
func (s *OTPStore) Issue(ctx context.Context, email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, otpKey(email), string(hashed), s.ttl).Err(); err != nil {
		return "", err
	}
	return code, nil
}

// Verify compares the code against the stored hash and deletes the challenge
// on success, so a code cannot be replayed.
func (s *OTPStore) Verify(ctx context.Context, email, code string) error {
	hashed, err := s.client.Get(ctx, otpKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrOTPMismatch
	}
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(code)); err != nil {
		return ErrOTPMismatch
	}
	return s.client.Del(ctx, otpKey(email)).Err()
}

func otpKey(email string) string {
	return "otp:" + email
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
