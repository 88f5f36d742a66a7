package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/agentloom/loom/pkg/domain"
	"github.com/agentloom/loom/pkg/ports"
)

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey encrypts new messages. Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are old keys tried when decryption with the active key
	// fails, enabling zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionStore struct {
	next   ports.MemoryStore
	config EncryptionConfig
}

// NewEncryption creates a middleware that encrypts message content at rest
// with AES-GCM. Roles stay in the clear so windowing and inspection keep
// working without the key.
func NewEncryption(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.MemoryStore) ports.MemoryStore {
		return &encryptionStore{next: next, config: config}
	}
}

func (s *encryptionStore) Append(ctx context.Context, sessionID string, messages []domain.Message) error {
	sealed := make([]domain.Message, len(messages))
	for i, msg := range messages {
		ciphertext, err := encrypt([]byte(msg.Content), s.config.ActiveKey)
		if err != nil {
			return fmt.Errorf("encrypting message: %w", err)
		}
		sealed[i] = domain.Message{
			Role:    msg.Role,
			Content: base64.StdEncoding.EncodeToString(ciphertext),
		}
	}
	return s.next.Append(ctx, sessionID, sealed)
}

func (s *encryptionStore) Load(ctx context.Context, sessionID string) ([]domain.Message, error) {
	sealed, err := s.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, len(sealed))
	for i, msg := range sealed {
		ciphertext, err := base64.StdEncoding.DecodeString(msg.Content)
		if err != nil {
			return nil, fmt.Errorf("decoding stored message: %w", err)
		}
		plaintext, err := decryptWithRotation(ciphertext, s.config.ActiveKey, s.config.FallbackKeys)
		if err != nil {
			return nil, fmt.Errorf("decrypting stored message: %w", err)
		}
		messages[i] = domain.Message{Role: msg.Role, Content: string(plaintext)}
	}
	return messages, nil
}

func (s *encryptionStore) Clear(ctx context.Context, sessionID string) error {
	return s.next.Clear(ctx, sessionID)
}

func encrypt(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
