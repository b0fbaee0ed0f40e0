package security

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const EncryptionKeyOption = "fitting_request_encryption_key"

var errInvalidCiphertext = errors.New("invalid ciphertext")

// Encrypt seals plaintext with AES-256-CBC. The random IV is prepended and
// the result is base64 encoded.
func (s *Service) Encrypt(ctx context.Context, plaintext string) (string, error) {
	key, err := s.encryptionKey(ctx)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(padded))
	iv := out[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

func (s *Service) Decrypt(ctx context.Context, encoded string) (string, error) {
	key, err := s.encryptionKey(ctx)
	if err != nil {
		return "", err
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errInvalidCiphertext, err)
	}
	if len(data) < 2*aes.BlockSize || len(data)%aes.BlockSize != 0 {
		return "", errInvalidCiphertext
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	iv, body := data[:aes.BlockSize], data[aes.BlockSize:]
	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)

	unpadded, err := pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return "", err
	}
	return string(unpadded), nil
}

// encryptionKey loads the site key, generating and persisting it on first use.
func (s *Service) encryptionKey(ctx context.Context) ([]byte, error) {
	stored, found, err := s.options.Get(ctx, EncryptionKeyOption)
	if err != nil {
		return nil, fmt.Errorf("failed to load encryption key: %w", err)
	}
	if found {
		key, err := base64.StdEncoding.DecodeString(stored)
		if err == nil && len(key) == 32 {
			return key, nil
		}
		s.logger.Warn("stored encryption key is malformed, generating a new one")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate encryption key: %w", err)
	}
	if err := s.options.Set(ctx, EncryptionKeyOption, base64.StdEncoding.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("failed to store encryption key: %w", err)
	}
	return key, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errInvalidCiphertext
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errInvalidCiphertext
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errInvalidCiphertext
		}
	}
	return data[:len(data)-n], nil
}
