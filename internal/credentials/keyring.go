package credentials

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStore 以系統金鑰圈保存密碼，帳號為 key
type KeyringStore struct {
	service string
}

// NewKeyringStore 創建金鑰圈存放區，service 為空時使用預設值
func NewKeyringStore(service string) *KeyringStore {
	if service == "" {
		service = DefaultKeyringService
	}
	return &KeyringStore{service: service}
}

// Set 保存密碼
func (s *KeyringStore) Set(username, password string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if err := keyring.Set(s.service, username, password); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// Get 讀取密碼，不存在時返回 keyring.ErrNotFound
func (s *KeyringStore) Get(username string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("username cannot be empty")
	}
	value, err := keyring.Get(s.service, username)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("credential not found for %s: %w", username, err)
		}
		return "", fmt.Errorf("failed to retrieve credential: %w", err)
	}
	return value, nil
}

// Delete 移除密碼
func (s *KeyringStore) Delete(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if err := keyring.Delete(s.service, username); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("credential not found for %s: %w", username, err)
		}
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
