// Package utils 提供 hash/serialize/retry/backoff 等通用工具
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"
)

// SHA256Hash 计算 SHA-256 哈希
func SHA256Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ToJSON 序列化为 JSON 字符串
func ToJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal: %w", err)
	}
	return string(data), nil
}

// FromJSON 从 JSON 字符串反序列化
func FromJSON(data string, v interface{}) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("failed to unmarshal: %w", err)
	}
	return nil
}

// Retry 以固定间隔重试函数
func Retry(attempts int, sleep time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(sleep)
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}

// RetryWithBackoff 以指数退避加抖动重试函数
func RetryWithBackoff(attempts int, initial time.Duration, fn func() error) error {
	var err error
	sleep := initial
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			jitter := time.Duration(rand.Int63n(int64(sleep) / 2))
			time.Sleep(sleep + jitter)
			sleep *= 2
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}

// TruncateString 截断字符串到指定长度
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
