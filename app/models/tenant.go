package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const (
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
)

// Tenant is an isolated customer account. Only the fields the payment flow
// needs are mapped here; tenant CRUD lives elsewhere.
type Tenant struct {
	ID              string     `gorm:"type:char(36);primaryKey" json:"id"`
	Name            string     `gorm:"type:varchar(150);not null" json:"name"`
	Status          string     `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	APIKeyHash      string     `gorm:"type:char(64);default:'';index" json:"-"`
	APIKeyPrefix    string     `gorm:"type:varchar(20);default:''" json:"api_key_prefix"`
	APIKeyCreatedAt *time.Time `json:"api_key_created_at"`
	APIKeyRevokedAt *time.Time `json:"api_key_revoked_at"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

var apiKeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

const apiKeyPrefix = "tfx_"

// HasActiveAPIKey reports whether the tenant has a usable API key.
func (t *Tenant) HasActiveAPIKey() bool {
	return t != nil && t.APIKeyHash != "" && t.APIKeyRevokedAt == nil
}

// IsActive reports whether the tenant may use authenticated endpoints.
func (t *Tenant) IsActive() bool {
	return t != nil && t.Status == TenantStatusActive
}

// IssueAPIKey generates a new API key, stores its hash on the struct and
// returns the raw secret. Callers must persist the tenant afterwards.
func (t *Tenant) IssueAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	rawKey := apiKeyPrefix + strings.ToLower(apiKeyEncoding.EncodeToString(b))
	if len(rawKey) < 16 {
		return "", fmt.Errorf("api key generation failed: key too short")
	}
	now := time.Now()
	t.APIKeyHash = HashAPIKey(rawKey)
	t.APIKeyPrefix = rawKey[:16]
	t.APIKeyCreatedAt = &now
	t.APIKeyRevokedAt = nil
	return rawKey, nil
}

// HashAPIKey returns the SHA-256 hash for the provided API key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}
