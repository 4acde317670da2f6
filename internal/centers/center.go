package centers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pariz/gountries"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultCountry is assumed when a center registers without location data.
const DefaultCountry = "Republica Dominicana"

// CenterNotFoundError represents an error when a center is not found
type CenterNotFoundError struct {
	Code string
}

func (e *CenterNotFoundError) Error() string {
	return fmt.Sprintf("center not found for code: %s", e.Code)
}

// NewCenterNotFoundError creates a new CenterNotFoundError
func NewCenterNotFoundError(code string) *CenterNotFoundError {
	return &CenterNotFoundError{Code: code}
}

// UnauthorizedError represents a credential mismatch or an inactive center
type UnauthorizedError struct {
	Code   string
	Reason string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized for center %s: %s", e.Code, e.Reason)
}

// NewUnauthorizedError creates a new UnauthorizedError
func NewUnauthorizedError(code, reason string) *UnauthorizedError {
	return &UnauthorizedError{Code: code, Reason: reason}
}

// Center represents a veterinary center installation pushing KPI data
type Center struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Code         string     `gorm:"uniqueIndex;not null" json:"code"` // Short identifier, e.g. "HVC"
	Name         string     `gorm:"not null" json:"name"`
	Country      string     `json:"country"`
	City         string     `json:"city"`
	APIKeyHash   string     `gorm:"not null" json:"-"`
	Active       bool       `gorm:"default:true" json:"active"`
	RegisteredAt time.Time  `json:"registered_at"`
	LastSyncAt   *time.Time `json:"last_sync_at"`
}

// MetadataUpdate carries optional center fields pushed by the upstream
// practice-management system. Nil fields are left unchanged.
type MetadataUpdate struct {
	Name    *string `json:"name"`
	City    *string `json:"city"`
	Country *string `json:"country"`
	Active  *bool   `json:"is_active"`
}

// HashAPIKey hashes a center credential for at-rest storage.
func HashAPIKey(apiKey string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash api key: %w", err)
	}
	return string(hash), nil
}

// CheckAPIKey reports whether the supplied credential matches the stored hash.
func CheckAPIKey(hash, apiKey string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(apiKey)) == nil
}

// GenerateAPIKey returns a fresh random credential for a newly provisioned center.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// NormalizeCountry resolves a free-form country name against the gountries
// dataset and returns its canonical common name. Unresolvable names are kept
// as supplied since upstream systems send local spellings.
func NormalizeCountry(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return DefaultCountry
	}
	query := gountries.New()
	if country, err := query.FindCountryByName(trimmed); err == nil {
		return country.Name.Common
	}
	return trimmed
}

// GetCenterByCode retrieves a center by its unique code
func GetCenterByCode(db *gorm.DB, code string) (*Center, error) {
	var center Center
	if err := db.Where("code = ?", code).First(&center).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, NewCenterNotFoundError(code)
		}
		return nil, fmt.Errorf("unexpected error querying center: %w", err)
	}
	return &center, nil
}

// GetAllCenters retrieves all registered centers ordered by code
func GetAllCenters(db *gorm.DB) ([]Center, error) {
	var all []Center
	if err := db.Order("code ASC").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("failed to get centers: %w", err)
	}
	return all, nil
}

// CountCenters returns the number of registered and active centers.
func CountCenters(db *gorm.DB) (total int64, active int64, err error) {
	if err = db.Model(&Center{}).Count(&total).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count centers: %w", err)
	}
	if err = db.Model(&Center{}).Where("active = ?", true).Count(&active).Error; err != nil {
		return 0, 0, fmt.Errorf("failed to count active centers: %w", err)
	}
	return total, active, nil
}

// RegisterCenter creates a new center with the supplied credential.
// Used both by explicit provisioning and by event auto-registration.
func RegisterCenter(tx *gorm.DB, code, name, apiKey string) (*Center, error) {
	hash, err := HashAPIKey(apiKey)
	if err != nil {
		return nil, err
	}

	center := &Center{
		Code:         code,
		Name:         name,
		Country:      DefaultCountry,
		APIKeyHash:   hash,
		Active:       true,
		RegisteredAt: time.Now().UTC(),
	}
	if err := tx.Create(center).Error; err != nil {
		return nil, fmt.Errorf("failed to register center %s: %w", code, err)
	}
	return center, nil
}

// Authenticate verifies a center credential. The caller decides what a
// missing center means: snapshots treat it as unauthorized, events
// auto-register instead.
func Authenticate(db *gorm.DB, code, apiKey string, requireActive bool) (*Center, error) {
	center, err := GetCenterByCode(db, code)
	if err != nil {
		return nil, err
	}

	if !CheckAPIKey(center.APIKeyHash, apiKey) {
		return nil, NewUnauthorizedError(code, "invalid api key")
	}
	if requireActive && !center.Active {
		return nil, NewUnauthorizedError(code, "center is inactive")
	}
	return center, nil
}

// TouchLastSync records the moment a center last pushed data
func TouchLastSync(tx *gorm.DB, centerID uint, at time.Time) error {
	if err := tx.Model(&Center{}).Where("id = ?", centerID).
		Update("last_sync_at", at.UTC()).Error; err != nil {
		return fmt.Errorf("failed to update last sync: %w", err)
	}
	return nil
}

// ResetLastSync clears the sync marker, used after an administrative data purge
func ResetLastSync(tx *gorm.DB, centerID uint) error {
	if err := tx.Model(&Center{}).Where("id = ?", centerID).
		Update("last_sync_at", nil).Error; err != nil {
		return fmt.Errorf("failed to reset last sync: %w", err)
	}
	return nil
}

// UpsertMetadata applies a metadata update pushed by the upstream system.
// Unknown codes are registered on the spot with a generated credential,
// which is returned exactly once so the operator can hand it to the center.
func UpsertMetadata(db *gorm.DB, code string, update MetadataUpdate) (*Center, string, error) {
	center, err := GetCenterByCode(db, code)
	if err != nil {
		var notFound *CenterNotFoundError
		if !errors.As(err, &notFound) {
			return nil, "", err
		}

		apiKey, genErr := GenerateAPIKey()
		if genErr != nil {
			return nil, "", genErr
		}
		name := code
		if update.Name != nil && *update.Name != "" {
			name = *update.Name
		}
		center, err = RegisterCenter(db, code, name, apiKey)
		if err != nil {
			return nil, "", err
		}
		if err := applyMetadata(db, center, update); err != nil {
			return nil, "", err
		}
		return center, apiKey, nil
	}

	if err := applyMetadata(db, center, update); err != nil {
		return nil, "", err
	}
	return center, "", nil
}

func applyMetadata(db *gorm.DB, center *Center, update MetadataUpdate) error {
	if update.Name != nil && *update.Name != "" {
		center.Name = *update.Name
	}
	if update.City != nil {
		center.City = *update.City
	}
	if update.Country != nil {
		center.Country = NormalizeCountry(*update.Country)
	}
	if update.Active != nil {
		center.Active = *update.Active
	}
	if err := db.Save(center).Error; err != nil {
		return fmt.Errorf("failed to update center %s: %w", center.Code, err)
	}
	return nil
}

// SetActive flips the activity flag for a center
func SetActive(db *gorm.DB, code string, active bool) (*Center, error) {
	center, err := GetCenterByCode(db, code)
	if err != nil {
		return nil, err
	}
	center.Active = active
	if err := db.Save(center).Error; err != nil {
		return nil, fmt.Errorf("failed to update center %s: %w", code, err)
	}
	return center, nil
}

// RotateAPIKey replaces a center's credential with a freshly generated one
func RotateAPIKey(db *gorm.DB, code string) (*Center, string, error) {
	center, err := GetCenterByCode(db, code)
	if err != nil {
		return nil, "", err
	}

	apiKey, err := GenerateAPIKey()
	if err != nil {
		return nil, "", err
	}
	hash, err := HashAPIKey(apiKey)
	if err != nil {
		return nil, "", err
	}

	center.APIKeyHash = hash
	if err := db.Save(center).Error; err != nil {
		return nil, "", fmt.Errorf("failed to rotate api key for %s: %w", code, err)
	}
	return center, apiKey, nil
}
