package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/cgsmith/user-service/internal/config"
	"github.com/cgsmith/user-service/internal/domain"
	"github.com/cgsmith/user-service/internal/dto"
	"github.com/cgsmith/user-service/internal/repository"
	"github.com/cgsmith/user-service/internal/utils"
)

const (
	backupCodeLength   = 8
	backupCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	qrCodeSize         = 200
)

// twoFactorService implements TwoFactorService
type twoFactorService struct {
	store repository.Store
	cfg   *config.Config
}

// NewTwoFactorService creates a new two-factor service
func NewTwoFactorService(store repository.Store, cfg *config.Config) TwoFactorService {
	return &twoFactorService{store: store, cfg: cfg}
}

// StartSetup generates a fresh secret and provisioning material. The
// record stays disabled until the user proves possession with a code.
func (s *twoFactorService) StartSetup(ctx context.Context, userID string) (*dto.TwoFactorSetupResponse, error) {
	existing, err := s.store.TwoFactor().GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.IsEnabled() {
		return nil, ErrTwoFactorAlreadyEnabled
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.cfg.TwoFactor.Issuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	record := &domain.TwoFactor{
		UserID: userID,
		Secret: key.Secret(),
	}
	if existing != nil {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	}
	if err := s.store.TwoFactor().Upsert(ctx, record); err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, qrCodeSize)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}

	return &dto.TwoFactorSetupResponse{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
		QRCodeBase64:    base64.StdEncoding.EncodeToString(png),
	}, nil
}

// Enable confirms setup with a first valid code and activates 2FA,
// handing out a fresh set of backup codes
func (s *twoFactorService) Enable(ctx context.Context, userID, code string) (*dto.TwoFactorEnabledResponse, error) {
	record, err := s.store.TwoFactor().GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTwoFactorNotEnabled
		}
		return nil, err
	}
	if record.IsEnabled() {
		return nil, ErrTwoFactorAlreadyEnabled
	}

	if !validateTOTP(record.Secret, code) {
		return nil, ErrInvalidTwoFactorCode
	}

	codes, err := generateBackupCodes(s.cfg.TwoFactor.BackupCodesCount)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record.EnabledAt = &now
	record.BackupCodes = codes
	if err := s.store.TwoFactor().Upsert(ctx, record); err != nil {
		return nil, err
	}

	return &dto.TwoFactorEnabledResponse{BackupCodes: codes}, nil
}

// Disable turns 2FA off after re-verifying the password. Disabling an
// account that never had 2FA is not an error.
func (s *twoFactorService) Disable(ctx context.Context, userID, password string) error {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	if s.cfg.TwoFactor.RequireForAdmins && isAdminUser(s.cfg, user) {
		return ErrTwoFactorRequired
	}

	if _, err := s.store.TwoFactor().DeleteByUserID(ctx, userID); err != nil {
		return err
	}

	return nil
}

// Verify checks a TOTP code first and falls back to backup codes. A
// matched backup code is consumed and cannot be used again.
func (s *twoFactorService) Verify(ctx context.Context, userID, code string) (bool, error) {
	record, err := s.store.TwoFactor().GetEnabledByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrTwoFactorNotEnabled
		}
		return false, err
	}

	if validateTOTP(record.Secret, code) {
		return true, nil
	}

	normalized := normalizeBackupCode(code)
	if normalized == "" {
		return false, nil
	}

	return s.store.TwoFactor().ConsumeBackupCode(ctx, userID, normalized)
}

// RegenerateBackupCodes replaces the whole backup code set
func (s *twoFactorService) RegenerateBackupCodes(ctx context.Context, userID string) ([]string, error) {
	record, err := s.store.TwoFactor().GetEnabledByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTwoFactorNotEnabled
		}
		return nil, err
	}

	codes, err := generateBackupCodes(s.cfg.TwoFactor.BackupCodesCount)
	if err != nil {
		return nil, err
	}

	if err := s.store.TwoFactor().ReplaceBackupCodes(ctx, record.UserID, codes); err != nil {
		return nil, err
	}

	return codes, nil
}

// IsEnabled reports whether a user has confirmed 2FA
func (s *twoFactorService) IsEnabled(ctx context.Context, userID string) (bool, error) {
	_, err := s.store.TwoFactor().GetEnabledByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// validateTOTP accepts the current period plus one period of clock skew
// in either direction
func validateTOTP(secret, code string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Period: 30,
		Skew:   1,
		Digits: otp.DigitsSix,
	})
	return err == nil && ok
}

// normalizeBackupCode uppercases the input and strips separators users
// tend to type
func normalizeBackupCode(code string) string {
	code = strings.ToUpper(code)
	code = strings.ReplaceAll(code, "-", "")
	code = strings.ReplaceAll(code, " ", "")
	return code
}

func generateBackupCodes(count int) ([]string, error) {
	codes := make([]string, 0, count)
	max := big.NewInt(int64(len(backupCodeAlphabet)))

	for i := 0; i < count; i++ {
		code := make([]byte, backupCodeLength)
		for j := range code {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return nil, fmt.Errorf("failed to generate backup code: %w", err)
			}
			code[j] = backupCodeAlphabet[n.Int64()]
		}
		codes = append(codes, string(code))
	}

	return codes, nil
}
