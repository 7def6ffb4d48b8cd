package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pquerna/otp/totp"
)

// BackupCodeCount is the number of single-use recovery codes issued at
// MFA enrollment.
const BackupCodeCount = 8

// GenerateTOTPSecret creates a new TOTP enrollment for the given account.
// Returns the base32 secret and the otpauth:// provisioning URL for QR display.
func GenerateTOTPSecret(issuer, accountName string) (secret, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
	})
	if err != nil {
		return "", "", fmt.Errorf("generating totp secret: %w", err)
	}
	return key.Secret(), key.URL(), nil
}

// VerifyTOTPCode checks a 6-digit code against the secret with the standard
// 30-second step and one step of clock skew tolerance.
func VerifyTOTPCode(secret, code string) error {
	if !totp.Validate(strings.TrimSpace(code), secret) {
		return ErrInvalidTOTPCode
	}
	return nil
}

// GenerateBackupCodes issues BackupCodeCount random recovery codes in
// "xxxx-xxxx" form. Codes are stored encrypted and consumed single-use.
func GenerateBackupCodes() ([]string, error) {
	codes := make([]string, BackupCodeCount)
	for i := range codes {
		b := make([]byte, 4)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generating backup code: %w", err)
		}
		s := hex.EncodeToString(b)
		codes[i] = s[:4] + "-" + s[4:]
	}
	return codes, nil
}

// NormalizeBackupCode canonicalizes user input for comparison against stored codes.
func NormalizeBackupCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
