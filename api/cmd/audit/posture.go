package main

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/irgordon/insight/api/internal/infrastructure/crypto"
)

type level int

const (
	levelPass level = iota
	levelNotice
	levelFail
)

type finding struct {
	Level   level
	Message string
}

// runAudit evaluates the environment against the manifest. getenv is
// injected so the checks can run against a fixed environment.
func runAudit(manifest SecurityManifest, getenv func(string) string) []finding {
	var out []finding
	crypt := manifest.Boundaries.Cryptography

	// --- Audit Point 1: Encryption Secret ---
	secret := getenv("INSIGHT_ENCRYPTION_SECRET_KEY")
	switch n := utf8.RuneCountInString(secret); {
	case strings.TrimSpace(secret) == "" && crypt.RequireEncryption:
		out = append(out, finding{levelFail, "INSIGHT_ENCRYPTION_SECRET_KEY is not set; secrets would be stored in plaintext."})
	case strings.TrimSpace(secret) == "":
		out = append(out, finding{levelNotice, "At-rest encryption is disabled."})
	case n < crypt.MinEncryptionSecretLen:
		out = append(out, finding{levelFail, fmt.Sprintf("INSIGHT_ENCRYPTION_SECRET_KEY is too short. Min: %d characters (Current: %d)", crypt.MinEncryptionSecretLen, n)})
	default:
		if _, err := crypto.DeriveKey(secret); err != nil {
			out = append(out, finding{levelFail, fmt.Sprintf("INSIGHT_ENCRYPTION_SECRET_KEY is unusable: %v", err)})
		} else {
			out = append(out, finding{levelPass, "Encryption secret is set and derives a valid key."})
		}
	}

	// --- Audit Point 2: JWT Secret Strength ---
	if jwtSec := getenv("JWT_SECRET"); len(jwtSec) < crypt.MinJWTSecretLen {
		out = append(out, finding{levelFail, fmt.Sprintf("JWT_SECRET is too short. Min: %d characters (Current: %d)", crypt.MinJWTSecretLen, len(jwtSec))})
	} else {
		out = append(out, finding{levelPass, "JWT secret length is sufficient."})
	}

	// --- Audit Point 3: Database Credentials ---
	switch dbURL := getenv("DATABASE_URL"); {
	case dbURL == "":
		out = append(out, finding{levelFail, "DATABASE_URL must be set."})
	case strings.Contains(dbURL, "dev_password"):
		out = append(out, finding{levelFail, "DATABASE_URL is using default development credentials."})
	default:
		out = append(out, finding{levelPass, "Database URL does not use default credentials."})
	}

	// --- Audit Point 4: Attachment Directory Permissions ---
	if dir := getenv("INSIGHT_ATTACHMENT_DIR"); dir != "" {
		if fi, err := os.Stat(dir); err == nil {
			if fi.Mode().Perm()&0o077 != 0 {
				out = append(out, finding{levelFail, fmt.Sprintf("INSIGHT_ATTACHMENT_DIR %s is accessible to group/other (%v).", dir, fi.Mode().Perm())})
			} else {
				out = append(out, finding{levelPass, "Attachment directory is private to the service user."})
			}
		}
	}

	return out
}
