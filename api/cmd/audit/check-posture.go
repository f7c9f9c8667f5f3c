package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"strconv"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

// SecurityManifest represents the strict requirements from security_strict.json
type SecurityManifest struct {
	Boundaries struct {
		ZeroTrust struct {
			ExpectedUID int `json:"expected_uid"`
		} `json:"zero_trust"`
		Cryptography struct {
			MinEncryptionSecretLen int  `json:"min_encryption_secret_length"`
			MinJWTSecretLen        int  `json:"min_jwt_secret_length"`
			RequireEncryption      bool `json:"require_encryption"`
		} `json:"cryptography"`
	} `json:"boundaries"`
}

func defaultManifest() SecurityManifest {
	var m SecurityManifest
	m.Boundaries.ZeroTrust.ExpectedUID = 1000
	m.Boundaries.Cryptography.MinEncryptionSecretLen = 16
	m.Boundaries.Cryptography.MinJWTSecretLen = 32
	m.Boundaries.Cryptography.RequireEncryption = true
	return m
}

func main() {
	manifestPath := flag.String("manifest", "api/configs/security_strict.json", "path to the security manifest")
	flag.Parse()

	fmt.Println("🔍 Insight: Running Security Posture Audit...")

	// 1. Load the Strict Manifest, falling back to built-in requirements
	manifest := defaultManifest()
	manifestData, err := os.ReadFile(*manifestPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		color.Yellow("⚠️  Notice: %s not found, using built-in requirements.", *manifestPath)
	case err != nil:
		color.Red("❌ CRITICAL: Could not read security manifest: %v", err)
		os.Exit(1)
	default:
		if err := json.Unmarshal(manifestData, &manifest); err != nil {
			color.Red("❌ CRITICAL: Failed to parse security manifest: %v", err)
			os.Exit(1)
		}
	}

	// 2. Load the current Environment
	if err := godotenv.Load(); err != nil {
		color.Yellow("⚠️  Warning: No .env file found, checking system env vars...")
	}

	findings := runAudit(manifest, os.Getenv)

	// --- UID Alignment ---
	if currentUser, err := user.Current(); err == nil {
		currentUID, _ := strconv.Atoi(currentUser.Uid)
		if currentUID != manifest.Boundaries.ZeroTrust.ExpectedUID && currentUID != 0 {
			findings = append(findings, finding{
				Level:   levelNotice,
				Message: fmt.Sprintf("Current UID (%d) differs from manifest expected UID (%d).", currentUID, manifest.Boundaries.ZeroTrust.ExpectedUID),
			})
		}
	}

	hasErrors := false
	for _, f := range findings {
		printFinding(f)
		if f.Level == levelFail {
			hasErrors = true
		}
	}

	// 3. Final Verdict
	fmt.Println("--------------------------------------------------")
	if hasErrors {
		color.New(color.FgRed, color.Bold).Println("🚨 VERDICT: SECURITY POSTURE FAILED.")
		fmt.Println("Fix the errors above before attempting deployment.")
		os.Exit(1)
	}
	color.New(color.FgGreen, color.Bold).Println("🚀 VERDICT: SECURITY POSTURE VALIDATED. System is ready for launch.")
}

func printFinding(f finding) {
	switch f.Level {
	case levelPass:
		color.Green("✅ PASS: %s", f.Message)
	case levelFail:
		color.Red("❌ FAIL: %s", f.Message)
	default:
		color.Yellow("⚠️  NOTICE: %s", f.Message)
	}
}
