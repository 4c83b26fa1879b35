package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeAccountFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "account.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("failed to write account file: %v", err)
	}
	return path
}

func TestLoadAccount(t *testing.T) {
	t.Parallel()

	path := writeAccountFile(t, `
sender_name: Jane Doe
sender_email: jane@example.com
smtp_server: smtp.example.com
smtp_port: 465
password: hunter2
`)

	account, err := LoadAccount(path)
	if err != nil {
		t.Fatalf("LoadAccount() error = %v", err)
	}

	if account.SenderName != "Jane Doe" {
		t.Errorf("SenderName = %q, want Jane Doe", account.SenderName)
	}
	if account.SenderEmail != "jane@example.com" {
		t.Errorf("SenderEmail = %q, want jane@example.com", account.SenderEmail)
	}
	if account.SMTPPort != 465 {
		t.Errorf("SMTPPort = %d, want 465", account.SMTPPort)
	}
	if account.Password != "hunter2" {
		t.Errorf("Password = %q, want hunter2", account.Password)
	}
}

func TestLoadAccountDefaultsPort(t *testing.T) {
	t.Parallel()

	path := writeAccountFile(t, `
sender_email: jane@example.com
smtp_server: smtp.example.com
`)

	account, err := LoadAccount(path)
	if err != nil {
		t.Fatalf("LoadAccount() error = %v", err)
	}
	if account.SMTPPort != defaultSMTPPort {
		t.Fatalf("SMTPPort = %d, want %d", account.SMTPPort, defaultSMTPPort)
	}
}

func TestLoadAccountMissingFields(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		contents string
	}{
		{name: "missing sender_email", contents: "smtp_server: smtp.example.com\n"},
		{name: "missing smtp_server", contents: "sender_email: jane@example.com\n"},
		{name: "malformed yaml", contents: "sender_email: [unclosed\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := writeAccountFile(t, tc.contents)
			if _, err := LoadAccount(path); err == nil {
				t.Fatal("LoadAccount() accepted an invalid account file")
			}
		})
	}
}

func TestLoadAccountMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := LoadAccount(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadAccount() accepted a missing file")
	}
}
