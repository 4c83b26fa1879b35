package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultSMTPPort = 587

// Account holds the sending identity and mail-submission settings, read
// from the YAML file named by --account-file. Password may be left out of
// the file and supplied interactively instead.
type Account struct {
	SenderName  string `yaml:"sender_name"`
	SenderEmail string `yaml:"sender_email"`
	SMTPServer  string `yaml:"smtp_server"`
	SMTPPort    int    `yaml:"smtp_port"`
	Password    string `yaml:"password"`
}

func LoadAccount(path string) (*Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read account file: %w", err)
	}

	var account Account
	if err := yaml.Unmarshal(data, &account); err != nil {
		return nil, fmt.Errorf("failed to parse account file %q: %w", path, err)
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}

	return &account, nil
}

func (a *Account) Validate() error {
	if a == nil {
		return fmt.Errorf("account is required")
	}
	if strings.TrimSpace(a.SenderEmail) == "" {
		return fmt.Errorf("account: sender_email is required")
	}
	if strings.TrimSpace(a.SMTPServer) == "" {
		return fmt.Errorf("account: smtp_server is required")
	}
	if a.SMTPPort == 0 {
		a.SMTPPort = defaultSMTPPort
	}
	if a.SMTPPort < 0 || a.SMTPPort > 65535 {
		return fmt.Errorf("account: invalid smtp_port %d", a.SMTPPort)
	}
	return nil
}
