// Package source reads run inputs: recipient lists, templated recipient
// spreadsheets, and message bodies. It is an I/O adapter; the dispatch core
// only sees the resulting recipients and text.
package source

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/ledgermail/ledgermail/internal/domain"
)

const (
	addressColumn    = "address"
	attachmentColumn = "attachment"
)

// ReadAddressFile reads one recipient address per line. Surrounding
// whitespace is trimmed and blank lines are skipped.
func ReadAddressFile(path string) ([]domain.Recipient, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read address file: %w", err)
	}

	var recipients []domain.Recipient
	for _, line := range strings.Split(string(data), "\n") {
		address := strings.TrimSpace(line)
		if address == "" {
			continue
		}
		recipients = append(recipients, domain.Recipient{Address: address})
	}

	return recipients, nil
}

// ReadRecipientCSV reads a templated recipient table. The header row must
// name an "address" column; every other column becomes a template field,
// except "attachment", which names a per-recipient attachment file.
func ReadRecipientCSV(path string) ([]domain.Recipient, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recipient csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse recipient csv %q: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: recipient csv %q is empty", domain.ErrValidation, path)
	}

	header := rows[0]
	addressIdx := -1
	for i, column := range header {
		if strings.EqualFold(strings.TrimSpace(column), addressColumn) {
			addressIdx = i
			break
		}
	}
	if addressIdx < 0 {
		return nil, fmt.Errorf("%w: recipient csv %q has no %q column", domain.ErrValidation, path, addressColumn)
	}

	recipients := make([]domain.Recipient, 0, len(rows)-1)
	for rowNum, row := range rows[1:] {
		address := strings.TrimSpace(row[addressIdx])
		if address == "" {
			return nil, fmt.Errorf("%w: recipient csv %q row %d has an empty address", domain.ErrValidation, path, rowNum+2)
		}

		recipient := domain.Recipient{
			Address: address,
			Fields:  make(map[string]string, len(header)-1),
		}
		for i, column := range header {
			if i == addressIdx || i >= len(row) {
				continue
			}
			name := strings.TrimSpace(column)
			value := strings.TrimSpace(row[i])
			if strings.EqualFold(name, attachmentColumn) {
				recipient.Attachment = value
				continue
			}
			recipient.Fields[name] = value
		}

		recipients = append(recipients, recipient)
	}

	return recipients, nil
}

// ReadMessageFile reads the message body (or body template) verbatim. The
// exact bytes feed the fingerprint, so no normalization happens here.
func ReadMessageFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read message file: %w", err)
	}
	return string(data), nil
}
