// Package compose builds per-recipient message payloads: template
// substitution for templated runs, attachment resolution, and the body/
// subject pair handed to the transport. Build failures are configuration
// errors and abort the whole run, because no useful ledger entry can exist
// for a payload that cannot be constructed.
package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/ledgermail/ledgermail/internal/domain"
)

// Attachment is a resolved attachment ready for the transport.
type Attachment struct {
	Name string
	Data []byte
}

// Payload is one recipient's fully built message.
type Payload struct {
	Subject     string
	Body        string
	HTML        bool
	Attachments []Attachment
}

// Resolver loads attachment bytes by reference. The default reads files
// from disk and refuses directories.
type Resolver func(ref string) ([]byte, error)

// Options configures a Builder.
type Options struct {
	// HTML marks the body as text/html instead of text/plain.
	HTML bool
	// Templated enables Go text/template substitution of recipient fields
	// into subject and body. Plain runs treat both as literal text.
	Templated bool
	// Attachments names files attached to every message of the run.
	Attachments []string
	// Resolve overrides the attachment resolver.
	Resolve Resolver
}

type Builder struct {
	subject     string
	body        string
	subjectTmpl *template.Template
	bodyTmpl    *template.Template
	html        bool
	attachments []string
	resolve     Resolver
}

// NewBuilder prepares a payload builder for one run. Template parse errors
// surface here, before any transport call happens.
func NewBuilder(subject, body string, opts Options) (*Builder, error) {
	b := &Builder{
		subject:     subject,
		body:        body,
		html:        opts.HTML,
		attachments: opts.Attachments,
		resolve:     opts.Resolve,
	}
	if b.resolve == nil {
		b.resolve = resolveFile
	}

	if opts.Templated {
		var err error
		b.subjectTmpl, err = template.New("subject").Option("missingkey=error").Parse(subject)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid subject template: %v", domain.ErrPayloadBuild, err)
		}
		b.bodyTmpl, err = template.New("body").Option("missingkey=error").Parse(body)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid body template: %v", domain.ErrPayloadBuild, err)
		}
	}

	return b, nil
}

func (b *Builder) Build(r domain.Recipient) (*Payload, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	payload := &Payload{
		Subject: b.subject,
		Body:    b.body,
		HTML:    b.html,
	}

	if b.bodyTmpl != nil {
		var err error
		payload.Subject, err = renderTemplate(b.subjectTmpl, r)
		if err != nil {
			return nil, err
		}
		payload.Body, err = renderTemplate(b.bodyTmpl, r)
		if err != nil {
			return nil, err
		}
	}

	refs := b.attachments
	if r.Attachment != "" {
		refs = append(append([]string{}, refs...), r.Attachment)
	}
	for _, ref := range refs {
		data, err := b.resolve(ref)
		if err != nil {
			return nil, fmt.Errorf("%w: attachment %q for %s: %v", domain.ErrPayloadBuild, ref, r.Address, err)
		}
		payload.Attachments = append(payload.Attachments, Attachment{
			Name: filepath.Base(ref),
			Data: data,
		})
	}

	return payload, nil
}

func renderTemplate(tmpl *template.Template, r domain.Recipient) (string, error) {
	fields := r.Fields
	if fields == nil {
		fields = map[string]string{}
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, fields); err != nil {
		return "", fmt.Errorf("%w: rendering %s for %s: %v", domain.ErrPayloadBuild, tmpl.Name(), r.Address, err)
	}
	return sb.String(), nil
}

func resolveFile(ref string) ([]byte, error) {
	info, err := os.Stat(ref)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%q is a directory, not a file", ref)
	}
	return os.ReadFile(ref)
}
