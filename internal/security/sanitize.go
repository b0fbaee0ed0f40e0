package security

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/net/html"
)

// HoneypotPrefix marks decoy form fields that humans never fill in.
const HoneypotPrefix = "website_url_"

var (
	fieldValidator = validator.New()

	phoneStrip     = regexp.MustCompile(`[^+\d]`)
	uaePhone       = regexp.MustCompile(`^\+971[0-9]{8,9}$`)
	uaeLocalMobile = regexp.MustCompile(`^(50|51|52|54|55|56|58)[0-9]{7}$`)
	whitespaceRun  = regexp.MustCompile(`[ \t\r\n]+`)
	lineSpaceRun   = regexp.MustCompile(`[ \t]+`)

	disposableDomains = map[string]struct{}{
		"10minutemail.com":  {},
		"guerrillamail.com": {},
		"mailinator.com":    {},
		"tempmail.org":      {},
	}
)

// SanitizeEmail returns the normalized address, or false when it is
// malformed or belongs to a disposable mail provider.
func SanitizeEmail(email string) (string, bool) {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > 254 {
		return "", false
	}
	if err := fieldValidator.Var(email, "required,email"); err != nil {
		return "", false
	}

	at := strings.LastIndexByte(email, '@')
	domain := strings.ToLower(email[at+1:])
	if _, blocked := disposableDomains[domain]; blocked {
		return "", false
	}
	return email[:at+1] + domain, true
}

// SanitizePhone normalizes a UAE number to +971 followed by 8 or 9 digits.
// Local mobile numbers with or without the trunk 0 get the country code.
func SanitizePhone(phone string) (string, bool) {
	phone = phoneStrip.ReplaceAllString(phone, "")
	if uaePhone.MatchString(phone) {
		return phone, true
	}

	local := strings.TrimPrefix(phone, "0")
	if uaeLocalMobile.MatchString(local) {
		return "+971" + local, true
	}
	return "", false
}

// CheckHoneypot reports true when no decoy field carries a value.
func CheckHoneypot(fields map[string]string) bool {
	for name, value := range fields {
		if strings.HasPrefix(name, HoneypotPrefix) && strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

// HoneypotFieldName returns a decoy field name for a rendered form.
func HoneypotFieldName() string {
	return HoneypotPrefix + RandomString(10)
}

// SanitizeText strips markup and collapses all whitespace to single spaces.
func SanitizeText(value string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(stripTags(value), " "))
}

// SanitizeTextarea strips markup but keeps line breaks.
func SanitizeTextarea(value string) string {
	lines := strings.Split(strings.ReplaceAll(stripTags(value), "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(lineSpaceRun.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func stripTags(value string) string {
	if !strings.ContainsAny(value, "<&") {
		return value
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(value))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isRawTextTag(name []byte) bool {
	tag := string(name)
	return tag == "script" || tag == "style"
}
