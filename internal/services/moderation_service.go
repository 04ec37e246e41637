package services

import (
	"fmt"
	"regexp"
	"strings"
)

// Rejection reasons returned by FilterContent.
const (
	ReasonInappropriate = "inappropriate_language"
	ReasonURL           = "url_not_allowed"
	ReasonContactInfo   = "contact_info_not_allowed"
	ReasonSpam          = "spam_detected"
)

// BannedWords are matched as whole words, case-insensitively. Portuguese
// entries cover the audience the service was built for.
var BannedWords = []string{
	"fuck", "shit", "bitch", "cunt", "asshole", "bastard",
	"porra", "caralho", "merda", "puta", "viado", "buceta",
	"porn", "nudes", "scam", "phishing",
}

// ContentRejectedError is returned when public text fails moderation.
type ContentRejectedError struct {
	Field  string
	Reason string
}

func (e *ContentRejectedError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Field, e.Reason)
}

// ModerationService screens the free text that becomes public: report
// descriptions and denunciation justifications.
type ModerationService struct {
	bannedWords  []*regexp.Regexp
	urlPattern   *regexp.Regexp
	emailPattern *regexp.Regexp
	phonePattern *regexp.Regexp
}

func NewModerationService() *ModerationService {
	ms := &ModerationService{
		urlPattern:   regexp.MustCompile(`(?i)(https?://\S+|www\.\S+\.\S+)`),
		emailPattern: regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`),
		phonePattern: regexp.MustCompile(`\(?\d{2,3}\)?[-.\s]?9?\d{4}[-.\s]?\d{4}`),
	}
	ms.bannedWords = make([]*regexp.Regexp, 0, len(BannedWords))
	for _, word := range BannedWords {
		ms.bannedWords = append(ms.bannedWords, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(word)+`\b`))
	}
	return ms
}

// FilterContent returns ok=false and a reason code when text may not be
// published. Empty text passes.
func (ms *ModerationService) FilterContent(text string) (bool, string) {
	if strings.TrimSpace(text) == "" {
		return true, ""
	}
	for _, re := range ms.bannedWords {
		if re.MatchString(text) {
			return false, ReasonInappropriate
		}
	}
	if ms.urlPattern.MatchString(text) {
		return false, ReasonURL
	}
	if ms.emailPattern.MatchString(text) || ms.phonePattern.MatchString(text) {
		return false, ReasonContactInfo
	}
	if hasLongRun(text, 5) {
		return false, ReasonSpam
	}
	return true, ""
}

// Check wraps FilterContent for a named field.
func (ms *ModerationService) Check(field, text string) error {
	if ok, reason := ms.FilterContent(text); !ok {
		return &ContentRejectedError{Field: field, Reason: reason}
	}
	return nil
}

func (ms *ModerationService) RejectionMessage(reason string) string {
	messages := map[string]string{
		ReasonInappropriate: "The text contains inappropriate language.",
		ReasonURL:           "URLs and web links are not allowed.",
		ReasonContactInfo:   "Contact information is not allowed.",
		ReasonSpam:          "The text appears to be spam.",
	}
	if msg, ok := messages[reason]; ok {
		return msg
	}
	return "The text does not meet our content guidelines."
}

// hasLongRun reports whether any rune repeats n or more times in a row.
func hasLongRun(text string, n int) bool {
	var prev rune
	run := 0
	for _, r := range strings.ToLower(text) {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run >= n && r != ' ' {
			return true
		}
	}
	return false
}
