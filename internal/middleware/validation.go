package middleware

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// Field length limits matching database schema constraints.
const (
	MaxChannelReferenceLen = 256 // audits.channel_reference VARCHAR(256)
	MaxChannelIDLen        = 32  // channels.channel_id VARCHAR(32)
	MaxCategoryLen         = 40  // channels.category VARCHAR(40)
	MaxCategories          = 10
	AuditIDLen             = 36 // uuid
)

var (
	// channelIDRe matches YouTube channel ids: alphanumeric, dash, underscore.
	channelIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	// auditIDRe matches lowercase hyphenated uuids.
	auditIDRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	// categoryRe matches peer-category ids.
	categoryRe = regexp.MustCompile(`^[a-z0-9_]+$`)
)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateChannelReference checks the free-form channel input (URL, @handle,
// or channel id). Resolution to a canonical id happens downstream; this only
// rejects inputs that cannot possibly resolve.
func ValidateChannelReference(ref string) (string, string) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "channelReference is required"
	}
	if len(ref) > MaxChannelReferenceLen {
		return "", "channelReference must be at most 256 characters"
	}
	if strings.ContainsAny(ref, " \t\n") {
		return "", "channelReference must not contain whitespace"
	}
	return ref, ""
}

// ValidateAuditID checks that an audit id is a well-formed uuid.
func ValidateAuditID(id string) (string, string) {
	id = strings.TrimSpace(strings.ToLower(id))
	if id == "" {
		return "", "auditId is required"
	}
	if len(id) != AuditIDLen || !auditIDRe.MatchString(id) {
		return "", "auditId must be a uuid"
	}
	return id, ""
}

// ValidateChannelID checks that a channel id is well-formed.
func ValidateChannelID(id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "channelId is required"
	}
	if len(id) > MaxChannelIDLen {
		return "", "channelId must be at most 32 characters"
	}
	if !channelIDRe.MatchString(id) {
		return "", "channelId contains invalid characters"
	}
	return id, ""
}

// ValidateCategories checks an optional peer-category scope. An empty slice
// is valid input — it means the caller chose no scope.
func ValidateCategories(categories []string) ([]string, string) {
	if len(categories) > MaxCategories {
		return nil, "at most 10 peer categories may be selected"
	}
	out := make([]string, 0, len(categories))
	for _, cat := range categories {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat == "" {
			continue
		}
		if len(cat) > MaxCategoryLen || !categoryRe.MatchString(cat) {
			return nil, "category ids must be lowercase alphanumeric with underscores"
		}
		out = append(out, cat)
	}
	return out, ""
}
