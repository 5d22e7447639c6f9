package service

import (
	"regexp"
	"strings"

	"github.com/molevo/broadcast-backend/internal/model"
)

var tokenRe = regexp.MustCompile(`\{\{\s*([a-zA-Z.]+)\s*\}\}`)

// RenderTemplate substitutes the dynamic content tags into a template. Known
// tokens with missing data become empty strings; tokens it does not recognize
// are left untouched. Matching is case-insensitive and tolerates whitespace
// inside the delimiters.
func RenderTemplate(content string, customer *model.Customer, user *model.User) string {
	return tokenRe.ReplaceAllStringFunc(content, func(token string) string {
		key := strings.ToLower(strings.TrimSpace(tokenRe.FindStringSubmatch(token)[1]))

		switch key {
		case "customer.name":
			if customer == nil {
				return ""
			}
			return customer.Name()
		case "customer.email":
			if customer == nil {
				return ""
			}
			return customer.PrimaryEmail
		case "user.fullname":
			if user == nil {
				return ""
			}
			return user.FullName
		case "user.position":
			if user == nil {
				return ""
			}
			return user.Position
		case "user.email":
			if user == nil {
				return ""
			}
			return user.Email
		}

		return token
	})
}
