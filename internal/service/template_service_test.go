package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/molevo/broadcast-backend/internal/model"
	"github.com/molevo/broadcast-backend/internal/service"
)

func TestRenderTemplate(t *testing.T) {
	customer := &model.Customer{
		ID:           1,
		FirstName:    "Alice",
		LastName:     "Smith",
		PrimaryEmail: "alice@example.com",
	}
	sender := &model.User{
		ID:       7,
		Email:    "sales@acme.io",
		FullName: "Bob Jones",
		Position: "Account Manager",
	}

	cases := []struct {
		name     string
		template string
		want     string
	}{
		{
			"no tokens passes through",
			"Hello there, welcome aboard!",
			"Hello there, welcome aboard!",
		},
		{
			"customer tokens",
			"Hi {{customer.name}} <{{customer.email}}>",
			"Hi Alice Smith <alice@example.com>",
		},
		{
			"user tokens",
			"Regards, {{user.fullName}}, {{user.position}} ({{user.email}})",
			"Regards, Bob Jones, Account Manager (sales@acme.io)",
		},
		{
			"case insensitive with whitespace",
			"Hi {{ CUSTOMER.NAME }} from {{  User.FullName  }}",
			"Hi Alice Smith from Bob Jones",
		},
		{
			"unknown tokens are left alone",
			"Use code {{promo.code}} today {{customer.name}}",
			"Use code {{promo.code}} today Alice Smith",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, service.RenderTemplate(tc.template, customer, sender))
		})
	}
}

func TestRenderTemplateMissingData(t *testing.T) {
	got := service.RenderTemplate("Hi {{customer.name}}, bye {{user.fullName}}", nil, nil)
	assert.Equal(t, "Hi , bye ", got)

	// a customer with no names still gets the neutral fallback
	anon := &model.Customer{ID: 2}
	got = service.RenderTemplate("Hi {{customer.name}} <{{customer.email}}>", anon, nil)
	assert.Equal(t, "Hi Customer <>", got)
}
