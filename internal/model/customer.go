// internal/model/customer.go
package model

// Do-not-disturb values. An empty value means the flag was never set and
// the customer is reachable.
const (
	DoNotDisturbYes = "Yes"
	DoNotDisturbNo  = "No"
)

type Customer struct {
	ID            int64   `json:"id"`
	FirstName     string  `json:"first_name"`
	LastName      string  `json:"last_name"`
	PrimaryEmail  string  `json:"primary_email"`
	PrimaryPhone  string  `json:"primary_phone"`
	IntegrationID int64   `json:"integration_id"`
	TagIDs        []int64 `json:"tag_ids,omitempty"`
	DoNotDisturb  string  `json:"do_not_disturb,omitempty"`
}

// Name builds the display name used in rendered content.
func (c *Customer) Name() string {
	if c.FirstName != "" && c.LastName != "" {
		return c.FirstName + " " + c.LastName
	}
	if c.FirstName != "" {
		return c.FirstName
	}
	if c.LastName != "" {
		return c.LastName
	}
	return "Customer"
}

func (c *Customer) Reachable() bool {
	return c.DoNotDisturb != DoNotDisturbYes
}

// Field resolves a segment condition field name to its value. The second
// return is false for fields this model does not expose.
func (c *Customer) Field(name string) (string, bool) {
	switch name {
	case "firstName":
		return c.FirstName, c.FirstName != ""
	case "lastName":
		return c.LastName, c.LastName != ""
	case "primaryEmail":
		return c.PrimaryEmail, c.PrimaryEmail != ""
	case "primaryPhone":
		return c.PrimaryPhone, c.PrimaryPhone != ""
	case "doNotDisturb":
		return c.DoNotDisturb, c.DoNotDisturb != ""
	}
	return "", false
}
