package clients

import "time"

const (
	PersonIndividual   = "individual"
	PersonOrganization = "organization"
)

// Client owns properties offered as collateral.
type Client struct {
	ID                  string
	PersonType          string
	FirstName           string
	PaternalSurname     string
	MaternalSurname     string
	LegalName           string
	LegalRepresentative string
	TaxID               string
	BirthDate           *time.Time
	IncorporationDate   *time.Time
	Email               string
	Phone               string
	Address             string
	City                string
	State               string
	Country             string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// DisplayName returns the legal name for organizations and the full name otherwise.
func (c Client) DisplayName() string {
	if c.PersonType == PersonOrganization {
		return c.LegalName
	}
	name := c.FirstName
	for _, part := range []string{c.PaternalSurname, c.MaternalSurname} {
		if part != "" {
			name += " " + part
		}
	}
	return name
}
