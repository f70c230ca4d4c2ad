package clients

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Input is the writable part of a client.
type Input struct {
	PersonType          string `json:"personType" validate:"required,oneof=individual organization"`
	FirstName           string `json:"firstName" validate:"required_if=PersonType individual,max=100"`
	PaternalSurname     string `json:"paternalSurname" validate:"required_if=PersonType individual,max=100"`
	MaternalSurname     string `json:"maternalSurname" validate:"max=100"`
	LegalName           string `json:"legalName" validate:"required_if=PersonType organization,max=200"`
	LegalRepresentative string `json:"legalRepresentative" validate:"max=200"`
	TaxID               string `json:"taxId" validate:"required,min=12,max=13"`
	BirthDate           string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	IncorporationDate   string `json:"incorporationDate" validate:"omitempty,datetime=2006-01-02"`
	Email               string `json:"email" validate:"omitempty,email"`
	Phone               string `json:"phone" validate:"omitempty,max=20"`
	Address             string `json:"address" validate:"max=300"`
	City                string `json:"city" validate:"max=100"`
	State               string `json:"state" validate:"max=100"`
	Country             string `json:"country" validate:"max=100"`
}

// ClientResponse is the outward-facing representation of a client.
type ClientResponse struct {
	ID                  string    `json:"id"`
	PersonType          string    `json:"personType"`
	DisplayName         string    `json:"displayName"`
	FirstName           string    `json:"firstName,omitempty"`
	PaternalSurname     string    `json:"paternalSurname,omitempty"`
	MaternalSurname     string    `json:"maternalSurname,omitempty"`
	LegalName           string    `json:"legalName,omitempty"`
	LegalRepresentative string    `json:"legalRepresentative,omitempty"`
	TaxID               string    `json:"taxId"`
	BirthDate           string    `json:"birthDate,omitempty"`
	IncorporationDate   string    `json:"incorporationDate,omitempty"`
	Email               string    `json:"email,omitempty"`
	Phone               string    `json:"phone,omitempty"`
	Address             string    `json:"address,omitempty"`
	City                string    `json:"city,omitempty"`
	State               string    `json:"state,omitempty"`
	Country             string    `json:"country,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

func (in Input) normalized() Input {
	trim := func(s *string) { *s = strings.TrimSpace(*s) }
	for _, f := range []*string{
		&in.PersonType, &in.FirstName, &in.PaternalSurname, &in.MaternalSurname,
		&in.LegalName, &in.LegalRepresentative, &in.TaxID, &in.BirthDate,
		&in.IncorporationDate, &in.Email, &in.Phone, &in.Address, &in.City,
		&in.State, &in.Country,
	} {
		trim(f)
	}
	in.PersonType = strings.ToLower(in.PersonType)
	in.TaxID = strings.ToUpper(in.TaxID)
	in.Email = strings.ToLower(in.Email)
	return in
}

func (in Input) apply(c Client) Client {
	c.PersonType = in.PersonType
	c.FirstName = in.FirstName
	c.PaternalSurname = in.PaternalSurname
	c.MaternalSurname = in.MaternalSurname
	c.LegalName = in.LegalName
	c.LegalRepresentative = in.LegalRepresentative
	c.TaxID = in.TaxID
	c.BirthDate = parseDate(in.BirthDate)
	c.IncorporationDate = parseDate(in.IncorporationDate)
	c.Email = in.Email
	c.Phone = in.Phone
	c.Address = in.Address
	c.City = in.City
	c.State = in.State
	c.Country = in.Country
	return c
}

func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil
	}
	return &t
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func toResponse(c Client) ClientResponse {
	return ClientResponse{
		ID:                  c.ID,
		PersonType:          c.PersonType,
		DisplayName:         c.DisplayName(),
		FirstName:           c.FirstName,
		PaternalSurname:     c.PaternalSurname,
		MaternalSurname:     c.MaternalSurname,
		LegalName:           c.LegalName,
		LegalRepresentative: c.LegalRepresentative,
		TaxID:               c.TaxID,
		BirthDate:           formatDate(c.BirthDate),
		IncorporationDate:   formatDate(c.IncorporationDate),
		Email:               c.Email,
		Phone:               c.Phone,
		Address:             c.Address,
		City:                c.City,
		State:               c.State,
		Country:             c.Country,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}
