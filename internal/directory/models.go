package directory

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// User is a directory account as returned by show-by-phone.
type User struct {
	ID                     ID     `json:"id"`
	FirstName              string `json:"first_name"`
	MiddleName             string `json:"middle_name"`
	LastName               string `json:"last_name"`
	Email                  string `json:"email"`
	Phone                  string `json:"phone"`
	Role                   Role   `json:"role"`
	IdentificationDocument string `json:"identification_document"`
	IdentificationNumber   string `json:"identification_number"`
	IsActive               bool   `json:"is_active"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Role is rendered by name. The directory sends either a plain string or
// an object with a name field.
type Role string

func (r *Role) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		*r = Role(name)
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*r = Role(obj.Name)
	return nil
}

// GuardianInput is the guardian object of a completed registration Flow.
type GuardianInput struct {
	FirstName              string `json:"first_name"`
	MiddleName             string `json:"middle_name"`
	LastName               string `json:"last_name"`
	Email                  string `json:"email"`
	Phone                  string `json:"phone"`
	IdentificationDocument string `json:"identification_document"`
	IdentificationNumber   string `json:"identification_number"`
	DOB                    string `json:"dob"`
	Gender                 string `json:"gender"`
}

// UnmarshalJSON accepts numbers and booleans wherever a string is expected.
// Flow forms send numeric fields such as identification_number as JSON numbers.
func (in *GuardianInput) UnmarshalJSON(b []byte) error {
	var raw struct {
		FirstName              flexString `json:"first_name"`
		MiddleName             flexString `json:"middle_name"`
		LastName               flexString `json:"last_name"`
		Email                  flexString `json:"email"`
		Phone                  flexString `json:"phone"`
		IdentificationDocument flexString `json:"identification_document"`
		IdentificationNumber   flexString `json:"identification_number"`
		DOB                    flexString `json:"dob"`
		Gender                 flexString `json:"gender"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*in = GuardianInput{
		FirstName:              string(raw.FirstName),
		MiddleName:             string(raw.MiddleName),
		LastName:               string(raw.LastName),
		Email:                  string(raw.Email),
		Phone:                  string(raw.Phone),
		IdentificationDocument: string(raw.IdentificationDocument),
		IdentificationNumber:   string(raw.IdentificationNumber),
		DOB:                    string(raw.DOB),
		Gender:                 string(raw.Gender),
	}
	return nil
}

// DependantInput is the child object of a completed registration Flow.
type DependantInput struct {
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name"`
	LastName   string `json:"last_name"`
	DOB        string `json:"dob"`
	Gender     string `json:"gender"`
}

func (in *DependantInput) UnmarshalJSON(b []byte) error {
	var raw struct {
		FirstName  flexString `json:"first_name"`
		MiddleName flexString `json:"middle_name"`
		LastName   flexString `json:"last_name"`
		DOB        flexString `json:"dob"`
		Gender     flexString `json:"gender"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*in = DependantInput{
		FirstName:  string(raw.FirstName),
		MiddleName: string(raw.MiddleName),
		LastName:   string(raw.LastName),
		DOB:        string(raw.DOB),
		Gender:     string(raw.Gender),
	}
	return nil
}

// Guardian is the created guardian record.
type Guardian struct {
	ID        ID     `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Dependant is the created child record.
type Dependant struct {
	ID         ID     `json:"id"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name"`
	LastName   string `json:"last_name"`
}

// FullName joins the non-empty name parts.
func (d *Dependant) FullName() string {
	return strings.Join(strings.Fields(d.FirstName+" "+d.MiddleName+" "+d.LastName), " ")
}

// guardianPayload is the body of POST /users/register.
type guardianPayload struct {
	FirstName              string `json:"first_name"`
	MiddleName             string `json:"middle_name"`
	LastName               string `json:"last_name"`
	Email                  string `json:"email"`
	Phone                  string `json:"phone"`
	IdentificationDocument string `json:"identification_document"`
	IdentificationNumber   string `json:"identification_number"`
	DOB                    string `json:"dob"`
	Gender                 string `json:"gender"`
	School                 string `json:"school"`
	Location               string `json:"location"`
	SchoolType             string `json:"school_type"`
	RoleID                 string `json:"role_id"`
}

// dependantPayload is the body of POST /dependants/add.
type dependantPayload struct {
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name"`
	LastName   string `json:"last_name"`
	DOB        string `json:"dob"`
	Gender     string `json:"gender"`
	ParentID   string `json:"parent_id"`
}

// envelope is the directory's standard response wrapper.
type envelope[T any] struct {
	Status  any    `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type loginData struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type roleData struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// ID is a directory record id. The API uses both numeric and string ids.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// flexString decodes a JSON string, number or boolean into its text form.
// Numbers keep their literal digits. null leaves the value empty.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("expected string, number or boolean, got %s", b)
	}
	*f = flexString(strconv.FormatBool(v))
	return nil
}
