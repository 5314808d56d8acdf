package directory

import (
	"strings"
	"time"
)

const (
	flowDateLayout      = "2006-01-02"
	directoryDateLayout = "02-01-2006"
	defaultIDDocument   = "national_id"
	defaultGender       = "MALE"
)

// FormatDate converts a Flow date (YYYY-MM-DD) to the directory's
// DD-MM-YYYY. Values that do not parse are passed through unchanged.
func FormatDate(value string) string {
	t, err := time.Parse(flowDateLayout, strings.TrimSpace(value))
	if err != nil {
		return value
	}
	return t.Format(directoryDateLayout)
}

func normalizeGender(g string) string {
	g = strings.TrimSpace(g)
	if g == "" {
		return defaultGender
	}
	return strings.ToUpper(g)
}

func normalizeIDDocument(doc string) string {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return defaultIDDocument
	}
	return strings.ToLower(doc)
}

func newGuardianPayload(in GuardianInput, roleID string) guardianPayload {
	return guardianPayload{
		FirstName:              in.FirstName,
		MiddleName:             in.MiddleName,
		LastName:               in.LastName,
		Email:                  in.Email,
		Phone:                  in.Phone,
		IdentificationDocument: normalizeIDDocument(in.IdentificationDocument),
		IdentificationNumber:   in.IdentificationNumber,
		DOB:                    FormatDate(in.DOB),
		Gender:                 normalizeGender(in.Gender),
		RoleID:                 roleID,
	}
}

func newDependantPayload(in DependantInput, parentID string) dependantPayload {
	return dependantPayload{
		FirstName:  in.FirstName,
		MiddleName: in.MiddleName,
		LastName:   in.LastName,
		DOB:        FormatDate(in.DOB),
		Gender:     normalizeGender(in.Gender),
		ParentID:   parentID,
	}
}
