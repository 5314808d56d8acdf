package wizard

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
)

const (
	nameMaxLength  = "100"
	emailMaxLength = "255"
	idNumberLength = 8
	adultAge       = 18
)

var (
	phonePattern    = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	passportPattern = regexp.MustCompile(`^[A-Za-z0-9]{8}$`)

	dateLayouts = []string{"2006-01-02", time.RFC3339}

	idDocuments = []string{"national_id", "passport"}
	genders     = []string{"male", "female", "other"}
)

// ValidateGuardian checks a GUARDIAN_DETAILS submission against today.
func ValidateGuardian(data map[string]any, today time.Time) FieldErrors {
	errs := FieldErrors{}
	requiredName(errs, data, "first_name", "First name is required")
	requiredName(errs, data, "last_name", "Last name is required")
	optionalName(errs, data, "middle_name")

	email := field(data, "email")
	switch {
	case email == "":
		errs.add("email", requiredMessage("email"))
	case !govalidator.IsEmail(email):
		errs.add("email", "Please enter a valid email address")
	case !govalidator.StringLength(email, "1", emailMaxLength):
		errs.add("email", maxMessage("email", emailMaxLength))
	}

	phone := field(data, "phone")
	switch {
	case phone == "":
		errs.add("phone", requiredMessage("phone"))
	case !phonePattern.MatchString(phone):
		errs.add("phone", "Please enter a valid international phone number (e.g., +254712345678)")
	}

	document := field(data, "identification_document")
	switch {
	case document == "":
		errs.add("identification_document", "Please select an identification document type")
	case !govalidator.IsIn(document, idDocuments...):
		errs.add("identification_document", invalidChoiceMessage("identification_document"))
	}
	validateIDNumber(errs, document, field(data, "identification_number"))

	dob := field(data, "dob")
	if dob == "" {
		errs.add("dob", requiredMessage("dob"))
	} else if born, ok := parseDate(dob); !ok {
		errs.add("dob", dateMessage("dob"))
	} else if !born.Before(today) || born.After(today.AddDate(-adultAge, 0, 0)) {
		errs.add("dob", "Guardian must be at least 18 years old")
	}

	choice(errs, data, "gender", genders)
	return errs
}

// ValidateChild checks a CHILD_DETAILS submission against today.
func ValidateChild(data map[string]any, today time.Time) FieldErrors {
	errs := FieldErrors{}
	requiredName(errs, data, "child_first_name", "Child first name is required")
	requiredName(errs, data, "child_last_name", "Child last name is required")
	optionalName(errs, data, "child_middle_name")

	dob := field(data, "child_dob")
	if dob == "" {
		errs.add("child_dob", "Child date of birth is required")
	} else if born, ok := parseDate(dob); !ok {
		errs.add("child_dob", dateMessage("child_dob"))
	} else if !born.Before(today) {
		errs.add("child_dob", "Date of birth must be in the past")
	}

	choice(errs, data, "child_gender", genders)
	return errs
}

// validateIDNumber applies the number rule selected by the document type.
func validateIDNumber(errs FieldErrors, document, number string) {
	const key = "identification_number"
	if number == "" {
		errs.add(key, requiredMessage(key))
		return
	}
	switch document {
	case "national_id":
		if !govalidator.IsFloat(number) {
			errs.add(key, "National ID must contain only numbers")
		} else if len(number) != idNumberLength || !govalidator.IsNumeric(number) {
			errs.add(key, "National ID must be exactly 8 digits")
		}
	case "passport":
		if !passportPattern.MatchString(number) {
			errs.add(key, "Passport must be exactly 8 alphanumeric characters")
		}
	default:
		if n := len([]rune(number)); n != idNumberLength {
			errs.add(key, "Identification number must be 8 characters")
		}
	}
}

func requiredName(errs FieldErrors, data map[string]any, key, requiredMsg string) {
	v := field(data, key)
	if v == "" {
		errs.add(key, requiredMsg)
		return
	}
	if !govalidator.StringLength(v, "1", nameMaxLength) {
		errs.add(key, maxMessage(key, nameMaxLength))
	}
}

func optionalName(errs FieldErrors, data map[string]any, key string) {
	if v := field(data, key); v != "" && !govalidator.StringLength(v, "1", nameMaxLength) {
		errs.add(key, maxMessage(key, nameMaxLength))
	}
}

func choice(errs FieldErrors, data map[string]any, key string, allowed []string) {
	v := field(data, key)
	switch {
	case v == "":
		errs.add(key, requiredMessage(key))
	case !govalidator.IsIn(v, allowed...):
		errs.add(key, invalidChoiceMessage(key))
	}
}

// field returns a submitted value as trimmed text. Numbers are rendered
// without exponent so numeric ids survive JSON decoding.
func field(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), true
		}
	}
	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func label(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}

func requiredMessage(key string) string {
	return fmt.Sprintf("The %s field is required.", label(key))
}

func maxMessage(key, limit string) string {
	return fmt.Sprintf("The %s field must not be greater than %s characters.", label(key), limit)
}

func dateMessage(key string) string {
	return fmt.Sprintf("The %s field must be a valid date.", label(key))
}

func invalidChoiceMessage(key string) string {
	return fmt.Sprintf("The selected %s is invalid.", label(key))
}
