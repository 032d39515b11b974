// Package form holds the shared school-registration record: the fixed field
// set, the interview order used to derive the next missing field, and the
// single merge funnel every mutation source goes through.
package form

// Field keys. These are the only keys the record tracks; they double as the
// JSON wire names for submission and as the argument keys of the
// update_school_data tool.
const (
	KeySchoolName       = "school_name"
	KeySchoolCode       = "school_code"
	KeyBlock            = "block"
	KeyDistrict         = "district"
	KeyLevel            = "level"
	KeyPrincipalName    = "principal_name"
	KeyTrustName        = "trust_name"
	KeyPhone            = "phone"
	KeyEmail            = "email"
	KeySchoolPhoto      = "school_photo"
	KeyPrincipalPhoto   = "principal_photo"
	KeyCertPrimary      = "certificate_primary"
	KeyCertUpperPrimary = "certificate_upper_primary"
)

// Recognized values for the level field.
const (
	LevelPrimary      = "Primary (1-5)"
	LevelUpperPrimary = "Upper Primary (1-8)"
)

// Ready is the terminal sentinel returned by NextMissingField when every
// required field, including attachments, is present.
const Ready = "ready"

// Record is one school registration. All values are strings; the four
// attachment fields hold data-URI-encoded payloads.
type Record struct {
	SchoolName       string `json:"school_name"`
	SchoolCode       string `json:"school_code"`
	Block            string `json:"block"`
	District         string `json:"district"`
	Level            string `json:"level"`
	PrincipalName    string `json:"principal_name"`
	TrustName        string `json:"trust_name"`
	Phone            string `json:"phone"`
	Email            string `json:"email"`
	SchoolPhoto      string `json:"school_photo"`
	PrincipalPhoto   string `json:"principal_photo"`
	CertPrimary      string `json:"certificate_primary"`
	CertUpperPrimary string `json:"certificate_upper_primary"`
}

// Field describes one entry of the interview order.
type Field struct {
	Key   string
	Label string
}

// FieldOrder is the interview order for the textual fields. It is the order
// the assistant asks questions in; NextMissingField walks it first.
var FieldOrder = []Field{
	{KeySchoolName, "school name"},
	{KeySchoolCode, "school code"},
	{KeyBlock, "block"},
	{KeyDistrict, "district"},
	{KeyLevel, "school level"},
	{KeyPrincipalName, "principal name"},
	{KeyTrustName, "trust name"},
	{KeyPhone, "phone number"},
	{KeyEmail, "email address"},
}

// AttachmentOrder is the fixed check order for attachment fields. The
// upper-primary certificate participates only when the level requires it.
var AttachmentOrder = []Field{
	{KeySchoolPhoto, "school photograph"},
	{KeyPrincipalPhoto, "principal photograph"},
	{KeyCertPrimary, "primary recognition certificate"},
	{KeyCertUpperPrimary, "upper primary recognition certificate"},
}

// Get returns the value for key, or "" when the key is not part of the
// fixed field set.
func (r Record) Get(key string) string {
	switch key {
	case KeySchoolName:
		return r.SchoolName
	case KeySchoolCode:
		return r.SchoolCode
	case KeyBlock:
		return r.Block
	case KeyDistrict:
		return r.District
	case KeyLevel:
		return r.Level
	case KeyPrincipalName:
		return r.PrincipalName
	case KeyTrustName:
		return r.TrustName
	case KeyPhone:
		return r.Phone
	case KeyEmail:
		return r.Email
	case KeySchoolPhoto:
		return r.SchoolPhoto
	case KeyPrincipalPhoto:
		return r.PrincipalPhoto
	case KeyCertPrimary:
		return r.CertPrimary
	case KeyCertUpperPrimary:
		return r.CertUpperPrimary
	default:
		return ""
	}
}

// KnownKey reports whether key belongs to the fixed field set.
func KnownKey(key string) bool {
	switch key {
	case KeySchoolName, KeySchoolCode, KeyBlock, KeyDistrict, KeyLevel,
		KeyPrincipalName, KeyTrustName, KeyPhone, KeyEmail,
		KeySchoolPhoto, KeyPrincipalPhoto, KeyCertPrimary, KeyCertUpperPrimary:
		return true
	default:
		return false
	}
}

// Merge applies partial onto r and returns the result. It is the single
// funnel for every mutation path (form UI, voice tool calls, chat tool
// calls), so derived invariants hold regardless of the mutation source:
// setting level to the primary band clears the upper-primary certificate.
// Keys outside the fixed field set are ignored.
func Merge(r Record, partial map[string]string) Record {
	for key, value := range partial {
		switch key {
		case KeySchoolName:
			r.SchoolName = value
		case KeySchoolCode:
			r.SchoolCode = value
		case KeyBlock:
			r.Block = value
		case KeyDistrict:
			r.District = value
		case KeyLevel:
			r.Level = value
		case KeyPrincipalName:
			r.PrincipalName = value
		case KeyTrustName:
			r.TrustName = value
		case KeyPhone:
			r.Phone = value
		case KeyEmail:
			r.Email = value
		case KeySchoolPhoto:
			r.SchoolPhoto = value
		case KeyPrincipalPhoto:
			r.PrincipalPhoto = value
		case KeyCertPrimary:
			r.CertPrimary = value
		case KeyCertUpperPrimary:
			r.CertUpperPrimary = value
		}
	}
	if r.Level != LevelUpperPrimary {
		// The upper-primary certificate only exists for the upper band.
		r.CertUpperPrimary = ""
	}
	return r
}

// NextMissingField returns the label of the first empty field in interview
// order, then the first empty attachment in check order, or Ready when the
// record is complete. Total over every Record value.
func NextMissingField(r Record) string {
	for _, f := range FieldOrder {
		if r.Get(f.Key) == "" {
			return f.Label
		}
	}
	for _, f := range AttachmentOrder {
		if f.Key == KeyCertUpperPrimary && r.Level != LevelUpperPrimary {
			continue
		}
		if r.Get(f.Key) == "" {
			return f.Label
		}
	}
	return Ready
}
