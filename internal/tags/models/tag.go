package models

import "time"

// Domain classifies what a physical tag is attached to. The backend's wire
// value for vehicles is "CAR" for historical reasons; "VEHICLE" is accepted
// as an alias on ingest.
//
// Unrecognized wire values map to DomainUnknown rather than silently
// defaulting to vehicle, so a new server-side domain cannot masquerade as a
// car tag downstream.
type Domain string

const (
	DomainVehicle Domain = "CAR"
	DomainChild   Domain = "CHILD"
	DomainPet     Domain = "PET"
	DomainUnknown Domain = "UNKNOWN"
)

// ParseDomain coerces a wire value to a known Domain.
// The second return reports whether the value was recognized.
func ParseDomain(raw string) (Domain, bool) {
	switch raw {
	case "CAR", "VEHICLE":
		return DomainVehicle, true
	case "CHILD":
		return DomainChild, true
	case "PET":
		return DomainPet, true
	}
	return DomainUnknown, false
}

// Privacy setting names, as the server expects them in PATCH bodies.
const (
	SettingMaskedCall           = "maskedCall"
	SettingWhatsApp             = "whatsapp"
	SettingSMS                  = "sms"
	SettingShowEmergencyContact = "showEmergencyContact"
)

// PrivacySettings are the four independent contact-masking toggles. After
// normalization every field is populated; a payload that omits privacy
// entirely yields all-false, never missing keys.
type PrivacySettings struct {
	MaskedCall           bool `json:"maskedCall"`
	WhatsApp             bool `json:"whatsapp"`
	SMS                  bool `json:"sms"`
	ShowEmergencyContact bool `json:"showEmergencyContact"`
}

// Value returns the toggle named by setting. Unknown names read as false.
func (p PrivacySettings) Value(setting string) bool {
	switch setting {
	case SettingMaskedCall:
		return p.MaskedCall
	case SettingWhatsApp:
		return p.WhatsApp
	case SettingSMS:
		return p.SMS
	case SettingShowEmergencyContact:
		return p.ShowEmergencyContact
	}
	return false
}

// WithValue returns a copy with the named toggle set. Unknown names are a
// no-op so a stale client cannot corrupt state it does not understand.
func (p PrivacySettings) WithValue(setting string, v bool) PrivacySettings {
	switch setting {
	case SettingMaskedCall:
		p.MaskedCall = v
	case SettingWhatsApp:
		p.WhatsApp = v
	case SettingSMS:
		p.SMS = v
	case SettingShowEmergencyContact:
		p.ShowEmergencyContact = v
	}
	return p
}

// KnownSetting reports whether setting names one of the four toggles.
func KnownSetting(setting string) bool {
	switch setting {
	case SettingMaskedCall, SettingWhatsApp, SettingSMS, SettingShowEmergencyContact:
		return true
	}
	return false
}

// ScanEntry is one server-recorded scan of a tag. The client treats the
// sequence as append-only and preserves server order; sorting for "recent"
// views is a UI concern.
type ScanEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Location  string    `json:"location"`
}

// Tag is the canonical client-side representation of a registered tag.
//
// Invariants:
//   - Identity is unique within a store; exactly one Tag per identity.
//   - Code is the physical identifier printed on the tag, stable from
//     manufacture.
//   - Privacy is always fully populated after normalization.
type Tag struct {
	Identity      string          `json:"identity"`
	Code          string          `json:"code"`
	Domain        Domain          `json:"domain"`
	DisplayConfig map[string]any  `json:"displayConfig"`
	Active        bool            `json:"isActive"`
	Privacy       PrivacySettings `json:"privacy"`
	ScanHistory   []ScanEntry     `json:"scanHistory,omitempty"`
}

// Display returns a string attribute from DisplayConfig, "" when absent.
func (t *Tag) Display(key string) string {
	if v, ok := t.DisplayConfig[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
