// Package simulator is an in-process stand-in for the production tag
// service. It implements the full HTTP surface the sync layer consumes,
// including the messy parts: legacy wire shapes, OTP flows with fixed dev
// codes, locked public lookups, and endpoints that answer with a migration
// notice instead of working.
//
// It exists so the mobile UI and the sync layer can be developed and tested
// without the real backend.
package simulator

import (
	"sync"

	"github.com/google/uuid"

	"github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/models"
)

// DevOTP is the fixed verification code every simulated OTP flow accepts.
const DevOTP = "123456"

// Record is one server-side tag. Shape controls which historical wire format
// the simulator emits for it, so clients exercise their normalizer against
// all of them.
type Record struct {
	ID           string
	Code         string
	Domain       models.Domain
	Config       map[string]any
	Status       string
	Privacy      models.PrivacySettings
	Phone        string
	PublicLocked bool
	Scans        []models.ScanEntry
	Shape        Shape
}

// Shape selects the wire format a record is rendered in.
type Shape int

const (
	// ShapeCurrent is the modern format: id, config object, privacy block,
	// isActive boolean.
	ShapeCurrent Shape = iota
	// ShapeLegacyDetails is the mid-era format: _id, a per-domain details
	// object, flat privacy booleans, a status enum.
	ShapeLegacyDetails
	// ShapeLegacyFlat is the oldest format: attributes and privacy booleans
	// at the top level, identified by code only.
	ShapeLegacyFlat
)

// Simulator holds simulated backend state behind a mutex.
type Simulator struct {
	mu       sync.Mutex
	records  []*Record
	otpSent  map[string]bool // tag id -> update OTP outstanding
	actOTP   map[string]bool // tag code -> activation OTP outstanding
	migrated map[string]bool // route key -> answers with migration notice
	// structuredMigration switches the migration reply from prose to the
	// endpoint_migrated error code.
	structuredMigration bool
	jwtKey              []byte
}

func New(jwtKey string) *Simulator {
	return &Simulator{
		otpSent:  make(map[string]bool),
		actOTP:   make(map[string]bool),
		migrated: make(map[string]bool),
		jwtKey:   []byte(jwtKey),
	}
}

// Seed inserts records directly, assigning ids where missing.
func (s *Simulator) Seed(records ...Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range records {
		r := records[i]
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if r.Status == "" {
			r.Status = "ACTIVE"
		}
		s.records = append(s.records, &r)
	}
}

// SetMigrated marks a route as retired. Keys: "register", "activate",
// "update", "privacy".
func (s *Simulator) SetMigrated(route string, structured bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.migrated[route] = true
	s.structuredMigration = structured
}

func (s *Simulator) isMigrated(route string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.migrated[route]
}

func (s *Simulator) findByID(id string) *Record {
	for _, r := range s.records {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *Simulator) findByCode(code string) *Record {
	for _, r := range s.records {
		if r.Code == code {
			return r
		}
	}
	return nil
}

// render emits a record in its configured wire shape.
func render(r *Record) map[string]any {
	switch r.Shape {
	case ShapeLegacyDetails:
		out := map[string]any{
			"_id":    r.ID,
			"code":   r.Code,
			"domain": string(r.Domain),
			"status": r.Status,
		}
		details := map[string]any{}
		for k, v := range r.Config {
			details[k] = v
		}
		switch r.Domain {
		case models.DomainVehicle:
			out["vehicleDetails"] = details
		case models.DomainChild:
			out["childDetails"] = details
		case models.DomainPet:
			out["petDetails"] = details
		}
		flattenPrivacy(out, r.Privacy)
		return out

	case ShapeLegacyFlat:
		out := map[string]any{
			"code":   r.Code,
			"domain": string(r.Domain),
			"status": r.Status,
		}
		for k, v := range r.Config {
			out[k] = v
		}
		flattenPrivacy(out, r.Privacy)
		return out

	default:
		out := map[string]any{
			"id":       r.ID,
			"code":     r.Code,
			"domain":   string(r.Domain),
			"config":   r.Config,
			"isActive": r.Status == "ACTIVE",
			"privacy":  r.Privacy,
		}
		if len(r.Scans) > 0 {
			out["scanHistory"] = r.Scans
		}
		return out
	}
}

func flattenPrivacy(out map[string]any, p models.PrivacySettings) {
	out[models.SettingMaskedCall] = p.MaskedCall
	out[models.SettingWhatsApp] = p.WhatsApp
	out[models.SettingSMS] = p.SMS
	out[models.SettingShowEmergencyContact] = p.ShowEmergencyContact
}
