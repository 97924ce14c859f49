// Package wire decodes the several historical payload shapes the tag backend
// emits into the one canonical Tag the rest of the client works with.
//
// The backend has evolved its schema in place without a migration: newer
// endpoints return a nested config object and a privacy block, older ones
// return domain-specific detail objects or flat top-level fields. Each legacy
// shape has its own adapter here so the precedence order stays explicit.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/models"
)

// ErrMalformedEntity marks a payload from which no usable identity could be
// derived. Such entities are dropped on ingest rather than stored.
var ErrMalformedEntity = errors.New("malformed tag entity")

// Normalize converts one raw server payload into a canonical Tag.
func Normalize(raw json.RawMessage) (models.Tag, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return models.Tag{}, fmt.Errorf("%w: %v", ErrMalformedEntity, err)
	}
	return NormalizeMap(payload)
}

// NormalizeMap is Normalize for an already-decoded payload.
func NormalizeMap(payload map[string]any) (models.Tag, error) {
	identity := ResolveIdentity(payload)
	if identity == "" {
		return models.Tag{}, fmt.Errorf("%w: no id, _id, or code field", ErrMalformedEntity)
	}

	domain, _ := models.ParseDomain(str(payload["domain"]))

	return models.Tag{
		Identity:      identity,
		Code:          str(payload["code"]),
		Domain:        domain,
		DisplayConfig: displayConfig(payload, domain),
		Active:        isActive(payload),
		Privacy:       privacy(payload),
		ScanHistory:   scanHistory(payload),
	}, nil
}

// NormalizeCollection decodes a full-collection response body. The backend
// has returned a bare array, {"tags": [...]}, and {"data": [...]} at various
// points; all three are accepted. Malformed entries are skipped, not fatal:
// one bad record must not blank the whole list.
func NormalizeCollection(body json.RawMessage) ([]models.Tag, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		var envelope struct {
			Tags []json.RawMessage `json:"tags"`
			Data []json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEntity, err)
		}
		items = envelope.Tags
		if items == nil {
			items = envelope.Data
		}
	}

	tags := make([]models.Tag, 0, len(items))
	for _, item := range items {
		tag, err := Normalize(item)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// displayConfig assembles attributes in fixed precedence: the new-style
// config object wins, then the domain's legacy detail object, then flat
// top-level fields. Later sources never overwrite earlier ones.
func displayConfig(payload map[string]any, domain models.Domain) map[string]any {
	cfg := map[string]any{}
	merge(cfg, asMap(payload["config"]))
	merge(cfg, legacyDetails(payload, domain))
	merge(cfg, flatFields(payload, domain))
	return cfg
}

// legacyDetails adapts the mid-era shape: one nested object per domain.
func legacyDetails(payload map[string]any, domain models.Domain) map[string]any {
	switch domain {
	case models.DomainVehicle:
		return asMap(payload["vehicleDetails"])
	case models.DomainChild:
		return asMap(payload["childDetails"])
	case models.DomainPet:
		return asMap(payload["petDetails"])
	}
	return nil
}

// flatFields adapts the oldest shape: attributes at the top level of the tag
// object itself.
func flatFields(payload map[string]any, domain models.Domain) map[string]any {
	var keys []string
	switch domain {
	case models.DomainVehicle:
		keys = []string{"plateNumber", "vehicleModel"}
	case models.DomainChild:
		keys = []string{"childName", "emergencyContact"}
	case models.DomainPet:
		keys = []string{"petName", "breed"}
	default:
		return nil
	}
	out := map[string]any{}
	for _, k := range keys {
		if v, ok := payload[k]; ok {
			out[k] = v
		}
	}
	return out
}

// privacy bridges the two historical formats: a nested privacy object on
// newer payloads, flat booleans on older ones. Absent fields default to
// false so the result is always fully populated.
func privacy(payload map[string]any) models.PrivacySettings {
	source := asMap(payload["privacy"])
	if source == nil {
		source = payload
	}
	return models.PrivacySettings{
		MaskedCall:           boolVal(source[models.SettingMaskedCall]),
		WhatsApp:             boolVal(source[models.SettingWhatsApp]),
		SMS:                  boolVal(source[models.SettingSMS]),
		ShowEmergencyContact: boolVal(source[models.SettingShowEmergencyContact]),
	}
}

// isActive prefers an explicit boolean; otherwise a status enum equal to
// "ACTIVE" counts. The flag is always computed, never trusted blindly.
func isActive(payload map[string]any) bool {
	if v, ok := payload["isActive"].(bool); ok {
		return v
	}
	return str(payload["status"]) == "ACTIVE"
}

// scanHistory preserves server ordering as-is; entries with unparseable
// timestamps are kept with a zero time rather than dropped.
func scanHistory(payload map[string]any) []models.ScanEntry {
	items, ok := payload["scanHistory"].([]any)
	if !ok {
		return nil
	}
	entries := make([]models.ScanEntry, 0, len(items))
	for _, item := range items {
		m := asMap(item)
		if m == nil {
			continue
		}
		entry := models.ScanEntry{Location: str(m["location"])}
		if ts, err := time.Parse(time.RFC3339, str(m["timestamp"])); err == nil {
			entry.Timestamp = ts
		}
		entries = append(entries, entry)
	}
	return entries
}

func merge(dst, src map[string]any) {
	for k, v := range src {
		if _, exists := dst[k]; !exists {
			dst[k] = v
		}
	}
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func boolVal(v any) bool {
	b, _ := v.(bool)
	return b
}
