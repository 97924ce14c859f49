// Package capability tracks which server endpoints are still viable. Some
// endpoints are mid-migration: once the server signals one is retired, the
// gate latches it unsupported for the remainder of the process so future
// calls fail fast locally instead of round-tripping.
package capability

import (
	"strings"
	"sync"

	"github.com/theiiinsiderz/AppConnect360-sub000/pkg/transport"
)

// Endpoint names gated independently of one another.
const (
	EndpointRegister = "register"
	EndpointActivate = "activate"
	EndpointUpdate   = "update"
	EndpointPrivacy  = "privacy"
)

// UnsupportedMessage is the stable user-facing text returned when a call is
// short-circuited. It never varies with the server's wording.
const UnsupportedMessage = "This feature is temporarily unavailable while our systems are upgraded."

// Gate is a per-endpoint latch. Every endpoint starts supported; a migration
// signal flips it to unsupported permanently. Unlike a classic circuit
// breaker there is no half-open probe: a retired endpoint does not come back.
type Gate struct {
	mu          sync.RWMutex
	unsupported map[string]bool
}

func NewGate() *Gate {
	return &Gate{unsupported: make(map[string]bool)}
}

// Supported reports whether calls to endpoint should still go out.
func (g *Gate) Supported(endpoint string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return !g.unsupported[endpoint]
}

// RecordResult inspects err after a call to endpoint and latches the gate if
// the server signaled migration. Returns true when this call tripped it.
func (g *Gate) RecordResult(endpoint string, err error) bool {
	if err == nil || !IsMigrated(err) {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unsupported[endpoint] {
		return false
	}
	g.unsupported[endpoint] = true
	return true
}

// IsMigrated reports whether err is the server's endpoint-retired signal.
// Transports that classify structurally report transport.CodeEndpointMigrated;
// the body-substring check below is the compatibility shim for backends that
// still answer with prose, kept to this one function on purpose.
func IsMigrated(err error) bool {
	if transport.CodeOf(err) == transport.CodeEndpointMigrated {
		return true
	}
	return migratedByMessage(err)
}

func migratedByMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not implemented") || strings.Contains(msg, "migrated")
}
