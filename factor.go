package secondfactor

import (
	"encoding/json"
	"fmt"
)

// Status is the lifecycle state of a stored factor.
type Status string

const (
	// StatusPending marks a factor that was created but not yet proven by
	// its owner. Secrets are only revealable in this window.
	StatusPending Status = "pending"
	// StatusActive marks a factor usable for verification.
	StatusActive Status = "active"
	// StatusDisabled marks a factor the caller has switched off.
	StatusDisabled Status = "disabled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusDisabled:
		return true
	}
	return false
}

// reserved top-level field names in the persisted JSON shape; caller-defined
// extra fields may not shadow them.
var reservedFactorFields = map[string]bool{
	"id": true, "owner_id": true, "type": true, "status": true, "context": true,
}

// Factor is the unit of persistence. The caller owns a database row per
// factor; the engine never stores one itself. Context is strategy-defined
// opaque secret material (ciphertext for secret-bearing factors) and must
// never reach an untrusted caller except through Engine.Serialize.
type Factor struct {
	ID      string
	OwnerID string
	Type    string
	Status  Status
	Context string
	// Extra carries caller-defined fields. The engine passes them through
	// unmodified and serializes them verbatim at the top level.
	Extra map[string]any
}

// Clone returns a deep copy. Strategies that mutate stored state return a
// clone so the caller's record is never changed in place.
func (f *Factor) Clone() *Factor {
	dup := *f
	if f.Extra != nil {
		dup.Extra = make(map[string]any, len(f.Extra))
		for k, v := range f.Extra {
			dup.Extra[k] = v
		}
	}
	return &dup
}

// MarshalJSON renders the persisted record shape: the well-known fields plus
// any extra fields inlined at the top level.
func (f *Factor) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 5+len(f.Extra))
	for k, v := range f.Extra {
		if !reservedFactorFields[k] {
			out[k] = v
		}
	}
	out["id"] = f.ID
	out["owner_id"] = f.OwnerID
	out["type"] = f.Type
	out["status"] = f.Status
	if f.Context != "" {
		out["context"] = f.Context
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON: unknown top-level fields land
// in Extra.
func (f *Factor) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	take := func(key string, dst any) error {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		delete(raw, key)
		return json.Unmarshal(v, dst)
	}

	if err := take("id", &f.ID); err != nil {
		return fmt.Errorf("factor id: %w", err)
	}
	if err := take("owner_id", &f.OwnerID); err != nil {
		return fmt.Errorf("factor owner_id: %w", err)
	}
	if err := take("type", &f.Type); err != nil {
		return fmt.Errorf("factor type: %w", err)
	}
	if err := take("status", &f.Status); err != nil {
		return fmt.Errorf("factor status: %w", err)
	}
	if err := take("context", &f.Context); err != nil {
		return fmt.Errorf("factor context: %w", err)
	}

	if len(raw) > 0 {
		f.Extra = make(map[string]any, len(raw))
		for k, v := range raw {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return fmt.Errorf("factor extra field %q: %w", k, err)
			}
			f.Extra[k] = val
		}
	}
	return nil
}

// PublicFactor is the serialized, outward-facing view of a factor. Context
// ciphertext is always stripped; Secret holds the strategy's plaintext
// secret view and is only populated for trusted serializations of pending
// factors.
type PublicFactor struct {
	ID      string
	OwnerID string
	Type    string
	Status  Status
	Secret  any
	Extra   map[string]any
}

// MarshalJSON inlines extra fields at the top level, mirroring Factor.
func (p *PublicFactor) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 5+len(p.Extra))
	for k, v := range p.Extra {
		if !reservedFactorFields[k] && k != "secret" {
			out[k] = v
		}
	}
	out["id"] = p.ID
	out["owner_id"] = p.OwnerID
	out["type"] = p.Type
	out["status"] = p.Status
	if p.Secret != nil {
		out["secret"] = p.Secret
	}
	return json.Marshal(out)
}
