package tenant

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Mode int

const (
	// ModeUnrestricted applies no predicate.
	ModeUnrestricted Mode = iota
	// ModeSelf restricts to the requesting organization only.
	ModeSelf
	// ModeSet restricts to an explicit set of organization ids.
	ModeSet
)

// Filter is the tenant visibility predicate over an "owning organization"
// column. It composes with any other query condition by AND.
type Filter struct {
	mode           Mode
	organizationID uuid.UUID
	ids            []uuid.UUID
}

func Unrestricted() Filter {
	return Filter{mode: ModeUnrestricted}
}

func SelfOnly(organizationID uuid.UUID) Filter {
	return Filter{mode: ModeSelf, organizationID: organizationID}
}

func InSet(ids []uuid.UUID) Filter {
	cp := make([]uuid.UUID, len(ids))
	copy(cp, ids)
	return Filter{mode: ModeSet, ids: cp}
}

func (f Filter) Mode() Mode { return f.mode }

func (f Filter) IsRestricted() bool { return f.mode != ModeUnrestricted }

// OrganizationIDs returns the ids the filter admits; nil when unrestricted.
func (f Filter) OrganizationIDs() []uuid.UUID {
	switch f.mode {
	case ModeSelf:
		return []uuid.UUID{f.organizationID}
	case ModeSet:
		cp := make([]uuid.UUID, len(f.ids))
		copy(cp, f.ids)
		return cp
	default:
		return nil
	}
}

// Matches evaluates the predicate for a single owning organization id.
func (f Filter) Matches(organizationID uuid.UUID) bool {
	switch f.mode {
	case ModeSelf:
		return organizationID == f.organizationID
	case ModeSet:
		for _, id := range f.ids {
			if id == organizationID {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// Scope returns a GORM scope restricting column to the visible organizations.
// An empty set matches nothing.
func (f Filter) Scope(column string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch f.mode {
		case ModeSelf:
			return db.Where(fmt.Sprintf("%s = ?", column), f.organizationID)
		case ModeSet:
			if len(f.ids) == 0 {
				return db.Where("1 = 0")
			}
			return db.Where(fmt.Sprintf("%s IN ?", column), f.ids)
		default:
			return db
		}
	}
}
