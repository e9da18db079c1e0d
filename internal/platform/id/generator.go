package id

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Generator creates opaque IDs for stored rows.
type Generator interface {
	NewID() (string, error)
}

type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewID() (string, error) {
	v, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return v.String(), nil
}

// RunIDLayout formats the default run identifier, e.g. 2026_10_19_101500.
const RunIDLayout = "2006_01_02_150405"

// NewRunID formats t as a run identifier in the local zone.
func NewRunID(t time.Time) string {
	return t.Local().Format(RunIDLayout)
}

// ParseRunID reports whether v is a timestamp run id and returns its time.
func ParseRunID(v string) (time.Time, bool) {
	t, err := time.ParseInLocation(RunIDLayout, v, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
