package utils

import (
	"math"

	"github.com/google/uuid"
)

// NewID returns a random UUID string for surrogate keys.
func NewID() string {
	return uuid.NewString()
}

// MinorUnits converts a decimal price to the processor's integer amount.
func MinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}
