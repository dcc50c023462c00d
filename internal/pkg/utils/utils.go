package utils

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// GenerateOrderReference generates a unique payment reference. The unix
// millisecond prefix keeps references roughly ordered; the random suffix
// makes them unguessable.
func GenerateOrderReference() string {
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// Round2 rounds a monetary amount to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatAmount renders a monetary amount with exactly two decimal digits,
// as the gateway requires.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// AmountEquals compares two monetary amounts to the cent.
func AmountEquals(a, b float64) bool {
	return math.Abs(a-b) < 0.005
}
