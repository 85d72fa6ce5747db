package utils

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"
)

// ParseInt converts string to int with default value
func ParseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	if result < 1 {
		return defaultValue
	}

	return result
}

// GenerateOrderCode creates an order code with timestamp. The random part is
// wide enough that two checkouts in the same second collide with negligible
// probability; the order_code unique column backstops the rest.
func GenerateOrderCode() string {
	now := time.Now()

	// Format: ORD-YYYYMMDD-HHMMSS-RANDOM
	datePart := now.Format("20060102")
	timePart := now.Format("150405")
	randomPart := fmt.Sprintf("%08d", rand.Intn(100000000))

	return fmt.Sprintf("ORD-%s-%s-%s", datePart, timePart, randomPart)
}
