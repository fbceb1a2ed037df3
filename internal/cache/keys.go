package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}

func ProfitabilityKey(orgID uuid.UUID) string {
	return fmt.Sprintf("profitability:%s", orgID)
}
