package finance

import (
	"fmt"
	"time"
)

// exchangeLocation returns the exchange timezone, falling back to its fixed GMT offset if tzdata is missing.
func exchangeLocation(name string, gmtOffset int) *time.Location {
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if gmtOffset == 0 {
		return time.UTC
	}
	return time.FixedZone(fmt.Sprintf("GMT%+d", gmtOffset/3600), gmtOffset)
}
