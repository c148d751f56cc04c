package domain

import "fmt"

// Cents is a money amount in US cents. All fine arithmetic is integer
// math; dollars only appear when an amount is formatted for display.
type Cents int64

// String formats the amount as dollars, e.g. "$1.25", "-$0.50".
func (c Cents) String() string {
	if c < 0 {
		return fmt.Sprintf("-$%d.%02d", -c/100, -c%100)
	}
	return fmt.Sprintf("$%d.%02d", c/100, c%100)
}
